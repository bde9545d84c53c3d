// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/qubernetes/q8s/internal/jobenv"
	"github.com/qubernetes/q8s/internal/manifest"
	"github.com/qubernetes/q8s/internal/watch"
	"github.com/qubernetes/q8s/pkg/bundle"
	"github.com/qubernetes/q8s/pkg/fspath"
	"github.com/qubernetes/q8s/pkg/types"
	"github.com/qubernetes/q8s/pkg/workload"
)

type (
	// packageFlags are the flags of `q8s package`.
	packageFlags struct {
		workspaceFlags
		format       string
		output       string
		maxUnitBytes int64
		maxUnits     int
		dedupe       bool
		namespace    string
		mountPath    string
		noEnv        bool
		watch        bool
		debounce     time.Duration
	}

	// packaged is the result of packaging one workspace.
	packaged struct {
		workload *workload.Workload
		units    []bundle.Unit
		env      *jobenv.Env
		renderer *manifest.Renderer
	}

	packageReport struct {
		Entry         string               `json:"entry" yaml:"entry"`
		Name          string               `json:"name" yaml:"name"`
		AggregateHash string               `json:"aggregate_hash" yaml:"aggregate_hash"`
		Units         []unitReport         `json:"units" yaml:"units"`
		ConfigMaps    []manifest.ConfigMap `json:"config_maps" yaml:"config_maps"`
		Secret        *manifest.Secret     `json:"secret,omitempty" yaml:"secret,omitempty"`
		Volume        manifest.Volume      `json:"volume" yaml:"volume"`
		VolumeMount   manifest.VolumeMount `json:"volume_mount" yaml:"volume_mount"`
	}

	unitReport struct {
		ID          string               `json:"id" yaml:"id"`
		Index       int                  `json:"index" yaml:"index"`
		Size        int64                `json:"size" yaml:"size"`
		ContentHash string               `json:"content_hash" yaml:"content_hash"`
		Items       []manifest.KeyToPath `json:"items" yaml:"items"`
	}
)

func newPackageCommand(app *App, flags *rootFlags) *cobra.Command {
	pf := &packageFlags{}

	packageCmd := &cobra.Command{
		Use:   "package <entry>",
		Short: "Split a workload into ConfigMap delivery units",
		Long: `Build the closure of the entry script and place its files, in order,
into delivery units that each fit in one Kubernetes ConfigMap.

With --format yaml the units are rendered as immutable ConfigMaps,
followed by an immutable Secret holding the variables of the project's
env file (` + jobenv.DefaultFileName + ` by default) when it exists.

With --watch the workload is packaged again whenever a Python source, the
project file or the env file under the project root changes.`,
		Example: `  q8s package main.py
  q8s package --max-unit-bytes 500000 --max-units 4 main.py
  q8s package -f yaml -o workload.yaml --namespace jobs main.py
  q8s package --watch -o workload.yaml -f yaml main.py`,
		Args: cobra.ExactArgs(1),
	}
	packageCmd.RunE = runE(app, flags, firstArg, func(cmd *cobra.Command, args []string) error {
		f := outputFormat(pf.format) //goplint:ignore -- validated below
		if err := f.Validate(); err != nil {
			return err
		}
		emit := func(ctx context.Context) error {
			ws, err := app.openWorkspace(ctx, flags, &pf.workspaceFlags, args[0])
			if err != nil {
				return err
			}
			result, err := app.pack(ctx, ws, pf, cmd)
			if err != nil {
				return err
			}
			return app.writePackaged(f, pf.output, result)
		}
		if !pf.watch {
			return emit(cmd.Context())
		}
		return app.watchPackage(cmd.Context(), flags, pf, args[0], emit)
	})

	fs := packageCmd.Flags()
	fs.StringVar(&pf.root, "root", "", "project root (default: nearest directory with Q8Sproject or pyproject.toml)")
	fs.StringVar(&pf.name, "name", "", "workload name used in unit IDs (default: project name)")
	fs.StringVarP(&pf.format, "format", "f", string(formatText), "output format: text, json or yaml")
	fs.StringVarP(&pf.output, "output", "o", "", "write output to a file instead of stdout")
	fs.Int64Var(&pf.maxUnitBytes, "max-unit-bytes", 0, "maximum content bytes per unit (default from config)")
	fs.IntVar(&pf.maxUnits, "max-units", 0, "maximum number of units (default from config)")
	fs.BoolVar(&pf.dedupe, "dedupe", false, "share one data key between identical files of a unit")
	fs.StringVar(&pf.namespace, "namespace", "", "namespace of the rendered objects")
	fs.StringVar(&pf.mountPath, "mount-path", manifest.DefaultMountPath, "directory the workload is mounted at")
	fs.BoolVar(&pf.noEnv, "no-env", false, "do not render the env file Secret")
	fs.BoolVarP(&pf.watch, "watch", "w", false, "re-package whenever a project file changes")
	fs.DurationVar(&pf.debounce, "debounce", 0, "quiet period before re-packaging in watch mode (default 300ms)")

	return packageCmd
}

// writePackaged renders result in format f to path, or to stdout when
// path is empty.
func (a *App) writePackaged(f outputFormat, path string, result *packaged) error {
	out, closeOut, err := a.openOutput(path)
	if err != nil {
		return err
	}
	switch f {
	case formatText:
		err = printPackaged(out, result)
	case formatYAML:
		err = result.renderer.Render(out, result.workload, result.units, result.env)
	default:
		err = encodeStructured(out, f, newPackageReport(result))
	}
	return errors.Join(err, closeOut())
}

// watchPackage runs emit once and again after every change under the
// project root until ctx is cancelled. Failures of single runs are
// reported and do not end the watch.
func (a *App) watchPackage(ctx context.Context, flags *rootFlags, pf *packageFlags, entryArg string, emit func(context.Context) error) error {
	ws, err := a.openWorkspace(ctx, flags, &pf.workspaceFlags, entryArg)
	if err != nil {
		return err
	}

	report := func(err error) {
		if err == nil {
			return
		}
		renderFailure(a.stderr, classify(err, entryArg), a.colorScheme, flags.verbose)
	}

	w, err := watch.New(watch.Config{
		Root:     ws.root.String(),
		Debounce: pf.debounce,
		Logger:   a.Logger,
		OnChange: func(ctx context.Context, changed []string) error {
			a.Logger.Info("re-packaging", "changed", strings.Join(changed, ", "))
			report(emit(ctx))
			return nil
		},
	})
	if err != nil {
		return err
	}

	report(emit(ctx))
	a.Logger.Info("watching for changes", "root", ws.root)
	return w.Run(ctx)
}

// pack builds and packages ws. Flags that were set explicitly override the
// configured packaging limits.
func (a *App) pack(ctx context.Context, ws *workspace, pf *packageFlags, cmd *cobra.Command) (*packaged, error) {
	limits := ws.cfg.Packaging
	if cmd.Flags().Changed("max-unit-bytes") {
		limits.MaxUnitBytes = pf.maxUnitBytes
	}
	if cmd.Flags().Changed("max-units") {
		limits.MaxUnits = pf.maxUnits
	}
	if cmd.Flags().Changed("dedupe") {
		limits.DedupeContent = pf.dedupe
	}

	w, err := a.build(ctx, ws)
	if err != nil {
		return nil, err
	}

	opts := []bundle.Option{bundle.WithName(ws.name)}
	if limits.DedupeContent {
		opts = append(opts, bundle.WithContentDedup())
	}
	units, err := bundle.New(opts...).Package(w, limits.MaxUnitBytes, limits.MaxUnits)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug("packaged workload", "units", len(units), "max_unit_bytes", limits.MaxUnitBytes)

	var env *jobenv.Env
	if !pf.noEnv && ws.cfg.EnvFile != "" {
		if env, err = jobenv.Load(envFilePath(ws)); err != nil {
			return nil, err
		}
		if env != nil {
			a.Logger.Debug("loaded job environment", "path", env.Path, "vars", env.Len())
		}
	}

	return &packaged{
		workload: w,
		units:    units,
		env:      env,
		renderer: manifest.NewRenderer(
			manifest.WithName(ws.name),
			manifest.WithNamespace(pf.namespace),
			manifest.WithMountPath(pf.mountPath),
		),
	}, nil
}

// envFilePath resolves the configured env file against the project root.
func envFilePath(ws *workspace) types.FilesystemPath {
	p := types.FilesystemPath(ws.cfg.EnvFile) //goplint:ignore -- validated config value
	if filepath.IsAbs(ws.cfg.EnvFile) {
		return p
	}
	return fspath.Join(ws.root, p)
}

func newPackageReport(p *packaged) packageReport {
	vol, mount := p.renderer.Volume(p.units)
	report := packageReport{
		Entry:         p.workload.EntryScript(),
		Name:          p.renderer.Name(),
		AggregateHash: p.workload.AggregateHash().String(),
		ConfigMaps:    p.renderer.ConfigMaps(p.workload, p.units),
		Secret:        p.renderer.Secret(p.env),
		Volume:        vol,
		VolumeMount:   mount,
	}
	for _, u := range p.units {
		ur := unitReport{ID: u.ID, Index: u.Index, Size: u.Size, ContentHash: u.ContentHash.String()}
		for _, kp := range u.Items() {
			ur.Items = append(ur.Items, manifest.KeyToPath{Key: kp.Key, Path: kp.Path})
		}
		report.Units = append(report.Units, ur)
	}
	return report
}

func printPackaged(out io.Writer, p *packaged) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtitleStyle).
		Headers("UNIT", "FILES", "BYTES", "HASH").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	for _, u := range p.units {
		t.Row(u.ID, strconv.Itoa(len(u.Paths)), strconv.FormatInt(u.Size, 10), u.ContentHash.Short(12))
	}

	_, mount := p.renderer.Volume(p.units)
	fmt.Fprintln(out, TitleStyle.Render("Workload "+p.workload.EntryScript()))
	fmt.Fprintf(out, "%s: %s\n", KeyStyle.Render("Aggregate hash"), p.workload.AggregateHash())
	fmt.Fprintln(out, t.Render())
	fmt.Fprintf(out, "%s: %s\n", KeyStyle.Render("Units"), SuccessStyle.Render(strconv.Itoa(len(p.units))))
	fmt.Fprintf(out, "%s: %s\n", KeyStyle.Render("Mount"), mount.MountPath)
	if p.env == nil {
		fmt.Fprintf(out, "%s: %s\n", KeyStyle.Render("Env"), SubtitleStyle.Render("(none)"))
	} else {
		fmt.Fprintf(out, "%s: %s (%s)\n", KeyStyle.Render("Env"),
			SuccessStyle.Render(strings.Join(p.env.Keys(), ", ")), p.env.Path)
	}
	return nil
}
