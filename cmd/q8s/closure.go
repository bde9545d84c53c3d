// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/qubernetes/q8s/internal/dag"
	"github.com/qubernetes/q8s/pkg/fspath"
	"github.com/qubernetes/q8s/pkg/types"
	"github.com/qubernetes/q8s/pkg/workload"
)

type (
	closureReport struct {
		Entry         string       `json:"entry" yaml:"entry"`
		Root          string       `json:"root" yaml:"root"`
		Project       string       `json:"project" yaml:"project"`
		AggregateHash string       `json:"aggregate_hash" yaml:"aggregate_hash"`
		Size          int64        `json:"size" yaml:"size"`
		Files         []fileReport `json:"files" yaml:"files"`
		Edges         []edgeReport `json:"edges,omitempty" yaml:"edges,omitempty"`
		LoadOrder     []string     `json:"load_order,omitempty" yaml:"load_order,omitempty"`
		Cycle         []string     `json:"cycle,omitempty" yaml:"cycle,omitempty"`
	}

	fileReport struct {
		Path string `json:"path" yaml:"path"`
		Size int64  `json:"size" yaml:"size"`
		Hash string `json:"hash" yaml:"hash"`
	}

	edgeReport struct {
		From   string `json:"from" yaml:"from"`
		To     string `json:"to" yaml:"to"`
		Import string `json:"import" yaml:"import"`
		Line   int    `json:"line" yaml:"line"`
	}
)

func newClosureCommand(app *App, flags *rootFlags) *cobra.Command {
	wf := &workspaceFlags{}
	var (
		format string
		edges  bool
	)

	closureCmd := &cobra.Command{
		Use:   "closure <entry>",
		Short: "List the local files an entry script depends on",
		Long: `List every project file reachable from the entry script through static
imports, in canonical order, with its size and content hash.

Imports of packages that do not exist under the project root are treated
as third-party dependencies and skipped.`,
		Args: cobra.ExactArgs(1),
	}
	closureCmd.RunE = runE(app, flags, firstArg, func(cmd *cobra.Command, args []string) error {
		f := outputFormat(format) //goplint:ignore -- validated below
		if err := f.Validate(); err != nil {
			return err
		}
		ws, err := app.openWorkspace(cmd.Context(), flags, wf, args[0])
		if err != nil {
			return err
		}
		w, err := app.build(cmd.Context(), ws)
		if err != nil {
			return err
		}
		report, err := newClosureReport(ws, w, edges)
		if err != nil {
			return err
		}
		if f == formatText {
			return printClosure(app.stdout, report)
		}
		return encodeStructured(app.stdout, f, report)
	})

	closureCmd.Flags().StringVar(&wf.root, "root", "", "project root (default: nearest directory with Q8Sproject or pyproject.toml)")
	closureCmd.Flags().StringVarP(&format, "format", "f", string(formatText), "output format: text, json or yaml")
	closureCmd.Flags().BoolVar(&edges, "edges", false, "include the import edges")

	return closureCmd
}

// newClosureReport summarizes w. With edges it also lists the imports and
// either a load order or the files caught in an import cycle.
func newClosureReport(ws *workspace, w *workload.Workload, withEdges bool) (closureReport, error) {
	report := closureReport{
		Entry:         w.EntryScript(),
		Root:          w.Root().String(),
		Project:       ws.name,
		AggregateHash: w.AggregateHash().String(),
		Size:          w.Size(),
	}
	for _, f := range w.Files() {
		report.Files = append(report.Files, fileReport{Path: f.RelPath(), Size: f.Size(), Hash: f.Hash().String()})
	}
	if withEdges {
		for _, e := range w.Edges() {
			report.Edges = append(report.Edges, edgeReport{
				From:   relOrAbs(w, e.From),
				To:     relOrAbs(w, e.To),
				Import: e.Reference,
				Line:   e.Line,
			})
		}
		g, err := dag.ImportGraph(w)
		if err != nil {
			return report, err
		}
		order, err := g.TopologicalSort()
		var cycleErr *dag.CycleError
		switch {
		case errors.As(err, &cycleErr):
			report.Cycle = cycleErr.Cycle
		case err != nil:
			return report, err
		default:
			report.LoadOrder = order
		}
	}
	return report, nil
}

// relOrAbs returns p relative to the workload root when possible.
func relOrAbs(w *workload.Workload, p types.FilesystemPath) string {
	rel, err := fspath.SlashRel(w.Root(), p)
	if err != nil {
		return p.String()
	}
	return rel
}

func printClosure(out io.Writer, r closureReport) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtitleStyle).
		Headers("PATH", "SIZE", "HASH").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	for _, f := range r.Files {
		t.Row(f.Path, strconv.FormatInt(f.Size, 10), f.Hash[:12])
	}

	fmt.Fprintln(out, TitleStyle.Render("Closure of "+r.Entry))
	fmt.Fprintf(out, "%s: %s\n", KeyStyle.Render("Root"), r.Root)
	fmt.Fprintf(out, "%s: %s\n", KeyStyle.Render("Project"), r.Project)
	fmt.Fprintln(out, t.Render())
	fmt.Fprintf(out, "%s: %s\n", KeyStyle.Render("Files"), SuccessStyle.Render(strconv.Itoa(len(r.Files))))
	fmt.Fprintf(out, "%s: %s\n", KeyStyle.Render("Bytes"), SuccessStyle.Render(strconv.FormatInt(r.Size, 10)))
	fmt.Fprintf(out, "%s: %s\n", KeyStyle.Render("Aggregate hash"), SuccessStyle.Render(r.AggregateHash))

	if len(r.Edges) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, SubtitleStyle.Render("Imports:"))
		for _, e := range r.Edges {
			fmt.Fprintf(out, "  %s:%d %s %s (%s)\n", e.From, e.Line, SubtitleStyle.Render("->"), KeyStyle.Render(e.To), e.Import)
		}
	}
	if len(r.Cycle) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, WarningStyle.Render("Import cycle among: "+strings.Join(r.Cycle, ", ")))
	}
	return nil
}
