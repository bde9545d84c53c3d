// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/qubernetes/q8s/internal/config"
)

// newConfigCommand creates the `q8s config` command tree.
func newConfigCommand(app *App, flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage q8s configuration",
		Long: `Manage q8s configuration.

Configuration is read from config.cue in the q8s config directory, then from
./config.cue, unless --config names a file. Every value can be overridden
with a Q8S_ environment variable, e.g. Q8S_PACKAGING_MAX_UNITS=4.

The config directory is:
  - Linux: ~/.config/q8s
  - macOS: ~/Library/Application Support/q8s
  - Windows: %AppData%\q8s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: runE(app, flags, nil, func(cmd *cobra.Command, _ []string) error {
			return app.showConfig(cmd.Context(), flags)
		}),
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: runE(app, flags, nil, func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		}),
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		RunE: runE(app, flags, nil, func(_ *cobra.Command, _ []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return fmt.Errorf("failed to create config: %w", err)
			}
			fmt.Fprintf(app.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		}),
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		RunE: runE(app, flags, nil, func(_ *cobra.Command, _ []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
			fmt.Fprintf(app.stdout, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		}),
	})

	return cfgCmd
}

func (a *App) showConfig(ctx context.Context, flags *rootFlags) error {
	cfg, path, err := a.loadConfig(ctx, flags)
	if err != nil {
		return err
	}

	keyStyle := KeyStyle
	valueStyle := SuccessStyle
	out := a.stdout

	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)
	if path != "" {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("packaging"))
	fmt.Fprintf(out, "  max_unit_bytes: %s\n", valueStyle.Render(strconv.FormatInt(cfg.Packaging.MaxUnitBytes, 10)))
	fmt.Fprintf(out, "  max_units: %s\n", valueStyle.Render(strconv.Itoa(cfg.Packaging.MaxUnits)))
	fmt.Fprintf(out, "  dedupe_content: %s\n", valueStyle.Render(strconv.FormatBool(cfg.Packaging.DedupeContent)))
	if cfg.Packaging.NamePrefix != "" {
		fmt.Fprintf(out, "  name_prefix: %s\n", valueStyle.Render(cfg.Packaging.NamePrefix))
	} else {
		fmt.Fprintf(out, "  name_prefix: %s\n", SubtitleStyle.Render("(project name)"))
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("resolver"))
	fmt.Fprintf(out, "  extension: %s\n", valueStyle.Render(cfg.Resolver.Extension))
	fmt.Fprintf(out, "  package_entry: %s\n", valueStyle.Render(cfg.Resolver.PackageEntry))
	fmt.Fprintf(out, "  max_file_bytes: %s\n", valueStyle.Render(strconv.FormatInt(cfg.Resolver.MaxFileBytes, 10)))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("env_file"), valueStyle.Render(cfg.EnvFile))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(out, "  color_scheme: %s\n", valueStyle.Render(cfg.UI.ColorScheme.String()))
	fmt.Fprintf(out, "  verbose: %s\n", valueStyle.Render(strconv.FormatBool(cfg.UI.Verbose)))

	return nil
}
