// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/qubernetes/q8s/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlags holds the persistent flags shared by every command.
type rootFlags struct {
	verbose    bool
	configFile string
}

func (f *rootFlags) configPath() types.FilesystemPath {
	return types.FilesystemPath(f.configFile) //goplint:ignore -- validated by config.LoadOptions
}

// NewRootCommand builds the q8s command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "q8s",
		Short: "Bundle Python workloads for Kubernetes jobs",
		Long: TitleStyle.Render("q8s") + SubtitleStyle.Render(" - Bundle Python workloads for Kubernetes jobs") + `

q8s follows the local imports of an entry script, collects every project
file the script needs, and splits them into immutable ConfigMaps that a
Kubernetes Job mounts as its working directory.

` + SubtitleStyle.Render("Examples:") + `
  q8s closure main.py              List the files main.py depends on
  q8s package main.py              Summarize the delivery units
  q8s package main.py -f yaml      Render ConfigMaps and the env Secret
  q8s config show                  Show the effective configuration`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/q8s/config.cue)")

	rootCmd.AddCommand(newClosureCommand(app, flags))
	rootCmd.AddCommand(newPackageCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// Execute runs the q8s CLI and exits the process on failure. It is called
// by main.main.
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}

	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
