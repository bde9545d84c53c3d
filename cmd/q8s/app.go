// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/qubernetes/q8s/internal/config"
	"github.com/qubernetes/q8s/pkg/pyimport"
)

// referenceCacheSize bounds the extracted-import cache shared by the
// commands of one process.
const referenceCacheSize = 512

type (
	// App wires CLI services and shared dependencies. Every Cobra command
	// handler receives the App and reads configuration through it.
	App struct {
		Config ConfigProvider
		Logger *log.Logger
		Cache  *pyimport.Cache
		stdout io.Writer
		stderr io.Writer
		// colorScheme selects the glamour style of rendered guidance.
		colorScheme config.ColorScheme
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration together with its source file.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Loaded, error)
	}

	fileConfigProvider struct{}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = fileConfigProvider{}
	}

	cache, err := pyimport.NewCache(referenceCacheSize)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:      deps.Config,
		Logger:      log.NewWithOptions(deps.Stderr, log.Options{Prefix: "q8s", Level: log.InfoLevel}),
		Cache:       cache,
		stdout:      deps.Stdout,
		stderr:      deps.Stderr,
		colorScheme: config.ColorSchemeAuto,
	}, nil
}

// Load reads configuration from files and Q8S_ environment variables.
func (fileConfigProvider) Load(ctx context.Context, opts config.LoadOptions) (*config.Loaded, error) {
	return config.LoadWithSource(ctx, opts)
}

// loadConfig loads configuration honoring the --config flag and raises the
// log level when verbose output is requested by flag or config.
func (a *App) loadConfig(ctx context.Context, flags *rootFlags) (*config.Config, string, error) {
	loaded, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: flags.configPath(),
	})
	if err != nil {
		return nil, "", err
	}
	if flags.verbose || loaded.Config.UI.Verbose {
		a.Logger.SetLevel(log.DebugLevel)
	}
	a.colorScheme = loaded.Config.UI.ColorScheme
	return loaded.Config, loaded.Path, nil
}
