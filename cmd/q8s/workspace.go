// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/qubernetes/q8s/internal/config"
	"github.com/qubernetes/q8s/internal/project"
	"github.com/qubernetes/q8s/pkg/fspath"
	"github.com/qubernetes/q8s/pkg/resolve"
	"github.com/qubernetes/q8s/pkg/types"
	"github.com/qubernetes/q8s/pkg/workload"
)

type (
	// workspaceFlags are the flags of commands that build a workload.
	workspaceFlags struct {
		root string
		name string
	}

	// workspace is an entry script located within its project.
	workspace struct {
		cfg        *config.Config
		configPath string
		project    *project.Project
		entry      types.FilesystemPath
		root       types.FilesystemPath
		name       string
	}
)

// openWorkspace loads configuration and locates the project of entryArg.
// An explicit --root replaces the discovered project root.
func (a *App) openWorkspace(ctx context.Context, flags *rootFlags, wf *workspaceFlags, entryArg string) (*workspace, error) {
	cfg, cfgPath, err := a.loadConfig(ctx, flags)
	if err != nil {
		return nil, err
	}

	entry, err := fspath.Abs(types.FilesystemPath(entryArg)) //goplint:ignore -- CLI argument
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", workload.ErrEntryNotFound, entryArg, err)
	}

	proj, err := project.Find(entry)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", workload.ErrEntryNotFound, entry)
	}
	if err != nil {
		return nil, err
	}
	a.Logger.Debug("located project", "root", proj.Root, "name", proj.Name, "source", proj.Kind)

	ws := &workspace{
		cfg:        cfg,
		configPath: cfgPath,
		project:    proj,
		entry:      entry,
		root:       proj.Root,
		name:       proj.Name,
	}
	if wf.root != "" {
		if ws.root, err = fspath.Abs(types.FilesystemPath(wf.root)); err != nil { //goplint:ignore -- CLI flag
			return nil, fmt.Errorf("resolving --root %s: %w", wf.root, err)
		}
	}
	if cfg.Packaging.NamePrefix != "" {
		ws.name = cfg.Packaging.NamePrefix
	}
	if wf.name != "" {
		ws.name = wf.name
	}
	return ws, nil
}

// build computes the closure of the workspace entry.
func (a *App) build(ctx context.Context, ws *workspace) (*workload.Workload, error) {
	res := ws.cfg.Resolver
	w, err := workload.FromEntryFile(ctx, ws.entry, ws.root,
		workload.WithResolver(resolve.New(
			resolve.WithExtension(res.Extension),
			resolve.WithPackageEntry(res.PackageEntry),
		)),
		workload.WithCache(a.Cache),
		workload.WithLogger(a.Logger),
		workload.WithMaxFileBytes(res.MaxFileBytes),
	)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug("built workload", "files", w.Len(), "bytes", w.Size(), "hash", w.AggregateHash().Short(12), "cached", a.Cache.Len())
	return w, nil
}
