// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/qubernetes/q8s/internal/testutil"
	"github.com/qubernetes/q8s/pkg/types"
)

// These tests change process-wide state (HOME, XDG_CONFIG_HOME, the working
// directory) and therefore do not run in parallel.

func TestLoad_UserConfigDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("os.UserConfigDir reads AppData on Windows")
	}

	home := t.TempDir()
	t.Cleanup(testutil.SetHomeDir(t, home))
	t.Cleanup(testutil.MustUnsetenv(t, "XDG_CONFIG_HOME"))
	t.Cleanup(Reset)
	Reset()

	base, err := os.UserConfigDir()
	if err != nil {
		t.Fatalf("UserConfigDir() error = %v", err)
	}
	dir := filepath.Join(base, AppName)
	testutil.MustMkdirAll(t, dir, 0o755)
	path := writeConfig(t, dir, "packaging: max_units: 3\n")

	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("ConfigDir() = %q, want %q", got, dir)
	}

	loaded, err := LoadWithSource(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("LoadWithSource() error = %v", err)
	}
	if loaded.Path != path {
		t.Errorf("Path = %q, want %q", loaded.Path, path)
	}
	if loaded.Config.Packaging.MaxUnits != 3 {
		t.Errorf("MaxUnits = %d, want 3", loaded.Config.Packaging.MaxUnits)
	}
}

func TestLoad_WorkingDirectoryFallback(t *testing.T) {
	work := t.TempDir()
	writeConfig(t, work, "env_file: \".env.prod\"\n")
	t.Cleanup(testutil.MustChdir(t, work))

	loaded, err := LoadWithSource(context.Background(), LoadOptions{ConfigDirPath: types.FilesystemPath(t.TempDir())})
	if err != nil {
		t.Fatalf("LoadWithSource() error = %v", err)
	}
	if loaded.Path != ConfigFileName+"."+ConfigFileExt {
		t.Errorf("Path = %q, want the working directory file", loaded.Path)
	}
	if loaded.Config.EnvFile != ".env.prod" {
		t.Errorf("EnvFile = %q, want .env.prod", loaded.Config.EnvFile)
	}
}

func TestSetConfigDirOverride(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("ConfigDir() = %q, want %q", got, dir)
	}
}
