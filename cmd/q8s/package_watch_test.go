// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/qubernetes/q8s/internal/config"
)

// readReport returns the package report in path, or false while the file
// is missing or partially written.
func readReport(path string) (packageReport, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return packageReport{}, false
	}
	var report packageReport
	if err := json.Unmarshal(data, &report); err != nil {
		return packageReport{}, false
	}
	return report, true
}

func TestPackageCommand_Watch(t *testing.T) {
	t.Parallel()

	root := sampleProject(t)
	outFile := filepath.Join(t.TempDir(), "units.json")

	var stdout, stderr bytes.Buffer
	app, err := NewApp(Dependencies{Config: staticConfig{cfg: config.DefaultConfig()}, Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	cmd := NewRootCommand(app)
	cmd.SetArgs([]string{"package", "--watch", "--debounce", "50ms", "-f", "json", "-o", outFile, filepath.Join(root, "main.py")})
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	waitFor := func(what string, ok func(packageReport) bool) packageReport {
		t.Helper()
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			if report, found := readReport(outFile); found && ok(report) {
				return report
			}
			time.Sleep(20 * time.Millisecond)
		}
		t.Fatalf("timed out waiting for %s", what)
		return packageReport{}
	}

	first := waitFor("initial package", func(packageReport) bool { return true })
	// Give the watcher time to register the tree after the initial run.
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(root, "app", "consts.py"), []byte("ANSWER = 43\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	second := waitFor("re-package", func(r packageReport) bool { return r.AggregateHash != first.AggregateHash })
	if second.Entry != "main.py" {
		t.Errorf("Entry = %q, want main.py", second.Entry)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Execute() error = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
