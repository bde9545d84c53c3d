// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// startWatcher runs w in the background and returns a stop function that
// cancels it and reports the Run result.
func startWatcher(t *testing.T, w *Watcher) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	// Let the event loop start before the test writes files.
	time.Sleep(50 * time.Millisecond)

	return func() {
		cancel()
		if err := <-errCh; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestWatcher_Debounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	changes := make(chan []string, 10)
	w, err := New(Config{
		Root:     dir,
		Debounce: 150 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			changes <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stop := startWatcher(t, w)
	defer stop()

	for _, name := range []string{"a.py", "b.py", "c.py"} {
		writeFile(t, filepath.Join(dir, name), "x = 1\n")
	}

	select {
	case changed := <-changes:
		for _, name := range []string{"a.py", "b.py", "c.py"} {
			if !slices.Contains(changed, name) {
				t.Errorf("changed = %v, missing %s", changed, name)
			}
		}
		if !slices.IsSorted(changed) {
			t.Errorf("changed = %v, want sorted", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}

	select {
	case extra := <-changes:
		t.Errorf("unexpected second callback with %v", extra)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcher_DefaultPatterns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	changes := make(chan []string, 10)
	w, err := New(Config{
		Root:     dir,
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			changes <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stop := startWatcher(t, w)
	defer stop()

	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	time.Sleep(200 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "Q8Sproject"), "name: demo\n")

	select {
	case changed := <-changes:
		if slices.Contains(changed, "notes.txt") {
			t.Errorf("changed = %v, notes.txt should not match", changed)
		}
		if !slices.Contains(changed, "Q8Sproject") {
			t.Errorf("changed = %v, want Q8Sproject", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	changes := make(chan []string, 10)
	w, err := New(Config{
		Root:     dir,
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			changes <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stop := startWatcher(t, w)
	defer stop()

	pkg := filepath.Join(dir, "pkg")
	if err := os.Mkdir(pkg, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the loop time to register the directory.
	time.Sleep(150 * time.Millisecond)
	writeFile(t, filepath.Join(pkg, "util.py"), "")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case changed := <-changes:
			if slices.Contains(changed, "pkg/util.py") {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for pkg/util.py")
		}
	}
}

func TestWatcher_IgnorePatterns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cache := filepath.Join(dir, "__pycache__")
	if err := os.Mkdir(cache, 0o755); err != nil {
		t.Fatal(err)
	}

	changes := make(chan []string, 10)
	w, err := New(Config{
		Root:     dir,
		Ignore:   []string{"**/generated_*.py"},
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, changed []string) error {
			changes <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stop := startWatcher(t, w)
	defer stop()

	writeFile(t, filepath.Join(cache, "mod.py"), "")
	writeFile(t, filepath.Join(dir, "generated_api.py"), "")
	time.Sleep(200 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "main.py"), "")

	select {
	case changed := <-changes:
		if !slices.Equal(changed, []string{"main.py"}) {
			t.Errorf("changed = %v, want [main.py]", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func TestWatcher_SkipIfBusy(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var (
		active   atomic.Int32
		overlaps atomic.Int32
		calls    atomic.Int32
	)
	release := make(chan struct{})
	w, err := New(Config{
		Root:     dir,
		Debounce: 30 * time.Millisecond,
		OnChange: func(ctx context.Context, _ []string) error {
			if active.Add(1) > 1 {
				overlaps.Add(1)
			}
			defer active.Add(-1)
			if calls.Add(1) == 1 {
				select {
				case <-release:
				case <-ctx.Done():
				}
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stop := startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "a.py"), "")
	time.Sleep(150 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "b.py"), "")
	time.Sleep(150 * time.Millisecond)
	close(release)
	time.Sleep(300 * time.Millisecond)
	stop()

	if overlaps.Load() != 0 {
		t.Errorf("callback ran concurrently %d times", overlaps.Load())
	}
	if calls.Load() < 2 {
		t.Errorf("calls = %d, want the deferred change to run after release", calls.Load())
	}
}

func TestWatcher_HandlerErrorKeepsRunning(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var calls atomic.Int32
	w, err := New(Config{
		Root:     dir,
		Debounce: 30 * time.Millisecond,
		OnChange: func(context.Context, []string) error {
			calls.Add(1)
			return errors.New("boom")
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stop := startWatcher(t, w)

	writeFile(t, filepath.Join(dir, "a.py"), "")
	time.Sleep(200 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "b.py"), "")
	time.Sleep(200 * time.Millisecond)
	stop()

	if calls.Load() < 2 {
		t.Errorf("calls = %d, want at least 2", calls.Load())
	}
}

func TestWatcher_ContextCancel(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil on cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestWatcher_DoubleRun(t *testing.T) {
	t.Parallel()

	w, err := New(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	stop := startWatcher(t, w)
	defer stop()

	err = w.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "more than once") {
		t.Errorf("second Run() error = %v, want double-run error", err)
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		kind string
	}{
		{name: "watch", cfg: Config{Patterns: []string{"[invalid"}}, kind: "watch"},
		{name: "ignore", cfg: Config{Ignore: []string{"{unclosed"}}, kind: "ignore"},
		{name: "empty", cfg: Config{Patterns: []string{""}}, kind: "watch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.cfg.Root = t.TempDir()
			_, err := New(tt.cfg)
			if !errors.Is(err, ErrInvalidPattern) {
				t.Fatalf("New() error = %v, want ErrInvalidPattern", err)
			}
			var patErr *InvalidPatternError
			if !errors.As(err, &patErr) || patErr.Kind != tt.kind {
				t.Errorf("error = %#v, want kind %q", err, tt.kind)
			}
		})
	}
}

func TestDefaultIgnores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want bool
	}{
		{path: ".git/HEAD", want: true},
		{path: "pkg/__pycache__/util.cpython-312.pyc", want: true},
		{path: ".venv/lib/site.py", want: true},
		{path: "main.py.swp", want: true},
		{path: "main.py~", want: true},
		{path: "main.py", want: false},
		{path: "pkg/util.py", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := matchAny(DefaultIgnores(), tt.path); got != tt.want {
				t.Errorf("ignored(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}

	ignores := DefaultIgnores()
	ignores[0] = "mutated"
	if DefaultIgnores()[0] == "mutated" {
		t.Error("DefaultIgnores() must return a copy")
	}
}
