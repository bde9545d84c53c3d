// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when the source files of a project
// change.
//
// Events are filtered by doublestar glob patterns relative to the project
// root and coalesced over a debounce window, so the callback fires once with
// the full set of changed paths.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the quiet period used when Config.Debounce is not set.
// Editors that write a temp file and rename it produce several events.
const defaultDebounce = 300 * time.Millisecond

var (
	// ErrInvalidPattern is the sentinel error wrapped by InvalidPatternError.
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// DefaultPatterns select the files that can change a workload: Python
	// sources and the project, env and config files.
	DefaultPatterns = []string{"**/*.py", "**/Q8Sproject", "**/pyproject.toml", "**/.env.q8s", "**/config.cue"}

	// defaultIgnores are always excluded. They cover VCS metadata, Python
	// caches and virtual environments, and editor swap files.
	defaultIgnores = []string{
		"**/.git/**",
		"**/__pycache__/**",
		"**/.venv/**",
		"**/venv/**",
		"**/.mypy_cache/**",
		"**/*.swp",
		"**/*~",
		"**/.DS_Store",
	}
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Root is the directory to watch recursively. Empty means the
		// current working directory.
		Root string

		// Patterns select the files that trigger callbacks. Empty means
		// DefaultPatterns.
		Patterns []string

		// Ignore adds patterns to the built-in ignores.
		Ignore []string

		// Debounce is the quiet period after the last event before the
		// callback fires.
		Debounce time.Duration

		// OnChange receives the sorted changed paths, relative to Root with
		// forward slashes. Errors are logged and do not stop the watcher.
		OnChange func(ctx context.Context, changed []string) error

		// Logger receives diagnostics. Nil discards them.
		Logger *log.Logger
	}

	// InvalidPatternError reports a malformed watch or ignore glob.
	InvalidPatternError struct {
		Kind    string
		Pattern string
		Err     error
	}

	// Watcher monitors a project tree. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		patterns []string
		ignores  []string
		logger   *log.Logger
		debounce time.Duration
		root     string
		started  atomic.Bool
	}
)

// Error implements the error interface.
func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid %s pattern %q: %v", e.Kind, e.Pattern, e.Err)
}

// Unwrap returns ErrInvalidPattern and the cause.
func (e *InvalidPatternError) Unwrap() []error { return []error{ErrInvalidPattern, e.Err} }

// Validate checks every watch and ignore pattern.
func (c Config) Validate() error {
	var errs []error
	for _, pat := range c.Patterns {
		if !doublestar.ValidatePattern(pat) || pat == "" {
			errs = append(errs, &InvalidPatternError{Kind: "watch", Pattern: pat, Err: doublestar.ErrBadPattern})
		}
	}
	for _, pat := range c.Ignore {
		if !doublestar.ValidatePattern(pat) || pat == "" {
			errs = append(errs, &InvalidPatternError{Kind: "ignore", Pattern: pat, Err: doublestar.ErrBadPattern})
		}
	}
	return errors.Join(errs...)
}

// New creates a Watcher and registers every non-ignored directory under
// the root.
func New(cfg Config) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	root := cfg.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("watch: determine working directory: %w", err)
		}
		root = wd
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		patterns: slices.Clone(patterns),
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		logger:   logger,
		debounce: debounce,
		root:     absRoot,
	}
	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			logger.Warn("closing watcher after init failure", "err", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is cancelled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when the watcher breaks.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	// fire may run after ctx is cancelled since it is scheduled by
	// time.AfterFunc. A busy callback defers the pending set to a later
	// tick instead of running concurrently.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			w.logger.Debug("previous run still in progress, deferring")
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		w.logger.Debug("files changed", "paths", changed)
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("change handler failed", "err", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if closeErr := w.fsw.Close(); closeErr != nil {
			w.logger.Warn("closing fsnotify watcher", "err", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}

			rel := w.relative(evt.Name)
			if w.isIgnored(rel) {
				continue
			}
			// New directories extend the recursive watch before pattern
			// filtering, since a directory never matches a file pattern.
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}
			if !w.matches(rel) {
				continue
			}

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("fsnotify error", "err", err)
		}
	}
}

// relative returns path relative to the root with forward slashes.
func (w *Watcher) relative(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// addDirectories adds every non-ignored directory under the root. Pattern
// filtering happens per event.
func (w *Watcher) addDirectories() error {
	walkErr := filepath.WalkDir(w.root, func(path string, d os.DirEntry, walkDirErr error) error {
		if walkDirErr != nil {
			w.logger.Warn("skipping inaccessible path", "path", path, "err", walkDirErr)
			return nil //nolint:nilerr // inaccessible directories are not watched
		}
		if !d.IsDir() {
			return nil
		}
		rel := w.relative(path)
		if rel != "." && (w.isIgnored(rel) || w.isIgnored(rel+"/")) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk directory tree: %w", walkErr)
	}
	return nil
}

// maybeAddDir watches path if it is a new, non-ignored directory.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	rel := w.relative(path)
	if w.isIgnored(rel) || w.isIgnored(rel+"/") {
		return
	}
	if addErr := w.fsw.Add(path); addErr != nil {
		w.logger.Warn("watching new directory", "path", path, "err", addErr)
	}
}

func (w *Watcher) isIgnored(rel string) bool { return matchAny(w.ignores, rel) }

func (w *Watcher) matches(rel string) bool { return matchAny(w.patterns, rel) }

// matchAny reports whether rel matches one of patterns. Patterns were
// validated in New.
func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if doublestar.MatchUnvalidated(pat, rel) {
			return true
		}
	}
	return false
}

// DefaultIgnores returns a copy of the built-in ignore patterns.
func DefaultIgnores() []string { return slices.Clone(defaultIgnores) }
