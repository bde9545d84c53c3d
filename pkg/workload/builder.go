// SPDX-License-Identifier: MPL-2.0

package workload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/qubernetes/q8s/pkg/fspath"
	"github.com/qubernetes/q8s/pkg/pyimport"
	"github.com/qubernetes/q8s/pkg/resolve"
	"github.com/qubernetes/q8s/pkg/types"

	"github.com/charmbracelet/log"
)

// DefaultMaxFileBytes caps the size of a single source file read.
const DefaultMaxFileBytes int64 = 8 << 20

type (
	// Builder computes dependency closures. A Builder holds no per-build
	// state and may be reused.
	Builder struct {
		resolver     *resolve.Resolver
		cache        *pyimport.Cache
		logger       *log.Logger
		maxFileBytes int64
	}

	// Option configures a Builder.
	Option func(*Builder)

	// traversal is the state of one Build call.
	traversal struct {
		b     *Builder
		root  types.FilesystemPath
		queue []types.FilesystemPath
		seen  map[types.FilesystemPath]bool
		files []*SourceFile
		edges []Edge
	}
)

// WithResolver sets the resolver used for import lookup.
func WithResolver(r *resolve.Resolver) Option {
	return func(b *Builder) { b.resolver = r }
}

// WithCache shares an extraction cache between builds.
func WithCache(c *pyimport.Cache) Option {
	return func(b *Builder) { b.cache = c }
}

// WithLogger sets the logger for traversal diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithMaxFileBytes caps the size of each source file read. Non-positive
// values keep the default.
func WithMaxFileBytes(n int64) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxFileBytes = n
		}
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		resolver:     resolve.New(),
		logger:       log.New(io.Discard),
		maxFileBytes: DefaultMaxFileBytes,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build computes the closure of entry under root. Any failure, including
// cancellation of ctx, returns a *BuildError and no Workload.
func (b *Builder) Build(ctx context.Context, entry, root types.FilesystemPath) (*Workload, error) {
	w, err := b.build(ctx, entry, root)
	if err != nil {
		return nil, &BuildError{Entry: entry, Err: err}
	}
	return w, nil
}

func (b *Builder) build(ctx context.Context, entry, root types.FilesystemPath) (*Workload, error) {
	canonicalRoot, err := fspath.Canonical(root)
	if err != nil {
		return nil, fmt.Errorf("project root %s: %w", root, err)
	}
	if info, statErr := os.Stat(canonicalRoot.String()); statErr != nil || !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}
	canonicalEntry, err := fspath.Canonical(entry)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEntryNotFound, entry, err)
	}
	if !fspath.Within(canonicalRoot, canonicalEntry) {
		return nil, fmt.Errorf("%w: %s is not under %s", ErrEntryOutsideRoot, canonicalEntry, canonicalRoot)
	}

	t := &traversal{
		b:     b,
		root:  canonicalRoot,
		queue: []types.FilesystemPath{canonicalEntry},
		seen:  map[types.FilesystemPath]bool{canonicalEntry: true},
	}
	for len(t.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current := t.queue[0]
		t.queue = t.queue[1:]
		if err := t.visit(current); err != nil {
			return nil, err
		}
	}

	entryFile := t.files[0]
	b.logger.Debug("closure complete", "entry", entryFile.relPath, "files", len(t.files), "edges", len(t.edges))
	return newWorkload(canonicalRoot, entryFile, t.files, t.edges)
}

// visit reads path, scans it and enqueues every local module it imports.
func (t *traversal) visit(path types.FilesystemPath) error {
	file, err := t.b.read(path, t.root)
	if err != nil {
		return err
	}
	t.files = append(t.files, file)
	t.b.logger.Debug("visiting", "file", file.relPath, "bytes", file.Size())

	for ref, err := range t.b.references(file) {
		if err != nil {
			var pe *pyimport.ParseError
			if errors.As(err, &pe) {
				pe.Path = path.String()
			}
			return err
		}
		targets, err := t.b.targets(path, ref, t.root)
		if err != nil {
			return err
		}
		for _, target := range targets {
			t.edges = append(t.edges, Edge{From: path, To: target, Reference: ref.Raw, Line: ref.Line})
			if !t.seen[target] {
				t.seen[target] = true
				t.queue = append(t.queue, target)
			}
		}
	}
	return nil
}

// read loads one file, refusing files above the configured cap.
func (b *Builder) read(path, root types.FilesystemPath) (*SourceFile, error) {
	f, err := os.Open(path.String())
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	if info, statErr := f.Stat(); statErr == nil && info.Size() > b.maxFileBytes {
		return nil, &FileTooLargeError{Path: path, Limit: b.maxFileBytes}
	}
	content, err := io.ReadAll(io.LimitReader(f, b.maxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if int64(len(content)) > b.maxFileBytes {
		return nil, &FileTooLargeError{Path: path, Limit: b.maxFileBytes}
	}

	rel, err := fspath.SlashRel(root, path)
	if err != nil {
		return nil, err
	}
	return newSourceFile(path, rel, content), nil
}

// references scans file, through the cache when one is configured.
func (b *Builder) references(file *SourceFile) iter.Seq2[pyimport.Reference, error] {
	if b.cache == nil {
		return pyimport.Extract(file.content)
	}
	return func(yield func(pyimport.Reference, error) bool) {
		refs, err := b.cache.Extract(file.hash, file.content)
		if err != nil {
			yield(pyimport.Reference{}, err)
			return
		}
		for _, ref := range refs {
			if !yield(ref, nil) {
				return
			}
		}
	}
}

// targets returns the files a reference pulls into the closure, in the
// order Python would execute them: enclosing packages first, then the
// module, then imported submodules.
func (b *Builder) targets(importer types.FilesystemPath, ref pyimport.Reference, root types.FilesystemPath) ([]types.FilesystemPath, error) {
	if !b.resolver.Owns(ref, root) {
		b.logger.Debug("skipping external import", "import", ref.Raw)
		return nil, nil
	}

	var out []types.FilesystemPath
	segments := ref.Segments()
	for n := 1; n < len(segments); n++ {
		pkg, err := b.resolver.ResolvePackage(importer, ref, n, root)
		switch {
		case err == nil:
			out = append(out, pkg)
		case errors.Is(err, resolve.ErrNotFound):
			// Namespace package; nothing executes.
		default:
			return nil, err
		}
	}

	module, err := b.resolver.Resolve(importer, ref, root)
	moduleFound := err == nil
	var nf *resolve.NotFoundError
	switch {
	case moduleFound:
		out = append(out, module)
	case errors.As(err, &nf) && nf.Directory:
		// Namespace package: only its submodules can satisfy the import.
	case errors.Is(err, resolve.ErrNotFound):
		return nil, &UnresolvedImportError{Importer: importer, Reference: ref.Raw, Line: ref.Line, Err: err}
	default:
		return nil, err
	}

	for _, name := range ref.Names {
		if name == "*" {
			continue
		}
		member, err := b.resolver.ResolveMember(importer, ref, name, root)
		switch {
		case err == nil:
			out = append(out, member)
		case errors.Is(err, resolve.ErrNotFound):
			if !moduleFound {
				return nil, &UnresolvedImportError{Importer: importer, Reference: ref.Raw, Name: name, Line: ref.Line, Err: err}
			}
			// An attribute of the module.
		default:
			return nil, err
		}
	}
	return out, nil
}
