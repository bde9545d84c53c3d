// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/qubernetes/q8s/pkg/fspath"
	"github.com/qubernetes/q8s/pkg/pyimport"
	"github.com/qubernetes/q8s/pkg/types"
)

const (
	// DefaultExtension is the source file extension appended to candidates.
	DefaultExtension = ".py"
	// DefaultPackageEntry is the file that marks a directory as a package.
	DefaultPackageEntry = "__init__.py"
)

type (
	// Resolver resolves import references against the filesystem.
	// The zero value is not usable; create one with New.
	Resolver struct {
		extension    string
		packageEntry string
	}

	// Option configures a Resolver.
	Option func(*Resolver)
)

// WithExtension sets the source extension (default ".py").
func WithExtension(ext string) Option {
	return func(r *Resolver) { r.extension = ext }
}

// WithPackageEntry sets the package entry file name (default "__init__.py").
func WithPackageEntry(name string) Option {
	return func(r *Resolver) { r.packageEntry = name }
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{extension: DefaultExtension, packageEntry: DefaultPackageEntry}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Extension returns the configured source extension.
func (r *Resolver) Extension() string { return r.extension }

// PackageEntry returns the configured package entry file name.
func (r *Resolver) PackageEntry() string { return r.packageEntry }

// Resolve returns the canonical path of the module named by ref, imported
// from importer. root must be canonical. For "from . import x" the module
// is the importer's package itself, so only its package entry is tried.
func (r *Resolver) Resolve(importer types.FilesystemPath, ref pyimport.Reference, root types.FilesystemPath) (types.FilesystemPath, error) {
	literal, err := r.literal(importer, ref, root, ref.Segments())
	if err != nil {
		return "", err
	}
	if ref.Module == "" {
		return r.lookup(ref.Raw, fspath.JoinStr(literal, r.packageEntry), root, []types.FilesystemPath{fspath.JoinStr(literal, r.packageEntry)}, literal)
	}
	return r.resolveLiteral(ref.Raw, literal, root)
}

// ResolveMember returns the canonical path of the submodule name of the
// module named by ref ("from ref.Module import name").
func (r *Resolver) ResolveMember(importer types.FilesystemPath, ref pyimport.Reference, name string, root types.FilesystemPath) (types.FilesystemPath, error) {
	segments := append(ref.Segments(), name)
	literal, err := r.literal(importer, ref, root, segments)
	if err != nil {
		return "", err
	}
	return r.resolveLiteral(ref.Raw, literal, root)
}

// ResolvePackage returns the package entry of the package formed by the
// first n module segments of ref. Python executes these entries before the
// imported module itself.
func (r *Resolver) ResolvePackage(importer types.FilesystemPath, ref pyimport.Reference, n int, root types.FilesystemPath) (types.FilesystemPath, error) {
	segments := ref.Segments()
	if n <= 0 || n > len(segments) {
		return "", fmt.Errorf("no package prefix %d in %q", n, ref.Raw)
	}
	dir, err := r.literal(importer, ref, root, segments[:n])
	if err != nil {
		return "", err
	}
	entry := fspath.JoinStr(dir, r.packageEntry)
	return r.lookup(ref.Raw, entry, root, []types.FilesystemPath{entry}, dir)
}

// Owns reports whether the top-level name of an absolute reference exists
// under root as a source file, a package or a namespace directory holding
// at least one source file. References that are not owned belong to the
// standard library or installed packages, which Python ranks above
// namespace portions. Sibling and relative references are always owned.
func (r *Resolver) Owns(ref pyimport.Reference, root types.FilesystemPath) bool {
	if ref.Kind != pyimport.KindAbsolute {
		return true
	}
	segments := ref.Segments()
	if len(segments) == 0 {
		return false
	}
	if exists(fspath.JoinStr(root, segments[0]+r.extension)) {
		return true
	}
	top := fspath.JoinStr(root, segments[0])
	if !isDir(top) {
		return false
	}
	return exists(fspath.JoinStr(top, r.packageEntry)) || r.hasSource(top)
}

var errSourceFound = errors.New("source found")

// hasSource reports whether any file below dir carries the source extension.
func (r *Resolver) hasSource(dir types.FilesystemPath) bool {
	err := doublestar.GlobWalk(os.DirFS(dir.String()), "**/*"+r.extension, func(_ string, d fs.DirEntry) error {
		if d.Type().IsRegular() {
			return errSourceFound
		}
		return nil
	})
	return errors.Is(err, errSourceFound)
}

// literal computes the anchored, lexically checked path for segments.
func (r *Resolver) literal(importer types.FilesystemPath, ref pyimport.Reference, root types.FilesystemPath, segments []string) (types.FilesystemPath, error) {
	var anchor types.FilesystemPath
	switch ref.Kind {
	case pyimport.KindAbsolute:
		anchor = root
	default:
		anchor = fspath.Dir(importer)
		for i := 1; i < ref.Level; i++ {
			anchor = fspath.Dir(anchor)
		}
	}

	if !fspath.Within(root, anchor) {
		return "", &PathEscapeError{Reference: ref.Raw, Target: anchor, Root: root}
	}
	literal := fspath.JoinStr(anchor, segments...)
	if !fspath.Within(root, literal) {
		return "", &PathEscapeError{Reference: ref.Raw, Target: literal, Root: root}
	}
	return literal, nil
}

// resolveLiteral tries the three candidate forms of literal in order.
func (r *Resolver) resolveLiteral(raw string, literal, root types.FilesystemPath) (types.FilesystemPath, error) {
	candidates := []types.FilesystemPath{
		literal,
		types.FilesystemPath(literal.String() + r.extension), //goplint:ignore -- derived from typed literal
		fspath.JoinStr(literal, r.packageEntry),
	}
	var lastErr error
	for _, c := range candidates {
		p, err := r.lookup(raw, c, root, candidates, literal)
		if err == nil {
			return p, nil
		}
		if errors.Is(err, ErrPathEscape) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

// lookup returns the canonical form of candidate if it is a regular file
// inside root. dir is the literal directory reported by NotFoundError.
func (r *Resolver) lookup(raw string, candidate, root types.FilesystemPath, tried []types.FilesystemPath, dir types.FilesystemPath) (types.FilesystemPath, error) {
	info, err := os.Stat(candidate.String())
	if err != nil || !info.Mode().IsRegular() {
		return "", &NotFoundError{Reference: raw, Candidates: tried, Directory: isDir(dir)}
	}
	canonical, err := fspath.Canonical(candidate)
	if err != nil {
		return "", &NotFoundError{Reference: raw, Candidates: tried, Directory: isDir(dir)}
	}
	if !fspath.Within(root, canonical) {
		return "", &PathEscapeError{Reference: raw, Target: canonical, Root: root}
	}
	return canonical, nil
}

func exists(p types.FilesystemPath) bool {
	_, err := os.Stat(p.String())
	return err == nil
}

func isDir(p types.FilesystemPath) bool {
	info, err := os.Stat(p.String())
	return err == nil && info.IsDir()
}
