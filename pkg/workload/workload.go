// SPDX-License-Identifier: MPL-2.0

package workload

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/qubernetes/q8s/pkg/fspath"
	"github.com/qubernetes/q8s/pkg/types"
)

// Workload is the deduplicated closure of an entry file. Files are ordered
// by canonical path and the entry is always a member.
type Workload struct {
	root  types.FilesystemPath
	entry *SourceFile
	files []*SourceFile
	edges []Edge
	hash  types.ContentHash
}

// FromEntryFile builds the closure of entry under root with a new Builder.
func FromEntryFile(ctx context.Context, entry, root types.FilesystemPath, opts ...Option) (*Workload, error) {
	return NewBuilder(opts...).Build(ctx, entry, root)
}

// FromCode returns a single-file workload for inline source code. name is
// the entry script name, relative to the current working directory which
// becomes the workload root. The code is not scanned for imports.
func FromCode(name, code string) (*Workload, error) {
	if name == "" || filepath.IsAbs(name) {
		return nil, fmt.Errorf("inline workload name %q must be a relative file name", name)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}
	root := fspath.Clean(types.FilesystemPath(wd)) //goplint:ignore -- OS-provided working directory
	path := fspath.JoinStr(root, filepath.FromSlash(name))
	if path == root || !fspath.Within(root, path) {
		return nil, fmt.Errorf("inline workload name %q must stay inside the working directory", name)
	}
	relPath, err := fspath.SlashRel(root, path)
	if err != nil {
		return nil, err
	}
	file := newSourceFile(path, relPath, []byte(code))
	return newWorkload(root, file, []*SourceFile{file}, nil)
}

func newWorkload(root types.FilesystemPath, entry *SourceFile, files []*SourceFile, edges []Edge) (*Workload, error) {
	slices.SortFunc(files, func(a, b *SourceFile) int { return cmp.Compare(a.path, b.path) })
	if _, found := slices.BinarySearchFunc(files, entry.path, func(f *SourceFile, p types.FilesystemPath) int {
		return cmp.Compare(f.path, p)
	}); !found {
		return nil, fmt.Errorf("entry %s is not a member of its own closure", entry.path)
	}

	h := sha256.New()
	for _, f := range files {
		h.Write([]byte(f.relPath))
		h.Write([]byte{0})
		h.Write([]byte(f.hash))
		h.Write([]byte{'\n'})
	}
	return &Workload{
		root:  root,
		entry: entry,
		files: files,
		edges: edges,
		hash:  types.ContentHash(hex.EncodeToString(h.Sum(nil))), //goplint:ignore -- derived from sha256 digest
	}, nil
}

// Root returns the canonical project root.
func (w *Workload) Root() types.FilesystemPath { return w.root }

// Entry returns the entry file.
func (w *Workload) Entry() *SourceFile { return w.entry }

// EntryScript returns the entry file's path relative to the root.
func (w *Workload) EntryScript() string { return w.entry.relPath }

// Files returns the closure ordered by canonical path.
func (w *Workload) Files() []*SourceFile { return slices.Clone(w.files) }

// Len returns the number of files in the closure.
func (w *Workload) Len() int { return len(w.files) }

// Size returns the total content size of the closure in bytes.
func (w *Workload) Size() int64 {
	var n int64
	for _, f := range w.files {
		n += f.Size()
	}
	return n
}

// Edges returns the import edges discovered while building, in discovery
// order. Files reached through several imports have several edges.
func (w *Workload) Edges() []Edge { return slices.Clone(w.edges) }

// AggregateHash is the SHA-256 digest of every file's relative path and
// content hash, in Files order. Two workloads with the same relative layout
// and contents have the same aggregate hash.
func (w *Workload) AggregateHash() types.ContentHash { return w.hash }

// Mappings returns the data key of every file mapped to its relative path.
func (w *Workload) Mappings() map[string]string {
	m := make(map[string]string, len(w.files))
	for _, f := range w.files {
		m[DataKey(f.relPath)] = f.relPath
	}
	return m
}

// Data returns the content of every file keyed by its data key.
func (w *Workload) Data() map[string]string {
	m := make(map[string]string, len(w.files))
	for _, f := range w.files {
		m[DataKey(f.relPath)] = string(f.content)
	}
	return m
}

// DataKey converts a slash-separated relative path into a key that is valid
// as a ConfigMap data key, which may not contain "/".
func DataKey(relPath string) string {
	return strings.ReplaceAll(relPath, "/", "__")
}
