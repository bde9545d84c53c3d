// SPDX-License-Identifier: MPL-2.0

package workload

import (
	"bytes"

	"github.com/qubernetes/q8s/pkg/types"
)

// SourceFile is one file of a closure. It is immutable once read.
type SourceFile struct {
	path    types.FilesystemPath
	relPath string
	content []byte
	hash    types.ContentHash
}

func newSourceFile(path types.FilesystemPath, relPath string, content []byte) *SourceFile {
	return &SourceFile{
		path:    path,
		relPath: relPath,
		content: content,
		hash:    types.HashBytes(content),
	}
}

// Path returns the canonical absolute path, the file's identity.
func (f *SourceFile) Path() types.FilesystemPath { return f.path }

// RelPath returns the path relative to the project root, using "/".
func (f *SourceFile) RelPath() string { return f.relPath }

// Content returns a copy of the file content.
func (f *SourceFile) Content() []byte { return bytes.Clone(f.content) }

// Hash returns the SHA-256 digest of the content.
func (f *SourceFile) Hash() types.ContentHash { return f.hash }

// Size returns the content length in bytes.
func (f *SourceFile) Size() int64 { return int64(len(f.content)) }

// Edge records that From imports To. Edges are kept for diagnostics and do
// not affect membership.
type Edge struct {
	From      types.FilesystemPath
	To        types.FilesystemPath
	Reference string
	Line      int
}
