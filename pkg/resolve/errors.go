// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/qubernetes/q8s/pkg/types"
)

var (
	// ErrNotFound is the sentinel error wrapped by NotFoundError.
	ErrNotFound = errors.New("import target not found")
	// ErrPathEscape is the sentinel error wrapped by PathEscapeError.
	ErrPathEscape = errors.New("import escapes project root")
)

type (
	// NotFoundError reports that no candidate for a reference exists on disk.
	NotFoundError struct {
		// Reference is the import text being resolved.
		Reference string
		// Candidates lists every path tried, in order.
		Candidates []types.FilesystemPath
		// Directory is true when the literal path is an existing directory
		// without a package entry (a namespace package).
		Directory bool
	}

	// PathEscapeError reports a reference whose target lies outside the
	// project root, either lexically or after resolving symlinks.
	PathEscapeError struct {
		Reference string
		Target    types.FilesystemPath
		Root      types.FilesystemPath
	}
)

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	cands := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		cands[i] = c.String()
	}
	return fmt.Sprintf("%q not found (tried %s)", e.Reference, strings.Join(cands, ", "))
}

// Unwrap returns ErrNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Error implements the error interface.
func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("%q resolves to %s, outside project root %s", e.Reference, e.Target, e.Root)
}

// Unwrap returns ErrPathEscape for errors.Is() compatibility.
func (e *PathEscapeError) Unwrap() error { return ErrPathEscape }
