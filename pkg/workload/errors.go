// SPDX-License-Identifier: MPL-2.0

package workload

import (
	"errors"
	"fmt"

	"github.com/qubernetes/q8s/pkg/types"
)

var (
	// ErrBuild is the sentinel error wrapped by BuildError.
	ErrBuild = errors.New("workload build failed")
	// ErrUnresolvedImport is the sentinel error wrapped by UnresolvedImportError.
	ErrUnresolvedImport = errors.New("unresolved import")
	// ErrFileTooLarge is the sentinel error wrapped by FileTooLargeError.
	ErrFileTooLarge = errors.New("source file too large")
	// ErrEntryNotFound is returned when the entry file cannot be opened.
	ErrEntryNotFound = errors.New("entry file not found")
	// ErrEntryOutsideRoot is returned when the entry file is not under the
	// project root.
	ErrEntryOutsideRoot = errors.New("entry file outside project root")
)

type (
	// BuildError is the single error type returned by a failed build. Err
	// carries the cause: an UnresolvedImportError, a resolve.PathEscapeError,
	// a pyimport.ParseError, a FileTooLargeError, an I/O error, or the
	// context error.
	BuildError struct {
		Entry types.FilesystemPath
		Err   error
	}

	// UnresolvedImportError reports a local import that matches no file.
	UnresolvedImportError struct {
		// Importer is the canonical path of the importing file.
		Importer types.FilesystemPath
		// Reference is the import text as written.
		Reference string
		// Name is set when a from-import name of a namespace package did
		// not resolve as a submodule.
		Name string
		// Line is the 1-based line of the import statement.
		Line int
		// Err is the resolver error.
		Err error
	}

	// FileTooLargeError reports a source file above the configured read cap.
	FileTooLargeError struct {
		Path  types.FilesystemPath
		Limit int64
	}
)

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("building workload for %s: %v", e.Entry, e.Err)
}

// Unwrap returns ErrBuild and the cause, so errors.Is and errors.As match
// either.
func (e *BuildError) Unwrap() []error { return []error{ErrBuild, e.Err} }

// Error implements the error interface.
func (e *UnresolvedImportError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s:%d: cannot resolve %q in %q", e.Importer, e.Line, e.Name, e.Reference)
	}
	return fmt.Sprintf("%s:%d: cannot resolve %q", e.Importer, e.Line, e.Reference)
}

// Unwrap returns ErrUnresolvedImport and the resolver error.
func (e *UnresolvedImportError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnresolvedImport}
	}
	return []error{ErrUnresolvedImport, e.Err}
}

// Error implements the error interface.
func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("%s exceeds the %d byte read limit", e.Path, e.Limit)
}

// Unwrap returns ErrFileTooLarge for errors.Is() compatibility.
func (e *FileTooLargeError) Unwrap() error { return ErrFileTooLarge }
