// SPDX-License-Identifier: MPL-2.0

package pyimport

import (
	"errors"
	"fmt"
)

// ErrParse is the sentinel error wrapped by ParseError.
var ErrParse = errors.New("parse error")

// ParseError reports source text that cannot be scanned for imports.
// Path is empty when the scanner was given bare source text; callers that
// know the file fill it in before surfacing the error.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Msg    string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

// Unwrap returns ErrParse for errors.Is() compatibility.
func (e *ParseError) Unwrap() error { return ErrParse }
