// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

// ErrInvalidOutputFormat is returned for an unknown --format value.
var ErrInvalidOutputFormat = errors.New("invalid output format")

type (
	// outputFormat selects how a command prints its result.
	outputFormat string

	// InvalidOutputFormatError reports an unknown --format value.
	InvalidOutputFormatError struct {
		Value outputFormat
	}
)

// Error implements the error interface.
func (e *InvalidOutputFormatError) Error() string {
	return fmt.Sprintf("invalid output format %q (expected text, json or yaml)", e.Value)
}

// Unwrap returns ErrInvalidOutputFormat for errors.Is() compatibility.
func (e *InvalidOutputFormatError) Unwrap() error { return ErrInvalidOutputFormat }

// Validate returns an error if the format is not text, json or yaml.
func (f outputFormat) Validate() error {
	switch f {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return &InvalidOutputFormatError{Value: f}
	}
}

// encodeStructured writes v as indented JSON or as YAML.
func encodeStructured(w io.Writer, format outputFormat, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return &InvalidOutputFormatError{Value: format}
	}
}

// openOutput returns stdout, or the file named by path. The returned close
// function must be called once writing is done.
func (a *App) openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return a.stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}
