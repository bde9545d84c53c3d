// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// DefaultMaxFileSize bounds CUE documents read from disk.
const DefaultMaxFileSize int64 = 1 << 20

// Unify compiles data, unifies it with the definition of schema and
// validates the result. Fields may stay non-concrete so optional schema
// fields can be omitted. Errors carry filename and the failing field path.
func Unify(schema string, data []byte, definition, filename string) (cue.Value, error) {
	if err := CheckFileSize(data, DefaultMaxFileSize, filename); err != nil {
		return cue.Value{}, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(schema)
	if schemaValue.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}
	root := schemaValue.LookupPath(cue.ParsePath(definition))
	if root.Err() != nil {
		return cue.Value{}, fmt.Errorf("internal error: schema definition %s not found: %w", definition, root.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return cue.Value{}, FormatError(userValue.Err(), filename)
	}

	unified := root.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cue.Value{}, FormatError(err, filename)
	}
	return unified, nil
}
