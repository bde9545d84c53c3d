// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates CUE documents against embedded schemas and
// formats CUE errors with file and field context.
//
// # Usage
//
//	//go:embed config_schema.cue
//	var schema string
//
//	value, err := cueutil.Unify(schema, userFileBytes, "#Config", "config.cue")
//	if err != nil {
//	    return err // includes the field path, e.g. "config.cue: packaging.max_units: ..."
//	}
//	var m map[string]any
//	err = value.Decode(&m)
package cueutil
