// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"
)

const testSchema = `
#Doc: close({
	name?:  string & !=""
	count?: int & >0
})
`

func TestUnify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "empty document", data: ""},
		{name: "all fields", data: `name: "demo"` + "\ncount: 3\n"},
		{name: "out of bound", data: "count: 0\n", wantErr: "count"},
		{name: "unknown field", data: "extra: 1\n", wantErr: "extra"},
		{name: "syntax error", data: "name: \"open\n", wantErr: "doc.cue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := Unify(testSchema, []byte(tt.data), "#Doc", "doc.cue")
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Unify() error = %v", err)
				}
				var m map[string]any
				if err := v.Decode(&m); err != nil {
					t.Errorf("Decode() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Unify() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestUnify_MissingDefinition(t *testing.T) {
	t.Parallel()

	if _, err := Unify(testSchema, nil, "#Nope", "doc.cue"); err == nil {
		t.Error("Unify() with unknown definition returned nil error")
	}
}

func TestUnify_TooLarge(t *testing.T) {
	t.Parallel()

	data := []byte(strings.Repeat(" ", int(DefaultMaxFileSize)+1))
	if _, err := Unify(testSchema, data, "#Doc", "doc.cue"); err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("Unify() error = %v, want size error", err)
	}
}
