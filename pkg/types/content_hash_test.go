// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"strings"
	"testing"
)

func TestHashBytes(t *testing.T) {
	t.Parallel()

	// sha256("") is a well-known constant.
	const emptyDigest = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := HashBytes(nil); got != emptyDigest {
		t.Errorf("HashBytes(nil) = %q, want %q", got, emptyDigest)
	}

	a := HashBytes([]byte("print('a')\n"))
	b := HashBytes([]byte("print('a')\n"))
	if a != b {
		t.Errorf("HashBytes is not deterministic: %q != %q", a, b)
	}
	if err := a.Validate(); err != nil {
		t.Errorf("HashBytes result failed validation: %v", err)
	}
}

func TestContentHash_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		hash    ContentHash
		wantErr bool
	}{
		{"valid digest", HashBytes([]byte("x")), false},
		{"empty", ContentHash(""), true},
		{"too short", ContentHash("abc123"), true},
		{"uppercase", ContentHash(strings.ToUpper(string(HashBytes([]byte("x"))))), true},
		{"non hex", ContentHash(strings.Repeat("z", 64)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.hash.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ContentHash(%q).Validate() error = %v, wantErr %v", tt.hash, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidContentHash) {
					t.Errorf("error should wrap ErrInvalidContentHash, got: %v", err)
				}
				var hashErr *InvalidContentHashError
				if !errors.As(err, &hashErr) {
					t.Errorf("error should be *InvalidContentHashError, got: %T", err)
				}
			}
		})
	}
}

func TestContentHash_Short(t *testing.T) {
	t.Parallel()

	h := HashBytes([]byte("x"))
	if got := h.Short(12); len(got) != 12 || !strings.HasPrefix(string(h), got) {
		t.Errorf("Short(12) = %q, want 12-char prefix of %q", got, h)
	}
	if got := h.Short(100); got != string(h) {
		t.Errorf("Short(100) = %q, want full hash", got)
	}
	if got := h.Short(-1); got != string(h) {
		t.Errorf("Short(-1) = %q, want full hash", got)
	}
}
