// SPDX-License-Identifier: MPL-2.0

package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// contentHashLen is the length of a hex-encoded SHA-256 digest.
const contentHashLen = sha256.Size * 2

// ErrInvalidContentHash is the sentinel error wrapped by InvalidContentHashError.
var ErrInvalidContentHash = errors.New("invalid content hash")

type (
	// ContentHash is a lowercase hex-encoded SHA-256 digest.
	// The zero value ("") is invalid.
	ContentHash string

	// InvalidContentHashError is returned when a ContentHash is not a
	// 64-character lowercase hex string.
	InvalidContentHashError struct {
		Value ContentHash
	}
)

// HashBytes returns the ContentHash of data.
func HashBytes(data []byte) ContentHash {
	sum := sha256.Sum256(data)
	return ContentHash(hex.EncodeToString(sum[:])) //goplint:ignore -- derived from sha256 digest
}

// String returns the string representation of the ContentHash.
func (h ContentHash) String() string { return string(h) }

// Short returns the first n characters of the hash, or the full hash when
// it is shorter than n.
func (h ContentHash) Short(n int) string {
	if n < 0 || n >= len(h) {
		return string(h)
	}
	return string(h[:n])
}

// Validate returns an error if the ContentHash is not a SHA-256 hex digest.
func (h ContentHash) Validate() error {
	if len(h) != contentHashLen {
		return &InvalidContentHashError{Value: h}
	}
	for _, c := range h {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return &InvalidContentHashError{Value: h}
		}
	}
	return nil
}

// Error implements the error interface for InvalidContentHashError.
func (e *InvalidContentHashError) Error() string {
	return fmt.Sprintf("invalid content hash %q: must be %d lowercase hex characters", e.Value, contentHashLen)
}

// Unwrap returns ErrInvalidContentHash for errors.Is() compatibility.
func (e *InvalidContentHashError) Unwrap() error { return ErrInvalidContentHash }
