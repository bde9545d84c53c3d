// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"errors"
	"fmt"

	"github.com/qubernetes/q8s/pkg/types"
)

var (
	// ErrPackaging is the sentinel error wrapped by PackagingError.
	ErrPackaging = errors.New("packaging failed")
	// ErrOversizedFile is the sentinel error wrapped by OversizedFileError.
	ErrOversizedFile = errors.New("file exceeds unit size")
	// ErrTooManyUnits is the sentinel error wrapped by TooManyUnitsError.
	ErrTooManyUnits = errors.New("too many delivery units")
	// ErrKeyCollision is the sentinel error wrapped by KeyCollisionError.
	ErrKeyCollision = errors.New("data key collision")
	// ErrInvalidLimit is returned for non-positive packaging limits.
	ErrInvalidLimit = errors.New("invalid packaging limit")
)

type (
	// PackagingError wraps every packaging failure. Workload is the
	// aggregate hash of the workload being packaged.
	PackagingError struct {
		Workload types.ContentHash
		Err      error
	}

	// OversizedFileError reports a single file larger than a whole unit.
	OversizedFileError struct {
		Path  string
		Size  int64
		Limit int64
	}

	// TooManyUnitsError reports a workload that needs more units than
	// allowed.
	TooManyUnitsError struct {
		Required int
		Max      int
	}

	// KeyCollisionError reports two files with different content whose
	// relative paths map to the same data key ("a/b.py" and "a__b.py").
	KeyCollisionError struct {
		Key   string
		Paths [2]string
	}
)

// Error implements the error interface.
func (e *PackagingError) Error() string {
	return fmt.Sprintf("packaging workload %s: %v", e.Workload.Short(12), e.Err)
}

// Unwrap returns ErrPackaging and the cause.
func (e *PackagingError) Unwrap() []error { return []error{ErrPackaging, e.Err} }

// Error implements the error interface.
func (e *OversizedFileError) Error() string {
	return fmt.Sprintf("%s is %d bytes, larger than the %d byte unit limit", e.Path, e.Size, e.Limit)
}

// Unwrap returns ErrOversizedFile for errors.Is() compatibility.
func (e *OversizedFileError) Unwrap() error { return ErrOversizedFile }

// Error implements the error interface.
func (e *TooManyUnitsError) Error() string {
	return fmt.Sprintf("workload needs %d units, at most %d allowed", e.Required, e.Max)
}

// Unwrap returns ErrTooManyUnits for errors.Is() compatibility.
func (e *TooManyUnitsError) Unwrap() error { return ErrTooManyUnits }

// Error implements the error interface.
func (e *KeyCollisionError) Error() string {
	return fmt.Sprintf("%s and %s both map to data key %q", e.Paths[0], e.Paths[1], e.Key)
}

// Unwrap returns ErrKeyCollision for errors.Is() compatibility.
func (e *KeyCollisionError) Unwrap() error { return ErrKeyCollision }
