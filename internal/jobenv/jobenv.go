// SPDX-License-Identifier: MPL-2.0

// Package jobenv reads the dotenv file whose variables are injected into a
// workload's job as an immutable Secret.
package jobenv

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"regexp"
	"slices"

	"github.com/joho/godotenv"

	"github.com/qubernetes/q8s/pkg/types"
)

// DefaultFileName is the dotenv file read from the project root.
const DefaultFileName = ".env.q8s"

// ErrInvalidEnvFile is the sentinel error wrapped by InvalidEnvFileError.
var ErrInvalidEnvFile = errors.New("invalid env file")

// Secret data keys are restricted to this alphabet.
var keyPattern = regexp.MustCompile(`^[-._a-zA-Z0-9]+$`)

type (
	// Env is the parsed content of an env file.
	Env struct {
		// Path is the file the variables were read from.
		Path types.FilesystemPath
		vars map[string]string
	}

	// InvalidEnvFileError reports an env file that cannot be parsed or that
	// defines a key not usable as Secret data.
	InvalidEnvFileError struct {
		Path types.FilesystemPath
		Key  string
		Err  error
	}
)

// Error implements the error interface.
func (e *InvalidEnvFileError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("env file %s: key %q: %v", e.Path, e.Key, e.Err)
	}
	return fmt.Sprintf("env file %s: %v", e.Path, e.Err)
}

// Unwrap returns ErrInvalidEnvFile and the cause.
func (e *InvalidEnvFileError) Unwrap() []error { return []error{ErrInvalidEnvFile, e.Err} }

// Load reads the env file at path. A missing file is not an error: Load
// returns nil and the caller renders no Secret.
func Load(path types.FilesystemPath) (*Env, error) {
	f, err := os.Open(path.String())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &InvalidEnvFileError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	vars, err := godotenv.Parse(f)
	if err != nil {
		return nil, &InvalidEnvFileError{Path: path, Err: err}
	}
	for _, k := range slices.Sorted(maps.Keys(vars)) {
		if !keyPattern.MatchString(k) {
			return nil, &InvalidEnvFileError{Path: path, Key: k, Err: errors.New("not a valid Secret data key")}
		}
	}
	return &Env{Path: path, vars: vars}, nil
}

// Len returns the number of variables.
func (e *Env) Len() int { return len(e.vars) }

// Keys returns the variable names in sorted order.
func (e *Env) Keys() []string { return slices.Sorted(maps.Keys(e.vars)) }

// Get returns the value of key.
func (e *Env) Get(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// Vars returns a copy of the variables.
func (e *Env) Vars() map[string]string { return maps.Clone(e.vars) }
