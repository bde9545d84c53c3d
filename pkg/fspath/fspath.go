// SPDX-License-Identifier: MPL-2.0

// Package fspath provides typed wrappers around path/filepath functions that
// accept and return types.FilesystemPath. Each wrapper centralizes the single
// //goplint:ignore annotation so callers get typed-in/typed-out path operations
// without needing per-site suppression directives.
package fspath

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/qubernetes/q8s/pkg/types"
)

// Join wraps filepath.Join, accepting and returning types.FilesystemPath.
// The returned path inherits validity from its typed input components.
func Join(elem ...types.FilesystemPath) types.FilesystemPath {
	strs := make([]string, len(elem))
	for i, e := range elem {
		strs[i] = string(e)
	}
	return types.FilesystemPath(filepath.Join(strs...)) //goplint:ignore -- derived from typed inputs
}

// JoinStr wraps filepath.Join, accepting a typed base path and raw string
// segments. Use this when joining a validated path with literal constants
// (e.g., "__init__.py") or module name segments.
func JoinStr(base types.FilesystemPath, elem ...string) types.FilesystemPath {
	parts := make([]string, 1, 1+len(elem))
	parts[0] = string(base)
	parts = append(parts, elem...)
	return types.FilesystemPath(filepath.Join(parts...)) //goplint:ignore -- derived from typed base + string segments
}

// Dir wraps filepath.Dir for FilesystemPath.
func Dir(p types.FilesystemPath) types.FilesystemPath {
	return types.FilesystemPath(filepath.Dir(string(p))) //goplint:ignore -- derived from typed input
}

// Base returns the last element of p, such as a project directory name.
func Base(p types.FilesystemPath) string { return filepath.Base(string(p)) }

// Abs wraps filepath.Abs for FilesystemPath. Returns an error if the
// underlying OS call fails.
func Abs(p types.FilesystemPath) (types.FilesystemPath, error) {
	abs, err := filepath.Abs(string(p))
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	return types.FilesystemPath(abs), nil //goplint:ignore -- OS-resolved absolute path
}

// Canonical returns the absolute, symlink-free form of p. The path must exist.
func Canonical(p types.FilesystemPath) (types.FilesystemPath, error) {
	abs, err := Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(string(abs))
	if err != nil {
		return "", fmt.Errorf("resolving symlinks: %w", err)
	}
	return types.FilesystemPath(resolved), nil //goplint:ignore -- OS-resolved canonical path
}

// Clean wraps filepath.Clean for FilesystemPath.
func Clean(p types.FilesystemPath) types.FilesystemPath {
	return types.FilesystemPath(filepath.Clean(string(p))) //goplint:ignore -- derived from typed input
}

// IsAbs wraps filepath.IsAbs for FilesystemPath.
func IsAbs(p types.FilesystemPath) bool {
	return filepath.IsAbs(string(p))
}

// SlashRel returns target relative to base using forward slashes, the
// portable form stored in delivery units.
func SlashRel(base, target types.FilesystemPath) (string, error) {
	rel, err := filepath.Rel(string(base), string(target))
	if err != nil {
		return "", fmt.Errorf("relativizing %s: %w", target, err)
	}
	return filepath.ToSlash(rel), nil
}

// Within reports whether target is base itself or lies beneath it. Both
// paths are compared lexically after cleaning.
func Within(base, target types.FilesystemPath) bool {
	rel, err := filepath.Rel(filepath.Clean(string(base)), filepath.Clean(string(target)))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
