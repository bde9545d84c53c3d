// SPDX-License-Identifier: MPL-2.0

// Package workload computes the dependency closure of a Python entry file
// and holds it as an immutable, content-addressed Workload.
//
// A Builder walks the import graph breadth-first from the entry file. Every
// file is identified by its canonical path, read once, and scanned once; the
// visited set breaks import cycles and collapses diamond imports. Absolute
// imports whose top-level name does not exist under the project root are
// third-party or standard-library modules and are left out of the closure.
//
// Building is all-or-nothing: an unresolvable local import, an import that
// escapes the project root, a file that cannot be scanned, or a cancelled
// context aborts the build and no Workload is returned.
package workload
