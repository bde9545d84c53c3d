// SPDX-License-Identifier: MPL-2.0

// Package resolve maps Python import references onto files under a project
// root.
//
// A reference is anchored at the project root (absolute), the importer's
// directory (sibling) or one of its ancestors (relative). From that anchor
// the resolver tries, in order, the literal path, the literal path with the
// source extension appended, and the literal path as a directory holding the
// package entry file. The first regular file found wins and is returned in
// canonical (absolute, symlink-free) form.
//
// Resolution never escapes the project root: both the lexical target and
// the canonical result are checked.
package resolve
