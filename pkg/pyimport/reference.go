// SPDX-License-Identifier: MPL-2.0

package pyimport

import (
	"strings"
)

// Kind classifies how an import reference is anchored.
type Kind int

const (
	// KindAbsolute is an import with no leading dots ("import a.b",
	// "from a import b"), anchored at the project root.
	KindAbsolute Kind = iota
	// KindSibling is an import with a single leading dot ("from . import x",
	// "from .x import y"), anchored at the importer's directory.
	KindSibling
	// KindRelative is an import with two or more leading dots, anchored at
	// an ancestor of the importer's directory.
	KindRelative
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindAbsolute:
		return "absolute"
	case KindSibling:
		return "sibling"
	case KindRelative:
		return "relative"
	default:
		return "unknown"
	}
}

// kindForLevel maps a dot count to its Kind.
func kindForLevel(level int) Kind {
	switch level {
	case 0:
		return KindAbsolute
	case 1:
		return KindSibling
	default:
		return KindRelative
	}
}

// Reference is a single statically written import target.
//
// "import a.b, c" yields two references ("a.b" and "c"). A from-import
// yields one reference whose Names lists the imported names; a name may be
// a submodule or an attribute of the module, which only the resolver can
// tell apart.
type Reference struct {
	// Raw is the import text as written, whitespace-normalized.
	Raw string
	// Kind is derived from Level.
	Kind Kind
	// Level is the number of leading dots.
	Level int
	// Module is the dotted module name; empty for "from . import x".
	Module string
	// Names are the names imported by a from-import, without aliases.
	// "*" is reported as a single name. Nil for plain imports.
	Names []string
	// Line and Column locate the start of the statement (1-based).
	Line   int
	Column int
}

// Segments returns the module name split on dots, or nil when the module
// is empty.
func (r Reference) Segments() []string {
	if r.Module == "" {
		return nil
	}
	return strings.Split(r.Module, ".")
}

// IsFrom reports whether the reference came from a from-import.
func (r Reference) IsFrom() bool { return r.Names != nil }

// String returns the raw import text.
func (r Reference) String() string { return r.Raw }
