// SPDX-License-Identifier: MPL-2.0

package pyimport

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// modules returns the module of each reference, prefixed by its dots.
func modules(refs []Reference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = strings.Repeat(".", r.Level) + r.Module
	}
	return out
}

func mustExtract(t *testing.T, src string) []Reference {
	t.Helper()
	refs, err := ExtractAll([]byte(src))
	if err != nil {
		t.Fatalf("ExtractAll() error = %v", err)
	}
	return refs
}

func TestExtract_SimpleImports(t *testing.T) {
	t.Parallel()

	refs := mustExtract(t, "import os, sys\nimport pkg.sub\n")

	if got, want := modules(refs), []string{"os", "sys", "pkg.sub"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("modules = %v, want %v", got, want)
	}
	for _, r := range refs {
		if r.Kind != KindAbsolute {
			t.Errorf("%s: Kind = %v, want absolute", r.Raw, r.Kind)
		}
		if r.IsFrom() {
			t.Errorf("%s: IsFrom() = true for plain import", r.Raw)
		}
	}
	if refs[0].Line != 1 || refs[2].Line != 2 {
		t.Errorf("lines = %d, %d; want 1, 2", refs[0].Line, refs[2].Line)
	}
	if refs[2].Raw != "import pkg.sub" {
		t.Errorf("Raw = %q, want %q", refs[2].Raw, "import pkg.sub")
	}
	if got := refs[2].Segments(); !reflect.DeepEqual(got, []string{"pkg", "sub"}) {
		t.Errorf("Segments() = %v", got)
	}
}

func TestExtract_FromImports(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		kind   Kind
		level  int
		module string
		names  []string
	}{
		{"absolute", "from collections import abc\n", KindAbsolute, 0, "collections", []string{"abc"}},
		{"absolute dotted with alias", "from pkg.subpkg import mod1, mod2 as m2\n", KindAbsolute, 0, "pkg.subpkg", []string{"mod1", "mod2"}},
		{"sibling package", "from . import modY\n", KindSibling, 1, "", []string{"modY"}},
		{"sibling module", "from .modY import spam, ham\n", KindSibling, 1, "modY", []string{"spam", "ham"}},
		{"parent package", "from ..subpkg1 import modY\n", KindRelative, 2, "subpkg1", []string{"modY"}},
		{"grandparent dotted", "from ...a.b import c\n", KindRelative, 3, "a.b", []string{"c"}},
		{"no space after dots", "from .. import util\n", KindRelative, 2, "", []string{"util"}},
		{"star", "from .helpers import *\n", KindSibling, 1, "helpers", []string{"*"}},
		{"parenthesized multiline", "from pkg import (\n    a,\n    b as bee,  # comment\n)\n", KindAbsolute, 0, "pkg", []string{"a", "b"}},
		{"continuation", "from pkg import a, \\\n    b\n", KindAbsolute, 0, "pkg", []string{"a", "b"}},
		{"future", "from __future__ import annotations\n", KindAbsolute, 0, "__future__", []string{"annotations"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			refs := mustExtract(t, tt.src)
			if len(refs) != 1 {
				t.Fatalf("got %d references, want 1: %v", len(refs), refs)
			}
			r := refs[0]
			if r.Kind != tt.kind || r.Level != tt.level || r.Module != tt.module {
				t.Errorf("got kind=%v level=%d module=%q, want kind=%v level=%d module=%q",
					r.Kind, r.Level, r.Module, tt.kind, tt.level, tt.module)
			}
			if !reflect.DeepEqual(r.Names, tt.names) {
				t.Errorf("Names = %v, want %v", r.Names, tt.names)
			}
			if !r.IsFrom() {
				t.Error("IsFrom() = false for from-import")
			}
		})
	}
}

func TestExtract_RawText(t *testing.T) {
	t.Parallel()

	refs := mustExtract(t, "from  ..util   import  (a,\n b)\n")
	if refs[0].Raw != "from ..util import a, b" {
		t.Errorf("Raw = %q", refs[0].Raw)
	}
}

func TestExtract_IgnoresCommentsAndStrings(t *testing.T) {
	t.Parallel()

	src := `# import json
s = "from math import sqrt"
t = """import re"""
u = '''
import textwrap
'''
v = r'it\'s import x'
w = f"{s} import y"
z = b"import z"
import os  # a real import
`
	refs := mustExtract(t, src)
	if got := modules(refs); !reflect.DeepEqual(got, []string{"os"}) {
		t.Errorf("modules = %v, want [os]", got)
	}
	if refs[0].Line != 10 {
		t.Errorf("Line = %d, want 10", refs[0].Line)
	}
}

func TestExtract_StatementStarts(t *testing.T) {
	t.Parallel()

	src := `import a; import b
if True: import c
try:
    import d
except ImportError:
    d = None
def f():
    from e import g
    return g
`
	refs := mustExtract(t, src)
	if got, want := modules(refs), []string{"a", "b", "c", "d", "e"}; !reflect.DeepEqual(got, want) {
		t.Errorf("modules = %v, want %v", got, want)
	}
	if refs[3].Column != 5 {
		t.Errorf("indented import Column = %d, want 5", refs[3].Column)
	}
}

func TestExtract_SkipsNonImports(t *testing.T) {
	t.Parallel()

	src := `def gen():
    x = yield from other()
    raise ValueError("bad") from None
obj.importer = 1
mod = importlib.import_module("dynamic")
legacy = __import__("dynamic2")
d = {"k": 1}
n = 1e-5 + 0x1F + .5
`
	refs := mustExtract(t, src)
	if len(refs) != 0 {
		t.Errorf("got %v, want no references", modules(refs))
	}
}

func TestExtract_BOMAndCRLF(t *testing.T) {
	t.Parallel()

	refs := mustExtract(t, "\xef\xbb\xbfimport a\r\nimport b\r\n")
	if got := modules(refs); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("modules = %v", got)
	}
	if refs[1].Line != 2 {
		t.Errorf("Line = %d, want 2", refs[1].Line)
	}
}

func TestExtract_CRLFContinuationInString(t *testing.T) {
	t.Parallel()

	refs := mustExtract(t, "x = 'abc\\\r\ndef'\r\nimport util\r\n")
	if got := modules(refs); !reflect.DeepEqual(got, []string{"util"}) {
		t.Fatalf("modules = %v", got)
	}
	if refs[0].Line != 3 {
		t.Errorf("Line = %d, want 3", refs[0].Line)
	}
}

func TestExtract_FormattedStrings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
	}{
		{"reused outer quote", `print(f"{d["it's"]}")`},
		{"nested f-strings", `s = f"{f"{f"{x}"}"}"`},
		{"escaped braces", `s = f"{{import x}}"`},
		{"brace inside field string", `s = f"{'{'}"`},
		{"nested format spec", `s = f"{x:{width}.{prec}}"`},
		{"conversion and spec", `s = f"{x!r:>{w}}"`},
		{"string in format spec", `s = f'{a["k"]:{"w"}}'`},
		{"named escape", `s = f"\N{BULLET} {x}"`},
		{"raw backslash before field", `s = rf"\{x}"`},
		{"template string", `s = t"{name!s}"`},
		{"multi-line field with comment", "s = f\"\"\"{\n    x  # note\n}\"\"\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			refs := mustExtract(t, tt.src+"\nimport util\n")
			if got := modules(refs); !reflect.DeepEqual(got, []string{"util"}) {
				t.Errorf("modules = %v, want [util]", got)
			}
		})
	}
}

func TestExtract_UnicodeIdentifiers(t *testing.T) {
	t.Parallel()

	refs := mustExtract(t, "import módulo\n")
	if got := modules(refs); !reflect.DeepEqual(got, []string{"módulo"}) {
		t.Errorf("modules = %v", got)
	}
}

func TestExtract_EmptyFile(t *testing.T) {
	t.Parallel()

	if refs := mustExtract(t, ""); len(refs) != 0 {
		t.Errorf("got %v, want none", refs)
	}
	if refs := mustExtract(t, "\n\n# only a comment\n"); len(refs) != 0 {
		t.Errorf("got %v, want none", refs)
	}
}

func TestExtract_NoTrailingNewline(t *testing.T) {
	t.Parallel()

	refs := mustExtract(t, "x = 1\nfrom a import b")
	if got := modules(refs); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("modules = %v", got)
	}
}

func TestExtract_ParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		line int
	}{
		{"unterminated string", "s = \"abc\nimport os\n", 1},
		{"unterminated triple string", "x = 1\ns = \"\"\"abc\n", 2},
		{"unclosed bracket", "def oops(:\n    pass\n", 1},
		{"unmatched closer", "x = 1)\n", 1},
		{"mismatched closer", "x = [1)\n", 1},
		{"bare import", "import\n", 1},
		{"relative plain import", "import .x\n", 1},
		{"from without module", "from import x\n", 1},
		{"from without import", "from x\n", 1},
		{"from with empty list", "from x import\n", 1},
		{"trailing comma without parens", "from x import a,\n", 1},
		{"junk after import", "import a b\n", 1},
		{"missing comma in parens", "from x import (a b)\n", 1},
		{"empty parens", "from x import ()\n", 1},
		{"dangling alias", "import a as\n", 1},
		{"bad continuation", "x = 1 \\ y\n", 1},
		{"unclosed f-string field", "s = f\"{x\nimport os\n", 1},
		{"newline in f-string format spec", "s = f\"{x:>10\nimport os\n\"\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ExtractAll([]byte(tt.src))
			if err == nil {
				t.Fatal("ExtractAll() returned nil error")
			}
			if !errors.Is(err, ErrParse) {
				t.Errorf("error should wrap ErrParse, got: %v", err)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error should be *ParseError, got: %T", err)
			}
			if perr.Line != tt.line {
				t.Errorf("Line = %d, want %d (%v)", perr.Line, tt.line, perr)
			}
		})
	}
}

func TestExtract_ErrorAfterReferences(t *testing.T) {
	t.Parallel()

	var (
		got      []string
		errCount int
	)
	for ref, err := range Extract([]byte("import a\ns = 'open\n")) {
		if err != nil {
			errCount++
			continue
		}
		got = append(got, ref.Module)
	}
	if !reflect.DeepEqual(got, []string{"a"}) || errCount != 1 {
		t.Errorf("got refs %v and %d errors, want [a] and 1 error", got, errCount)
	}
}

func TestExtract_Restartable(t *testing.T) {
	t.Parallel()

	seq := Extract([]byte("import a\nimport b\nimport c\n"))

	collect := func() []string {
		var out []string
		for ref, err := range seq {
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			out = append(out, ref.Module)
		}
		return out
	}

	first := collect()
	second := collect()
	if !reflect.DeepEqual(first, second) || len(first) != 3 {
		t.Errorf("ranges differ: %v vs %v", first, second)
	}

	// Stopping early must not panic or leak state into the next range.
	for ref := range seq {
		if ref.Module != "a" {
			t.Errorf("first reference = %q, want a", ref.Module)
		}
		break
	}
	if third := collect(); !reflect.DeepEqual(third, first) {
		t.Errorf("range after early stop = %v, want %v", third, first)
	}
}

func TestParseError_Error(t *testing.T) {
	t.Parallel()

	e := &ParseError{Line: 3, Column: 7, Msg: "boom"}
	if e.Error() != "3:7: boom" {
		t.Errorf("Error() = %q", e.Error())
	}
	e.Path = "/proj/a.py"
	if e.Error() != "/proj/a.py:3:7: boom" {
		t.Errorf("Error() = %q", e.Error())
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	for k, want := range map[Kind]string{KindAbsolute: "absolute", KindSibling: "sibling", KindRelative: "relative", Kind(42): "unknown"} {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
