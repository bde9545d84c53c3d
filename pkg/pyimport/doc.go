// SPDX-License-Identifier: MPL-2.0

// Package pyimport extracts the statically written import statements of a
// Python source file without evaluating it.
//
// The scanner is a small tokenizer that understands comments, every string
// literal form (prefixes, single, double and triple quotes, escapes),
// bracket nesting and line continuations, so import-like text inside
// strings or comments is never reported. Imports are recognized at any
// statement start, including inside indented blocks and one-line compound
// statements such as "if TYPE_CHECKING: import x".
//
// Dynamic imports (importlib.import_module, __import__) compute their target
// at run time and are not reported. This is a known completeness limit.
//
// Nested quotes inside f-string replacement fields (allowed since Python
// 3.12) are not understood; such files may fail to scan.
package pyimport
