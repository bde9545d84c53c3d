// SPDX-License-Identifier: MPL-2.0

package pyimport

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokName
	tokOp
	tokString
	tokNumber
	// tokNewline ends a logical line. Newlines inside brackets or after a
	// backslash continuation never produce one.
	tokNewline
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
	// depth is the bracket nesting level at which the token appeared.
	depth int
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// lexer turns Python source into the coarse token stream the import parser
// needs. It only understands the lexical structure that can hide or reveal
// an import statement.
type lexer struct {
	src       []byte
	pos       int
	line      int
	lineStart int
	// open holds the expected closers of unclosed brackets together with
	// the position of their opener.
	open []openBracket
	// emitted is true once a token has been produced on the current
	// logical line, so blank lines do not produce newline tokens.
	emitted bool
	done    bool
}

type openBracket struct {
	closer byte
	line   int
	col    int
}

func newLexer(src []byte) *lexer {
	src = bytes.TrimPrefix(src, utf8BOM)
	return &lexer{src: src, line: 1}
}

func (l *lexer) col() int { return l.pos - l.lineStart + 1 }

func (l *lexer) errorf(line, col int, format string, args ...any) error {
	return &ParseError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) newline() {
	l.line++
	l.lineStart = l.pos
}

func (l *lexer) tok(kind tokenKind, text string, line, col int) token {
	l.emitted = kind != tokNewline
	return token{kind: kind, text: text, line: line, col: col, depth: len(l.open)}
}

// next returns the next token. After tokEOF it keeps returning tokEOF.
func (l *lexer) next() (token, error) {
	for {
		if l.pos >= len(l.src) {
			return l.eof()
		}

		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\f' || c == '\r':
			l.pos++

		case c == '\n':
			line, col := l.line, l.col()
			l.pos++
			l.newline()
			if len(l.open) == 0 && l.emitted {
				return l.tok(tokNewline, "", line, col), nil
			}

		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}

		case c == '\\':
			line, col := l.line, l.col()
			l.pos++
			if l.pos < len(l.src) && l.src[l.pos] == '\r' {
				l.pos++
			}
			if l.pos >= len(l.src) || l.src[l.pos] != '\n' {
				return token{}, l.errorf(line, col, "unexpected character after line continuation")
			}
			l.pos++
			l.newline()

		case c == '"' || c == '\'':
			return l.lexString(l.line, l.col(), "")

		case c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]):
			return l.lexNumber(), nil

		case isDigit(c):
			return l.lexNumber(), nil

		case c == '(' || c == '[' || c == '{':
			t := l.tok(tokOp, string(c), l.line, l.col())
			l.open = append(l.open, openBracket{closer: closerOf(c), line: t.line, col: t.col})
			l.pos++
			return t, nil

		case c == ')' || c == ']' || c == '}':
			line, col := l.line, l.col()
			if len(l.open) == 0 || l.open[len(l.open)-1].closer != c {
				return token{}, l.errorf(line, col, "unmatched %q", c)
			}
			l.open = l.open[:len(l.open)-1]
			l.pos++
			return l.tok(tokOp, string(c), line, col), nil

		case c == '_' || c >= utf8.RuneSelf || isASCIILetter(c):
			return l.lexName()

		default:
			t := l.tok(tokOp, string(c), l.line, l.col())
			l.pos++
			return t, nil
		}
	}
}

func (l *lexer) eof() (token, error) {
	if len(l.open) > 0 {
		b := l.open[len(l.open)-1]
		return token{}, l.errorf(b.line, b.col, "unclosed bracket, expected %q", b.closer)
	}
	if l.emitted {
		return l.tok(tokNewline, "", l.line, l.col()), nil
	}
	l.done = true
	return token{kind: tokEOF, line: l.line, col: l.col()}, nil
}

func (l *lexer) lexName() (token, error) {
	line, col := l.line, l.col()
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c < utf8.RuneSelf {
			if c != '_' && !isASCIILetter(c) && !isDigit(c) {
				break
			}
			l.pos++
			continue
		}
		r, size := utf8.DecodeRune(l.src[l.pos:])
		if r == utf8.RuneError && size <= 1 {
			return token{}, l.errorf(l.line, l.col(), "invalid UTF-8 in identifier")
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Mc, r) {
			if l.pos == start {
				return token{}, l.errorf(line, col, "invalid character %q", r)
			}
			break
		}
		l.pos += size
	}
	text := string(l.src[start:l.pos])

	if l.pos < len(l.src) && (l.src[l.pos] == '"' || l.src[l.pos] == '\'') && isStringPrefix(text) {
		return l.lexString(line, col, text)
	}
	return l.tok(tokName, text, line, col), nil
}

// lexString consumes a string literal whose opening quote is at l.pos.
// Backslashes escape the following character in every string form,
// including raw strings, where a backslash still prevents a quote from
// terminating the literal. In formatted strings, replacement fields are
// scanned as expressions and may hold strings reusing the outer quote.
func (l *lexer) lexString(line, col int, prefix string) (token, error) {
	formatted := strings.ContainsAny(prefix, "fFtT")
	raw := strings.ContainsAny(prefix, "rR")
	q := l.src[l.pos]
	triple := l.pos+2 < len(l.src) && l.src[l.pos+1] == q && l.src[l.pos+2] == q
	if triple {
		l.pos += 3
	} else {
		l.pos++
	}

	for {
		if l.pos >= len(l.src) {
			if triple {
				return token{}, l.errorf(line, col, "unterminated triple-quoted string literal")
			}
			return token{}, l.errorf(line, col, "unterminated string literal")
		}
		c := l.src[l.pos]
		switch {
		case c == '\\' && formatted && !raw && l.hasAhead("N{"):
			// Named escape: its braces do not open a field.
			for l.pos < len(l.src) && l.src[l.pos] != '}' && l.src[l.pos] != q && l.src[l.pos] != '\n' {
				l.pos++
			}
			if l.pos < len(l.src) && l.src[l.pos] == '}' {
				l.pos++
			}
		case c == '\\' && formatted && (l.hasAhead("{") || l.hasAhead("}")):
			l.pos++
		case c == '\\':
			l.skipEscape()
		case c == '\n':
			if !triple {
				return token{}, l.errorf(line, col, "unterminated string literal")
			}
			l.pos++
			l.newline()
		case c == q:
			if !triple {
				l.pos++
				return l.tok(tokString, "", line, col), nil
			}
			if l.pos+2 < len(l.src) && l.src[l.pos+1] == q && l.src[l.pos+2] == q {
				l.pos += 3
				return l.tok(tokString, "", line, col), nil
			}
			l.pos++
		case formatted && (c == '{' || c == '}') && l.pos+1 < len(l.src) && l.src[l.pos+1] == c:
			l.pos += 2
		case formatted && c == '{':
			l.pos++
			if err := l.lexField(q, triple, line, col); err != nil {
				return token{}, err
			}
		default:
			l.pos++
		}
	}
}

// skipEscape consumes a backslash and the character it escapes. A CRLF
// pair counts as one escaped line break.
func (l *lexer) skipEscape() {
	l.pos++
	if l.pos >= len(l.src) {
		return
	}
	switch {
	case l.src[l.pos] == '\r' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '\n':
		l.pos += 2
		l.newline()
	case l.src[l.pos] == '\n':
		l.pos++
		l.newline()
	default:
		l.pos++
	}
}

// lexField consumes a replacement field of a formatted string up to and
// including its closing brace. The opening brace is already consumed.
// line and col locate the enclosing string.
func (l *lexer) lexField(q byte, triple bool, line, col int) error {
	depth := 0
	for {
		if l.pos >= len(l.src) {
			return l.errorf(line, col, "f-string: expecting '}'")
		}
		c := l.src[l.pos]
		switch {
		case c == '"' || c == '\'':
			if _, err := l.lexString(l.line, l.col(), l.prefixBefore()); err != nil {
				return err
			}
		case c == '\n':
			l.pos++
			l.newline()
		case c == '#':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '\\':
			l.skipEscape()
		case c == '(' || c == '[' || c == '{':
			depth++
			l.pos++
		case (c == ')' || c == ']') && depth > 0:
			depth--
			l.pos++
		case c == '}':
			l.pos++
			if depth == 0 {
				return nil
			}
			depth--
		case c == ':' && depth == 0:
			l.pos++
			return l.lexFormatSpec(q, triple, line, col)
		default:
			l.pos++
		}
	}
}

// lexFormatSpec consumes the format spec of a replacement field and the
// brace that closes the field. Nested fields are allowed.
func (l *lexer) lexFormatSpec(q byte, triple bool, line, col int) error {
	for {
		if l.pos >= len(l.src) {
			return l.errorf(line, col, "f-string: expecting '}'")
		}
		c := l.src[l.pos]
		switch {
		case c == '{':
			l.pos++
			if err := l.lexField(q, triple, line, col); err != nil {
				return err
			}
		case c == '}':
			l.pos++
			return nil
		case c == '\\':
			l.skipEscape()
		case c == '\n' || (c == q && !triple):
			if !triple {
				return l.errorf(line, col, "f-string: expecting '}'")
			}
			l.pos++
			l.newline()
		default:
			l.pos++
		}
	}
}

// prefixBefore returns the letters directly before l.pos when they form a
// whole word, which is how a string prefix appears inside an expression.
func (l *lexer) prefixBefore() string {
	start := l.pos
	for start > 0 && isASCIILetter(l.src[start-1]) {
		start--
	}
	if start > 0 {
		if c := l.src[start-1]; c == '_' || isDigit(c) || c >= utf8.RuneSelf {
			return ""
		}
	}
	if p := string(l.src[start:l.pos]); isStringPrefix(p) {
		return p
	}
	return ""
}

func (l *lexer) lexNumber() token {
	line, col := l.line, l.col()
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case isDigit(c) || isASCIILetter(c) || c == '_' || c == '.':
			l.pos++
		case (c == '+' || c == '-') && (l.src[l.pos-1] == 'e' || l.src[l.pos-1] == 'E') && !isHexLiteral(l.src[start:l.pos]):
			l.pos++
		default:
			return l.tok(tokNumber, string(l.src[start:l.pos]), line, col)
		}
	}
	return l.tok(tokNumber, string(l.src[start:l.pos]), line, col)
}

// hasAhead reports whether s follows the byte at l.pos.
func (l *lexer) hasAhead(s string) bool {
	return bytes.HasPrefix(l.src[l.pos+1:], []byte(s))
}

func isHexLiteral(b []byte) bool {
	return len(b) > 1 && b[0] == '0' && (b[1] == 'x' || b[1] == 'X')
}

func closerOf(c byte) byte {
	switch c {
	case '(':
		return ')'
	case '[':
		return ']'
	default:
		return '}'
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isASCIILetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

// isStringPrefix reports whether s is a valid string literal prefix:
// any case-insensitive combination of r with one of b, f or t, or a lone
// r, u, b, f or t.
func isStringPrefix(s string) bool {
	if len(s) == 0 || len(s) > 2 {
		return false
	}
	lower := bytes.ToLower([]byte(s))
	switch string(lower) {
	case "r", "u", "b", "f", "t", "br", "rb", "fr", "rf", "tr", "rt":
		return true
	}
	return false
}
