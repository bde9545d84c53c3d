// SPDX-License-Identifier: MPL-2.0

package pyimport

import (
	"iter"
	"strings"
)

// Extract returns the import references of src in file order.
//
// The sequence is lazy and restartable: scanning happens while ranging,
// and each new range scans src again from the start. If the source cannot
// be scanned the sequence yields a single *ParseError as its last element.
func Extract(src []byte) iter.Seq2[Reference, error] {
	return func(yield func(Reference, error) bool) {
		p := &parser{lex: newLexer(src), stmtStart: true}
		for {
			ref, ok, err := p.next()
			if err != nil {
				yield(Reference{}, err)
				return
			}
			if !ok {
				return
			}
			if !yield(ref, nil) {
				return
			}
		}
	}
}

// ExtractAll collects every reference of src, or returns the first scan error.
func ExtractAll(src []byte) ([]Reference, error) {
	var refs []Reference
	for ref, err := range Extract(src) {
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// parser recognizes import statements in the token stream. Everything that
// is not an import statement is skipped token by token.
type parser struct {
	lex *lexer
	// peeked holds a token read ahead of the current one.
	peeked *token
	// stmtStart is true when the next token begins a statement.
	stmtStart bool
	// pending holds references of a multi-target statement not yet yielded.
	pending []Reference
}

func (p *parser) advance() (token, error) {
	if p.peeked != nil {
		t := *p.peeked
		p.peeked = nil
		return t, nil
	}
	return p.lex.next()
}

func (p *parser) peek() (token, error) {
	if p.peeked == nil {
		t, err := p.lex.next()
		if err != nil {
			return token{}, err
		}
		p.peeked = &t
	}
	return *p.peeked, nil
}

// next returns the next reference; ok is false at end of input.
func (p *parser) next() (Reference, bool, error) {
	for len(p.pending) == 0 {
		t, err := p.advance()
		if err != nil {
			return Reference{}, false, err
		}

		switch {
		case t.kind == tokEOF:
			return Reference{}, false, nil
		case t.kind == tokNewline, isOp(t, ";"):
			p.stmtStart = true
		case isOp(t, ":") && t.depth == 0:
			p.stmtStart = true
		case p.stmtStart && t.kind == tokName && t.text == "import":
			refs, err := p.parseImport(t)
			if err != nil {
				return Reference{}, false, err
			}
			p.pending = refs
		case p.stmtStart && t.kind == tokName && t.text == "from":
			ref, err := p.parseFrom(t)
			if err != nil {
				return Reference{}, false, err
			}
			p.pending = []Reference{ref}
		default:
			p.stmtStart = false
		}
	}

	ref := p.pending[0]
	p.pending = p.pending[1:]
	return ref, true, nil
}

// parseImport parses "import dotted [as name] (, dotted [as name])*".
// The import keyword has already been consumed.
func (p *parser) parseImport(kw token) ([]Reference, error) {
	var refs []Reference
	for {
		module, err := p.parseDotted("'import'")
		if err != nil {
			return nil, err
		}
		if err := p.skipAlias(); err != nil {
			return nil, err
		}
		refs = append(refs, Reference{
			Raw:    "import " + module,
			Kind:   KindAbsolute,
			Module: module,
			Line:   kw.line,
			Column: kw.col,
		})

		t, err := p.advance()
		if err != nil {
			return nil, err
		}
		if isOp(t, ",") {
			continue
		}
		if err := p.endStatement(t); err != nil {
			return nil, err
		}
		return refs, nil
	}
}

// parseFrom parses "from .*dotted import (* | names | '(' names ')')".
// The from keyword has already been consumed.
func (p *parser) parseFrom(kw token) (Reference, error) {
	level := 0
	for {
		t, err := p.peek()
		if err != nil {
			return Reference{}, err
		}
		if !isOp(t, ".") {
			break
		}
		level++
		if _, err := p.advance(); err != nil {
			return Reference{}, err
		}
	}

	module := ""
	t, err := p.peek()
	if err != nil {
		return Reference{}, err
	}
	if t.kind == tokName && t.text != "import" {
		if module, err = p.parseDotted("'from'"); err != nil {
			return Reference{}, err
		}
	} else if level == 0 {
		return Reference{}, syntaxError(t, "expected module name after 'from'")
	}

	t, err = p.advance()
	if err != nil {
		return Reference{}, err
	}
	if t.kind != tokName || t.text != "import" {
		return Reference{}, syntaxError(t, "expected 'import' in from-import statement")
	}

	names, err := p.parseNames()
	if err != nil {
		return Reference{}, err
	}

	return Reference{
		Raw:    "from " + strings.Repeat(".", level) + module + " import " + strings.Join(names, ", "),
		Kind:   kindForLevel(level),
		Level:  level,
		Module: module,
		Names:  names,
		Line:   kw.line,
		Column: kw.col,
	}, nil
}

// parseNames parses the import list of a from-import and the statement end.
func (p *parser) parseNames() ([]string, error) {
	t, err := p.advance()
	if err != nil {
		return nil, err
	}
	if isOp(t, "*") {
		end, err := p.advance()
		if err != nil {
			return nil, err
		}
		return []string{"*"}, p.endStatement(end)
	}

	parens := isOp(t, "(")
	if parens {
		if t, err = p.advance(); err != nil {
			return nil, err
		}
	}

	var names []string
	for {
		if parens && isOp(t, ")") && len(names) > 0 {
			// Trailing comma before the closing parenthesis.
			break
		}
		if t.kind != tokName {
			return nil, syntaxError(t, "expected name in import list")
		}
		names = append(names, t.text)
		if err := p.skipAlias(); err != nil {
			return nil, err
		}

		if t, err = p.advance(); err != nil {
			return nil, err
		}
		if isOp(t, ",") {
			if t, err = p.advance(); err != nil {
				return nil, err
			}
			if !parens && (t.kind == tokNewline || t.kind == tokEOF || isOp(t, ";")) {
				return nil, syntaxError(t, "trailing comma not allowed without surrounding parentheses")
			}
			continue
		}
		if parens {
			if !isOp(t, ")") {
				return nil, syntaxError(t, "expected ',' or ')' in import list")
			}
			break
		}
		return names, p.endStatement(t)
	}

	end, err := p.advance()
	if err != nil {
		return nil, err
	}
	return names, p.endStatement(end)
}

// parseDotted parses "name (. name)*". after names the keyword the module
// follows, for diagnostics.
func (p *parser) parseDotted(after string) (string, error) {
	t, err := p.advance()
	if err != nil {
		return "", err
	}
	if t.kind != tokName {
		return "", syntaxError(t, "expected module name after "+after)
	}
	parts := []string{t.text}
	for {
		dot, err := p.peek()
		if err != nil {
			return "", err
		}
		if !isOp(dot, ".") {
			return strings.Join(parts, "."), nil
		}
		if _, err := p.advance(); err != nil {
			return "", err
		}
		name, err := p.advance()
		if err != nil {
			return "", err
		}
		if name.kind != tokName {
			return "", syntaxError(name, "expected name after '.' in module path")
		}
		parts = append(parts, name.text)
	}
}

// skipAlias consumes an optional "as name".
func (p *parser) skipAlias() error {
	t, err := p.peek()
	if err != nil {
		return err
	}
	if t.kind != tokName || t.text != "as" {
		return nil
	}
	if _, err := p.advance(); err != nil {
		return err
	}
	name, err := p.advance()
	if err != nil {
		return err
	}
	if name.kind != tokName {
		return syntaxError(name, "expected name after 'as'")
	}
	return nil
}

// endStatement checks that t terminates an import statement.
func (p *parser) endStatement(t token) error {
	switch {
	case t.kind == tokNewline, t.kind == tokEOF, isOp(t, ";"):
		p.stmtStart = true
		return nil
	default:
		return syntaxError(t, "unexpected token in import statement")
	}
}

func isOp(t token, op string) bool { return t.kind == tokOp && t.text == op }

func syntaxError(t token, msg string) *ParseError {
	return &ParseError{Line: t.line, Column: t.col, Msg: msg}
}
