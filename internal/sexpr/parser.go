package sexpr

import (
	"fmt"

	"layerkeyd/internal/diag"
)

type parser struct {
	toks   []token
	pos    int
	fileID int
}

func (p *parser) cur() token { return p.toks[p.pos] }

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) atEOF() bool { return p.cur().typ == tokEOF }

func (p *parser) span(t token) diag.Span {
	return diag.Span{FileID: p.fileID, ByteStart: t.byteStart, ByteEnd: t.byteEnd, Line: t.line, Column: t.column}
}

// parseTopLevel parses every top-level form (each must be a parenthesized
// list; a bare atom at top level is a Syntax error).
func (p *parser) parseTopLevel() ([]*List, error) {
	var forms []*List
	for !p.atEOF() {
		if p.cur().typ != tokLParen {
			t := p.cur()
			return forms, fmt.Errorf("line %d, column %d: expected '(' to start a top-level form, found %q", t.line, t.column, t.literal)
		}
		form, err := p.parseList()
		if err != nil {
			return forms, err
		}
		forms = append(forms, form)
	}
	return forms, nil
}

func (p *parser) parseList() (*List, error) {
	open := p.advance() // consume '('
	list := &List{}
	for {
		if p.atEOF() {
			return nil, fmt.Errorf("line %d, column %d: unclosed list", open.line, open.column)
		}
		if p.cur().typ == tokRParen {
			close := p.advance()
			list.SpanVal = diag.Span{
				FileID:    p.fileID,
				ByteStart: open.byteStart,
				ByteEnd:   close.byteEnd,
				Line:      open.line,
				Column:    open.column,
			}
			return list, nil
		}
		node, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, node)
	}
}

func (p *parser) parseNode() (Node, error) {
	switch p.cur().typ {
	case tokLParen:
		return p.parseList()
	case tokAtom, tokString:
		t := p.advance()
		return &Atom{Value: t.literal, Quoted: t.quoted, SpanVal: p.span(t)}, nil
	default:
		t := p.cur()
		return nil, fmt.Errorf("line %d, column %d: unexpected token %q", t.line, t.column, t.literal)
	}
}

// ParseString parses one file's top-level forms without include expansion;
// used internally by Read and directly by tests.
func ParseString(fileID int, src string) ([]*List, error) {
	lx := newLexer(src)
	toks, err := lx.tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, fileID: fileID}
	return p.parseTopLevel()
}
