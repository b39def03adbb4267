// Copyright (C) 2025 Michael J. Fromberger. All Rights Reserved.

package cond

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/creachadair/jtransform/internal/escape"
	"github.com/creachadair/jtransform/jpath"
	"github.com/creachadair/jtransform/value"
	"github.com/creachadair/jtransform/xerr"
	"go4.org/mem"
)

/*
Grammar:

      expr = or
        or = and { "||" and }
       and = term { "&&" term }
      term = "(" expr ")"
      term = operand CMP operand
      term = "true" | "false"
   operand = PATH | STRING | NUMBER | "true" | "false" | "null" | WORD
       CMP = "==" | "!=" | ">=" | "<=" | ">" | "<" | "contains" | "startsWith" | "endsWith"
*/

// An Expr is a compiled condition expression. An Expr is immutable, and may
// be evaluated concurrently in different environments.
type Expr struct {
	text string
	root node
}

// Parse parses text as a condition expression. Errors have kind
// xerr.ErrInvalidCondition, and carry the offending text.
func Parse(text string) (*Expr, error) {
	toks, err := scanAll(text)
	if err != nil {
		return nil, xerr.InvalidCondition(text, err)
	}
	p := &parser{toks: toks}
	root, err := p.parse()
	if err != nil {
		return nil, xerr.InvalidCondition(text, err)
	}
	return &Expr{text: text, root: root}, nil
}

// String returns the source text of e.
func (e *Expr) String() string { return e.text }

// Tree returns a fully-parenthesized rendering of the parsed structure of e.
func (e *Expr) Tree() string { return e.root.String() }

type token struct {
	tok  Token
	text string
	pos  int
}

func scanAll(text string) ([]token, error) {
	var out []token
	s := NewScanner(text)
	for {
		err := s.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		out = append(out, token{tok: s.Token(), text: s.Text(), pos: s.Span().Pos})
	}
	if len(out) == 0 {
		return nil, errors.New("empty expression")
	}
	return out, nil
}

// A node is an element of the syntax tree of a condition.
type node interface {
	eval(*env) (bool, error)
	String() string
}

// orExpr is true if any of its terms is true.
type orExpr []node

// andExpr is true if all of its terms are true.
type andExpr []node

// litExpr is a Boolean constant.
type litExpr bool

// cmpExpr compares two operands.
type cmpExpr struct {
	op       Token
	lhs, rhs operand
}

// An operand is either a path to be resolved or a literal value.
type operand struct {
	path string      // if non-empty, a path reference
	lit  value.Value // otherwise, a literal
}

func (o operand) String() string {
	if o.path != "" {
		return o.path
	}
	if s, ok := o.lit.(value.String); ok {
		return s.JSON()
	}
	return o.lit.JSON()
}

func (o orExpr) String() string  { return joinNodes(o, " || ") }
func (a andExpr) String() string { return joinNodes(a, " && ") }
func (l litExpr) String() string { return fmt.Sprint(bool(l)) }
func (c cmpExpr) String() string {
	op := c.op.String()
	if c.op < Contains {
		op = strings.Trim(op, `"`)
	}
	return c.lhs.String() + " " + op + " " + c.rhs.String()
}

func joinNodes[T ~[]node](ns T, sep string) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = n.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// parser is a recursive-descent parser over a token slice. Syntax errors are
// reported by panicking with a *syntaxError, recovered by parse.
type parser struct {
	toks []token
	pos  int
}

type syntaxError struct{ err error }

func (p *parser) parse() (_ node, err error) {
	defer func() {
		if x := recover(); x != nil {
			se, ok := x.(*syntaxError)
			if !ok {
				panic(x)
			}
			err = se.err
		}
	}()
	n := p.parseOr()
	if p.pos < len(p.toks) {
		p.failf("unexpected %v %q", p.toks[p.pos].tok, p.toks[p.pos].text)
	}
	return n, nil
}

func (p *parser) failf(msg string, args ...any) {
	if p.pos < len(p.toks) {
		msg = fmt.Sprintf("at offset %d: ", p.toks[p.pos].pos) + msg
	}
	panic(&syntaxError{fmt.Errorf(msg, args...)})
}

func (p *parser) peek() Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos].tok
	}
	return Invalid
}

func (p *parser) next() token {
	if p.pos >= len(p.toks) {
		p.failf("unexpected end of expression")
	}
	t := p.toks[p.pos]
	p.pos++
	return t
}

func (p *parser) parseOr() node {
	terms := orExpr{p.parseAnd()}
	for p.peek() == Or {
		p.pos++
		terms = append(terms, p.parseAnd())
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return terms
}

func (p *parser) parseAnd() node {
	terms := andExpr{p.parseTerm()}
	for p.peek() == And {
		p.pos++
		terms = append(terms, p.parseTerm())
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return terms
}

func (p *parser) parseTerm() node {
	if p.peek() == LParen {
		p.pos++
		n := p.parseOr()
		if t := p.next(); t.tok != RParen {
			p.pos--
			p.failf("expected %v, got %v", RParen, t.tok)
		}
		return n
	}

	lhs := p.next()
	if !p.peek().isComparison() {
		switch lhs.tok {
		case True:
			return litExpr(true)
		case False:
			return litExpr(false)
		}
		p.pos--
		p.failf("expected comparison after %q", lhs.text)
	}
	op := p.next().tok
	rhs := p.next()
	return cmpExpr{op: op, lhs: p.operand(lhs), rhs: p.operand(rhs)}
}

func (p *parser) operand(t token) operand {
	switch t.tok {
	case Path:
		if _, err := jpath.Parse(t.text); err != nil {
			p.failf("invalid path: %v", err)
		}
		return operand{path: t.text}
	case String:
		dec, err := escape.Unquote(mem.S(t.text[1 : len(t.text)-1]))
		if err != nil {
			p.failf("invalid string %s: %v", t.text, err)
		}
		return operand{lit: value.String(dec)}
	case Number:
		return operand{lit: value.Number(strings.TrimPrefix(t.text, "+"))}
	case True:
		return operand{lit: value.Bool(true)}
	case False:
		return operand{lit: value.Bool(false)}
	case Null:
		return operand{lit: value.Null}
	case Word:
		return operand{lit: value.String(t.text)}
	}
	p.failf("unexpected %v %q", t.tok, t.text)
	panic("unreachable")
}
