package expr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type node interface {
	eval(env Env) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(env Env) (bool, error) {
	ok, err := n.left.eval(env)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(env)
}

type andNode struct{ left, right node }

func (n andNode) eval(env Env) (bool, error) {
	ok, err := n.left.eval(env)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(env)
}

type notNode struct{ inner node }

func (n notNode) eval(env Env) (bool, error) {
	ok, err := n.inner.eval(env)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type truthyNode struct{ ident string }

func (n truthyNode) eval(env Env) (bool, error) {
	value, _ := lookup(env, n.ident)
	return Truthy(value), nil
}

type compareNode struct {
	ident string
	op    tokenKind
	lit   token
}

func (n compareNode) eval(env Env) (bool, error) {
	value, _ := lookup(env, n.ident)

	switch n.lit.kind {
	case tokNull:
		switch n.op {
		case tokEq:
			return value == nil, nil
		case tokNeq:
			return value != nil, nil
		}
	case tokBool:
		want := n.lit.text == "true"
		got, _ := ToBool(value)
		switch n.op {
		case tokEq:
			return got == want, nil
		case tokNeq:
			return got != want, nil
		}
	case tokNumber:
		want, err := strconv.ParseFloat(n.lit.text, 64)
		if err != nil {
			return false, fmt.Errorf("expr: invalid number literal %q", n.lit.text)
		}
		got, ok := ToNumber(value)
		if !ok {
			// a missing or non-numeric value only satisfies inequality
			return n.op == tokNeq, nil
		}
		return compareOrdered(n.op, cmpFloat(got, want)), nil
	case tokString, tokIdent:
		return compareOrdered(n.op, strings.Compare(ToString(value), n.lit.text)), nil
	}
	return false, fmt.Errorf("expr: operator %q is not supported for %s literals", opText(n.op), kindText(n.lit.kind))
}

func compareOrdered(op tokenKind, c int) bool {
	switch op {
	case tokEq:
		return c == 0
	case tokNeq:
		return c != 0
	case tokLt:
		return c < 0
	case tokLte:
		return c <= 0
	case tokGt:
		return c > 0
	case tokGte:
		return c >= 0
	}
	return false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

type parser struct {
	tokens []token
	pos    int
	idents map[string]struct{}
}

func (p *parser) done() bool { return p.pos >= len(p.tokens) }

func (p *parser) peek() token {
	if p.done() {
		return token{}
	}
	return p.tokens[p.pos]
}

func (p *parser) accept(kind tokenKind) bool {
	if p.done() || p.tokens[p.pos].kind != kind {
		return false
	}
	p.pos++
	return true
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(tokOr) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left, right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.accept(tokAnd) {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = andNode{left, right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.accept(tokNot) {
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	if p.accept(tokLParen) {
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.accept(tokRParen) {
			return nil, fmt.Errorf("expr: missing closing ')'")
		}
		return inner, nil
	}

	if p.done() {
		return nil, errEmptyExpression
	}
	tok := p.tokens[p.pos]
	if tok.kind != tokIdent {
		return nil, fmt.Errorf("expr: expected identifier, got %q", tok.text)
	}
	p.pos++
	p.track(tok.text)

	if p.done() {
		return truthyNode{tok.text}, nil
	}
	op := p.tokens[p.pos].kind
	switch op {
	case tokEq, tokNeq, tokLt, tokLte, tokGt, tokGte:
		p.pos++
	default:
		return truthyNode{tok.text}, nil
	}

	if p.done() {
		return nil, fmt.Errorf("expr: missing literal after %q", opText(op))
	}
	lit := p.tokens[p.pos]
	switch lit.kind {
	case tokString, tokNumber, tokBool, tokNull, tokIdent:
		// bare words on the right-hand side are string literals
	default:
		return nil, fmt.Errorf("expr: expected literal, got %q", lit.text)
	}
	p.pos++
	return compareNode{ident: tok.text, op: op, lit: lit}, nil
}

func (p *parser) track(ident string) {
	if strings.HasPrefix(strings.ToLower(ident), "extras.") {
		return
	}
	if idx := strings.IndexByte(ident, '.'); idx > 0 {
		ident = ident[:idx]
	}
	if p.idents == nil {
		p.idents = make(map[string]struct{})
	}
	p.idents[ident] = struct{}{}
}

func (p *parser) identifiers() []string {
	out := make([]string, 0, len(p.idents))
	for name := range p.idents {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func opText(op tokenKind) string {
	switch op {
	case tokEq:
		return "=="
	case tokNeq:
		return "!="
	case tokLt:
		return "<"
	case tokLte:
		return "<="
	case tokGt:
		return ">"
	case tokGte:
		return ">="
	}
	return "?"
}

func kindText(kind tokenKind) string {
	switch kind {
	case tokNull:
		return "null"
	case tokBool:
		return "bool"
	case tokNumber:
		return "number"
	}
	return "string"
}
