// Package expr compiles small boolean visibility rules such as
//
//	plan == "pro" && seats > 1
//	!newsletter || extras.admin
//
// Identifiers resolve against the current form values (dot paths walk nested
// maps) or, with the `extras.` prefix, against caller supplied context.
// Supported operators: ==, !=, <, <=, >, >=, &&, ||, ! and parentheses.
package expr

import (
	"errors"
	"fmt"
	"strings"
)

// Env carries the inputs a Program is evaluated against.
type Env struct {
	Values map[string]any
	Extras map[string]any
}

// Program is a parsed rule. It is immutable and safe for concurrent use.
type Program struct {
	source string
	root   node
	idents []string
}

// Compile parses rule. An empty rule compiles to a program that is always
// true.
func Compile(rule string) (*Program, error) {
	trimmed := strings.TrimSpace(rule)
	prog := &Program{source: trimmed}
	if trimmed == "" {
		return prog, nil
	}

	tokens, err := lex(trimmed)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("expr: unexpected token %q", p.peek().text)
	}
	prog.root = root
	prog.idents = p.identifiers()
	return prog, nil
}

// MustCompile panics when rule does not parse. Intended for tests and static
// rules.
func MustCompile(rule string) *Program {
	prog, err := Compile(rule)
	if err != nil {
		panic(err)
	}
	return prog
}

// Evaluate compiles and runs rule in one step.
func Evaluate(rule string, env Env) (bool, error) {
	prog, err := Compile(rule)
	if err != nil {
		return false, err
	}
	return prog.Eval(env)
}

// Source returns the trimmed rule text.
func (p *Program) Source() string { return p.source }

// Identifiers lists the value identifiers the rule reads, excluding extras,
// sorted and de-duplicated. Dot paths are reduced to their first segment so
// they can be matched against field names.
func (p *Program) Identifiers() []string {
	return append([]string(nil), p.idents...)
}

// Eval runs the program against env.
func (p *Program) Eval(env Env) (bool, error) {
	if p == nil || p.root == nil {
		return true, nil
	}
	return p.root.eval(env)
}

var errEmptyExpression = errors.New("expr: empty expression")
