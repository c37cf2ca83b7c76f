// Package condition decides field visibility from declarative conditions and
// guards the condition graph against cycles.
//
// Conditions are checked once, when a Plan is built: references must point at
// declared fields, operators must be registered, expressions must parse and
// the dependency graph must be acyclic. Evaluating a Plan afterwards is a pure
// read of the current values.
package condition

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formcompiler/pkg/condition/expr"
	"github.com/goliatone/go-formcompiler/pkg/metadata"
)

// Problem codes reported while planning.
const (
	CodeUnknownField      = "unknown_condition_field"
	CodeUnknownOperator   = "unknown_operator"
	CodeInvalidExpression = "invalid_expression"
	CodeIncompleteRule    = "incomplete_condition"
	CodeCircularReference = "circular_reference"
)

// Problem describes a condition that cannot be planned. Circular is set for
// dependency cycles so callers can classify them separately.
type Problem struct {
	FieldID  string
	Code     string
	Params   map[string]any
	Circular bool
}

// Option customises an Evaluator.
type Option func(*Evaluator)

// WithOperator registers or replaces an operator. Empty names and nil
// operators are ignored.
func WithOperator(name string, op Operator) Option {
	return func(e *Evaluator) {
		name = strings.TrimSpace(name)
		if name == "" || op == nil {
			return
		}
		e.operators[name] = op
	}
}

// Evaluator holds the operator registry. It is safe for concurrent use once
// constructed.
type Evaluator struct {
	mu        sync.RWMutex
	operators map[string]Operator
}

// New returns an Evaluator with the built-in operators plus any overrides.
func New(options ...Option) *Evaluator {
	e := &Evaluator{operators: builtinOperators()}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Register adds an operator after construction.
func (e *Evaluator) Register(name string, op Operator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	WithOperator(name, op)(e)
}

// Operators lists the registered operator names, sorted.
func (e *Evaluator) Operators() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.operators))
	for name := range e.operators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Evaluator) operator(name string) (Operator, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	op, ok := e.operators[name]
	return op, ok
}

type rule struct {
	fieldID  string
	refName  string
	op       Operator
	expected any
	program  *expr.Program
	deps     []string
}

func (r *rule) visible(values map[string]any, extras map[string]any) bool {
	if r.program != nil {
		ok, err := r.program.Eval(expr.Env{Values: values, Extras: extras})
		return err == nil && ok
	}
	actual, _ := expr.Lookup(values, r.refName)
	return r.op(actual, r.expected)
}

// Plan is a validated, immutable visibility program for one form.
type Plan struct {
	order []string
	rules map[string]*rule
}

// Plan validates every condition in fields and returns an evaluable plan. A
// plan is only returned when no problems were found.
func (e *Evaluator) Plan(fields []metadata.FormField) (*Plan, []Problem) {
	plan, problems := e.build(fields, true)
	if len(problems) > 0 {
		return nil, problems
	}
	if cycle := DetectCycle(plan.order, plan.graph()); len(cycle) > 0 {
		return nil, []Problem{{
			FieldID:  cycle[0],
			Code:     CodeCircularReference,
			Params:   map[string]any{"cycle": strings.Join(cycle, " → ")},
			Circular: true,
		}}
	}
	return plan, nil
}

// ComputeVisibility evaluates fields against values without the compile-time
// checks. Values are keyed by field name; the result is keyed by field id.
// Conditions that cannot be resolved leave the field visible.
func (e *Evaluator) ComputeVisibility(fields []metadata.FormField, values map[string]any) map[string]bool {
	plan, _ := e.build(fields, false)
	return plan.Visibility(values, nil)
}

// Visibility evaluates the plan. extras are exposed to expressions under the
// `extras.` prefix.
func (p *Plan) Visibility(values map[string]any, extras map[string]any) map[string]bool {
	out := make(map[string]bool, len(p.order))
	for _, id := range p.order {
		r, ok := p.rules[id]
		if !ok {
			out[id] = true
			continue
		}
		out[id] = r.visible(values, extras)
	}
	return out
}

// Dependencies returns the field ids each conditional field depends on.
func (p *Plan) Dependencies() map[string][]string {
	return p.graph()
}

func (p *Plan) graph() map[string][]string {
	graph := make(map[string][]string, len(p.order))
	for _, id := range p.order {
		if r, ok := p.rules[id]; ok {
			graph[id] = append([]string(nil), r.deps...)
		} else {
			graph[id] = nil
		}
	}
	return graph
}

func (e *Evaluator) build(fields []metadata.FormField, strict bool) (*Plan, []Problem) {
	plan := &Plan{rules: make(map[string]*rule)}
	byID := make(map[string]metadata.FormField, len(fields))
	idByName := make(map[string]string, len(fields))
	for _, field := range fields {
		plan.order = append(plan.order, field.ID)
		byID[field.ID] = field
		idByName[field.Name] = field.ID
	}

	var problems []Problem
	for _, field := range fields {
		cond := field.Condition
		if cond == nil {
			continue
		}

		if strings.TrimSpace(cond.Expression) != "" {
			r, problem := e.expressionRule(field.ID, cond.Expression, idByName, fields)
			if problem != nil {
				problems = append(problems, *problem)
				continue
			}
			plan.rules[field.ID] = r
			continue
		}

		if strings.TrimSpace(cond.FieldID) == "" {
			problems = append(problems, Problem{FieldID: field.ID, Code: CodeIncompleteRule})
			continue
		}
		target, ok := byID[cond.FieldID]
		if !ok {
			problems = append(problems, Problem{
				FieldID: field.ID,
				Code:    CodeUnknownField,
				Params:  map[string]any{"ref": cond.FieldID},
			})
			continue
		}
		opName := strings.TrimSpace(cond.Operator)
		if opName == "" {
			opName = OpEquals
		}
		op, ok := e.operator(opName)
		if !ok {
			problems = append(problems, Problem{
				FieldID: field.ID,
				Code:    CodeUnknownOperator,
				Params:  map[string]any{"operator": opName},
			})
			continue
		}
		plan.rules[field.ID] = &rule{
			fieldID:  field.ID,
			refName:  target.Name,
			op:       op,
			expected: cond.Value,
			deps:     []string{target.ID},
		}
	}

	if !strict {
		problems = nil
	}
	return plan, problems
}

func (e *Evaluator) expressionRule(fieldID, source string, idByName map[string]string, fields []metadata.FormField) (*rule, *Problem) {
	prog, err := expr.Compile(source)
	if err != nil {
		return nil, &Problem{
			FieldID: fieldID,
			Code:    CodeInvalidExpression,
			Params:  map[string]any{"expression": source, "error": err.Error()},
		}
	}

	referenced := make(map[string]struct{})
	for _, name := range prog.Identifiers() {
		id, ok := idByName[name]
		if !ok {
			return nil, &Problem{
				FieldID: fieldID,
				Code:    CodeUnknownField,
				Params:  map[string]any{"ref": name},
			}
		}
		referenced[id] = struct{}{}
	}

	// keep dependencies in declaration order for deterministic cycle paths
	var deps []string
	for _, field := range fields {
		if _, ok := referenced[field.ID]; ok {
			deps = append(deps, field.ID)
		}
	}
	return &rule{fieldID: fieldID, program: prog, deps: deps}, nil
}
