// Package schema compiles FormMetadata into an immutable Schema that
// validates and normalises submitted values.
//
// Build checks the form in stages: the envelope (version and field list),
// then field identity, then each field definition and finally the condition
// graph. Identity problems stop the build early because later stages key
// everything by id and name.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formcompiler/pkg/condition"
	"github.com/goliatone/go-formcompiler/pkg/fieldtype"
	"github.com/goliatone/go-formcompiler/pkg/metadata"
)

// Problem codes for form level checks.
const (
	CodeInvalidVersion    = "invalid_version"
	CodeInvalidFields     = "invalid_fields"
	CodeMissingIdentifier = "missing_identifier"
	CodeDuplicateField    = "duplicate_field"
)

// Kind classifies compile problems.
type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindCircularReference Kind = "CIRCULAR_REFERENCE"
)

// Problem is a compile failure. Field holds the field name, or a form level
// key ("version", "fields") when the problem is not tied to one field.
// Params always carries "field" so messages can name the offender.
type Problem struct {
	Field  string
	Code   string
	Params map[string]any
	Kind   Kind
}

// Option customises Build.
type Option func(*builder)

// WithEvaluator supplies the condition evaluator, typically one carrying
// custom operators.
func WithEvaluator(ev *condition.Evaluator) Option {
	return func(b *builder) {
		if ev != nil {
			b.evaluator = ev
		}
	}
}

type builder struct {
	evaluator *condition.Evaluator
}

// Build compiles meta. It returns a Schema when no problems were found and
// has no side effects.
func Build(meta metadata.FormMetadata, options ...Option) (*Schema, []Problem) {
	b := &builder{}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}
	if b.evaluator == nil {
		b.evaluator = condition.New()
	}

	if problems := checkEnvelope(meta); len(problems) > 0 {
		return nil, problems
	}
	if problems := checkIdentity(meta.Fields); len(problems) > 0 {
		return nil, problems
	}

	s := &Schema{
		id:      meta.ID,
		version: strings.TrimSpace(meta.Version),
		meta:    meta.Clone(),
		byName:  make(map[string]int, len(meta.Fields)),
	}

	var problems []Problem
	for _, field := range meta.Fields {
		frag, err := fieldtype.Build(field)
		if err != nil {
			problems = append(problems, definitionProblem(field, err))
			continue
		}
		s.byName[field.Name] = len(s.fields)
		s.fields = append(s.fields, compiledField{
			id:       field.ID,
			name:     field.Name,
			label:    field.Label,
			fragment: frag,
		})
	}

	plan, condProblems := b.evaluator.Plan(meta.Fields)
	problems = append(problems, conditionProblems(meta.Fields, condProblems)...)
	if len(problems) > 0 {
		return nil, problems
	}
	s.plan = plan
	return s, nil
}

func checkEnvelope(meta metadata.FormMetadata) []Problem {
	var problems []Problem
	if strings.TrimSpace(meta.Version) == "" {
		problems = append(problems, Problem{
			Field:  "version",
			Code:   CodeInvalidVersion,
			Params: map[string]any{"field": "version"},
			Kind:   KindValidation,
		})
	}
	if meta.Fields == nil {
		problems = append(problems, Problem{
			Field:  "fields",
			Code:   CodeInvalidFields,
			Params: map[string]any{"field": "fields"},
			Kind:   KindValidation,
		})
	}
	return problems
}

// checkIdentity reports blank identifiers per field, then every duplicate id
// or name as a single aggregate problem.
func checkIdentity(fields []metadata.FormField) []Problem {
	var problems []Problem
	for i, field := range fields {
		if strings.TrimSpace(field.ID) == "" || strings.TrimSpace(field.Name) == "" {
			problems = append(problems, Problem{
				Field:  "fields",
				Code:   CodeMissingIdentifier,
				Params: map[string]any{"field": "fields", "index": i + 1},
				Kind:   KindValidation,
			})
		}
	}
	if len(problems) > 0 {
		return problems
	}

	var dups []string
	seenIDs := make(map[string]int, len(fields))
	seenNames := make(map[string]int, len(fields))
	for _, field := range fields {
		seenIDs[field.ID]++
		if seenIDs[field.ID] == 2 {
			dups = append(dups, "id "+field.ID)
		}
		seenNames[field.Name]++
		if seenNames[field.Name] == 2 {
			dups = append(dups, "name "+field.Name)
		}
	}
	if len(dups) == 0 {
		return nil
	}
	return []Problem{{
		Field:  "fields",
		Code:   CodeDuplicateField,
		Params: map[string]any{"field": "fields", "duplicates": strings.Join(dups, ", ")},
		Kind:   KindValidation,
	}}
}

func definitionProblem(field metadata.FormField, err error) Problem {
	params := map[string]any{"field": field.Name}
	code := fieldtype.CodeInvalidFieldType

	var defErr *fieldtype.DefinitionError
	if errors.As(err, &defErr) {
		code = defErr.Code
		for k, v := range defErr.Params {
			params[k] = v
		}
	} else {
		params["error"] = fmt.Sprint(err)
	}
	return Problem{Field: field.Name, Code: code, Params: params, Kind: KindValidation}
}

func conditionProblems(fields []metadata.FormField, in []condition.Problem) []Problem {
	if len(in) == 0 {
		return nil
	}
	nameByID := make(map[string]string, len(fields))
	for _, field := range fields {
		nameByID[field.ID] = field.Name
	}

	out := make([]Problem, 0, len(in))
	for _, p := range in {
		name := nameByID[p.FieldID]
		if name == "" {
			name = p.FieldID
		}
		params := map[string]any{"field": name}
		for k, v := range p.Params {
			params[k] = v
		}
		kind := KindValidation
		if p.Circular {
			kind = KindCircularReference
		}
		out = append(out, Problem{Field: name, Code: p.Code, Params: params, Kind: kind})
	}
	return out
}
