package schema

import (
	"github.com/goliatone/go-formcompiler/pkg/condition"
	"github.com/goliatone/go-formcompiler/pkg/fieldtype"
	"github.com/goliatone/go-formcompiler/pkg/metadata"
)

type compiledField struct {
	id       string
	name     string
	label    string
	fragment *fieldtype.Fragment
}

// Schema is a compiled form. It is immutable and safe for concurrent use.
type Schema struct {
	id      string
	version string
	meta    metadata.FormMetadata
	fields  []compiledField
	byName  map[string]int
	plan    *condition.Plan
}

// FieldIssue is a rejected value for one field.
type FieldIssue struct {
	FieldID string
	Field   string
	Label   string
	fieldtype.Issue
}

// ID returns the form id, which may be empty.
func (s *Schema) ID() string { return s.id }

// Version returns the form version.
func (s *Schema) Version() string { return s.version }

// Metadata returns a copy of the metadata the schema was built from.
func (s *Schema) Metadata() metadata.FormMetadata { return s.meta.Clone() }

// Names lists field names in declaration order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.name
	}
	return out
}

// Fragment returns the validator for the named field.
func (s *Schema) Fragment(name string) (*fieldtype.Fragment, bool) {
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.fields[i].fragment, true
}

// Visibility evaluates field conditions against values (keyed by field name).
// The result is keyed by field id.
func (s *Schema) Visibility(values map[string]any, extras map[string]any) map[string]bool {
	return s.plan.Visibility(values, extras)
}

// Dependencies returns, per field id, the ids its condition depends on.
func (s *Schema) Dependencies() map[string][]string {
	return s.plan.Dependencies()
}

// Apply validates data and returns the normalised values together with one
// issue per offending field, in declaration order. Hidden fields are neither
// validated nor copied; keys that match no field are dropped. A nil
// visibility map is computed from data.
func (s *Schema) Apply(data map[string]any, visibility map[string]bool) (map[string]any, []FieldIssue) {
	if visibility == nil {
		visibility = s.plan.Visibility(data, nil)
	}

	out := make(map[string]any, len(s.fields))
	var issues []FieldIssue
	for _, f := range s.fields {
		if visible, ok := visibility[f.id]; ok && !visible {
			continue
		}
		value, present, issue := f.fragment.Apply(data[f.name])
		if issue != nil {
			issues = append(issues, FieldIssue{
				FieldID: f.id,
				Field:   f.name,
				Label:   f.label,
				Issue:   *issue,
			})
			continue
		}
		if present {
			out[f.name] = value
		}
	}
	return out, issues
}
