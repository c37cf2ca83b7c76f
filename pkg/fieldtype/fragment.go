package fieldtype

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-formcompiler/pkg/metadata"
)

// Value issue codes produced while validating submitted data.
const (
	CodeRequired         = "required"
	CodeInvalidType      = "invalid_type"
	CodeInvalidString    = "invalid_string"
	CodeInvalidDate      = "invalid_date"
	CodeInvalidEnumValue = "invalid_enum_value"
	CodeTooSmall         = "too_small"
	CodeTooBig           = "too_big"
)

// Definition codes produced while building a fragment from metadata.
const (
	CodeInvalidFieldType = "invalid_field_type"
	CodeMissingOptions   = "missing_options"
	CodeDuplicateOption  = "duplicate_option"
	CodeInvalidPattern   = "invalid_pattern"
	CodeInvalidRule      = "invalid_rule"
)

// Issue describes why a submitted value was rejected. Variant narrows Code
// for catalog lookups ("string" or "number" for bound violations). Message,
// when set, is a field supplied override and bypasses the catalog.
type Issue struct {
	Code    string
	Variant string
	Params  map[string]any
	Message string
}

// DefinitionError reports a field definition the registry cannot compile.
type DefinitionError struct {
	Code   string
	Params map[string]any
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("fieldtype: %s %v", e.Code, e.Params)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.DateOnly,
}

// Fragment validates and coerces the value of a single field. Fragments are
// immutable after Build and safe for concurrent use.
type Fragment struct {
	kind      Kind
	required  bool
	options   []string
	minLength *int
	maxLength *int
	min       *float64
	max       *float64
	pattern   *regexp.Regexp
	message   string
}

// Build resolves the field's kind and prepares its validator.
func Build(field metadata.FormField) (*Fragment, error) {
	kind, ok := Lookup(field.Type)
	if !ok {
		return nil, &DefinitionError{
			Code:   CodeInvalidFieldType,
			Params: map[string]any{"type": field.Type, "supported": strings.Join(Tags(), ", ")},
		}
	}

	frag := &Fragment{kind: kind, required: field.Required}

	if _, isSelect := kind.(Select); isSelect {
		if len(field.Options) == 0 {
			return nil, &DefinitionError{Code: CodeMissingOptions}
		}
		seen := make(map[string]struct{}, len(field.Options))
		for _, opt := range field.Options {
			if _, dup := seen[opt.Value]; dup {
				return nil, &DefinitionError{Code: CodeDuplicateOption, Params: map[string]any{"value": opt.Value}}
			}
			seen[opt.Value] = struct{}{}
			frag.options = append(frag.options, opt.Value)
		}
	}

	if rules := field.Validation; rules != nil {
		if err := frag.applyRules(*rules); err != nil {
			return nil, err
		}
	}
	return frag, nil
}

func (f *Fragment) applyRules(rules metadata.Rules) error {
	if rules.MinLength != nil && *rules.MinLength < 0 {
		return &DefinitionError{Code: CodeInvalidRule, Params: map[string]any{"rule": "minLength"}}
	}
	if rules.MaxLength != nil && *rules.MaxLength < 0 {
		return &DefinitionError{Code: CodeInvalidRule, Params: map[string]any{"rule": "maxLength"}}
	}
	if rules.MinLength != nil && rules.MaxLength != nil && *rules.MinLength > *rules.MaxLength {
		return &DefinitionError{Code: CodeInvalidRule, Params: map[string]any{"rule": "minLength"}}
	}
	if rules.Min != nil && rules.Max != nil && *rules.Min > *rules.Max {
		return &DefinitionError{Code: CodeInvalidRule, Params: map[string]any{"rule": "min"}}
	}
	if rules.Pattern != "" {
		re, err := regexp.Compile(rules.Pattern)
		if err != nil {
			return &DefinitionError{Code: CodeInvalidPattern, Params: map[string]any{"pattern": rules.Pattern}}
		}
		f.pattern = re
	}
	f.minLength = rules.MinLength
	f.maxLength = rules.MaxLength
	f.min = rules.Min
	f.max = rules.Max
	f.message = strings.TrimSpace(rules.Message)
	return nil
}

// Kind returns the field kind.
func (f *Fragment) Kind() Kind { return f.kind }

// Required reports whether an empty value is rejected.
func (f *Fragment) Required() bool { return f.required }

// Options returns the allowed values of a select field.
func (f *Fragment) Options() []string { return append([]string(nil), f.options...) }

// Apply validates raw. present is false when the value is empty on an
// optional field, in which case the key should be omitted from normalised
// output.
func (f *Fragment) Apply(raw any) (value any, present bool, issue *Issue) {
	if isEmpty(raw) {
		if f.required {
			return nil, false, &Issue{Code: CodeRequired}
		}
		return nil, false, nil
	}

	value, issue = f.coerce(raw)
	if issue != nil {
		return nil, false, issue
	}

	if b, ok := value.(bool); ok && f.required && !b {
		return nil, false, &Issue{Code: CodeRequired}
	}

	if issue = f.checkRules(value); issue != nil {
		if f.message != "" {
			issue.Message = f.message
		}
		return nil, false, issue
	}
	return value, true, nil
}

func (f *Fragment) coerce(raw any) (any, *Issue) {
	switch f.kind.(type) {
	case Text, TextArea:
		s, ok := coerceString(raw)
		if !ok {
			return nil, f.invalidType(raw)
		}
		return s, nil
	case Number:
		n, ok := coerceNumber(raw)
		if !ok {
			return nil, f.invalidType(raw)
		}
		return n, nil
	case Checkbox:
		b, ok := coerceBool(raw)
		if !ok {
			return nil, f.invalidType(raw)
		}
		return b, nil
	case Select:
		s, ok := coerceString(raw)
		if !ok {
			return nil, f.invalidType(raw)
		}
		for _, opt := range f.options {
			if opt == s {
				return s, nil
			}
		}
		return nil, &Issue{
			Code:   CodeInvalidEnumValue,
			Params: map[string]any{"options": strings.Join(f.options, ", "), "received": s},
		}
	case Date:
		return coerceDate(raw)
	default:
		return nil, f.invalidType(raw)
	}
}

func (f *Fragment) checkRules(value any) *Issue {
	switch v := value.(type) {
	case string:
		if _, isSelect := f.kind.(Select); isSelect {
			return nil
		}
		length := utf8.RuneCountInString(v)
		if f.minLength != nil && length < *f.minLength {
			return &Issue{Code: CodeTooSmall, Variant: "string", Params: map[string]any{"minimum": *f.minLength}}
		}
		if f.maxLength != nil && length > *f.maxLength {
			return &Issue{Code: CodeTooBig, Variant: "string", Params: map[string]any{"maximum": *f.maxLength}}
		}
		if f.pattern != nil && !f.pattern.MatchString(v) {
			return &Issue{Code: CodeInvalidString, Params: map[string]any{"validation": "regex"}}
		}
	case float64:
		if f.min != nil && v < *f.min {
			return &Issue{Code: CodeTooSmall, Variant: "number", Params: map[string]any{"minimum": formatNumber(*f.min)}}
		}
		if f.max != nil && v > *f.max {
			return &Issue{Code: CodeTooBig, Variant: "number", Params: map[string]any{"maximum": formatNumber(*f.max)}}
		}
	}
	return nil
}

func (f *Fragment) invalidType(raw any) *Issue {
	return &Issue{
		Code:   CodeInvalidType,
		Params: map[string]any{"expected": f.kind.Expected(), "received": typeName(raw)},
	}
}

func isEmpty(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case *string:
		return v == nil || *v == ""
	default:
		return false
	}
}

func coerceString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case *string:
		return *v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), true
	case float64:
		return formatNumber(v), true
	case float32:
		return formatNumber(float64(v)), true
	default:
		return "", false
	}
}

func coerceNumber(raw any) (float64, bool) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int8:
		n = float64(v)
	case int16:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	case uint:
		n = float64(v)
	case uint8:
		n = float64(v)
	case uint16:
		n = float64(v)
	case uint32:
		n = float64(v)
	case uint64:
		n = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		n = parsed
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func coerceBool(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "on", "yes", "1":
			return true, true
		case "false", "off", "no", "0":
			return false, true
		}
		return false, false
	case int:
		if v == 0 || v == 1 {
			return v == 1, true
		}
	case float64:
		if v == 0 || v == 1 {
			return v == 1, true
		}
	}
	return false, false
}

func coerceDate(raw any) (any, *Issue) {
	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return nil, &Issue{Code: CodeInvalidDate}
		}
		return v, nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return nil, &Issue{Code: CodeInvalidDate}
		}
		return *v, nil
	case string:
		trimmed := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, trimmed); err == nil {
				return parsed, nil
			}
		}
		return nil, &Issue{Code: CodeInvalidDate}
	default:
		return nil, &Issue{
			Code:   CodeInvalidType,
			Params: map[string]any{"expected": Date{}.Expected(), "received": typeName(raw)},
		}
	}
}

func typeName(raw any) string {
	switch raw.(type) {
	case nil:
		return "undefined"
	case string, *string:
		return "string"
	case bool:
		return "boolean"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return "number"
	case time.Time, *time.Time:
		return "date"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", raw)
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
