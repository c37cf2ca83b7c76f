package condition

import (
	"strings"

	"github.com/goliatone/go-formcompiler/pkg/condition/expr"
)

// Built-in operator names.
const (
	OpEquals         = "equals"
	OpNotEquals      = "not_equals"
	OpContains       = "contains"
	OpNotContains    = "not_contains"
	OpGreaterThan    = "greater_than"
	OpLessThan       = "less_than"
	OpGreaterOrEqual = "greater_or_equal"
	OpLessOrEqual    = "less_or_equal"
	OpIn             = "in"
	OpNotIn          = "not_in"
	OpIsEmpty        = "is_empty"
	OpIsNotEmpty     = "is_not_empty"
)

// Operator compares the referenced field's current value (actual) with the
// condition's configured value (expected).
type Operator func(actual, expected any) bool

func builtinOperators() map[string]Operator {
	return map[string]Operator{
		OpEquals:         looseEqual,
		OpNotEquals:      negate(looseEqual),
		OpContains:       contains,
		OpNotContains:    negate(contains),
		OpGreaterThan:    ordered(func(a, b float64) bool { return a > b }),
		OpLessThan:       ordered(func(a, b float64) bool { return a < b }),
		OpGreaterOrEqual: ordered(func(a, b float64) bool { return a >= b }),
		OpLessOrEqual:    ordered(func(a, b float64) bool { return a <= b }),
		OpIn:             in,
		OpNotIn:          negate(in),
		OpIsEmpty:        func(actual, _ any) bool { return isEmpty(actual) },
		OpIsNotEmpty:     func(actual, _ any) bool { return !isEmpty(actual) },
	}
}

func negate(op Operator) Operator {
	return func(actual, expected any) bool { return !op(actual, expected) }
}

func ordered(cmp func(a, b float64) bool) Operator {
	return func(actual, expected any) bool {
		a, ok := expr.ToNumber(actual)
		if !ok {
			return false
		}
		b, ok := expr.ToNumber(expected)
		if !ok {
			return false
		}
		return cmp(a, b)
	}
}

// looseEqual compares submitted values, which usually arrive as strings, with
// typed expectations from metadata.
func looseEqual(actual, expected any) bool {
	switch want := expected.(type) {
	case nil:
		return isEmpty(actual)
	case bool:
		got, ok := expr.ToBool(actual)
		return ok && got == want
	case int, int32, int64, uint, uint32, uint64, float32, float64:
		got, ok := expr.ToNumber(actual)
		if !ok {
			return false
		}
		n, _ := expr.ToNumber(want)
		return got == n
	}
	if actual == nil {
		return false
	}
	return expr.ToString(actual) == expr.ToString(expected)
}

func contains(actual, expected any) bool {
	switch got := actual.(type) {
	case nil:
		return false
	case string:
		return strings.Contains(got, expr.ToString(expected))
	case []string:
		for _, item := range got {
			if looseEqual(item, expected) {
				return true
			}
		}
		return false
	case []any:
		for _, item := range got {
			if looseEqual(item, expected) {
				return true
			}
		}
		return false
	}
	return strings.Contains(expr.ToString(actual), expr.ToString(expected))
}

func in(actual, expected any) bool {
	switch list := expected.(type) {
	case []any:
		for _, item := range list {
			if looseEqual(actual, item) {
				return true
			}
		}
	case []string:
		for _, item := range list {
			if looseEqual(actual, item) {
				return true
			}
		}
	case string:
		for _, item := range strings.Split(list, ",") {
			if looseEqual(actual, strings.TrimSpace(item)) {
				return true
			}
		}
	}
	return false
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}
