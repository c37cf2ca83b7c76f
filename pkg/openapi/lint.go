package openapi

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

var hintKeys = []string{"condition", "label", "order", "placeholder", "widget"}

// Violation is an unsupported or malformed x-formgen extension.
type Violation struct {
	Location string
	Message  string
}

func (v Violation) String() string { return v.Location + " -> " + v.Message }

// HintKeys lists the supported x-formgen keys.
func HintKeys() []string { return append([]string(nil), hintKeys...) }

// Lint reports x-formgen extensions the importer would ignore or reject,
// sorted by location.
func (i *Importer) Lint(ctx context.Context, data []byte) ([]Violation, error) {
	doc, err := i.load(ctx, data)
	if err != nil {
		return nil, err
	}

	var out []Violation
	for _, op := range operations(doc) {
		base := []string{"operation", idOf(op)}
		out = append(out, lintExtensions(base, op.Extensions)...)
		if op.RequestBody == nil || op.RequestBody.Value == nil {
			continue
		}
		mediaTypes := make([]string, 0, len(op.RequestBody.Value.Content))
		for mt := range op.RequestBody.Value.Content {
			mediaTypes = append(mediaTypes, mt)
		}
		sort.Strings(mediaTypes)
		for _, mt := range mediaTypes {
			media := op.RequestBody.Value.Content[mt]
			if media == nil {
				continue
			}
			out = append(out, lintSchema(appendPath(base, "requestBody", mt), media.Schema, map[*openapi3.Schema]bool{})...)
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Location == out[b].Location {
			return out[a].Message < out[b].Message
		}
		return out[a].Location < out[b].Location
	})
	return out, nil
}

func lintSchema(path []string, ref *openapi3.SchemaRef, seen map[*openapi3.Schema]bool) []Violation {
	if ref == nil || ref.Value == nil || seen[ref.Value] {
		return nil
	}
	seen[ref.Value] = true
	schema := ref.Value

	out := lintExtensions(path, schema.Extensions)

	keys := make([]string, 0, len(schema.Properties))
	for key := range schema.Properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		out = append(out, lintSchema(appendPath(path, "properties."+key), schema.Properties[key], seen)...)
	}
	if schema.Items != nil {
		out = append(out, lintSchema(appendPath(path, "items"), schema.Items, seen)...)
	}
	return out
}

func lintExtensions(path []string, raw map[string]any) []Violation {
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []Violation
	for _, key := range keys {
		value := raw[key]
		switch {
		case key == extensionNamespace:
			nested, ok := value.(map[string]any)
			if !ok {
				out = append(out, violation(path, "%s must be an object, found %T", extensionNamespace, value))
				continue
			}
			nestedKeys := make([]string, 0, len(nested))
			for nestedKey := range nested {
				nestedKeys = append(nestedKeys, nestedKey)
			}
			sort.Strings(nestedKeys)
			for _, nestedKey := range nestedKeys {
				out = append(out, validateHint(appendPath(path, nestedKey), nestedKey, nested[nestedKey])...)
			}
		case strings.HasPrefix(key, extensionNamespace+"-"):
			out = append(out, validateHint(path, strings.TrimPrefix(key, extensionNamespace+"-"), value)...)
		}
	}
	return out
}

func validateHint(path []string, key string, value any) []Violation {
	switch key {
	case "":
		return []Violation{violation(path, "extension key is empty")}
	case "label", "placeholder":
		if _, ok := value.(string); !ok {
			return []Violation{violation(path, "value for %q must be a string (got %T)", key, value)}
		}
	case "widget":
		if widget, _ := value.(string); widget != "textarea" {
			return []Violation{violation(path, "unsupported widget %v (supported: textarea)", value)}
		}
	case "order":
		if _, ok := number(value); !ok {
			return []Violation{violation(path, "value for %q must be a number (got %T)", key, value)}
		}
	case "condition":
		if condition(value) == nil {
			return []Violation{violation(path, "condition must be an object with a field or an expression")}
		}
	default:
		return []Violation{violation(path, "unsupported UI extension key %q (supported: %s)", key, strings.Join(hintKeys, ", "))}
	}
	return nil
}

func violation(path []string, format string, args ...any) Violation {
	return Violation{Location: strings.Join(path, " > "), Message: fmt.Sprintf(format, args...)}
}

func appendPath(path []string, segments ...string) []string {
	next := append([]string(nil), path...)
	return append(next, segments...)
}
