package metadata

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// Sanitize returns a copy of m with markup stripped from every user facing
// string (title, labels, descriptions, placeholders, option labels and custom
// rule messages). The result is plain text; renderers are still expected to
// escape it on output.
func Sanitize(m FormMetadata) FormMetadata {
	out := m.Clone()
	out.Title = SanitizeText(out.Title)
	for i := range out.Fields {
		field := &out.Fields[i]
		field.Label = SanitizeText(field.Label)
		field.Description = SanitizeText(field.Description)
		field.Placeholder = SanitizeText(field.Placeholder)
		for j := range field.Options {
			field.Options[j].Label = SanitizeText(field.Options[j].Label)
		}
		if field.Validation != nil {
			field.Validation.Message = SanitizeText(field.Validation.Message)
		}
	}
	return out
}

// SanitizeText strips all markup from raw and collapses surrounding
// whitespace.
func SanitizeText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	cleaned := textSanitizer().Sanitize(trimmed)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}
