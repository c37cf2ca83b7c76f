// Package openapi derives form metadata from the request body of an OpenAPI 3
// operation.
//
// Only flat object bodies map onto forms: scalar properties become fields and
// nested objects or arrays are skipped. Field presentation can be tuned with
// vendor extensions, either flat (x-formgen-label) or grouped under a single
// x-formgen object:
//
//	x-formgen-label        field label
//	x-formgen-placeholder  placeholder text
//	x-formgen-widget       "textarea" forces a multi-line field
//	x-formgen-order        numeric sort key
//	x-formgen-condition    {field, operator, value} visibility rule
package openapi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/goliatone/go-formcompiler/pkg/fieldtype"
	"github.com/goliatone/go-formcompiler/pkg/metadata"
)

const extensionNamespace = "x-formgen"

// DefaultTextAreaThreshold is the maxLength above which strings are imported
// as textarea fields.
const DefaultTextAreaThreshold = 255

var (
	// ErrOperationNotFound is returned when the document has no operation
	// with the requested id.
	ErrOperationNotFound = errors.New("openapi: operation not found")
	// ErrNoRequestBody is returned when the operation declares no usable
	// object request body.
	ErrNoRequestBody = errors.New("openapi: operation has no object request body")
)

// Option customises an Importer.
type Option func(*Importer)

// WithTextAreaThreshold changes the maxLength above which strings become
// textarea fields. Non-positive values disable the promotion.
func WithTextAreaThreshold(n int) Option {
	return func(i *Importer) { i.textAreaThreshold = n }
}

// WithExternalRefs allows the loader to follow references outside the
// document.
func WithExternalRefs(allowed bool) Option {
	return func(i *Importer) { i.externalRefs = allowed }
}

// Importer converts OpenAPI operations into FormMetadata.
type Importer struct {
	textAreaThreshold int
	externalRefs      bool
}

// NewImporter returns an Importer with the supplied options applied.
func NewImporter(options ...Option) *Importer {
	i := &Importer{
		textAreaThreshold: DefaultTextAreaThreshold,
	}
	for _, opt := range options {
		if opt != nil {
			opt(i)
		}
	}
	return i
}

func (i *Importer) load(ctx context.Context, data []byte) (*openapi3.T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = i.externalRefs

	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	return doc, nil
}

// Operations lists the ids of operations that carry an object request body,
// sorted.
func (i *Importer) Operations(ctx context.Context, data []byte) ([]string, error) {
	doc, err := i.load(ctx, data)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, op := range operations(doc) {
		if requestSchema(op.RequestBody) != nil {
			ids = append(ids, idOf(op))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Import builds form metadata for operationID. The form id is the operation
// id, the title its summary and the version the document's info.version.
func (i *Importer) Import(ctx context.Context, data []byte, operationID string) (metadata.FormMetadata, error) {
	doc, err := i.load(ctx, data)
	if err != nil {
		return metadata.FormMetadata{}, err
	}

	var op *namedOperation
	for _, candidate := range operations(doc) {
		if idOf(candidate) == operationID {
			c := candidate
			op = &c
			break
		}
	}
	if op == nil {
		return metadata.FormMetadata{}, fmt.Errorf("%w: %s", ErrOperationNotFound, operationID)
	}

	body := requestSchema(op.RequestBody)
	if body == nil {
		return metadata.FormMetadata{}, fmt.Errorf("%w: %s", ErrNoRequestBody, operationID)
	}

	meta := metadata.FormMetadata{
		ID:    operationID,
		Title: op.Summary,
	}
	if doc.Info != nil {
		meta.Version = doc.Info.Version
	}
	meta.Fields = i.fields(body)
	return meta, nil
}

type namedOperation struct {
	*openapi3.Operation
	method string
	path   string
}

func idOf(op namedOperation) string {
	if op.OperationID != "" {
		return op.OperationID
	}
	return strings.ToLower(op.method) + ":" + op.path
}

func operations(doc *openapi3.T) []namedOperation {
	if doc == nil || doc.Paths == nil {
		return nil
	}
	paths := doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for path := range paths {
		keys = append(keys, path)
	}
	sort.Strings(keys)

	var out []namedOperation
	for _, path := range keys {
		item := paths[path]
		if item == nil {
			continue
		}
		ops := item.Operations()
		methods := make([]string, 0, len(ops))
		for method := range ops {
			methods = append(methods, method)
		}
		sort.Strings(methods)
		for _, method := range methods {
			if ops[method] != nil {
				out = append(out, namedOperation{Operation: ops[method], method: method, path: path})
			}
		}
	}
	return out
}

func requestSchema(body *openapi3.RequestBodyRef) *openapi3.Schema {
	if body == nil || body.Value == nil {
		return nil
	}
	content := body.Value.Content
	var picked *openapi3.MediaType
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok {
			picked = mt
			break
		}
	}
	if picked == nil {
		keys := make([]string, 0, len(content))
		for key := range content {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		if len(keys) > 0 {
			picked = content[keys[0]]
		}
	}
	if picked == nil || picked.Schema == nil || picked.Schema.Value == nil {
		return nil
	}
	schema := picked.Schema.Value
	if schema.Type == nil || !schema.Type.Is(openapi3.TypeObject) || len(schema.Properties) == 0 {
		return nil
	}
	return schema
}

type orderedField struct {
	field metadata.FormField
	order float64
	set   bool
}

func (i *Importer) fields(body *openapi3.Schema) []metadata.FormField {
	required := make(map[string]bool, len(body.Required))
	for _, name := range body.Required {
		required[name] = true
	}

	collected := make([]orderedField, 0, len(body.Properties))
	for name, ref := range body.Properties {
		if ref == nil || ref.Value == nil {
			continue
		}
		ext := extensions(ref.Value.Extensions)
		field, ok := i.field(name, ref.Value, ext)
		if !ok {
			continue
		}
		field.Required = required[name]
		entry := orderedField{field: field}
		entry.order, entry.set = number(ext["order"])
		collected = append(collected, entry)
	}

	sort.SliceStable(collected, func(a, b int) bool {
		left, right := collected[a], collected[b]
		if left.set != right.set {
			return left.set
		}
		if left.set && left.order != right.order {
			return left.order < right.order
		}
		return left.field.Name < right.field.Name
	})

	out := make([]metadata.FormField, len(collected))
	for idx, entry := range collected {
		out[idx] = entry.field
	}
	return out
}

func (i *Importer) field(name string, src *openapi3.Schema, ext map[string]any) (metadata.FormField, bool) {
	tag := i.fieldTag(src, ext)
	if tag == "" {
		return metadata.FormField{}, false
	}

	field := metadata.FormField{
		ID:          name,
		Name:        name,
		Type:        tag,
		Label:       i.label(name, src, ext),
		Description: src.Description,
	}
	if placeholder, ok := ext["placeholder"].(string); ok {
		field.Placeholder = placeholder
	}
	if tag == fieldtype.TagSelect {
		for _, value := range src.Enum {
			field.Options = append(field.Options, metadata.Option{Value: fmt.Sprint(value)})
		}
	}
	field.Validation = rules(tag, src)
	field.Condition = condition(ext["condition"])
	return field, true
}

func (i *Importer) fieldTag(src *openapi3.Schema, ext map[string]any) string {
	if src.Type == nil {
		return ""
	}
	switch {
	case len(src.Enum) > 0 && !src.Type.Is(openapi3.TypeBoolean):
		return fieldtype.TagSelect
	case src.Type.Is(openapi3.TypeString):
		if src.Format == "date" || src.Format == "date-time" {
			return fieldtype.TagDate
		}
		if widget, _ := ext["widget"].(string); widget == fieldtype.TagTextArea {
			return fieldtype.TagTextArea
		}
		if i.textAreaThreshold > 0 && src.MaxLength != nil && *src.MaxLength > uint64(i.textAreaThreshold) {
			return fieldtype.TagTextArea
		}
		return fieldtype.TagText
	case src.Type.Is(openapi3.TypeInteger), src.Type.Is(openapi3.TypeNumber):
		return fieldtype.TagNumber
	case src.Type.Is(openapi3.TypeBoolean):
		return fieldtype.TagCheckbox
	}
	return ""
}

func (i *Importer) label(name string, src *openapi3.Schema, ext map[string]any) string {
	if label, ok := ext["label"].(string); ok && strings.TrimSpace(label) != "" {
		return label
	}
	if src.Title != "" {
		return src.Title
	}
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' || r == '.' })
	return cases.Title(language.English).String(strings.Join(words, " "))
}

func rules(tag string, src *openapi3.Schema) *metadata.Rules {
	var r metadata.Rules
	switch tag {
	case fieldtype.TagText, fieldtype.TagTextArea:
		if src.MinLength > 0 {
			v := int(src.MinLength)
			r.MinLength = &v
		}
		if src.MaxLength != nil {
			v := int(*src.MaxLength)
			r.MaxLength = &v
		}
		r.Pattern = src.Pattern
	case fieldtype.TagNumber:
		if src.Min != nil {
			v := *src.Min
			r.Min = &v
		}
		if src.Max != nil {
			v := *src.Max
			r.Max = &v
		}
	}
	if r == (metadata.Rules{}) {
		return nil
	}
	return &r
}

func condition(raw any) *metadata.Condition {
	spec, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	cond := &metadata.Condition{}
	cond.FieldID, _ = spec["field"].(string)
	cond.Operator, _ = spec["operator"].(string)
	cond.Expression, _ = spec["expression"].(string)
	cond.Value = spec["value"]
	if cond.FieldID == "" && cond.Expression == "" {
		return nil
	}
	return cond
}

// extensions flattens x-formgen-* keys and the grouped x-formgen object into
// a single map keyed by the suffix. Flat keys win over grouped ones.
func extensions(raw map[string]any) map[string]any {
	out := make(map[string]any)
	if grouped, ok := raw[extensionNamespace].(map[string]any); ok {
		for key, value := range grouped {
			out[key] = value
		}
	}
	for key, value := range raw {
		if suffix, ok := strings.CutPrefix(key, extensionNamespace+"-"); ok && suffix != "" {
			out[suffix] = value
		}
	}
	return out
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, !math.IsNaN(v)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}
