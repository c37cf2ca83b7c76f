// Package fieldtype holds the closed set of field kinds a form can declare and
// the per-field validator fragments built from them.
//
// Kinds are a sealed variant: only the types declared here satisfy Kind, so a
// type switch over Text, TextArea, Number, Select, Checkbox and Date covers
// every case. Lookup maps the string tag used in metadata documents onto the
// variant.
package fieldtype

// Tag identifiers accepted in FormField.Type.
const (
	TagText     = "text"
	TagTextArea = "textarea"
	TagNumber   = "number"
	TagSelect   = "select"
	TagCheckbox = "checkbox"
	TagDate     = "date"
)

// Kind is implemented by the field kinds declared in this package only.
type Kind interface {
	Tag() string
	// Expected names the value type the kind produces, used in invalid_type
	// messages.
	Expected() string
	sealed()
}

// Text is a single line string.
type Text struct{}

// TextArea is a multi-line string.
type TextArea struct{}

// Number coerces numeric strings and rejects NaN.
type Number struct{}

// Select restricts the value to the field's declared options.
type Select struct{}

// Checkbox coerces "true"/"false" style inputs to bool.
type Checkbox struct{}

// Date accepts RFC 3339 timestamps and calendar dates.
type Date struct{}

func (Text) Tag() string     { return TagText }
func (TextArea) Tag() string { return TagTextArea }
func (Number) Tag() string   { return TagNumber }
func (Select) Tag() string   { return TagSelect }
func (Checkbox) Tag() string { return TagCheckbox }
func (Date) Tag() string     { return TagDate }

func (Text) Expected() string     { return "string" }
func (TextArea) Expected() string { return "string" }
func (Number) Expected() string   { return "number" }
func (Select) Expected() string   { return "string" }
func (Checkbox) Expected() string { return "boolean" }
func (Date) Expected() string     { return "date" }

func (Text) sealed()     {}
func (TextArea) sealed() {}
func (Number) sealed()   {}
func (Select) sealed()   {}
func (Checkbox) sealed() {}
func (Date) sealed()     {}

var registry = []Kind{Text{}, TextArea{}, Number{}, Select{}, Checkbox{}, Date{}}

// Lookup resolves a metadata type tag. Tags are case-sensitive.
func Lookup(tag string) (Kind, bool) {
	for _, kind := range registry {
		if kind.Tag() == tag {
			return kind, true
		}
	}
	return nil, false
}

// Tags lists the registered tags in declaration order.
func Tags() []string {
	out := make([]string, len(registry))
	for i, kind := range registry {
		out[i] = kind.Tag()
	}
	return out
}
