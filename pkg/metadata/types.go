package metadata

// FormMetadata describes a form independently of any UI framework.
type FormMetadata struct {
	ID      string      `json:"id,omitempty" yaml:"id,omitempty"`
	Title   string      `json:"title,omitempty" yaml:"title,omitempty"`
	Version string      `json:"version" yaml:"version"`
	Fields  []FormField `json:"fields" yaml:"fields"`
}

// FormField is a single entry in FormMetadata. ID is the stable identifier
// used by conditions; Name is the key used for submitted values.
type FormField struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Type        string     `json:"type" yaml:"type"`
	Label       string     `json:"label,omitempty" yaml:"label,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Placeholder string     `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Required    bool       `json:"required,omitempty" yaml:"required,omitempty"`
	Options     []Option   `json:"options,omitempty" yaml:"options,omitempty"`
	Condition   *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	Validation  *Rules     `json:"validation,omitempty" yaml:"validation,omitempty"`
}

// Option is a selectable value for select fields. Label falls back to Value
// when empty.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// DisplayLabel returns the label shown to users.
func (o Option) DisplayLabel() string {
	if o.Label != "" {
		return o.Label
	}
	return o.Value
}

// Condition makes a field visible only when the referenced field's value
// satisfies Operator/Value. When Expression is set it takes precedence and is
// evaluated as a boolean rule over the current values keyed by field name.
type Condition struct {
	FieldID    string `json:"fieldId,omitempty" yaml:"fieldId,omitempty"`
	Operator   string `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value      any    `json:"value,omitempty" yaml:"value,omitempty"`
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// Rules carries optional constraints applied after type coercion. Length
// bounds apply to text kinds, Min/Max to numbers. Message replaces the
// catalog message for any rule violation.
type Rules struct {
	MinLength *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Message   string   `json:"message,omitempty" yaml:"message,omitempty"`
}

// FieldByID returns the field with the supplied id.
func (m FormMetadata) FieldByID(id string) (FormField, bool) {
	for _, field := range m.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return FormField{}, false
}

// FieldByName returns the field with the supplied name.
func (m FormMetadata) FieldByName(name string) (FormField, bool) {
	for _, field := range m.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FormField{}, false
}

// Clone returns a deep copy so callers can derive variants without touching
// the original document.
func (m FormMetadata) Clone() FormMetadata {
	out := m
	if m.Fields == nil {
		return out
	}
	out.Fields = make([]FormField, len(m.Fields))
	for i, field := range m.Fields {
		out.Fields[i] = field.Clone()
	}
	return out
}

// Clone returns a deep copy of the field.
func (f FormField) Clone() FormField {
	out := f
	if f.Options != nil {
		out.Options = append([]Option(nil), f.Options...)
	}
	if f.Condition != nil {
		cond := *f.Condition
		out.Condition = &cond
	}
	if f.Validation != nil {
		rules := *f.Validation
		if f.Validation.MinLength != nil {
			v := *f.Validation.MinLength
			rules.MinLength = &v
		}
		if f.Validation.MaxLength != nil {
			v := *f.Validation.MaxLength
			rules.MaxLength = &v
		}
		if f.Validation.Min != nil {
			v := *f.Validation.Min
			rules.Min = &v
		}
		if f.Validation.Max != nil {
			v := *f.Validation.Max
			rules.Max = &v
		}
		out.Validation = &rules
	}
	return out
}
