package metadata

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func TestParse_JSONAndYAMLProduceSameDocument(t *testing.T) {
	t.Parallel()

	jsonDoc := []byte(`{
  "id": "signup",
  "version": "1",
  "fields": [
    {"id": "f1", "name": "plan", "type": "select", "label": "Plan", "required": true,
     "options": [{"value": "free"}, {"value": "pro", "label": "Pro"}]},
    {"id": "f2", "name": "seats", "type": "number",
     "condition": {"fieldId": "f1", "operator": "equals", "value": "pro"},
     "validation": {"min": 1, "max": 50}}
  ]
}`)
	yamlDoc := []byte(`
id: signup
version: "1"
fields:
  - id: f1
    name: plan
    type: select
    label: Plan
    required: true
    options:
      - value: free
      - value: pro
        label: Pro
  - id: f2
    name: seats
    type: number
    condition:
      fieldId: f1
      operator: equals
      value: pro
    validation:
      min: 1
      max: 50
`)

	fromJSON, err := Parse(jsonDoc, "signup.json")
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	fromYAML, err := Parse(yamlDoc, "signup.yaml")
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}

	if diff := cmp.Diff(fromJSON, fromYAML); diff != "" {
		t.Fatalf("json/yaml mismatch (-json +yaml):\n%s", diff)
	}
	if got := fromJSON.Fields[1].Validation.Max; got == nil || *got != 50 {
		t.Fatalf("expected max 50, got %v", got)
	}
}

func TestParse_EmptyAndInvalid(t *testing.T) {
	t.Parallel()

	if _, err := Parse([]byte("   "), "blank.json"); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
	if _, err := Parse([]byte("{not: [valid"), "broken.yaml"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadFS_KeysByIDAndRejectsDuplicates(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"forms/contact.yaml": {Data: []byte("version: \"1\"\nfields: []\n")},
		"forms/signup.json":  {Data: []byte(`{"id":"signup-v2","version":"2","fields":[]}`)},
		"forms/readme.md":    {Data: []byte("# ignored")},
	}

	forms, err := LoadFS(fsys)
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	if diff := cmp.Diff([]string{"contact", "signup-v2"}, IDs(forms)); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	fsys["other/contact.json"] = &fstest.MapFile{Data: []byte(`{"version":"1","fields":[]}`)}
	if _, err := LoadFS(fsys); err == nil || !strings.Contains(err.Error(), "duplicate form") {
		t.Fatalf("expected duplicate form error, got %v", err)
	}
}

func TestSanitize_StripsMarkupWithoutMutatingInput(t *testing.T) {
	t.Parallel()

	src := FormMetadata{
		Version: "1",
		Title:   "<h1>Signup</h1>",
		Fields: []FormField{
			{
				ID:      "f1",
				Name:    "terms",
				Type:    "checkbox",
				Label:   `Terms & <a href="javascript:alert(1)">Conditions</a>`,
				Options: []Option{{Value: "x", Label: "<script>alert(1)</script>X"}},
				Validation: &Rules{
					Message: "<b>Please</b> accept",
				},
			},
		},
	}

	got := Sanitize(src)

	if got.Title != "Signup" {
		t.Fatalf("unexpected title %q", got.Title)
	}
	if got.Fields[0].Label != "Terms & Conditions" {
		t.Fatalf("unexpected label %q", got.Fields[0].Label)
	}
	if got.Fields[0].Options[0].Label != "X" {
		t.Fatalf("unexpected option label %q", got.Fields[0].Options[0].Label)
	}
	if got.Fields[0].Validation.Message != "Please accept" {
		t.Fatalf("unexpected message %q", got.Fields[0].Validation.Message)
	}
	if src.Fields[0].Validation.Message != "<b>Please</b> accept" {
		t.Fatalf("input was mutated: %q", src.Fields[0].Validation.Message)
	}
}

func TestFingerprint_StableForEqualContent(t *testing.T) {
	t.Parallel()

	build := func(label string) FormMetadata {
		return FormMetadata{
			Version: "1",
			Fields: []FormField{
				{ID: "a", Name: "a", Type: "text", Label: label},
			},
		}
	}

	first, err := Fingerprint(build("A"))
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	second, err := Fingerprint(build("A"))
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	third, err := Fingerprint(build("B"))
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}

	if first != second {
		t.Fatalf("expected equal fingerprints, got %s and %s", first, second)
	}
	if first == third {
		t.Fatalf("expected different fingerprints for different labels")
	}
}

func TestClone_IsDeep(t *testing.T) {
	t.Parallel()

	min := 1
	src := FormMetadata{
		Version: "1",
		Fields: []FormField{
			{ID: "a", Name: "a", Type: "text", Validation: &Rules{MinLength: &min}, Condition: &Condition{FieldID: "b"}},
		},
	}
	clone := src.Clone()
	*clone.Fields[0].Validation.MinLength = 5
	clone.Fields[0].Condition.FieldID = "c"

	if *src.Fields[0].Validation.MinLength != 1 || src.Fields[0].Condition.FieldID != "b" {
		t.Fatalf("clone shares state with source")
	}
}
