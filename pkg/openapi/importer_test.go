package openapi

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formcompiler/pkg/metadata"
	"github.com/goliatone/go-formcompiler/pkg/schema"
)

func loadPetstore(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "petstore.yaml"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestImporter_Operations(t *testing.T) {
	t.Parallel()

	ids, err := NewImporter().Operations(context.Background(), loadPetstore(t))
	if err != nil {
		t.Fatalf("Operations: %v", err)
	}
	if diff := cmp.Diff([]string{"adoptPet", "createPet"}, ids); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}
}

func TestImporter_ImportCreatePet(t *testing.T) {
	t.Parallel()

	got, err := NewImporter().Import(context.Background(), loadPetstore(t), "createPet")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	want := metadata.FormMetadata{
		ID:      "createPet",
		Title:   "Register a pet",
		Version: "2.1.0",
		Fields: []metadata.FormField{
			{
				ID: "name", Name: "name", Type: "text", Label: "Name", Required: true,
				Validation: &metadata.Rules{MinLength: intPtr(1), MaxLength: intPtr(64)},
			},
			{
				ID: "species", Name: "species", Type: "select", Label: "Species", Required: true,
				Options: []metadata.Option{{Value: "cat"}, {Value: "dog"}, {Value: "bird"}},
			},
			{
				ID: "age", Name: "age", Type: "number", Label: "Age",
				Validation: &metadata.Rules{Min: floatPtr(0), Max: floatPtr(40)},
			},
			{ID: "born_on", Name: "born_on", Type: "date", Label: "Born On"},
			{
				ID: "chip_code", Name: "chip_code", Type: "text", Label: "Chip Code",
				Validation: &metadata.Rules{Pattern: "^[0-9]{15}$"},
				Condition:  &metadata.Condition{FieldID: "species", Operator: "in", Value: []any{"cat", "dog"}},
			},
			{
				ID: "notes", Name: "notes", Type: "textarea", Label: "Notes",
				Description: "Anything the shelter should know",
				Placeholder: "Temperament, diet...",
				Validation:  &metadata.Rules{MaxLength: intPtr(2000)},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("imported form mismatch (-want +got):\n%s", diff)
	}

	compiled, problems := schema.Build(got)
	if len(problems) > 0 || compiled == nil {
		t.Fatalf("imported form should compile, got %+v", problems)
	}
	vis := compiled.Visibility(map[string]any{"species": "bird"}, nil)
	if vis["chip_code"] {
		t.Fatalf("chip_code should be hidden for birds")
	}
}

func TestImporter_FormEncodedBody(t *testing.T) {
	t.Parallel()

	got, err := NewImporter().Import(context.Background(), loadPetstore(t), "adoptPet")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	want := []metadata.FormField{
		{ID: "adopter", Name: "adopter", Type: "text", Label: "Your name", Required: true},
		{ID: "agree", Name: "agree", Type: "checkbox", Label: "I agree to the adoption terms", Required: true},
	}
	if diff := cmp.Diff(want, got.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if got.Title != "" {
		t.Fatalf("expected empty title, got %q", got.Title)
	}
}

func TestImporter_TextAreaThreshold(t *testing.T) {
	t.Parallel()

	got, err := NewImporter(WithTextAreaThreshold(0)).Import(context.Background(), loadPetstore(t), "createPet")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	notes, ok := got.FieldByName("notes")
	if !ok || notes.Type != "text" {
		t.Fatalf("expected notes to stay a text field, got %+v", notes)
	}
}

func TestImporter_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	imp := NewImporter()
	data := loadPetstore(t)

	if _, err := imp.Import(ctx, data, "deletePet"); !errors.Is(err, ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
	if _, err := imp.Import(ctx, data, "listPets"); !errors.Is(err, ErrNoRequestBody) {
		t.Fatalf("expected ErrNoRequestBody, got %v", err)
	}
	if _, err := imp.Import(ctx, nil, "createPet"); err == nil {
		t.Fatalf("expected empty payload error")
	}
	if _, err := imp.Operations(ctx, []byte("openapi: [broken")); err == nil {
		t.Fatalf("expected load error")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := imp.Operations(cancelled, data); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestExtensions_GroupedAndFlat(t *testing.T) {
	t.Parallel()

	got := extensions(map[string]any{
		"x-formgen":       map[string]any{"label": "Grouped", "order": 2.0},
		"x-formgen-label": "Flat",
		"x-other":         true,
	})
	want := map[string]any{"label": "Flat", "order": 2.0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("extensions mismatch (-want +got):\n%s", diff)
	}
}
