package openapi

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestImporter_Lint(t *testing.T) {
	t.Parallel()

	data, err := os.ReadFile(filepath.Join("testdata", "hints.yaml"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}

	got, err := NewImporter().Lint(context.Background(), data)
	if err != nil {
		t.Fatalf("Lint: %v", err)
	}

	const base = "operation > submitFeedback > requestBody > application/json > "
	want := []Violation{
		{Location: base + "properties.comment > tooltip", Message: `unsupported UI extension key "tooltip" (supported: condition, label, order, placeholder, widget)`},
		{Location: base + "properties.comment > widget", Message: "unsupported widget wysiwyg (supported: textarea)"},
		{Location: base + "properties.rating", Message: `value for "order" must be a number (got string)`},
		{Location: base + "properties.topic", Message: "condition must be an object with a field or an expression"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}
}

func TestImporter_LintCleanDocument(t *testing.T) {
	t.Parallel()

	got, err := NewImporter().Lint(context.Background(), loadPetstore(t))
	if err != nil {
		t.Fatalf("Lint: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no violations, got %v", got)
	}
}
