// Package testsupport holds form fixtures and golden file helpers shared by
// package tests.
package testsupport

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formcompiler/pkg/metadata"
)

//go:embed testdata/*
var fixtures embed.FS

// Fixture names available through Form.
const (
	SignupForm    = "signup.yaml"
	CyclicForm    = "cyclic.yaml"
	DuplicateForm = "duplicate.json"
)

// Form parses an embedded fixture and fails the test on error.
func Form(t *testing.T, name string) metadata.FormMetadata {
	t.Helper()

	form, err := LoadForm(name)
	if err != nil {
		t.Fatalf("load fixture %s: %v", name, err)
	}
	return form
}

// LoadForm parses an embedded fixture without requiring testing.T.
func LoadForm(name string) (metadata.FormMetadata, error) {
	data, err := fixtures.ReadFile("testdata/" + name)
	if err != nil {
		return metadata.FormMetadata{}, fmt.Errorf("testsupport: read fixture: %w", err)
	}
	return metadata.Parse(data, name)
}

// FixtureBytes returns the raw fixture, for tests that exercise parsing or
// write the document to disk.
func FixtureBytes(t *testing.T, name string) []byte {
	t.Helper()

	data, err := fixtures.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

// FixturesFS exposes the fixture directory.
func FixturesFS() fs.FS {
	sub, err := fs.Sub(fixtures, "testdata")
	if err != nil {
		return fixtures
	}
	return sub
}

// WriteFixture copies a fixture into dir and returns its path.
func WriteFixture(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, FixtureBytes(t, name), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// WriteGolden writes value as indented JSON when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}
