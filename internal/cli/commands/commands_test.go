package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formcompiler/internal/prompt"
	"github.com/goliatone/go-formcompiler/pkg/store"
	"github.com/goliatone/go-formcompiler/pkg/testsupport"
)

var petstoreSpec = filepath.Join("..", "..", "..", "pkg", "openapi", "testdata", "petstore.yaml")

type result struct {
	stdout string
	stderr string
	err    error
}

func run(t *testing.T, stdin string, opts []Option, args ...string) result {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "formc.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log:\n  level: warn\n"), 0o644))

	root := NewRootCommand(opts...)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", configPath}, args...))

	err := root.ExecuteContext(context.Background())
	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

type validateOutput struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
		Code    string `json:"code"`
		Type    string `json:"type"`
	} `json:"errors"`
}

func decodeValidate(t *testing.T, raw string) validateOutput {
	t.Helper()
	var out validateOutput
	require.NoError(t, json.Unmarshal([]byte(raw), &out), "stdout: %s", raw)
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	t.Parallel()

	root := NewRootCommand()
	assert.Equal(t, "formc", root.Use)

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"version", "lint", "lint-extensions", "validate", "visibility", "fill", "import", "store"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	res := run(t, "", nil, "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "formc version: "+Version)
	assert.Contains(t, res.stdout, "Go version: ")
}

func TestLintCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	signup := testsupport.WriteFixture(t, dir, testsupport.SignupForm)
	duplicate := testsupport.WriteFixture(t, dir, testsupport.DuplicateForm)
	cyclic := testsupport.WriteFixture(t, dir, testsupport.CyclicForm)

	res := run(t, "", nil, "lint", signup)
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "ok "+signup+" (9 fields)")

	res = run(t, "", nil, "lint", signup, duplicate)
	assert.ErrorIs(t, res.err, ErrFailed)
	assert.Contains(t, res.stderr, duplicate+": ")
	assert.Contains(t, res.stderr, "duplicate")

	res = run(t, "", nil, "--locale", "zh-CN", "lint", cyclic)
	assert.ErrorIs(t, res.err, ErrFailed)
	assert.Contains(t, res.stderr, "循环")
	assert.Contains(t, res.stderr, "[circular_reference]")

	res = run(t, "", nil, "lint", filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, res.err, ErrFailed)
	assert.Contains(t, res.stderr, "missing.yaml")
}

func TestValidateCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	form := testsupport.WriteFixture(t, dir, testsupport.SignupForm)
	missingSeats := writeFile(t, dir, "team.json",
		`{"name": "Ada", "email": "ada@example.com", "plan": "team", "terms": true}`)

	res := run(t, "", nil, "validate", "--form", form, "--data", missingSeats)
	assert.ErrorIs(t, res.err, ErrFailed)
	out := decodeValidate(t, res.stdout)
	assert.False(t, out.Success)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "seats", out.Errors[0].Field)
	assert.Equal(t, "required", out.Errors[0].Code)
	assert.Contains(t, out.Errors[0].Message, "Required")
	assert.Contains(t, res.stderr, "seats -> ")

	res = run(t, "", nil, "--locale", "zh-CN", "validate", "--form", form, "--data", missingSeats)
	out = decodeValidate(t, res.stdout)
	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0].Message, "不能为空")

	complete := writeFile(t, dir, "complete.json",
		`{"name": "Ada", "email": "ada@example.com", "plan": "team", "seats": 3, "terms": true, "bio": ""}`)
	res = run(t, "", nil, "validate", "--form", form, "--data", complete)
	require.NoError(t, res.err, res.stderr)
	out = decodeValidate(t, res.stdout)
	assert.True(t, out.Success)
	assert.Equal(t, map[string]any{
		"name": "Ada", "email": "ada@example.com", "plan": "team", "seats": 3.0, "terms": true,
	}, out.Data)
}

func TestValidateCommand_YAMLFromStdin(t *testing.T) {
	t.Parallel()

	form := testsupport.WriteFixture(t, t.TempDir(), testsupport.SignupForm)
	stdin := "name: Ada\nemail: ada@example.com\nplan: free\nterms: true\nage: 17\n"

	res := run(t, stdin, nil, "validate", "--form", form, "--data", "-")
	assert.ErrorIs(t, res.err, ErrFailed)
	out := decodeValidate(t, res.stdout)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "age", out.Errors[0].Field)
	assert.Equal(t, "too_small", out.Errors[0].Code)
}

func TestValidateCommand_FlagValidation(t *testing.T) {
	t.Parallel()

	res := run(t, "", nil, "validate")
	assert.Error(t, res.err)

	res = run(t, "", nil, "validate", "--form", "a.yaml", "--stored", "a")
	assert.Error(t, res.err)
	assert.NotErrorIs(t, res.err, ErrFailed)
}

func TestVisibilityCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	form := testsupport.WriteFixture(t, dir, testsupport.SignupForm)
	data := writeFile(t, dir, "free.yaml", "plan: free\n")

	res := run(t, "", nil, "visibility", "--form", form, "--data", data)
	require.NoError(t, res.err, res.stderr)

	var vis map[string]bool
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &vis))
	assert.False(t, vis["f_seats"])
	assert.True(t, vis["f_plan"])
	assert.Len(t, vis, 9)
}

type answerDriver struct {
	inputs   map[string]string
	confirms map[string]bool
	selects  map[string]int
}

func (d answerDriver) Input(_ context.Context, cfg prompt.InputConfig) (string, error) {
	return d.inputs[cfg.Message], nil
}

func (d answerDriver) Confirm(_ context.Context, cfg prompt.ConfirmConfig) (bool, error) {
	return d.confirms[cfg.Message], nil
}

func (d answerDriver) Select(_ context.Context, cfg prompt.SelectConfig) (int, error) {
	return d.selects[cfg.Message], nil
}

func (d answerDriver) TextArea(_ context.Context, cfg prompt.TextAreaConfig) (string, error) {
	return d.inputs[cfg.Message], nil
}

func (answerDriver) Info(context.Context, string) error { return nil }

func TestFillCommand(t *testing.T) {
	t.Parallel()

	form := testsupport.WriteFixture(t, t.TempDir(), testsupport.SignupForm)
	driver := answerDriver{
		inputs:   map[string]string{"Full name": "Ada", "Email": "ada@example.com", "Seats": "4"},
		confirms: map[string]bool{"I accept the terms": true},
		selects:  map[string]int{"Plan": 2},
	}

	res := run(t, "", []Option{WithDriver(driver)}, "fill", "--form", form)
	require.NoError(t, res.err, res.stderr)
	out := decodeValidate(t, res.stdout)
	assert.True(t, out.Success)
	assert.Equal(t, 4.0, out.Data["seats"])
	assert.Equal(t, "team", out.Data["plan"])
	assert.Equal(t, false, out.Data["newsletter"])
}

func TestImportCommand(t *testing.T) {
	t.Parallel()

	res := run(t, "", nil, "import", "--spec", petstoreSpec)
	require.NoError(t, res.err, res.stderr)
	assert.Equal(t, "adoptPet\ncreatePet\n", res.stdout)

	res = run(t, "", nil, "import", "--spec", petstoreSpec, "--operation", "createPet", "--format", "json")
	require.NoError(t, res.err, res.stderr)

	golden := filepath.Join("testdata", "createPet.golden.json")
	testsupport.WriteGolden(t, golden, json.RawMessage(res.stdout))

	var want, got any
	require.NoError(t, json.Unmarshal(testsupport.MustReadGolden(t, golden), &want))
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got))
	if diff := testsupport.CompareGolden(want, got); diff != "" {
		t.Fatalf("import output mismatch (-want +got):\n%s", diff)
	}

	res = run(t, "", nil, "import", "--spec", petstoreSpec, "--operation", "listPets")
	assert.Error(t, res.err)
}

func TestImportCommand_SaveAndWriteFile(t *testing.T) {
	t.Parallel()

	mem := store.NewMemory()
	output := filepath.Join(t.TempDir(), "adopt.yaml")

	res := run(t, "", []Option{WithStore(mem)},
		"import", "--spec", petstoreSpec, "--operation", "adoptPet", "--save", "-o", output)
	require.NoError(t, res.err, res.stderr)
	assert.Empty(t, res.stdout)

	written, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(written), "id: adoptPet")

	ids, err := mem.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"adoptPet"}, ids)
}

func TestLintExtensionsCommand(t *testing.T) {
	t.Parallel()

	res := run(t, "", nil, "lint-extensions", petstoreSpec)
	require.NoError(t, res.err, res.stderr)

	hints := filepath.Join("..", "..", "..", "pkg", "openapi", "testdata", "hints.yaml")
	res = run(t, "", nil, "lint-extensions", hints)
	assert.ErrorIs(t, res.err, ErrFailed)
	assert.Contains(t, res.stderr, `unsupported UI extension key "tooltip"`)
}

func TestStoreCommands(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mem := store.NewMemory()
	opts := []Option{WithStore(mem)}
	form := testsupport.WriteFixture(t, dir, testsupport.SignupForm)
	duplicate := testsupport.WriteFixture(t, dir, testsupport.DuplicateForm)

	res := run(t, "", opts, "store", "put", form)
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "stored signup")

	res = run(t, "", opts, "store", "put", duplicate)
	assert.ErrorIs(t, res.err, ErrFailed)
	res = run(t, "", opts, "store", "put", "--force", duplicate)
	require.NoError(t, res.err)

	res = run(t, "", opts, "store", "list")
	require.NoError(t, res.err)
	assert.Equal(t, "duplicate\nsignup\n", res.stdout)

	res = run(t, "", opts, "store", "get", "signup", "--format", "json")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"id": "signup"`)

	data := writeFile(t, dir, "data.json", `{"name": "Ada", "email": "ada@example.com", "plan": "free", "terms": true}`)
	res = run(t, "", opts, "validate", "--stored", "signup", "--data", data)
	require.NoError(t, res.err, res.stderr)
	assert.True(t, decodeValidate(t, res.stdout).Success)

	res = run(t, "", opts, "store", "delete", "signup")
	require.NoError(t, res.err)
	res = run(t, "", opts, "store", "get", "signup")
	assert.ErrorIs(t, res.err, store.ErrNotFound)
	res = run(t, "", opts, "validate", "--stored", "signup")
	assert.ErrorIs(t, res.err, store.ErrNotFound)
}

func TestStoreCommands_InvalidConfig(t *testing.T) {
	t.Parallel()

	configPath := writeFile(t, t.TempDir(), "formc.yaml", "store:\n  driver: etcd\n")
	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", configPath, "store", "list"})

	err := root.Execute()
	assert.ErrorContains(t, err, "store.driver")
}
