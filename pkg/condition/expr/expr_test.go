package expr

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEval_Comparisons(t *testing.T) {
	t.Parallel()

	values := map[string]any{
		"plan":       "pro",
		"seats":      "4",
		"newsletter": "true",
		"cta":        map[string]any{"headline": "Hello"},
		"flat.key":   "x",
	}

	cases := []struct {
		rule string
		want bool
	}{
		{`plan == "pro"`, true},
		{`plan == 'pro'`, true},
		{`plan == pro`, true},
		{`plan != "pro"`, false},
		{`seats > 3`, true},
		{`seats >= 5`, false},
		{`seats < 10 && plan == "pro"`, true},
		{`newsletter == true`, true},
		{`newsletter`, true},
		{`!newsletter || plan == "free"`, false},
		{`(plan == "free" || seats == 4) && !missing`, true},
		{`missing == null`, true},
		{`missing != 3`, true},
		{`cta.headline == "Hello"`, true},
		{`flat.key == "x"`, true},
		{`extras.admin`, true},
		{``, true},
	}

	env := Env{Values: values, Extras: map[string]any{"admin": true}}
	for _, tc := range cases {
		got, err := Evaluate(tc.rule, env)
		if err != nil {
			t.Fatalf("Evaluate(%q): %v", tc.rule, err)
		}
		if got != tc.want {
			t.Fatalf("Evaluate(%q) = %v, want %v", tc.rule, got, tc.want)
		}
	}
}

func TestCompile_Errors(t *testing.T) {
	t.Parallel()

	for _, rule := range []string{
		`plan = "pro"`,
		`plan & seats`,
		`plan == "pro`,
		`(plan == "pro"`,
		`plan ==`,
		`== "pro"`,
		`plan == "pro" seats`,
	} {
		if _, err := Compile(rule); err == nil {
			t.Fatalf("expected %q to fail", rule)
		}
	}
}

func TestProgram_Identifiers(t *testing.T) {
	t.Parallel()

	prog := MustCompile(`plan == pro && (cta.headline != "" || !seats) && extras.admin`)
	if diff := cmp.Diff([]string{"cta", "plan", "seats"}, prog.Identifiers()); diff != "" {
		t.Fatalf("identifiers mismatch (-want +got):\n%s", diff)
	}
}
