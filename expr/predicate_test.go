package expr

import "testing"

func TestPredicate(t *testing.T) {
	scope := NewScope(map[string]any{"n": 42.0, "name": "alice"}, nil, nil)

	cases := []struct {
		name string
		expr string
		want bool
	}{
		{"too few tokens is unconditional", "input.n", true},
		{"empty is unconditional", "", true},
		{"equality true", "input.name == alice", true},
		{"equality false", "input.name == bob", false},
		{"inequality", "input.name != bob", true},
		{"numeric greater than", "input.n > 10", true},
		{"numeric greater than false", "input.n > 100", false},
		{"numeric compare non-numeric", "input.name > 10", false},
		{"contains", `input.name contains ali`, true},
		{"startsWith", "input.name startsWith ali", true},
		{"endsWith", "input.name endsWith ice", true},
		{"unknown operator", "input.n ?? 1", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Predicate(tc.expr, scope); got != tc.want {
				t.Errorf("Predicate(%q) = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}

func TestInterpolate(t *testing.T) {
	scope := NewScope(map[string]any{"name": "alice"}, map[string]any{"count": 3.0}, nil)

	cases := []struct {
		name string
		tmpl string
		want string
	}{
		{"no placeholders", "hello world", "hello world"},
		{"single placeholder", "hi ${input.name}", "hi alice"},
		{"multiple placeholders", "${input.name} has ${state.count}", "alice has 3"},
		{"missing resolves empty", "val=${input.missing}", "val="},
		{"unterminated placeholder stops scanning", "before ${input.name", "before "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Interpolate(tc.tmpl, scope); got != tc.want {
				t.Errorf("Interpolate(%q) = %q, want %q", tc.tmpl, got, tc.want)
			}
		})
	}
}
