package expr

import "testing"

func TestPath(t *testing.T) {
	scope := NewScope(
		map[string]any{"n": 42.0, "name": "alice", "items": []any{"a", "b", "c"}},
		map[string]any{"nested": map[string]any{"deep": "value"}},
		nil,
	)

	cases := []struct {
		name string
		ref  string
		want any
	}{
		{"input field", "input.n", 42.0},
		{"missing intermediate", "input.missing.deep", nil},
		{"missing leaf", "input.nope", nil},
		{"state nested", "state.nested.deep", "value"},
		{"output default empty", "output.anything", nil},
		{"quoted literal", `"input.n"`, "input.n"},
		{"bare number", "3.14", 3.14},
		{"bare bool true", "true", true},
		{"bare bool false", "false", false},
		{"bare word", "hello", "hello"},
		{"indexed element", "input.items[1]", "b"},
		{"indexed out of range", "input.items[9]", nil},
		{"empty ref", "", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Path(tc.ref, scope)
			if got != tc.want {
				t.Errorf("Path(%q) = %#v, want %#v", tc.ref, got, tc.want)
			}
		})
	}
}

func TestStringify(t *testing.T) {
	cases := []struct {
		v    any
		want string
	}{
		{nil, ""},
		{"hi", "hi"},
		{true, "true"},
		{42.0, "42"},
		{3.5, "3.5"},
	}
	for _, tc := range cases {
		if got := Stringify(tc.v); got != tc.want {
			t.Errorf("Stringify(%#v) = %q, want %q", tc.v, got, tc.want)
		}
	}
}
