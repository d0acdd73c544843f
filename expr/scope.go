// Package expr provides the path, predicate, interpolation, and scripted
// expression evaluators that the workflow engine uses to resolve activity
// input mappings, transition conditions, and interpolated templates.
package expr

// Scope bundles the three maps an expression may reference: the workflow
// instance's input, its scratch state, and (once computed) its output.
// Nodes of the path walked may themselves be maps, slices, or scalars —
// the walk is purely structural, never reflection-based, per the engine's
// avoidance of Object/any erasure.
type Scope struct {
	Input  map[string]any
	State  map[string]any
	Output map[string]any
}

// NewScope builds a Scope from the three component maps, defaulting any nil
// map to an empty one so path lookups never need a nil check.
func NewScope(input, state, output map[string]any) *Scope {
	if input == nil {
		input = map[string]any{}
	}
	if state == nil {
		state = map[string]any{}
	}
	if output == nil {
		output = map[string]any{}
	}
	return &Scope{Input: input, State: state, Output: output}
}

func (s *Scope) root(name string) (map[string]any, bool) {
	switch name {
	case "input":
		return s.Input, true
	case "state":
		return s.State, true
	case "output":
		return s.Output, true
	default:
		return nil, false
	}
}
