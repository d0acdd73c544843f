package builtin

import (
	"context"

	"github.com/flowforge/flowforge/activity"
	"github.com/flowforge/flowforge/expr"
)

// Condition evaluates its "expression" input as a predicate against the
// instance's input/state/output and returns {"result": bool}. It never
// fails the instance on a false result — branching on the result is the
// workflow's transition conditions, not this activity's concern.
type Condition struct{}

func (Condition) Execute(ctx context.Context, actx *activity.Context) (activity.Result, error) {
	expression, _ := actx.Input["expression"].(string)
	scope := &expr.Scope{Input: actx.Instance.Input, State: actx.Instance.State, Output: actx.Instance.Output}
	result := expr.Predicate(expression, scope)
	return activity.Ok(map[string]any{"result": result}), nil
}
