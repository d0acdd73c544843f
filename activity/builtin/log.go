// Package builtin implements the engine's out-of-the-box activity types:
// log, delay, condition, wait_for_signal, and http_request. The llm_chat
// handler lives in the llm subpackage.
package builtin

import (
	"context"

	"go.uber.org/zap"

	"github.com/flowforge/flowforge/activity"
	"github.com/flowforge/flowforge/expr"
)

// Log writes a structured log line built from the activity's "message"
// input (interpolated against instance state) and returns it unchanged as
// output, so downstream activities can reference what was logged.
type Log struct{}

func (Log) Execute(ctx context.Context, actx *activity.Context) (activity.Result, error) {
	message, _ := actx.Input["message"].(string)
	scope := &expr.Scope{Input: actx.Instance.Input, State: actx.Instance.State, Output: actx.Instance.Output}
	rendered := expr.Interpolate(message, scope)

	level, _ := actx.Input["level"].(string)
	logger := actx.Services.Logger
	switch level {
	case "warn":
		logger.Warn(rendered, zap.String("activity_id", actx.Activity.ID))
	case "error":
		logger.Error(rendered, zap.String("activity_id", actx.Activity.ID))
	default:
		logger.Info(rendered, zap.String("activity_id", actx.Activity.ID))
	}

	return activity.Ok(map[string]any{"message": rendered}), nil
}
