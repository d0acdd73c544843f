package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/flowforge/flowforge/activity"
)

// Delay pauses for the duration named by its "duration" input (a Go
// duration string, e.g. "90s" or "5m") before completing. It respects ctx
// cancellation so an instance Cancel takes effect immediately rather than
// waiting out the sleep.
type Delay struct{}

func (Delay) Execute(ctx context.Context, actx *activity.Context) (activity.Result, error) {
	raw, _ := actx.Input["duration"].(string)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return activity.Fail("INVALID_INPUT", fmt.Sprintf("delay: invalid duration %q: %v", raw, err), false), nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return activity.Ok(map[string]any{"waited": raw}), nil
	case <-ctx.Done():
		return activity.Result{}, ctx.Err()
	}
}
