package builtin

import (
	"context"

	"github.com/flowforge/flowforge/activity"
)

// WaitForSignal suspends the instance until a signal named by its
// "signal_name" input arrives. Resuming is the engine's
// job (ResumeWithSignal writes state["signal_"+k] entries and re-enqueues a
// Resume job). This handler returns Fail when signal_name is missing, Ok on
// any attempt after the first, and Suspend otherwise.
type WaitForSignal struct{}

func (WaitForSignal) Execute(ctx context.Context, actx *activity.Context) (activity.Result, error) {
	signalName, _ := actx.Input["signal_name"].(string)
	if signalName == "" {
		return activity.Fail("INVALID_INPUT", "wait_for_signal: signal_name is required", false), nil
	}
	if actx.Attempt > 1 {
		// A later attempt of this activity completes instead of suspending
		// again. ResumeWithSignal itself moves past this activity through
		// transition choice and does not run it again.
		return activity.Ok(map[string]any{"signal_name": signalName}), nil
	}
	return activity.Suspend(signalName), nil
}
