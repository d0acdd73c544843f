package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/flowforge/flowforge/activity"
)

// runActivity invokes h.Execute under a timeout derived context, recovering
// a handler panic into Fail{Code:"PANIC"} and a deadline exceeded into
// Fail{Code:"TIMEOUT"}. cancelled reports
// true only when the *outer* ctx (not the timeout) was the one that fired —
// that case must propagate as instance cancellation, never as a Fail
// result.
func runActivity(ctx context.Context, h activity.Handler, actx *activity.Context, timeout time.Duration) (result activity.Result, cancelled bool) {
	activityCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		activityCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		res activity.Result
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{res: activity.Fail(CodePanic, fmt.Sprintf("%v", r), true)}
			}
		}()
		res, err := h.Execute(activityCtx, actx)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return activityError(ctx, o.err, timeout)
		}
		return o.res, false
	case <-activityCtx.Done():
		<-done // drain the goroutine before returning
		if ctx.Err() != nil {
			return activity.Result{}, true
		}
		return activity.Fail(CodeTimeout, fmt.Sprintf("activity exceeded timeout of %s", timeout), true), false
	}
}

// activityError converts a handler-returned error into a Fail result,
// unless it signals the outer cancellation propagating through (in which
// case cancelled=true and the result is unused).
func activityError(ctx context.Context, err error, timeout time.Duration) (activity.Result, bool) {
	if ctx.Err() != nil {
		return activity.Result{}, true
	}
	if err == context.DeadlineExceeded {
		return activity.Fail(CodeTimeout, fmt.Sprintf("activity exceeded timeout of %s", timeout), true), false
	}
	return activity.Fail(CodeUnexpected, err.Error(), true), false
}
