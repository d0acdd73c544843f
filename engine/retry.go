package engine

import (
	"math"
	"time"

	"github.com/flowforge/flowforge/activity"
	"github.com/flowforge/flowforge/workflow"
)

// shouldRetry implements the retry decision: retriable,
// within the attempt budget, and not excluded by DoNotRetryOn/RetryOn.
func shouldRetry(policy *workflow.RetryPolicy, retryCountBeforeThisAttempt int, aerr activity.ActivityError) bool {
	if !aerr.Retriable || policy == nil {
		return false
	}
	if retryCountBeforeThisAttempt >= policy.MaxAttempts {
		return false
	}
	if containsCode(policy.DoNotRetryOn, aerr.Code) {
		return false
	}
	if len(policy.RetryOn) > 0 && !containsCode(policy.RetryOn, aerr.Code) {
		return false
	}
	return true
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// computeBackoff returns the retry delay:
// min(initial_delay * backoff_multiplier^(retryCount-1), max_delay), where
// retryCount is the attempt count *after* incrementing for this retry.
func computeBackoff(policy *workflow.RetryPolicy, retryCount int) time.Duration {
	multiplier := policy.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	delay := float64(policy.InitialDelay) * math.Pow(multiplier, float64(retryCount-1))
	d := time.Duration(delay)
	if policy.MaxDelay > 0 && d > policy.MaxDelay {
		return policy.MaxDelay
	}
	return d
}

// effectiveRetryPolicy resolves the precedence: activity >
// definition > engine default.
func effectiveRetryPolicy(act workflow.ActivityDefinition, def *workflow.WorkflowDefinition, engineDefault *workflow.RetryPolicy) *workflow.RetryPolicy {
	if act.RetryPolicy != nil {
		return act.RetryPolicy
	}
	if def.DefaultRetry != nil {
		return def.DefaultRetry
	}
	return engineDefault
}

// effectiveTimeout resolves the precedence: activity >
// definition > engine default.
func effectiveTimeout(act workflow.ActivityDefinition, def *workflow.WorkflowDefinition, engineDefault time.Duration) time.Duration {
	if act.Timeout > 0 {
		return act.Timeout
	}
	if def.DefaultTimeout > 0 {
		return def.DefaultTimeout
	}
	return engineDefault
}
