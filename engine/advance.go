package engine

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flowforge/flowforge/activity"
	"github.com/flowforge/flowforge/emit"
	"github.com/flowforge/flowforge/expr"
	"github.com/flowforge/flowforge/workflow"
)

// advance runs the activity advancement loop for inst until
// it completes, fails, suspends, or the outer ctx is cancelled. inst is
// mutated in place; the caller is responsible for persisting it, including
// on error return (cancellation sets terminal fields before returning an
// error so the caller's persist-on-error path still sees them).
func (e *Engine) advance(ctx context.Context, inst *workflow.WorkflowInstance) error {
	def, err := e.resolveDefinition(ctx, inst.WorkflowName, &inst.WorkflowVersion, false)
	if err != nil {
		return err
	}

	for inst.Status == workflow.Running && inst.CurrentActivityID != "" {
		if ctx.Err() != nil {
			return e.cancelForContext(ctx, inst)
		}

		act, ok := def.Activity(inst.CurrentActivityID)
		if !ok {
			return newErr(CodeActivityNotFound, "activity %q not found in workflow %q v%d", inst.CurrentActivityID, def.Name, def.Version)
		}

		scope := instanceScope(inst)

		if act.Condition != "" && !expr.Predicate(act.Condition, scope) {
			e.recordSkipped(ctx, inst, act)
			next := chooseTransition(def, act.ID, scope)
			if next == "" {
				return e.completeInstance(inst, def)
			}
			inst.CurrentActivityID = next
			if err := e.persist(ctx, inst); err != nil {
				return newErr(CodeUnexpected, "persist after skip: %v", err)
			}
			continue
		}

		h, ok := e.registry.Lookup(act.Type)
		if !ok {
			return newErr(CodeUnknownActivity, "activity type %q is not registered", act.Type)
		}

		resolvedInput := resolveInputs(act, scope)
		timeout := effectiveTimeout(act, def, e.opts.DefaultTimeout)
		attempt := inst.RetryCount + 1

		exec := &workflow.ActivityExecution{
			ID:               uuid.NewString(),
			WorkflowInstance: inst.ID,
			ActivityID:       act.ID,
			ActivityType:     act.Type,
			Status:           workflow.ActivityRunning,
			Input:            resolvedInput,
			Attempt:          attempt,
			StartedAt:        time.Now().UTC(),
		}
		if err := e.store.Executions.Create(ctx, exec); err != nil {
			return newErr(CodeUnexpected, "create execution row: %v", err)
		}

		actx := &activity.Context{
			Instance: inst,
			Activity: act,
			Input:    resolvedInput,
			Attempt:  attempt,
			Services: e.services.Scoped(inst.ID, act.ID, attempt),
		}
		e.emitEvent(inst.ID, act.ID, attempt, "activity.start", nil)

		result, cancelled := runActivity(ctx, h, actx, timeout)
		if cancelled {
			return e.cancelForContext(ctx, inst)
		}

		completedAt := time.Now().UTC()
		duration := completedAt.Sub(exec.StartedAt)
		exec.CompletedAt = &completedAt
		exec.DurationMS = duration.Milliseconds()

		switch result.Kind {
		case activity.KindFail:
			exec.Status = workflow.ActivityFailed
			if result.Error.Code == CodeTimeout {
				exec.Status = workflow.ActivityTimedOut
			}
			exec.Error = &workflow.InstanceError{
				Code:       result.Error.Code,
				Message:    result.Error.Message,
				ActivityID: act.ID,
				OccurredAt: completedAt,
			}
			if err := e.store.Executions.Update(ctx, exec); err != nil {
				return newErr(CodeUnexpected, "update execution row: %v", err)
			}
			e.opts.Metrics.observeActivity(act.Type, "failed", duration)
			e.emitEvent(inst.ID, act.ID, attempt, "activity.failed", map[string]any{"error": result.Error.Message, "code": result.Error.Code})

			policy := effectiveRetryPolicy(act, def, e.opts.DefaultRetryPolicy)
			if shouldRetry(policy, inst.RetryCount, result.Error) {
				inst.RetryCount++
				delay := computeBackoff(policy, inst.RetryCount)
				e.opts.Metrics.observeRetry(act.Type)
				if err := e.persist(ctx, inst); err != nil {
					return newErr(CodeUnexpected, "persist before retry delay: %v", err)
				}
				select {
				case <-ctx.Done():
					return e.cancelForContext(ctx, inst)
				case <-time.After(delay):
				}
				continue
			}

			now := time.Now().UTC()
			inst.Status = workflow.Failed
			inst.CompletedAt = &now
			inst.CurrentActivityID = ""
			inst.Error = &workflow.InstanceError{
				Code:       result.Error.Code,
				Message:    result.Error.Message,
				ActivityID: act.ID,
				OccurredAt: now,
			}
			return nil

		case activity.KindSuspend:
			exec.Status = workflow.ActivityCompleted
			if err := e.store.Executions.Update(ctx, exec); err != nil {
				return newErr(CodeUnexpected, "update execution row: %v", err)
			}
			e.opts.Metrics.observeActivity(act.Type, "suspended", duration)
			inst.Status = workflow.Suspended
			inst.State[workflow.SuspendKeyState] = result.SuspendKey
			e.emitEvent(inst.ID, act.ID, attempt, "instance.suspended", map[string]any{"suspend_key": result.SuspendKey})
			return nil

		case activity.KindOk:
			exec.Status = workflow.ActivityCompleted
			exec.Output = result.Output
			if err := e.store.Executions.Update(ctx, exec); err != nil {
				return newErr(CodeUnexpected, "update execution row: %v", err)
			}
			e.opts.Metrics.observeActivity(act.Type, "ok", duration)
			e.emitEvent(inst.ID, act.ID, attempt, "activity.completed", nil)

			inst.RetryCount = 0
			applyOutputMappings(act, inst.State, result.Output)

			var next string
			if result.HasNextOverride {
				next = result.NextActivityID
			} else {
				next = chooseTransition(def, act.ID, instanceScope(inst))
			}
			if next == "" {
				return e.completeInstance(inst, def)
			}
			inst.CurrentActivityID = next
			if err := e.persist(ctx, inst); err != nil {
				return newErr(CodeUnexpected, "persist after step: %v", err)
			}
		}
	}
	return nil
}

// cancelForContext marks inst Cancelled and returns an error describing the
// outer cancellation, matching the "outer cancel ... instance set
// to Cancelled ... cancellation re-raised to caller".
func (e *Engine) cancelForContext(ctx context.Context, inst *workflow.WorkflowInstance) error {
	now := time.Now().UTC()
	inst.Status = workflow.Cancelled
	inst.CompletedAt = &now
	inst.CurrentActivityID = ""
	return newErr(CodeCancelled, "execution cancelled: %v", ctx.Err())
}

// completeInstance finalizes inst as Completed, projecting its output
// through the definition's output_schema.
func (e *Engine) completeInstance(inst *workflow.WorkflowInstance, def *workflow.WorkflowDefinition) error {
	now := time.Now().UTC()
	inst.Status = workflow.Completed
	inst.CompletedAt = &now
	inst.CurrentActivityID = ""
	inst.Output = projectOutput(def, inst.State)
	e.emitEvent(inst.ID, "", 0, "instance.completed", nil)
	return nil
}

// recordSkipped writes a Skipped execution row for an activity whose
// condition predicate evaluated false. It is best-effort: a write failure
// here must not abort the advancement loop, so it is logged rather than
// returned.
func (e *Engine) recordSkipped(ctx context.Context, inst *workflow.WorkflowInstance, act workflow.ActivityDefinition) {
	now := time.Now().UTC()
	exec := &workflow.ActivityExecution{
		ID:               uuid.NewString(),
		WorkflowInstance: inst.ID,
		ActivityID:       act.ID,
		ActivityType:     act.Type,
		Status:           workflow.ActivitySkipped,
		Attempt:          1,
		StartedAt:        now,
		CompletedAt:      &now,
	}
	if err := e.store.Executions.Create(ctx, exec); err != nil {
		e.services.Logger.Warn("failed to record skipped activity execution",
			zap.Error(err), zap.String("instance_id", inst.ID), zap.String("activity_id", act.ID))
	}
}

func (e *Engine) emitEvent(instanceID, activityID string, attempt int, msg string, meta map[string]any) {
	e.emitter.Emit(emit.Event{InstanceID: instanceID, ActivityID: activityID, Attempt: attempt, Msg: msg, Meta: meta})
}

// resolveInputs evaluates every input_mappings expression via the path
// evaluator. Activity properties are not part of this
// map: they flow through the definition unchanged and are read by handlers
// directly off activity.Context.Activity.Properties.
func resolveInputs(act workflow.ActivityDefinition, scope *expr.Scope) map[string]any {
	resolved := make(map[string]any, len(act.InputMappings))
	for name, path := range act.InputMappings {
		resolved[name] = expr.Path(path, scope)
	}
	return resolved
}

// applyOutputMappings applies state[state_key] = output[output_name],
// skipping absent output keys.
func applyOutputMappings(act workflow.ActivityDefinition, state map[string]any, output map[string]any) {
	for stateKey, outputName := range act.OutputMappings {
		if v, ok := output[outputName]; ok {
			state[stateKey] = v
		}
	}
}

// chooseTransition picks the next activity: transitions from `from`
// sorted by priority ascending, first non-default match wins, falling back
// to the first is_default transition, else "" (terminates the workflow).
func chooseTransition(def *workflow.WorkflowDefinition, from string, scope *expr.Scope) string {
	var defaultTo string
	for _, t := range def.TransitionsFrom(from) {
		if t.IsDefault {
			if defaultTo == "" {
				defaultTo = t.To
			}
			continue
		}
		if t.Condition == "" || expr.Predicate(t.Condition, scope) {
			return t.To
		}
	}
	return defaultTo
}

// projectOutput narrows state down to the fields named in the
// definition's output_schema, or returns state unchanged when there is
// no output_schema.
func projectOutput(def *workflow.WorkflowDefinition, state map[string]any) map[string]any {
	if def.OutputSchema == nil {
		return state
	}
	out := make(map[string]any, len(def.OutputSchema.Properties))
	for key := range def.OutputSchema.Properties {
		if v, ok := state[key]; ok {
			out[key] = v
		}
	}
	return out
}

// validateInput implements the input validation: every required
// field must be present and non-null; every field with a constrained
// schema type must match it at runtime. The first violation wins.
func validateInput(schema *workflow.Schema, input map[string]any) error {
	if schema == nil {
		return nil
	}
	for _, req := range schema.Required {
		v, ok := input[req]
		if !ok || v == nil {
			return newErr(CodeInvalidInput, "missing required field %q", req)
		}
	}
	for name, v := range input {
		prop, ok := schema.Properties[name]
		if !ok || prop.Type == "" {
			continue
		}
		if !matchesType(v, prop.Type) {
			return newErr(CodeInvalidInput, "field %q expected type %q", name, prop.Type)
		}
	}
	return nil
}

func matchesType(v any, want string) bool {
	switch want {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		switch v.(type) {
		case float64, int:
			return true
		}
		return false
	case "integer":
		switch n := v.(type) {
		case float64:
			return n == math.Trunc(n)
		case int:
			return true
		}
		return false
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	case "object":
		_, ok := v.(map[string]any)
		return ok
	default:
		return true
	}
}
