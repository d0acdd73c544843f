// Package engine implements the Workflow Execution Engine:
// Start/Execute/ResumeWithSignal/Cancel and the activity advancement loop
// that drives a single instance under its held per-instance lock.
//
// Structurally this mirrors a mutex-guarded, generic checkpointing engine
// with the type parameter collapsed: FlowForge's state is dynamically
// JSON-shaped
// (workflow.WorkflowInstance's Input/State/Output maps), not a compile-time
// generic, so the mutex-guarded definition cache, store, emitter, and
// functional-option shape are carried over but the node/edge graph walk is
// replaced by the activity/transition walk.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowforge/flowforge/activity"
	"github.com/flowforge/flowforge/emit"
	"github.com/flowforge/flowforge/expr"
	"github.com/flowforge/flowforge/lock"
	"github.com/flowforge/flowforge/persistence"
	"github.com/flowforge/flowforge/workflow"
)

// Options configures engine-wide defaults, overridden per definition and
// per activity.
type Options struct {
	DefaultTimeout     time.Duration
	DefaultRetryPolicy *workflow.RetryPolicy
	LockWaitTimeout    time.Duration
	LockLease          time.Duration
	Metrics            *Metrics
}

// defaultOptions mirrors the engine.* defaults.
func defaultOptions() Options {
	return Options{
		DefaultTimeout: time.Hour,
		DefaultRetryPolicy: &workflow.RetryPolicy{
			MaxAttempts:       3,
			InitialDelay:      time.Second,
			MaxDelay:          5 * time.Minute,
			BackoffMultiplier: 2,
		},
		LockWaitTimeout: 30 * time.Second,
		LockLease:       5 * time.Minute,
	}
}

// Engine advances WorkflowInstances under a per-instance lock. Safe for
// concurrent use across many instances; the lock serializes concurrent
// Execute calls for the *same* instance.
type Engine struct {
	store    persistence.Port
	registry *activity.Registry
	locker   lock.Locker
	emitter  emit.Emitter
	services *activity.Services
	opts     Options

	mu          sync.RWMutex
	defCache    map[string]*workflow.WorkflowDefinition // "name@version" -> validated definition
	newInstance func() string
}

// New builds an Engine. Any zero-valued Options field falls back to
// the default.
func New(store persistence.Port, registry *activity.Registry, locker lock.Locker, emitter emit.Emitter, services *activity.Services, opts Options) *Engine {
	defaults := defaultOptions()
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = defaults.DefaultTimeout
	}
	if opts.DefaultRetryPolicy == nil {
		opts.DefaultRetryPolicy = defaults.DefaultRetryPolicy
	}
	if opts.LockWaitTimeout <= 0 {
		opts.LockWaitTimeout = defaults.LockWaitTimeout
	}
	if opts.LockLease <= 0 {
		opts.LockLease = defaults.LockLease
	}
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}
	return &Engine{
		store:       store,
		registry:    registry,
		locker:      locker,
		emitter:     emitter,
		services:    services,
		opts:        opts,
		defCache:    make(map[string]*workflow.WorkflowDefinition),
		newInstance: uuid.NewString,
	}
}

// Start resolves the active definition for name (or fails
// WORKFLOW_NOT_FOUND/WORKFLOW_INACTIVE), validates input against its
// input_schema, and creates a new Pending instance. It does not execute
// the instance.
func (e *Engine) Start(ctx context.Context, name string, version *int, input map[string]any, correlationID, parentID string) (*workflow.WorkflowInstance, error) {
	def, err := e.resolveDefinition(ctx, name, version, true)
	if err != nil {
		return nil, err
	}
	if !def.IsActive {
		return nil, newErr(CodeWorkflowInactive, "workflow %q version %d is not active", name, def.Version)
	}

	if err := validateInput(def.InputSchema, input); err != nil {
		return nil, err
	}

	inst := workflow.NewInstance(e.newInstance(), name, def.Version, input, def.StartActivityID, correlationID, parentID)
	if err := e.store.Instances.Create(ctx, inst); err != nil {
		return nil, newErr(CodeUnexpected, "create instance: %v", err)
	}
	return inst, nil
}

// Execute acquires the instance's lock, loads it, and runs the
// advancement loop until the instance completes, fails, suspends, or is
// cancelled. A terminal instance is returned
// unchanged without taking the lock.
func (e *Engine) Execute(ctx context.Context, instanceID string) (*workflow.WorkflowInstance, error) {
	inst, err := e.store.Instances.Get(ctx, instanceID)
	if err != nil {
		return nil, newErr(CodeInstanceNotFound, "instance %q: %v", instanceID, err)
	}
	if inst.Status.Terminal() {
		return inst, nil
	}

	handle, err := e.locker.Acquire(ctx, lockKey(instanceID), e.opts.LockWaitTimeout, e.opts.LockLease)
	if err != nil {
		return nil, newErr(CodeUnexpected, "acquire lock: %v", err)
	}
	if handle == nil {
		return nil, newErr(CodeLockFailed, "could not acquire lock for instance %q within %s", instanceID, e.opts.LockWaitTimeout)
	}
	defer func() { _ = handle.Release(context.WithoutCancel(ctx)) }()
	e.opts.Metrics.incActive()
	defer e.opts.Metrics.decActive()

	// Re-load inside the lock: another worker may have already advanced
	// (or terminated) this instance between our first Get and acquiring
	// the lock.
	inst, err = e.store.Instances.Get(ctx, instanceID)
	if err != nil {
		return nil, newErr(CodeInstanceNotFound, "instance %q: %v", instanceID, err)
	}
	if inst.Status.Terminal() {
		return inst, nil
	}

	if inst.Status == workflow.Pending {
		now := time.Now().UTC()
		inst.Status = workflow.Running
		inst.StartedAt = &now
	}

	if err := e.advance(ctx, inst); err != nil {
		// advance does not persist on cancellation; persist here with a
		// context that is not cancelled. Any other error here is a
		// programming/store error surfacing to the caller.
		if perr := e.persist(context.WithoutCancel(ctx), inst); perr != nil {
			return nil, newErr(CodeUnexpected, "persist after cancellation: %v", perr)
		}
		return inst, err
	}

	if err := e.persist(ctx, inst); err != nil {
		return nil, newErr(CodeUnexpected, "persist instance: %v", err)
	}
	return inst, nil
}

// ResumeWithSignal delivers a signal to a Suspended instance, advances it
// past the suspend point via transition choice, and hands off to Execute
//.
func (e *Engine) ResumeWithSignal(ctx context.Context, instanceID, signalName string, data map[string]any) (*workflow.WorkflowInstance, error) {
	inst, err := e.store.Instances.Get(ctx, instanceID)
	if err != nil {
		return nil, newErr(CodeInstanceNotFound, "instance %q: %v", instanceID, err)
	}
	if inst.Status != workflow.Suspended {
		return nil, newErr(CodeNotSuspended, "instance %q is not suspended (status=%s)", instanceID, inst.Status)
	}
	suspendKey, _ := inst.State[workflow.SuspendKeyState].(string)
	if suspendKey != signalName {
		return nil, newErr(CodeSignalMismatch, "instance %q is waiting on signal %q, got %q", instanceID, suspendKey, signalName)
	}

	for k, v := range data {
		inst.State[workflow.SignalStatePrefix+k] = v
	}
	delete(inst.State, workflow.SuspendKeyState)

	def, err := e.resolveDefinition(ctx, inst.WorkflowName, &inst.WorkflowVersion, false)
	if err != nil {
		return nil, err
	}
	scope := instanceScope(inst)
	next := chooseTransition(def, inst.CurrentActivityID, scope)
	if next == "" {
		inst.Status = workflow.Completed
		now := time.Now().UTC()
		inst.CompletedAt = &now
		inst.CurrentActivityID = ""
		inst.Output = projectOutput(def, inst.State)
	} else {
		inst.CurrentActivityID = next
		inst.Status = workflow.Running
	}

	if err := e.persist(ctx, inst); err != nil {
		return nil, newErr(CodeUnexpected, "persist resumed instance: %v", err)
	}
	if inst.Status.Terminal() {
		return inst, nil
	}
	return e.Execute(ctx, instanceID)
}

// Cancel marks a non-terminal instance Cancelled. A terminal instance is
// returned unchanged.
func (e *Engine) Cancel(ctx context.Context, instanceID string) (*workflow.WorkflowInstance, error) {
	inst, err := e.store.Instances.Get(ctx, instanceID)
	if err != nil {
		return nil, newErr(CodeInstanceNotFound, "instance %q: %v", instanceID, err)
	}
	if inst.Status.Terminal() {
		return inst, nil
	}
	now := time.Now().UTC()
	inst.Status = workflow.Cancelled
	inst.CompletedAt = &now
	inst.CurrentActivityID = ""
	if err := e.persist(ctx, inst); err != nil {
		return nil, newErr(CodeUnexpected, "persist cancelled instance: %v", err)
	}
	return inst, nil
}

func (e *Engine) persist(ctx context.Context, inst *workflow.WorkflowInstance) error {
	inst.UpdatedAt = time.Now().UTC()
	return e.store.Instances.Update(ctx, inst)
}

func lockKey(instanceID string) string { return "instance:" + instanceID }

func instanceScope(inst *workflow.WorkflowInstance) *expr.Scope {
	return expr.NewScope(inst.Input, inst.State, inst.Output)
}

// resolveDefinition loads a WorkflowDefinition, validating it and caching
// the validated copy under "name@version". bypassCache is set by Start,
// which must always see the latest persisted definition.
func (e *Engine) resolveDefinition(ctx context.Context, name string, version *int, bypassCache bool) (*workflow.WorkflowDefinition, error) {
	cacheKey := defCacheKey(name, version)

	if !bypassCache {
		e.mu.RLock()
		cached, ok := e.defCache[cacheKey]
		e.mu.RUnlock()
		if ok {
			return cached, nil
		}
	}

	def, err := e.store.Definitions.Get(ctx, name, version)
	if err != nil {
		return nil, newErr(CodeWorkflowNotFound, "workflow %q: %v", name, err)
	}
	if err := def.Validate(); err != nil {
		return nil, newErr(CodeDefinitionNotFound, "workflow %q version %d fails validation: %v", name, def.Version, err)
	}

	e.mu.Lock()
	e.defCache[defCacheKey(name, &def.Version)] = def
	if version == nil {
		e.defCache[cacheKey] = def
	}
	e.mu.Unlock()

	return def, nil
}

// defCacheKey builds the defCache key for (name, version), keying on the
// dereferenced version value (or "latest" when version is nil) rather than
// the *int pointer itself — callers each pass a fresh pointer to their own
// WorkflowVersion field, so keying on %v of the pointer would key on its
// address and never hit across calls.
func defCacheKey(name string, version *int) string {
	if version == nil {
		return name + "@latest"
	}
	return fmt.Sprintf("%s@%d", name, *version)
}
