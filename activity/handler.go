// Package activity defines the activity handler contract and the registry
// the engine dispatches through: every activity type resolves to a
// Handler returning an Ok/Suspend/Fail result.
package activity

import (
	"context"

	"github.com/flowforge/flowforge/workflow"
)

// Handler is identified by a case-insensitive type string in the Registry
// and exposes a single operation. Implementations should validate their
// input, respect ctx cancellation, and never panic — a panic crossing this
// boundary is recovered by the engine and converted to Fail{Code: "PANIC"}.
type Handler interface {
	Execute(ctx context.Context, actx *Context) (Result, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, actx *Context) (Result, error)

func (f HandlerFunc) Execute(ctx context.Context, actx *Context) (Result, error) {
	return f(ctx, actx)
}

// Context is everything a handler needs for one attempt: a read-only
// instance snapshot, the activity definition, the already-resolved input
// map, the 1-based attempt number, and a narrow service locator — never
// ambient/global resolution.
type Context struct {
	Instance *workflow.WorkflowInstance
	Activity workflow.ActivityDefinition
	Input    map[string]any
	Attempt  int
	Services *Services
}

// ResultKind discriminates the Result sum type.
type ResultKind int

const (
	KindOk ResultKind = iota
	KindSuspend
	KindFail
)

// Result is the tagged variant a Handler returns: exactly one of Ok,
// Suspend, or Fail is populated, selected by Kind.
type Result struct {
	Kind ResultKind

	// Ok
	Output          map[string]any
	NextActivityID  string // optional override of transition-based routing
	HasNextOverride bool

	// Suspend
	SuspendKey string

	// Fail
	Error ActivityError
}

// ActivityError is a handler-reported failure.
type ActivityError struct {
	Code      string
	Message   string
	Retriable bool
}

func (e ActivityError) Error() string { return e.Code + ": " + e.Message }

// Ok builds a successful Result.
func Ok(output map[string]any) Result {
	return Result{Kind: KindOk, Output: output}
}

// OkNext builds a successful Result that overrides transition-based
// routing with an explicit next activity id.
func OkNext(output map[string]any, nextActivityID string) Result {
	return Result{Kind: KindOk, Output: output, NextActivityID: nextActivityID, HasNextOverride: true}
}

// Suspend builds a Result that parks the instance until signalName arrives.
func Suspend(signalName string) Result {
	return Result{Kind: KindSuspend, SuspendKey: signalName}
}

// Fail builds a failed Result.
func Fail(code, message string, retriable bool) Result {
	return Result{Kind: KindFail, Error: ActivityError{Code: code, Message: message, Retriable: retriable}}
}
