package engine

import "fmt"

// EngineError is the tagged error every engine entry point returns instead
// of a bare error, so callers can branch on Code rather than string-match
// messages.
type EngineError struct {
	Code    string
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newErr(code, format string, args ...any) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Error codes every engine entry point may return.
const (
	CodeWorkflowNotFound   = "WORKFLOW_NOT_FOUND"
	CodeWorkflowInactive   = "WORKFLOW_INACTIVE"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInstanceNotFound   = "INSTANCE_NOT_FOUND"
	CodeDefinitionNotFound = "DEFINITION_NOT_FOUND"
	CodeLockFailed         = "LOCK_FAILED"
	CodeNotSuspended       = "NOT_SUSPENDED"
	CodeSignalMismatch     = "SIGNAL_MISMATCH"
	CodeActivityNotFound   = "ACTIVITY_NOT_FOUND"
	CodeUnknownActivity    = "UNKNOWN_ACTIVITY_TYPE"
	CodeTimeout            = "TIMEOUT"
	CodeUnexpected         = "UNEXPECTED_ERROR"
	CodePanic              = "PANIC"
	CodeCancelled          = "CANCELLED"
)
