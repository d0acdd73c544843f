package expr

import "fmt"

// ExpressionError is returned by the scripted evaluator for syntax errors
// and resource-limit exhaustion. The simple path/predicate/interpolation
// evaluators never return an error — missing data resolves to nil/false,
// per spec.
type ExpressionError struct {
	Code    string // "SYNTAX", "TIMEOUT", "RUNTIME"
	Message string
}

func (e *ExpressionError) Error() string {
	return fmt.Sprintf("expression error [%s]: %s", e.Code, e.Message)
}
