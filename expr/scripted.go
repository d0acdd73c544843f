package expr

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"
)

// defaultScriptTimeout is the wall-clock limit imposed on a single scripted
// evaluation when the caller does not override it via WithTimeout.
const defaultScriptTimeout = 5 * time.Second

// defaultMaxCallStack bounds recursion depth inside a scripted evaluation.
// goja has no direct heap quota, so this is the evaluator's memory/recursion
// guard: runaway recursion exhausts the call stack long before it can
// exhaust host memory.
const defaultMaxCallStack = 512

// Scripted is the optional, richer JS-like expression evaluator exposed to
// activity handlers (never used by the engine's own transition/condition
// checks, which use Predicate/Path only). Each evaluation gets its own
// *goja.Runtime — goja.Runtime is not safe for concurrent or repeated use
// across calls with different globals, so no runtime is cached or shared.
type Scripted struct {
	Timeout      time.Duration
	MaxCallStack int
}

// NewScripted returns a Scripted evaluator configured with the default
// 5s wall-clock limit and bounded call stack.
func NewScripted() *Scripted {
	return &Scripted{Timeout: defaultScriptTimeout, MaxCallStack: defaultMaxCallStack}
}

// Eval runs expression against scope and returns its resolved value.
//
// The expression executes on its own goroutine so that a deadline exceeded
// can interrupt a runtime stuck in a tight loop (goja checks for
// Interrupt() between bytecode instructions, which a blocked host call
// would not). Syntax errors surface as ExpressionError{Code: "SYNTAX"};
// exceeding the deadline surfaces as ExpressionError{Code: "TIMEOUT"}.
func (s *Scripted) Eval(ctx context.Context, expression string, scope *Scope) (any, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultScriptTimeout
	}
	maxStack := s.MaxCallStack
	if maxStack <= 0 {
		maxStack = defaultMaxCallStack
	}

	vm := goja.New()
	vm.SetMaxCallStackSize(maxStack)
	program, err := goja.Compile("expression", expression, false)
	if err != nil {
		return nil, &ExpressionError{Code: "SYNTAX", Message: err.Error()}
	}
	installGlobals(vm, scope)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val goja.Value
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		v, runErr := vm.RunProgram(program)
		done <- outcome{val: v, err: runErr}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if _, interrupted := o.err.(*goja.InterruptedError); interrupted {
				return nil, &ExpressionError{Code: "TIMEOUT", Message: "evaluation interrupted"}
			}
			return nil, &ExpressionError{Code: "RUNTIME", Message: o.err.Error()}
		}
		return o.val.Export(), nil
	case <-ctx.Done():
		vm.Interrupt("timeout")
		<-done // wait for the goroutine to observe the interrupt and exit
		return nil, &ExpressionError{Code: "TIMEOUT", Message: "evaluation exceeded wall-clock limit"}
	}
}

// installGlobals registers input/state/output plus a set of utility
// callables (now, uuid, round/floor/ceil/abs/min/max, length/first/last,
// coalesce, isEmpty, json.parse/json.stringify) into vm.
func installGlobals(vm *goja.Runtime, scope *Scope) {
	_ = vm.Set("input", scope.Input)
	_ = vm.Set("state", scope.State)
	_ = vm.Set("output", scope.Output)

	_ = vm.Set("now", func() string { return time.Now().UTC().Format(time.RFC3339Nano) })
	_ = vm.Set("uuid", func() string { return uuid.NewString() })

	_ = vm.Set("round", func(f float64) float64 { return math.Round(f) })
	_ = vm.Set("floor", func(f float64) float64 { return math.Floor(f) })
	_ = vm.Set("ceil", func(f float64) float64 { return math.Ceil(f) })
	_ = vm.Set("abs", func(f float64) float64 { return math.Abs(f) })
	_ = vm.Set("min", func(a, b float64) float64 { return math.Min(a, b) })
	_ = vm.Set("max", func(a, b float64) float64 { return math.Max(a, b) })

	_ = vm.Set("length", func(v goja.Value) int { return collectionLength(v.Export()) })
	_ = vm.Set("first", func(v goja.Value) any { return elementAt(v.Export(), 0) })
	_ = vm.Set("last", func(v goja.Value) any {
		items, ok := v.Export().([]any)
		if !ok || len(items) == 0 {
			return nil
		}
		return items[len(items)-1]
	})
	_ = vm.Set("coalesce", func(call goja.FunctionCall) goja.Value {
		for _, arg := range call.Arguments {
			if !goja.IsNull(arg) && !goja.IsUndefined(arg) {
				return arg
			}
		}
		return goja.Null()
	})
	_ = vm.Set("isEmpty", func(v goja.Value) bool { return isEmpty(v.Export()) })

	jsonObj := vm.NewObject()
	_ = jsonObj.Set("parse", func(s string) (any, error) {
		out, err := parseJSON(s)
		if err != nil {
			return nil, fmt.Errorf("json.parse: %w", err)
		}
		return out, nil
	})
	_ = jsonObj.Set("stringify", func(v goja.Value) string { return toJSONString(v.Export()) })
	_ = vm.Set("json", jsonObj)
}

func collectionLength(v any) int {
	switch t := v.(type) {
	case string:
		return len(t)
	case []any:
		return len(t)
	case map[string]any:
		return len(t)
	default:
		return 0
	}
}

func elementAt(v any, i int) any {
	items, ok := v.([]any)
	if !ok || i < 0 || i >= len(items) {
		return nil
	}
	return items[i]
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

