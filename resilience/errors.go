package resilience

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument identifies a nil or otherwise malformed argument,
// independent of any specific strategy. No function in this package
// returns it; execctx.Release reports a nil context with
// execctx.ErrInvalidArgument.
var ErrInvalidArgument = errors.New("resilience: invalid argument")

// InvalidOptionsError reports a failed builder-time option validation:
// durations below the declared minimum, an out-of-range threshold, and so
// on.
type InvalidOptionsError struct {
	Field  string
	Reason string
}

func (e *InvalidOptionsError) Error() string {
	return fmt.Sprintf("resilience: invalid option %q: %s", e.Field, e.Reason)
}

// StrategyDecision marks InvalidOptionsError as a strategy's own decision
// rather than an unmodified callback failure, so Pipeline.run never wraps
// it as a UserFailureError.
func (e *InvalidOptionsError) StrategyDecision() {}

// OperationCancelledError wraps the outer cancellation that stopped an
// execution. It always propagates; strategies never translate it into a
// different error kind.
type OperationCancelledError struct {
	Cause error
}

func (e *OperationCancelledError) Error() string {
	return fmt.Sprintf("resilience: operation cancelled: %v", e.Cause)
}

func (e *OperationCancelledError) Unwrap() error { return e.Cause }

// StrategyDecision marks OperationCancelledError as a strategy's own
// decision rather than an unmodified callback failure, so Pipeline.run
// never wraps it as a UserFailureError.
func (e *OperationCancelledError) StrategyDecision() {}

// UserFailureError wraps a callback failure that reached the top of a
// pipeline unmodified — no strategy translated it into one of its own
// decision errors (BrokenCircuitError, RejectedError, ...). Pipeline.run
// applies this wrapping to every ExecuteCore error that doesn't already
// implement StrategyDecision. errors.Is/errors.As still reach the original
// callback error through Unwrap.
type UserFailureError struct {
	Cause error
}

func (e *UserFailureError) Error() string { return e.Cause.Error() }

func (e *UserFailureError) Unwrap() error { return e.Cause }
