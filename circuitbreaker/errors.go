package circuitbreaker

import "fmt"

// BrokenCircuitError is returned when the breaker rejects a call because
// its state is Open or Isolated. LastOutcome is the error that most
// recently drove the breaker into that state; it is nil for a breaker
// forced open via ManualControl.Isolate.
type BrokenCircuitError struct {
	State       State
	LastOutcome error
}

func (e *BrokenCircuitError) Error() string {
	if e.LastOutcome != nil {
		return fmt.Sprintf("circuitbreaker: circuit %s, last outcome: %v", e.State, e.LastOutcome)
	}
	return fmt.Sprintf("circuitbreaker: circuit %s", e.State)
}

func (e *BrokenCircuitError) Unwrap() error { return e.LastOutcome }

// StrategyDecision marks BrokenCircuitError as the breaker's own decision
// rather than an unmodified callback failure, so resilience.Pipeline.run
// never wraps it a second time as a UserFailureError.
func (e *BrokenCircuitError) StrategyDecision() {}

// Is reports equality by State only, so callers can test for a particular
// broken-circuit state with errors.Is(err, ErrIsolated) without needing to
// know the LastOutcome that happened to be attached.
func (e *BrokenCircuitError) Is(target error) bool {
	t, ok := target.(*BrokenCircuitError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// ErrIsolated matches, via errors.Is, any BrokenCircuitError raised while
// the breaker is in the Isolated state.
var ErrIsolated = &BrokenCircuitError{State: Isolated}

// ErrOpen matches, via errors.Is, any BrokenCircuitError raised while the
// breaker is in the Open state.
var ErrOpen = &BrokenCircuitError{State: Open}
