package circuitbreaker

// State represents the current state of a circuit breaker.
type State int

const (
	// Closed is the normal operating state. Requests pass through and
	// outcomes are tracked by the configured behavior policy.
	Closed State = iota

	// Open rejects all requests immediately with BrokenCircuitError.
	// After BreakDuration elapses, the next request attempt transitions
	// to HalfOpen.
	Open

	// HalfOpen allows requests through as probes. A handled success
	// transitions to Closed; a handled failure transitions back to Open.
	HalfOpen

	// Isolated rejects all requests until Reset is called manually.
	// Unlike Open, Isolated is entered and left only by manual control.
	Isolated
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	case Isolated:
		return "isolated"
	default:
		return "unknown"
	}
}

// HealthInfo is a snapshot of a breaker's rolling failure statistics.
// FailureCount is always <= Throughput.
type HealthInfo struct {
	// Throughput is the number of outcomes recorded in the current
	// sampling window.
	Throughput int
	// FailureCount is the number of those outcomes that were failures.
	FailureCount int
	// FailureRate is FailureCount/Throughput, or 0 when Throughput is 0.
	FailureRate float64
}
