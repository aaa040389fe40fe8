package telemetry

// Well-known event names reported by the strategies in this module. A
// pipeline's execution-health tag is derived from whether any event was
// reported with the current execution context (see
// execctx.Context.IsHealthy). The circuit-breaker transition events are
// reported from the controller's dispatch goroutine without an execution
// context, so they do not affect that tag.
const (
	EventOnTimeout           = "OnTimeout"
	EventOnCircuitOpened     = "OnCircuitOpened"
	EventOnCircuitClosed     = "OnCircuitClosed"
	EventOnCircuitHalfOpened = "OnCircuitHalfOpened"
	// EventOnHookFailure is reported when the timeout strategy's OnTimeout
	// hook returns an error or panics; the failure is swallowed rather than
	// propagated to the caller. The circuit breaker's OnStateChange hook
	// has no error result and its panics are neither recovered nor
	// reported.
	EventOnHookFailure = "OnTelemetryHookFailure"
)

// Event describes a single reported occurrence, ready for fan-out to
// subscribers. Args carries the event-specific payload (for example a
// timeout.EventArgs or a circuitbreaker.TransitionEventArgs); Outcome is
// nil for events with no associated callback outcome.
type Event struct {
	Name              string
	BuilderName       string
	BuilderProperties map[string]any
	StrategyName      string
	StrategyType      string
	Args              any
	Outcome           *Outcome
}

// Outcome summarizes a callback result for telemetry purposes: either a
// success (Err == nil) or the failure that occurred.
type Outcome struct {
	Err error
}

// Succeeded builds a successful Outcome.
func Succeeded() *Outcome { return &Outcome{} }

// Failed builds a failed Outcome wrapping err.
func Failed(err error) *Outcome { return &Outcome{Err: err} }

// IsSuccess reports whether the outcome represents success.
func (o *Outcome) IsSuccess() bool { return o == nil || o.Err == nil }

// Subscriber receives every reported Event along with the tags any
// registered Enricher added for it. Subscribers must not block beyond
// synchronous dispatch.
type Subscriber func(Event, map[string]string)
