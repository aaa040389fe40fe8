package circuitbreaker

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nadzya/resiliencecore/clock"
	"github.com/nadzya/resiliencecore/resilience"
)

// minCircuitDuration is the builder-time floor applied to every
// circuit-breaker duration boundary (BreakDuration, SamplingDuration),
// matching the timeout package's own duration floor.
const minCircuitDuration = 500 * time.Millisecond

// TransitionHook is invoked, off the controller's lock, whenever the
// breaker changes state.
type TransitionHook func(from, to State, name string)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// BasicOptions configures a Circuit Breaker Strategy using the
// consecutive-failure behavior policy: it opens after FailureThreshold
// handled failures in a row, with no notion of throughput or time window.
type BasicOptions[R any] struct {
	// Name identifies the breaker in logs, telemetry and the registry.
	Name string `validate:"required"`

	// FailureThreshold is the number of consecutive handled failures that
	// trips the breaker. Default: 3.
	FailureThreshold int `validate:"omitempty,min=1"`

	// BreakDuration is how long the breaker stays Open before allowing a
	// probe through as HalfOpen. Default: 5s.
	BreakDuration time.Duration

	// ShouldHandle decides whether an outcome counts against the breaker,
	// applied to every callback outcome, success or failure alike. A nil
	// ShouldHandle treats every non-nil error (other than context
	// cancellation, which is never counted) as a handled failure and every
	// success as unhandled.
	ShouldHandle Predicate[R]

	// OnStateChange is invoked after every transition.
	OnStateChange TransitionHook

	// Clock supplies time reads and drives the Open->HalfOpen transition.
	// Defaults to clock.System.
	Clock clock.Provider
}

func (o BasicOptions[R]) withDefaults() BasicOptions[R] {
	out := o
	if out.FailureThreshold <= 0 {
		out.FailureThreshold = 3
	}
	if out.BreakDuration <= 0 {
		out.BreakDuration = 5 * time.Second
	}
	if out.Clock == nil {
		out.Clock = clock.System
	}
	return out
}

func (o BasicOptions[R]) validate() error {
	if err := structValidator.Struct(o); err != nil {
		return &resilience.InvalidOptionsError{Field: "BasicOptions", Reason: err.Error()}
	}
	if o.BreakDuration < minCircuitDuration {
		return &resilience.InvalidOptionsError{
			Field:  "BreakDuration",
			Reason: "must be at least 500ms",
		}
	}
	return nil
}

// AdvancedOptions configures a Circuit Breaker Strategy using the
// health-metric behavior policy: it opens when the failure rate observed
// over a rolling SamplingDuration reaches FailureThreshold, provided at
// least MinimumThroughput outcomes were recorded in that window.
type AdvancedOptions[R any] struct {
	// Name identifies the breaker in logs, telemetry and the registry.
	Name string `validate:"required"`

	// FailureThreshold is the failure ratio in (0,1] that trips the
	// breaker. Default: 0.1.
	FailureThreshold float64 `validate:"omitempty,gt=0,lte=1"`

	// MinimumThroughput is the number of outcomes that must be recorded in
	// the current sampling window before FailureThreshold is consulted.
	// Below it the breaker never trips no matter the failure rate.
	// Default: 100, minimum 2.
	MinimumThroughput int `validate:"omitempty,min=2"`

	// SamplingDuration is the width of the rolling window the failure rate
	// is computed over. Default: 30s, minimum 500ms.
	SamplingDuration time.Duration

	// BreakDuration is how long the breaker stays Open before allowing a
	// probe through as HalfOpen. Default: 5s.
	BreakDuration time.Duration

	// ShouldHandle decides whether an outcome counts against the breaker,
	// as in BasicOptions.
	ShouldHandle Predicate[R]

	// OnStateChange is invoked after every transition.
	OnStateChange TransitionHook

	// Clock supplies time reads and drives window rotation. Defaults to
	// clock.System.
	Clock clock.Provider
}

func (o AdvancedOptions[R]) withDefaults() AdvancedOptions[R] {
	out := o
	if out.FailureThreshold <= 0 {
		out.FailureThreshold = 0.1
	}
	if out.MinimumThroughput <= 0 {
		out.MinimumThroughput = 100
	}
	if out.SamplingDuration <= 0 {
		out.SamplingDuration = 30 * time.Second
	}
	if out.BreakDuration <= 0 {
		out.BreakDuration = 5 * time.Second
	}
	if out.Clock == nil {
		out.Clock = clock.System
	}
	return out
}

func (o AdvancedOptions[R]) validate() error {
	if err := structValidator.Struct(o); err != nil {
		return &resilience.InvalidOptionsError{Field: "AdvancedOptions", Reason: err.Error()}
	}
	if o.BreakDuration < minCircuitDuration {
		return &resilience.InvalidOptionsError{
			Field:  "BreakDuration",
			Reason: "must be at least 500ms",
		}
	}
	if o.SamplingDuration < minCircuitDuration {
		return &resilience.InvalidOptionsError{
			Field:  "SamplingDuration",
			Reason: "must be at least 500ms",
		}
	}
	if o.MinimumThroughput < 2 {
		return &resilience.InvalidOptionsError{
			Field:  "MinimumThroughput",
			Reason: "must be at least 2",
		}
	}
	return nil
}
