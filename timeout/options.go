// Package timeout implements the Timeout Strategy: it bounds how long a
// callback may run and translates an internally-fired deadline into a
// RejectedError distinguishable from ordinary outer cancellation.
package timeout

import (
	"context"
	"time"

	"github.com/nadzya/resiliencecore/clock"
	"github.com/nadzya/resiliencecore/execctx"
	"github.com/nadzya/resiliencecore/resilience"
)

// minTimeout is the builder-time floor for a configured static Timeout:
// durations below half a second are rejected for both circuit breaker and
// timeout boundaries. It does not apply to a value returned at runtime by
// Generator: there, any non-positive value simply disables the
// strategy for that call.
const minTimeout = 500 * time.Millisecond

// Generator computes the timeout to apply for one execution. A
// non-positive return value means "disabled" for that call.
type Generator func(ctx context.Context, ectx *execctx.Context) (time.Duration, error)

// Hook runs when the strategy translates an internal deadline into
// RejectedError. A hook failure is reported to telemetry and
// swallowed; it never replaces the RejectedError returned to the
// caller.
type Hook func(ctx context.Context, args EventArgs) error

// Options configures a Timeout Strategy.
type Options struct {
	// Timeout is the duration applied when Generator is nil; it is not
	// consulted when Generator is set, even if Generator returns a
	// non-positive value. Zero disables the strategy when Generator is
	// also nil; a negative value, like any value below 500ms other than
	// zero, is rejected by validation.
	Timeout time.Duration

	// Generator, when set, is consulted on every call in place of the
	// static Timeout.
	Generator Generator

	// OnTimeout is invoked whenever the strategy translates a fired
	// deadline into RejectedError.
	OnTimeout Hook

	// Clock supplies time reads and timer arming. Defaults to clock.System;
	// tests substitute a clock.FakeProvider for deterministic timing.
	Clock clock.Provider
}

func (o Options) withDefaults() Options {
	out := o
	if out.Clock == nil {
		out.Clock = clock.System
	}
	return out
}

func (o Options) validate() error {
	if o.Timeout != 0 && o.Timeout < minTimeout {
		return &resilience.InvalidOptionsError{
			Field:  "Timeout",
			Reason: "must be zero (disabled) or at least 500ms",
		}
	}
	return nil
}

// EventArgs is reported via telemetry.EventOnTimeout and passed to
// OnTimeout when the strategy's internal deadline fires.
type EventArgs struct {
	// Cancellation is the inner cancellation signal that fired.
	Cancellation context.Context
	// Cause is the error the deadline fired with.
	Cause error
	// Timeout is the duration that elapsed.
	Timeout time.Duration
}
