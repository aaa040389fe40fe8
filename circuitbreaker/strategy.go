// Package circuitbreaker implements the Circuit Breaker Strategy: a state
// controller that short-circuits calls once a configurable behavior policy
// decides the wrapped operation is unhealthy, and lets it back through as
// probes once a break duration elapses.
package circuitbreaker

import (
	"context"

	"github.com/nadzya/resiliencecore/execctx"
	"github.com/nadzya/resiliencecore/outcome"
	"github.com/nadzya/resiliencecore/resilience"
	"github.com/nadzya/resiliencecore/telemetry"
)

// Strategy is a Circuit Breaker Strategy. Construct one with NewBasic (the
// consecutive-failure variant) or NewAdvanced (the rolling health-metric
// variant).
type Strategy[R any] struct {
	c            *controller
	shouldHandle Predicate[R]
}

// NewBasic builds a Circuit Breaker Strategy using the consecutive-failure
// behavior policy: FailureThreshold handled failures in a row trips it.
func NewBasic[R any](opts BasicOptions[R], source *telemetry.Source) (*Strategy[R], error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	b := newConsecutiveBehavior(opts.FailureThreshold)
	c := newController(opts.Name, opts.Clock, b, opts.BreakDuration, opts.OnStateChange)
	c.telemetry = newTelemetryHook(source)
	return &Strategy[R]{c: c, shouldHandle: opts.ShouldHandle}, nil
}

// NewAdvanced builds a Circuit Breaker Strategy using the rolling
// health-metric behavior policy: it trips once the failure rate over the
// last SamplingDuration reaches FailureThreshold, provided at least
// MinimumThroughput outcomes were recorded in that window.
//
// The window implementation is chosen by the same factory rule the health
// metrics package documents: a SamplingDuration below
// maxRollingSubWindows*minTimerResolution (10 * 20ms = 200ms) cannot be
// divided into a full ten sub-windows without going finer than the timer
// resolution floor, so it degenerates to a single contiguous window that
// resets wholesale rather than decaying gradually. At or above that
// threshold the window always divides into exactly ten sub-windows.
func NewAdvanced[R any](opts AdvancedOptions[R], source *telemetry.Source) (*Strategy[R], error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	now := opts.Clock.Now()
	var window healthWindow
	if opts.SamplingDuration < maxRollingSubWindows*minTimerResolution {
		window = newSingleWindow(opts.SamplingDuration, now)
	} else {
		window = newRollingWindow(opts.SamplingDuration, now)
	}
	b := newHealthMetricBehavior(window, opts.FailureThreshold, opts.MinimumThroughput)
	c := newController(opts.Name, opts.Clock, b, opts.BreakDuration, opts.OnStateChange)
	c.telemetry = newTelemetryHook(source)
	return &Strategy[R]{c: c, shouldHandle: opts.ShouldHandle}, nil
}

// ExecuteCore implements resilience.Strategy. Transition telemetry (an
// OnCircuitOpened/OnCircuitHalfOpened/OnCircuitClosed event, exactly once
// per transition) is reported from the controller's ordered dispatch, not
// from here — see newTelemetryHook.
func (s *Strategy[R]) ExecuteCore(ctx context.Context, ectx *execctx.Context, callback resilience.Callback[R]) (R, error) {
	s.c.totalRequests.Add(1)

	if err := s.c.onActionPreExecute(); err != nil {
		s.c.totalFailures.Add(1)
		var zero R
		return zero, err
	}

	result, err := callback(ctx, ectx)

	if ctx.Err() != nil {
		// Outer cancellation passes through without affecting breaker
		// state or the success/failure counters (the call already counts
		// in totalRequests), regardless of what ShouldHandle would say.
		return result, err
	}

	// ShouldHandle is applied to the outcome itself, not just a non-nil
	// error, so a successful-but-unacceptable result can trip the breaker
	// and an error the caller opted out of can leave it untouched. The
	// breaker only observes: the outcome returned to the caller is never
	// transformed.
	if s.handles(outcome.FromResult(result, err), ctx) {
		s.c.onActionFailure(err)
		s.c.totalFailures.Add(1)
	} else {
		s.c.onActionSuccess()
		s.c.totalSuccesses.Add(1)
	}

	return result, err
}

func (s *Strategy[R]) handles(oc outcome.Outcome[R], ctx context.Context) bool {
	if s.shouldHandle == nil {
		return oc.IsFailure()
	}
	return s.shouldHandle(oc, PredicateArgs{Context: ctx})
}

// Provider exposes read access to the breaker's state and health,
// independent of the pipeline it is wired into.
func (s *Strategy[R]) Provider() StateProvider { return StateProvider{c: s.c} }

// Manual exposes Isolate/Reset control over the breaker.
func (s *Strategy[R]) Manual() ManualControl { return ManualControl{c: s.c} }

// Close stops the controller's dispatch goroutine. Call it when the
// strategy was built directly (via NewBasic/NewAdvanced) and is no longer
// needed; strategies obtained from a Registry are closed by Registry.Close.
func (s *Strategy[R]) Close() { s.c.close() }
