package timeout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nadzya/resiliencecore/execctx"
	"github.com/nadzya/resiliencecore/resilience"
	"github.com/nadzya/resiliencecore/telemetry"
)

// Strategy bounds how long a callback may run. It computes a timeout,
// composes a cancellation signal that fires on the earlier of the outer
// signal or the computed deadline, and distinguishes the two causes on
// the way out.
type Strategy[R any] struct {
	name   string
	opts   Options
	source *telemetry.Source
}

// New validates opts and builds a Timeout Strategy. name identifies the
// strategy for telemetry; source may be nil to disable telemetry.
func New[R any](name string, opts Options, source *telemetry.Source) (*Strategy[R], error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Strategy[R]{name: name, opts: opts, source: source}, nil
}

// ExecuteCore implements resilience.Strategy.
func (s *Strategy[R]) ExecuteCore(ctx context.Context, ectx *execctx.Context, callback resilience.Callback[R]) (R, error) {
	var zero R

	d, err := s.resolveTimeout(ctx, ectx)
	if err != nil || !isValidTimeout(d) {
		return callback(ctx, ectx)
	}

	prev := ectx.Cancellation()
	inner, cancel := context.WithCancelCause(prev)
	cause := &deadlineCause{timeout: d}
	timer := s.opts.Clock.AfterFunc(d, func() { cancel(cause) })

	ectx.SetCancellation(inner)
	defer func() {
		timer.Stop()
		cancel(nil)
		ectx.SetCancellation(prev)
	}()

	result, callbackErr := callback(inner, ectx)
	if callbackErr == nil {
		return result, nil
	}

	if inner.Err() == nil {
		// The callback failed on its own; nothing here was cancelled.
		return zero, callbackErr
	}

	firedCause := context.Cause(inner)
	var dc *deadlineCause
	if prev.Err() == nil && errors.As(firedCause, &dc) {
		// Restore the outer cancellation signal before telemetry and the
		// on_timeout hook run, so they observe the outer scope rather than
		// the now-fired inner deadline.
		ectx.SetCancellation(prev)
		args := EventArgs{Cancellation: inner, Cause: firedCause, Timeout: d}
		if s.source != nil {
			s.source.ReportOutcome(ctx, ectx, telemetry.EventOnTimeout, args, telemetry.Failed(callbackErr))
		}
		s.runOnTimeout(ctx, ectx, args)
		return zero, &RejectedError{Timeout: d, Cause: firedCause}
	}

	return zero, &resilience.OperationCancelledError{Cause: firedCause}
}

func (s *Strategy[R]) runOnTimeout(ctx context.Context, ectx *execctx.Context, args EventArgs) {
	if s.opts.OnTimeout == nil {
		return
	}

	hookErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("timeout: on_timeout hook panicked: %v", r)
			}
		}()
		return s.opts.OnTimeout(ctx, args)
	}()

	if hookErr != nil && s.source != nil {
		s.source.Report(ctx, ectx, telemetry.EventOnHookFailure, hookErr)
	}
}

func (s *Strategy[R]) resolveTimeout(ctx context.Context, ectx *execctx.Context) (time.Duration, error) {
	if s.opts.Generator != nil {
		return s.opts.Generator(ctx, ectx)
	}
	return s.opts.Timeout, nil
}

func isValidTimeout(d time.Duration) bool {
	return d > 0
}
