package resilience

import (
	"context"
	"fmt"
	"reflect"
	"time"

	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/nadzya/resiliencecore/execctx"
	"github.com/nadzya/resiliencecore/telemetry"
)

// Pipeline composes an ordered sequence of strategies into a single
// Strategy. ExecuteCore invokes the first strategy with a callback that,
// when invoked, delegates to the second, and so on; the last strategy
// receives the user callback. Strategies form an onion: outermost first.
//
// A Pipeline is itself a Strategy and can be nested inside another.
type Pipeline[R any] struct {
	strategies []Strategy[R]
	telemetry  *telemetry.Source
}

// PipelineOption configures a Pipeline at construction time.
type PipelineOption[R any] func(*Pipeline[R])

// WithTelemetry attaches the Source used to record the top-level
// strategy-execution-duration metric for every Execute/ExecuteAsync call.
func WithTelemetry[R any](src *telemetry.Source) PipelineOption[R] {
	return func(p *Pipeline[R]) { p.telemetry = src }
}

// NewPipeline composes strategies in the given order, outermost first.
func NewPipeline[R any](strategies []Strategy[R], opts ...PipelineOption[R]) *Pipeline[R] {
	p := &Pipeline[R]{strategies: append([]Strategy[R]{}, strategies...)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ExecuteCore satisfies Strategy, letting a Pipeline nest inside another.
func (p *Pipeline[R]) ExecuteCore(ctx context.Context, ectx *execctx.Context, callback Callback[R]) (R, error) {
	next := callback
	for i := len(p.strategies) - 1; i >= 0; i-- {
		strategy := p.strategies[i]
		inner := next
		next = func(ctx context.Context, ectx *execctx.Context) (R, error) {
			return strategy.ExecuteCore(ctx, ectx, inner)
		}
	}
	return next(ctx, ectx)
}

// Execute runs the pipeline synchronously: it acquires a fresh execution
// context, marks it synchronous, and releases it before returning.
func Execute[R any](p *Pipeline[R], ctx context.Context, callback Callback[R]) (R, error) {
	return p.run(ctx, callback, true)
}

// AsyncResult is the outcome delivered on the channel ExecuteAsync
// returns.
type AsyncResult[R any] struct {
	Value R
	Err   error
}

// ExecuteAsync runs the pipeline on its own goroutine, marking the
// execution context asynchronous. Both entry points share p.run so a
// strategy's suspension points behave identically regardless of mode; in
// synchronous mode they simply complete inline because nothing yields
// control back to the caller's goroutine.
func ExecuteAsync[R any](p *Pipeline[R], ctx context.Context, callback Callback[R]) <-chan AsyncResult[R] {
	ch := make(chan AsyncResult[R], 1)
	go func() {
		v, err := p.run(ctx, callback, false)
		ch <- AsyncResult[R]{Value: v, Err: err}
	}()
	return ch
}

// strategyDecisionError is implemented by an error kind a strategy returns
// to represent its own decision — a blocked call, a fired deadline, outer
// cancellation, a failed validation — rather than an unmodified callback
// failure. run only wraps errors that don't implement it as a
// UserFailureError.
type strategyDecisionError interface {
	StrategyDecision()
}

func (p *Pipeline[R]) run(ctx context.Context, callback Callback[R], synchronous bool) (R, error) {
	ectx := execctx.Acquire()
	defer execctx.Release(ectx)

	execctx.Initialize[R](ectx, synchronous)

	var span oteltrace.Span
	if p.telemetry != nil {
		ctx, span = p.telemetry.StartSpan(ctx, "resilience.pipeline.execute")
		defer span.End()
	}
	ectx.SetCancellation(ctx)

	start := time.Now()
	result, err := p.ExecuteCore(ctx, ectx, callback)

	if err != nil {
		if _, ok := err.(strategyDecisionError); !ok {
			err = &UserFailureError{Cause: err}
		}
	}

	if p.telemetry != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
		}
		p.telemetry.RecordExecutionDuration(ctx, ectx, time.Since(start), resultTypeName[R](), exceptionName(err))
	}

	return result, err
}

func resultTypeName[R any]() string {
	var zero R
	t := reflect.TypeOf(zero)
	if t == nil {
		return "any"
	}
	return t.String()
}

func exceptionName(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%T", err)
}
