package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	oteltrace "go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/nadzya/resiliencecore/execctx"
)

// Source is the narrow telemetry sink a strategy reports events and
// outcomes to. It binds the identity of the builder that constructed the
// strategy and of the strategy itself, so subscribers and metrics never
// need that context threaded through every call. The zero value is not
// usable; construct one with NewSource.
type Source struct {
	builderName       string
	builderProperties map[string]any
	strategyName      string
	strategyType      string

	subscribers []Subscriber
	enrichers   []Enricher

	meter        otelmetric.Meter
	tracer       oteltrace.Tracer
	durationHist otelmetric.Float64Histogram
}

// Option configures a Source at construction time.
type Option func(*Source)

// WithMeter sets the OpenTelemetry meter used for the
// strategy-execution-duration histogram. Defaults to a no-op meter, so a
// Source is safe to use unconfigured.
func WithMeter(meter otelmetric.Meter) Option {
	return func(s *Source) { s.meter = meter }
}

// WithTracer sets the OpenTelemetry tracer used to span each top-level
// pipeline execution. Defaults to a no-op tracer.
func WithTracer(tracer oteltrace.Tracer) Option {
	return func(s *Source) { s.tracer = tracer }
}

// WithSubscriber registers a Subscriber invoked for every reported Event.
func WithSubscriber(sub Subscriber) Option {
	return func(s *Source) { s.subscribers = append(s.subscribers, sub) }
}

// WithEnricher registers an Enricher run before the duration metric is
// recorded.
func WithEnricher(e Enricher) Option {
	return func(s *Source) { s.enrichers = append(s.enrichers, e) }
}

// NewSource builds a Source bound to the given builder and strategy
// identity.
func NewSource(builderName string, builderProperties map[string]any, strategyName, strategyType string, opts ...Option) *Source {
	s := &Source{
		builderName:       builderName,
		builderProperties: builderProperties,
		strategyName:      strategyName,
		strategyType:      strategyType,
		meter:             noop.NewMeterProvider().Meter("resiliencecore"),
		tracer:            tracenoop.NewTracerProvider().Tracer("resiliencecore"),
	}
	for _, opt := range opts {
		opt(s)
	}

	hist, err := s.meter.Float64Histogram(
		"strategy-execution-duration",
		otelmetric.WithDescription("Duration of a top-level resilience pipeline execution"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		// A noop meter never errors; a misconfigured real meter falls back
		// to recording nothing rather than panicking the caller's pipeline.
		hist, _ = noop.NewMeterProvider().Meter("resiliencecore").Float64Histogram("strategy-execution-duration")
	}
	s.durationHist = hist

	return s
}

// Report fans a named event with no associated outcome out to every
// registered subscriber.
func (s *Source) Report(ctx context.Context, ectx *execctx.Context, name string, args any) {
	s.dispatch(ctx, ectx, name, args, nil)
}

// ReportOutcome fans a named event with an associated callback outcome out
// to every registered subscriber.
func (s *Source) ReportOutcome(ctx context.Context, ectx *execctx.Context, name string, args any, outcome *Outcome) {
	s.dispatch(ctx, ectx, name, args, outcome)
}

func (s *Source) dispatch(ctx context.Context, ectx *execctx.Context, name string, args any, outcome *Outcome) {
	if ectx != nil {
		ectx.AddEvent(name)
	}

	ec := s.runEnrichers(ctx, ectx)
	evt := Event{
		Name:              name,
		BuilderName:       s.builderName,
		BuilderProperties: s.builderProperties,
		StrategyName:      s.strategyName,
		StrategyType:      s.strategyType,
		Args:              args,
		Outcome:           outcome,
	}
	for _, sub := range s.subscribers {
		sub(evt, ec.Tags())
	}
}

func (s *Source) runEnrichers(ctx context.Context, ectx *execctx.Context) *EnrichmentContext {
	ec := &EnrichmentContext{}
	for _, en := range s.enrichers {
		en(ctx, ectx, ec)
	}
	return ec
}

// StartSpan starts a span named spanName for the duration of a top-level
// pipeline execution, tagged with the builder-name and strategy-key
// attributes.
func (s *Source) StartSpan(ctx context.Context, spanName string) (context.Context, oteltrace.Span) {
	return s.tracer.Start(ctx, spanName, oteltrace.WithAttributes(
		attribute.String("builder-name", s.builderName),
		attribute.String("strategy-key", s.strategyName),
	))
}

// RecordExecutionDuration records the strategy-execution-duration
// histogram for one top-level pipeline execution, tagged with
// builder-name, strategy-key, result-type, exception-name and
// execution-health, plus any enricher-added tags.
func (s *Source) RecordExecutionDuration(ctx context.Context, ectx *execctx.Context, d time.Duration, resultType, exceptionName string) {
	ec := s.runEnrichers(ctx, ectx)

	health := "Healthy"
	if ectx == nil || !ectx.IsHealthy() {
		health = "Unhealthy"
	}

	attrs := []attribute.KeyValue{
		attribute.String("builder-name", s.builderName),
		attribute.String("strategy-key", s.strategyName),
		attribute.String("result-type", resultType),
		attribute.String("exception-name", exceptionName),
		attribute.String("execution-health", health),
	}
	for k, v := range ec.Tags() {
		attrs = append(attrs, attribute.String(k, v))
	}

	s.durationHist.Record(ctx, float64(d.Microseconds())/1000.0, otelmetric.WithAttributes(attrs...))
}

// StrategyName returns the identity of the strategy this Source is bound
// to.
func (s *Source) StrategyName() string { return s.strategyName }

// BuilderName returns the identity of the builder that constructed the
// owning strategy.
func (s *Source) BuilderName() string { return s.builderName }
