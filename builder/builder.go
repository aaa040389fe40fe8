// Package builder provides a thin, ordered-composition front end over the
// resilience package's Pipeline, mirroring how the options records in
// timeout and circuitbreaker each expose their own withDefaults/validate
// pair. It intentionally does not attempt dependency-injection wiring,
// per-strategy lifecycle management or configuration-file binding — those
// are host-application concerns, not the core's.
package builder

import (
	"github.com/nadzya/resiliencecore/resilience"
	"github.com/nadzya/resiliencecore/telemetry"
)

// Builder accumulates strategies in the order AddStrategy is called and
// produces a Pipeline that applies them outermost-first, matching
// resilience.NewPipeline's contract.
type Builder[R any] struct {
	strategies []resilience.Strategy[R]
	telemetry  *telemetry.Source
}

// New starts an empty Builder.
func New[R any]() *Builder[R] {
	return &Builder[R]{}
}

// WithTelemetry attaches the Source the built Pipeline reports the
// top-level strategy-execution-duration metric to.
func (b *Builder[R]) WithTelemetry(source *telemetry.Source) *Builder[R] {
	b.telemetry = source
	return b
}

// AddStrategy appends a strategy to the pipeline being built. Strategies
// added earlier wrap those added later, so the first AddStrategy call is
// the outermost layer.
func (b *Builder[R]) AddStrategy(s resilience.Strategy[R]) *Builder[R] {
	b.strategies = append(b.strategies, s)
	return b
}

// Build produces the composed Pipeline. Calling Build does not consume or
// reset the Builder; further AddStrategy calls followed by another Build
// produce an independent Pipeline sharing the strategies added so far.
func (b *Builder[R]) Build() *resilience.Pipeline[R] {
	var opts []resilience.PipelineOption[R]
	if b.telemetry != nil {
		opts = append(opts, resilience.WithTelemetry[R](b.telemetry))
	}
	return resilience.NewPipeline(b.strategies, opts...)
}
