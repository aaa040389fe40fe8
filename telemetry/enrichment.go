package telemetry

import (
	"context"
	"sync"

	"github.com/nadzya/resiliencecore/execctx"
)

// EnrichmentContext accumulates key/value tags an Enricher wants attached
// to the strategy-execution-duration metric (and to fanned-out events)
// before they reach the backend.
type EnrichmentContext struct {
	mu   sync.Mutex
	tags map[string]string
}

// Add sets a tag. A later call with the same key overwrites the earlier
// value.
func (e *EnrichmentContext) Add(key, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tags == nil {
		e.tags = make(map[string]string)
	}
	e.tags[key] = value
}

// Tags returns a snapshot of the accumulated tags.
func (e *EnrichmentContext) Tags() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.tags))
	for k, v := range e.tags {
		out[k] = v
	}
	return out
}

// Enricher augments an EnrichmentContext with tags derived from the
// execution's context. Enrichers run synchronously, in registration
// order, before a metric is recorded.
type Enricher func(ctx context.Context, ectx *execctx.Context, ec *EnrichmentContext)
