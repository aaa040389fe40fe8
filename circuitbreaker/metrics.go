package circuitbreaker

// BreakerSnapshot reports a breaker's state alongside its health metrics
// and lifetime request counters, the shape the registry's example command
// and any dashboard subscriber print. HealthInfo alone (as returned by
// StateProvider.Health) omits the current State and the lifetime totals,
// which callers displaying a single breaker inevitably want alongside it.
type BreakerSnapshot struct {
	Name           string
	State          State
	TotalRequests  int64
	TotalSuccesses int64
	TotalFailures  int64
	HealthInfo
}

// Snapshot reads a strategy's current state, health and lifetime counters
// in one call.
func Snapshot[R any](name string, s *Strategy[R]) BreakerSnapshot {
	p := s.Provider()
	total, successes, failures := p.Metrics()
	return BreakerSnapshot{
		Name:           name,
		State:          p.State(),
		TotalRequests:  total,
		TotalSuccesses: successes,
		TotalFailures:  failures,
		HealthInfo:     p.Health(),
	}
}
