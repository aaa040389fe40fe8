package circuitbreaker

// StateProvider is a read-only view onto a breaker's current state and
// health. It is deliberately separate from Strategy so telemetry and
// dashboards can observe a breaker without holding a reference to whatever
// pipeline it is wired into. Obtain one from Strategy.Provider.
type StateProvider struct {
	c *controller
}

// State returns the breaker's current state, resolving an elapsed Open
// break duration into HalfOpen as a side effect, matching what the next
// call through the strategy would observe.
func (p StateProvider) State() State { return p.c.circuitState() }

// Health returns a snapshot of the behavior policy's rolling statistics.
func (p StateProvider) Health() HealthInfo { return p.c.healthInfo() }

// LastError returns the most recent handled failure, or nil if none has
// been recorded since the last reset.
func (p StateProvider) LastError() error { return p.c.lastError() }

// Metrics returns the breaker's lifetime request counters: total attempts
// (including calls rejected while Open/Isolated), successes and failures.
// Unlike Health, these never reset with the behavior policy's window.
func (p StateProvider) Metrics() (total, successes, failures int64) { return p.c.metrics() }
