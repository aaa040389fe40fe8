package circuitbreaker

// ManualControl lets a caller force a breaker into or out of the Isolated
// state independent of its behavior policy's normal transitions. Obtain
// one from Strategy.Manual.
type ManualControl struct {
	c *controller
}

// Isolate forces the breaker into the Isolated state. Every subsequent
// call is rejected with a BrokenCircuitError until Reset is called.
func (m ManualControl) Isolate() { m.c.isolate() }

// Reset clears Isolated (or any other state) and returns the breaker to
// Closed with its behavior policy's counters cleared.
func (m ManualControl) Reset() { m.c.resetManual() }
