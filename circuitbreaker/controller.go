package circuitbreaker

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nadzya/resiliencecore/clock"
)

// controller owns the state machine for one breaker: it decides whether to
// admit a call, records outcomes against a behavior policy, and drives
// Closed/Open/HalfOpen/Isolated transitions.
//
// Every mutation happens under mu. Transition notifications are appended
// to an internal queue while mu is still held, then handed to a single
// dedicated goroutine for dispatch. Because the queue is only ever
// appended to inside the same critical section that decides the
// transition, and a single goroutine drains it strictly in append order,
// subscribers always observe notifications in exactly the order the
// transitions happened, even though dispatch itself runs outside the lock
// and may lag behind it.
type controller struct {
	name          string
	clock         clock.Provider
	behavior      behavior
	breakDuration time.Duration
	onChange      TransitionHook
	telemetry     func(from, to State, lastErr error)

	mu       sync.Mutex
	state    State
	openedAt time.Time
	lastErr  error

	totalRequests  atomic.Int64
	totalSuccesses atomic.Int64
	totalFailures  atomic.Int64

	qmu   sync.Mutex
	queue []func()
	wake  chan struct{}
	done  chan struct{}
}

func newController(name string, cl clock.Provider, b behavior, breakDuration time.Duration, onChange TransitionHook) *controller {
	c := &controller{
		name:          name,
		clock:         cl,
		behavior:      b,
		breakDuration: breakDuration,
		onChange:      onChange,
		state:         Closed,
		wake:          make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
	go c.dispatchLoop()
	return c
}

func (c *controller) dispatchLoop() {
	for {
		select {
		case <-c.wake:
			c.drain()
		case <-c.done:
			c.drain()
			return
		}
	}
}

func (c *controller) drain() {
	for {
		c.qmu.Lock()
		if len(c.queue) == 0 {
			c.qmu.Unlock()
			return
		}
		fn := c.queue[0]
		c.queue = c.queue[1:]
		c.qmu.Unlock()
		fn()
	}
}

func (c *controller) enqueue(fn func()) {
	c.qmu.Lock()
	c.queue = append(c.queue, fn)
	c.qmu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// close stops the dispatch goroutine once the queue has been flushed. Only
// the code that owns a controller's whole lifetime should call this — a
// Registry closes every controller it created when the Registry itself is
// closed; a standalone Strategy closes its own controller.
func (c *controller) close() {
	close(c.done)
}

// onActionPreExecute reports whether a call may proceed, resolving an
// elapsed Open break duration into HalfOpen as a side effect.
func (c *controller) onActionPreExecute() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Closed, HalfOpen:
		return nil
	case Isolated:
		return &BrokenCircuitError{State: Isolated}
	case Open:
		if c.clock.Now().Sub(c.openedAt) >= c.breakDuration {
			c.transitionLocked(HalfOpen)
			return nil
		}
		return &BrokenCircuitError{State: Open, LastOutcome: c.lastErr}
	default:
		return nil
	}
}

func (c *controller) onActionSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case HalfOpen:
		c.behavior.reset(c.clock.Now())
		c.lastErr = nil
		c.transitionLocked(Closed)
	case Closed:
		c.behavior.onSuccess(c.clock.Now())
	}
}

func (c *controller) onActionFailure(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastErr = err

	switch c.state {
	case HalfOpen:
		c.openLocked()
	case Closed:
		if c.behavior.onFailure(c.clock.Now()) {
			c.openLocked()
		}
	}
}

func (c *controller) openLocked() {
	c.openedAt = c.clock.Now()
	c.transitionLocked(Open)
}

// isolate forces the breaker Isolated independent of the behavior policy,
// rejecting every call until resetManual is called.
func (c *controller) isolate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = nil
	c.transitionLocked(Isolated)
}

// resetManual clears any state, including Isolated, and returns the
// breaker to Closed with its behavior policy's counters cleared.
func (c *controller) resetManual() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.behavior.reset(c.clock.Now())
	c.lastErr = nil
	c.transitionLocked(Closed)
}

// circuitState returns the current state, resolving an elapsed Open break
// duration into HalfOpen as a side effect.
func (c *controller) circuitState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Open && c.clock.Now().Sub(c.openedAt) >= c.breakDuration {
		c.transitionLocked(HalfOpen)
	}
	return c.state
}

func (c *controller) healthInfo() HealthInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.behavior.healthInfo(c.clock.Now())
}

func (c *controller) lastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// metrics returns the breaker's lifetime request counters, independent of
// the behavior policy's rolling health window.
func (c *controller) metrics() (total, successes, failures int64) {
	return c.totalRequests.Load(), c.totalSuccesses.Load(), c.totalFailures.Load()
}

// transitionLocked must be called with mu held. It is a no-op if to
// matches the current state.
func (c *controller) transitionLocked(to State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to

	if to == Open || to == Isolated {
		slog.Warn("circuit breaker state change", "name", c.name, "from", from.String(), "to", to.String())
	} else {
		slog.Info("circuit breaker state change", "name", c.name, "from", from.String(), "to", to.String())
	}

	if c.onChange == nil && c.telemetry == nil {
		return
	}
	name, onChange, telemetryHook, lastErr := c.name, c.onChange, c.telemetry, c.lastErr
	c.enqueue(func() {
		// telemetry runs before the user hook so a subscriber that reacts
		// to OnStateChange can rely on the event already having fired.
		if telemetryHook != nil {
			telemetryHook(from, to, lastErr)
		}
		if onChange != nil {
			onChange(from, to, name)
		}
	})
}
