package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/nadzya/resiliencecore/clock"
)

var errBoom = errors.New("boom")

func TestConsecutiveBehaviorOpensAtThresholdNotBefore(t *testing.T) {
	t.Parallel()

	fc := clock.NewFakeProvider(time.Now())
	c := newController("t", fc, newConsecutiveBehavior(3), time.Minute, nil)
	defer c.close()

	require.NoError(t, c.onActionPreExecute())
	c.onActionFailure(errBoom)
	c.onActionFailure(errBoom)
	require.Equal(t, Closed, c.circuitState(), "two failures under threshold must not trip")

	c.onActionFailure(errBoom)
	require.Equal(t, Open, c.circuitState(), "third consecutive failure must trip")
}

func TestConsecutiveBehaviorResetsStreakOnSuccess(t *testing.T) {
	t.Parallel()

	fc := clock.NewFakeProvider(time.Now())
	c := newController("t", fc, newConsecutiveBehavior(3), time.Minute, nil)
	defer c.close()

	c.onActionFailure(errBoom)
	c.onActionFailure(errBoom)
	c.onActionSuccess()
	c.onActionFailure(errBoom)
	c.onActionFailure(errBoom)

	require.Equal(t, Closed, c.circuitState(), "success must reset the consecutive streak")
}

func TestOpenRejectsUntilBreakDurationElapses(t *testing.T) {
	t.Parallel()

	fc := clock.NewFakeProvider(time.Now())
	c := newController("t", fc, newConsecutiveBehavior(1), 10*time.Second, nil)
	defer c.close()

	c.onActionFailure(errBoom)
	require.Equal(t, Open, c.circuitState())

	err := c.onActionPreExecute()
	var broken *BrokenCircuitError
	require.ErrorAs(t, err, &broken)
	require.True(t, errors.Is(err, ErrOpen))

	fc.Advance(11 * time.Second)
	require.NoError(t, c.onActionPreExecute(), "past BreakDuration the next call must be admitted as a probe")
	require.Equal(t, HalfOpen, c.circuitState())
}

func TestHalfOpenSuccessClosesAndResetsBehavior(t *testing.T) {
	t.Parallel()

	fc := clock.NewFakeProvider(time.Now())
	c := newController("t", fc, newConsecutiveBehavior(1), 10*time.Second, nil)
	defer c.close()

	c.onActionFailure(errBoom)
	fc.Advance(11 * time.Second)
	require.NoError(t, c.onActionPreExecute())
	c.onActionSuccess()

	require.Equal(t, Closed, c.circuitState())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	fc := clock.NewFakeProvider(time.Now())
	c := newController("t", fc, newConsecutiveBehavior(1), 10*time.Second, nil)
	defer c.close()

	c.onActionFailure(errBoom)
	fc.Advance(11 * time.Second)
	require.NoError(t, c.onActionPreExecute())
	c.onActionFailure(errBoom)

	require.Equal(t, Open, c.circuitState())
}

func TestIsolateRejectsAndResetReturnsToClosed(t *testing.T) {
	t.Parallel()

	fc := clock.NewFakeProvider(time.Now())
	c := newController("t", fc, newConsecutiveBehavior(3), time.Minute, nil)
	defer c.close()

	c.isolate()
	err := c.onActionPreExecute()
	require.True(t, errors.Is(err, ErrIsolated))

	// Advancing time never lets Isolated resolve on its own.
	fc.Advance(time.Hour)
	require.True(t, errors.Is(c.onActionPreExecute(), ErrIsolated))

	c.resetManual()
	require.NoError(t, c.onActionPreExecute())
	require.Equal(t, Closed, c.circuitState())
}

func TestIsolateAndResetAreIdempotent(t *testing.T) {
	t.Parallel()

	fc := clock.NewFakeProvider(time.Now())
	c := newController("t", fc, newConsecutiveBehavior(3), time.Minute, nil)
	defer c.close()

	c.isolate()
	c.isolate()
	require.Equal(t, Isolated, c.circuitState())

	c.resetManual()
	c.resetManual()
	require.Equal(t, Closed, c.circuitState())
}

func TestTransitionsDispatchInOrder(t *testing.T) {
	// Not t.Parallel(): goleak.VerifyNone is documented as incompatible with
	// parallel subtests, since it cannot distinguish this test's goroutines
	// from sibling parallel tests still running.
	defer goleak.VerifyNone(t)

	fc := clock.NewFakeProvider(time.Now())
	var mu sync.Mutex
	var order []State

	c := newController("t", fc, newConsecutiveBehavior(1), 0, func(from, to State, name string) {
		mu.Lock()
		order = append(order, to)
		mu.Unlock()
	})
	defer c.close()

	// Force a burst of transitions: Closed->Open->HalfOpen->Open->HalfOpen->Closed.
	c.onActionFailure(errBoom)                 // -> Open
	require.NoError(t, c.onActionPreExecute()) // BreakDuration is 0: immediately -> HalfOpen
	c.onActionFailure(errBoom)                 // -> Open
	require.NoError(t, c.onActionPreExecute()) // -> HalfOpen
	c.onActionSuccess()                        // -> Closed

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 5
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []State{Open, HalfOpen, Open, HalfOpen, Closed}, order)
}
