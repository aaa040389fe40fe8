package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nadzya/resiliencecore/clock"
	"github.com/nadzya/resiliencecore/execctx"
	"github.com/nadzya/resiliencecore/outcome"
	"github.com/nadzya/resiliencecore/telemetry"
)

func runOnce[R any](t *testing.T, s *Strategy[R], fn func(ctx context.Context, ectx *execctx.Context) (R, error)) (R, error) {
	t.Helper()
	ectx := execctx.Acquire()
	defer execctx.Release(ectx)
	ectx.SetCancellation(context.Background())
	return s.ExecuteCore(context.Background(), ectx, fn)
}

func TestBasicStrategyTripsOnConsecutiveFailures(t *testing.T) {
	t.Parallel()

	fc := clock.NewFakeProvider(time.Now())
	s, err := NewBasic[string](BasicOptions[string]{Name: "svc", FailureThreshold: 2, BreakDuration: time.Second, Clock: fc}, nil)
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 2; i++ {
		_, err := runOnce(t, s, func(ctx context.Context, ectx *execctx.Context) (string, error) {
			return "", errBoom
		})
		require.ErrorIs(t, err, errBoom)
	}

	_, err = runOnce(t, s, func(ctx context.Context, ectx *execctx.Context) (string, error) {
		return "unreachable", nil
	})
	var broken *BrokenCircuitError
	require.ErrorAs(t, err, &broken)
	require.Equal(t, Open, s.Provider().State())
}

func TestBasicStrategyIgnoresUnhandledErrors(t *testing.T) {
	t.Parallel()

	ignored := errors.New("ignored")
	fc := clock.NewFakeProvider(time.Now())
	s, err := NewBasic[int](BasicOptions[int]{
		Name:             "svc",
		FailureThreshold: 1,
		Clock:            fc,
		ShouldHandle: func(oc outcome.Outcome[int], _ PredicateArgs) bool {
			return oc.IsFailure() && !errors.Is(oc.Err(), ignored)
		},
	}, nil)
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 5; i++ {
		_, err := runOnce(t, s, func(ctx context.Context, ectx *execctx.Context) (int, error) {
			return 0, ignored
		})
		require.ErrorIs(t, err, ignored)
	}

	require.Equal(t, Closed, s.Provider().State())
}

func TestBasicStrategyPredicateCanTripOnSuccessfulOutcome(t *testing.T) {
	t.Parallel()

	fc := clock.NewFakeProvider(time.Now())
	s, err := NewBasic[int](BasicOptions[int]{
		Name:             "svc",
		FailureThreshold: 2,
		Clock:            fc,
		ShouldHandle: func(oc outcome.Outcome[int], _ PredicateArgs) bool {
			// A successful call that returns a value below zero is treated
			// as a handled failure, even though the callback returned nil.
			return oc.IsFailure() || oc.Value() < 0
		},
	}, nil)
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 2; i++ {
		v, err := runOnce(t, s, func(ctx context.Context, ectx *execctx.Context) (int, error) {
			return -1, nil
		})
		require.NoError(t, err)
		require.Equal(t, -1, v)
	}

	_, err = runOnce(t, s, func(ctx context.Context, ectx *execctx.Context) (int, error) {
		return 1, nil
	})
	var broken *BrokenCircuitError
	require.ErrorAs(t, err, &broken)
	require.Equal(t, Open, s.Provider().State())
}

func TestBasicStrategyIgnoresContextCancellation(t *testing.T) {
	t.Parallel()

	fc := clock.NewFakeProvider(time.Now())
	s, err := NewBasic[int](BasicOptions[int]{Name: "svc", FailureThreshold: 1, Clock: fc}, nil)
	require.NoError(t, err)
	defer s.Close()

	ectx := execctx.Acquire()
	defer execctx.Release(ectx)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ectx.SetCancellation(ctx)

	for i := 0; i < 3; i++ {
		_, _ = s.ExecuteCore(ctx, ectx, func(ctx context.Context, ectx *execctx.Context) (int, error) {
			return 0, ctx.Err()
		})
	}

	require.Equal(t, Closed, s.Provider().State())
}

func TestAdvancedStrategyRequiresMinimumThroughput(t *testing.T) {
	t.Parallel()

	fc := clock.NewFakeProvider(time.Now())
	s, err := NewAdvanced[int](AdvancedOptions[int]{
		Name:              "svc",
		FailureThreshold:  0.5,
		MinimumThroughput: 10,
		SamplingDuration:  time.Second,
		Clock:             fc,
	}, nil)
	require.NoError(t, err)
	defer s.Close()

	// 4 failures, all handled, but below MinimumThroughput.
	for i := 0; i < 4; i++ {
		_, _ = runOnce(t, s, func(ctx context.Context, ectx *execctx.Context) (int, error) {
			return 0, errBoom
		})
	}

	require.Equal(t, Closed, s.Provider().State())
}

func TestAdvancedStrategyTripsOnFailureRate(t *testing.T) {
	t.Parallel()

	fc := clock.NewFakeProvider(time.Now())
	s, err := NewAdvanced[int](AdvancedOptions[int]{
		Name:              "svc",
		FailureThreshold:  0.5,
		MinimumThroughput: 4,
		SamplingDuration:  time.Second,
		Clock:             fc,
	}, nil)
	require.NoError(t, err)
	defer s.Close()

	outcomes := []error{nil, errBoom, errBoom, errBoom}
	for _, want := range outcomes {
		_, _ = runOnce(t, s, func(ctx context.Context, ectx *execctx.Context) (int, error) {
			return 0, want
		})
	}

	require.Equal(t, Open, s.Provider().State())
}

func TestBasicStrategyReportsExactlyOneTransitionEventPerTransition(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var names []string
	src := telemetry.NewSource("orders-pipeline", nil, "svc", "CircuitBreaker",
		telemetry.WithSubscriber(func(e telemetry.Event, _ map[string]string) {
			mu.Lock()
			names = append(names, e.Name)
			mu.Unlock()
		}),
	)

	fc := clock.NewFakeProvider(time.Now())
	s, err := NewBasic[int](BasicOptions[int]{Name: "svc", FailureThreshold: 1, BreakDuration: time.Second, Clock: fc}, src)
	require.NoError(t, err)
	defer s.Close()

	// Closed -> Open: one failure trips it (FailureThreshold: 1).
	_, _ = runOnce(t, s, func(ctx context.Context, ectx *execctx.Context) (int, error) { return 0, errBoom })
	// Open still rejects: no further OnCircuitOpened per blocked call.
	_, _ = runOnce(t, s, func(ctx context.Context, ectx *execctx.Context) (int, error) { return 0, nil })
	_, _ = runOnce(t, s, func(ctx context.Context, ectx *execctx.Context) (int, error) { return 0, nil })

	fc.Advance(2 * time.Second)

	// Open -> HalfOpen (probe admitted) -> Closed (probe succeeds).
	_, err = runOnce(t, s, func(ctx context.Context, ectx *execctx.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(names) == 3
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{
		telemetry.EventOnCircuitOpened,
		telemetry.EventOnCircuitHalfOpened,
		telemetry.EventOnCircuitClosed,
	}, names)
}

func TestManualIsolateOverridesBehavior(t *testing.T) {
	t.Parallel()

	fc := clock.NewFakeProvider(time.Now())
	s, err := NewBasic[int](BasicOptions[int]{Name: "svc", FailureThreshold: 100, Clock: fc}, nil)
	require.NoError(t, err)
	defer s.Close()

	s.Manual().Isolate()

	_, err = runOnce(t, s, func(ctx context.Context, ectx *execctx.Context) (int, error) {
		return 1, nil
	})
	require.True(t, errors.Is(err, ErrIsolated))

	s.Manual().Reset()
	v, err := runOnce(t, s, func(ctx context.Context, ectx *execctx.Context) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, v)
}
