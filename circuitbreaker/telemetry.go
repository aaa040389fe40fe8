package circuitbreaker

import (
	"context"

	"github.com/nadzya/resiliencecore/telemetry"
)

// TransitionEventArgs is reported via telemetry.EventOnCircuitOpened,
// telemetry.EventOnCircuitHalfOpened and telemetry.EventOnCircuitClosed
// whenever the controller commits a state transition.
type TransitionEventArgs struct {
	From, To State
}

// newTelemetryHook builds the controller's telemetry callback, invoked from
// the same ordered dispatch as the user's OnStateChange hook so events
// reach subscribers in exact transition order. It reports exactly once per
// transition, unlike the per-call reporting a naive ExecuteCore-level
// implementation would produce. Isolated is reported as OnCircuitOpened:
// the strategies package defines no separate isolated event, and Isolated
// rejects calls the same way Open does.
func newTelemetryHook(source *telemetry.Source) func(from, to State, lastErr error) {
	if source == nil {
		return nil
	}
	return func(from, to State, lastErr error) {
		args := TransitionEventArgs{From: from, To: to}
		outcome := telemetry.Succeeded()
		if lastErr != nil {
			outcome = telemetry.Failed(lastErr)
		}
		switch to {
		case Open, Isolated:
			source.ReportOutcome(context.Background(), nil, telemetry.EventOnCircuitOpened, args, outcome)
		case HalfOpen:
			source.Report(context.Background(), nil, telemetry.EventOnCircuitHalfOpened, args)
		case Closed:
			source.Report(context.Background(), nil, telemetry.EventOnCircuitClosed, args)
		}
	}
}
