package telemetry

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"github.com/stretchr/testify/require"

	"github.com/nadzya/resiliencecore/execctx"
)

func TestReportFansOutToSubscribersWithEnrichedTags(t *testing.T) {
	t.Parallel()

	var got Event
	var gotTags map[string]string

	src := NewSource("orders-pipeline", nil, "circuit-breaker", "CircuitBreaker",
		WithSubscriber(func(e Event, tags map[string]string) {
			got = e
			gotTags = tags
		}),
		WithEnricher(func(_ context.Context, _ *execctx.Context, ec *EnrichmentContext) {
			ec.Add("region", "us-east-1")
		}),
	)

	ectx := execctx.Acquire()
	defer execctx.Release(ectx)

	src.ReportOutcome(context.Background(), ectx, EventOnCircuitOpened, "args", Failed(errBoom))

	require.Equal(t, EventOnCircuitOpened, got.Name)
	require.Equal(t, "orders-pipeline", got.BuilderName)
	require.Equal(t, "circuit-breaker", got.StrategyName)
	require.False(t, got.Outcome.IsSuccess())
	require.Equal(t, "us-east-1", gotTags["region"])
	require.Contains(t, ectx.Events(), execctx.ResilienceEvent{Name: EventOnCircuitOpened})
}

func TestRecordExecutionDurationTagsHealthFromContext(t *testing.T) {
	t.Parallel()

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName("resiliencecore-test"),
			semconv.ServiceVersion("test"),
		),
	)
	require.NoError(t, err)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	meter := provider.Meter("resiliencecore-test")

	src := NewSource("orders-pipeline", nil, "timeout", "Timeout", WithMeter(meter))

	ectx := execctx.Acquire()
	defer execctx.Release(ectx)
	ectx.AddEvent(EventOnTimeout)

	src.RecordExecutionDuration(context.Background(), ectx, 42*time.Millisecond, "int", "")

	var data metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &data))
	require.NotEmpty(t, data.ScopeMetrics)

	found := false
	for _, sm := range data.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "strategy-execution-duration" {
				found = true
			}
		}
	}
	require.True(t, found, "expected strategy-execution-duration metric to be recorded")
}

var errBoom = errRecorder("boom")

type errRecorder string

func (e errRecorder) Error() string { return string(e) }
