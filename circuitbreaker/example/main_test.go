package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nadzya/resiliencecore/execctx"
	"github.com/nadzya/resiliencecore/resilience"
	"github.com/nadzya/resiliencecore/telemetry"
)

// TestBuildPipelineExecutesSuccessfully catches a demo that never runs a
// single call: it would have caught the timeout floor being set below
// timeout.Options.validate's 500ms minimum, which made buildPipeline
// return InvalidOptionsError for every request.
func TestBuildPipelineExecutesSuccessfully(t *testing.T) {
	source := telemetry.NewSource("demo-test", nil, "http-pipeline", "pipeline")
	pipelines := newBreakerRegistry(source)
	defer pipelines.Close()

	pipeline, err := buildPipeline(pipelines, source, "service-a")
	require.NoError(t, err)

	result, err := resilience.Execute[string](pipeline, context.Background(), func(ctx context.Context, ectx *execctx.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", result)
}
