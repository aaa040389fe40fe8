// Command demo drives a Timeout → Circuit Breaker pipeline against a
// simulated flaky dependency and exposes it over HTTP, so the state
// transitions this module implements can be watched happening live.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/nadzya/resiliencecore/circuitbreaker"
	"github.com/nadzya/resiliencecore/execctx"
	"github.com/nadzya/resiliencecore/resilience"
	"github.com/nadzya/resiliencecore/telemetry"
	"github.com/nadzya/resiliencecore/timeout"
)

// serviceConfig holds per-service failure probability, adjustable at
// runtime via POST /api/config.
type serviceConfig struct {
	mu       sync.RWMutex
	failRate float64
}

func (sc *serviceConfig) FailRate() float64 {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.failRate
}

func (sc *serviceConfig) SetFailRate(rate float64) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.failRate = rate
}

var (
	serviceA = &serviceConfig{failRate: 0.3}
	serviceB = &serviceConfig{failRate: 0.7}
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	source := telemetry.NewSource("demo", nil, "http-pipeline", "pipeline",
		telemetry.WithSubscriber(func(evt telemetry.Event, tags map[string]string) {
			slog.Info("resilience event", "name", evt.Name, "strategy", evt.StrategyName)
		}),
	)

	pipelines := newBreakerRegistry(source)
	defer pipelines.Close()

	mux := http.NewServeMux()

	// GET /api/call?service=service-a
	mux.HandleFunc("/api/call", func(w http.ResponseWriter, r *http.Request) {
		svcName := r.URL.Query().Get("service")
		if svcName == "" {
			svcName = "service-a"
		}

		var svc *serviceConfig
		switch svcName {
		case "service-a":
			svc = serviceA
		case "service-b":
			svc = serviceB
		default:
			http.Error(w, fmt.Sprintf("unknown service: %s", svcName), http.StatusBadRequest)
			return
		}

		pipeline, err := buildPipeline(pipelines, source, svcName)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		result, err := resilience.Execute[string](pipeline, r.Context(), func(ctx context.Context, ectx *execctx.Context) (string, error) {
			return callUnstableService(ctx, svcName, svc.FailRate())
		})

		breaker, _ := pipelines.Get(svcName)
		state := breaker.Provider().State().String()

		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error(), "service": svcName, "state": state})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"result": result, "service": svcName, "state": state})
	})

	// GET /api/status
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		all := pipelines.All()
		status := make(map[string]any, len(all))
		for name, breaker := range all {
			snap := circuitbreaker.Snapshot(name, breaker)
			status[name] = map[string]any{
				"state":           snap.State.String(),
				"throughput":      snap.Throughput,
				"failure_count":   snap.FailureCount,
				"failure_rate":    snap.FailureRate,
				"total_requests":  snap.TotalRequests,
				"total_successes": snap.TotalSuccesses,
				"total_failures":  snap.TotalFailures,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	})

	// POST /api/config  {"service": "service-a", "fail_rate": 0.8}
	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var body struct {
			Service  string  `json:"service"`
			FailRate float64 `json:"fail_rate"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}

		var svc *serviceConfig
		switch body.Service {
		case "service-a":
			svc = serviceA
		case "service-b":
			svc = serviceB
		default:
			http.Error(w, fmt.Sprintf("unknown service: %s", body.Service), http.StatusBadRequest)
			return
		}

		svc.SetFailRate(body.FailRate)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"service": body.Service, "fail_rate": body.FailRate})
	})

	// POST /api/isolate?service=service-a
	mux.HandleFunc("/api/isolate", func(w http.ResponseWriter, r *http.Request) {
		svcName := r.URL.Query().Get("service")
		breaker, err := pipelines.Get(svcName)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		breaker.Manual().Isolate()
		w.WriteHeader(http.StatusNoContent)
	})

	addr := ":8080"
	slog.Info("demo server starting", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// newBreakerRegistry builds the per-service registry of advanced Circuit
// Breaker strategies backing every demo pipeline.
func newBreakerRegistry(source *telemetry.Source) *circuitbreaker.Registry[string] {
	return circuitbreaker.NewRegistry(func(name string) (*circuitbreaker.Strategy[string], error) {
		return circuitbreaker.NewAdvanced[string](circuitbreaker.AdvancedOptions[string]{
			Name:              name,
			FailureThreshold:  0.5,
			MinimumThroughput: 5,
			SamplingDuration:  10 * time.Second,
			BreakDuration:     10 * time.Second,
			OnStateChange: func(from, to circuitbreaker.State, name string) {
				slog.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			},
		}, source)
	})
}

// buildPipeline composes the Timeout -> Circuit Breaker pipeline for one
// named service. The timeout is well above the simulated dependency's
// worst-case latency (10-50ms) and above the 500ms builder-time floor
// timeout.Options.validate enforces.
func buildPipeline(pipelines *circuitbreaker.Registry[string], source *telemetry.Source, name string) (*resilience.Pipeline[string], error) {
	breaker, err := pipelines.Get(name)
	if err != nil {
		return nil, err
	}
	to, err := timeout.New[string]("timeout", timeout.Options{Timeout: time.Second}, source)
	if err != nil {
		return nil, err
	}
	return resilience.NewPipeline[string]([]resilience.Strategy[string]{to, breaker}, resilience.WithTelemetry[string](source)), nil
}

// callUnstableService simulates an unreliable downstream dependency with
// randomized latency and a configurable failure probability.
func callUnstableService(_ context.Context, name string, failRate float64) (string, error) {
	time.Sleep(time.Duration(10+rand.Intn(40)) * time.Millisecond)

	if rand.Float64() < failRate {
		return "", fmt.Errorf("%s: internal server error", name)
	}
	return fmt.Sprintf("response from %s at %s", name, time.Now().Format(time.RFC3339Nano)), nil
}
