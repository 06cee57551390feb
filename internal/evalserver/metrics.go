// Package evalserver exposes Prometheus metrics for a running benchmark or
// navigate session and the /metrics HTTP handler that serves them, adapted
// from the teacher's internal/server/metrics.go (promauto counter/histogram
// vectors) but renamed to the agent-loop and evaluation concerns C14 and the
// rest of the agent package actually produce: turns, crops, token usage,
// spend, and checkpoint saves.
package evalserver

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	agentTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giant_agent_turns_total",
			Help: "Total number of agent turns, by the action the model chose",
		},
		[]string{"action"}, // action: crop, answer
	)

	agentCropsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "giant_agent_crops_total",
			Help: "Total number of crop regions requested by the model",
		},
	)

	agentRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "giant_agent_run_duration_seconds",
			Help:    "Wall-clock duration of one complete agent run",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	agentRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giant_agent_runs_total",
			Help: "Total number of completed agent runs, by final status",
		},
		[]string{"status"}, // status: done, failed
	)

	llmTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giant_llm_tokens_total",
			Help: "Total number of LLM tokens consumed",
		},
		[]string{"direction"}, // direction: input, output
	)

	llmCostUSDTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "giant_llm_cost_usd_total",
			Help: "Total estimated LLM spend in USD",
		},
	)

	checkpointSavesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "giant_checkpoint_saves_total",
			Help: "Total number of checkpoint persistence writes",
		},
	)

	benchmarkItemsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giant_benchmark_items_completed_total",
			Help: "Total number of benchmark items completed, by correctness",
		},
		[]string{"correct"}, // correct: true, false
	)

	budgetExceededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "giant_budget_exceeded_total",
			Help: "Total number of runs that ended early because cumulative cost reached the configured budget",
		},
	)
)

// RecordTurn increments the turn counter for the action the model chose on
// one step, and the crop counter when that action was a crop.
func RecordTurn(action string) {
	agentTurnsTotal.WithLabelValues(action).Inc()
	if action == "crop" {
		agentCropsTotal.Inc()
	}
}

// RecordRunCompletion records a completed agent run's wall-clock duration
// and final status.
func RecordRunCompletion(status string, durationSeconds float64) {
	agentRunsTotal.WithLabelValues(status).Inc()
	agentRunDuration.Observe(durationSeconds)
}

// RecordTokens adds input and output token counts from one LLM call.
func RecordTokens(inputTokens, outputTokens int) {
	llmTokensTotal.WithLabelValues("input").Add(float64(inputTokens))
	llmTokensTotal.WithLabelValues("output").Add(float64(outputTokens))
}

// RecordCost adds usd to the running spend total.
func RecordCost(usd float64) {
	llmCostUSDTotal.Add(usd)
}

// RecordBudgetExceeded increments the budget-exceeded counter.
func RecordBudgetExceeded() {
	budgetExceededTotal.Inc()
}

// RecordCheckpointSave increments the checkpoint-save counter.
func RecordCheckpointSave() {
	checkpointSavesTotal.Inc()
}

// RecordBenchmarkItem increments the completed-items counter for a scored
// benchmark result.
func RecordBenchmarkItem(correct bool) {
	label := "false"
	if correct {
		label = "true"
	}
	benchmarkItemsCompletedTotal.WithLabelValues(label).Inc()
}

// Handler returns the HTTP handler that serves the current metric values in
// the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve binds port and starts serving Handler() on /metrics in the
// background, returning once the listener is bound so a caller can report a
// port-in-use error immediately rather than discovering it asynchronously.
// The returned shutdown func stops the server; callers should defer it.
func Serve(port int) (shutdown func(context.Context) error, err error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("evalserver: bind metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Handler: mux}

	go func() {
		_ = srv.Serve(listener)
	}()

	return srv.Shutdown, nil
}
