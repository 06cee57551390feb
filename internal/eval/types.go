// Package eval implements C14: the benchmark orchestrator that fills a work
// queue with items, runs a bounded worker pool over them (each worker
// dispatching to a mode-specific executor), checkpoints progress, and
// scores the finished run. Grounded on the teacher's
// internal/pipeline/parallel.go worker-pool shape and
// original_source/eval/orchestrator.py's checkpoint/resume/budget
// semantics.
package eval

import (
	"time"

	"github.com/giant-wsi/giant/internal/trajectory"
)

// Mode selects the executor a worker dispatches an item to (spec.md §4.14).
type Mode string

const (
	ModeGiant     Mode = "giant"
	ModeThumbnail Mode = "thumbnail"
	ModePatch     Mode = "patch"
	ModePatchVote Mode = "patch_vote"
)

// MetricType selects how a benchmark's results are scored.
type MetricType string

const (
	MetricAccuracy         MetricType = "accuracy"
	MetricBalancedAccuracy MetricType = "balanced_accuracy"
)

// BenchmarkItem is one immutable unit of evaluation work.
type BenchmarkItem struct {
	BenchmarkName string     `json:"benchmark_name"`
	BenchmarkID   string     `json:"benchmark_id"`
	WSIPath       string     `json:"wsi_path"`
	Prompt        string     `json:"prompt"`
	Options       []string   `json:"options,omitempty"`
	MetricType    MetricType `json:"metric_type"`
	TruthLabel    string     `json:"truth_label"`
}

// RunRecord is one independent attempt (of RunsPerItem) at a BenchmarkItem.
type RunRecord struct {
	PredictedLabel string                  `json:"predicted_label"`
	RawPrediction  string                  `json:"raw_prediction"`
	Trajectory     *trajectory.Trajectory  `json:"trajectory,omitempty"`
	CostUSD        float64                 `json:"cost_usd"`
	Error          string                  `json:"error,omitempty"`
}

// BenchmarkResult is the final, possibly-aggregated, outcome for one item.
type BenchmarkResult struct {
	ItemID         string      `json:"item_id"`
	PredictedLabel string      `json:"predicted_label"`
	TruthLabel     string      `json:"truth_label"`
	Correct        bool        `json:"correct"`
	Runs           []RunRecord `json:"runs"`
	CostUSD        float64     `json:"cost_usd"`
	Error          string      `json:"error,omitempty"`
}

// EvaluationResults is the final scored record for a completed (or
// gracefully interrupted) benchmark run, written to
// <output_dir>/<run_id>_results.json.
type EvaluationResults struct {
	RunID            string            `json:"run_id"`
	BenchmarkName    string            `json:"benchmark_name"`
	Model            string            `json:"model"`
	Mode             Mode              `json:"mode"`
	Timestamp        string            `json:"timestamp"`
	Total            int               `json:"total"`
	Completed        int               `json:"completed"`
	Accuracy         float64           `json:"accuracy,omitempty"`
	BalancedAccuracy float64           `json:"balanced_accuracy,omitempty"`
	TotalCostUSD     float64           `json:"total_cost_usd"`
	Results          []BenchmarkResult `json:"results"`
}

// timestamp is a seam so orchestrator code never calls time.Now() directly,
// keeping the package pure enough to unit-test deterministically.
var timestamp = func() string { return time.Now().UTC().Format(time.RFC3339) }
