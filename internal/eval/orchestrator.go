// Package eval implements C14: filling a work queue with benchmark items,
// running a bounded worker pool that dispatches each item to the executor
// for the configured mode, checkpointing progress as items complete, and
// scoring the finished (or gracefully interrupted) run. Grounded on the
// teacher's channel-plus-bounded-goroutines worker-pool shape (reimplemented
// here with golang.org/x/sync/errgroup in place of a bare sync.WaitGroup) and
// original_source/eval/orchestrator.py's checkpoint/resume/budget
// semantics. errgroup also drives the per-item RunsPerItem attempts here and
// patch_vote's per-patch calls in modes.go, so both levels of "run several
// and majority-vote" fan out concurrently instead of serially. A nonzero
// Options.BudgetUSD both serializes the worker pool (so spend is observable
// in sequence) and is a real ceiling: each executor breaks its own run once
// its cumulative cost reaches it (see agent.BudgetExceededError and
// eval.BudgetExceededError), and Run itself cancels further dispatch once
// cumulative spend across completed items reaches it.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/giant-wsi/giant/internal/checkpoint"
	"github.com/giant-wsi/giant/internal/crop"
	"github.com/giant-wsi/giant/internal/evalmetrics"
	"github.com/giant-wsi/giant/internal/evalserver"
	"github.com/giant-wsi/giant/internal/llm"
	"github.com/giant-wsi/giant/internal/vote"
	"github.com/giant-wsi/giant/internal/wsi"
	"golang.org/x/sync/errgroup"
)

// Worker bundles the resources one goroutine needs to execute a benchmark
// item in any of the four modes.
type Worker struct {
	Decoder    wsi.Decoder
	CropEngine *crop.Engine
	Provider   llm.Provider

	MaxSteps         int
	MaxHistoryImages int
	ThumbnailSize    int
	JPEGQuality      int

	PatchesPerItem int
	PatchSize      int
	BaseSeed       int

	// BudgetUSD is a per-run cost ceiling, checked between LMM calls within
	// each executor; 0 disables it.
	BudgetUSD float64
}

// Options configures one orchestrator run.
type Options struct {
	RunID         string
	BenchmarkName string
	Mode          Mode
	Model         string

	MaxConcurrent      int
	RunsPerItem        int
	CheckpointInterval int
	BudgetUSD          float64

	CheckpointDir string
	OutputDir     string
	ConfigSnapshot map[string]any
}

// Orchestrator runs a bounded worker pool over a benchmark's items,
// checkpointing as it goes.
type Orchestrator struct {
	Worker  Worker
	Manager *checkpoint.Manager
	Persist *checkpoint.Persistence
}

// itemID derives the checkpoint/result identifier for a BenchmarkItem.
func itemID(item BenchmarkItem) string {
	return item.BenchmarkID
}

// Run executes opts against items, resuming from any existing checkpoint
// for opts.RunID, and returns the final scored results. It always attempts
// a checkpoint save before returning, including on error or context
// cancellation.
func (o *Orchestrator) Run(ctx context.Context, items []BenchmarkItem, opts Options) (EvaluationResults, error) {
	o.Worker.BudgetUSD = opts.BudgetUSD

	state, err := o.Manager.LoadOrCreate(opts.RunID, opts.BenchmarkName, opts.ConfigSnapshot)
	if err != nil {
		return EvaluationResults{}, fmt.Errorf("eval: load checkpoint: %w", err)
	}

	var pending []BenchmarkItem
	for _, item := range items {
		if !state.CompletedIDs[itemID(item)] {
			pending = append(pending, item)
		}
	}

	results, err := decodeResults(state.Results)
	if err != nil {
		return EvaluationResults{}, fmt.Errorf("eval: decode checkpoint results: %w", err)
	}

	maxConcurrent := opts.MaxConcurrent
	if opts.BudgetUSD > 0 {
		// A nonzero budget forces serialized execution so spend can be
		// checked between items rather than raced across workers.
		maxConcurrent = 1
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if maxConcurrent > len(pending) {
		maxConcurrent = len(pending)
	}

	var (
		mu             sync.Mutex
		completedSince int
		totalSpent     float64
	)
	for _, r := range results {
		totalSpent += r.CostUSD
	}
	saveCheckpoint := func() error {
		state.Results = encodeResults(results)
		return o.Manager.Save(state)
	}
	defer func() { _ = saveCheckpoint() }()

	if maxConcurrent == 0 {
		return o.finish(opts, items, results, saveCheckpoint)
	}

	// runCtx is canceled as soon as cumulative spend across completed items
	// reaches opts.BudgetUSD, stopping dispatch and any in-flight item early;
	// items left pending stay uncompleted in the checkpoint for a later
	// resume under a raised budget.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	if opts.BudgetUSD > 0 && totalSpent >= opts.BudgetUSD {
		cancelRun()
	}

	jobs := make(chan BenchmarkItem)
	var group errgroup.Group
	for i := 0; i < maxConcurrent; i++ {
		group.Go(func() error {
			for item := range jobs {
				result := o.runItem(runCtx, item, opts)

				mu.Lock()
				results = append(results, result)
				state.CompletedIDs[itemID(item)] = true
				completedSince++
				totalSpent += result.CostUSD
				if opts.CheckpointInterval > 0 && completedSince >= opts.CheckpointInterval {
					completedSince = 0
					_ = saveCheckpoint()
				}
				if opts.BudgetUSD > 0 && totalSpent >= opts.BudgetUSD {
					cancelRun()
				}
				mu.Unlock()
			}
			return nil
		})
	}

dispatch:
	for _, item := range pending {
		select {
		case <-runCtx.Done():
			break dispatch
		case jobs <- item:
		}
	}
	close(jobs)
	_ = group.Wait()

	return o.finish(opts, items, results, saveCheckpoint)
}

// runItem executes opts.RunsPerItem independent attempts at item
// concurrently and majority-votes across them (or returns the single
// attempt directly when RunsPerItem <= 1).
func (o *Orchestrator) runItem(ctx context.Context, item BenchmarkItem, opts Options) BenchmarkResult {
	runs := opts.RunsPerItem
	if runs < 1 {
		runs = 1
	}

	records := make([]RunRecord, runs)
	var group errgroup.Group
	for i := 0; i < runs; i++ {
		i := i
		group.Go(func() error {
			rec, err := dispatchMode(ctx, &o.Worker, opts.Mode, item, i)
			if err != nil {
				rec.Error = err.Error()
			}
			records[i] = rec
			return nil
		})
	}
	_ = group.Wait()

	labels := make([]string, 0, runs)
	var itemCost float64
	for _, r := range records {
		if r.PredictedLabel != "" {
			labels = append(labels, r.PredictedLabel)
		}
		itemCost += r.CostUSD
	}
	predicted := vote.Majority(labels)
	correct := predicted != "" && predicted == item.TruthLabel
	evalserver.RecordBenchmarkItem(correct)

	return BenchmarkResult{
		ItemID:         itemID(item),
		PredictedLabel: predicted,
		TruthLabel:     item.TruthLabel,
		Correct:        correct,
		Runs:           records,
		CostUSD:        itemCost,
	}
}

// dispatchMode routes item to the executor for mode.
func dispatchMode(ctx context.Context, w *Worker, mode Mode, item BenchmarkItem, runIndex int) (RunRecord, error) {
	switch mode {
	case ModeGiant:
		return executeGiant(ctx, w, item)
	case ModeThumbnail:
		return executeThumbnail(ctx, w, item)
	case ModePatch:
		return executePatch(ctx, w, item, runIndex)
	case ModePatchVote:
		return executePatchVote(ctx, w, item, runIndex)
	default:
		return RunRecord{}, fmt.Errorf("eval: unknown mode %q", mode)
	}
}

// finish computes metrics over results, persists the final results file,
// and returns the EvaluationResults record.
func (o *Orchestrator) finish(opts Options, items []BenchmarkItem, results []BenchmarkResult, saveCheckpoint func() error) (EvaluationResults, error) {
	if err := saveCheckpoint(); err != nil {
		return EvaluationResults{}, fmt.Errorf("eval: save checkpoint: %w", err)
	}

	metricType := MetricAccuracy
	if len(items) > 0 && items[0].MetricType != "" {
		metricType = items[0].MetricType
	}

	predictions := make([]string, 0, len(results))
	truths := make([]string, 0, len(results))
	var totalCost float64
	for _, r := range results {
		predictions = append(predictions, r.PredictedLabel)
		truths = append(truths, r.TruthLabel)
		totalCost += r.CostUSD
	}

	out := EvaluationResults{
		RunID:         opts.RunID,
		BenchmarkName: opts.BenchmarkName,
		Model:         opts.Model,
		Mode:          opts.Mode,
		Timestamp:     timestamp(),
		Total:         len(items),
		Completed:     len(results),
		TotalCostUSD:  totalCost,
		Results:       results,
	}

	if len(predictions) > 0 {
		var err error
		switch metricType {
		case MetricBalancedAccuracy:
			out.BalancedAccuracy, err = evalmetrics.BalancedAccuracy(predictions, truths)
		default:
			out.Accuracy, err = evalmetrics.Accuracy(predictions, truths)
		}
		if err != nil {
			return EvaluationResults{}, fmt.Errorf("eval: score results: %w", err)
		}
	}

	if o.Persist != nil {
		if err := o.Persist.SaveResults(opts.RunID, out); err != nil {
			return EvaluationResults{}, fmt.Errorf("eval: persist results: %w", err)
		}
	}
	return out, nil
}

func decodeResults(raw []json.RawMessage) ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, 0, len(raw))
	for _, r := range raw {
		var res BenchmarkResult
		if err := json.Unmarshal(r, &res); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func encodeResults(results []BenchmarkResult) []json.RawMessage {
	raw := make([]json.RawMessage, 0, len(results))
	for _, r := range results {
		data, err := json.Marshal(r)
		if err != nil {
			continue
		}
		raw = append(raw, data)
	}
	return raw
}
