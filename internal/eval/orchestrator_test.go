package eval

import (
	"context"
	"testing"

	"github.com/giant-wsi/giant/internal/checkpoint"
	"github.com/giant-wsi/giant/internal/llm"
)

func TestOrchestratorRunScoresCompletedItems(t *testing.T) {
	answerJSON := `{"reasoning":"clear","action":{"type":"answer","text":"yes"}}`
	w, _ := newTestWorker(t, []string{answerJSON})

	mgr := &checkpoint.Manager{CheckpointDir: t.TempDir()}
	persist := &checkpoint.Persistence{OutputDir: t.TempDir()}
	orch := &Orchestrator{Worker: *w, Manager: mgr, Persist: persist}

	opts := Options{
		RunID:              "run1",
		BenchmarkName:      "demo",
		Mode:               ModeThumbnail,
		Model:              "mock",
		MaxConcurrent:      2,
		RunsPerItem:        1,
		CheckpointInterval: 1,
		ConfigSnapshot:     map[string]any{},
	}

	items := []BenchmarkItem{demoItem()}
	res, err := orch.Run(context.Background(), items, opts)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Completed != 1 {
		t.Errorf("Completed = %d, want 1", res.Completed)
	}
	if res.Accuracy != 1.0 {
		t.Errorf("Accuracy = %v, want 1.0", res.Accuracy)
	}
}

func TestOrchestratorResumeSkipsCompletedItems(t *testing.T) {
	answerJSON := `{"reasoning":"clear","action":{"type":"answer","text":"yes"}}`
	w, _ := newTestWorker(t, []string{answerJSON})

	checkpointDir := t.TempDir()
	mgr := &checkpoint.Manager{CheckpointDir: checkpointDir}
	persist := &checkpoint.Persistence{OutputDir: t.TempDir()}
	orch := &Orchestrator{Worker: *w, Manager: mgr, Persist: persist}

	opts := Options{
		RunID:              "run1",
		BenchmarkName:      "demo",
		Mode:               ModeThumbnail,
		Model:              "mock",
		MaxConcurrent:      1,
		RunsPerItem:        1,
		CheckpointInterval: 1,
		ConfigSnapshot:     map[string]any{},
	}

	items := []BenchmarkItem{demoItem()}
	if _, err := orch.Run(context.Background(), items, opts); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}

	resumed, err := orch.Run(context.Background(), items, opts)
	if err != nil {
		t.Fatalf("resumed Run() error: %v", err)
	}
	if resumed.Completed != 1 {
		t.Errorf("resumed Completed = %d, want 1 (should come from checkpoint, not reprocessing)", resumed.Completed)
	}
}

func TestOrchestratorStopsDispatchWhenBudgetExceeded(t *testing.T) {
	answerJSON := `{"reasoning":"clear","action":{"type":"answer","text":"yes"}}`
	w, _ := newTestWorker(t, []string{answerJSON})
	w.Provider = &llm.MockProvider{ModelName: "gpt-4o", Responses: []string{answerJSON}}

	mgr := &checkpoint.Manager{CheckpointDir: t.TempDir()}
	persist := &checkpoint.Persistence{OutputDir: t.TempDir()}
	orch := &Orchestrator{Worker: *w, Manager: mgr, Persist: persist}

	opts := Options{
		RunID:              "run-budget",
		BenchmarkName:      "demo",
		Mode:               ModeThumbnail,
		Model:              "gpt-4o",
		MaxConcurrent:      4,
		RunsPerItem:        1,
		CheckpointInterval: 1,
		BudgetUSD:          0.0001,
		ConfigSnapshot:     map[string]any{},
	}

	items := []BenchmarkItem{demoItem(), demoItem(), demoItem()}
	items[1].BenchmarkID, items[2].BenchmarkID = "item2", "item3"

	res, err := orch.Run(context.Background(), items, opts)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.Completed >= len(items) {
		t.Errorf("Completed = %d, want fewer than %d once budget is exceeded", res.Completed, len(items))
	}
	if res.TotalCostUSD <= 0 {
		t.Errorf("TotalCostUSD = %v, want > 0", res.TotalCostUSD)
	}
}

func TestOrchestratorRunEmptyPending(t *testing.T) {
	w, _ := newTestWorker(t, nil)
	mgr := &checkpoint.Manager{CheckpointDir: t.TempDir()}
	persist := &checkpoint.Persistence{OutputDir: t.TempDir()}
	orch := &Orchestrator{Worker: *w, Manager: mgr, Persist: persist}

	opts := Options{
		RunID:          "run-empty",
		BenchmarkName:  "demo",
		Mode:           ModeThumbnail,
		ConfigSnapshot: map[string]any{},
	}

	res, err := orch.Run(context.Background(), nil, opts)
	if err != nil {
		t.Fatalf("Run() with no items error: %v", err)
	}
	if res.Total != 0 || res.Completed != 0 {
		t.Errorf("expected zero items, got Total=%d Completed=%d", res.Total, res.Completed)
	}
}
