// Package support holds the shared state godog step definitions read and
// write across a scenario, grounded on the teacher's test/integration/cli
// support.TestContext shape but scaled down to an in-process agent/eval
// harness instead of a spawned CLI binary.
package support

import (
	"context"
	"strings"

	"github.com/giant-wsi/giant/internal/agent"
	"github.com/giant-wsi/giant/internal/checkpoint"
	"github.com/giant-wsi/giant/internal/crop"
	"github.com/giant-wsi/giant/internal/eval"
	"github.com/giant-wsi/giant/internal/llm"
	"github.com/giant-wsi/giant/internal/wsi"
)

// Context carries the fixtures and results for one scenario.
type Context struct {
	Decoder  *wsi.MockDecoder
	CropEng  *crop.Engine
	Provider *llm.MockProvider
	MaxSteps int

	AgentResult agent.Result

	CheckpointDir string
	OutputDir     string
	Items         []eval.BenchmarkItem
	OrchResult    eval.EvaluationResults
	OrchErr       error
	CallsBefore   int
}

// NewContext builds a fresh scenario context with a clean mock decoder.
func NewContext() *Context {
	return &Context{
		Decoder:       wsi.NewMockDecoder(),
		MaxSteps:      4,
		CheckpointDir: "",
		OutputDir:     "",
	}
}

// RegisterSlide makes path readable by the mock decoder at width x height.
func (c *Context) RegisterSlide(path string, width, height int) {
	c.Decoder.Register(path, width, height)
	c.CropEng = crop.NewEngine(c.Decoder, 768, 90, 0.85, crop.PolicyReject)
}

// ScriptResponses configures the mock model to return one response per
// line of body, in order.
func (c *Context) ScriptResponses(body string) {
	var responses []string
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		responses = append(responses, line)
	}
	c.Provider = &llm.MockProvider{ModelName: "mock", Responses: responses}
}

// RunAgent executes the agent loop against path for question.
func (c *Context) RunAgent(path, question string) {
	a := &agent.Agent{
		Decoder:       c.Decoder,
		CropEng:       c.CropEng,
		Provider:      c.Provider,
		MaxSteps:      c.MaxSteps,
		ThumbnailSize: 512,
	}
	c.AgentResult = a.Run(context.Background(), path, question)
}

// RunOrchestratorOnce runs the C14 orchestrator once for runID against the
// scenario's items, persisting a checkpoint under CheckpointDir.
func (c *Context) RunOrchestratorOnce(runID string) {
	worker := eval.Worker{
		Decoder:        c.Decoder,
		CropEngine:     c.CropEng,
		Provider:       c.Provider,
		MaxSteps:       c.MaxSteps,
		ThumbnailSize:  256,
		JPEGQuality:    90,
		PatchesPerItem: 4,
		PatchSize:      128,
		BaseSeed:       1,
	}
	orch := &eval.Orchestrator{
		Worker:  worker,
		Manager: &checkpoint.Manager{CheckpointDir: c.CheckpointDir},
		Persist: &checkpoint.Persistence{OutputDir: c.OutputDir},
	}
	opts := eval.Options{
		RunID:              runID,
		BenchmarkName:      "demo",
		Mode:               eval.ModeThumbnail,
		Model:              "mock",
		MaxConcurrent:      1,
		RunsPerItem:        1,
		CheckpointInterval: 1,
		ConfigSnapshot:     map[string]any{},
	}
	c.CallsBefore = c.Provider.Calls()
	c.OrchResult, c.OrchErr = orch.Run(context.Background(), c.Items, opts)
}
