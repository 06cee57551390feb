package agent

import (
	"context"
	"testing"

	"github.com/giant-wsi/giant/internal/crop"
	"github.com/giant-wsi/giant/internal/llm"
	"github.com/giant-wsi/giant/internal/wsi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentAnswersImmediately(t *testing.T) {
	dec := wsi.NewMockDecoder()
	dec.Register("slide.svs", 4096, 4096)
	eng := crop.NewEngine(dec, 1000, 85, 0.85, crop.PolicyReject)
	provider := &llm.MockProvider{
		ModelName: "mock",
		Responses: []string{`{"reasoning":"clear","action":{"type":"answer","text":"Benign"}}`},
	}
	a := &Agent{Decoder: dec, CropEng: eng, Provider: provider, MaxSteps: 4, ThumbnailSize: 512}

	res := a.Run(context.Background(), "slide.svs", "What is the diagnosis?")
	require.Equal(t, StatusDone, res.Status)
	assert.Equal(t, "Benign", res.Answer)
	assert.Len(t, res.Trajectory.Turns, 1)
}

func TestAgentCropsThenAnswers(t *testing.T) {
	dec := wsi.NewMockDecoder()
	dec.Register("slide.svs", 8192, 8192)
	eng := crop.NewEngine(dec, 1000, 85, 0.85, crop.PolicyReject)
	provider := &llm.MockProvider{
		ModelName: "mock",
		Responses: []string{
			`{"reasoning":"zoom in","action":{"type":"crop","x":1000,"y":1000,"width":2000,"height":2000}}`,
			`{"reasoning":"confident now","action":{"type":"answer","text":"Gleason 7"}}`,
		},
	}
	a := &Agent{Decoder: dec, CropEng: eng, Provider: provider, MaxSteps: 4, ThumbnailSize: 512}

	res := a.Run(context.Background(), "slide.svs", "Grade this tumor")
	require.Equal(t, StatusDone, res.Status)
	assert.Equal(t, "Gleason 7", res.Answer)
	assert.Len(t, res.Trajectory.Turns, 2)
	require.NotNil(t, res.Trajectory.Turns[0].Region)
}

func TestAgentStopsOnBudgetExceeded(t *testing.T) {
	dec := wsi.NewMockDecoder()
	dec.Register("slide.svs", 8192, 8192)
	eng := crop.NewEngine(dec, 1000, 85, 0.85, crop.PolicyReject)
	provider := &llm.MockProvider{
		ModelName: "gpt-4o",
		Responses: []string{
			`{"reasoning":"zoom in","action":{"type":"crop","x":1000,"y":1000,"width":2000,"height":2000}}`,
			`{"reasoning":"confident now","action":{"type":"answer","text":"Gleason 7"}}`,
		},
	}
	a := &Agent{Decoder: dec, CropEng: eng, Provider: provider, MaxSteps: 4, ThumbnailSize: 512, BudgetUSD: 0.0001}

	res := a.Run(context.Background(), "slide.svs", "Grade this tumor")
	require.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.FailureInfo, "budget")
	assert.Greater(t, res.CostUSD, 0.0)
	assert.Equal(t, 1, provider.Calls())
}

func TestAgentUnlimitedBudgetDoesNotBreak(t *testing.T) {
	dec := wsi.NewMockDecoder()
	dec.Register("slide.svs", 4096, 4096)
	eng := crop.NewEngine(dec, 1000, 85, 0.85, crop.PolicyReject)
	provider := &llm.MockProvider{
		ModelName: "gpt-4o",
		Responses: []string{`{"reasoning":"clear","action":{"type":"answer","text":"Benign"}}`},
	}
	a := &Agent{Decoder: dec, CropEng: eng, Provider: provider, MaxSteps: 4, ThumbnailSize: 512, BudgetUSD: 0}

	res := a.Run(context.Background(), "slide.svs", "What is the diagnosis?")
	require.Equal(t, StatusDone, res.Status)
	assert.Equal(t, "Benign", res.Answer)
	assert.Greater(t, res.CostUSD, 0.0)
}

func TestAgentFailsOnFinalStepCrop(t *testing.T) {
	dec := wsi.NewMockDecoder()
	dec.Register("slide.svs", 8192, 8192)
	eng := crop.NewEngine(dec, 1000, 85, 0.85, crop.PolicyReject)
	provider := &llm.MockProvider{
		ModelName: "mock",
		Responses: []string{`{"reasoning":"still unsure","action":{"type":"crop","x":0,"y":0,"width":100,"height":100}}`},
	}
	a := &Agent{Decoder: dec, CropEng: eng, Provider: provider, MaxSteps: 1, ThumbnailSize: 512}

	res := a.Run(context.Background(), "slide.svs", "Grade this tumor")
	require.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.FailureInfo, "final step")
}
