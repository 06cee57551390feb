package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/giant-wsi/giant/internal/action"
	"github.com/giant-wsi/giant/internal/crop"
	"github.com/giant-wsi/giant/internal/evalserver"
	"github.com/giant-wsi/giant/internal/llm"
	"github.com/giant-wsi/giant/internal/trajectory"
	"github.com/giant-wsi/giant/internal/wsi"
)

// Status is one of the agent loop's five states (spec.md §4.9).
type Status string

const (
	StatusInit      Status = "INIT"
	StatusObserving Status = "OBSERVING"
	StatusDeciding  Status = "DECIDING"
	StatusDone      Status = "DONE"
	StatusFailed    Status = "FAILED"
)

// Result is the outcome of a completed agent run.
type Result struct {
	Status      Status
	Answer      string
	Trajectory  *trajectory.Trajectory
	FailureInfo string
	CostUSD     float64
}

// BudgetExceededError reports a run ended because cumulative cost reached
// the configured ceiling before the model answered.
type BudgetExceededError struct {
	SpentUSD  float64
	BudgetUSD float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("agent: cumulative cost $%.4f reached budget $%.4f", e.SpentUSD, e.BudgetUSD)
}

// Agent drives the INIT -> OBSERVING -> DECIDING -> (OBSERVING | DONE |
// FAILED) loop: it shows the model the slide thumbnail, then alternates
// between asking the model for a decision and cropping whatever region it
// requests, until the model answers or the turn budget runs out.
type Agent struct {
	Decoder  wsi.Decoder
	CropEng  *crop.Engine
	Provider llm.Provider

	MaxSteps         int
	MaxHistoryImages int
	ThumbnailSize    int

	// BudgetUSD is a per-run cost ceiling checked between turns; 0 disables it.
	BudgetUSD float64
}

// Run executes one full agent loop against wsiPath for question.
func (a *Agent) Run(ctx context.Context, wsiPath, question string) Result {
	slog.Debug("agent: state transition", "status", StatusInit, "wsi_path", wsiPath, "question", question)
	started := time.Now()
	finish := func(res Result) Result {
		status := "failed"
		if res.Status == StatusDone {
			status = "done"
		}
		evalserver.RecordRunCompletion(status, time.Since(started).Seconds())
		return res
	}

	metadata, err := a.Decoder.Open(ctx, wsiPath)
	if err != nil {
		return finish(Result{Status: StatusFailed, FailureInfo: fmt.Sprintf("open slide: %v", err)})
	}

	thumb, err := a.CropEng.Thumbnail(ctx, wsiPath, metadata, a.ThumbnailSize)
	if err != nil {
		return finish(Result{Status: StatusFailed, FailureInfo: fmt.Sprintf("generate thumbnail: %v", err)})
	}

	cm := NewContextManager(wsiPath, question, a.MaxSteps, a.MaxHistoryImages)
	slog.Debug("agent: state transition", "status", StatusObserving)

	var totalCost float64
	for {
		slog.Debug("agent: state transition", "status", StatusDeciding, "step", cm.CurrentStep())
		messages := cm.GetMessages(thumb.Base64JPEG)
		resp, err := a.Provider.Call(ctx, messages)
		if err != nil {
			return finish(Result{Status: StatusFailed, Trajectory: cm.Trajectory, FailureInfo: fmt.Sprintf("provider call: %v", err), CostUSD: totalCost})
		}
		evalserver.RecordTokens(resp.InputTokens, resp.OutputTokens)
		cost := llm.Cost(a.Provider.Model(), resp.InputTokens, resp.OutputTokens)
		evalserver.RecordCost(cost)
		totalCost += cost

		if a.BudgetUSD > 0 && totalCost >= a.BudgetUSD {
			budgetErr := &BudgetExceededError{SpentUSD: totalCost, BudgetUSD: a.BudgetUSD}
			slog.Warn("agent: budget exceeded", "spent_usd", totalCost, "budget_usd", a.BudgetUSD, "step", cm.CurrentStep())
			evalserver.RecordBudgetExceeded()
			return finish(Result{Status: StatusFailed, Trajectory: cm.Trajectory, FailureInfo: budgetErr.Error(), CostUSD: totalCost})
		}

		var act action.Action
		if cm.IsFinalStep() {
			act, err = action.ParseFinalStep(resp.Text, cm.CurrentStep())
		} else {
			act, err = action.Parse(resp.Text)
		}
		if err != nil {
			return finish(Result{Status: StatusFailed, Trajectory: cm.Trajectory, FailureInfo: fmt.Sprintf("parse action: %v", err), CostUSD: totalCost})
		}

		switch act.Kind {
		case action.KindAnswer:
			evalserver.RecordTurn("answer")
			cm.AddTurn("", resp.Text, act)
			return finish(Result{Status: StatusDone, Answer: act.Answer, Trajectory: cm.Trajectory, CostUSD: totalCost})
		case action.KindCrop:
			evalserver.RecordTurn("crop")
			slog.Debug("agent: state transition", "status", StatusObserving, "region", act.Region.String())
			cropped, cropErr := a.CropEng.Crop(ctx, wsiPath, metadata, act.Region)
			if cropErr != nil {
				return finish(Result{Status: StatusFailed, Trajectory: cm.Trajectory, FailureInfo: fmt.Sprintf("crop: %v", cropErr), CostUSD: totalCost})
			}
			cm.AddTurn(cropped.Base64JPEG, resp.Text, act)
		}
	}
}
