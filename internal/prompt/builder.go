// Package prompt builds the message text sent to the LMM at each step,
// grounded on original_source/agent/context.py's exact message formats so an
// external trajectory viewer's expectations (text patterns, not just JSON
// shape) keep working.
package prompt

import (
	"fmt"

	"github.com/giant-wsi/giant/internal/action"
	"github.com/giant-wsi/giant/internal/geometry"
)

const systemMessage = `You are an expert pathologist examining a whole-slide image to answer a diagnostic question.
You will be shown an image (starting with a full-slide thumbnail) and may request closer views of
specific regions before answering. At each step, respond with your reasoning followed by exactly one
action: request a crop of a region to examine more closely, or give your final answer.`

// BuildSystemMessage returns the fixed system prompt.
func BuildSystemMessage() string { return systemMessage }

// BuildInitialUserMessage introduces the question alongside the thumbnail.
func BuildInitialUserMessage(question string, maxSteps int) string {
	return fmt.Sprintf(
		"Question: %s\n\nYou have up to %d steps. This is the full-slide thumbnail (step 1).",
		question, maxSteps)
}

// BuildAssistantMessage formats the model's own prior turn back into the
// conversation, in original_source's exact "Reasoning: ...\n\nAction: ..."
// shape.
func BuildAssistantMessage(a action.Action) string {
	switch a.Kind {
	case action.KindCrop:
		r := a.Region
		return fmt.Sprintf("Reasoning: %s\n\nAction: crop(x=%d, y=%d, width=%d, height=%d)",
			a.Reasoning, r.X, r.Y, r.Width, r.Height)
	case action.KindAnswer:
		return fmt.Sprintf("Reasoning: %s\n\nAction: answer(%q)", a.Reasoning, a.Answer)
	default:
		return fmt.Sprintf("Reasoning: %s", a.Reasoning)
	}
}

// BuildUserMessageForTurn introduces the crop the agent requested, in the
// "(x, y, width, height)" form geometry.Region.String() already produces.
func BuildUserMessageForTurn(step int, lastRegion geometry.Region) string {
	return fmt.Sprintf("Step %d. Here is the region you requested: %s", step, lastRegion.String())
}

// PrunedImagePlaceholder is substituted for an image dropped from context to
// bound the conversation's token footprint (C9 pruning), matching
// original_source's exact wording.
func PrunedImagePlaceholder(stepIndex int) string {
	return fmt.Sprintf("[Image from Step %d removed to save context]", stepIndex+1)
}
