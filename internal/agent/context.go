// Package agent implements C9 (context management, including image
// pruning) and C10 (the agent state machine), grounded on
// original_source/agent/context.py.
package agent

import (
	"github.com/giant-wsi/giant/internal/action"
	"github.com/giant-wsi/giant/internal/geometry"
	"github.com/giant-wsi/giant/internal/llm"
	"github.com/giant-wsi/giant/internal/prompt"
	"github.com/giant-wsi/giant/internal/trajectory"
)

// Message is an alias for the provider message shape, kept local to this
// package so call sites read naturally as "agent.Message".
type Message = llm.Message

// ContextManager builds the message list for each turn and prunes older
// images out of it once MaxHistoryImages is exceeded, so long runs don't
// blow the provider's context window.
type ContextManager struct {
	WSIPath          string
	Question         string
	MaxSteps         int
	MaxHistoryImages int // 0 means unlimited
	Trajectory       *trajectory.Trajectory
}

// NewContextManager starts a fresh trajectory for one agent run.
func NewContextManager(wsiPath, question string, maxSteps, maxHistoryImages int) *ContextManager {
	return &ContextManager{
		WSIPath:          wsiPath,
		Question:         question,
		MaxSteps:         maxSteps,
		MaxHistoryImages: maxHistoryImages,
		Trajectory:       &trajectory.Trajectory{WSIPath: wsiPath, Question: question},
	}
}

// CurrentStep is the 1-indexed step the agent is about to take.
func (c *ContextManager) CurrentStep() int { return len(c.Trajectory.Turns) + 1 }

// IsFinalStep reports whether the step about to be taken is the last one
// the turn budget allows.
func (c *ContextManager) IsFinalStep() bool { return c.CurrentStep() >= c.MaxSteps }

// AddTurn records a completed turn (an LMM response and, for a crop action,
// the region it requested) into the trajectory.
func (c *ContextManager) AddTurn(imageBase64, response string, a action.Action) {
	var region *geometry.Region
	if a.Kind == action.KindCrop {
		r := a.Region
		region = &r
	}
	c.Trajectory.AddTurn(imageBase64, response, region)
	if a.Kind == action.KindAnswer {
		c.Trajectory.SetFinalAnswer(a.Answer)
	}
}

// GetMessages builds the full message list for the next LMM call: a system
// message, the initial question+thumbnail message, then one
// assistant+user pair per completed turn (the final turn contributes only
// the assistant message, since there is no further crop to introduce).
func (c *ContextManager) GetMessages(thumbnailBase64 string) []Message {
	msgs := []Message{
		{Role: "system", Text: prompt.BuildSystemMessage()},
		{Role: "user", Text: prompt.BuildInitialUserMessage(c.Question, c.MaxSteps), ImageBase64: thumbnailBase64},
	}
	turns := c.Trajectory.Turns
	for i, turn := range turns {
		msgs = append(msgs, Message{Role: "assistant", Text: turn.Response})
		if turn.Region == nil {
			continue // final (answer) turn: no follow-up user message
		}
		// turn.ImageBase64 holds the crop taken to satisfy this turn's
		// request; it is introduced as the user message for the next step.
		msgs = append(msgs, Message{
			Role:        "user",
			Text:        prompt.BuildUserMessageForTurn(i+2, *turn.Region),
			ImageBase64: turn.ImageBase64,
		})
	}
	return c.applyImagePruning(msgs)
}

// applyImagePruning keeps the thumbnail (always) and the images from the
// most recent MaxHistoryImages turns, replacing earlier turn images with a
// text placeholder. MaxHistoryImages == 0 disables pruning.
func (c *ContextManager) applyImagePruning(msgs []Message) []Message {
	if c.MaxHistoryImages <= 0 {
		return msgs
	}
	type imageSlot struct{ msgIdx, stepIndex int }
	var slots []imageSlot
	stepIndex := 0
	for i, m := range msgs {
		if m.Role != "user" || m.ImageBase64 == "" {
			continue
		}
		if i == 1 {
			continue // thumbnail is never pruned
		}
		slots = append(slots, imageSlot{msgIdx: i, stepIndex: stepIndex})
		stepIndex++
	}
	keepFrom := len(slots) - c.MaxHistoryImages
	for idx, slot := range slots {
		if idx >= keepFrom {
			continue
		}
		msgs[slot.msgIdx].ImageBase64 = ""
		msgs[slot.msgIdx].Text += "\n\n" + prompt.PrunedImagePlaceholder(slot.stepIndex)
	}
	return msgs
}
