// Package trajectory implements C7: the record of an agent run — one Turn
// per step plus the final answer — serialized in a canonical shape so an
// external visualizer (out of scope here, see SPEC_FULL.md §12) can consume
// it without bespoke parsing.
package trajectory

import (
	"encoding/json"

	"github.com/giant-wsi/giant/internal/geometry"
)

// Turn records one step of the agent loop: the image it observed, the raw
// model response, and the region it chose to crop next (nil on the turn
// that produced the final answer).
type Turn struct {
	StepIndex   int              `json:"step_index"`
	ImageBase64 string           `json:"image_base64,omitempty"`
	Response    string           `json:"response"`
	Region      *geometry.Region `json:"region,omitempty"`
}

// Trajectory is the full record of one agent run over one question.
type Trajectory struct {
	WSIPath     string  `json:"wsi_path"`
	Question    string  `json:"question"`
	Turns       []Turn  `json:"turns"`
	FinalAnswer *string `json:"final_answer"`
}

// AddTurn appends a turn, recording region only when the turn ended in a
// crop (region != nil implies the agent is continuing to observe).
func (t *Trajectory) AddTurn(imageBase64, response string, region *geometry.Region) {
	t.Turns = append(t.Turns, Turn{
		StepIndex:   len(t.Turns),
		ImageBase64: imageBase64,
		Response:    response,
		Region:      region,
	})
}

// SetFinalAnswer records the agent's terminal answer.
func (t *Trajectory) SetFinalAnswer(answer string) {
	t.FinalAnswer = &answer
}

// MarshalCanonicalJSON serializes the trajectory with sorted map keys and
// 2-space indentation — "canonical" meaning stable across runs of the same
// data, suitable for diffing and for consumption by an external visualizer.
func (t Trajectory) MarshalCanonicalJSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}
