package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCropAction(t *testing.T) {
	raw := `{"reasoning":"look closer","action":{"type":"crop","x":10,"y":20,"width":500,"height":400}}`
	a, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, KindCrop, a.Kind)
	assert.Equal(t, 500, a.Region.Width)
}

func TestParseAnswerAction(t *testing.T) {
	raw := `Here is my answer: {"reasoning":"confident","action":{"type":"answer","text":"Gleason 7"}}`
	a, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, KindAnswer, a.Kind)
	assert.Equal(t, "Gleason 7", a.Answer)
}

func TestParseRejectsUnknownType(t *testing.T) {
	raw := `{"reasoning":"x","action":{"type":"zoom"}}`
	_, err := Parse(raw)
	require.Error(t, err)
}

func TestParseFinalStepRejectsCrop(t *testing.T) {
	raw := `{"reasoning":"x","action":{"type":"crop","x":0,"y":0,"width":10,"height":10}}`
	_, err := ParseFinalStep(raw, 8)
	require.Error(t, err)
	var fe *FinalStepCropError
	require.ErrorAs(t, err, &fe)
}

func TestParseFinalStepAllowsAnswer(t *testing.T) {
	raw := `{"reasoning":"x","action":{"type":"answer","text":"B"}}`
	a, err := ParseFinalStep(raw, 8)
	require.NoError(t, err)
	assert.Equal(t, "B", a.Answer)
}
