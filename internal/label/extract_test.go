package label

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractProstateGradeNull(t *testing.T) {
	e := Extract(`{"isup_grade": null}`, "prostate-grading", nil)
	assert.Equal(t, "0", e.Label)
}

func TestExtractProstateGradeInRange(t *testing.T) {
	e := Extract(`Reasoning... {"isup_grade": 3}`, "prostate-grading", nil)
	assert.Equal(t, "3", e.Label)
}

func TestExtractProstateGradeOutOfRangeDoesNotFallBack(t *testing.T) {
	e := Extract(`{"isup_grade": 9}`, "prostate-grading", nil)
	assert.Equal(t, "", e.Label)
}

func TestExtractProstateGradeMissingKeyFallsThrough(t *testing.T) {
	e := Extract(`3`, "prostate-grading", nil)
	assert.Equal(t, "3", e.Label)
}

func TestExtractLetterFromFourOptions(t *testing.T) {
	opts := []string{"Benign", "Low grade", "High grade", "Invasive"}
	e := Extract("I believe the answer is C.", "multiple-choice", opts)
	assert.Equal(t, "3", e.Label)
}

func TestExtractIntegerIndexFromOptions(t *testing.T) {
	opts := []string{"Benign", "Low grade", "High grade"}
	e := Extract("My answer is option 2", "multiple-choice", opts)
	assert.Equal(t, "2", e.Label)
}

func TestExtractSubstringLongestFirst(t *testing.T) {
	opts := []string{"yes", "yes, definitely"}
	e := Extract("yes, definitely the case", "multiple-choice", opts)
	assert.Equal(t, "2", e.Label)
}
