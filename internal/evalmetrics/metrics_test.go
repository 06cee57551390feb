package evalmetrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccuracy(t *testing.T) {
	acc, err := Accuracy([]string{"A", "B", "A"}, []string{"A", "A", "A"})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, acc, 1e-9)
}

func TestAccuracyLengthMismatch(t *testing.T) {
	_, err := Accuracy([]string{"A"}, []string{"A", "B"})
	require.Error(t, err)
}

func TestAccuracyEmpty(t *testing.T) {
	_, err := Accuracy(nil, nil)
	require.Error(t, err)
}

func TestBalancedAccuracyWeightsClassesEqually(t *testing.T) {
	// Class "A" has 9 items (all correct); class "B" has 1 item (wrong).
	preds := []string{"A", "A", "A", "A", "A", "A", "A", "A", "A", "A"}
	truths := []string{"A", "A", "A", "A", "A", "A", "A", "A", "A", "B"}
	acc, err := Accuracy(preds, truths)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, acc, 1e-9)

	bal, err := BalancedAccuracy(preds, truths)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, bal, 1e-9) // recall(A)=1.0, recall(B)=0.0 -> mean 0.5
}

func TestBootstrapDeterministicWithSameSeed(t *testing.T) {
	preds := []string{"A", "B", "A", "A", "B", "B", "A"}
	truths := []string{"A", "A", "A", "B", "B", "B", "A"}
	r1, err := Bootstrap(preds, truths, Accuracy, 200, 42)
	require.NoError(t, err)
	r2, err := Bootstrap(preds, truths, Accuracy, 200, 42)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
	assert.GreaterOrEqual(t, r1.CIHigh, r1.CILow)
}

func TestBootstrapPointEstimateIndependentOfSeed(t *testing.T) {
	preds := []string{"A", "B", "A", "A", "B", "B", "A", "B", "A", "B"}
	truths := []string{"A", "A", "A", "B", "B", "B", "A", "A", "B", "B"}
	r1, err := Bootstrap(preds, truths, Accuracy, 500, 1)
	require.NoError(t, err)
	r2, err := Bootstrap(preds, truths, Accuracy, 500, 2)
	require.NoError(t, err)
	assert.Equal(t, r1.PointEstimate, r2.PointEstimate)
}
