package evalmetrics

import (
	"math"
	"math/rand/v2"
	"sort"
)

// BootstrapResult summarizes a bootstrap resampling run: the point estimate
// on the full sample, its bootstrap standard deviation, and a 95% percentile
// confidence interval.
type BootstrapResult struct {
	PointEstimate float64
	StdDev        float64
	CILow         float64
	CIHigh        float64
}

// MetricFunc scores one resample given by indices into predictions/truths.
type MetricFunc func(predictions, truths []string) (float64, error)

// Bootstrap resamples (predictions, truths) with replacement nResamples
// times (same seed -> same sequence of resamples in this implementation;
// see DESIGN.md for the cross-language reproducibility caveat), scoring
// each resample with metric, and summarizes the resulting distribution.
func Bootstrap(predictions, truths []string, metric MetricFunc, nResamples int, seed uint64) (BootstrapResult, error) {
	n := len(predictions)
	point, err := metric(predictions, truths)
	if err != nil {
		return BootstrapResult{}, err
	}
	if n == 0 || nResamples <= 0 {
		return BootstrapResult{PointEstimate: point}, nil
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	scores := make([]float64, 0, nResamples)
	resampledPred := make([]string, n)
	resampledTruth := make([]string, n)
	for i := 0; i < nResamples; i++ {
		for j := 0; j < n; j++ {
			idx := rng.IntN(n)
			resampledPred[j] = predictions[idx]
			resampledTruth[j] = truths[idx]
		}
		score, err := metric(resampledPred, resampledTruth)
		if err != nil {
			continue
		}
		scores = append(scores, score)
	}
	if len(scores) == 0 {
		return BootstrapResult{PointEstimate: point}, nil
	}

	stddev := sampleStdDev(scores)
	lo, hi := percentileCI(scores, 2.5, 97.5)
	return BootstrapResult{PointEstimate: point, StdDev: stddev, CILow: lo, CIHigh: hi}, nil
}

// sampleStdDev computes the ddof=1 (sample) standard deviation, matching
// original_source's np.std(scores, ddof=1).
func sampleStdDev(scores []float64) float64 {
	if len(scores) < 2 {
		return 0
	}
	mean := 0.0
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))
	sumSq := 0.0
	for _, s := range scores {
		d := s - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(scores)-1))
}

// percentileCI returns the linear-interpolated loPct/hiPct percentiles,
// matching numpy.percentile's default interpolation.
func percentileCI(scores []float64, loPct, hiPct float64) (float64, float64) {
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)
	return percentile(sorted, loPct), percentile(sorted, hiPct)
}

func percentile(sorted []float64, pct float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := pct / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
