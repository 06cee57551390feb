// Package level implements pyramid level selection: given a region of
// interest in level-0 coordinates and a desired output size, choose which
// pyramid level to read from so the crop engine resamples down rather than
// up. Grounded on original_source/core/level_selector.py's
// PyramidLevelSelector.
package level

import (
	"fmt"
	"math"
	"sort"

	"github.com/giant-wsi/giant/internal/wsi"
)

// Selected describes the chosen pyramid level and the size the region would
// occupy if read at that level.
type Selected struct {
	Level      int     `json:"level"`
	Downsample float64 `json:"downsample"`
	SourceW    int     `json:"source_w"`
	SourceH    int     `json:"source_h"`
}

// ParamError reports invalid selection inputs.
type ParamError struct {
	Field string
	Err   error
}

func (e *ParamError) Error() string { return fmt.Sprintf("level: invalid %s: %v", e.Field, e.Err) }
func (e *ParamError) Unwrap() error  { return e.Err }

// Selector chooses a pyramid level for a requested crop, biasing toward
// slightly oversampling (reading at a level finer than the exact target) so
// the crop engine always resamples down, never up.
type Selector struct {
	// OversamplingBias in (0,1]: target_native = target_size / bias is what
	// Select actually searches for, so a bias below 1 inflates the native
	// size being matched and favors finer (oversampling) levels. 1 disables
	// the bias and searches for target_size directly.
	OversamplingBias float64
}

func (s Selector) validate(regionW, regionH, targetSize int, levels []wsi.PyramidLevel) error {
	if regionW <= 0 || regionH <= 0 {
		return &ParamError{Field: "region size", Err: fmt.Errorf("must be positive, got %dx%d", regionW, regionH)}
	}
	if targetSize <= 0 {
		return &ParamError{Field: "target_size", Err: fmt.Errorf("must be positive, got %d", targetSize)}
	}
	if s.OversamplingBias <= 0 || s.OversamplingBias > 1 {
		return &ParamError{Field: "oversampling_bias", Err: fmt.Errorf("must be in (0,1], got %f", s.OversamplingBias)}
	}
	if len(levels) == 0 {
		return &ParamError{Field: "levels", Err: fmt.Errorf("pyramid has no levels")}
	}
	return nil
}

// Select picks the pyramid level to read region (regionW x regionH, in
// level-0 pixels) from so that resampling to targetSize on the long side is
// a downsample, not an upsample, wherever the pyramid allows it.
func (s Selector) Select(regionW, regionH, targetSize int, levels []wsi.PyramidLevel) (Selected, error) {
	if err := s.validate(regionW, regionH, targetSize, levels); err != nil {
		return Selected{}, err
	}
	sorted := make([]wsi.PyramidLevel, len(levels))
	copy(sorted, levels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Downsample < sorted[j].Downsample })

	longSide := regionW
	if regionH > longSide {
		longSide = regionH
	}
	// target_native biases the target size toward finer levels so the crop
	// engine resamples down, never up: dividing by bias < 1 inflates the
	// size we search for, favoring levels whose native resolution exceeds
	// the plain target_size.
	targetNative := float64(targetSize) / s.OversamplingBias

	chosen := s.findClosestLevel(sorted, longSide, targetNative)
	chosen = s.applyUndershootCorrection(sorted, chosen, longSide, targetSize)

	lvl := sorted[chosen]
	return Selected{
		Level:      lvl.Level,
		Downsample: lvl.Downsample,
		SourceW:    int(float64(regionW) / lvl.Downsample),
		SourceH:    int(float64(regionH) / lvl.Downsample),
	}, nil
}

// findClosestLevel returns the index (into sorted, ascending by downsample)
// of the level k minimizing |Lk - targetNative|, where Lk = longSide /
// downsample[k] is that level's native resolution for the region. Ties go
// to the finer (smaller-downsample, smaller-index) level.
func (s Selector) findClosestLevel(sorted []wsi.PyramidLevel, longSide int, targetNative float64) int {
	best := 0
	bestDiff := math.Abs(float64(longSide)/sorted[0].Downsample - targetNative)
	for i := 1; i < len(sorted); i++ {
		lk := float64(longSide) / sorted[i].Downsample
		diff := math.Abs(lk - targetNative)
		if diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}
	return best
}

// applyUndershootCorrection walks toward finer levels while the chosen
// level's native resolution for the region would produce an output smaller
// than targetSize on the long side (i.e. the crop engine would have to
// upsample), since the crop engine never upsamples.
func (s Selector) applyUndershootCorrection(sorted []wsi.PyramidLevel, chosen int, longSide, targetSize int) int {
	for chosen > 0 {
		downsample := sorted[chosen].Downsample
		nativeLongSide := float64(longSide) / downsample
		if nativeLongSide >= float64(targetSize) {
			break
		}
		chosen--
	}
	return chosen
}
