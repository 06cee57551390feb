package crop

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// resizeToTarget resamples img so its long side equals targetSize, using
// Lanczos resampling as the teacher's internal/utils/image_processing.go
// ResizeImage does, but never upsampling: an image already at or below
// targetSize on its long side is returned unchanged. The short side is
// computed by rounding from the exact aspect ratio so repeated resizes don't
// accumulate truncation error, matching original_source's
// crop_engine.py _resize_to_target.
func resizeToTarget(img image.Image, targetSize int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longSide := w
	if h > longSide {
		longSide = h
	}
	if longSide <= targetSize {
		return img
	}
	scale := float64(targetSize) / float64(longSide)
	var newW, newH int
	if w >= h {
		newW = targetSize
		newH = int(math.Round(float64(h) * scale))
	} else {
		newH = targetSize
		newW = int(math.Round(float64(w) * scale))
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return imaging.Resize(img, newW, newH, imaging.Lanczos)
}
