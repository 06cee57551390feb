// Package segment implements the tissue segmenter external interface
// (spec.md §6): deciding which patches of a thumbnail contain tissue versus
// background, via Otsu thresholding. Conceptually grounded on
// resoltico-y4/processing_otsu.go's histogram-based approach, reimplemented
// against the standard library rather than gocv/cgo — see DESIGN.md for why
// gocv was not wired in.
package segment

import (
	"image"
	"image/color"
)

// Mask is a binary tissue/background classification at thumbnail
// resolution: Foreground[y][x] is true where tissue was detected.
type Mask struct {
	Width, Height int
	Foreground    [][]bool
}

// At reports whether (x, y) was classified as tissue.
func (m Mask) At(x, y int) bool {
	if y < 0 || y >= m.Height || x < 0 || x >= m.Width {
		return false
	}
	return m.Foreground[y][x]
}

// Segment computes a grayscale histogram of img, picks the Otsu threshold
// that maximizes inter-class variance, and classifies each pixel darker
// than the threshold as tissue (slide backgrounds are bright white/cream;
// stained tissue is darker).
func Segment(img image.Image) Mask {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	hist := buildHistogram(img)
	threshold := otsuThreshold(hist)

	fg := make([][]bool, h)
	for y := 0; y < h; y++ {
		row := make([]bool, w)
		for x := 0; x < w; x++ {
			gray := grayAt(img, b.Min.X+x, b.Min.Y+y)
			row[x] = gray < threshold
		}
		fg[y] = row
	}
	return Mask{Width: w, Height: h, Foreground: fg}
}

// TissueFraction reports the fraction of the mask classified as tissue.
func (m Mask) TissueFraction() float64 {
	if m.Width == 0 || m.Height == 0 {
		return 0
	}
	count := 0
	for _, row := range m.Foreground {
		for _, v := range row {
			if v {
				count++
			}
		}
	}
	return float64(count) / float64(m.Width*m.Height)
}

func grayAt(img image.Image, x, y int) uint8 {
	r, g, b, _ := img.At(x, y).RGBA()
	gray := color.GrayModel.Convert(color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}).(color.Gray)
	return gray.Y
}

func buildHistogram(img image.Image) [256]int {
	var hist [256]int
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			hist[grayAt(img, x, y)]++
		}
	}
	return hist
}

// otsuThreshold finds the gray level that maximizes between-class variance
// over the histogram.
func otsuThreshold(hist [256]int) uint8 {
	total := 0
	for _, c := range hist {
		total += c
	}
	if total == 0 {
		return 128
	}
	sumAll := 0.0
	for i, c := range hist {
		sumAll += float64(i) * float64(c)
	}

	var sumB, wB float64
	best := 0.0
	threshold := 0
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * float64(hist[t])
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = t
		}
	}
	return uint8(threshold)
}
