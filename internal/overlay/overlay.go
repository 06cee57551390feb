// Package overlay implements C5: drawing axis-guide gridlines and
// coordinate labels over a cropped image, so the model (and a human
// reviewing a trajectory) can read off approximate level-0 coordinates
// within the crop. Adapted from the teacher's
// internal/pipeline/visualize.go (RGBA-copy-then-draw shape), with font
// rendering grounded on yungbote-neurobridge-backend's avatar service
// (fogleman/gg + golang/freetype + golang.org/x/image/font/basicfont
// fallback).
package overlay

import (
	"image"
	"image/color"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Guide describes one axis-guide line: its pixel offset within the crop and
// the level-0 coordinate it represents.
type Guide struct {
	PixelOffset int
	Level0Value int
}

// Config controls gridline count, color, and font handling.
type Config struct {
	NumGuides       int
	LineColor       color.Color
	TextColor       color.Color
	FontPath        string // optional TrueType font; "" uses the basicfont fallback
	StrictFontCheck bool   // when true, a configured FontPath that fails to load is an error
}

// FontLoadError reports a configured TrueType font that failed to parse,
// surfaced only when Config.StrictFontCheck is set.
type FontLoadError struct{ Path string; Err error }

func (e *FontLoadError) Error() string { return "overlay: load font " + e.Path + ": " + e.Err.Error() }
func (e *FontLoadError) Unwrap() error  { return e.Err }

// Render draws NumGuides evenly-spaced vertical and horizontal gridlines
// over img (in region's level-0 coordinate frame, spanning region.Width x
// region.Height mapped onto img's pixel bounds), labeling each with its
// level-0 coordinate, and returns a new RGBA image.
func Render(img image.Image, regionX, regionY, regionWidth, regionHeight int, cfg Config) (*image.RGBA, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	dc := gg.NewContextForImage(img)
	face, err := loadFace(cfg)
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(face)

	lineColor := cfg.LineColor
	if lineColor == nil {
		lineColor = color.RGBA{R: 255, G: 255, B: 0, A: 200}
	}
	textColor := cfg.TextColor
	if textColor == nil {
		textColor = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	}
	n := cfg.NumGuides
	if n <= 0 {
		n = 4
	}

	dc.SetColor(lineColor)
	for i := 1; i < n; i++ {
		x := float64(w) * float64(i) / float64(n)
		dc.DrawLine(x, 0, x, float64(h))
		dc.Stroke()
		level0X := regionX + int(float64(regionWidth)*float64(i)/float64(n))
		dc.SetColor(textColor)
		dc.DrawString(itoa(level0X), x+2, 12)
		dc.SetColor(lineColor)

		y := float64(h) * float64(i) / float64(n)
		dc.DrawLine(0, y, float64(w), y)
		dc.Stroke()
		level0Y := regionY + int(float64(regionHeight)*float64(i)/float64(n))
		dc.SetColor(textColor)
		dc.DrawString(itoa(level0Y), 2, y-2)
		dc.SetColor(lineColor)
	}

	return dc.Image().(*image.RGBA), nil
}

func loadFace(cfg Config) (font.Face, error) {
	if cfg.FontPath == "" {
		return basicfont.Face7x13, nil
	}
	f, err := loadTrueTypeFace(cfg.FontPath)
	if err != nil {
		if cfg.StrictFontCheck {
			return nil, &FontLoadError{Path: cfg.FontPath, Err: err}
		}
		return basicfont.Face7x13, nil
	}
	return f, nil
}

func loadTrueTypeFace(path string) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	parsed, err := truetype.Parse(data)
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(parsed, &truetype.Options{Size: 12}), nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
