// Package crop implements C4: cropping a region of a slide at the
// appropriate pyramid level, resampling it to a target size, and encoding it
// as base64 JPEG for inclusion in an LMM prompt. Grounded on the teacher's
// internal/utils/image_processing.go (Lanczos resampling, never-upsample)
// and original_source/core/crop_engine.py (the exact size-guard and
// resize/encode sequence).
package crop

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"

	"github.com/giant-wsi/giant/internal/geometry"
	"github.com/giant-wsi/giant/internal/level"
	"github.com/giant-wsi/giant/internal/mempool"
	"github.com/giant-wsi/giant/internal/wsi"
)

const defaultMaxReadDimension = 10000

// Recovery policies for a region that does not fit within the slide.
// PolicyReject ends the crop with a *geometry.BoundsError; PolicyClamp
// intersects the region with the slide bounds and logs a warning.
const (
	PolicyReject = "reject"
	PolicyClamp  = "clamp"
)

// CroppedImage is a resampled, JPEG-encoded region ready to embed in an LMM
// message.
type CroppedImage struct {
	Base64JPEG string          `json:"base64_jpeg"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Level      int             `json:"level"`
	Downsample float64         `json:"downsample"`
	Region     geometry.Region `json:"region"`
}

// SizeGuardError reports a region whose native resolution at the selected
// level exceeds the configured memory guard.
type SizeGuardError struct {
	Width, Height int
	Level         int
	MaxDimension  int
}

func (e *SizeGuardError) Error() string {
	return fmt.Sprintf(
		"Region too large: %dx%d pixels at level %d exceeds maximum dimension %dpx. Use a smaller region or get_thumbnail() for full-slide overview.",
		e.Width, e.Height, e.Level, e.MaxDimension)
}

// QualityError reports an out-of-range JPEG quality setting.
type QualityError struct{ Quality int }

func (e *QualityError) Error() string {
	return fmt.Sprintf("crop: jpeg quality %d out of range [1,100]", e.Quality)
}

// Engine crops regions of a slide via a wsi.Decoder, selecting the pyramid
// level to read from and never upsampling when resizing to TargetSize.
type Engine struct {
	Decoder          wsi.Decoder
	Selector         level.Selector
	TargetSize       int
	JPEGQuality      int
	MaxReadDimension int
	RecoveryPolicy   string
}

// NewEngine builds an Engine from the given decoder and crop settings, used
// as passed (a zero value is not replaced by a default), with
// MaxReadDimension set to defaultMaxReadDimension. recoveryPolicy
// selects what Crop does with an out-of-bounds region (PolicyReject or
// PolicyClamp); an empty string defaults to PolicyReject.
func NewEngine(decoder wsi.Decoder, targetSize, jpegQuality int, oversamplingBias float64, recoveryPolicy string) *Engine {
	if recoveryPolicy == "" {
		recoveryPolicy = PolicyReject
	}
	return &Engine{
		Decoder:          decoder,
		Selector:         level.Selector{OversamplingBias: oversamplingBias},
		TargetSize:       targetSize,
		JPEGQuality:      jpegQuality,
		MaxReadDimension: defaultMaxReadDimension,
		RecoveryPolicy:   recoveryPolicy,
	}
}

// Crop reads, resamples, and JPEG-encodes region from the slide described by
// metadata, at path (as understood by the configured decoder).
func (e *Engine) Crop(ctx context.Context, path string, metadata wsi.Metadata, region geometry.Region) (CroppedImage, error) {
	if e.JPEGQuality < 1 || e.JPEGQuality > 100 {
		return CroppedImage{}, &QualityError{Quality: e.JPEGQuality}
	}
	if err := region.Validate(); err != nil {
		return CroppedImage{}, err
	}
	l0 := metadata.Level0()
	if err := region.ValidateBounds(l0.Width, l0.Height, e.RecoveryPolicy != PolicyClamp); err != nil {
		return CroppedImage{}, err
	}
	prepared := region
	if !region.Fits(l0.Width, l0.Height) {
		clamped, err := region.Clamp(l0.Width, l0.Height)
		if err != nil {
			return CroppedImage{}, err
		}
		slog.Warn("crop: region out of bounds, clamped per configured recovery policy",
			"region", region.String(), "clamped", clamped.String(), "slide_width", l0.Width, "slide_height", l0.Height)
		prepared = clamped
	}

	selected, err := e.Selector.Select(prepared.Width, prepared.Height, e.TargetSize, metadata.Levels)
	if err != nil {
		return CroppedImage{}, err
	}

	maxDim := e.MaxReadDimension
	if maxDim <= 0 {
		maxDim = defaultMaxReadDimension
	}
	if selected.SourceW > maxDim || selected.SourceH > maxDim {
		return CroppedImage{}, &SizeGuardError{Width: selected.SourceW, Height: selected.SourceH, Level: selected.Level, MaxDimension: maxDim}
	}

	img, err := e.Decoder.ReadRegion(ctx, path, selected.Level, prepared.X, prepared.Y, prepared.Width, prepared.Height)
	if err != nil {
		return CroppedImage{}, fmt.Errorf("crop: read region: %w", err)
	}

	resized := resizeToTarget(img, e.TargetSize)
	encoded, err := encodeBase64JPEG(resized, e.JPEGQuality)
	if err != nil {
		return CroppedImage{}, fmt.Errorf("crop: encode jpeg: %w", err)
	}

	rb := resized.Bounds()
	return CroppedImage{
		Base64JPEG: encoded,
		Width:      rb.Dx(),
		Height:     rb.Dy(),
		Level:      selected.Level,
		Downsample: selected.Downsample,
		Region:     prepared,
	}, nil
}

// Thumbnail renders a full-slide overview at the coarsest available level,
// resampled to maxSize on the long side. Used for the agent's initial
// observation and the "Use a smaller region or get_thumbnail()" guidance in
// SizeGuardError.
func (e *Engine) Thumbnail(ctx context.Context, path string, metadata wsi.Metadata, maxSize int) (CroppedImage, error) {
	l0 := metadata.Level0()
	full := geometry.Region{X: 0, Y: 0, Width: l0.Width, Height: l0.Height}
	coarsest := metadata.Levels[len(metadata.Levels)-1]
	img, err := e.Decoder.ReadRegion(ctx, path, coarsest.Level, 0, 0, l0.Width, l0.Height)
	if err != nil {
		return CroppedImage{}, fmt.Errorf("crop: thumbnail read: %w", err)
	}
	resized := resizeToTarget(img, maxSize)
	encoded, err := encodeBase64JPEG(resized, e.JPEGQuality)
	if err != nil {
		return CroppedImage{}, fmt.Errorf("crop: thumbnail encode: %w", err)
	}
	rb := resized.Bounds()
	return CroppedImage{
		Base64JPEG: encoded,
		Width:      rb.Dx(),
		Height:     rb.Dy(),
		Level:      coarsest.Level,
		Downsample: coarsest.Downsample,
		Region:     full,
	}, nil
}

func encodeBase64JPEG(img image.Image, quality int) (string, error) {
	buf := mempool.GetBytes(64 * 1024)
	defer mempool.PutBytes(buf)
	w := bytes.NewBuffer(buf)
	w.Reset()
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(w.Bytes()), nil
}
