// Package wsi defines the slide metadata model and the decoder interface
// external whole-slide-image libraries (e.g. OpenSlide bindings) must
// satisfy, generalizing the teacher's flat ImageMetadata (internal/utils)
// into a pyramid-aware shape.
package wsi

import (
	"context"
	"fmt"
	"image"
)

// PyramidLevel describes one level of a slide's resolution pyramid.
type PyramidLevel struct {
	Level      int     `json:"level"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Downsample float64 `json:"downsample"`
}

// Metadata describes a decoded slide: its pyramid and physical resolution.
type Metadata struct {
	Path           string         `json:"path"`
	Levels         []PyramidLevel `json:"levels"`
	MPPX           float64        `json:"mpp_x"`
	MPPY           float64        `json:"mpp_y"`
	Vendor         string         `json:"vendor"`
}

// Level0 returns the full-resolution level, which must exist.
func (m Metadata) Level0() PyramidLevel {
	return m.Levels[0]
}

// UnsupportedFormatError is returned when a path cannot be opened by any
// registered decoder.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("wsi: unsupported or unreadable slide format: %s", e.Path)
}

// Decoder is the external interface GIANT requires of a whole-slide-image
// library (spec.md §6). Production builds wire this to an OpenSlide cgo
// binding or a cloud-backed tile service; tests use the in-memory Mock.
type Decoder interface {
	// Open returns metadata for the slide at path without reading pixel data.
	Open(ctx context.Context, path string) (Metadata, error)
	// ReadRegion decodes the pixels of region (in level-0 coordinates,
	// width/height given at level 0 too) resampled from the given pyramid
	// level, returning an image sized to what that level actually contains
	// for the region (i.e. region dimensions scaled by 1/downsample).
	ReadRegion(ctx context.Context, path string, level int, regionX, regionY, regionW, regionH int) (image.Image, error)
	// Close releases any resources associated with path, if applicable.
	Close(path string) error
}
