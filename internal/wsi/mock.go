package wsi

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"
)

// MockDecoder synthesizes slides procedurally instead of reading real
// whole-slide-image files, in the spirit of the teacher's internal/onnx/mock
// synthetic-map generators. It is used by agent and evaluation tests that
// need a deterministic, dependency-free slide source.
type MockDecoder struct {
	mu     sync.Mutex
	slides map[string]Metadata
}

// NewMockDecoder returns a decoder with no registered slides; call Register
// before Open/ReadRegion.
func NewMockDecoder() *MockDecoder {
	return &MockDecoder{slides: make(map[string]Metadata)}
}

// Register associates path with a synthetic slide of the given level-0
// dimensions, generating a standard four-level pyramid (1x, 4x, 16x, 64x).
func (m *MockDecoder) Register(path string, width, height int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	levels := make([]PyramidLevel, 0, 4)
	downsample := 1.0
	for level := 0; level < 4; level++ {
		levels = append(levels, PyramidLevel{
			Level:      level,
			Width:      int(float64(width) / downsample),
			Height:     int(float64(height) / downsample),
			Downsample: downsample,
		})
		downsample *= 4
	}
	m.slides[path] = Metadata{Path: path, Levels: levels, MPPX: 0.25, MPPY: 0.25, Vendor: "mock"}
}

func (m *MockDecoder) Open(_ context.Context, path string) (Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md, ok := m.slides[path]
	if !ok {
		return Metadata{}, &UnsupportedFormatError{Path: path}
	}
	return md, nil
}

// ReadRegion renders a deterministic checkerboard-plus-gradient pattern so
// tests can assert on pixel content without any real image asset.
func (m *MockDecoder) ReadRegion(_ context.Context, path string, level int, regionX, regionY, regionW, regionH int) (image.Image, error) {
	m.mu.Lock()
	md, ok := m.slides[path]
	m.mu.Unlock()
	if !ok {
		return nil, &UnsupportedFormatError{Path: path}
	}
	if level < 0 || level >= len(md.Levels) {
		return nil, &UnsupportedFormatError{Path: path}
	}
	downsample := md.Levels[level].Downsample
	outW := int(math.Round(float64(regionW) / downsample))
	outH := int(math.Round(float64(regionH) / downsample))
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, outW, outH))
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			srcX := regionX + int(float64(x)*downsample)
			srcY := regionY + int(float64(y)*downsample)
			checker := (srcX/64 + srcY/64) % 2
			shade := uint8(128 + 64*checker)
			gx := uint8((srcX * 255) / maxInt(md.Level0().Width, 1))
			img.Set(x, y, color.RGBA{R: shade, G: gx, B: shade, A: 255})
		}
	}
	return img, nil
}

func (m *MockDecoder) Close(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slides, path)
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
