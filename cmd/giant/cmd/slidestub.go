package cmd

import "github.com/giant-wsi/giant/internal/wsi"

// defaultSyntheticWidth/Height stand in for a real slide's level-0
// dimensions until a real decoder (OpenSlide binding or cloud tile
// service) is wired into this build — spec.md treats the slide decoder
// as an external collaborator specified only by interface (§6).
const (
	defaultSyntheticWidth  = 80000
	defaultSyntheticHeight = 60000
)

// registerMockSlide makes wsi.MockDecoder.Open/ReadRegion succeed for path
// so the CLI commands are exercisable without a real WSI backend.
func registerMockSlide(decoder *wsi.MockDecoder, path string) {
	decoder.Register(path, defaultSyntheticWidth, defaultSyntheticHeight)
}
