package provider

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maxImagePixels bounds decoded dimensions so a forged header cannot make an
// extractor allocate gigabytes.
const maxImagePixels = 80_000_000

// ImageInfo describes a decodable image.
type ImageInfo struct {
	Format string
	Width  int
	Height int
}

// Probe decodes only the image header. ok is false for empty, truncated,
// unknown-format or oversized input.
func Probe(data []byte) (ImageInfo, bool) {
	if len(data) == 0 {
		return ImageInfo{}, false
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, false
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxImagePixels {
		return ImageInfo{}, false
	}

	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, true
}

// Decodable reports whether the full image decodes. Headers alone do not
// catch truncated bodies.
func Decodable(data []byte) bool {
	if _, ok := Probe(data); !ok {
		return false
	}
	_, _, err := image.Decode(bytes.NewReader(data))
	return err == nil
}
