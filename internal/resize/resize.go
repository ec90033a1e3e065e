// Package resize implements the in-process pipeline: decode a source
// image, resample it into a target box with a box filter, preserving
// aspect ratio. This is the pure-function core of spec.md §4.5; its
// only side effect is the initial file read.
package resize

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	xwebp "golang.org/x/image/webp"

	"thumbnailify/internal/thumberr"
)

// supportedMIMETypes lists every content-sniffed MIME type DecodeSource
// can actually decode. Anything outside this set needs a registered
// external helper; the orchestrator must not fall back to DecodeSource
// for it.
var supportedMIMETypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/webp": true,
}

// SupportsMIME reports whether DecodeSource can handle a source of the
// given content-sniffed MIME type.
func SupportsMIME(mimeType string) bool {
	return supportedMIMETypes[mimeType]
}

// DecodeSource opens and decodes path into an image.Image. jpeg, png,
// gif, bmp and tiff go through disintegration/imaging. WebP sources are decoded with
// golang.org/x/image/webp first (pure Go, handles the common lossy/
// lossless cases) and fall back to chai2010/webp's cgo decoder for the
// extended-format bitstreams x/image/webp rejects.
func DecodeSource(path string) (image.Image, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".webp" {
		return decodeWebP(path)
	}

	img, err := imaging.Open(path)
	if err == nil {
		return img, nil
	}
	return nil, thumberr.New(thumberr.KindBadImage, path, err)
}

func decodeWebP(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, thumberr.New(thumberr.KindIO, path, err)
	}
	defer f.Close()

	if img, decErr := xwebp.Decode(f); decErr == nil {
		return img, nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, thumberr.New(thumberr.KindIO, path, err)
	}
	img, err := webp.Decode(f)
	if err != nil {
		return nil, thumberr.New(thumberr.KindBadImage, path, err)
	}
	return img, nil
}

// Resize fits src within a maxDim x maxDim box using a box filter,
// preserving aspect ratio to within one pixel after rounding.
// Zero-dimension sources are rejected with KindBadImage.
func Resize(src image.Image, maxDim int) (image.Image, error) {
	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 {
		return nil, thumberr.New(thumberr.KindBadImage, "", fmt.Errorf("zero-dimension source image (%dx%d)", width, height))
	}
	if maxDim <= 0 {
		return nil, thumberr.New(thumberr.KindBadImage, "", fmt.Errorf("invalid target dimension %d", maxDim))
	}

	scale := float64(maxDim) / float64(max(width, height))
	dstW := int(float64(width)*scale + 0.5)
	dstH := int(float64(height)*scale + 0.5)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	return imaging.Resize(src, dstW, dstH, imaging.Box), nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
