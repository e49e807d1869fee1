// Package codec is the narrow image capability layer the compression engine
// and the enhancer call into. Decoding, encoding, resampling and orientation
// fixes are delegated to github.com/disintegration/imaging.
package codec

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for containers other than JPEG and PNG.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrDecode wraps every failure to turn bytes into pixels.
	ErrDecode = errors.New("decode error")
	// ErrEncode wraps every failure to turn pixels into bytes.
	ErrEncode = errors.New("encode error")
)

// Format is an on-disk container family.
type Format int

const (
	FormatUnknown Format = iota
	FormatJPEG
	FormatPNG
)

// String returns the string representation of the Format.
func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "JPEG"
	case FormatPNG:
		return "PNG"
	default:
		return "Unknown"
	}
}

// Extension returns the canonical file extension written for the format.
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatPNG:
		return ".png"
	default:
		return ""
	}
}

// FormatFromExtension maps a file name to its container format.
func FormatFromExtension(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".png":
		return FormatPNG, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// PixelBuffer is a decoded image plus the facts the decision procedure needs
// about its source.
type PixelBuffer struct {
	Image  image.Image
	Format Format

	// HasAlpha reports an alpha channel in the source color type
	// (PNG gray+alpha or RGBA).
	HasAlpha bool
	// HasTransparencyMeta reports a tRNS chunk (palette or color-key
	// transparency without an alpha channel).
	HasTransparencyMeta bool

	Orientation Orientation
}

// Width returns the pixel width of the buffer.
func (b *PixelBuffer) Width() int {
	return b.Image.Bounds().Dx()
}

// Height returns the pixel height of the buffer.
func (b *PixelBuffer) Height() int {
	return b.Image.Bounds().Dy()
}

// Transparent reports whether the source carried any form of transparency.
func (b *PixelBuffer) Transparent() bool {
	return b.HasAlpha || b.HasTransparencyMeta
}

// with returns a shallow copy carrying img.
func (b *PixelBuffer) with(img image.Image) *PixelBuffer {
	out := *b
	out.Image = img
	return &out
}

// JPEGOptions configures EncodeJPEG.
type JPEGOptions struct {
	Quality int
}

// PNGOptions configures EncodePNG. Optimize forces png.BestCompression.
type PNGOptions struct {
	CompressionLevel png.CompressionLevel
	Optimize         bool
}

// Codec is the image capability used by the compression engine.
type Codec interface {
	Decode(data []byte) (*PixelBuffer, error)
	Normalize(buf *PixelBuffer) *PixelBuffer
	Resize(buf *PixelBuffer, maxDimension int) *PixelBuffer
	Flatten(buf *PixelBuffer, background color.Color) *PixelBuffer
	EncodeJPEG(buf *PixelBuffer, opts JPEGOptions) ([]byte, error)
	EncodePNG(buf *PixelBuffer, opts PNGOptions) ([]byte, error)
	Quantize(buf *PixelBuffer, iterations int) (*PixelBuffer, error)
	SampleAlpha(buf *PixelBuffer, stride int) []uint8
}
