package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
)

// ImagingCodec implements Codec on top of disintegration/imaging.
type ImagingCodec struct{}

// NewImagingCodec creates a new ImagingCodec instance.
func NewImagingCodec() *ImagingCodec {
	return &ImagingCodec{}
}

// Decode turns JPEG or PNG bytes into an NRGBA buffer. Orientation is read
// but not applied; see Normalize.
func (c *ImagingCodec) Decode(data []byte) (*PixelBuffer, error) {
	format, err := DetectFormat(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	buf := &PixelBuffer{Format: format, Orientation: OrientNormal}
	switch format {
	case FormatJPEG:
		buf.Orientation = ReadOrientation(data)
	case FormatPNG:
		info, err := inspectPNG(data)
		if err != nil {
			return nil, err
		}
		buf.HasAlpha = info.alphaChannel()
		buf.HasTransparencyMeta = info.hasTRNS
		buf.Orientation = ReadOrientation(info.exif)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(false))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	buf.Image = imaging.Clone(img)
	return buf, nil
}

// Normalize applies the recorded orientation so pixel rows read upright.
func (c *ImagingCodec) Normalize(buf *PixelBuffer) *PixelBuffer {
	if buf.Orientation == OrientNormal || buf.Orientation == 0 {
		return buf
	}
	out := buf.with(applyOrientation(buf.Image, buf.Orientation))
	out.Orientation = OrientNormal
	return out
}

// Resize shrinks the buffer so its longer side equals maxDimension. It never
// upscales and is a no-op when maxDimension is not positive.
func (c *ImagingCodec) Resize(buf *PixelBuffer, maxDimension int) *PixelBuffer {
	if maxDimension <= 0 {
		return buf
	}
	if buf.Width() <= maxDimension && buf.Height() <= maxDimension {
		return buf
	}
	return buf.with(imaging.Fit(buf.Image, maxDimension, maxDimension, imaging.Lanczos))
}

// Flatten composites the buffer over an opaque background.
func (c *ImagingCodec) Flatten(buf *PixelBuffer, background color.Color) *PixelBuffer {
	bg := imaging.New(buf.Width(), buf.Height(), background)
	flat := imaging.Overlay(bg, buf.Image, image.Pt(0, 0), 1.0)
	out := buf.with(flat)
	out.HasAlpha = false
	out.HasTransparencyMeta = false
	return out
}

// EncodeJPEG encodes the buffer as baseline JPEG at the requested quality.
func (c *ImagingCodec) EncodeJPEG(buf *PixelBuffer, opts JPEGOptions) ([]byte, error) {
	quality := opts.Quality
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("%w: jpeg quality %d out of range", ErrEncode, quality)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, buf.Image, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("%w: jpeg: %v", ErrEncode, err)
	}
	return out.Bytes(), nil
}

// EncodePNG encodes the buffer losslessly as PNG.
func (c *ImagingCodec) EncodePNG(buf *PixelBuffer, opts PNGOptions) ([]byte, error) {
	level := opts.CompressionLevel
	if opts.Optimize {
		level = png.BestCompression
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, buf.Image, imaging.PNG, imaging.PNGCompressionLevel(level)); err != nil {
		return nil, fmt.Errorf("%w: png: %v", ErrEncode, err)
	}
	return out.Bytes(), nil
}

// Quantize maps the buffer onto a palette of at most PaletteSize NRGBA
// entries, alpha included. iterations bounds the clustering effort; 0 uses
// DefaultPaletteIterations. A palette that loses the source transparency is
// rejected.
func (c *ImagingCodec) Quantize(buf *PixelBuffer, iterations int) (*PixelBuffer, error) {
	if iterations < 0 {
		return nil, fmt.Errorf("%w: palette iterations %d must be >= 0", ErrEncode, iterations)
	}
	src := toNRGBA(buf.Image)
	out := paletteImage(src, iterations)
	if !src.Opaque() && isOpaque(out) {
		return nil, fmt.Errorf("%w: palette dropped the alpha channel", ErrEncode)
	}
	return buf.with(out), nil
}

// SampleAlpha returns the alpha value of every stride-th pixel in row-major
// order.
func (c *ImagingCodec) SampleAlpha(buf *PixelBuffer, stride int) []uint8 {
	if stride < 1 {
		stride = 1
	}
	img := toNRGBA(buf.Image)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	total := w * h
	if total == 0 {
		return nil
	}

	samples := make([]uint8, 0, (total+stride-1)/stride)
	for i := 0; i < total; i += stride {
		x, y := i%w, i/w
		samples = append(samples, img.Pix[y*img.Stride+x*4+3])
	}
	return samples
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}
