package codec

import (
	"image"
	"image/color"
	"sort"

	"github.com/unixpickle/smallpng/smallpng"
)

// PaletteSize is the number of entries a quantized image may use.
const PaletteSize = 256

// DefaultPaletteIterations is the clustering effort used when none is given.
const DefaultPaletteIterations = smallpng.DefaultMaxKMeansIters

// paletteImage maps img onto at most PaletteSize colors. Images that already
// fit are palettized exactly; the rest are clustered by smallpng.
func paletteImage(img *image.NRGBA, iterations int) image.Image {
	if exact := exactPalette(img); exact != nil {
		return exact
	}
	if iterations <= 0 {
		iterations = DefaultPaletteIterations
	}
	return smallpng.PaletteImage(img, iterations)
}

// exactPalette returns a lossless paletted copy of img, or nil when img uses
// more than PaletteSize distinct colors. Entries are ordered by alpha, then
// RGB, so translucent entries come first and the output is reproducible.
func exactPalette(img *image.NRGBA) *image.Paletted {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	seen := make(map[color.NRGBA]struct{}, PaletteSize)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w*4; x += 4 {
			seen[color.NRGBA{R: row[x], G: row[x+1], B: row[x+2], A: row[x+3]}] = struct{}{}
			if len(seen) > PaletteSize {
				return nil
			}
		}
	}

	colors := make([]color.NRGBA, 0, len(seen))
	for c := range seen {
		colors = append(colors, c)
	}
	sort.Slice(colors, func(i, j int) bool {
		a, b := colors[i], colors[j]
		if a.A != b.A {
			return a.A < b.A
		}
		if a.R != b.R {
			return a.R < b.R
		}
		if a.G != b.G {
			return a.G < b.G
		}
		return a.B < b.B
	})

	palette := make(color.Palette, len(colors))
	index := make(map[color.NRGBA]uint8, len(colors))
	for i, c := range colors {
		palette[i] = c
		index[c] = uint8(i)
	}

	dst := image.NewPaletted(image.Rect(0, 0, w, h), palette)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: row[x*4], G: row[x*4+1], B: row[x*4+2], A: row[x*4+3]}
			dst.Pix[y*dst.Stride+x] = index[c]
		}
	}
	return dst
}

// isOpaque reports whether every pixel of img is fully opaque.
func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}
