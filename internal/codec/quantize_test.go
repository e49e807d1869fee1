package codec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"
)

func fewColors() (*image.NRGBA, []color.NRGBA) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	colors := []color.NRGBA{
		{255, 0, 0, 255},
		{0, 255, 0, 128},
		{0, 0, 255, 0},
	}
	for i := 0; i < 16; i++ {
		img.SetNRGBA(i%4, i/4, colors[i%3])
	}
	return img, colors
}

func TestExactPaletteIsLossless(t *testing.T) {
	img, colors := fewColors()

	pal := exactPalette(img)
	if pal == nil {
		t.Fatal("expected an exact palette")
	}
	if len(pal.Palette) != 3 {
		t.Fatalf("palette size = %d, want 3", len(pal.Palette))
	}
	for i := 0; i < 16; i++ {
		got := pal.Palette[pal.ColorIndexAt(i%4, i/4)].(color.NRGBA)
		if got != colors[i%3] {
			t.Errorf("pixel %d = %v, want %v", i, got, colors[i%3])
		}
	}

	// translucent entries first
	prev := uint8(0)
	for i, c := range pal.Palette {
		a := c.(color.NRGBA).A
		if a < prev {
			t.Fatalf("palette entry %d has lower alpha than its predecessor", i)
		}
		prev = a
	}
}

func TestExactPaletteGivesUpAboveLimit(t *testing.T) {
	img := makeGradient(64, 64, func(x, y int) uint8 { return uint8(x*4 + y%4) })
	if exactPalette(img) != nil {
		t.Fatal("expected nil for more than 256 colors")
	}
}

func TestQuantizeIsReproducible(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	levels := []uint8{0, 85, 170, 255}
	for i := 0; i < len(img.Pix); i++ {
		img.Pix[i] = levels[rng.Intn(len(levels))]
	}

	c := NewImagingCodec()
	var first []byte
	for run := 0; run < 8; run++ {
		out, err := c.Quantize(&PixelBuffer{Image: img, HasAlpha: true}, 0)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, out.Image); err != nil {
			t.Fatal(err)
		}
		if run == 0 {
			first = buf.Bytes()
			continue
		}
		if !bytes.Equal(first, buf.Bytes()) {
			t.Fatalf("run %d produced a different encoding", run)
		}
	}
}

func TestQuantizeManyColors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	img := image.NewNRGBA(image.Rect(0, 0, 48, 48))
	rng.Read(img.Pix)

	buf := &PixelBuffer{Image: img, HasAlpha: true}
	out, err := NewImagingCodec().Quantize(buf, 2)
	if errors.Is(err, ErrEncode) {
		// the palette could not keep transparency; the direct strategy covers it
		return
	}
	if err != nil {
		t.Fatalf("Quantize: %v", err)
	}
	if out.Image.Bounds() != img.Bounds() {
		t.Errorf("bounds changed: %v", out.Image.Bounds())
	}
	if isOpaque(out.Image) {
		t.Error("quantized image lost its transparency")
	}
	if p, ok := out.Image.(*image.Paletted); ok && len(p.Palette) > PaletteSize {
		t.Errorf("palette size = %d, want <= %d", len(p.Palette), PaletteSize)
	}
	if out.HasAlpha != buf.HasAlpha {
		t.Error("source facts not carried over")
	}
}

func TestQuantizeRejectsNegativeIterations(t *testing.T) {
	img, _ := fewColors()
	if _, err := NewImagingCodec().Quantize(&PixelBuffer{Image: img}, -1); !errors.Is(err, ErrEncode) {
		t.Errorf("error = %v, want ErrEncode", err)
	}
}

func TestIsOpaque(t *testing.T) {
	img, _ := fewColors()
	if isOpaque(img) {
		t.Error("translucent image reported opaque")
	}
	if !isOpaque(makeGradient(4, 4, opaque)) {
		t.Error("opaque image reported translucent")
	}
}
