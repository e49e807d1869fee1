package codec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// ── Test Helpers ────────────────────────────────────────────────────────────

func makeGradient(w, h int, alpha func(x, y int) uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := y*img.Stride + x*4
			img.Pix[off] = uint8(x * 255 / w)
			img.Pix[off+1] = uint8(y * 255 / h)
			img.Pix[off+2] = uint8((x + y) % 256)
			img.Pix[off+3] = alpha(x, y)
		}
	}
	return img
}

func opaque(int, int) uint8 { return 0xff }

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// ── Format detection ────────────────────────────────────────────────────────

func TestFormatFromExtension(t *testing.T) {
	tests := []struct {
		path string
		want Format
		err  bool
	}{
		{"a.jpg", FormatJPEG, false},
		{"a.JPEG", FormatJPEG, false},
		{"dir/a.Png", FormatPNG, false},
		{"a.gif", FormatUnknown, true},
		{"noext", FormatUnknown, true},
	}
	for _, tt := range tests {
		got, err := FormatFromExtension(tt.path)
		if (err != nil) != tt.err {
			t.Errorf("%s: err = %v", tt.path, err)
		}
		if tt.err && !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%s: error should wrap ErrUnsupportedFormat", tt.path)
		}
		if got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestDetectFormat(t *testing.T) {
	img := makeGradient(8, 8, opaque)
	if f, err := DetectFormat(encodePNG(t, img)); err != nil || f != FormatPNG {
		t.Errorf("png detection: %v %v", f, err)
	}
	if f, err := DetectFormat(encodeJPEG(t, img)); err != nil || f != FormatJPEG {
		t.Errorf("jpeg detection: %v %v", f, err)
	}
	if _, err := DetectFormat([]byte("not an image at all")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("garbage should be unsupported, got %v", err)
	}
}

// ── Decode ──────────────────────────────────────────────────────────────────

func TestDecodeReportsAlphaModes(t *testing.T) {
	c := NewImagingCodec()

	rgb := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range rgb.Pix {
		rgb.Pix[i] = 0xff
	}
	buf, err := c.Decode(encodePNG(t, rgb))
	if err != nil {
		t.Fatalf("decode opaque png: %v", err)
	}
	if buf.HasAlpha || buf.HasTransparencyMeta {
		t.Errorf("opaque PNG reported transparency: %+v", buf)
	}

	rgba := makeGradient(4, 4, func(x, y int) uint8 { return uint8(x * 60) })
	buf, err = c.Decode(encodePNG(t, rgba))
	if err != nil {
		t.Fatalf("decode rgba png: %v", err)
	}
	if !buf.HasAlpha || !buf.Transparent() {
		t.Error("RGBA PNG should report an alpha channel")
	}

	pal := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{
		color.NRGBA{0, 0, 0, 0},
		color.NRGBA{255, 0, 0, 255},
	})
	pal.Pix[5] = 1
	buf, err = c.Decode(encodePNG(t, pal))
	if err != nil {
		t.Fatalf("decode paletted png: %v", err)
	}
	if buf.HasAlpha {
		t.Error("paletted PNG has no alpha channel")
	}
	if !buf.HasTransparencyMeta {
		t.Error("paletted PNG with transparent entry should report tRNS")
	}
}

func TestDecodeMalformed(t *testing.T) {
	c := NewImagingCodec()
	if _, err := c.Decode([]byte("garbage")); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}

	data := encodePNG(t, makeGradient(16, 16, opaque))
	if _, err := c.Decode(data[:len(data)/2]); !errors.Is(err, ErrDecode) {
		t.Errorf("truncated PNG: expected ErrDecode, got %v", err)
	}
}

func TestDecodeJPEGWithoutEXIF(t *testing.T) {
	c := NewImagingCodec()
	buf, err := c.Decode(encodeJPEG(t, makeGradient(10, 6, opaque)))
	if err != nil {
		t.Fatal(err)
	}
	if buf.Format != FormatJPEG || buf.Orientation != OrientNormal {
		t.Errorf("unexpected buffer: format=%v orientation=%v", buf.Format, buf.Orientation)
	}
	if buf.Width() != 10 || buf.Height() != 6 {
		t.Errorf("size = %dx%d, want 10x6", buf.Width(), buf.Height())
	}
}

// ── Orientation ─────────────────────────────────────────────────────────────

func TestNormalizeSwapsAxes(t *testing.T) {
	c := NewImagingCodec()
	src := &PixelBuffer{Image: makeGradient(30, 10, opaque), Orientation: OrientRotate90CW}
	out := c.Normalize(src)
	if out.Width() != 10 || out.Height() != 30 {
		t.Fatalf("rotated size = %dx%d, want 10x30", out.Width(), out.Height())
	}
	if out.Orientation != OrientNormal {
		t.Errorf("orientation not reset: %v", out.Orientation)
	}
	if src.Width() != 30 {
		t.Error("Normalize must not mutate its input")
	}

	same := c.Normalize(&PixelBuffer{Image: makeGradient(30, 10, opaque), Orientation: OrientNormal})
	if same.Width() != 30 || same.Height() != 10 {
		t.Error("normal orientation should be a no-op")
	}
}

func TestOrientationSwapsAxes(t *testing.T) {
	for o := OrientNormal; o <= OrientRotate270CW; o++ {
		want := o >= OrientTranspose
		if o.SwapsAxes() != want {
			t.Errorf("%d.SwapsAxes() = %v", o, o.SwapsAxes())
		}
	}
}

func TestReadOrientationGarbage(t *testing.T) {
	if got := ReadOrientation([]byte{0xff, 0xd8, 0x00}); got != OrientNormal {
		t.Errorf("garbage orientation = %v", got)
	}
	if got := ReadOrientation(nil); got != OrientNormal {
		t.Errorf("nil orientation = %v", got)
	}
}

// ── Resize ──────────────────────────────────────────────────────────────────

func TestResize(t *testing.T) {
	c := NewImagingCodec()
	tests := []struct {
		name         string
		w, h, max    int
		wantW, wantH int
	}{
		{"landscape", 300, 200, 150, 150, 100},
		{"portrait", 200, 300, 150, 100, 150},
		{"within bound", 100, 50, 150, 100, 50},
		{"unset", 300, 200, 0, 300, 200},
		{"never upscale", 40, 20, 4000, 40, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.Resize(&PixelBuffer{Image: makeGradient(tt.w, tt.h, opaque)}, tt.max)
			if out.Width() != tt.wantW || out.Height() != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", out.Width(), out.Height(), tt.wantW, tt.wantH)
			}
		})
	}
}

// ── Encode / flatten ────────────────────────────────────────────────────────

func TestEncodeJPEGQualityRange(t *testing.T) {
	c := NewImagingCodec()
	buf := &PixelBuffer{Image: makeGradient(16, 16, opaque)}
	if _, err := c.EncodeJPEG(buf, JPEGOptions{Quality: 0}); !errors.Is(err, ErrEncode) {
		t.Errorf("quality 0 should fail with ErrEncode, got %v", err)
	}
	data, err := c.EncodeJPEG(buf, JPEGOptions{Quality: 85})
	if err != nil {
		t.Fatal(err)
	}
	if f, _ := DetectFormat(data); f != FormatJPEG {
		t.Error("output is not JPEG")
	}
	// baseline frame (SOF0), never progressive (SOF2)
	if !bytes.Contains(data, []byte{0xFF, 0xC0}) || bytes.Contains(data, []byte{0xFF, 0xC2}) {
		t.Error("output is not a baseline JPEG")
	}
}

func TestEncodePNGPreservesAlpha(t *testing.T) {
	c := NewImagingCodec()
	src := makeGradient(20, 20, func(x, y int) uint8 { return uint8((x*13 + y*7) % 256) })
	data, err := c.EncodePNG(&PixelBuffer{Image: src}, PNGOptions{CompressionLevel: png.BestCompression, Optimize: true})
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := c.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	got := toNRGBA(decoded.Image)
	for i := 3; i < len(src.Pix); i += 4 {
		if got.Pix[i] != src.Pix[i] {
			t.Fatalf("alpha differs at byte %d: %d != %d", i, got.Pix[i], src.Pix[i])
		}
	}
}

func TestFlattenOntoWhite(t *testing.T) {
	c := NewImagingCodec()
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	copy(src.Pix, []uint8{0, 0, 0, 0, 255, 0, 0, 255})

	out := c.Flatten(&PixelBuffer{Image: src, HasAlpha: true}, color.White)
	if out.HasAlpha || out.Transparent() {
		t.Error("flattened buffer should be opaque")
	}
	flat := toNRGBA(out.Image)
	if flat.Pix[0] != 255 || flat.Pix[1] != 255 || flat.Pix[2] != 255 || flat.Pix[3] != 255 {
		t.Errorf("transparent pixel should become white, got %v", flat.Pix[:4])
	}
	if flat.Pix[4] != 255 || flat.Pix[5] != 0 || flat.Pix[6] != 0 {
		t.Errorf("opaque pixel should be kept, got %v", flat.Pix[4:8])
	}
}

// ── Alpha sampling ──────────────────────────────────────────────────────────

func TestSampleAlpha(t *testing.T) {
	c := NewImagingCodec()
	img := makeGradient(10, 10, func(x, y int) uint8 { return uint8(y*10 + x) })
	buf := &PixelBuffer{Image: img}

	all := c.SampleAlpha(buf, 1)
	if len(all) != 100 {
		t.Fatalf("stride 1 sampled %d, want 100", len(all))
	}
	every7 := c.SampleAlpha(buf, 7)
	if len(every7) != 15 {
		t.Fatalf("stride 7 sampled %d, want 15", len(every7))
	}
	for i, a := range every7 {
		if int(a) != i*7 {
			t.Errorf("sample %d = %d, want %d", i, a, i*7)
		}
	}
	if got := c.SampleAlpha(buf, 0); len(got) != 100 {
		t.Errorf("stride 0 should behave like 1, got %d samples", len(got))
	}
}
