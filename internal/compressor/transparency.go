package compressor

import "imgsqueeze/internal/codec"

// SampleStride returns the pixel step that visits at most sampleCap pixels of
// an image with totalPixels pixels.
func SampleStride(totalPixels, sampleCap int) int {
	if sampleCap <= 0 || totalPixels <= sampleCap {
		return 1
	}
	return (totalPixels + sampleCap - 1) / sampleCap
}

// EstimateTransparencyRatio returns the fraction of alpha samples below 255.
func EstimateTransparencyRatio(alpha []uint8) float64 {
	if len(alpha) == 0 {
		return 0
	}
	translucent := 0
	for _, a := range alpha {
		if a < 255 {
			translucent++
		}
	}
	return float64(translucent) / float64(len(alpha))
}

// assess samples the alpha channel of buf.
func assess(c codec.Codec, buf *codec.PixelBuffer, sampleCap int) *Assessment {
	stride := SampleStride(buf.Width()*buf.Height(), sampleCap)
	samples := c.SampleAlpha(buf, stride)
	return &Assessment{
		Ratio:   EstimateTransparencyRatio(samples),
		Samples: len(samples),
		Stride:  stride,
	}
}
