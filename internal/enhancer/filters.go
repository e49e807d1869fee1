package enhancer

import (
	"image"
	"image/draw"
	"math"

	"github.com/disintegration/gift"
	"github.com/disintegration/imaging"
)

// Multiply scales the color channels by factor and clamps. Alpha is kept.
func Multiply(factor float32) gift.Filter {
	return gift.ColorFunc(func(r0, g0, b0, a0 float32) (r, g, b, a float32) {
		return clamp01(r0 * factor), clamp01(g0 * factor), clamp01(b0 * factor), a0
	})
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// nrgbaFilter adapts a whole-image NRGBA transform to gift.Filter.
type nrgbaFilter struct {
	apply func(src *image.NRGBA) *image.NRGBA
}

func (f nrgbaFilter) Bounds(srcBounds image.Rectangle) image.Rectangle {
	return image.Rect(0, 0, srcBounds.Dx(), srcBounds.Dy())
}

func (f nrgbaFilter) Draw(dst draw.Image, src image.Image, options *gift.Options) {
	out := f.apply(imaging.Clone(src))
	draw.Draw(dst, dst.Bounds(), out, out.Bounds().Min, draw.Src)
}

// Shade darkens pixels with their distance from the center: the factor is
// 1 - dist/maxDist*strength, never below floor.
func Shade(strength, floor float64) gift.Filter {
	return nrgbaFilter{apply: func(img *image.NRGBA) *image.NRGBA {
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		cx, cy := w/2, h/2
		maxDist := math.Hypot(float64(cx), float64(cy))
		if maxDist == 0 {
			return img
		}
		for y := 0; y < h; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+w*4]
			for x := 0; x < w; x++ {
				f := 1 - math.Hypot(float64(x-cx), float64(y-cy))/maxDist*strength
				if f < floor {
					f = floor
				} else if f > 1 {
					f = 1
				}
				for c := 0; c < 3; c++ {
					row[x*4+c] = uint8(float64(row[x*4+c]) * f)
				}
			}
		}
		return img
	}}
}

// Vignette is a gentle Shade clamped at 85%.
func Vignette(strength float64) gift.Filter {
	return Shade(strength, 0.85)
}

// AutoContrast stretches each color channel so the darkest and brightest
// cutoff percent of pixels map to 0 and 255.
func AutoContrast(cutoff float64) gift.Filter {
	return nrgbaFilter{apply: func(img *image.NRGBA) *image.NRGBA {
		var hist [3][256]int
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		for y := 0; y < h; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+w*4]
			for x := 0; x < w; x++ {
				for c := 0; c < 3; c++ {
					hist[c][row[x*4+c]]++
				}
			}
		}

		total := w * h
		cut := int(float64(total) * cutoff / 100)
		var lut [3][256]uint8
		for c := 0; c < 3; c++ {
			lo, hi := bounds(hist[c][:], cut)
			for v := 0; v < 256; v++ {
				switch {
				case hi <= lo:
					lut[c][v] = uint8(v)
				case v <= lo:
					lut[c][v] = 0
				case v >= hi:
					lut[c][v] = 255
				default:
					lut[c][v] = uint8(float64(v-lo)*255/float64(hi-lo) + 0.5)
				}
			}
		}

		for y := 0; y < h; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+w*4]
			for x := 0; x < w; x++ {
				for c := 0; c < 3; c++ {
					row[x*4+c] = lut[c][row[x*4+c]]
				}
			}
		}
		return img
	}}
}

// bounds returns the lowest and highest levels left after discarding cut
// pixels from each end of the histogram.
func bounds(hist []int, cut int) (lo, hi int) {
	n := 0
	for lo = 0; lo < 255; lo++ {
		n += hist[lo]
		if n > cut {
			break
		}
	}
	n = 0
	for hi = 255; hi > 0; hi-- {
		n += hist[hi]
		if n > cut {
			break
		}
	}
	return lo, hi
}

// Glow blends a Gaussian-blurred copy over the image at the given intensity.
func Glow(sigma, intensity float64) gift.Filter {
	return nrgbaFilter{apply: func(img *image.NRGBA) *image.NRGBA {
		blurred := imaging.Blur(img, sigma)
		return imaging.Overlay(img, blurred, image.Pt(0, 0), intensity)
	}}
}
