// Package enhancer applies cosmetic filter chains (brightness, contrast,
// saturation, sharpening, denoising, shading, glow, vignette) to images.
// Every step is a gift.Filter and none of them can fail.
package enhancer

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/disintegration/gift"
)

// ErrUnknownPreset is returned for preset names without a pipeline.
var ErrUnknownPreset = errors.New("unknown enhancement preset")

const (
	PresetNatural = "natural"
	PresetVivid   = "vivid"
	PresetScenic  = "scenic"
)

var presets = map[string]func() []gift.Filter{
	// Mild global boost.
	PresetNatural: func() []gift.Filter {
		return []gift.Filter{
			Multiply(1.1),
			gift.Contrast(15),
			gift.Saturation(10),
			gift.UnsharpMask(1.0, 0.2, 0),
		}
	},
	// Local contrast, light denoise and an unsharp mask.
	PresetVivid: func() []gift.Filter {
		return []gift.Filter{
			AutoContrast(1),
			gift.Median(3, false),
			gift.UnsharpMask(2.0, 0.5, 0),
		}
	},
	PresetScenic: func() []gift.Filter {
		return []gift.Filter{
			AutoContrast(2),
			Shade(0.3, 0.7),
			Multiply(1.25),
			gift.Contrast(30),
			gift.Saturation(35),
			Glow(3, 0.08),
			gift.UnsharpMask(1.0, 0.5, 0),
			gift.UnsharpMask(2.0, 1.5, 3.0/255),
			Vignette(0.12),
			Shade(0.3, 0.7),
		}
	},
}

// Presets returns the known preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pipeline is an ordered chain of filters.
type Pipeline struct {
	Name string
	g    *gift.GIFT
}

// NewPipeline builds a pipeline from filters applied in order.
func NewPipeline(name string, filters ...gift.Filter) *Pipeline {
	return &Pipeline{Name: name, g: gift.New(filters...)}
}

// Preset returns the named pipeline.
func Preset(name string) (*Pipeline, error) {
	build, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
	}
	return NewPipeline(name, build()...), nil
}

// Len returns the number of filters in the chain.
func (p *Pipeline) Len() int {
	return p.g.Len()
}

// Apply runs the chain over src and returns a new image.
func (p *Pipeline) Apply(src image.Image) *image.NRGBA {
	dst := image.NewNRGBA(p.g.Bounds(src.Bounds()))
	p.g.Draw(dst, src)
	return dst
}
