package compressor

import (
	"fmt"
	"image/color"
	"image/png"

	"imgsqueeze/internal/codec"
)

// Decision is the outcome of the strategy selector for one decoded image.
type Decision struct {
	Format     codec.Format
	Strategy   Strategy
	Data       []byte
	Candidates []Candidate
	Assessment *Assessment
	Width      int
	Height     int
	Resized    bool
}

// pngStrategy prepares a buffer for lossless encoding.
type pngStrategy struct {
	name    Strategy
	prepare func(buf *codec.PixelBuffer) (*codec.PixelBuffer, error)
}

// Decide runs the pre-pass and the format strategy selector for an image of
// the given container format. It does not touch the filesystem.
func (e *Engine) Decide(data []byte, format codec.Format, req Request) (*Decision, error) {
	buf, err := e.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	if buf.Format != format {
		return nil, fmt.Errorf("%w: %s content in a %s file", ErrDecode, buf.Format, format)
	}

	buf = e.codec.Normalize(buf)
	w, h := buf.Width(), buf.Height()
	buf = e.codec.Resize(buf, req.MaxDimension)

	var d *Decision
	switch format {
	case codec.FormatJPEG:
		d, err = e.encodeJPEG(buf, req, StrategyJPEG)
	case codec.FormatPNG:
		d, err = e.decidePNG(buf, req)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	d.Width, d.Height = buf.Width(), buf.Height()
	d.Resized = d.Width != w || d.Height != h
	return d, nil
}

// decidePNG branches on transparency: opaque images and images whose
// transparency is incidental become JPEG, the rest stay PNG.
func (e *Engine) decidePNG(buf *codec.PixelBuffer, req Request) (*Decision, error) {
	if !buf.Transparent() {
		return e.encodeJPEG(buf, req, StrategyJPEG)
	}

	a := assess(e.codec, buf, req.AlphaSampleCap)
	e.logger.Debugf("transparency ratio %.4f over %d samples (stride %d)", a.Ratio, a.Samples, a.Stride)

	var (
		d   *Decision
		err error
	)
	if a.Ratio < req.TransparencyThreshold {
		d, err = e.encodeJPEG(buf, req, StrategyFlattenJPEG)
	} else {
		d, err = e.encodeSmallestPNG(buf, req)
	}
	if err != nil {
		return nil, err
	}
	d.Assessment = a
	return d, nil
}

// encodeJPEG is the single JPEG strategy. Transparent input is flattened onto
// white first.
func (e *Engine) encodeJPEG(buf *codec.PixelBuffer, req Request, strategy Strategy) (*Decision, error) {
	if buf.Transparent() {
		buf = e.codec.Flatten(buf, color.White)
	}
	data, err := e.codec.EncodeJPEG(buf, codec.JPEGOptions{Quality: req.Quality})
	if err != nil {
		return nil, err
	}
	return &Decision{
		Format:     codec.FormatJPEG,
		Strategy:   strategy,
		Data:       data,
		Candidates: []Candidate{{Strategy: strategy, Size: len(data)}},
	}, nil
}

// encodeSmallestPNG materializes every lossless strategy and keeps the
// smallest. On a tie the earlier strategy wins. A failing strategy is
// dropped; the image fails only when all of them do.
func (e *Engine) encodeSmallestPNG(buf *codec.PixelBuffer, req Request) (*Decision, error) {
	strategies := []pngStrategy{
		{
			name:    StrategyDirect,
			prepare: func(b *codec.PixelBuffer) (*codec.PixelBuffer, error) { return b, nil },
		},
		{
			name: StrategyQuantized,
			prepare: func(b *codec.PixelBuffer) (*codec.PixelBuffer, error) {
				return e.codec.Quantize(b, req.PaletteIterations)
			},
		},
	}

	d := &Decision{Format: codec.FormatPNG}
	var firstErr error
	for _, s := range strategies {
		candidate := Candidate{Strategy: s.name}

		data, err := e.runPNGStrategy(buf, s)
		if err != nil {
			e.logger.Debugf("png strategy %s failed: %v", s.name, err)
			candidate.Err = err
			if firstErr == nil {
				firstErr = err
			}
			d.Candidates = append(d.Candidates, candidate)
			continue
		}

		candidate.Size = len(data)
		d.Candidates = append(d.Candidates, candidate)
		if d.Data == nil || len(data) < len(d.Data) {
			d.Data = data
			d.Strategy = s.name
		}
	}

	if d.Data == nil {
		return nil, fmt.Errorf("%w: every png strategy failed: %v", ErrEncode, firstErr)
	}
	return d, nil
}

func (e *Engine) runPNGStrategy(buf *codec.PixelBuffer, s pngStrategy) ([]byte, error) {
	prepared, err := s.prepare(buf)
	if err != nil {
		return nil, err
	}
	return e.codec.EncodePNG(prepared, codec.PNGOptions{
		CompressionLevel: png.BestCompression,
		Optimize:         true,
	})
}
