package enhancer

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"imgsqueeze/internal/codec"
	"imgsqueeze/internal/logger"

	"github.com/sirupsen/logrus"
)

// ErrWrite is returned when an enhanced image could not be persisted.
var ErrWrite = errors.New("write error")

// Result describes the enhancement of a single file.
type Result struct {
	InputPath    string
	OutputPath   string
	BackupPath   string
	Preset       string
	OriginalSize int64
	OutputSize   int64
	Success      bool
	Error        error
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Enhancer runs a Pipeline over image files.
type Enhancer struct {
	codec  codec.Codec
	logger *logrus.Logger
}

// NewEnhancer creates a new Enhancer backed by c.
func NewEnhancer(c codec.Codec, log *logrus.Logger) *Enhancer {
	return &Enhancer{codec: c, logger: log}
}

// EnhanceFile decodes src, applies p and writes the result to dst in the
// container of src. JPEG output uses quality; PNG output is lossless.
// src and dst may be the same path.
func (e *Enhancer) EnhanceFile(ctx context.Context, p *Pipeline, src, dst string, quality int) Result {
	res := Result{
		InputPath:  src,
		OutputPath: dst,
		Preset:     p.Name,
		StartedAt:  time.Now(),
	}
	log := logger.WithFileOperation(e.logger, src, "enhance")

	fail := func(err error) Result {
		res.Error = err
		res.Success = false
		res.FinishedAt = time.Now()
		log.Errorf("Enhancement failed: %v", err)
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	format, err := codec.FormatFromExtension(src)
	if err != nil {
		return fail(err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fail(fmt.Errorf("read error: %w", err))
	}
	res.OriginalSize = int64(len(data))

	buf, err := e.codec.Decode(data)
	if err != nil {
		return fail(err)
	}
	buf = e.codec.Normalize(buf)

	out := *buf
	out.Image = p.Apply(buf.Image)

	var encoded []byte
	switch format {
	case codec.FormatJPEG:
		encoded, err = e.codec.EncodeJPEG(&out, codec.JPEGOptions{Quality: quality})
	default:
		encoded, err = e.codec.EncodePNG(&out, codec.PNGOptions{CompressionLevel: png.BestCompression})
	}
	if err != nil {
		return fail(err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrWrite, err))
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0644); err != nil {
		_ = os.Remove(tmp)
		return fail(fmt.Errorf("%w: %v", ErrWrite, err))
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fail(fmt.Errorf("%w: %v", ErrWrite, err))
	}

	res.OutputSize = int64(len(encoded))
	res.Success = true
	res.FinishedAt = time.Now()
	log.WithFields(logrus.Fields{
		"preset": p.Name,
		"output": dst,
		"steps":  p.Len(),
	}).Info("Image enhanced")
	return res
}
