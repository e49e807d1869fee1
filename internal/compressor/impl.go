package compressor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"imgsqueeze/internal/codec"
	"imgsqueeze/internal/logger"

	"github.com/sirupsen/logrus"
)

// Engine is the default implementation of the Compressor interface.
type Engine struct {
	codec  codec.Codec
	logger *logrus.Logger
}

// NewEngine creates a new Engine backed by c.
func NewEngine(c codec.Codec, log *logrus.Logger) *Engine {
	return &Engine{codec: c, logger: log}
}

// NewDefaultEngine creates an Engine using the imaging codec.
func NewDefaultEngine(log *logrus.Logger) *Engine {
	return NewEngine(codec.NewImagingCodec(), log)
}

// Compress decides and, unless req.DryRun is set, persists the smallest
// acceptable encoding of the image at path.
func (e *Engine) Compress(ctx context.Context, path string, req Request) Result {
	res := Result{
		InputPath: path,
		StartedAt: time.Now(),
	}
	log := logger.WithFileOperation(e.logger, path, "compress")

	fail := func(action Action, err error) Result {
		res.Action = action
		res.Message = err.Error()
		res.Error = err
		res.Success = false
		res.FinishedAt = time.Now()
		if action == ActionError {
			log.Errorf("Compression failed: %v", err)
		} else {
			log.Infof("Skipped: %v", err)
		}
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(ActionError, err)
	}
	if err := req.Validate(); err != nil {
		return fail(ActionError, fmt.Errorf("invalid request: %w", err))
	}

	asset, err := StatAsset(path)
	res.OriginalSize = asset.Size
	if err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			return fail(ActionSkipped, err)
		}
		return fail(ActionError, err)
	}
	format := asset.Format
	res.InputFormat = format

	if skip, human := CheckEligibility(res.OriginalSize, req.MinSizeBytes); skip {
		res.Action = ActionSkipped
		res.Message = fmt.Sprintf("%s - smaller than %s", human, HumanSize(req.MinSizeBytes))
		res.Success = true
		res.FinishedAt = time.Now()
		log.Debugf("Skipped: %s", res.Message)
		return res
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail(ActionError, fmt.Errorf("read error: %w", err))
	}

	d, err := e.Decide(data, format, req)
	if err != nil {
		return fail(ActionError, err)
	}
	res.OutputFormat = d.Format
	res.Strategy = d.Strategy
	res.Candidates = d.Candidates
	res.Assessment = d.Assessment
	res.Width, res.Height = d.Width, d.Height
	res.Resized = d.Resized

	outPath := outputPath(path, format, d.Format)
	res.OutputPath = outPath
	if outPath != path {
		if _, err := os.Stat(outPath); err == nil {
			return fail(ActionError, fmt.Errorf("%w: %s", ErrOutputConflict, outPath))
		}
	}

	if req.DryRun {
		res.Action = ActionPlanned
		res.EstimatedSize = int64(len(d.Data))
		res.PercentageSaved = ReductionPercent(res.OriginalSize, res.EstimatedSize)
		res.Message = fmt.Sprintf("would write %s via %s", filepath.Base(outPath), d.Strategy)
		res.Success = true
		res.FinishedAt = time.Now()
		log.Infof("DRY-RUN: %s", res.Message)
		return res
	}

	written, err := writeOutput(outPath, d.Data, asset.Mode)
	if err != nil {
		return fail(ActionError, err)
	}
	res.CompressedSize = written
	res.PercentageSaved = ReductionPercent(res.OriginalSize, written)

	res.Action = ActionCompressed
	res.Message = "Image compressed"
	if outPath != path {
		res.Action = ActionConverted
		res.Message = fmt.Sprintf("Converted %s to %s", format, d.Format)
		if err := os.Remove(path); err != nil {
			res.Message = fmt.Sprintf("%s; original not removed: %v", res.Message, err)
			log.Warnf("Could not remove original after conversion: %v", err)
		}
	}

	res.Success = true
	res.FinishedAt = time.Now()
	log.WithFields(logrus.Fields{
		"strategy":   res.Strategy,
		"original":   res.OriginalSize,
		"compressed": res.CompressedSize,
		"reduction":  fmt.Sprintf("%.1f%%", res.PercentageSaved),
	}).Info(res.Message)
	return res
}

// outputPath keeps the input path unless the container changed, in which case
// the extension is replaced.
func outputPath(path string, in, out codec.Format) string {
	if in == out {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + out.Extension()
}

// writeOutput persists data through a temporary sibling and a rename, then
// confirms the result is non-empty.
func writeOutput(path string, data []byte, perm os.FileMode) (int64, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: refusing to write empty output to %s", ErrWrite, path)
	}
	if perm == 0 {
		perm = 0644
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("%w: write tmp file: %v", ErrWrite, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("%w: rename: %v", ErrWrite, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: stat output: %v", ErrWrite, err)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("%w: output %s is empty", ErrWrite, path)
	}
	return info.Size(), nil
}
