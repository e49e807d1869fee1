package compressor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"imgsqueeze/internal/codec"
)

var (
	// ErrNotFound is returned when the input path does not exist or is not a regular file.
	ErrNotFound = errors.New("file not found")
	// ErrUnsupportedFormat is returned for extensions outside jpg, jpeg and png.
	ErrUnsupportedFormat = codec.ErrUnsupportedFormat
	// ErrDecode is returned when the input cannot be decoded.
	ErrDecode = codec.ErrDecode
	// ErrEncode is returned when no output encoding could be produced.
	ErrEncode = codec.ErrEncode
	// ErrWrite is returned when the output could not be persisted.
	ErrWrite = errors.New("write error")
	// ErrOutputConflict is returned when a format change would overwrite an unrelated file.
	ErrOutputConflict = errors.New("output path already exists")
)

// Asset is an image file selected for processing.
type Asset struct {
	Path   string
	Size   int64
	Mode   fs.FileMode
	Format codec.Format
}

// StatAsset describes the file at path. Size and Mode are filled in even when
// the extension is not supported.
func StatAsset(path string) (Asset, error) {
	asset := Asset{Path: path}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return asset, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return asset, fmt.Errorf("stat error: %w", err)
	}
	if !info.Mode().IsRegular() {
		return asset, fmt.Errorf("%w: %s is not a regular file", ErrNotFound, path)
	}
	asset.Size = info.Size()
	asset.Mode = info.Mode().Perm()

	format, err := codec.FormatFromExtension(path)
	if err != nil {
		return asset, err
	}
	asset.Format = format
	return asset, nil
}

// Request defines the parameters for compressing one image.
type Request struct {
	Quality               int
	MaxDimension          int   // 0 disables resizing
	MinSizeBytes          int64 // files below this size are skipped
	TransparencyThreshold float64
	AlphaSampleCap        int
	PaletteIterations     int // 0 uses the codec default
	DryRun                bool
}

// DefaultRequest returns the request used when nothing is configured.
func DefaultRequest() Request {
	return Request{
		Quality:               85,
		MaxDimension:          2048,
		MinSizeBytes:          1 << 20,
		TransparencyThreshold: 0.05,
		AlphaSampleCap:        10000,
	}
}

// Validate checks the request bounds.
func (r Request) Validate() error {
	if r.Quality < 1 || r.Quality > 100 {
		return fmt.Errorf("quality %d out of range 1-100", r.Quality)
	}
	if r.MaxDimension < 0 {
		return fmt.Errorf("max dimension %d must be >= 0", r.MaxDimension)
	}
	if r.MinSizeBytes < 0 {
		return fmt.Errorf("minimum size %d must be >= 0", r.MinSizeBytes)
	}
	if r.TransparencyThreshold < 0 || r.TransparencyThreshold > 1 {
		return fmt.Errorf("transparency threshold %g out of range 0-1", r.TransparencyThreshold)
	}
	if r.AlphaSampleCap <= 0 {
		return fmt.Errorf("alpha sample cap %d must be positive", r.AlphaSampleCap)
	}
	if r.PaletteIterations < 0 {
		return fmt.Errorf("palette iterations %d must be >= 0", r.PaletteIterations)
	}
	return nil
}

// Action is what happened to a file.
type Action string

const (
	ActionCompressed Action = "compressed" // rewritten in place
	ActionConverted  Action = "converted"  // rewritten under a new extension, original removed
	ActionSkipped    Action = "skipped"
	ActionPlanned    Action = "planned" // dry run
	ActionError      Action = "error"
)

// Strategy names an encoding path of the decision procedure.
type Strategy string

const (
	StrategyJPEG        Strategy = "jpeg"
	StrategyFlattenJPEG Strategy = "flatten-jpeg"
	StrategyDirect      Strategy = "direct"
	StrategyQuantized   Strategy = "quantized"
)

// Candidate is one fully encoded alternative considered for an image.
type Candidate struct {
	Strategy Strategy
	Size     int
	Err      error
}

// Assessment is the sampled transparency of an image.
type Assessment struct {
	Ratio   float64
	Samples int
	Stride  int
}

// Result describes the result of compressing a single file.
type Result struct {
	InputPath    string
	OutputPath   string
	InputFormat  codec.Format
	OutputFormat codec.Format

	OriginalSize int64
	// CompressedSize is set only once the output is persisted and non-empty.
	CompressedSize int64
	// EstimatedSize is the winning candidate size of a dry run.
	EstimatedSize   int64
	PercentageSaved float64

	Strategy   Strategy
	Candidates []Candidate
	Assessment *Assessment
	Width      int
	Height     int
	Resized    bool

	Action     Action
	Message    string
	Success    bool
	StartedAt  time.Time
	FinishedAt time.Time
	Error      error
}

// FormatChanged reports whether the output container differs from the input.
func (r Result) FormatChanged() bool {
	return r.OutputFormat != codec.FormatUnknown && r.InputFormat != r.OutputFormat
}

// Compressor compresses a single image file.
type Compressor interface {
	// Compress never panics on bad input; failures are reported in the Result.
	Compress(ctx context.Context, path string, req Request) Result
}
