package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"imgsqueeze/internal/backup"
	"imgsqueeze/internal/compressor"
	"imgsqueeze/internal/config"
	"imgsqueeze/internal/enhancer"
	"imgsqueeze/internal/statistics"

	"github.com/sirupsen/logrus"
)

// ResultHookFunc receives each per-file outcome as soon as it is known.
type ResultHookFunc func(res compressor.Result)

// EnhanceHookFunc receives each per-file enhancement outcome.
type EnhanceHookFunc func(res enhancer.Result)

// Runner walks a directory and applies the compression engine or an
// enhancement pipeline to every image in it, one file at a time.
type Runner struct {
	config     *config.Config
	logger     *logrus.Logger
	stats      *statistics.Statistics
	compressor compressor.Compressor
	guard      backup.Guard // nil disables backups

	onResult  ResultHookFunc
	onEnhance EnhanceHookFunc
}

// FileInfo contains information about a discovered image file.
type FileInfo struct {
	Path      string
	Name      string
	Size      int64
	ModTime   time.Time
	Extension string
}

// NewRunner returns a new Runner.
func NewRunner(
	cfg *config.Config,
	logger *logrus.Logger,
	stats *statistics.Statistics,
	comp compressor.Compressor,
	guard backup.Guard,
) *Runner {
	return &Runner{
		config:     cfg,
		logger:     logger,
		stats:      stats,
		compressor: comp,
		guard:      guard,
	}
}

// OnResult installs a hook called after every compressed file.
func (r *Runner) OnResult(hook ResultHookFunc) {
	r.onResult = hook
}

// OnEnhance installs a hook called after every enhanced file.
func (r *Runner) OnEnhance(hook EnhanceHookFunc) {
	r.onEnhance = hook
}

// NewRequest derives the per-file compression request from the configuration.
func NewRequest(cfg *config.Config) compressor.Request {
	return compressor.Request{
		Quality:               cfg.Compression.Quality,
		MaxDimension:          cfg.Compression.MaxDimension,
		MinSizeBytes:          cfg.Compression.MinSizeBytes,
		TransparencyThreshold: cfg.Compression.TransparencyThreshold,
		AlphaSampleCap:        cfg.Compression.AlphaSampleCap,
		PaletteIterations:     cfg.Compression.PaletteIterations,
		DryRun:                cfg.Security.DryRun,
	}
}

// Compress processes every image in dir. Per-file failures are recorded in the
// results; only an unreadable directory or cancellation returns an error.
func (r *Runner) Compress(ctx context.Context, dir string) ([]compressor.Result, error) {
	r.logger.Infof("Starting compression of %s", dir)
	r.stats.StartTime = time.Now()
	defer r.stats.Finalize()

	files, err := r.discoverFiles(dir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	if len(files) == 0 {
		r.logger.Info("No image files found to compress")
		return nil, nil
	}
	r.logger.Infof("Found %d image files to process", len(files))

	req := NewRequest(r.config)
	if req.DryRun {
		r.logger.Info("Running in dry-run mode - no files will be written")
	}

	eligible := r.eligibleFiles(files, req.MinSizeBytes)
	if r.guard != nil && !req.DryRun {
		if err := r.backupFiles(ctx, eligible); err != nil {
			return nil, err
		}
	}

	results := make([]compressor.Result, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			r.logger.Warnf("Compression interrupted: %v", err)
			return results, err
		}
		res := r.compressor.Compress(ctx, file.Path, req)
		r.record(res)
		results = append(results, res)
		if r.onResult != nil {
			r.onResult(res)
		}
	}

	r.logger.Info("Compression completed")
	return results, nil
}

// discoverFiles lists the supported images directly inside dir, sorted by
// name. Subdirectories and hidden files are ignored, and so are sibling
// backups when skipBackups is set.
func (r *Runner) discoverFiles(dir string, skipBackups bool) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || (skipBackups && backup.IsSiblingBackup(name)) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if !r.config.IsImageExtension(ext) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			r.logger.Warnf("Error accessing path %s: %v", name, err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		files = append(files, FileInfo{
			Path:      filepath.Join(dir, name),
			Name:      name,
			Size:      info.Size(),
			ModTime:   info.ModTime(),
			Extension: ext,
		})
		r.stats.IncrementFilesFound()

		if r.config.Security.MaxFilesPerRun > 0 && len(files) >= r.config.Security.MaxFilesPerRun {
			r.logger.Infof("Reached maximum files limit (%d), stopping discovery", r.config.Security.MaxFilesPerRun)
			break
		}
	}
	return files, nil
}

// eligibleFiles returns the files the engine will not skip for size.
func (r *Runner) eligibleFiles(files []FileInfo, threshold int64) []FileInfo {
	var eligible []FileInfo
	for _, file := range files {
		if skip, _ := compressor.CheckEligibility(file.Size, threshold); !skip {
			eligible = append(eligible, file)
		}
	}
	return eligible
}

// backupFiles copies every eligible original before anything is rewritten.
// A failed backup is logged and counted; the file is still compressed.
func (r *Runner) backupFiles(ctx context.Context, files []FileInfo) error {
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst, err := r.guard.Backup(ctx, file.Path)
		if err != nil {
			r.logger.Warnf("Could not create backup for %s: %v", file.Path, err)
			r.stats.IncrementBackupFailures()
			r.stats.AddError(file.Path, "backup", err.Error())
			continue
		}
		r.stats.IncrementBackupsCreated()
		r.logger.Debugf("Backed up %s -> %s", file.Path, dst)
	}
	return nil
}

// record folds one result into the statistics.
func (r *Runner) record(res compressor.Result) {
	r.stats.IncrementFilesProcessed()

	switch res.Action {
	case compressor.ActionCompressed, compressor.ActionConverted:
		if res.Action == compressor.ActionConverted {
			r.stats.IncrementFilesConverted()
		} else {
			r.stats.IncrementFilesCompressed()
		}
		r.stats.AddBytes(res.OriginalSize, res.CompressedSize)
		r.stats.IncrementStrategy(string(res.Strategy))
	case compressor.ActionPlanned:
		r.stats.IncrementFilesPlanned()
		r.stats.AddBytes(res.OriginalSize, res.EstimatedSize)
		r.stats.IncrementStrategy(string(res.Strategy))
	case compressor.ActionSkipped:
		r.stats.IncrementFilesSkipped()
	}

	if res.Resized {
		r.stats.IncrementFilesResized()
	}
	if !res.Success {
		r.stats.IncrementFilesWithErrors()
		r.stats.AddError(res.InputPath, "compress", res.Message)
	}
}

// Enhance applies the pipeline to every image in dir. Output goes to the
// configured enhanced directory, or replaces the originals when overwrite is
// set, after a sibling backup.
func (r *Runner) Enhance(ctx context.Context, dir string, e *enhancer.Enhancer, p *enhancer.Pipeline) ([]enhancer.Result, error) {
	r.logger.Infof("Starting %s enhancement of %s", p.Name, dir)
	r.stats.StartTime = time.Now()
	defer r.stats.Finalize()

	files, err := r.discoverFiles(dir, true)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	if len(files) == 0 {
		r.logger.Info("No image files found to enhance")
		return nil, nil
	}

	cfg := r.config.Enhancement
	outDir := r.config.EnhancedDirectory(dir)

	results := make([]enhancer.Result, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			r.logger.Warnf("Enhancement interrupted: %v", err)
			return results, err
		}
		r.stats.IncrementFilesProcessed()

		dst := filepath.Join(outDir, file.Name)
		var backupPath string
		if cfg.Overwrite {
			dst = file.Path
			if r.guard != nil && !r.config.Security.DryRun {
				var err error
				if backupPath, err = r.guard.Backup(ctx, file.Path); err != nil {
					r.logger.Warnf("Could not create backup for %s: %v", file.Path, err)
					r.stats.IncrementBackupFailures()
					r.stats.AddError(file.Path, "backup", err.Error())
				} else {
					r.stats.IncrementBackupsCreated()
				}
			}
		}

		var res enhancer.Result
		if r.config.Security.DryRun {
			r.logger.Infof("DRY-RUN: Would enhance %s -> %s", file.Path, dst)
			res = enhancer.Result{InputPath: file.Path, OutputPath: dst, Preset: p.Name, OriginalSize: file.Size, Success: true}
			r.stats.IncrementFilesPlanned()
		} else {
			res = e.EnhanceFile(ctx, p, file.Path, dst, cfg.Quality)
			res.BackupPath = backupPath
			if res.Success {
				r.stats.IncrementFilesEnhanced()
			} else {
				r.stats.IncrementFilesWithErrors()
				r.stats.AddError(file.Path, "enhance", res.Error.Error())
			}
		}

		results = append(results, res)
		if r.onEnhance != nil {
			r.onEnhance(res)
		}
	}

	r.logger.Info("Enhancement completed")
	return results, nil
}
