package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"imgsqueeze/internal/backup"
	"imgsqueeze/internal/batch"
	"imgsqueeze/internal/codec"
	"imgsqueeze/internal/compressor"
	"imgsqueeze/internal/config"
	"imgsqueeze/internal/enhancer"
	"imgsqueeze/internal/logger"
	"imgsqueeze/internal/statistics"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	verbose      bool
	quiet        bool
	dryRun       bool
	quality      int
	maxDimension int
	minSizeMB    float64
	withBackup   bool
	noBackup     bool
	preset       string
	overwrite    bool
)

// rootCmd compresses every image in a directory.
var rootCmd = &cobra.Command{
	Use:   "imgsqueeze [directory]",
	Short: "Compress JPEG and PNG images in a directory",
	Long: `imgsqueeze shrinks the JPEG and PNG files of a directory in place.

For every image it picks the smallest acceptable encoding:
- JPEGs are re-encoded at the configured quality
- PNGs without transparency become JPEGs
- PNGs with little transparency are flattened onto white and become JPEGs
- other PNGs stay PNG, as the smaller of a lossless and a palette encoding

Images larger than --max-dimension are downscaled first and files smaller
than --min-size-mb are left alone. Originals are copied to a backups folder
before anything is rewritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompress(cmd, args, false)
	},
}

// scanCmd shows what a compression run would do.
var scanCmd = &cobra.Command{
	Use:   "scan [directory]",
	Short: "Show planned compression results without writing files",
	Long: `Runs the full decision procedure in memory for every image and reports
the planned output file, strategy and estimated size. Nothing is written and no
backups are made.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompress(cmd, args, true)
	},
}

// inspectCmd prints what the engine sees in one file.
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show decoding, transparency and metadata details for one image",
	Long: `Decodes a single image and prints its container, dimensions, orientation,
alpha mode, sampled transparency ratio and the encoding the engine would pick.
When the exiftool binary is installed, selected metadata tags are shown too.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd, args[0])
	},
}

// enhanceCmd applies a filter preset to every image in a directory.
var enhanceCmd = &cobra.Command{
	Use:   "enhance [directory]",
	Short: "Apply an enhancement preset to every image in a directory",
	Long: `Applies one of the enhancement presets to every image:
- natural: mild brightness, contrast, saturation and sharpness boost
- vivid:   auto-contrast, median denoise and unsharp mask
- scenic:  shading, strong color boost, glow, sharpening and vignette

Results go to the enhanced/ subdirectory unless --overwrite is given, in which
case originals are kept as name.backup.ext next to the enhanced file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnhance(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	for _, cmd := range []*cobra.Command{rootCmd, scanCmd, inspectCmd} {
		cmd.Flags().IntVar(&quality, "quality", 85, "JPEG quality (1-100)")
		cmd.Flags().IntVar(&maxDimension, "max-dimension", 2048, "longest allowed side in pixels, 0 disables resizing")
		cmd.Flags().Float64Var(&minSizeMB, "min-size-mb", 1, "skip files smaller than this many megabytes")
	}
	rootCmd.Flags().BoolVar(&withBackup, "backup", true, "copy originals to the backup directory first")
	rootCmd.Flags().BoolVar(&noBackup, "no-backup", false, "do not back up originals")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "decide without writing files")

	enhanceCmd.Flags().StringVar(&preset, "preset", "natural", "enhancement preset ("+strings.Join(enhancer.Presets(), ", ")+")")
	enhanceCmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace originals, keeping name.backup.ext copies")
	enhanceCmd.Flags().IntVar(&quality, "quality", 95, "JPEG quality of enhanced images (1-100)")
	enhanceCmd.Flags().BoolVar(&dryRun, "dry-run", false, "list files without enhancing them")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(enhanceCmd)
}

// runCompress executes a compression run, or a plan-only scan.
func runCompress(cmd *cobra.Command, args []string, scan bool) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if scan {
		cfg.Security.DryRun = true
	}

	log := setupLogger(cfg)
	stats := statistics.NewStatistics()
	engine := compressor.NewDefaultEngine(log)

	var guard backup.Guard
	if cfg.Backup.Enabled && !cfg.Security.DryRun {
		guard = backup.NewDirGuard(cfg.BackupDirectory(cfg.SourceDirectory), log)
	}

	runner := batch.NewRunner(cfg, log, stats, engine, guard)
	if !quiet {
		runner.OnResult(printResult)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if scan {
		fmt.Fprintf(os.Stderr, "Scanning directory: %s\n", cfg.SourceDirectory)
	}
	if _, err := runner.Compress(ctx, cfg.SourceDirectory); err != nil {
		return fmt.Errorf("compression failed: %w", err)
	}

	if !quiet {
		if scan {
			fmt.Println("\n==================================================")
			fmt.Println("SCAN RESULTS")
			fmt.Println("==================================================")
		}
		fmt.Println("\n" + stats.GetSummary())
		fmt.Println("\n" + stats.GetStrategyBreakdown())
		if stats.GetFilesWithErrors() > 0 {
			fmt.Println(stats.GetErrorSummary())
		}
	}
	return nil
}

// printResult writes the one-line report of a file.
func printResult(res compressor.Result) {
	name := filepath.Base(res.InputPath)
	switch {
	case !res.Success:
		fmt.Printf("✗ %s: %s\n", name, res.Message)
	case res.Action == compressor.ActionSkipped:
		fmt.Printf("- %s: %s\n", name, res.Message)
	case res.Action == compressor.ActionPlanned:
		fmt.Printf("~ %s → %s / %s → ~%s (%.1f%% reduction, %s)\n",
			name, filepath.Base(res.OutputPath),
			compressor.HumanSize(res.OriginalSize), compressor.HumanSize(res.EstimatedSize),
			res.PercentageSaved, res.Strategy)
	default:
		if res.FormatChanged() {
			name = fmt.Sprintf("%s → %s", name, filepath.Base(res.OutputPath))
		}
		fmt.Printf("✓ %s / %s → %s (%.1f%% reduction)\n",
			name, compressor.HumanSize(res.OriginalSize), compressor.HumanSize(res.CompressedSize), res.PercentageSaved)
	}
}

// runInspect prints decode and decision details for one file.
func runInspect(cmd *cobra.Command, path string) error {
	if !fileExists(path) {
		return fmt.Errorf("file does not exist: %s", path)
	}

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyCompressionFlags(cmd, cfg)

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	format, err := codec.FormatFromExtension(path)
	if err != nil {
		return err
	}

	c := codec.NewImagingCodec()
	buf, err := c.Decode(data)
	if err != nil {
		return err
	}

	fmt.Printf("File:         %s\n", path)
	fmt.Printf("Size:         %s\n", compressor.HumanSize(int64(len(data))))
	fmt.Printf("Container:    %s (extension %s)\n", buf.Format, format)
	fmt.Printf("Dimensions:   %dx%d\n", buf.Width(), buf.Height())
	fmt.Printf("Orientation:  %d\n", buf.Orientation)
	fmt.Printf("Alpha:        channel=%v tRNS=%v\n", buf.HasAlpha, buf.HasTransparencyMeta)

	if buf.Transparent() {
		stride := compressor.SampleStride(buf.Width()*buf.Height(), cfg.Compression.AlphaSampleCap)
		samples := c.SampleAlpha(buf, stride)
		fmt.Printf("Transparency: %.2f%% of %d samples (stride %d)\n",
			compressor.EstimateTransparencyRatio(samples)*100, len(samples), stride)
	}

	req := batch.NewRequest(cfg)
	if skip, human := compressor.CheckEligibility(int64(len(data)), req.MinSizeBytes); skip {
		fmt.Printf("Decision:     skip (%s - smaller than %s)\n", human, compressor.HumanSize(req.MinSizeBytes))
	} else {
		engine := compressor.NewEngine(c, logger.Discard())
		d, err := engine.Decide(data, format, req)
		if err != nil {
			fmt.Printf("Decision:     error: %v\n", err)
		} else {
			fmt.Printf("Decision:     %s via %s, %dx%d, %s\n",
				d.Format, d.Strategy, d.Width, d.Height, compressor.HumanSize(int64(len(d.Data))))
			for _, cand := range d.Candidates {
				if cand.Err != nil {
					fmt.Printf("  candidate %-12s failed: %v\n", cand.Strategy, cand.Err)
					continue
				}
				fmt.Printf("  candidate %-12s %s\n", cand.Strategy, compressor.HumanSize(int64(cand.Size)))
			}
		}
	}

	meta, err := codec.NewMetadataProbe(codec.InspectFields...).Extract(path)
	if err != nil {
		fmt.Printf("Metadata:     %v\n", err)
		return nil
	}
	fmt.Println("Metadata:")
	for _, key := range meta.Keys() {
		fmt.Printf("  %-18s %v\n", key, meta[key])
	}
	return nil
}

// runEnhance applies the selected preset to a directory.
func runEnhance(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	p, err := enhancer.Preset(cfg.Enhancement.Preset)
	if err != nil {
		return err
	}

	log := setupLogger(cfg)
	stats := statistics.NewStatistics()

	var guard backup.Guard
	if cfg.Enhancement.Overwrite {
		guard = backup.NewSiblingGuard(log)
	}
	runner := batch.NewRunner(cfg, log, stats, compressor.NewDefaultEngine(log), guard)
	if !quiet {
		runner.OnEnhance(func(res enhancer.Result) {
			name := filepath.Base(res.InputPath)
			if !res.Success {
				fmt.Printf("✗ %s: %v\n", name, res.Error)
				return
			}
			fmt.Printf("✓ Enhanced: %s → %s\n", name, res.OutputPath)
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := enhancer.NewEnhancer(codec.NewImagingCodec(), log)
	results, err := runner.Enhance(ctx, cfg.SourceDirectory, e, p)
	if err != nil {
		return fmt.Errorf("enhancement failed: %w", err)
	}

	if !quiet {
		fmt.Printf("\nEnhancement complete: %d/%d images enhanced with preset %s\n",
			stats.FilesEnhanced, len(results), p.Name)
		if cfg.Enhancement.Overwrite {
			fmt.Println("Original images backed up with .backup extension")
		} else {
			fmt.Printf("Enhanced images saved to: %s\n", cfg.EnhancedDirectory(cfg.SourceDirectory))
		}
		if stats.GetFilesWithErrors() > 0 {
			fmt.Println(stats.GetErrorSummary())
		}
	}
	return nil
}

// loadConfig loads configuration and applies CLI overrides.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.SourceDirectory = args[0]
	}
	if cfg.SourceDirectory == "" {
		cfg.SourceDirectory = "."
	}
	if !dirExists(cfg.SourceDirectory) {
		return nil, fmt.Errorf("source directory does not exist: %s", cfg.SourceDirectory)
	}

	applyCompressionFlags(cmd, cfg)
	flags := cmd.Flags()
	if flags.Changed("dry-run") {
		cfg.Security.DryRun = dryRun
	}
	if flags.Changed("backup") {
		cfg.Backup.Enabled = withBackup
	}
	if flags.Changed("no-backup") && noBackup {
		cfg.Backup.Enabled = false
	}
	if flags.Changed("preset") {
		cfg.Enhancement.Preset = strings.ToLower(preset)
	}
	if flags.Changed("overwrite") {
		cfg.Enhancement.Overwrite = overwrite
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return cfg, nil
}

// applyCompressionFlags copies explicitly set compression flags onto cfg.
func applyCompressionFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("quality") {
		if cmd.Name() == "enhance" {
			cfg.Enhancement.Quality = quality
		} else {
			cfg.Compression.Quality = quality
		}
	}
	if flags.Changed("max-dimension") {
		cfg.Compression.MaxDimension = maxDimension
	}
	if flags.Changed("min-size-mb") {
		cfg.Compression.MinSizeBytes = int64(minSizeMB * 1024 * 1024)
	}
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config) *logrus.Logger {
	loggerCfg := logger.LoggerConfig{
		Level:       cfg.Logging.Level,
		FilePath:    cfg.Logging.FilePath,
		MaxSize:     cfg.Logging.MaxSize,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAge:      cfg.Logging.MaxAge,
		Compress:    cfg.Logging.Compress,
		Console:     !quiet,
		ConsoleJSON: cfg.Logging.JSONConsole,
	}

	if verbose {
		loggerCfg.Level = "debug"
	}
	if quiet {
		loggerCfg.Level = "error"
	}

	log, err := logger.NewLogger(loggerCfg)
	if err != nil {
		log = logrus.New()
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

// fileExists returns true if the given path exists and is a file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// dirExists returns true if the given path exists and is a directory.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
