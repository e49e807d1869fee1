package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the main configuration structure
type Config struct {
	SourceDirectory     string            `mapstructure:"source_directory"`
	SupportedExtensions []string          `mapstructure:"supported_extensions"`
	Compression         CompressionConfig `mapstructure:"compression"`
	Backup              BackupConfig      `mapstructure:"backup"`
	Enhancement         EnhancementConfig `mapstructure:"enhancement"`
	Security            SecurityConfig    `mapstructure:"security"`
	Logging             LoggingConfig     `mapstructure:"logging"`
}

// CompressionConfig contains the parameters of the compression decision procedure
type CompressionConfig struct {
	Quality               int     `mapstructure:"quality"`
	MaxDimension          int     `mapstructure:"max_dimension"` // 0 disables resizing
	MinSizeBytes          int64   `mapstructure:"min_size_bytes"`
	TransparencyThreshold float64 `mapstructure:"transparency_threshold"`
	AlphaSampleCap        int     `mapstructure:"alpha_sample_cap"`
	PaletteIterations     int     `mapstructure:"palette_iterations"` // 0 uses the codec default
}

// BackupConfig contains backup settings applied before files are rewritten
type BackupConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"` // relative to the processed directory
}

// EnhancementConfig contains settings for the enhance command
type EnhancementConfig struct {
	Preset          string `mapstructure:"preset"`
	OutputDirectory string `mapstructure:"output_directory"` // relative to the processed directory
	Quality         int    `mapstructure:"quality"`
	Overwrite       bool   `mapstructure:"overwrite"`
}

// SecurityConfig contains safety settings
type SecurityConfig struct {
	DryRun         bool `mapstructure:"dry_run"`
	MaxFilesPerRun int  `mapstructure:"max_files_per_run"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`

	// JSONConsole switches console records from text to the file's JSON layout
	JSONConsole bool `mapstructure:"json_console"`
}

// Enhancement presets understood by the enhancer package.
var validPresets = map[string]bool{
	"natural": true,
	"vivid":   true,
	"scenic":  true,
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		SupportedExtensions: []string{".jpg", ".jpeg", ".png"},
		Compression: CompressionConfig{
			Quality:               85,
			MaxDimension:          2048,
			MinSizeBytes:          1 << 20,
			TransparencyThreshold: 0.05,
			AlphaSampleCap:        10000,
		},
		Backup: BackupConfig{
			Enabled:   true,
			Directory: "backups",
		},
		Enhancement: EnhancementConfig{
			Preset:          "natural",
			OutputDirectory: "enhanced",
			Quality:         95,
			Overwrite:       false,
		},
		Security: SecurityConfig{
			DryRun:         false,
			MaxFilesPerRun: 0, // 0 means no limit
		},
		Logging: LoggingConfig{
			Level:      "info",
			FilePath:   "",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config file in current directory and home directory
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.imgsqueeze")
		v.AddConfigPath("/etc/imgsqueeze")
	}

	// Enable environment variable support
	v.SetEnvPrefix("IMGSQUEEZE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// bindEnvKeys registers nested keys so AutomaticEnv can resolve them during
// Unmarshal even when no config file mentions them.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"source_directory",
		"compression.quality",
		"compression.max_dimension",
		"compression.min_size_bytes",
		"compression.transparency_threshold",
		"compression.alpha_sample_cap",
		"compression.palette_iterations",
		"backup.enabled",
		"backup.directory",
		"enhancement.preset",
		"enhancement.output_directory",
		"enhancement.quality",
		"enhancement.overwrite",
		"security.dry_run",
		"security.max_files_per_run",
		"logging.level",
		"logging.file_path",
		"logging.json_console",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.SourceDirectory != "" && !isValidPath(c.SourceDirectory) {
		return fmt.Errorf("source_directory does not exist or is not accessible: %s", c.SourceDirectory)
	}

	if c.Compression.Quality < 1 || c.Compression.Quality > 100 {
		return fmt.Errorf("invalid quality: %d (valid: 1-100)", c.Compression.Quality)
	}
	if c.Compression.MaxDimension < 0 {
		return fmt.Errorf("invalid max_dimension: %d (must be >= 0)", c.Compression.MaxDimension)
	}
	if c.Compression.MinSizeBytes < 0 {
		return fmt.Errorf("invalid min_size_bytes: %d (must be >= 0)", c.Compression.MinSizeBytes)
	}
	if c.Compression.TransparencyThreshold < 0 || c.Compression.TransparencyThreshold > 1 {
		return fmt.Errorf("invalid transparency_threshold: %g (valid: 0-1)", c.Compression.TransparencyThreshold)
	}
	if c.Compression.AlphaSampleCap <= 0 {
		c.Compression.AlphaSampleCap = 10000
	}
	if c.Compression.PaletteIterations < 0 {
		return fmt.Errorf("invalid palette_iterations: %d (must be >= 0)", c.Compression.PaletteIterations)
	}

	if c.Backup.Directory == "" {
		c.Backup.Directory = "backups"
	}
	if filepath.IsAbs(c.Backup.Directory) || strings.Contains(c.Backup.Directory, "..") {
		return fmt.Errorf("backup directory must be a relative name: %s", c.Backup.Directory)
	}

	c.Enhancement.Preset = strings.ToLower(c.Enhancement.Preset)
	if !validPresets[c.Enhancement.Preset] {
		return fmt.Errorf("invalid enhancement preset: %s (valid: natural, vivid, scenic)", c.Enhancement.Preset)
	}
	if c.Enhancement.OutputDirectory == "" {
		c.Enhancement.OutputDirectory = "enhanced"
	}
	if c.Enhancement.Quality < 1 || c.Enhancement.Quality > 100 {
		return fmt.Errorf("invalid enhancement quality: %d (valid: 1-100)", c.Enhancement.Quality)
	}

	c.SupportedExtensions = normalizeExtensions(c.SupportedExtensions)
	for _, ext := range c.SupportedExtensions {
		if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
			return fmt.Errorf("unsupported extension in supported_extensions: %s", ext)
		}
	}

	if c.Security.MaxFilesPerRun < 0 {
		c.Security.MaxFilesPerRun = 0
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}

// IsImageExtension checks if the extension is for a supported image file
func (c *Config) IsImageExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, supportedExt := range c.SupportedExtensions {
		if ext == supportedExt {
			return true
		}
	}
	return false
}

// BackupDirectory returns the absolute backup location for a processed directory.
func (c *Config) BackupDirectory(dir string) string {
	return filepath.Join(dir, c.Backup.Directory)
}

// EnhancedDirectory returns the output location of the enhance command.
func (c *Config) EnhancedDirectory(dir string) string {
	return filepath.Join(dir, c.Enhancement.OutputDirectory)
}

// Helper functions

func isValidPath(path string) bool {
	if path == "" {
		return false
	}

	expandedPath := os.ExpandEnv(path)
	if strings.HasPrefix(expandedPath, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return false
		}
		expandedPath = filepath.Join(home, expandedPath[1:])
	}

	stat, err := os.Stat(expandedPath)
	return err == nil && stat.IsDir()
}

func normalizeExtensions(extensions []string) []string {
	normalized := make([]string, len(extensions))
	for i, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized[i] = ext
	}
	return normalized
}
