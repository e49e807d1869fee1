package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerConfig defines the configuration for the logger.
type LoggerConfig struct {
	Level      string // debug, info, warn or error
	FilePath   string // rotated JSON log, empty disables it
	MaxSize    int    // megabytes before rotation
	MaxBackups int    // rotated files kept
	MaxAge     int    // days a rotated file is kept
	Compress   bool   // gzip rotated files

	// Console enables human-readable records on ConsoleOutput. Reports
	// are printed on stdout, so the console defaults to stderr.
	Console       bool
	ConsoleJSON   bool
	ConsoleOutput io.Writer
}

// jsonFormatter is the record layout of the log file.
func jsonFormatter() *logrus.JSONFormatter {
	return &logrus.JSONFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	}
}

// consoleHook copies records to a second writer in its own format.
type consoleHook struct {
	out       io.Writer
	formatter logrus.Formatter
}

func (h *consoleHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *consoleHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.out.Write(line)
	return err
}

// NewLogger builds the logger of a run: JSON records go to the rotated log
// file and, when Console is set, text records go to the console.
func NewLogger(config LoggerConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	logger.SetFormatter(jsonFormatter())
	logger.SetOutput(io.Discard)

	if config.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
			return nil, err
		}
		logger.SetOutput(&lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		})
	}

	if config.Console {
		out := config.ConsoleOutput
		if out == nil {
			out = os.Stderr
		}
		var formatter logrus.Formatter = &logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  "15:04:05",
			DisableColors:    true,
			QuoteEmptyFields: true,
		}
		if config.ConsoleJSON {
			formatter = jsonFormatter()
		}
		logger.AddHook(&consoleHook{out: out, formatter: formatter})
	}

	return logger, nil
}

// Discard returns a logger that drops every record.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// WithFileOperation returns an entry tagged with the file being processed and
// the step (compress, backup, enhance) working on it.
func WithFileOperation(logger *logrus.Logger, filePath, operation string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"file":      filePath,
		"operation": operation,
	})
}

// DefaultConfig returns the default LoggerConfig.
func DefaultConfig() LoggerConfig {
	return LoggerConfig{
		Level:      "info",
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
		Console:    true,
	}
}
