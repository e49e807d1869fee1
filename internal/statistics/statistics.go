package statistics

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Statistics contains all statistics for a compression or enhancement run.
type Statistics struct {
	TotalFilesFound     int64
	TotalFilesProcessed int64
	FilesCompressed     int64
	FilesConverted      int64
	FilesPlanned        int64
	FilesEnhanced       int64
	FilesSkipped        int64
	FilesWithErrors     int64

	BackupsCreated int64
	BackupFailures int64
	FilesResized   int64

	// BytesBefore and BytesAfter only count files that produced output.
	BytesBefore int64
	BytesAfter  int64

	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	FilesPerSecond float64

	Errors []StatError

	mutex sync.RWMutex

	StrategyStats map[string]int64
}

// StatError represents an error that occurred during processing.
type StatError struct {
	FilePath  string
	Operation string
	Error     string
	Timestamp time.Time
}

// NewStatistics returns a new Statistics instance.
func NewStatistics() *Statistics {
	return &Statistics{
		StartTime:     time.Now(),
		StrategyStats: make(map[string]int64),
		Errors:        make([]StatError, 0),
	}
}

// IncrementFilesFound increases the count of found files by 1.
func (s *Statistics) IncrementFilesFound() {
	atomic.AddInt64(&s.TotalFilesFound, 1)
}

// IncrementFilesProcessed increases the count of processed files by 1.
func (s *Statistics) IncrementFilesProcessed() {
	atomic.AddInt64(&s.TotalFilesProcessed, 1)
}

// IncrementFilesCompressed increases the count of files rewritten in place by 1.
func (s *Statistics) IncrementFilesCompressed() {
	atomic.AddInt64(&s.FilesCompressed, 1)
}

// IncrementFilesConverted increases the count of files rewritten under a new extension by 1.
func (s *Statistics) IncrementFilesConverted() {
	atomic.AddInt64(&s.FilesConverted, 1)
}

// IncrementFilesPlanned increases the count of dry-run decisions by 1.
func (s *Statistics) IncrementFilesPlanned() {
	atomic.AddInt64(&s.FilesPlanned, 1)
}

// IncrementFilesEnhanced increases the count of enhanced files by 1.
func (s *Statistics) IncrementFilesEnhanced() {
	atomic.AddInt64(&s.FilesEnhanced, 1)
}

// IncrementFilesSkipped increases the count of skipped files by 1.
func (s *Statistics) IncrementFilesSkipped() {
	atomic.AddInt64(&s.FilesSkipped, 1)
}

// IncrementFilesWithErrors increases the count of files with errors by 1.
func (s *Statistics) IncrementFilesWithErrors() {
	atomic.AddInt64(&s.FilesWithErrors, 1)
}

// IncrementBackupsCreated increases the count of backups by 1.
func (s *Statistics) IncrementBackupsCreated() {
	atomic.AddInt64(&s.BackupsCreated, 1)
}

// IncrementBackupFailures increases the count of failed backups by 1.
func (s *Statistics) IncrementBackupFailures() {
	atomic.AddInt64(&s.BackupFailures, 1)
}

// IncrementFilesResized increases the count of downscaled files by 1.
func (s *Statistics) IncrementFilesResized() {
	atomic.AddInt64(&s.FilesResized, 1)
}

// IncrementStrategy increases the count for a winning encoding strategy by 1.
func (s *Statistics) IncrementStrategy(strategy string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.StrategyStats[strategy]++
}

// AddBytes records the size of one file before and after processing.
func (s *Statistics) AddBytes(before, after int64) {
	atomic.AddInt64(&s.BytesBefore, before)
	atomic.AddInt64(&s.BytesAfter, after)
}

// TotalReduction returns the overall saving in percent over every file that
// produced output. It is negative when the outputs grew.
func (s *Statistics) TotalReduction() float64 {
	before := atomic.LoadInt64(&s.BytesBefore)
	after := atomic.LoadInt64(&s.BytesAfter)
	if before <= 0 {
		return 0
	}
	return float64(before-after) * 100 / float64(before)
}

// Finalize calculates final statistics such as duration and files per second.
func (s *Statistics) Finalize() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)

	totalProcessed := atomic.LoadInt64(&s.TotalFilesProcessed)
	if s.Duration.Seconds() > 0 {
		s.FilesPerSecond = float64(totalProcessed) / s.Duration.Seconds()
	}
}

// AddError records an error that occurred during processing.
func (s *Statistics) AddError(filePath, operation, errorMsg string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.Errors = append(s.Errors, StatError{
		FilePath:  filePath,
		Operation: operation,
		Error:     errorMsg,
		Timestamp: time.Now(),
	})
}

// GetSummary returns a formatted summary of all statistics.
func (s *Statistics) GetSummary() string {
	s.mutex.RLock()
	duration := s.Duration
	filesPerSecond := s.FilesPerSecond
	s.mutex.RUnlock()

	before := atomic.LoadInt64(&s.BytesBefore)
	after := atomic.LoadInt64(&s.BytesAfter)

	return fmt.Sprintf(`Compression Summary:

Files:
		Total Found: %d
		Total Processed: %d
		Compressed: %d
		Converted: %d
		Planned: %d
		Enhanced: %d
		Skipped: %d
		Resized: %d
		Errors: %d

Backups:
		Created: %d
		Failed: %d

Size:
		Before: %s
		After: %s
		Saved: %s
		Total Reduction: %.1f%%

Performance:
		Duration: %v
		Files/Second: %.2f`,
		atomic.LoadInt64(&s.TotalFilesFound),
		atomic.LoadInt64(&s.TotalFilesProcessed),
		atomic.LoadInt64(&s.FilesCompressed),
		atomic.LoadInt64(&s.FilesConverted),
		atomic.LoadInt64(&s.FilesPlanned),
		atomic.LoadInt64(&s.FilesEnhanced),
		atomic.LoadInt64(&s.FilesSkipped),
		atomic.LoadInt64(&s.FilesResized),
		atomic.LoadInt64(&s.FilesWithErrors),
		atomic.LoadInt64(&s.BackupsCreated),
		atomic.LoadInt64(&s.BackupFailures),
		formatBytes(before),
		formatBytes(after),
		formatSigned(before-after),
		s.TotalReduction(),
		duration,
		filesPerSecond)
}

// GetStrategyBreakdown returns a formatted breakdown of winning strategies.
func (s *Statistics) GetStrategyBreakdown() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.StrategyStats) == 0 {
		return "No strategy statistics available"
	}

	names := make([]string, 0, len(s.StrategyStats))
	for name := range s.StrategyStats {
		names = append(names, name)
	}
	sort.Strings(names)

	result := "Strategy Breakdown:\n"
	for _, name := range names {
		result += fmt.Sprintf("  %s: %d\n", name, s.StrategyStats[name])
	}
	return result
}

// GetErrorSummary returns a summary of errors that occurred during processing.
func (s *Statistics) GetErrorSummary() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if len(s.Errors) == 0 {
		return "No errors occurred during processing"
	}

	result := fmt.Sprintf("Errors (%d total):\n", len(s.Errors))
	for i, err := range s.Errors {
		if i >= 10 {
			result += fmt.Sprintf("  ... and %d more errors\n", len(s.Errors)-10)
			break
		}
		result += fmt.Sprintf("  [%s] %s: %s - %s\n",
			err.Timestamp.Format("15:04:05"),
			err.Operation,
			err.FilePath,
			err.Error)
	}
	return result
}

// formatBytes returns a human-readable string for a byte count.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatSigned(bytes int64) string {
	if bytes < 0 {
		return "-" + formatBytes(-bytes)
	}
	return formatBytes(bytes)
}

// GetTotalFilesProcessed returns the total number of files processed.
func (s *Statistics) GetTotalFilesProcessed() int64 {
	return atomic.LoadInt64(&s.TotalFilesProcessed)
}

// GetFilesWithErrors returns the total number of recorded errors.
func (s *Statistics) GetFilesWithErrors() int64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return int64(len(s.Errors))
}

// GetDuration returns the total duration of the operation.
func (s *Statistics) GetDuration() time.Duration {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.Duration
}
