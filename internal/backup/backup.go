// Package backup keeps a pristine copy of every original before a batch
// rewrites it.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"imgsqueeze/internal/logger"

	"github.com/sirupsen/logrus"
)

// ErrBackup wraps every failure to copy an original.
var ErrBackup = errors.New("backup failed")

// Guard copies a file somewhere safe and returns the copy's path.
type Guard interface {
	Backup(ctx context.Context, path string) (string, error)
}

// copier copies files with retries, keeping permission bits and times.
type copier struct {
	logger *logrus.Logger

	maxRetries int
	baseDelay  time.Duration
}

func newCopier(log *logrus.Logger) copier {
	return copier{
		logger:     log,
		maxRetries: 5,
		baseDelay:  100 * time.Millisecond,
	}
}

// DirGuard copies originals into a fixed directory under their own name.
type DirGuard struct {
	copier
	dir string
}

// NewDirGuard creates a guard writing into dir. The directory is created on
// first use.
func NewDirGuard(dir string, log *logrus.Logger) *DirGuard {
	return &DirGuard{copier: newCopier(log), dir: dir}
}

// Dir returns the directory backups are written to.
func (g *DirGuard) Dir() string {
	return g.dir
}

// Backup copies path into the guard directory. An existing backup of the same
// name is overwritten.
func (g *DirGuard) Backup(ctx context.Context, path string) (string, error) {
	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return "", fmt.Errorf("%w: create backup directory: %v", ErrBackup, err)
	}
	dst := filepath.Join(g.dir, filepath.Base(path))
	if err := g.copyFile(ctx, path, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// SiblingGuard copies name.ext to name.backup.ext next to the original. A
// backup that already exists is kept, so the first original survives repeated
// runs.
type SiblingGuard struct {
	copier
}

// NewSiblingGuard creates a SiblingGuard.
func NewSiblingGuard(log *logrus.Logger) *SiblingGuard {
	return &SiblingGuard{copier: newCopier(log)}
}

// Backup returns the sibling backup path, creating the copy when missing.
func (g *SiblingGuard) Backup(ctx context.Context, path string) (string, error) {
	dst := SiblingPath(path)
	if _, err := os.Stat(dst); err == nil {
		logger.WithFileOperation(g.logger, path, "backup").Debugf("Keeping existing backup %s", dst)
		return dst, nil
	}
	if err := g.copyFile(ctx, path, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// SiblingPath returns the name.backup.ext path for path.
func SiblingPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".backup" + ext
}

// IsSiblingBackup reports whether name looks like a SiblingGuard copy.
func IsSiblingBackup(name string) bool {
	ext := filepath.Ext(name)
	return strings.HasSuffix(strings.TrimSuffix(name, ext), ".backup")
}

// copyFile copies src to dst preserving permission bits and access and
// modification times.
func (c copier) copyFile(ctx context.Context, src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackup, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s is not a regular file", ErrBackup, src)
	}
	if sameFile(src, dst) {
		return fmt.Errorf("%w: %s is its own backup", ErrBackup, src)
	}

	err = c.retry(ctx, "copy", func() error {
		now, err := os.Stat(src)
		if err != nil {
			return err
		}
		if sourceChanged(info, now) {
			return fmt.Errorf("source changed during copy")
		}
		return copyOnce(src, dst, info.Mode().Perm())
	})
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("%w: %v", ErrBackup, err)
	}

	if err := os.Chtimes(dst, accessTime(info), info.ModTime()); err != nil {
		logger.WithFileOperation(c.logger, dst, "backup").Warnf("Could not preserve times: %v", err)
	}

	logger.WithFileOperation(c.logger, src, "backup").Debugf("Backed up to %s", dst)
	return nil
}

// retry runs fn with exponential backoff while it fails transiently.
func (c copier) retry(ctx context.Context, opName string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isTransient(err) {
			return fmt.Errorf("%s failed permanently: %w", opName, err)
		}
		if attempt == c.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.baseDelay * (1 << (attempt - 1))):
		}
	}
	return fmt.Errorf("%s failed after %d retries: %w", opName, c.maxRetries, lastErr)
}

func isTransient(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.EINTR)
}

func sourceChanged(orig, now os.FileInfo) bool {
	return now.ModTime().After(orig.ModTime()) || now.Size() != orig.Size()
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func copyOnce(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	// OpenFile honours the umask; the backup must carry the original bits.
	if err := out.Chmod(perm); err != nil {
		return err
	}
	return out.Sync()
}
