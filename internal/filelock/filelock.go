// Package filelock provides destination locking and atomic file writes so
// that concurrent copy workers and concurrent extsort runs never expose a
// partially written file.
package filelock

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by Acquire when another process holds the lock
var ErrLocked = errors.New("lock is held by another process")

// FileLock wraps a flock file lock for coordinating access to a destination.
type FileLock struct {
	flock *flock.Flock
	path  string
}

// NewFileLock creates a new file lock for the given path.
// The lock file will be created at the specified path.
func NewFileLock(path string) *FileLock {
	return &FileLock{
		flock: flock.New(path),
		path:  path,
	}
}

// Path returns the lock file path
func (fl *FileLock) Path() string {
	return fl.path
}

// TryLock attempts to acquire an exclusive lock on the file without blocking.
// Returns true if the lock was acquired, false if the lock is held elsewhere.
func (fl *FileLock) TryLock() (bool, error) {
	acquired, err := fl.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to try lock on %s: %w", fl.path, err)
	}
	return acquired, nil
}

// Acquire takes the lock without blocking and returns ErrLocked if it is held.
func (fl *FileLock) Acquire() error {
	ok, err := fl.TryLock()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", fl.path, ErrLocked)
	}
	return nil
}

// Unlock releases the lock.
func (fl *FileLock) Unlock() error {
	if err := fl.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", fl.path, err)
	}
	return nil
}

// Release removes the lock file and then releases the lock, so a finished run
// leaves nothing behind.
func (fl *FileLock) Release() error {
	removeErr := os.Remove(fl.path)
	if err := fl.Unlock(); err != nil {
		return err
	}
	if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		return fmt.Errorf("failed to remove lock file %s: %w", fl.path, removeErr)
	}
	return nil
}

// MetadataError reports that a file was written but its permissions or
// timestamps could not be carried over. The content at the target is complete.
type MetadataError struct {
	Path string
	Err  error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("failed to preserve metadata on %s: %v", e.Path, e.Err)
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}

// AtomicWrite writes data to a file atomically using a temp file and rename strategy.
// Readers never see partial writes, even if the write is interrupted.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	_, err := writeViaTemp(dir, path, func(f *os.File) (int64, error) {
		n, err := f.Write(data)
		return int64(n), err
	}, func(tempPath string) error {
		return os.Chmod(tempPath, 0644)
	})
	return err
}

// AtomicCopy copies src to dst through a temp file in dst's directory and
// renames it into place, replacing any existing dst. The parent of dst must
// exist. With preserve set, the source permission bits and modification time
// are applied to the copy; if that fails the copy is still installed and a
// *MetadataError is returned alongside the byte count.
func AtomicCopy(src, dst string, preserve bool) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", src)
	}

	var metaErr error
	n, err := writeViaTemp(filepath.Dir(dst), dst, func(f *os.File) (int64, error) {
		return io.Copy(f, in)
	}, func(tempPath string) error {
		if !preserve {
			return os.Chmod(tempPath, 0644)
		}
		if err := os.Chmod(tempPath, info.Mode().Perm()); err != nil {
			metaErr = err
		}
		// A zero access time leaves it unchanged
		if err := os.Chtimes(tempPath, time.Time{}, info.ModTime()); err != nil && metaErr == nil {
			metaErr = err
		}
		return nil
	})
	if err != nil {
		return n, err
	}
	if metaErr != nil {
		return n, &MetadataError{Path: dst, Err: metaErr}
	}
	return n, nil
}

// writeViaTemp creates a temp file in dir, fills it with write, runs finish on
// the closed temp file, and renames it to path. The temp file is removed on error.
func writeViaTemp(dir, path string, write func(*os.File) (int64, error), finish func(tempPath string) error) (int64, error) {
	tempFile, err := os.CreateTemp(dir, ".extsort-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	committed := false
	defer func() {
		if !committed {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	n, err := write(tempFile)
	if err != nil {
		return n, fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return n, fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return n, fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := finish(tempPath); err != nil {
		return n, fmt.Errorf("failed to set permissions: %w", err)
	}

	// On Unix, rename is atomic within the same filesystem
	if err := os.Rename(tempPath, path); err != nil {
		return n, fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}

	committed = true
	return n, nil
}
