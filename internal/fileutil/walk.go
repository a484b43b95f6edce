package fileutil

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotDirectory is returned when a walk root exists but is not a directory
var ErrNotDirectory = errors.New("not a directory")

// Skip reasons reported through Visitor.Skip
const (
	SkipExcluded      = "excluded"
	SkipSymlink       = "symlink"
	SkipBrokenSymlink = "broken symlink"
	SkipSpecial       = "special file"
	SkipNestedDest    = "destination root"
)

// Visitor receives traversal events. Implementations are called from the
// goroutine running Walk, one event at a time.
type Visitor interface {
	// EnterDir is called once per directory before its entries are read
	EnterDir(dir string)
	// VisitFile is called once per regular file
	VisitFile(path string)
	// DirError is called when a directory's entries cannot be read
	DirError(dir string, err error)
	// Skip is called for entries that are neither copied nor descended into
	Skip(path string, reason string)
}

// WalkOptions configures traversal behavior
type WalkOptions struct {
	// Exclude is a list of doublestar patterns for files and directories to ignore
	Exclude []string
	// SkipDirs is a list of directories that must never be entered
	SkipDirs []string
	// SkipSymlinks reports symbolic links as skipped instead of resolving them
	SkipSymlinks bool
}

// ValidateRoot checks that path exists and is a directory
func ValidateRoot(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", path, ErrNotDirectory)
	}
	return nil
}

// Walk visits root and every descendant directory exactly once, breadth-first.
// Enumeration failures are reported to the visitor and never abort the walk.
// The returned error is non-nil only for invalid options or a cancelled context.
func Walk(ctx context.Context, root string, opts WalkOptions, v Visitor) error {
	matcher, err := NewMatcher(opts.Exclude)
	if err != nil {
		return err
	}
	skipDirs := absSet(opts.SkipDirs)

	queue := []string{root}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		dir := queue[0]
		queue[0] = ""
		queue = queue[1:]

		v.EnterDir(dir)

		// os.ReadDir returns whatever it read before failing
		entries, err := os.ReadDir(dir)
		if err != nil {
			v.DirError(dir, err)
		}

		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())

			if matcher.Match(relSlash(root, path), entry.Name()) {
				v.Skip(path, SkipExcluded)
				continue
			}

			isDir, isFile, reason := classifyEntry(path, entry, !opts.SkipSymlinks)
			switch {
			case isDir:
				if len(skipDirs) > 0 && skipDirs[absPath(path)] {
					v.Skip(path, SkipNestedDest)
					continue
				}
				queue = append(queue, path)
			case isFile:
				v.VisitFile(path)
			default:
				v.Skip(path, reason)
			}
		}
	}

	return nil
}

// classifyEntry decides whether an entry is a directory, a regular file, or neither.
// The reason is set when it is neither.
func classifyEntry(path string, entry fs.DirEntry, follow bool) (isDir, isFile bool, reason string) {
	mode := entry.Type()

	switch {
	case mode.IsDir():
		return true, false, ""
	case mode.IsRegular():
		return false, true, ""
	case mode&fs.ModeSymlink != 0:
		if !follow {
			return false, false, SkipSymlink
		}
		info, err := os.Stat(path)
		if err != nil {
			return false, false, SkipBrokenSymlink
		}
		if info.IsDir() {
			return true, false, ""
		}
		if info.Mode().IsRegular() {
			return false, true, ""
		}
		return false, false, SkipSpecial
	default:
		return false, false, SkipSpecial
	}
}

// relSlash returns path relative to root using forward slashes
func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func absSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		set[absPath(p)] = true
	}
	return set
}
