package fileutil

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/charlievieth/fastwalk"
)

// SurveyResult contains the results of a read-only survey of a tree
type SurveyResult struct {
	// Files is the number of regular files that would be dispatched
	Files int
	// Dirs is the number of directories visited, including the root
	Dirs int
	// Bytes is the total size of the counted files
	Bytes int64
	// Buckets counts files per bucket name
	Buckets map[string]int
	// Errors contains non-fatal errors encountered during the survey
	Errors []error
}

// Survey walks root in parallel and counts what Walk would dispatch.
// classify maps a file path to its bucket; it may be nil.
func Survey(ctx context.Context, root string, opts WalkOptions, classify func(path string) string) (*SurveyResult, error) {
	if err := ValidateRoot(root); err != nil {
		return nil, err
	}
	matcher, err := NewMatcher(opts.Exclude)
	if err != nil {
		return nil, err
	}
	skipDirs := absSet(opts.SkipDirs)

	result := &SurveyResult{Buckets: make(map[string]int)}
	var mu sync.Mutex

	conf := fastwalk.Config{Follow: !opts.SkipSymlinks}

	err = fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			mu.Lock()
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			mu.Unlock()
			return nil
		}

		if path != root && matcher.Match(relSlash(root, path), d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && len(skipDirs) > 0 && skipDirs[absPath(path)] {
				return filepath.SkipDir
			}
			mu.Lock()
			result.Dirs++
			mu.Unlock()
			return nil
		}

		isDir, isFile, _ := classifyEntry(path, d, !opts.SkipSymlinks)
		if isDir || !isFile {
			// Followed directory links are descended by fastwalk itself
			return nil
		}

		var size int64
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}

		bucket := ""
		if classify != nil {
			bucket = classify(path)
		}

		mu.Lock()
		result.Files++
		result.Bytes += size
		if bucket != "" {
			result.Buckets[bucket]++
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to survey directory: %w", err)
	}

	return result, nil
}
