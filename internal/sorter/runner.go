// Package sorter classifies files by extension and copies them into bucket
// directories, driving the traversal with a bounded pool of copy workers.
package sorter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/extsort/internal/fileutil"
	"github.com/harrison/extsort/internal/filelock"
	"github.com/harrison/extsort/internal/models"
	"golang.org/x/sync/errgroup"
)

// LockFileName is the lock file held in the destination root while a run is
// in progress. It is removed when the run finishes.
const LockFileName = ".extsort.lock"

var (
	// ErrSameRoot is returned when source and destination are the same directory
	ErrSameRoot = errors.New("source and destination are the same directory")
	// ErrDestinationLocked is returned when another run holds the destination lock
	ErrDestinationLocked = errors.New("destination is locked by another run")
)

// Logger receives run events. Implementations must be safe for concurrent use:
// directory events arrive from the traversal goroutine while copy events
// arrive from the collector.
type Logger interface {
	LogDirEnter(dir string)
	LogDirError(dir string, err error)
	LogSkip(path, reason string)
	LogCopy(result models.CopyResult)
	LogSummary(result models.RunResult)
}

// Options configures a Sorter
type Options struct {
	// Workers is the number of concurrent copy workers (values < 1 mean 1)
	Workers int
	// Fallback is the bucket for files without an extension
	Fallback string
	// Exclude is a list of doublestar patterns to leave out of the walk
	Exclude []string
	// SkipSymlinks leaves symbolic links out of the run instead of following them
	SkipSymlinks bool
	// Sniff buckets extensionless files by detected content type
	Sniff bool
	// PreserveMetadata copies permission bits and modification times
	PreserveMetadata bool
	// DryRun computes targets without creating or writing anything
	DryRun bool
}

// Sorter sorts a source tree into extension buckets
type Sorter struct {
	opts   Options
	logger Logger
}

// New creates a Sorter. A nil logger discards all events.
func New(opts Options, logger Logger) *Sorter {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Fallback == "" {
		opts.Fallback = DefaultFallbackBucket
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Sorter{opts: opts, logger: logger}
}

// Classifier returns the classifier used for bucket naming
func (s *Sorter) Classifier() Classifier {
	return Classifier{Fallback: s.opts.Fallback, Sniff: s.opts.Sniff}
}

// Run copies every regular file under source into dest/<bucket>/<name>.
// It fails up front if source is not a directory, if source and dest are the
// same directory, or if dest is locked. Per-file and per-directory failures
// are recorded in the result and never returned. A cancelled context stops
// the walk and returns the partial result together with the context error.
func (s *Sorter) Run(ctx context.Context, source, dest string) (*models.RunResult, error) {
	if err := fileutil.ValidateRoot(source); err != nil {
		return nil, fmt.Errorf("invalid source: %w", err)
	}

	absSource, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source: %w", err)
	}
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destination: %w", err)
	}
	if absSource == absDest {
		return nil, fmt.Errorf("%s: %w", absSource, ErrSameRoot)
	}

	if !s.opts.DryRun {
		if err := os.MkdirAll(dest, 0755); err != nil {
			return nil, fmt.Errorf("failed to create destination: %w", err)
		}
		lock := filelock.NewFileLock(filepath.Join(dest, LockFileName))
		if err := lock.Acquire(); err != nil {
			if errors.Is(err, filelock.ErrLocked) {
				return nil, fmt.Errorf("%s: %w", dest, ErrDestinationLocked)
			}
			return nil, err
		}
		defer lock.Release()
	}

	result := models.NewRunResult(uuid.New().String(), source, dest)
	result.DryRun = s.opts.DryRun

	copier := NewCopier(dest, s.Classifier(), s.opts.PreserveMetadata, s.opts.DryRun)

	results := make(chan models.CopyResult, s.opts.Workers*4)

	// Single collector owns the result while copies are in flight
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for res := range results {
			result.Record(res)
			s.logger.LogCopy(res)
		}
	}()

	// Go blocks once Workers copies are running, throttling the walk
	var pool errgroup.Group
	pool.SetLimit(s.opts.Workers)

	visitor := &dispatchVisitor{
		ctx:    ctx,
		logger: s.logger,
		dispatch: func(path string) {
			pool.Go(func() error {
				if ctx.Err() == nil {
					results <- copier.ClassifyAndCopy(path)
				}
				return nil
			})
		},
	}
	walkErr := fileutil.Walk(ctx, source, s.walkOptions(absSource, absDest), visitor)

	pool.Wait()
	close(results)
	<-collected

	result.DirsVisited = visitor.dirs
	result.Skipped += visitor.skipped
	for _, d := range visitor.dirErrors {
		result.RecordDirError(d.path, d.err)
	}
	result.Duration = time.Since(result.StartedAt)

	s.logger.LogSummary(*result)

	if walkErr != nil {
		return result, walkErr
	}
	return result, nil
}

// Survey counts what Run would dispatch for source and dest without copying.
// dest may be empty when no destination is involved.
func (s *Sorter) Survey(ctx context.Context, source, dest string) (*fileutil.SurveyResult, error) {
	absSource, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source: %w", err)
	}
	absDest := ""
	if dest != "" {
		if absDest, err = filepath.Abs(dest); err != nil {
			return nil, fmt.Errorf("failed to resolve destination: %w", err)
		}
	}
	return fileutil.Survey(ctx, source, s.walkOptions(absSource, absDest), s.Classifier().Classify)
}

// walkOptions keeps the destination out of the walk when it lies inside the source
func (s *Sorter) walkOptions(absSource, absDest string) fileutil.WalkOptions {
	opts := fileutil.WalkOptions{
		Exclude:      s.opts.Exclude,
		SkipSymlinks: s.opts.SkipSymlinks,
	}
	if absDest != "" && isWithin(absDest, absSource) {
		opts.SkipDirs = []string{absDest}
	}
	return opts
}

// dispatchVisitor feeds discovered files to the copy workers. Its counters are
// only touched by the walking goroutine.
type dispatchVisitor struct {
	ctx       context.Context
	dispatch  func(path string)
	logger    Logger
	dirs      int
	skipped   int
	dirErrors []dirFailure
}

type dirFailure struct {
	path string
	err  error
}

func (v *dispatchVisitor) EnterDir(dir string) {
	v.dirs++
	v.logger.LogDirEnter(dir)
}

func (v *dispatchVisitor) VisitFile(path string) {
	if v.ctx.Err() != nil {
		return
	}
	v.dispatch(path)
}

func (v *dispatchVisitor) DirError(dir string, err error) {
	v.dirErrors = append(v.dirErrors, dirFailure{path: dir, err: err})
	v.logger.LogDirError(dir, err)
}

func (v *dispatchVisitor) Skip(path string, reason string) {
	v.skipped++
	v.logger.LogSkip(path, reason)
}

// isWithin reports whether path lies strictly inside dir. Both must be absolute.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !filepath.IsAbs(rel) && !startsWithParent(rel)
}

func startsWithParent(rel string) bool {
	prefix := ".." + string(filepath.Separator)
	return len(rel) >= len(prefix) && rel[:len(prefix)] == prefix
}

type nopLogger struct{}

func (nopLogger) LogDirEnter(string)          {}
func (nopLogger) LogDirError(string, error)   {}
func (nopLogger) LogSkip(string, string)      {}
func (nopLogger) LogCopy(models.CopyResult)   {}
func (nopLogger) LogSummary(models.RunResult) {}
