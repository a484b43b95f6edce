package models

import "time"

// Copy status constants
const (
	StatusCopied  = "copied"  // File copied into its bucket
	StatusFailed  = "failed"  // Copy attempted and failed
	StatusPlanned = "planned" // Dry-run: target computed, nothing written
)

// CopyResult represents the outcome of classifying and copying a single file
type CopyResult struct {
	Source   string        // Source file path
	Target   string        // Destination path (empty if classification failed)
	Bucket   string        // Bucket the file was routed to
	Status   string        // One of the Status* constants
	Bytes    int64         // Bytes written to the target
	Error    error         // Error if the copy failed
	Warning  string        // Non-fatal issue, e.g. metadata could not be preserved
	Duration time.Duration // Time spent on this file
}

// DirError records a directory whose entries could not be enumerated
type DirError struct {
	Path  string `yaml:"path"`
	Error string `yaml:"error"`
}

// RunResult represents the aggregate result of sorting one source tree
type RunResult struct {
	RunID       string         // Unique identifier for this run
	Source      string         // Source root
	Destination string         // Destination root
	DryRun      bool           // Whether the run only planned copies
	DirsVisited int            // Directories entered successfully or not
	Copied      int            // Files copied
	Failed      int            // Files that failed to copy
	Skipped     int            // Entries the walk left out (excluded, broken link, special file)
	Planned     int            // Files planned in dry-run mode
	Bytes       int64          // Total bytes copied
	Buckets     map[string]int // Files per bucket (copied or planned)
	DirErrors   []DirError     // Directories that could not be enumerated
	Failures    []CopyResult   // Details of failed copies
	StartedAt   time.Time      // When the run started
	Duration    time.Duration  // Total run time
}

// NewRunResult creates an empty RunResult for the given roots
func NewRunResult(runID, source, destination string) *RunResult {
	return &RunResult{
		RunID:       runID,
		Source:      source,
		Destination: destination,
		Buckets:     make(map[string]int),
		StartedAt:   time.Now(),
	}
}

// Record folds a single copy result into the aggregate
func (r *RunResult) Record(res CopyResult) {
	switch res.Status {
	case StatusCopied:
		r.Copied++
		r.Bytes += res.Bytes
		r.Buckets[res.Bucket]++
	case StatusPlanned:
		r.Planned++
		r.Buckets[res.Bucket]++
	case StatusFailed:
		r.Failed++
		r.Failures = append(r.Failures, res)
	}
}

// RecordDirError notes a directory that could not be enumerated
func (r *RunResult) RecordDirError(path string, err error) {
	r.DirErrors = append(r.DirErrors, DirError{Path: path, Error: err.Error()})
}

// Processed returns the number of files that reached the copier
func (r *RunResult) Processed() int {
	return r.Copied + r.Failed + r.Planned
}

// HasFailures reports whether any file or directory failed
func (r *RunResult) HasFailures() bool {
	return r.Failed > 0 || len(r.DirErrors) > 0
}
