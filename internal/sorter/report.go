package sorter

import (
	"fmt"
	"sort"
	"time"

	"github.com/harrison/extsort/internal/filelock"
	"github.com/harrison/extsort/internal/models"
	"gopkg.in/yaml.v3"
)

// Report is the YAML document written after a run
type Report struct {
	RunID       string            `yaml:"run_id"`
	Source      string            `yaml:"source"`
	Destination string            `yaml:"destination"`
	DryRun      bool              `yaml:"dry_run"`
	StartedAt   string            `yaml:"started_at"`
	Duration    string            `yaml:"duration"`
	DirsVisited int               `yaml:"dirs_visited"`
	Copied      int               `yaml:"copied"`
	Failed      int               `yaml:"failed"`
	Skipped     int               `yaml:"skipped"`
	Planned     int               `yaml:"planned,omitempty"`
	Bytes       int64             `yaml:"bytes"`
	Buckets     []BucketCount     `yaml:"buckets"`
	DirErrors   []models.DirError `yaml:"dir_errors,omitempty"`
	Failures    []ReportFailure   `yaml:"failures,omitempty"`
}

// BucketCount is the number of files routed to one bucket
type BucketCount struct {
	Name  string `yaml:"name"`
	Files int    `yaml:"files"`
}

// ReportFailure describes one file that could not be copied
type ReportFailure struct {
	Source string `yaml:"source"`
	Target string `yaml:"target,omitempty"`
	Error  string `yaml:"error"`
}

// NewReport builds a Report from a run result. Buckets are sorted by
// descending file count, then name.
func NewReport(result *models.RunResult) *Report {
	r := &Report{
		RunID:       result.RunID,
		Source:      result.Source,
		Destination: result.Destination,
		DryRun:      result.DryRun,
		StartedAt:   result.StartedAt.Format(time.RFC3339),
		Duration:    result.Duration.Round(time.Millisecond).String(),
		DirsVisited: result.DirsVisited,
		Copied:      result.Copied,
		Failed:      result.Failed,
		Skipped:     result.Skipped,
		Planned:     result.Planned,
		Bytes:       result.Bytes,
		Buckets:     SortedBuckets(result.Buckets),
		DirErrors:   result.DirErrors,
	}

	for _, f := range result.Failures {
		msg := ""
		if f.Error != nil {
			msg = f.Error.Error()
		}
		r.Failures = append(r.Failures, ReportFailure{Source: f.Source, Target: f.Target, Error: msg})
	}

	return r
}

// SortedBuckets flattens a bucket map, largest first
func SortedBuckets(buckets map[string]int) []BucketCount {
	out := make([]BucketCount, 0, len(buckets))
	for name, n := range buckets {
		out = append(out, BucketCount{Name: name, Files: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Files != out[j].Files {
			return out[i].Files > out[j].Files
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// WriteReport writes the run report as YAML to path atomically
func WriteReport(path string, result *models.RunResult) error {
	data, err := yaml.Marshal(NewReport(result))
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := filelock.AtomicWrite(path, data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
