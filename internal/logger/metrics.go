package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harrison/extsort/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsLogger accumulates run events as Prometheus metrics on a private
// registry. Write the result with WriteTextfile for the node_exporter
// textfile collector.
type MetricsLogger struct {
	registry *prometheus.Registry

	files        *prometheus.CounterVec
	buckets      *prometheus.CounterVec
	skipped      *prometheus.CounterVec
	bytes        prometheus.Counter
	dirs         prometheus.Counter
	dirErrors    prometheus.Counter
	copyDuration prometheus.Histogram
	runDuration  prometheus.Gauge
	lastRun      prometheus.Gauge
}

// NewMetricsLogger creates a MetricsLogger with all collectors registered
func NewMetricsLogger() *MetricsLogger {
	m := &MetricsLogger{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extsort_files_total",
				Help: "Files processed by outcome",
			},
			[]string{"status"},
		),
		buckets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extsort_bucket_files_total",
				Help: "Files routed to each bucket",
			},
			[]string{"bucket"},
		),
		skipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extsort_skipped_total",
				Help: "Entries left out of the run by reason",
			},
			[]string{"reason"},
		),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extsort_bytes_copied_total",
			Help: "Bytes written to bucket directories",
		}),
		dirs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extsort_directories_total",
			Help: "Directories entered",
		}),
		dirErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "extsort_directory_errors_total",
			Help: "Directories whose entries could not be read",
		}),
		copyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "extsort_copy_duration_seconds",
			Help:    "Time spent copying a single file",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "extsort_last_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "extsort_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}

	m.registry.MustRegister(
		m.files, m.buckets, m.skipped, m.bytes, m.dirs,
		m.dirErrors, m.copyDuration, m.runDuration, m.lastRun,
	)
	return m
}

// Registry exposes the underlying registry
func (m *MetricsLogger) Registry() *prometheus.Registry {
	return m.registry
}

func (m *MetricsLogger) LogDirEnter(dir string) {
	m.dirs.Inc()
}

func (m *MetricsLogger) LogDirError(dir string, err error) {
	m.dirErrors.Inc()
}

func (m *MetricsLogger) LogSkip(path, reason string) {
	m.skipped.WithLabelValues(reason).Inc()
}

func (m *MetricsLogger) LogCopy(result models.CopyResult) {
	m.files.WithLabelValues(result.Status).Inc()

	switch result.Status {
	case models.StatusCopied:
		m.bytes.Add(float64(result.Bytes))
		m.buckets.WithLabelValues(result.Bucket).Inc()
		m.copyDuration.Observe(result.Duration.Seconds())
	case models.StatusPlanned:
		m.buckets.WithLabelValues(result.Bucket).Inc()
	}
}

func (m *MetricsLogger) LogSummary(result models.RunResult) {
	m.runDuration.Set(result.Duration.Seconds())
	m.lastRun.Set(float64(time.Now().Unix()))
}

// WriteTextfile writes the registry in text exposition format to path,
// creating the parent directory if needed. The write is atomic.
func (m *MetricsLogger) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
