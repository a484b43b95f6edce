// Package logger provides the run loggers used by extsort.
//
// ConsoleLogger writes human-readable, optionally colored lines with level
// filtering. FileLogger writes structured JSON lines per run through zap.
// MetricsLogger aggregates run counters into a Prometheus registry that can be
// exported as a node_exporter textfile. All three are safe for concurrent use
// and satisfy the sorter's Logger interface.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/harrison/extsort/internal/models"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// progressStep is the percentage interval between progress lines
const progressStep = 10

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is enabled automatically when writing to a terminal.
type ConsoleLogger struct {
	writer       io.Writer
	logLevel     string
	mutex        sync.Mutex
	colorOutput  bool
	progress     *ProgressBar
	lastReported int
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
// NO_COLOR disables color even on a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if f != os.Stdout && f != os.Stderr {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if validLevels[normalized] {
		return normalized
	}

	return "info"
}

// shouldLog checks if a message at the given level should be logged.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	cl.writeLine(level, message)
}

// writeLine formats and writes one line. Caller holds the mutex.
func (cl *ConsoleLogger) writeLine(level, message string) {
	ts := timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = cl.formatWithColor(ts, level, message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}
	cl.writer.Write([]byte(formatted))
}

// formatWithColor formats a log message with ANSI color codes.
func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var coloredLevel string

	switch strings.ToUpper(level) {
	case "TRACE":
		coloredLevel = color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		coloredLevel = color.New(color.FgCyan).Sprint(level)
	case "INFO":
		coloredLevel = color.New(color.FgBlue).Sprint(level)
	case "WARN":
		coloredLevel = color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		coloredLevel = color.New(color.FgRed).Sprint(level)
	default:
		coloredLevel = level
	}

	return fmt.Sprintf("[%s] [%s] %s\n", ts, coloredLevel, message)
}

// SetProgressTotal enables progress lines for a run expected to process total
// files. A progress line is written each time another 10% completes.
// A total below 1 disables progress output.
func (cl *ConsoleLogger) SetProgressTotal(total int) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	cl.lastReported = 0
	if total < 1 {
		cl.progress = nil
		return
	}
	cl.progress = NewProgressBar(total, 20, cl.colorOutput)
	cl.progress.SetPrefix("Progress: ")
}

// LogDirEnter logs a directory being read.
func (cl *ConsoleLogger) LogDirEnter(dir string) {
	cl.logWithLevel("INFO", fmt.Sprintf("Reading folder: %s", dir))
}

// LogDirError logs a directory whose entries could not be read.
func (cl *ConsoleLogger) LogDirError(dir string, err error) {
	cl.logWithLevel("ERROR", fmt.Sprintf("Error reading folder %s: %v", dir, err))
}

// LogSkip logs an entry left out of the run at DEBUG level.
func (cl *ConsoleLogger) LogSkip(path, reason string) {
	cl.logWithLevel("DEBUG", fmt.Sprintf("Skipped %s (%s)", path, reason))
}

// LogCopy logs the outcome of one file and advances the progress bar.
// Copies are logged at INFO, failures at ERROR and metadata warnings at WARN.
func (cl *ConsoleLogger) LogCopy(result models.CopyResult) {
	if cl.writer == nil {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	switch result.Status {
	case models.StatusCopied:
		if cl.shouldLog("info") {
			cl.writeLine("INFO", fmt.Sprintf("Copied %s to %s", result.Source, result.Target))
		}
		if result.Warning != "" && cl.shouldLog("warn") {
			cl.writeLine("WARN", result.Warning)
		}
	case models.StatusPlanned:
		if cl.shouldLog("info") {
			cl.writeLine("INFO", fmt.Sprintf("Would copy %s to %s", result.Source, result.Target))
		}
	case models.StatusFailed:
		if cl.shouldLog("error") {
			cl.writeLine("ERROR", fmt.Sprintf("Failed to copy %s: %v", result.Source, result.Error))
		}
	}

	cl.advanceProgress()
}

// advanceProgress increments the bar and writes a line on each new step.
// Caller holds the mutex.
func (cl *ConsoleLogger) advanceProgress() {
	if cl.progress == nil {
		return
	}

	cl.progress.Increment()
	perc := cl.progress.Percentage()
	step := (perc / progressStep) * progressStep
	if step <= cl.lastReported || !cl.shouldLog("info") {
		return
	}
	cl.lastReported = step

	fmt.Fprintf(cl.writer, "[%s] %s\n", timestamp(), cl.progress.Render())
}

// LogSummary logs the run summary with per-bucket counts at INFO level.
func (cl *ConsoleLogger) LogSummary(result models.RunResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	scheme := newColorScheme(cl.colorOutput)
	ts := timestamp()

	header := "=== Sort Summary ==="
	if result.DryRun {
		header = "=== Sort Summary (dry run) ==="
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", ts, scheme.header.Sprint(header))
	fmt.Fprintf(&b, "[%s] Run ID: %s\n", ts, result.RunID)
	fmt.Fprintf(&b, "[%s] Folders read: %d\n", ts, result.DirsVisited)
	if result.DryRun {
		fmt.Fprintf(&b, "[%s] %s\n", ts, scheme.success.Sprintf("Planned: %d", result.Planned))
	} else {
		fmt.Fprintf(&b, "[%s] %s (%s)\n", ts, scheme.success.Sprintf("Copied: %d", result.Copied), formatBytes(result.Bytes))
	}
	fmt.Fprintf(&b, "[%s] %s\n", ts, scheme.countLine("Failed", result.Failed, scheme.fail))
	fmt.Fprintf(&b, "[%s] %s\n", ts, scheme.countLine("Folder errors", len(result.DirErrors), scheme.fail))
	fmt.Fprintf(&b, "[%s] %s\n", ts, scheme.countLine("Skipped", result.Skipped, scheme.warn))
	fmt.Fprintf(&b, "[%s] Duration: %s\n", ts, formatDuration(result.Duration))

	for _, line := range formatBucketTable(result.Buckets, scheme) {
		fmt.Fprintf(&b, "[%s] %s\n", ts, line)
	}

	for _, f := range result.Failures {
		fmt.Fprintf(&b, "[%s]   %s %s: %v\n", ts, scheme.fail.Sprint("x"), f.Source, f.Error)
	}
	for _, d := range result.DirErrors {
		fmt.Fprintf(&b, "[%s]   %s %s: %s\n", ts, scheme.fail.Sprint("x"), d.Path, d.Error)
	}

	cl.writer.Write([]byte(b.String()))
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a short human-readable string.
// Sub-second durations are shown in milliseconds.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		minutes := (d % time.Hour) / time.Minute
		seconds := (d % time.Minute) / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d >= time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	return units.BytesSize(float64(n))
}
