package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harrison/extsort/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LatestLogName is the symlink in the log directory pointing at the newest run log
const LatestLogName = "latest.log"

// FileLogger writes one JSON object per event to a timestamped run log in
// logDir and keeps latest.log pointing at it. It is safe for concurrent use.
type FileLogger struct {
	runFile string
	file    *os.File
	zl      *zap.Logger
	mu      sync.Mutex
	closed  bool
}

// NewFileLogger creates a FileLogger that writes to logDir, creating the
// directory if needed. Events below logLevel are dropped.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log
	ts := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", ts))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, LatestLogName)
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.Lock(file),
		zapLevel(logLevel),
	)

	fl := &FileLogger{
		runFile: runFile,
		file:    file,
		zl:      zap.New(core),
	}
	fl.zl.Info("run log opened", zap.Int("pid", os.Getpid()))

	return fl, nil
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// zapLevel maps a console level name onto zap. trace has no zap
// equivalent and is treated as debug.
func zapLevel(level string) zapcore.Level {
	switch normalizeLogLevel(level) {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Path returns the run log file path
func (fl *FileLogger) Path() string {
	return fl.runFile
}

// LogInfo logs a free-form info message.
func (fl *FileLogger) LogInfo(message string) {
	fl.zl.Info(message)
}

// LogWarn logs a free-form warning.
func (fl *FileLogger) LogWarn(message string) {
	fl.zl.Warn(message)
}

// LogError logs a free-form error.
func (fl *FileLogger) LogError(message string) {
	fl.zl.Error(message)
}

func (fl *FileLogger) LogDirEnter(dir string) {
	fl.zl.Info("reading folder", zap.String("dir", dir))
}

func (fl *FileLogger) LogDirError(dir string, err error) {
	fl.zl.Error("error reading folder", zap.String("dir", dir), zap.Error(err))
}

func (fl *FileLogger) LogSkip(path, reason string) {
	fl.zl.Debug("skipped", zap.String("path", path), zap.String("reason", reason))
}

func (fl *FileLogger) LogCopy(result models.CopyResult) {
	fields := []zap.Field{
		zap.String("source", result.Source),
		zap.String("target", result.Target),
		zap.String("bucket", result.Bucket),
		zap.Duration("duration", result.Duration),
	}

	switch result.Status {
	case models.StatusCopied:
		fl.zl.Info("copied", append(fields, zap.Int64("bytes", result.Bytes))...)
		if result.Warning != "" {
			fl.zl.Warn(result.Warning, zap.String("source", result.Source), zap.String("target", result.Target))
		}
	case models.StatusPlanned:
		fl.zl.Info("planned", fields...)
	case models.StatusFailed:
		fl.zl.Error("copy failed", append(fields, zap.Error(result.Error))...)
	}
}

func (fl *FileLogger) LogSummary(result models.RunResult) {
	fl.zl.Info("run complete",
		zap.String("run_id", result.RunID),
		zap.String("source", result.Source),
		zap.String("destination", result.Destination),
		zap.Bool("dry_run", result.DryRun),
		zap.Int("dirs_visited", result.DirsVisited),
		zap.Int("copied", result.Copied),
		zap.Int("planned", result.Planned),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Int("dir_errors", len(result.DirErrors)),
		zap.Int64("bytes", result.Bytes),
		zap.Any("buckets", result.Buckets),
		zap.Duration("duration", result.Duration),
	)
}

// Close flushes and closes the run log. It is safe to call more than once.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.closed {
		return nil
	}
	fl.closed = true

	if err := fl.zl.Sync(); err != nil {
		fl.file.Close()
		return fmt.Errorf("failed to flush run log: %w", err)
	}
	return fl.file.Close()
}
