package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/harrison/extsort/internal/logger"
	"github.com/harrison/extsort/internal/models"
	"github.com/harrison/extsort/internal/sorter"
	"github.com/spf13/cobra"
)

// runCommand sorts args[0] into args[1]. Per-file failures are reported in
// the summary and do not produce an error.
func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	source, dest := args[0], args[1]
	out := cmd.OutOrStdout()

	console := logger.NewConsoleLogger(out, cfg.LogLevel)
	multiLog := &multiLogger{loggers: []sorter.Logger{console}}

	if cfg.LogDir != "" {
		fileLog, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		defer fileLog.Close()
		multiLog.loggers = append(multiLog.loggers, fileLog)
		console.LogDebug(fmt.Sprintf("Writing run log to %s", fileLog.Path()))
	}

	var metrics *logger.MetricsLogger
	if cfg.MetricsFile != "" {
		metrics = logger.NewMetricsLogger()
		multiLog.loggers = append(multiLog.loggers, metrics)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := sorter.New(sorter.Options{
		Workers:          cfg.Workers,
		Fallback:         cfg.FallbackBucket,
		Exclude:          cfg.Exclude,
		SkipSymlinks:     !cfg.FollowSymlinks,
		Sniff:            cfg.SniffExtensionless,
		PreserveMetadata: cfg.PreserveMetadata,
		DryRun:           cfg.DryRun,
	}, multiLog)

	if cfg.Progress {
		survey, err := s.Survey(ctx, source, dest)
		if err != nil {
			multiLog.LogWarn(fmt.Sprintf("Could not count files for progress: %v", err))
		} else {
			console.SetProgressTotal(survey.Files)
		}
	}

	result, runErr := s.Run(ctx, source, dest)
	if result == nil {
		return runErr
	}

	var outputErrs []error
	if cfg.ReportFile != "" {
		if err := sorter.WriteReport(cfg.ReportFile, result); err != nil {
			multiLog.LogError(fmt.Sprintf("Failed to write report %s: %v", cfg.ReportFile, err))
			outputErrs = append(outputErrs, err)
		} else {
			multiLog.LogInfo(fmt.Sprintf("Report written to %s", cfg.ReportFile))
		}
	}
	if metrics != nil {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			multiLog.LogError(fmt.Sprintf("Failed to write metrics %s: %v", cfg.MetricsFile, err))
			outputErrs = append(outputErrs, err)
		} else {
			multiLog.LogInfo(fmt.Sprintf("Metrics written to %s", cfg.MetricsFile))
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("interrupted after %d files: %w", result.Processed(), runErr)
		}
		return runErr
	}
	return errors.Join(outputErrs...)
}

// messageLogger is implemented by loggers that accept free-form messages
type messageLogger interface {
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
}

// multiLogger implements sorter.Logger by delegating to multiple loggers.
// Free-form messages go to the loggers that implement messageLogger.
type multiLogger struct {
	loggers []sorter.Logger
}

func (ml *multiLogger) LogInfo(message string) {
	for _, l := range ml.loggers {
		if m, ok := l.(messageLogger); ok {
			m.LogInfo(message)
		}
	}
}

func (ml *multiLogger) LogWarn(message string) {
	for _, l := range ml.loggers {
		if m, ok := l.(messageLogger); ok {
			m.LogWarn(message)
		}
	}
}

func (ml *multiLogger) LogError(message string) {
	for _, l := range ml.loggers {
		if m, ok := l.(messageLogger); ok {
			m.LogError(message)
		}
	}
}

func (ml *multiLogger) LogDirEnter(dir string) {
	for _, l := range ml.loggers {
		l.LogDirEnter(dir)
	}
}

func (ml *multiLogger) LogDirError(dir string, err error) {
	for _, l := range ml.loggers {
		l.LogDirError(dir, err)
	}
}

func (ml *multiLogger) LogSkip(path, reason string) {
	for _, l := range ml.loggers {
		l.LogSkip(path, reason)
	}
}

func (ml *multiLogger) LogCopy(result models.CopyResult) {
	for _, l := range ml.loggers {
		l.LogCopy(result)
	}
}

func (ml *multiLogger) LogSummary(result models.RunResult) {
	for _, l := range ml.loggers {
		l.LogSummary(result)
	}
}
