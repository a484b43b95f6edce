package cmd

import (
	"fmt"

	"github.com/harrison/extsort/internal/config"
	"github.com/spf13/cobra"
)

// addSharedFlags registers flags understood by every command
func addSharedFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.String("config", "", "Path to config file (default: .extsort/config.yaml)")
	pf.String("log-level", "", "Log level: trace, debug, info, warn, error")
	pf.Bool("verbose", false, "Shorthand for --log-level debug")
	pf.String("fallback", "", "Bucket for files without an extension (default: no_extension)")
	pf.StringArray("exclude", nil, "Glob of files or folders to skip (repeatable, ** supported)")
	pf.Bool("no-follow-symlinks", false, "Skip symbolic links instead of following them")
	pf.Bool("sniff", false, "Bucket extensionless files by detected content type")
}

// addRunFlags registers flags that only apply to a sort run
func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("workers", 0, "Number of concurrent copy workers (default from config: 1)")
	f.String("log-dir", "", "Directory for JSON run logs (disabled when empty)")
	f.Bool("no-preserve-metadata", false, "Do not copy permission bits and modification times")
	f.Bool("dry-run", false, "Show where files would go without copying anything")
	f.String("report", "", "Write a YAML run report to this path")
	f.String("metrics-file", "", "Write Prometheus metrics in textfile format to this path")
	f.Bool("progress", false, "Count files first and print progress every 10%")
}

// loadConfig builds the effective configuration for cmd:
// defaults, then the config file, then EXTSORT_* variables, then flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	cfg.MergeWithFlags(flagOverrides(cmd))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// flagOverrides collects only the flags the user actually set
func flagOverrides(cmd *cobra.Command) config.Overrides {
	flags := cmd.Flags()
	var o config.Overrides

	if flags.Changed("workers") {
		v, _ := flags.GetInt("workers")
		o.Workers = &v
	}
	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		o.LogLevel = &v
	}
	if flags.Changed("verbose") {
		if v, _ := flags.GetBool("verbose"); v && !flags.Changed("log-level") {
			level := "debug"
			o.LogLevel = &level
		}
	}
	if flags.Changed("log-dir") {
		v, _ := flags.GetString("log-dir")
		o.LogDir = &v
	}
	if flags.Changed("fallback") {
		v, _ := flags.GetString("fallback")
		o.FallbackBucket = &v
	}
	if flags.Changed("exclude") {
		v, _ := flags.GetStringArray("exclude")
		o.Exclude = v
	}
	if flags.Changed("no-follow-symlinks") {
		v, _ := flags.GetBool("no-follow-symlinks")
		follow := !v
		o.FollowSymlinks = &follow
	}
	if flags.Changed("sniff") {
		v, _ := flags.GetBool("sniff")
		o.SniffExtensionless = &v
	}
	if flags.Changed("no-preserve-metadata") {
		v, _ := flags.GetBool("no-preserve-metadata")
		preserve := !v
		o.PreserveMetadata = &preserve
	}
	if flags.Changed("dry-run") {
		v, _ := flags.GetBool("dry-run")
		o.DryRun = &v
	}
	if flags.Changed("report") {
		v, _ := flags.GetString("report")
		o.ReportFile = &v
	}
	if flags.Changed("metrics-file") {
		v, _ := flags.GetString("metrics-file")
		o.MetricsFile = &v
	}
	if flags.Changed("progress") {
		v, _ := flags.GetBool("progress")
		o.Progress = &v
	}

	return o
}
