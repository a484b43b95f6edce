package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/extsort/internal/fileutil"
	"github.com/harrison/extsort/internal/sorter"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides, e.g. EXTSORT_WORKERS
const EnvPrefix = "extsort"

// MaxWorkers caps the copy worker pool
const MaxWorkers = 256

// Config represents extsort configuration options
type Config struct {
	// Workers is the number of concurrent copy workers
	Workers int `yaml:"workers"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is where per-run JSON logs are written (empty disables the file log)
	LogDir string `yaml:"log_dir"`

	// FallbackBucket receives files without an extension
	FallbackBucket string `yaml:"fallback_bucket"`

	// Exclude lists doublestar patterns skipped during the walk
	Exclude []string `yaml:"exclude"`

	// FollowSymlinks resolves symbolic links; when false they are skipped
	FollowSymlinks bool `yaml:"follow_symlinks"`

	// SniffExtensionless buckets extensionless files by detected content type
	SniffExtensionless bool `yaml:"sniff_extensionless"`

	// PreserveMetadata copies permission bits and modification times
	PreserveMetadata bool `yaml:"preserve_metadata"`

	// DryRun computes targets without writing anything
	DryRun bool `yaml:"dry_run"`

	// ReportFile is where the YAML run report is written (empty disables it)
	ReportFile string `yaml:"report_file"`

	// MetricsFile is where the Prometheus textfile is written (empty disables it)
	MetricsFile string `yaml:"metrics_file"`

	// Progress prints a progress line every 10% of files
	Progress bool `yaml:"progress"`
}

// Overrides holds optional values layered over a Config.
// Nil fields leave the existing value unchanged.
type Overrides struct {
	Workers            *int     `yaml:"workers" envconfig:"WORKERS"`
	LogLevel           *string  `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogDir             *string  `yaml:"log_dir" envconfig:"LOG_DIR"`
	FallbackBucket     *string  `yaml:"fallback_bucket" envconfig:"FALLBACK_BUCKET"`
	Exclude            []string `yaml:"exclude" envconfig:"EXCLUDE"`
	FollowSymlinks     *bool    `yaml:"follow_symlinks" envconfig:"FOLLOW_SYMLINKS"`
	SniffExtensionless *bool    `yaml:"sniff_extensionless" envconfig:"SNIFF_EXTENSIONLESS"`
	PreserveMetadata   *bool    `yaml:"preserve_metadata" envconfig:"PRESERVE_METADATA"`
	DryRun             *bool    `yaml:"dry_run" envconfig:"DRY_RUN"`
	ReportFile         *string  `yaml:"report_file" envconfig:"REPORT_FILE"`
	MetricsFile        *string  `yaml:"metrics_file" envconfig:"METRICS_FILE"`
	Progress           *bool    `yaml:"progress" envconfig:"PROGRESS"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Workers:          1,
		LogLevel:         "info",
		FallbackBucket:   sorter.DefaultFallbackBucket,
		FollowSymlinks:   true,
		PreserveMetadata: true,
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Pointer fields distinguish "absent" from an explicit zero value
	var fileCfg Overrides
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.apply(fileCfg)
	return cfg, nil
}

// LoadConfigFromDir loads configuration from .extsort/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".extsort", "config.yaml"))
}

// ApplyEnv overlays EXTSORT_* environment variables onto the configuration.
// EXTSORT_EXCLUDE is a comma-separated list.
func (c *Config) ApplyEnv() error {
	var env Overrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("invalid environment configuration: %w", err)
	}
	c.apply(env)
	return nil
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(flags Overrides) {
	c.apply(flags)
}

func (c *Config) apply(o Overrides) {
	if o.Workers != nil {
		c.Workers = *o.Workers
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.LogDir != nil {
		c.LogDir = *o.LogDir
	}
	if o.FallbackBucket != nil {
		c.FallbackBucket = *o.FallbackBucket
	}
	if o.Exclude != nil {
		c.Exclude = o.Exclude
	}
	if o.FollowSymlinks != nil {
		c.FollowSymlinks = *o.FollowSymlinks
	}
	if o.SniffExtensionless != nil {
		c.SniffExtensionless = *o.SniffExtensionless
	}
	if o.PreserveMetadata != nil {
		c.PreserveMetadata = *o.PreserveMetadata
	}
	if o.DryRun != nil {
		c.DryRun = *o.DryRun
	}
	if o.ReportFile != nil {
		c.ReportFile = *o.ReportFile
	}
	if o.MetricsFile != nil {
		c.MetricsFile = *o.MetricsFile
	}
	if o.Progress != nil {
		c.Progress = *o.Progress
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.Workers < 1 || c.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d, got %d", MaxWorkers, c.Workers)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if err := validateBucketName(c.FallbackBucket); err != nil {
		return fmt.Errorf("invalid fallback_bucket: %w", err)
	}

	if _, err := fileutil.NewMatcher(c.Exclude); err != nil {
		return err
	}

	return nil
}

// validateBucketName rejects names that would not resolve to a single
// directory directly under the destination root.
func validateBucketName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("must not be empty")
	case name == "." || name == "..":
		return fmt.Errorf("%q is not a directory name", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%q must not contain path separators", name)
	}
	return nil
}
