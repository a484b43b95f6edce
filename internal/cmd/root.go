package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for extsort.
// The root command itself performs the sort.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extsort <source> <output>",
		Short: "Sort a directory tree into folders by file extension",
		Long: `extsort walks a source directory recursively and copies every regular
file into <output>/<extension>/<name>. Extensions are lower-cased and only
the final suffix counts, so Report.TXT goes to txt/ and archive.tar.gz goes
to gz/. Files without an extension go to no_extension/.

A file or folder that cannot be read is logged and skipped; the rest of the
tree is still sorted.

Configuration is loaded from .extsort/config.yaml if present, then from
EXTSORT_* environment variables. CLI flags override both.

Examples:
  extsort ~/Downloads ~/Sorted
  extsort --workers 8 --exclude '*.tmp' --exclude .git src out
  extsort --dry-run --report plan.yaml src out
  extsort stats ~/Downloads`,
		Args:    cobra.ExactArgs(2),
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		RunE:         runCommand,
	}

	addSharedFlags(cmd)
	addRunFlags(cmd)

	cmd.AddCommand(NewStatsCommand())

	return cmd
}
