package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/docker/go-units"
	"github.com/harrison/extsort/internal/fileutil"
	"github.com/harrison/extsort/internal/sorter"
	"github.com/spf13/cobra"
)

// NewStatsCommand creates the stats command
func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <source>",
		Short: "Show how a directory tree would be bucketed without copying",
		Long: `Walk a source directory in parallel and print how many files would land
in each extension bucket. Nothing is written.

The same --exclude, --fallback, --no-follow-symlinks and --sniff settings as a
sort run apply.

Examples:
  extsort stats ~/Downloads
  extsort stats --exclude node_modules --sniff ./project`,
		Args: cobra.ExactArgs(1),
		RunE: statsCommand,
	}
}

func statsCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s := sorter.New(sorter.Options{
		Fallback:     cfg.FallbackBucket,
		Exclude:      cfg.Exclude,
		SkipSymlinks: !cfg.FollowSymlinks,
		Sniff:        cfg.SniffExtensionless,
	}, nil)

	survey, err := s.Survey(cmd.Context(), args[0], "")
	if err != nil {
		return err
	}

	printSurvey(cmd.OutOrStdout(), args[0], survey)
	return nil
}

// printSurvey renders a bucket table, largest bucket first
func printSurvey(w io.Writer, source string, survey *fileutil.SurveyResult) {
	fmt.Fprintf(w, "Source: %s\n", source)
	fmt.Fprintf(w, "Folders: %d\n", survey.Dirs)
	fmt.Fprintf(w, "Files: %d (%s)\n", survey.Files, units.BytesSize(float64(survey.Bytes)))

	if len(survey.Buckets) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "BUCKET\tFILES\tSHARE")
		for _, b := range sorter.SortedBuckets(survey.Buckets) {
			share := float64(b.Files) * 100 / float64(survey.Files)
			fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", b.Name, b.Files, share)
		}
		tw.Flush()
	}

	if len(survey.Errors) > 0 {
		fmt.Fprintf(w, "\nUnreadable entries: %d\n", len(survey.Errors))
		for _, e := range survey.Errors {
			fmt.Fprintf(w, "  %v\n", e)
		}
	}
}
