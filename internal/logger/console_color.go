package logger

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harrison/extsort/internal/sorter"
)

// colorScheme defines consistent colors for summary output.
// Green: copied/planned counts
// Red: failures
// Yellow: skipped entries
// Cyan: bucket names
type colorScheme struct {
	header  *color.Color
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

// newColorScheme creates the summary color scheme. When enabled is false
// every color prints plain text.
func newColorScheme(enabled bool) *colorScheme {
	s := &colorScheme{
		header:  color.New(color.Bold),
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
	for _, c := range []*color.Color{s.header, s.success, s.fail, s.warn, s.label, s.value} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// countLine renders "label: n", highlighting non-zero counts with c.
func (s *colorScheme) countLine(label string, n int, c *color.Color) string {
	if n == 0 {
		return fmt.Sprintf("%s: %d", label, n)
	}
	return c.Sprintf("%s: %d", label, n)
}

// formatBucketTable renders one line per bucket, largest first.
// Format: "  <bucket>  <count>"
func formatBucketTable(buckets map[string]int, scheme *colorScheme) []string {
	if len(buckets) == 0 {
		return nil
	}

	sorted := sorter.SortedBuckets(buckets)
	width := 0
	for _, b := range sorted {
		if len(b.Name) > width {
			width = len(b.Name)
		}
	}

	lines := make([]string, 0, len(sorted)+1)
	lines = append(lines, fmt.Sprintf("Buckets: %d", len(sorted)))
	for _, b := range sorted {
		name := scheme.label.Sprintf("%-*s", width, b.Name)
		lines = append(lines, fmt.Sprintf("  %s  %s", name, scheme.value.Sprintf("%d", b.Files)))
	}
	return lines
}
