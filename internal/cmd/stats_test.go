package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCommand(t *testing.T) {
	src := createSourceTree(t)

	output, err := executeCommand(t, "stats", src)
	require.NoError(t, err)

	assert.Contains(t, output, "Source: "+src)
	assert.Contains(t, output, "Folders: 3")
	assert.Contains(t, output, "Files: 5 (")
	assert.Contains(t, output, "BUCKET")

	_, tableText, found := strings.Cut(output, "BUCKET")
	require.True(t, found)
	var table []string
	for _, l := range strings.Split(tableText, "\n")[1:] {
		if fields := strings.Fields(l); len(fields) == 3 {
			table = append(table, strings.Join(fields, " "))
		}
	}
	assert.Equal(t, []string{
		"txt 2 40.0%",
		"gz 1 20.0%",
		"no_extension 1 20.0%",
		"tmp 1 20.0%",
	}, table)
}

func TestStatsCommand_WritesNothing(t *testing.T) {
	src := createSourceTree(t)
	before, err := os.ReadDir(src)
	require.NoError(t, err)

	_, err = executeCommand(t, "stats", src)
	require.NoError(t, err)

	after, err := os.ReadDir(src)
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))
}

func TestStatsCommand_HonoursExcludeAndFallback(t *testing.T) {
	src := createSourceTree(t)

	output, err := executeCommand(t, "stats", "--exclude", "docs", "--fallback", "bare", src)
	require.NoError(t, err)

	assert.Contains(t, output, "Files: 2 (")
	assert.Contains(t, output, "bare")
	assert.NotContains(t, output, "gz")
}

func TestStatsCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := executeCommand(t, "stats", filepath.Join(dir, "missing"))
	assert.Error(t, err)

	_, err = executeCommand(t, "stats", file)
	assert.Error(t, err)

	_, err = executeCommand(t, "stats")
	assert.Error(t, err)
}
