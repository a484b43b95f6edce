package sorter

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/harrison/extsort/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopier_ClassifyAndCopy(t *testing.T) {
	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "out")

	file := filepath.Join(src, "Report.TXT")
	require.NoError(t, os.WriteFile(file, []byte("quarterly"), 0644))

	c := NewCopier(dest, Classifier{}, true, false)
	res := c.ClassifyAndCopy(file)

	require.NoError(t, res.Error)
	assert.Equal(t, models.StatusCopied, res.Status)
	assert.Equal(t, "txt", res.Bucket)
	assert.Equal(t, filepath.Join(dest, "txt", "Report.TXT"), res.Target)
	assert.Equal(t, int64(len("quarterly")), res.Bytes)

	data, err := os.ReadFile(res.Target)
	require.NoError(t, err)
	assert.Equal(t, "quarterly", string(data))

	// Source is untouched
	data, err = os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "quarterly", string(data))
}

func TestCopier_FallbackBucket(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	file := filepath.Join(src, "Makefile")
	require.NoError(t, os.WriteFile(file, []byte("all:"), 0644))

	res := NewCopier(dest, Classifier{Fallback: DefaultFallbackBucket}, true, false).ClassifyAndCopy(file)
	require.Equal(t, models.StatusCopied, res.Status)
	assert.FileExists(t, filepath.Join(dest, DefaultFallbackBucket, "Makefile"))
}

func TestCopier_OverwritesExistingTarget(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dest, "md"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dest, "md", "notes.md"), []byte("stale"), 0644))

	file := filepath.Join(src, "notes.md")
	require.NoError(t, os.WriteFile(file, []byte("fresh"), 0644))

	res := NewCopier(dest, Classifier{}, true, false).ClassifyAndCopy(file)
	require.Equal(t, models.StatusCopied, res.Status)

	data, err := os.ReadFile(filepath.Join(dest, "md", "notes.md"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestCopier_PreservesMetadata(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	file := filepath.Join(src, "run.sh")
	require.NoError(t, os.WriteFile(file, []byte("#!/bin/sh\n"), 0755))
	mtime := time.Date(2019, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(file, mtime, mtime))

	res := NewCopier(dest, Classifier{}, true, false).ClassifyAndCopy(file)
	require.Equal(t, models.StatusCopied, res.Status)
	assert.Empty(t, res.Warning)

	info, err := os.Stat(res.Target)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime), "mtime %v != %v", info.ModTime(), mtime)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
	}
}

func TestCopier_SourceVanished(t *testing.T) {
	dest := t.TempDir()
	missing := filepath.Join(t.TempDir(), "gone.pdf")

	res := NewCopier(dest, Classifier{}, true, false).ClassifyAndCopy(missing)

	assert.Equal(t, models.StatusFailed, res.Status)
	assert.ErrorIs(t, res.Error, os.ErrNotExist)
	assert.Zero(t, res.Bytes)
	assert.NoFileExists(t, filepath.Join(dest, "pdf", "gone.pdf"))
}

func TestCopier_BucketBlockedByFile(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()

	// A regular file where the bucket directory should be
	require.NoError(t, os.WriteFile(filepath.Join(dest, "log"), []byte("in the way"), 0644))

	file := filepath.Join(src, "app.log")
	require.NoError(t, os.WriteFile(file, []byte("line"), 0644))

	res := NewCopier(dest, Classifier{}, true, false).ClassifyAndCopy(file)
	assert.Equal(t, models.StatusFailed, res.Status)
	assert.Contains(t, res.Error.Error(), "failed to create bucket directory")
}

func TestCopier_DryRun(t *testing.T) {
	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "never-created")

	file := filepath.Join(src, "archive.tar.gz")
	require.NoError(t, os.WriteFile(file, []byte("gz"), 0644))

	res := NewCopier(dest, Classifier{}, true, true).ClassifyAndCopy(file)

	assert.Equal(t, models.StatusPlanned, res.Status)
	assert.Equal(t, "gz", res.Bucket)
	assert.Equal(t, filepath.Join(dest, "gz", "archive.tar.gz"), res.Target)
	assert.NoDirExists(t, dest)
}
