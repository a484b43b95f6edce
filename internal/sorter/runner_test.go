package sorter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"testing"

	"github.com/harrison/extsort/internal/filelock"
	"github.com/harrison/extsort/internal/fileutil"
	"github.com/harrison/extsort/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingLogger captures logger events for assertions
type recordingLogger struct {
	mu        sync.Mutex
	entered   []string
	dirErrors []string
	skipped   map[string]string
	copies    []models.CopyResult
	summaries []models.RunResult
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{skipped: make(map[string]string)}
}

func (l *recordingLogger) LogDirEnter(dir string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entered = append(l.entered, dir)
}

func (l *recordingLogger) LogDirError(dir string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dirErrors = append(l.dirErrors, dir)
}

func (l *recordingLogger) LogSkip(path, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.skipped[path] = reason
}

func (l *recordingLogger) LogCopy(result models.CopyResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.copies = append(l.copies, result)
}

func (l *recordingLogger) LogSummary(result models.RunResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.summaries = append(l.summaries, result)
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// destTree returns every file under dest as slash path -> content
func destTree(t *testing.T, dest string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(dest, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dest, path)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

func defaultOptions() Options {
	return Options{Workers: 1, PreserveMetadata: true}
}

func TestRun_SortsTreeIntoBuckets(t *testing.T) {
	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "sorted")

	writeFiles(t, src, map[string]string{
		"Report.TXT":            "report",
		"Makefile":              "make",
		"docs/archive.tar.gz":   "tarball",
		"docs/guide.md":         "guide",
		"code/main.go":          "package main",
		"code/pkg/util/util.go": "package util",
	})

	log := newRecordingLogger()
	result, err := New(defaultOptions(), log).Run(context.Background(), src, dest)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"txt/Report.TXT":          "report",
		"no_extension/Makefile":   "make",
		"gz/archive.tar.gz":       "tarball",
		"md/guide.md":             "guide",
		"go/main.go":              "package main",
		"go/util.go":              "package util",
	}, destTree(t, dest))

	assert.Equal(t, 6, result.Copied)
	assert.Zero(t, result.Failed)
	assert.Zero(t, result.Skipped)
	assert.Equal(t, 5, result.DirsVisited) // src, docs, code, code/pkg, code/pkg/util
	assert.Equal(t, map[string]int{"txt": 1, "no_extension": 1, "gz": 1, "md": 1, "go": 2}, result.Buckets)
	assert.NotEmpty(t, result.RunID)
	assert.False(t, result.HasFailures())

	assert.Len(t, log.entered, 5)
	assert.Len(t, log.copies, 6)
	require.Len(t, log.summaries, 1)
	assert.Equal(t, 6, log.summaries[0].Copied)
}

func TestRun_CreatesMissingDestination(t *testing.T) {
	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "a", "b", "c")
	writeFiles(t, src, map[string]string{"x.csv": "1,2"})

	_, err := New(defaultOptions(), nil).Run(context.Background(), src, dest)
	require.NoError(t, err)

	assert.DirExists(t, dest)
	assert.FileExists(t, filepath.Join(dest, "csv", "x.csv"))
}

func TestRun_Idempotent(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, map[string]string{
		"a.txt":     "a",
		"b/c.txt":   "c",
		"b/d/e.bin": "e",
		"README":    "readme",
	})

	s := New(defaultOptions(), nil)

	first, err := s.Run(context.Background(), src, dest)
	require.NoError(t, err)
	treeAfterFirst := destTree(t, dest)

	second, err := s.Run(context.Background(), src, dest)
	require.NoError(t, err)

	assert.Equal(t, treeAfterFirst, destTree(t, dest))
	assert.Equal(t, first.Copied, second.Copied)
	assert.Zero(t, second.Failed)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_CollisionOverwrites(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, map[string]string{
		"a/x.txt": "from a",
		"b/x.txt": "from b",
	})

	result, err := New(defaultOptions(), nil).Run(context.Background(), src, dest)
	require.NoError(t, err)

	tree := destTree(t, dest)
	require.Len(t, tree, 1)
	assert.Contains(t, []string{"from a", "from b"}, tree["txt/x.txt"])
	assert.Equal(t, 2, result.Copied)
	assert.Zero(t, result.Failed)
}

func TestRun_UnreadableSubdirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root can read directories without permission bits")
	}

	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, map[string]string{
		"top.txt":          "top",
		"locked/in.txt":    "hidden",
		"open/deep/ok.txt": "ok",
		"open/sib.md":      "sib",
	})

	locked := filepath.Join(src, "locked")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	log := newRecordingLogger()
	result, err := New(defaultOptions(), log).Run(context.Background(), src, dest)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"txt/top.txt": "top",
		"txt/ok.txt":  "ok",
		"md/sib.md":   "sib",
	}, destTree(t, dest))
	assert.Equal(t, []string{locked}, log.dirErrors)
	require.Len(t, result.DirErrors, 1)
	assert.Equal(t, locked, result.DirErrors[0].Path)
	assert.True(t, result.HasFailures())
}

// dirHookLogger runs onEnter after recording each entered directory
type dirHookLogger struct {
	*recordingLogger
	onEnter func(dir string)
}

func (l *dirHookLogger) LogDirEnter(dir string) {
	l.recordingLogger.LogDirEnter(dir)
	l.onEnter(dir)
}

func TestRun_VanishedSubdirectoryIsIsolated(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, map[string]string{
		"a/one.txt":      "one",
		"b/gone.txt":     "gone",
		"c/deep/two.txt": "two",
		"three.md":       "three",
	})

	// b is queued when the root is read, then removed before it is entered
	gone := filepath.Join(src, "b")
	log := &dirHookLogger{recordingLogger: newRecordingLogger()}
	log.onEnter = func(dir string) {
		if dir == filepath.Join(src, "a") {
			require.NoError(t, os.RemoveAll(gone))
		}
	}

	result, err := New(defaultOptions(), log).Run(context.Background(), src, dest)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"txt/one.txt": "one",
		"txt/two.txt": "two",
		"md/three.md": "three",
	}, destTree(t, dest))
	assert.Equal(t, []string{gone}, log.dirErrors)
	require.Len(t, result.DirErrors, 1)
	assert.Equal(t, gone, result.DirErrors[0].Path)
	assert.Contains(t, result.DirErrors[0].Error, "no such file or directory")
	assert.Equal(t, 5, result.DirsVisited)
	assert.Equal(t, 3, result.Copied)
	assert.True(t, result.HasFailures())
}

func TestRun_RemovesLockFile(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, map[string]string{"a.txt": "a"})

	_, err := New(defaultOptions(), nil).Run(context.Background(), src, dest)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(dest, LockFileName))
	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "txt", entries[0].Name())
}

func TestRun_CopyFailureDoesNotStopRun(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, map[string]string{
		"a.log":   "a",
		"b.txt":   "b",
		"c/d.txt": "d",
	})
	// The log bucket cannot be created because a file occupies its name
	require.NoError(t, os.WriteFile(filepath.Join(dest, "log"), []byte("blocker"), 0644))

	log := newRecordingLogger()
	result, err := New(defaultOptions(), log).Run(context.Background(), src, dest)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Copied)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, filepath.Join(src, "a.log"), result.Failures[0].Source)
	assert.FileExists(t, filepath.Join(dest, "txt", "b.txt"))
	assert.FileExists(t, filepath.Join(dest, "txt", "d.txt"))
}

func TestRun_SourceValidation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	dest := filepath.Join(dir, "out")

	s := New(defaultOptions(), nil)

	_, err := s.Run(context.Background(), filepath.Join(dir, "missing"), dest)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = s.Run(context.Background(), file, dest)
	assert.ErrorIs(t, err, fileutil.ErrNotDirectory)

	_, err = s.Run(context.Background(), dir, dir)
	assert.ErrorIs(t, err, ErrSameRoot)

	// Nothing was created for the failed runs
	assert.NoDirExists(t, dest)
}

func TestRun_DestinationInsideSource(t *testing.T) {
	src := t.TempDir()
	dest := filepath.Join(src, "sorted")
	writeFiles(t, src, map[string]string{"a.txt": "a", "sub/b.md": "b"})

	s := New(defaultOptions(), nil)
	_, err := s.Run(context.Background(), src, dest)
	require.NoError(t, err)

	// Second run must not ingest its own output
	result, err := s.Run(context.Background(), src, dest)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Copied)
	assert.Equal(t, map[string]string{"txt/a.txt": "a", "md/b.md": "b"}, destTree(t, dest))
}

func TestRun_DestinationLocked(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, map[string]string{"a.txt": "a"})

	holder := filelock.NewFileLock(filepath.Join(dest, LockFileName))
	require.NoError(t, holder.Acquire())
	defer holder.Unlock()

	_, err := New(defaultOptions(), nil).Run(context.Background(), src, dest)
	assert.ErrorIs(t, err, ErrDestinationLocked)
	assert.NoFileExists(t, filepath.Join(dest, "txt", "a.txt"))
}

func TestRun_DryRun(t *testing.T) {
	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "planned")
	writeFiles(t, src, map[string]string{"a.txt": "a", "b/c.PNG": "c", "LICENSE": "l"})

	opts := defaultOptions()
	opts.DryRun = true
	log := newRecordingLogger()

	result, err := New(opts, log).Run(context.Background(), src, dest)
	require.NoError(t, err)

	assert.True(t, result.DryRun)
	assert.Equal(t, 3, result.Planned)
	assert.Zero(t, result.Copied)
	assert.Equal(t, map[string]int{"txt": 1, "png": 1, "no_extension": 1}, result.Buckets)
	assert.NoDirExists(t, dest)

	targets := make([]string, 0, len(log.copies))
	for _, c := range log.copies {
		assert.Equal(t, models.StatusPlanned, c.Status)
		rel, _ := filepath.Rel(dest, c.Target)
		targets = append(targets, filepath.ToSlash(rel))
	}
	sort.Strings(targets)
	assert.Equal(t, []string{"no_extension/LICENSE", "png/c.PNG", "txt/a.txt"}, targets)
}

func TestRun_ExcludeAndCustomFallback(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, map[string]string{
		"keep.txt":          "k",
		"drop.tmp":          "d",
		".git/config":       "c",
		"nested/Dockerfile": "f",
	})

	opts := defaultOptions()
	opts.Exclude = []string{"*.tmp", ".git"}
	opts.Fallback = "other"

	result, err := New(opts, nil).Run(context.Background(), src, dest)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"txt/keep.txt": "k", "other/Dockerfile": "f"}, destTree(t, dest))
	assert.Equal(t, 2, result.Skipped)
}

func TestRun_WorkerPoolMatchesSequential(t *testing.T) {
	src := t.TempDir()
	files := make(map[string]string)
	for i := 0; i < 60; i++ {
		dir := []string{"a", "b/c", "d/e/f"}[i%3]
		ext := []string{"txt", "go", "json", "MD"}[i%4]
		name := fmt.Sprintf("%s/file%02d.%s", dir, i, ext)
		files[name] = name
	}
	writeFiles(t, src, files)

	seqDest := t.TempDir()
	_, err := New(defaultOptions(), nil).Run(context.Background(), src, seqDest)
	require.NoError(t, err)

	opts := defaultOptions()
	opts.Workers = 8
	parDest := t.TempDir()
	result, err := New(opts, nil).Run(context.Background(), src, parDest)
	require.NoError(t, err)

	assert.Equal(t, 60, result.Copied)
	assert.Equal(t, destTree(t, seqDest), destTree(t, parDest))
}

func TestRun_SymlinksFollowedByDefault(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}

	src := t.TempDir()
	outside := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, map[string]string{"real.txt": "real"})
	writeFiles(t, outside, map[string]string{"target.txt": "target"})
	require.NoError(t, os.Symlink(filepath.Join(outside, "target.txt"), filepath.Join(src, "link.txt")))

	result, err := New(defaultOptions(), nil).Run(context.Background(), src, dest)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Copied)
	assert.Zero(t, result.Skipped)
	data, err := os.ReadFile(filepath.Join(dest, "txt", "link.txt"))
	require.NoError(t, err)
	assert.Equal(t, "target", string(data))

	opts := defaultOptions()
	opts.SkipSymlinks = true
	result, err = New(opts, nil).Run(context.Background(), src, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Copied)
	assert.Equal(t, 1, result.Skipped)
}

func TestRun_CancelledContext(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFiles(t, src, map[string]string{"a.txt": "a", "b/c.txt": "c"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := New(defaultOptions(), nil).Run(ctx, src, dest)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, result)
	assert.Zero(t, result.Copied)
}

func TestSorter_Survey(t *testing.T) {
	src := t.TempDir()
	writeFiles(t, src, map[string]string{
		"a.txt":         "aaaa",
		"b/c.TXT":       "cc",
		"b/Makefile":    "m",
		"out/txt/x.txt": "old output",
	})

	s := New(defaultOptions(), nil)
	survey, err := s.Survey(context.Background(), src, filepath.Join(src, "out"))
	require.NoError(t, err)

	assert.Equal(t, 3, survey.Files)
	assert.Equal(t, int64(7), survey.Bytes)
	assert.Equal(t, map[string]int{"txt": 2, "no_extension": 1}, survey.Buckets)

	// Without a destination the whole tree counts
	survey, err = s.Survey(context.Background(), src, "")
	require.NoError(t, err)
	assert.Equal(t, 4, survey.Files)
}
