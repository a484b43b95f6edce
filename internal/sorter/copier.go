package sorter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harrison/extsort/internal/filelock"
	"github.com/harrison/extsort/internal/models"
)

// Copier routes single files into bucket directories under a destination root
type Copier struct {
	destRoot   string
	classifier Classifier
	preserve   bool
	dryRun     bool
}

// NewCopier creates a Copier writing under destRoot
func NewCopier(destRoot string, classifier Classifier, preserveMetadata, dryRun bool) *Copier {
	return &Copier{
		destRoot:   destRoot,
		classifier: classifier,
		preserve:   preserveMetadata,
		dryRun:     dryRun,
	}
}

// TargetPath returns the bucket and the path filePath would be copied to
func (c *Copier) TargetPath(filePath string) (bucket, target string) {
	bucket = c.classifier.Classify(filePath)
	target = filepath.Join(c.destRoot, bucket, filepath.Base(filePath))
	return bucket, target
}

// ClassifyAndCopy copies one file into destRoot/<bucket>/<name>, creating the
// bucket directory if needed and replacing any file already at the target.
// Failures are reported in the result, never returned; the source is not modified.
func (c *Copier) ClassifyAndCopy(filePath string) models.CopyResult {
	start := time.Now()
	bucket, target := c.TargetPath(filePath)

	result := models.CopyResult{
		Source: filePath,
		Target: target,
		Bucket: bucket,
	}

	if c.dryRun {
		result.Status = models.StatusPlanned
		result.Duration = time.Since(start)
		return result
	}

	targetDir := filepath.Dir(target)
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		result.Status = models.StatusFailed
		result.Error = fmt.Errorf("failed to create bucket directory %s: %w", targetDir, err)
		result.Duration = time.Since(start)
		return result
	}

	n, err := filelock.AtomicCopy(filePath, target, c.preserve)
	result.Bytes = n
	result.Duration = time.Since(start)

	var metaErr *filelock.MetadataError
	switch {
	case err == nil:
		result.Status = models.StatusCopied
	case errors.As(err, &metaErr):
		result.Status = models.StatusCopied
		result.Warning = metaErr.Error()
	default:
		result.Status = models.StatusFailed
		result.Bytes = 0
		result.Error = err
	}

	return result
}
