package sorter

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultFallbackBucket is the bucket used for files without an extension
const DefaultFallbackBucket = "no_extension"

// Extension returns the lower-cased text after the last dot of a file's base
// name, without the dot. It returns "" when there is no dot, when the only
// dot leads the name (".bashrc"), or when the name ends with a dot.
func Extension(filename string) string {
	name := filepath.Base(filename)
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// BucketName returns the bucket a file is routed to: its extension, or
// fallback when it has none.
func BucketName(filename, fallback string) string {
	if ext := Extension(filename); ext != "" {
		return ext
	}
	return fallback
}

// Classifier maps file paths to bucket names
type Classifier struct {
	// Fallback is the bucket for files without an extension
	Fallback string
	// Sniff detects the content type of extensionless files and buckets
	// them by the detected type's canonical extension
	Sniff bool
}

// Classify returns the bucket for the file at path. Sniffing reads the file
// head; if detection fails or yields no extension the fallback is used.
func (c Classifier) Classify(path string) string {
	fallback := c.Fallback
	if fallback == "" {
		fallback = DefaultFallbackBucket
	}

	if ext := Extension(path); ext != "" {
		return ext
	}
	if !c.Sniff {
		return fallback
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fallback
	}
	if ext := strings.TrimPrefix(mtype.Extension(), "."); ext != "" {
		return strings.ToLower(ext)
	}
	return fallback
}
