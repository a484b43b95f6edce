package fileutil

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher matches paths against a set of doublestar exclude patterns
type Matcher struct {
	patterns []string
}

// NewMatcher validates and compiles the exclude patterns.
// A nil or empty list yields a matcher that never matches.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{patterns: make([]string, 0, len(patterns))}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
		m.patterns = append(m.patterns, p)
	}
	return m, nil
}

// Match reports whether the relative slash path or the base name matches any pattern
func (m *Matcher) Match(rel, name string) bool {
	if m == nil {
		return false
	}
	for _, p := range m.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}
