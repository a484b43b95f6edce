package fileutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher(t *testing.T) {
	m, err := NewMatcher([]string{"*.tmp", "build/**", "", "node_modules"})
	require.NoError(t, err)

	tests := []struct {
		rel  string
		name string
		want bool
	}{
		{"cache.tmp", "cache.tmp", true},
		{"a/b/cache.tmp", "cache.tmp", true},
		{"build/out/app.bin", "app.bin", true},
		{"src/build/app.bin", "app.bin", false},
		{"web/node_modules", "node_modules", true},
		{"notes.txt", "notes.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.rel, tt.name))
		})
	}
}

func TestMatcher_NoPatterns(t *testing.T) {
	m, err := NewMatcher(nil)
	require.NoError(t, err)
	assert.False(t, m.Match("a.txt", "a.txt"))

	var nilMatcher *Matcher
	assert.False(t, nilMatcher.Match("a.txt", "a.txt"))
}

func TestMatcher_InvalidPattern(t *testing.T) {
	_, err := NewMatcher([]string{"ok/*", "[oops"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid exclude pattern "[oops"`)
}
