package fsx

import (
	"fmt"
	"path"

	"github.com/gobwas/glob"
)

// NameMatcher matches base file names against a set of glob patterns such as "*.json".
type NameMatcher struct {
	patterns []string
	globs    []glob.Glob
}

// NewNameMatcher compiles the given glob patterns. At least one pattern is required.
func NewNameMatcher(patterns ...string) (*NameMatcher, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("at least one file pattern is required")
	}

	m := &NameMatcher{patterns: patterns}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile glob pattern '%s': %w", pattern, err)
		}
		m.globs = append(m.globs, g)
	}

	return m, nil
}

// Match reports whether the base name of p matches any of the patterns.
func (m *NameMatcher) Match(p string) bool {
	name := path.Base(p)
	for _, g := range m.globs {
		if g.Match(name) {
			return true
		}
	}

	return false
}

func (m *NameMatcher) Patterns() []string {
	return m.patterns
}
