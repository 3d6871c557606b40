package gitstore

import (
	"path/filepath"
	"strings"
)

// placeholderFile keeps otherwise-empty directories tracked by git. It is
// hidden from tree listings and excluded from the directory-emptiness check.
const placeholderFile = ".gitkeep"

// ignorePattern is a parsed pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool // true = match the relative path; false = basename only
}

// IgnoreMatcher hides configured paths from tree listings and article walks.
// Patterns without '/' match the basename, patterns with '/' match the full
// relative path. Git metadata and dotfiles are always skipped regardless.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher parses raw pattern strings, skipping blanks and comments.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		// Directory patterns may be written with a trailing slash.
		raw = strings.TrimSuffix(raw, "/")
		patterns = append(patterns, ignorePattern{
			pattern:   raw,
			matchPath: strings.Contains(raw, "/"),
		})
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether the slash-separated relative path is ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	base := filepath.Base(relativePath)
	if strings.HasPrefix(base, ".") {
		return true
	}
	for _, p := range m.patterns {
		target := base
		if p.matchPath {
			target = relativePath
		}
		matched, err := filepath.Match(p.pattern, target)
		if err != nil {
			// Bad pattern, skip rather than fail the walk.
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
