package gitignore

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher holds compiled gitignore patterns and provides thread-safe matching.
type Matcher struct {
	rules []rule
	mu    sync.RWMutex
}

// rule is one pattern translated to a doublestar glob.
type rule struct {
	pattern  string // original pattern
	glob     string // glob matched against the base-relative path
	negation bool   // starts with !
	dirOnly  bool   // ends with /
	base     string // base directory (for nested .gitignore)
}

// New creates a new empty Matcher.
func New() *Matcher {
	return &Matcher{}
}

// AddPattern adds a gitignore pattern rooted at the project root.
func (m *Matcher) AddPattern(pattern string) {
	m.AddPatternWithBase(pattern, "")
}

// AddPatternWithBase adds a pattern that only applies under the given base directory.
func (m *Matcher) AddPatternWithBase(pattern, base string) {
	escapedSpace := strings.HasSuffix(pattern, `\ `)
	pattern = strings.TrimSpace(pattern)

	if pattern == "" || (strings.HasPrefix(pattern, "#") && !strings.HasPrefix(pattern, `\#`)) {
		return
	}

	r := rule{pattern: pattern, base: filepath.ToSlash(base)}

	switch {
	case strings.HasPrefix(pattern, `\#`), strings.HasPrefix(pattern, `\!`):
		pattern = pattern[1:]
	case strings.HasPrefix(pattern, "!"):
		r.negation = true
		pattern = pattern[1:]
	}

	if escapedSpace && strings.HasSuffix(pattern, `\`) {
		pattern = strings.TrimSuffix(pattern, `\`) + " "
	}

	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	// A leading or inner slash anchors the pattern to the base; otherwise it
	// matches at any depth.
	anchored := strings.Contains(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")
	if anchored || strings.HasPrefix(pattern, "**/") {
		r.glob = pattern
	} else {
		r.glob = "**/" + pattern
	}

	if !doublestar.ValidatePattern(r.glob) {
		return
	}

	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// AddFromFile reads patterns from a gitignore file.
func (m *Matcher) AddFromFile(file, base string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open gitignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.AddPatternWithBase(scanner.Text(), base)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read gitignore file: %w", err)
	}

	return nil
}

// Len returns the number of active patterns.
func (m *Matcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// Match reports whether the slash- or OS-separated relative path is ignored.
// A path inside an ignored directory is ignored too; git does not allow a
// negation to re-include it.
func (m *Matcher) Match(p string, isDir bool) bool {
	p = strings.Trim(filepath.ToSlash(p), "/")
	if p == "" || p == "." {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	parts := strings.Split(p, "/")
	for i := 1; i < len(parts); i++ {
		if m.evaluate(strings.Join(parts[:i], "/"), true) {
			return true
		}
	}
	return m.evaluate(p, isDir)
}

// evaluate applies all rules in order; the last matching rule wins.
func (m *Matcher) evaluate(p string, isDir bool) bool {
	ignored := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		rel, ok := relativeTo(p, r.base)
		if !ok {
			continue
		}
		if matched, _ := doublestar.Match(r.glob, rel); matched {
			ignored = !r.negation
		}
	}
	return ignored
}

func relativeTo(p, base string) (string, bool) {
	if base == "" || base == "." {
		return p, true
	}
	if p == base {
		return path.Base(p), true
	}
	if rel, ok := strings.CutPrefix(p, base+"/"); ok {
		return rel, true
	}
	return "", false
}

// ParsePatterns extracts non-empty, non-comment patterns from gitignore content.
func ParsePatterns(content string) []string {
	var patterns []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || (strings.HasPrefix(line, "#") && !strings.HasPrefix(line, `\#`)) {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}

// MatchesAnyPattern reports whether the given gitignore content already
// ignores path.
func MatchesAnyPattern(p string, isDir bool, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	matcher := New()
	for _, pat := range patterns {
		matcher.AddPattern(pat)
	}
	return matcher.Match(p, isDir)
}
