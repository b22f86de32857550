package engine

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Aman-CERP/rulesmith/internal/distribute"
	"github.com/Aman-CERP/rulesmith/internal/gitignore"
)

const gitignoreComment = "# rulesmith distributed files (auto-generated)"

// gitignoreEntries returns one directory pattern per top-level
// subdirectory of the distribution directory that holds entries, e.g.
// ".claude/principles/".
func (e *Engine) gitignoreEntries(projectPath string, entries []distribute.LinkEntry) []string {
	dist := path.Clean(filepath.ToSlash(e.cfg.Target.DistributionDir))
	root := e.distributionRoot(projectPath)

	seen := make(map[string]bool)
	var out []string
	for _, le := range entries {
		rel, err := filepath.Rel(root, le.Dest)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		sub, _, nested := strings.Cut(filepath.ToSlash(rel), "/")
		if !nested || seen[sub] {
			continue
		}
		seen[sub] = true
		out = append(out, dist+"/"+sub+"/")
	}
	slices.Sort(out)
	return out
}

// ensureGitignore appends the entries the project's .gitignore does not
// already ignore. Returns true when the file was changed.
func ensureGitignore(projectRoot string, entries []string) (bool, error) {
	gitignorePath := filepath.Join(projectRoot, ".gitignore")

	content, err := os.ReadFile(gitignorePath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("reading .gitignore: %w", err)
	}

	patterns := gitignore.ParsePatterns(string(content))
	var missing []string
	for _, entry := range entries {
		if !gitignore.MatchesAnyPattern(strings.TrimSuffix(entry, "/"), true, patterns) {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	// Match the existing line ending, default to LF.
	lineEnding := "\n"
	if bytes.Contains(content, []byte("\r\n")) {
		lineEnding = "\r\n"
	}

	if len(content) > 0 && !bytes.HasSuffix(content, []byte("\n")) {
		content = append(content, []byte(lineEnding)...)
	}

	var sb strings.Builder
	if len(content) > 0 {
		sb.WriteString(lineEnding)
	}
	if !bytes.Contains(content, []byte(gitignoreComment)) {
		sb.WriteString(gitignoreComment + lineEnding)
	}
	for _, m := range missing {
		sb.WriteString(m + lineEnding)
	}
	content = append(content, []byte(sb.String())...)

	if err := os.WriteFile(gitignorePath, content, 0o644); err != nil {
		return false, fmt.Errorf("writing .gitignore: %w", err)
	}
	return true, nil
}
