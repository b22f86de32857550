package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/Aman-CERP/rulesmith/internal/distribute"
	"github.com/Aman-CERP/rulesmith/internal/engine"
	"github.com/Aman-CERP/rulesmith/internal/profile"
)

// ReportRenderer prints the result of init, sync and remove.
type ReportRenderer struct {
	out     io.Writer
	styles  Styles
	verbose bool
}

// NewReportRenderer creates a report renderer.
func NewReportRenderer(cfg Config) *ReportRenderer {
	return &ReportRenderer{
		out:     cfg.Output,
		styles:  GetStyles(cfg.NoColor),
		verbose: cfg.Verbose,
	}
}

// Render prints a human-readable summary of r. Dry runs always include the
// guidance diff and the planned link changes.
func (p *ReportRenderer) Render(r *engine.Report) {
	title := fmt.Sprintf("rulesmith %s  %s", r.Command, r.ProjectPath)
	if r.DryRun {
		title += "  (dry run)"
	}
	p.line(p.styles.Header.Render(title))
	p.line("")

	if desc := describeProfile(r.Profile); desc != "" {
		p.field("Profile", desc)
	}

	sel := r.Selection
	if sel.CatalogVersion != "" {
		p.field("Threshold", fmt.Sprintf("%d  %s %s", sel.Threshold, p.styles.Label.Render("catalog"), sel.CatalogVersion))
		p.field("Rules", fmt.Sprintf("%d", len(sel.RuleIDs)))
		for _, g := range sel.ByCategory() {
			p.line(fmt.Sprintf("    %-14s %s", p.styles.Label.Render(string(g.Category)), p.styles.ID.Render(strings.Join(g.RuleIDs, ", "))))
		}
		p.field("Artifacts", joinOrNone(sel.ArtifactIDs))
	}

	if g := r.Guidance; g != nil {
		p.field("Guidance", relTo(r.ProjectPath, g.Path)+" "+guidanceVerb(r))
	}
	if r.Backup != "" {
		p.field("Backup", relTo(r.ProjectPath, r.Backup))
	}

	created, removed, unchanged, failed := r.Distribution.Counts()
	if len(r.Distribution.Outcomes) > 0 {
		p.field("Links", fmt.Sprintf("%d created, %d removed, %d unchanged, %s",
			created, removed, unchanged, p.failedCount(failed)))
	}
	if r.GitignoreUpdated {
		p.field("Gitignore", "updated")
	}

	if p.verbose || r.DryRun {
		p.renderOutcomes(r)
		if r.Guidance != nil && r.Guidance.Diff != "" {
			p.line("")
			p.renderDiff(r.Guidance.Diff)
		}
	}

	if failures := r.Failures(); len(failures) > 0 {
		p.line("")
		p.line(p.styles.Error.Render("Failed:"))
		for _, f := range failures {
			p.line("  - " + f)
		}
	}

	t := r.Totals()
	p.line("")
	summary := fmt.Sprintf("%s in %s: %d attempted, %d succeeded, %d skipped, %d failed",
		r.State, r.Duration.Round(time.Millisecond), t.Attempted, t.Succeeded, t.Skipped, t.Failed)
	switch {
	case t.Failed > 0:
		p.line(p.styles.Warning.Render(summary))
	case r.DryRun:
		p.line(p.styles.Dim.Render(summary))
	default:
		p.line(p.styles.Success.Render(summary))
	}
}

func (p *ReportRenderer) renderOutcomes(r *engine.Report) {
	var lines []string
	for _, o := range r.Distribution.Outcomes {
		if o.Status == distribute.StatusUnchanged && !p.verbose {
			continue
		}
		mark := map[distribute.Status]string{
			distribute.StatusCreated:   p.styles.Added.Render("+"),
			distribute.StatusRemoved:   p.styles.Removed.Render("-"),
			distribute.StatusUnchanged: p.styles.Dim.Render("="),
			distribute.StatusFailed:    p.styles.Error.Render("!"),
		}[o.Status]
		line := fmt.Sprintf("  %s %s", mark, relTo(r.ProjectPath, o.Dest))
		if o.Mechanism != "" && o.Status == distribute.StatusCreated {
			line += p.styles.Label.Render(" (" + string(o.Mechanism) + ")")
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return
	}
	p.line("")
	p.line(p.styles.Section.Render("Link changes:"))
	for _, l := range lines {
		p.line(l)
	}
}

// renderDiff colors a unified diff line by line.
func (p *ReportRenderer) renderDiff(diff string) {
	for _, l := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
			p.line(p.styles.Label.Render(l))
		case strings.HasPrefix(l, "@@"):
			p.line(p.styles.Hunk.Render(l))
		case strings.HasPrefix(l, "+"):
			p.line(p.styles.Added.Render(l))
		case strings.HasPrefix(l, "-"):
			p.line(p.styles.Removed.Render(l))
		default:
			p.line(l)
		}
	}
}

func (p *ReportRenderer) failedCount(n int) string {
	s := fmt.Sprintf("%d failed", n)
	if n > 0 {
		return p.styles.Error.Render(s)
	}
	return s
}

func (p *ReportRenderer) field(label, value string) {
	p.line(fmt.Sprintf("  %s %s", p.styles.Label.Render(fmt.Sprintf("%-10s", label+":")), value))
}

func (p *ReportRenderer) line(s string) {
	_, _ = fmt.Fprintln(p.out, s)
}

// ReportJSON is the --json form of a run report.
type ReportJSON struct {
	RunID            string          `json:"run_id"`
	Command          string          `json:"command"`
	ProjectPath      string          `json:"project_path"`
	ProjectID        string          `json:"project_id,omitempty"`
	DryRun           bool            `json:"dry_run"`
	State            string          `json:"state"`
	DurationMS       int64           `json:"duration_ms"`
	Profile          profile.Profile `json:"profile"`
	RuleIDs          []string        `json:"rule_ids"`
	ArtifactIDs      []string        `json:"artifact_ids"`
	Threshold        int             `json:"threshold"`
	CatalogVersion   string          `json:"catalog_version,omitempty"`
	Guidance         string          `json:"guidance,omitempty"`
	GuidanceDiff     string          `json:"guidance_diff,omitempty"`
	Backup           string          `json:"backup,omitempty"`
	GitignoreUpdated bool            `json:"gitignore_updated"`
	Totals           engine.Totals   `json:"totals"`
	Failures         []string        `json:"failures,omitempty"`
}

// RenderJSON writes r as indented JSON.
func (p *ReportRenderer) RenderJSON(r *engine.Report) error {
	out := ReportJSON{
		RunID:            r.RunID,
		Command:          r.Command,
		ProjectPath:      r.ProjectPath,
		ProjectID:        r.ProjectID,
		DryRun:           r.DryRun,
		State:            string(r.State),
		DurationMS:       r.Duration.Milliseconds(),
		Profile:          r.Profile,
		RuleIDs:          r.Selection.RuleIDs,
		ArtifactIDs:      r.Selection.ArtifactIDs,
		Threshold:        r.Selection.Threshold,
		CatalogVersion:   r.Selection.CatalogVersion,
		Backup:           r.Backup,
		GitignoreUpdated: r.GitignoreUpdated,
		Totals:           r.Totals(),
		Failures:         r.Failures(),
	}
	if r.Guidance != nil {
		out.Guidance = guidanceVerb(r)
		out.GuidanceDiff = r.Guidance.Diff
	}

	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func guidanceVerb(r *engine.Report) string {
	g := r.Guidance
	verb := "unchanged"
	switch {
	case g.Created:
		verb = "created"
	case g.Removed:
		verb = "removed"
	case g.Changed():
		verb = "updated"
	}
	if r.DryRun && verb != "unchanged" {
		return "would be " + verb
	}
	return verb
}

func describeProfile(pr profile.Profile) string {
	if pr.PrimaryLanguage == "" && len(pr.ProjectTypes) == 0 {
		return ""
	}
	lang := pr.PrimaryLanguage
	if lang == "" {
		lang = "unknown language"
	}
	parts := []string{lang}
	if len(pr.ProjectTypes) > 0 {
		parts[0] += " (" + strings.Join(pr.ProjectTypes, ", ") + ")"
	}
	if pr.Maturity != "" {
		parts = append(parts, pr.Maturity)
	}
	var traits []string
	if pr.HasTests {
		traits = append(traits, "tests")
	}
	if pr.HasCI {
		traits = append(traits, "ci")
	}
	if pr.HasContainers {
		traits = append(traits, "containers")
	}
	if len(traits) > 0 {
		parts = append(parts, strings.Join(traits, ", "))
	}
	return strings.Join(parts, "; ")
}

func relTo(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}

func joinOrNone(ids []string) string {
	if len(ids) == 0 {
		return "none"
	}
	return strings.Join(ids, ", ")
}
