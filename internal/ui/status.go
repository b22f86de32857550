package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Aman-CERP/rulesmith/internal/engine"
	"github.com/Aman-CERP/rulesmith/internal/journal"
	"github.com/Aman-CERP/rulesmith/internal/registry"
)

// StatusRenderer displays a project's configuration status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
	now    func() time.Time
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
		now:    time.Now,
	}
}

// Render displays st.
func (r *StatusRenderer) Render(st *engine.Status) error {
	r.printf("%s\n\n", r.styles.Header.Render("Project: "+st.ProjectPath))
	r.printf("  State:      %s\n", r.renderState(st.State))
	if st.ProjectID != "" {
		r.printf("  Project ID: %s\n", st.ProjectID)
	}
	if !st.UpdatedAt.IsZero() {
		r.printf("  Last run:   %s\n", formatTime(st.UpdatedAt, r.now()))
	}
	r.printf("\n")

	r.printf("  Guidance:   %s", st.GuidanceFile)
	switch {
	case st.MarkerError != "":
		r.printf(" %s\n", r.styles.Error.Render("(malformed)"))
	case !st.GuidanceExists:
		r.printf(" %s\n", r.styles.Dim.Render("(missing)"))
	default:
		r.printf("\n")
		for _, reg := range st.Regions {
			r.printf("    %-12s lines %d-%d\n", reg.Label, reg.StartLine, reg.EndLine)
		}
	}

	if sel := st.Selection; sel != nil {
		r.printf("\n  Selection:\n")
		r.printf("    Threshold: %d\n", sel.Threshold)
		r.printf("    Rules:     %s\n", joinOrNone(sel.RuleIDs))
		r.printf("    Artifacts: %s\n", joinOrNone(sel.ArtifactIDs))
		r.printf("    Links:     %d of %d intact\n", st.Links.Intact, st.Links.Total)
	}

	if st.CatalogVersion != "" {
		r.printf("\n  Catalog:    %s", st.CatalogVersion)
		if st.CatalogChanged {
			r.printf(" %s", r.styles.Warning.Render("(changed since last run)"))
		}
		r.printf("\n")
	}

	if len(st.Problems) > 0 {
		r.printf("\n  %s\n", r.styles.Warning.Render("Problems:"))
		for _, p := range st.Problems {
			r.printf("    - %s\n", p)
		}
	}

	if len(st.History) > 0 {
		r.printf("\n  History:\n")
		for _, run := range st.History {
			r.printf("    %s  %-6s %s%s\n",
				run.StartedAt.Local().Format("2006-01-02 15:04"),
				run.Command,
				r.renderOutcome(run.Outcome),
				runCounts(run))
		}
	}
	return nil
}

// RenderJSON outputs st as JSON.
func (r *StatusRenderer) RenderJSON(st *engine.Status) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(st)
}

func (r *StatusRenderer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func (r *StatusRenderer) renderState(s registry.State) string {
	switch s {
	case registry.StateConfigured:
		return r.styles.Success.Render(string(s))
	case registry.StateInconsistent:
		return r.styles.Error.Render(string(s))
	default:
		return r.styles.Dim.Render(string(s))
	}
}

func (r *StatusRenderer) renderOutcome(o journal.Outcome) string {
	switch o {
	case journal.OutcomeOK:
		return r.styles.Success.Render(string(o))
	case journal.OutcomePartial, journal.OutcomeCancelled:
		return r.styles.Warning.Render(string(o))
	case journal.OutcomeFailed:
		return r.styles.Error.Render(string(o))
	default:
		return string(o)
	}
}

func runCounts(run journal.Run) string {
	var parts []string
	if run.Created > 0 {
		parts = append(parts, fmt.Sprintf("+%d", run.Created))
	}
	if run.Removed > 0 {
		parts = append(parts, fmt.Sprintf("-%d", run.Removed))
	}
	if run.Failed > 0 {
		parts = append(parts, fmt.Sprintf("!%d", run.Failed))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  " + strings.Join(parts, " ")
}

// formatTime formats t relative to now.
func formatTime(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}
