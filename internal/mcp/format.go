package mcp

import (
	"fmt"
	"strings"
)

// FormatStatus renders a config_status result as markdown.
func FormatStatus(out *ConfigStatusOutput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Configuration status for `%s`\n\n", out.ProjectPath)
	fmt.Fprintf(&sb, "**State:** %s\n", out.State)

	switch {
	case out.MarkerError != "":
		fmt.Fprintf(&sb, "**Guidance file:** %s (malformed: %s)\n", out.GuidanceFile, out.MarkerError)
	case out.GuidanceExists:
		fmt.Fprintf(&sb, "**Guidance file:** %s (regions: %s)\n", out.GuidanceFile, joinOrNone(out.Regions))
	default:
		fmt.Fprintf(&sb, "**Guidance file:** %s (missing)\n", out.GuidanceFile)
	}

	if len(out.RuleIDs) > 0 || out.Threshold > 0 {
		fmt.Fprintf(&sb, "**Threshold:** %d\n", out.Threshold)
		fmt.Fprintf(&sb, "**Rules (%d):** %s\n", len(out.RuleIDs), joinOrNone(out.RuleIDs))
		fmt.Fprintf(&sb, "**Artifacts (%d):** %s\n", len(out.ArtifactIDs), joinOrNone(out.ArtifactIDs))
		fmt.Fprintf(&sb, "**Links:** %d of %d intact\n", out.Links.Intact, out.Links.Total)
	}
	if out.CatalogVersion != "" {
		fmt.Fprintf(&sb, "**Catalog:** %s", out.CatalogVersion)
		if out.CatalogChanged {
			sb.WriteString(" (changed since last run)")
		}
		sb.WriteString("\n")
	}

	if len(out.Problems) > 0 {
		sb.WriteString("\n### Problems\n\n")
		for _, p := range out.Problems {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
	}
	if len(out.Runs) > 0 {
		sb.WriteString("\n### Recent runs\n\n")
		for _, r := range out.Runs {
			fmt.Fprintf(&sb, "- %s %s: %s", r.StartedAt, r.Command, r.Outcome)
			if r.Failed > 0 {
				fmt.Fprintf(&sb, " (%d failed)", r.Failed)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// FormatPreview renders a preview_selection result as markdown.
func FormatPreview(out *PreviewSelectionOutput) string {
	var sb strings.Builder
	sb.WriteString("## Selection preview\n\n")
	if out.Profile.PrimaryLanguage != "" {
		fmt.Fprintf(&sb, "Language: `%s`", out.Profile.PrimaryLanguage)
		if len(out.Profile.ProjectTypes) > 0 {
			fmt.Fprintf(&sb, ", project type: %s", strings.Join(out.Profile.ProjectTypes, ", "))
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Threshold %d, catalog %s\n\n", out.Threshold, out.CatalogVersion)

	if len(out.Rules) == 0 {
		sb.WriteString("No rules selected.\n")
	} else {
		fmt.Fprintf(&sb, "### Rules (%d)\n\n", len(out.Rules))
		for _, r := range out.Rules {
			fmt.Fprintf(&sb, "- `%s` %s [%s, weight %d]\n", r.ID, r.Title, r.Category, r.EffectiveWeight)
		}
	}
	if len(out.ArtifactIDs) > 0 {
		fmt.Fprintf(&sb, "\n### Artifacts (%d)\n\n", len(out.ArtifactIDs))
		for _, id := range out.ArtifactIDs {
			fmt.Fprintf(&sb, "- `%s`\n", id)
		}
	}
	return sb.String()
}

// FormatSearchResults renders catalog search hits as markdown.
func FormatSearchResults(query string, out *SearchCatalogOutput) string {
	if out == nil || len(out.Results) == 0 {
		return fmt.Sprintf("No catalog records found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Catalog results for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Found %d result", len(out.Results))
	if len(out.Results) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")
	for i, r := range out.Results {
		fmt.Fprintf(&sb, "%d. `%s` (%s) %s, score: %.2f\n", i+1, r.ID, r.Kind, r.Title, r.Score)
	}
	return sb.String()
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}
