package synth

import (
	"fmt"
	"path"
	"strings"

	"github.com/Aman-CERP/rulesmith/internal/catalog"
	"github.com/Aman-CERP/rulesmith/internal/prefs"
	"github.com/Aman-CERP/rulesmith/internal/profile"
	"github.com/Aman-CERP/rulesmith/internal/region"
	"github.com/Aman-CERP/rulesmith/internal/selector"
)

// RenderInput is everything needed to produce the region bodies.
type RenderInput struct {
	Catalog   *catalog.Catalog
	Profile   profile.Profile
	Selection selector.Result
	// DistributionDir is the project-relative distribution directory, used
	// to point at distributed files.
	DistributionDir string
}

// Render produces the body of every canonical region. Bodies start and end
// with a newline so markers sit on their own lines.
func Render(in RenderInput) Regions {
	resolved := prefs.Resolve(in.Selection.Preferences)
	return Regions{
		region.LabelHeader:     renderHeader(in, resolved),
		region.LabelRules:      renderRules(in),
		region.LabelArtifacts:  renderArtifacts(in),
		region.LabelGuidelines: renderGuidelines(resolved),
	}
}

var categoryTitles = map[catalog.Category]string{
	catalog.CategoryCodeQuality:  "Code quality",
	catalog.CategorySecurity:     "Security",
	catalog.CategoryTesting:      "Testing",
	catalog.CategoryArchitecture: "Architecture",
	catalog.CategoryPerformance:  "Performance",
	catalog.CategoryOperations:   "Operations",
	catalog.CategoryGitWorkflow:  "Git workflow",
	catalog.CategoryAPIDesign:    "API design",
}

func renderHeader(in RenderInput, r prefs.Resolved) string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString("_Generated by rulesmith. Text inside marked regions is regenerated; edit outside them._\n\n")

	p := in.Profile
	if p.PrimaryLanguage != "" {
		fmt.Fprintf(&sb, "- Language: %s\n", p.PrimaryLanguage)
	}
	if len(p.ProjectTypes) > 0 {
		fmt.Fprintf(&sb, "- Project type: %s\n", strings.Join(p.ProjectTypes, ", "))
	}
	if len(p.Frameworks) > 0 {
		fmt.Fprintf(&sb, "- Frameworks: %s\n", strings.Join(p.Frameworks, ", "))
	}
	fmt.Fprintf(&sb, "- Strictness: %s (weight threshold %d)\n", r.Strictness, in.Selection.Threshold)
	fmt.Fprintf(&sb, "- Catalog: %s %s\n", catalogName(in.Catalog), in.Selection.CatalogVersion)
	return sb.String()
}

func catalogName(cat *catalog.Catalog) string {
	if cat.Name() != "" {
		return cat.Name()
	}
	return "catalog"
}

func renderRules(in RenderInput) string {
	var sb strings.Builder
	sb.WriteString("\n## Rules\n")

	groups := in.Selection.ByCategory()
	if len(groups) == 0 {
		sb.WriteString("\nNo rules selected.\n")
		return sb.String()
	}

	for _, g := range groups {
		fmt.Fprintf(&sb, "\n### %s\n\n", categoryTitles[g.Category])
		for _, id := range g.RuleIDs {
			rule, ok := in.Catalog.Rule(id)
			if !ok {
				continue
			}
			fmt.Fprintf(&sb, "- **%s** (`%s`, %s)", rule.Title, rule.ID, rule.Severity)
			if rule.Rationale != "" {
				fmt.Fprintf(&sb, ": %s", oneLine(rule.Rationale))
			}
			fmt.Fprintf(&sb, " See `%s`.\n", path.Join(in.DistributionDir, rule.Path))
		}
	}
	return sb.String()
}

func renderArtifacts(in RenderInput) string {
	var sb strings.Builder
	sb.WriteString("\n## Distributed artifacts\n\n")
	fmt.Fprintf(&sb, "Principles live under `%s`.\n", path.Join(in.DistributionDir, catalog.PrinciplesDir))

	byKind := make(map[catalog.Kind][]catalog.Artifact)
	for _, id := range in.Selection.ArtifactIDs {
		if a, ok := in.Catalog.Artifact(id); ok {
			byKind[a.Kind] = append(byKind[a.Kind], a)
		}
	}

	for _, k := range catalog.AllKinds {
		arts := byKind[k]
		if len(arts) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n### %s\n\n", strings.ToUpper(k.Dir()[:1])+k.Dir()[1:])
		for _, a := range arts {
			fmt.Fprintf(&sb, "- `%s`", path.Join(in.DistributionDir, a.Path))
			if a.Description != "" {
				fmt.Fprintf(&sb, ": %s", oneLine(a.Description))
			} else {
				fmt.Fprintf(&sb, ": %s", a.Title)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func renderGuidelines(r prefs.Resolved) string {
	var sb strings.Builder
	sb.WriteString("\n## Working agreements\n\n")

	if r.Stage != "" {
		fmt.Fprintf(&sb, "- Project stage: %s.\n", r.Stage)
	}
	fmt.Fprintf(&sb, "- Security posture: %s.\n", r.SecurityPosture)
	if len(r.ComplianceFrameworks) > 0 {
		fmt.Fprintf(&sb, "- Compliance frameworks: %s.\n", strings.Join(r.ComplianceFrameworks, ", "))
	}
	fmt.Fprintf(&sb, "- Testing approach: %s.\n", r.TestingApproach)
	fmt.Fprintf(&sb, "- Operations maturity: %s.\n", r.OperationsMaturity)
	if r.GitWorkflow != "" {
		fmt.Fprintf(&sb, "- Git workflow: %s.\n", r.GitWorkflow)
	}
	if r.APIStyle != prefs.APINone {
		fmt.Fprintf(&sb, "- API style: %s.\n", r.APIStyle)
	}
	if r.PerformanceFocus != prefs.PerfStandard {
		fmt.Fprintf(&sb, "- Performance focus: %s.\n", r.PerformanceFocus)
	}
	if len(r.ExcludedCategories) > 0 {
		names := make([]string, len(r.ExcludedCategories))
		for i, c := range r.ExcludedCategories {
			names[i] = string(c)
		}
		fmt.Fprintf(&sb, "- Excluded categories: %s.\n", strings.Join(names, ", "))
	}
	return sb.String()
}

// oneLine flattens s so it fits in a list item and cannot carry markers.
func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if region.ContainsMarker(s) {
		s = strings.ReplaceAll(s, "<!--", "< !--")
	}
	return s
}
