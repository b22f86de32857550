package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/rulesmith/internal/distribute"
	"github.com/Aman-CERP/rulesmith/internal/profile"
)

func TestFormatStatus(t *testing.T) {
	out := &ConfigStatusOutput{
		ProjectPath:    "/work/api",
		State:          "configured-inconsistent",
		GuidanceFile:   "CLAUDE.md",
		GuidanceExists: true,
		Regions:        []string{"HEADER", "RULES"},
		RuleIDs:        []string{"cq-001"},
		Threshold:      5,
		Links:          distribute.Health{Total: 2, Intact: 1},
		CatalogVersion: "1.2.0",
		CatalogChanged: true,
		Problems:       []string{"missing: /work/api/.claude/commands/review.md"},
		Runs:           []RunOutput{{Command: "sync", StartedAt: "2026-01-02T03:04:05Z", Outcome: "partial", Failed: 1}},
	}

	md := FormatStatus(out)

	assert.Contains(t, md, "## Configuration status for `/work/api`")
	assert.Contains(t, md, "**Guidance file:** CLAUDE.md (regions: HEADER, RULES)")
	assert.Contains(t, md, "**Rules (1):** cq-001")
	assert.Contains(t, md, "**Artifacts (0):** none")
	assert.Contains(t, md, "**Links:** 1 of 2 intact")
	assert.Contains(t, md, "1.2.0 (changed since last run)")
	assert.Contains(t, md, "- missing: /work/api/.claude/commands/review.md")
	assert.Contains(t, md, "sync: partial (1 failed)")
}

func TestFormatStatus_Uninitialized(t *testing.T) {
	md := FormatStatus(&ConfigStatusOutput{ProjectPath: "/p", State: "uninitialized", GuidanceFile: "CLAUDE.md"})

	assert.Contains(t, md, "(missing)")
	assert.NotContains(t, md, "Rules")
	assert.NotContains(t, md, "Problems")
}

func TestFormatPreview(t *testing.T) {
	out := &PreviewSelectionOutput{
		Profile:        profile.Profile{PrimaryLanguage: "go", ProjectTypes: []string{"cli"}},
		Threshold:      5,
		CatalogVersion: "1.0.0",
		Rules:          []PreviewRule{{ID: "cq-001", Title: "Small functions", Category: "code-quality", EffectiveWeight: 10}},
		ArtifactIDs:    []string{"review"},
	}

	md := FormatPreview(out)

	assert.Contains(t, md, "Language: `go`, project type: cli")
	assert.Contains(t, md, "Threshold 5, catalog 1.0.0")
	assert.Contains(t, md, "- `cq-001` Small functions [code-quality, weight 10]")
	assert.Contains(t, md, "### Artifacts (1)")
}

func TestFormatPreview_Empty(t *testing.T) {
	md := FormatPreview(&PreviewSelectionOutput{Threshold: 8})
	assert.Contains(t, md, "No rules selected.")
}

func TestFormatSearchResults(t *testing.T) {
	assert.Equal(t, `No catalog records found for "x"`, FormatSearchResults("x", &SearchCatalogOutput{}))

	md := FormatSearchResults("sql", &SearchCatalogOutput{Results: []SearchResultOutput{
		{ID: "sec-001", Kind: "rule", Title: "Parameterize queries", Score: 1.5},
	}})
	assert.Contains(t, md, "Found 1 result\n")
	assert.Contains(t, md, "1. `sec-001` (rule) Parameterize queries, score: 1.50")
}
