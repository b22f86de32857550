package mcp

import (
	"time"

	"github.com/Aman-CERP/rulesmith/internal/distribute"
	"github.com/Aman-CERP/rulesmith/internal/profile"
)

// ConfigStatusInput defines the input schema for the config_status tool.
type ConfigStatusInput struct {
	Path    string `json:"path,omitempty" jsonschema:"project directory, default the server's root"`
	History int    `json:"history,omitempty" jsonschema:"number of recent runs to include, default 0"`
}

// ConfigStatusOutput defines the output schema for the config_status tool.
type ConfigStatusOutput struct {
	ProjectPath    string            `json:"project_path"`
	State          string            `json:"state"`
	GuidanceFile   string            `json:"guidance_file"`
	GuidanceExists bool              `json:"guidance_exists"`
	Regions        []string          `json:"regions,omitempty"`
	MarkerError    string            `json:"marker_error,omitempty"`
	RuleIDs        []string          `json:"rule_ids,omitempty"`
	ArtifactIDs    []string          `json:"artifact_ids,omitempty"`
	Threshold      int               `json:"threshold,omitempty"`
	Links          distribute.Health `json:"links"`
	CatalogVersion string            `json:"catalog_version,omitempty"`
	CatalogChanged bool              `json:"catalog_changed"`
	Problems       []string          `json:"problems,omitempty"`
	UpdatedAt      string            `json:"updated_at,omitempty"`
	Runs           []RunOutput       `json:"runs,omitempty"`
}

// RunOutput is one journal entry in a status response.
type RunOutput struct {
	Command   string `json:"command"`
	StartedAt string `json:"started_at"`
	Outcome   string `json:"outcome"`
	Failed    int    `json:"failed"`
}

// PreviewSelectionInput defines the input schema for the preview_selection tool.
type PreviewSelectionInput struct {
	Path               string   `json:"path,omitempty" jsonschema:"project directory, default the server's root"`
	Strictness         string   `json:"strictness,omitempty" jsonschema:"relaxed, standard, strict or paranoid"`
	Stage              string   `json:"stage,omitempty" jsonschema:"prototype, mvp, production or legacy"`
	ExcludedCategories []string `json:"excluded_categories,omitempty" jsonschema:"rule categories to leave out"`
	Threshold          int      `json:"threshold,omitempty" jsonschema:"explicit weight threshold 1-10, overrides strictness"`
}

// PreviewSelectionOutput defines the output schema for the preview_selection tool.
type PreviewSelectionOutput struct {
	Profile        profile.Profile `json:"profile"`
	Threshold      int             `json:"threshold"`
	CatalogVersion string          `json:"catalog_version"`
	Rules          []PreviewRule   `json:"rules"`
	ArtifactIDs    []string        `json:"artifact_ids"`
}

// PreviewRule is one selected rule.
type PreviewRule struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Category        string `json:"category"`
	EffectiveWeight int    `json:"effective_weight"`
}

// SearchCatalogInput defines the input schema for the search_catalog tool.
type SearchCatalogInput struct {
	Query string `json:"query" jsonschema:"words to look for in rule and artifact text"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

// SearchCatalogOutput defines the output schema for the search_catalog tool.
type SearchCatalogOutput struct {
	Results []SearchResultOutput `json:"results"`
}

// SearchResultOutput is one catalog search hit.
type SearchResultOutput struct {
	ID    string  `json:"id"`
	Kind  string  `json:"kind"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
