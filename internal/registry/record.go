// Package registry persists one record per configured project under the
// user-level state directory.
//
// A record captures everything needed to re-synthesize or cleanly remove a
// project's configuration: the profile and preferences used, the resulting
// selection, and the links the Distributor created. Records are keyed by a
// stable project id rather than by path, so a project keeps its record when
// the directory moves.
package registry

import (
	"slices"
	"time"

	"github.com/Aman-CERP/rulesmith/internal/distribute"
	"github.com/Aman-CERP/rulesmith/internal/prefs"
	"github.com/Aman-CERP/rulesmith/internal/profile"
	"github.com/Aman-CERP/rulesmith/internal/selector"
	"github.com/Aman-CERP/rulesmith/pkg/version"
)

// SchemaVersion is the current record layout.
const SchemaVersion = 1

// Selection is the persisted part of a selector.Result.
type Selection struct {
	RuleIDs        []string `json:"rule_ids"`
	ArtifactIDs    []string `json:"artifact_ids"`
	Threshold      int      `json:"threshold"`
	CatalogVersion string   `json:"catalog_version"`
}

// SelectionFrom extracts the persisted fields of a result.
func SelectionFrom(r selector.Result) Selection {
	return Selection{
		RuleIDs:        slices.Clone(r.RuleIDs),
		ArtifactIDs:    slices.Clone(r.ArtifactIDs),
		Threshold:      r.Threshold,
		CatalogVersion: r.CatalogVersion,
	}
}

// Record is the persisted state of one configured project.
type Record struct {
	SchemaVersion int    `json:"schema_version"`
	ProjectID     string `json:"project_id"`
	ProjectPath   string `json:"project_path"`

	Profile     profile.Profile `json:"profile"`
	Preferences prefs.Set       `json:"preferences"`
	Selection   Selection       `json:"selection"`

	// Links are the distribution entries created for this project.
	Links []distribute.LinkEntry `json:"links"`

	// Targets are the guidance files holding managed regions.
	Targets []string `json:"targets"`

	// Failures lists the operations that failed in the last run. A record
	// with failures describes a configured-inconsistent project.
	Failures []string `json:"failures,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LastRunID string    `json:"last_run_id,omitempty"`

	// Version is the rulesmith version that last wrote the record.
	Version string `json:"version"`
}

// NewRecord creates a record for a project being configured for the first
// time.
func NewRecord(projectID, projectPath string) *Record {
	now := time.Now().UTC()
	return &Record{
		SchemaVersion: SchemaVersion,
		ProjectID:     projectID,
		ProjectPath:   projectPath,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       version.Version,
	}
}

// Touch stamps the record for a new run.
func (r *Record) Touch(runID string) {
	r.UpdatedAt = time.Now().UTC()
	r.LastRunID = runID
	r.Version = version.Version
}

// State is the lifecycle state of a project.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateConfigured    State = "configured"
	// StateInconsistent means the registry and the files on disk disagree,
	// usually after a partially failed run.
	StateInconsistent State = "configured-inconsistent"
)
