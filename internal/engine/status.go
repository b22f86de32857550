package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/Aman-CERP/rulesmith/internal/distribute"
	"github.com/Aman-CERP/rulesmith/internal/journal"
	"github.com/Aman-CERP/rulesmith/internal/profile"
	"github.com/Aman-CERP/rulesmith/internal/region"
	"github.com/Aman-CERP/rulesmith/internal/registry"
)

// RegionInfo locates one managed region in the guidance file.
type RegionInfo struct {
	Label     string `json:"label"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Status is a read-only report of a project's record against the files on
// disk and the current catalog.
type Status struct {
	ProjectPath string         `json:"project_path"`
	ProjectID   string         `json:"project_id"`
	State       registry.State `json:"state"`

	GuidanceFile   string       `json:"guidance_file"`
	GuidanceExists bool         `json:"guidance_exists"`
	Regions        []RegionInfo `json:"regions,omitempty"`
	MarkerError    string       `json:"marker_error,omitempty"`

	Profile   *profile.Profile    `json:"profile,omitempty"`
	Selection *registry.Selection `json:"selection,omitempty"`
	UpdatedAt time.Time           `json:"updated_at,omitzero"`

	Links distribute.Health `json:"links"`

	CatalogVersion string   `json:"catalog_version,omitempty"`
	CatalogChanged bool     `json:"catalog_changed"`
	MissingIDs     []string `json:"missing_ids,omitempty"`

	Problems []string      `json:"problems,omitempty"`
	History  []journal.Run `json:"history,omitempty"`
}

// Status inspects a project without changing anything. history is the
// number of journal entries to include. A malformed guidance file is
// reported in the Status and also returned as the error.
func (e *Engine) Status(ctx context.Context, projectPath string, history int) (*Status, error) {
	abs, err := resolveProject(projectPath)
	if err != nil {
		return nil, err
	}

	rec, err := e.registry.Load(abs)
	if err != nil {
		return nil, err
	}

	st := &Status{
		ProjectPath:  abs,
		State:        stateOf(rec),
		GuidanceFile: e.cfg.Target.GuidanceFile,
	}
	if rec != nil {
		st.ProjectID = rec.ProjectID
		st.Profile = &rec.Profile
		st.Selection = &rec.Selection
		st.UpdatedAt = rec.UpdatedAt
		for _, f := range rec.Failures {
			st.Problems = append(st.Problems, "last run failed: "+f)
		}
	} else if st.ProjectID, err = e.registry.ProjectID(abs); err != nil {
		return nil, err
	}

	markerErr := e.inspectGuidance(st, rec)

	if rec != nil {
		st.Links = distribute.Verify(rec.Links)
		for _, d := range st.Links.Missing {
			st.Problems = append(st.Problems, "missing: "+d)
		}
		for _, d := range st.Links.Diverged {
			st.Problems = append(st.Problems, "modified by user: "+d)
		}
		if len(st.Links.Missing) > 0 || len(st.Links.Diverged) > 0 {
			st.State = registry.StateInconsistent
		}
		e.compareCatalog(ctx, st, rec)
	}

	if history > 0 && e.journal != nil {
		runs, err := e.journal.Recent(ctx, st.ProjectID, history)
		if err != nil {
			st.Problems = append(st.Problems, "history unavailable: "+err.Error())
		}
		st.History = runs
	}

	return st, markerErr
}

// inspectGuidance parses the guidance file with the same region parser the
// synthesizer uses.
func (e *Engine) inspectGuidance(st *Status, rec *registry.Record) error {
	path := e.guidancePath(st.ProjectPath)
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if rec != nil {
			st.Problems = append(st.Problems, "guidance file missing: "+st.GuidanceFile)
			st.State = registry.StateInconsistent
		}
		return nil
	case err != nil:
		st.Problems = append(st.Problems, "guidance file unreadable: "+err.Error())
		return nil
	}
	st.GuidanceExists = true

	spans, err := region.Parse(string(data))
	if err != nil {
		st.MarkerError = err.Error()
		st.Problems = append(st.Problems, "malformed markers: "+err.Error())
		if rec != nil {
			st.State = registry.StateInconsistent
		}
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, s := range spans {
		st.Regions = append(st.Regions, RegionInfo{Label: s.Label, StartLine: s.StartLine, EndLine: s.EndLine})
	}

	if rec == nil {
		if len(spans) > 0 {
			st.Problems = append(st.Problems, "guidance file has managed regions but the project is not configured")
		}
		return nil
	}
	for _, label := range region.CanonicalLabels {
		if _, ok := region.Find(spans, label); !ok {
			st.Problems = append(st.Problems, "region missing: "+label)
			st.State = registry.StateInconsistent
		}
	}
	return nil
}

// compareCatalog reports whether the catalog moved on since the last run.
func (e *Engine) compareCatalog(ctx context.Context, st *Status, rec *registry.Record) {
	cat, err := e.Catalog(ctx)
	if err != nil {
		st.Problems = append(st.Problems, "catalog unavailable: "+err.Error())
		return
	}
	st.CatalogVersion = cat.Version()
	st.CatalogChanged = cat.Version() != rec.Selection.CatalogVersion

	for _, id := range rec.Selection.RuleIDs {
		if _, ok := cat.Rule(id); !ok {
			st.MissingIDs = append(st.MissingIDs, id)
		}
	}
	for _, id := range rec.Selection.ArtifactIDs {
		if _, ok := cat.Artifact(id); !ok {
			st.MissingIDs = append(st.MissingIDs, id)
		}
	}
	if len(st.MissingIDs) > 0 {
		st.Problems = append(st.Problems, fmt.Sprintf("%d selected ids no longer in the catalog; run `rulesmith sync`", len(st.MissingIDs)))
	}
}
