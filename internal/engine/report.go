package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/Aman-CERP/rulesmith/internal/distribute"
	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
	"github.com/Aman-CERP/rulesmith/internal/profile"
	"github.com/Aman-CERP/rulesmith/internal/registry"
	"github.com/Aman-CERP/rulesmith/internal/selector"
	"github.com/Aman-CERP/rulesmith/internal/synth"
)

// Report is the aggregated result of one pipeline run.
type Report struct {
	RunID       string
	Command     string
	ProjectPath string
	ProjectID   string
	DryRun      bool
	StartedAt   time.Time
	Duration    time.Duration

	Profile   profile.Profile
	Selection selector.Result

	// Guidance is the planned or applied guidance file change. Nil when the
	// run did not touch the guidance file.
	Guidance *synth.Update
	// Backup is the copy made before the guidance file was first taken over.
	Backup string

	Distribution     distribute.Report
	GitignoreUpdated bool

	// State is the project's state after the run.
	State registry.State
}

// Totals is the run's accounting. Attempted always equals
// Succeeded + Skipped + Failed.
type Totals struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Totals counts the guidance file as one operation and every distribution
// outcome as one more.
func (r *Report) Totals() Totals {
	created, removed, unchanged, failed := r.Distribution.Counts()
	t := Totals{
		Succeeded: created + removed,
		Skipped:   unchanged,
		Failed:    failed,
	}
	if r.Guidance != nil {
		if r.Guidance.Changed() {
			t.Succeeded++
		} else {
			t.Skipped++
		}
	}
	t.Attempted = t.Succeeded + t.Skipped + t.Failed
	return t
}

// Failures describes every failed distribution outcome.
func (r *Report) Failures() []string {
	var out []string
	for _, o := range r.Distribution.Failed() {
		msg := o.ID + ": " + o.Dest
		if o.Err != nil {
			msg = fmt.Sprintf("%s: %v", o.ID, o.Err)
		}
		out = append(out, msg)
	}
	return out
}

// Err returns the error a partially failed run ends with, or nil.
func (r *Report) Err() error {
	failures := r.Failures()
	if len(failures) == 0 {
		return nil
	}
	return rserrors.New(rserrors.ErrCodeInconsistentState,
		fmt.Sprintf("%d of %d operations failed; project is %s", len(failures), r.Totals().Attempted, r.State), nil).
		WithDetail("failures", strings.Join(failures, "; ")).
		WithSuggestion("Resolve the listed files (move edited copies aside) and run `rulesmith sync`")
}
