package engine

import (
	"context"

	"github.com/Aman-CERP/rulesmith/internal/distribute"
	"github.com/Aman-CERP/rulesmith/internal/region"
	"github.com/Aman-CERP/rulesmith/internal/registry"
	"github.com/Aman-CERP/rulesmith/internal/synth"
)

// RemoveOptions controls Remove.
type RemoveOptions struct {
	// Strip also removes the managed regions from the guidance file.
	Strip  bool
	DryRun bool
}

// Remove reconciles the project's links against an empty selection and
// deletes its registry record. User-modified destinations are left in
// place and reported as conflicts. When a removal fails for another reason
// the record is kept with the remaining links so a later remove can retry.
func (e *Engine) Remove(ctx context.Context, projectPath string, opts RemoveOptions) (*Report, error) {
	return e.run(ctx, "remove", projectPath, opts.DryRun, func(r *Report) error {
		return e.remove(ctx, r, opts)
	})
}

func (e *Engine) remove(ctx context.Context, r *Report, opts RemoveOptions) error {
	rec, err := e.registry.Load(r.ProjectPath)
	if err != nil {
		return err
	}
	if rec == nil {
		return notConfigured(r.ProjectPath)
	}
	r.State = stateOf(rec)
	r.ProjectID = rec.ProjectID

	if !opts.DryRun {
		lock, err := e.acquire(r, rec)
		if err != nil {
			return err
		}
		defer lock.Unlock()

		if rec, err = e.registry.Load(r.ProjectPath); err != nil {
			return err
		}
		if rec == nil {
			return notConfigured(r.ProjectPath)
		}
	}

	// Plan the strip first: a malformed guidance file aborts before any
	// link is removed.
	if opts.Strip {
		update, err := synth.PlanStrip(e.guidancePath(r.ProjectPath), region.CanonicalLabels...)
		if err != nil {
			return err
		}
		r.Guidance = update
	}

	if opts.DryRun {
		r.Distribution = e.distributor(r.ProjectPath, true).Reconcile(nil, rec.Links)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	r.Distribution = e.distributor(r.ProjectPath, false).Reconcile(nil, rec.Links)

	if r.Guidance != nil {
		if err := synth.Apply(r.Guidance); err != nil {
			return err
		}
	}

	remaining := retryable(rec.Links, r.Distribution)
	if len(remaining) > 0 {
		rec.Links = remaining
		rec.Failures = r.Failures()
		rec.Touch(r.RunID)
		if err := e.registry.Save(rec); err != nil {
			return err
		}
		r.State = registry.StateInconsistent
		return r.Err()
	}

	if err := e.registry.Delete(r.ProjectPath); err != nil {
		r.State = registry.StateInconsistent
		return err
	}
	if err := e.registry.RemoveProjectID(r.ProjectPath); err != nil {
		return err
	}
	r.State = registry.StateUninitialized
	return r.Err()
}

// retryable returns the entries whose removal failed for a reason other
// than a user modification.
func retryable(entries []distribute.LinkEntry, report distribute.Report) []distribute.LinkEntry {
	failed := make(map[string]bool)
	for _, o := range report.Failed() {
		if !o.Conflict {
			failed[o.Dest] = true
		}
	}
	var out []distribute.LinkEntry
	for _, e := range entries {
		if failed[e.Dest] {
			out = append(out, e)
		}
	}
	return out
}
