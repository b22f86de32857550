package engine

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/Aman-CERP/rulesmith/internal/catalog"
	"github.com/Aman-CERP/rulesmith/internal/config"
	"github.com/Aman-CERP/rulesmith/internal/distribute"
	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
	"github.com/Aman-CERP/rulesmith/internal/prefs"
	"github.com/Aman-CERP/rulesmith/internal/registry"
	"github.com/Aman-CERP/rulesmith/internal/selector"
	"github.com/Aman-CERP/rulesmith/internal/synth"
)

// InitOptions controls Init.
type InitOptions struct {
	Mode prefs.Mode
	// Threshold overrides the derived weight threshold when positive.
	Threshold int
	// DryRun computes the guidance diff and link plan without writing.
	DryRun bool
}

// SyncOptions controls Sync.
type SyncOptions struct {
	DryRun bool
}

// Init runs the full pipeline: detect, collect, select, synthesize,
// distribute, record. The returned Report is never nil; on a partial
// failure it is returned together with an ERR_601 error.
func (e *Engine) Init(ctx context.Context, projectPath string, opts InitOptions) (*Report, error) {
	return e.run(ctx, "init", projectPath, opts.DryRun, func(r *Report) error {
		return e.init(ctx, r, opts)
	})
}

// Sync re-runs selection with the stored preferences and a fresh profile,
// then synthesizes and reconciles. It asks no questions.
func (e *Engine) Sync(ctx context.Context, projectPath string, opts SyncOptions) (*Report, error) {
	return e.run(ctx, "sync", projectPath, opts.DryRun, func(r *Report) error {
		return e.sync(ctx, r, opts)
	})
}

func (e *Engine) run(ctx context.Context, command, projectPath string, dryRun bool, fn func(*Report) error) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	r := &Report{
		RunID:     newRunID(),
		Command:   command,
		DryRun:    dryRun,
		StartedAt: start.UTC(),
		State:     registry.StateUninitialized,
	}

	abs, err := resolveProject(projectPath)
	if err != nil {
		return r, err
	}
	r.ProjectPath = abs

	err = fn(r)
	r.Duration = time.Since(start)

	t := r.Totals()
	attrs := []any{
		slog.String("run_id", r.RunID),
		slog.String("project", r.ProjectPath),
		slog.String("state", string(r.State)),
		slog.Int("attempted", t.Attempted),
		slog.Int("succeeded", t.Succeeded),
		slog.Int("skipped", t.Skipped),
		slog.Int("failed", t.Failed),
		slog.Bool("dry_run", r.DryRun),
		slog.Duration("duration", r.Duration),
	}
	switch {
	case errors.Is(err, prefs.ErrCancelled):
		e.logger.Info(command+"_cancelled", attrs...)
	case err != nil:
		e.logger.Error(command+"_failed", append(attrs, rserrors.FormatForLog(err)...)...)
	default:
		e.logger.Info(command+"_complete", attrs...)
	}

	e.journalRun(ctx, r, err)
	return r, err
}

func (e *Engine) init(ctx context.Context, r *Report, opts InitOptions) (err error) {
	cat, err := e.Catalog(ctx)
	if err != nil {
		return err
	}

	p, err := e.Detect(ctx, r.ProjectPath)
	if err != nil {
		return err
	}
	r.Profile = p

	rec, err := e.registry.Load(r.ProjectPath)
	if err != nil {
		return err
	}
	r.State = stateOf(rec)

	if opts.DryRun {
		if r.ProjectID, err = e.registry.ProjectID(r.ProjectPath); err != nil {
			return err
		}
	} else {
		lock, lerr := e.acquire(r, rec)
		if lerr != nil {
			return lerr
		}
		defer lock.Unlock()

		// Another run may have finished between the first read and the lock.
		if rec, err = e.registry.Load(r.ProjectPath); err != nil {
			return err
		}
		if rec == nil {
			// A first init that ends before its record is written leaves no
			// id file behind.
			defer func() {
				if err != nil && r.State == registry.StateUninitialized {
					_ = e.registry.RemoveProjectID(r.ProjectPath)
				}
			}()
		}
	}

	collector := prefs.NewCollector(
		prefs.WithAsker(e.asker),
		prefs.WithDefaultStrictness(prefs.Strictness(e.cfg.Selection.DefaultStrictness)),
		prefs.WithLogger(e.logger),
	)
	set, err := collector.Collect(ctx, p, opts.Mode)
	if err != nil {
		return err
	}

	res := selector.Select(cat, p, set, e.threshold(opts.Threshold, set))
	return e.apply(ctx, r, cat, rec, res)
}

func (e *Engine) sync(ctx context.Context, r *Report, opts SyncOptions) error {
	rec, err := e.registry.Load(r.ProjectPath)
	if err != nil {
		return err
	}
	if rec == nil {
		return notConfigured(r.ProjectPath)
	}
	r.State = stateOf(rec)

	if opts.DryRun {
		r.ProjectID = rec.ProjectID
	} else {
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

	cat, err := e.Catalog(ctx)
	if err != nil {
		return err
	}
	p, err := e.Detect(ctx, r.ProjectPath)
	if err != nil {
		return err
	}
	r.Profile = p

	threshold := rec.Selection.Threshold
	if threshold <= 0 {
		threshold = e.threshold(0, rec.Preferences)
	}
	res := selector.Select(cat, p, rec.Preferences, threshold)
	return e.apply(ctx, r, cat, rec, res)
}

// acquire makes sure the project has an id file and takes its lock. A
// record found by path after the id file was lost gets its id file back.
func (e *Engine) acquire(r *Report, rec *registry.Record) (*registry.Lock, error) {
	var (
		id  string
		err error
	)
	if rec != nil {
		id = rec.ProjectID
		current, err := e.registry.ProjectID(r.ProjectPath)
		if err != nil {
			return nil, err
		}
		if current != id {
			if err := e.registry.WriteProjectID(r.ProjectPath, id); err != nil {
				return nil, err
			}
		}
	} else if id, err = e.registry.EnsureProjectID(r.ProjectPath); err != nil {
		return nil, err
	}
	r.ProjectID = id

	return e.registry.Lock(r.ProjectPath)
}

// apply performs the side effects for a selection in order: guidance file,
// distribution, .gitignore, registry record.
func (e *Engine) apply(ctx context.Context, r *Report, cat *catalog.Catalog, rec *registry.Record, res selector.Result) error {
	r.Selection = res

	regions := synth.Render(synth.RenderInput{
		Catalog:         cat,
		Profile:         r.Profile,
		Selection:       res,
		DistributionDir: e.cfg.Target.DistributionDir,
	})
	target := e.guidancePath(r.ProjectPath)
	update, err := synth.Plan(target, regions)
	if err != nil {
		return err
	}
	r.Guidance = update

	items := e.items(cat, res, r.ProjectPath)
	var existing []distribute.LinkEntry
	if rec != nil {
		existing = rec.Links
	}

	if r.DryRun {
		r.Distribution = e.distributor(r.ProjectPath, true).Reconcile(items, existing)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if update.Changed() {
		if !update.Created && !tracksTarget(rec, e.cfg.Target.GuidanceFile) {
			backup, err := config.BackupFile(target)
			if err != nil {
				return rserrors.IOError("back up "+target, err)
			}
			r.Backup = backup
		}
		if err := synth.Apply(update); err != nil {
			return err
		}
	}

	r.Distribution = e.distributor(r.ProjectPath, false).Reconcile(items, existing)

	if e.cfg.Distribution.GitignoreManaged() && len(r.Distribution.Entries) > 0 {
		updated, err := ensureGitignore(r.ProjectPath, e.gitignoreEntries(r.ProjectPath, r.Distribution.Entries))
		if err != nil {
			e.logger.Warn("gitignore_update_failed", slog.String("project", r.ProjectPath), slog.String("error", err.Error()))
		}
		r.GitignoreUpdated = updated
	}

	if rec == nil {
		rec = registry.NewRecord(r.ProjectID, r.ProjectPath)
	}
	rec.ProjectPath = r.ProjectPath
	rec.Profile = r.Profile
	rec.Preferences = res.Preferences
	rec.Selection = registry.SelectionFrom(res)
	rec.Links = r.Distribution.Entries
	rec.Targets = []string{e.cfg.Target.GuidanceFile}
	rec.Failures = r.Failures()
	rec.Touch(r.RunID)

	if err := e.registry.Save(rec); err != nil {
		r.State = registry.StateInconsistent
		return err
	}

	r.State = stateOf(rec)
	return r.Err()
}

func tracksTarget(rec *registry.Record, target string) bool {
	return rec != nil && slices.Contains(rec.Targets, target)
}

// stateOf derives the state recorded by rec alone, without looking at
// the files.
func stateOf(rec *registry.Record) registry.State {
	switch {
	case rec == nil:
		return registry.StateUninitialized
	case len(rec.Failures) > 0:
		return registry.StateInconsistent
	default:
		return registry.StateConfigured
	}
}

func notConfigured(projectPath string) error {
	return rserrors.New(rserrors.ErrCodeNotConfigured, projectPath+" is not configured", nil).
		WithSuggestion("Run `rulesmith init` first")
}
