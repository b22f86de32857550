// Package engine runs the rulesmith pipelines: init, sync, remove and
// status. It wires the detector, collector, selector, synthesizer and
// distributor together and owns the order in which side effects happen:
// guidance file first, distribution second, registry record last.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Aman-CERP/rulesmith/internal/catalog"
	"github.com/Aman-CERP/rulesmith/internal/config"
	"github.com/Aman-CERP/rulesmith/internal/distribute"
	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
	"github.com/Aman-CERP/rulesmith/internal/journal"
	"github.com/Aman-CERP/rulesmith/internal/prefs"
	"github.com/Aman-CERP/rulesmith/internal/profile"
	"github.com/Aman-CERP/rulesmith/internal/registry"
	"github.com/Aman-CERP/rulesmith/internal/selector"
)

// Engine runs pipelines against one configuration.
type Engine struct {
	cfg        *config.Config
	loader     *catalog.Loader
	catalog    *catalog.Catalog
	detector   profile.Detector
	registry   *registry.Store
	journal    *journal.Store
	asker      prefs.Asker
	strategies []distribute.Strategy
	logger     *slog.Logger

	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithCatalog uses cat instead of loading catalog.path.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(e *Engine) {
		e.catalog = cat
	}
}

// WithDetector replaces the filesystem detector.
func WithDetector(d profile.Detector) Option {
	return func(e *Engine) {
		e.detector = d
	}
}

// WithRegistry replaces the registry store under state.dir.
func WithRegistry(s *registry.Store) Option {
	return func(e *Engine) {
		e.registry = s
	}
}

// WithJournal records every run in j. Without it runs are not journaled.
func WithJournal(j *journal.Store) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithAsker sets the Asker used by interactive init.
func WithAsker(a prefs.Asker) Option {
	return func(e *Engine) {
		e.asker = a
	}
}

// WithStrategies overrides distribution.strategies.
func WithStrategies(s ...distribute.Strategy) Option {
	return func(e *Engine) {
		e.strategies = s
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Engine for cfg.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, rserrors.InternalError("engine requires a config", nil)
	}

	e := &Engine{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.detector == nil {
		e.detector = profile.NewFSDetector(profile.WithLogger(e.logger))
	}
	if e.registry == nil {
		store, err := registry.NewStore(cfg.ProjectsDir(), registry.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		e.registry = store
	}
	if e.strategies == nil {
		strategies, err := distribute.StrategiesByName(cfg.Distribution.Strategies)
		if err != nil {
			return nil, err
		}
		if len(strategies) == 0 {
			strategies = distribute.DefaultStrategies()
		}
		e.strategies = strategies
	}
	if e.catalog == nil {
		loader, err := catalog.NewLoader(catalog.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		e.loader = loader
	}

	return e, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

// Registry returns the registry store.
func (e *Engine) Registry() *registry.Store {
	return e.registry
}

// Catalog returns the catalog, reloading it from disk when the engine was
// not given a fixed one. Unchanged record files are served from the
// loader's cache, so reloading in a watch loop is cheap.
func (e *Engine) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	if e.loader == nil {
		return e.catalog, nil
	}
	return e.loader.Load(ctx, e.cfg.Catalog.Path)
}

// Detect builds the project profile: detected facts with configured
// overrides layered on top.
func (e *Engine) Detect(ctx context.Context, projectPath string) (profile.Profile, error) {
	p, err := e.detector.Detect(ctx, projectPath)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("detect project facts: %w", err)
	}
	return profile.ApplyOverrides(p, e.cfg.Profile), nil
}

// Preview runs detection and selection without touching the project.
func (e *Engine) Preview(ctx context.Context, projectPath string, set prefs.Set, threshold int) (selector.Result, profile.Profile, error) {
	cat, err := e.Catalog(ctx)
	if err != nil {
		return selector.Result{}, profile.Profile{}, err
	}
	p, err := e.Detect(ctx, projectPath)
	if err != nil {
		return selector.Result{}, profile.Profile{}, err
	}
	return selector.Select(cat, p, set, e.threshold(threshold, set)), p, nil
}

// threshold picks the first of: the explicit flag, the configured value,
// the strictness-derived value.
func (e *Engine) threshold(explicit int, set prefs.Set) int {
	switch {
	case explicit > 0:
		return explicit
	case e.cfg.Selection.Threshold > 0:
		return e.cfg.Selection.Threshold
	default:
		return selector.ThresholdFromPreferences(set)
	}
}

func (e *Engine) guidancePath(projectPath string) string {
	return filepath.Join(projectPath, filepath.FromSlash(e.cfg.Target.GuidanceFile))
}

func (e *Engine) distributionRoot(projectPath string) string {
	return filepath.Join(projectPath, filepath.FromSlash(e.cfg.Target.DistributionDir))
}

// items maps a selection to distribution items. Records without a file
// (in-memory catalogs) are not distributed.
func (e *Engine) items(cat *catalog.Catalog, res selector.Result, projectPath string) []distribute.Item {
	root := e.distributionRoot(projectPath)
	var items []distribute.Item

	for _, id := range res.RuleIDs {
		r, ok := cat.Rule(id)
		if !ok || cat.Abs(r.Path) == "" {
			continue
		}
		items = append(items, distribute.Item{
			ID:     r.ID,
			Kind:   "rule",
			Source: cat.Abs(r.Path),
			Dest:   filepath.Join(root, filepath.FromSlash(r.Path)),
		})
	}
	for _, id := range res.ArtifactIDs {
		a, ok := cat.Artifact(id)
		if !ok || cat.Abs(a.Path) == "" {
			continue
		}
		items = append(items, distribute.Item{
			ID:     a.ID,
			Kind:   string(a.Kind),
			Source: cat.Abs(a.Path),
			Dest:   filepath.Join(root, filepath.FromSlash(a.Path)),
		})
	}
	return items
}

func (e *Engine) distributor(projectPath string, dryRun bool) *distribute.Distributor {
	return distribute.New(
		distribute.WithStrategies(e.strategies...),
		distribute.WithRoot(e.distributionRoot(projectPath)),
		distribute.WithDryRun(dryRun),
		distribute.WithLogger(e.logger),
	)
}

// resolveProject returns the absolute project path.
func resolveProject(projectPath string) (string, error) {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return "", fmt.Errorf("resolve project path: %w", err)
	}
	return abs, nil
}

func newRunID() string {
	return uuid.NewString()
}

// journalRun appends the run to the journal. Failures are logged, never
// returned: the journal is history, not state.
func (e *Engine) journalRun(ctx context.Context, r *Report, runErr error) {
	if e.journal == nil || r == nil {
		return
	}

	run := journal.Run{
		ID:          r.RunID,
		ProjectID:   r.ProjectID,
		ProjectPath: r.ProjectPath,
		Command:     r.Command,
		StartedAt:   r.StartedAt,
		Duration:    r.Duration,
		Outcome:     journal.OutcomeOK,
	}
	if r.Selection.CatalogVersion != "" {
		run.CatalogVersion = r.Selection.CatalogVersion
		run.Rules = len(r.Selection.RuleIDs)
		run.Artifacts = len(r.Selection.ArtifactIDs)
	}
	run.Created, run.Removed, run.Unchanged, run.Failed = r.Distribution.Counts()

	switch {
	case errors.Is(runErr, prefs.ErrCancelled):
		run.Outcome = journal.OutcomeCancelled
	case runErr != nil && run.Failed > 0:
		run.Outcome = journal.OutcomePartial
		run.Error = runErr.Error()
	case runErr != nil:
		run.Outcome = journal.OutcomeFailed
		run.Error = runErr.Error()
	case r.DryRun:
		run.Outcome = journal.OutcomeDryRun
	}

	// A cancelled context must not lose the history entry.
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.journal.Record(jctx, run); err != nil {
		e.logger.Warn("journal_record_failed", slog.String("run_id", run.ID), slog.String("error", err.Error()))
	}
}
