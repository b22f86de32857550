// Package distribute materializes catalog records into a project's
// distribution directory and keeps that directory in step with the
// selection.
//
// Each destination is created by the first strategy that succeeds, in order
// (by default hardlink, symlink, copy). The mechanism used is recorded in a
// LinkEntry so a later run can tell whether the destination is still ours.
// Destinations the user changed are never removed or overwritten; they are
// reported as conflicts.
package distribute

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
)

// LinkEntry records one materialized catalog record.
type LinkEntry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Source    string    `json:"source"`
	Dest      string    `json:"dest"`
	Mechanism Mechanism `json:"mechanism"`
	Checksum  string    `json:"checksum"`
}

// Item is a record that should be present in the project.
type Item struct {
	ID     string
	Kind   string
	Source string
	Dest   string
}

// Status is the outcome of one reconcile operation.
type Status string

const (
	StatusCreated   Status = "created"
	StatusRemoved   Status = "removed"
	StatusUnchanged Status = "unchanged"
	StatusFailed    Status = "failed"
)

// Outcome is the per-entry result of Reconcile.
type Outcome struct {
	ID        string
	Dest      string
	Status    Status
	Mechanism Mechanism
	// Conflict marks a failed outcome caused by a destination the user
	// changed.
	Conflict bool
	Err      error
}

// Report is the result of Reconcile.
type Report struct {
	Outcomes []Outcome
	// Entries is the link set after reconciliation, sorted by id.
	Entries []LinkEntry
}

// Counts tallies outcomes by status.
func (r Report) Counts() (created, removed, unchanged, failed int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusCreated:
			created++
		case StatusRemoved:
			removed++
		case StatusUnchanged:
			unchanged++
		case StatusFailed:
			failed++
		}
	}
	return created, removed, unchanged, failed
}

// Failed returns the failed outcomes.
func (r Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Changed reports whether any destination was created or removed.
func (r Report) Changed() bool {
	c, rm, _, _ := r.Counts()
	return c+rm > 0
}

// Distributor reconciles desired items against recorded link entries.
type Distributor struct {
	strategies []Strategy
	root       string
	dryRun     bool
	logger     *slog.Logger
}

// Option configures a Distributor.
type Option func(*Distributor)

// WithStrategies sets the fallback order.
func WithStrategies(s ...Strategy) Option {
	return func(d *Distributor) {
		d.strategies = s
	}
}

// WithRoot sets the distribution root. Empty directories below it are pruned
// after removals; the root itself is kept.
func WithRoot(dir string) Option {
	return func(d *Distributor) {
		d.root = dir
	}
}

// WithDryRun computes outcomes without touching the filesystem.
func WithDryRun(dryRun bool) Option {
	return func(d *Distributor) {
		d.dryRun = dryRun
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Distributor) {
		d.logger = logger
	}
}

// New creates a Distributor using the default strategies.
func New(opts ...Option) *Distributor {
	d := &Distributor{
		strategies: DefaultStrategies(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Reconcile makes the destinations match desired. It is best effort: a
// failure on one entry never stops the others. Every desired item and every
// existing entry that is no longer desired produces exactly one Outcome.
func (d *Distributor) Reconcile(desired []Item, existing []LinkEntry) Report {
	byID := make(map[string]LinkEntry, len(existing))
	for _, e := range existing {
		byID[e.ID] = e
	}

	var (
		report  Report
		stale   []LinkEntry
		wanted  = make(map[string]bool, len(desired))
		removed []string
	)

	items := slices.Clone(desired)
	slices.SortFunc(items, func(a, b Item) int { return strings.Compare(a.ID, b.ID) })

	for _, item := range items {
		if wanted[item.ID] {
			continue
		}
		wanted[item.ID] = true

		var (
			o     Outcome
			entry *LinkEntry
		)
		prev, known := byID[item.ID]
		switch {
		case !known:
			o, entry = d.place(item)
		case prev.Dest != item.Dest:
			// Moved: the old destination is handled as a removal.
			stale = append(stale, prev)
			o, entry = d.place(item)
		case prev.Source != item.Source:
			o, entry = d.relink(prev, item)
		default:
			o, entry = d.refresh(prev)
		}
		report.Outcomes = append(report.Outcomes, o)
		if entry != nil {
			report.Entries = append(report.Entries, *entry)
		}
	}

	for _, e := range existing {
		if !wanted[e.ID] {
			stale = append(stale, e)
		}
	}
	slices.SortFunc(stale, func(a, b LinkEntry) int { return strings.Compare(a.Dest, b.Dest) })

	for _, e := range stale {
		o := d.remove(e)
		report.Outcomes = append(report.Outcomes, o)
		if o.Status == StatusRemoved {
			removed = append(removed, e.Dest)
		}
	}

	if !d.dryRun {
		d.prune(removed)
	}

	slices.SortFunc(report.Entries, func(a, b LinkEntry) int { return strings.Compare(a.ID, b.ID) })

	created, rm, unchanged, failed := report.Counts()
	d.logger.Info("distribution_reconciled",
		slog.Int("created", created),
		slog.Int("removed", rm),
		slog.Int("unchanged", unchanged),
		slog.Int("failed", failed),
		slog.Bool("dry_run", d.dryRun))

	return report
}

// refresh handles a desired item that already has an entry.
func (d *Distributor) refresh(e LinkEntry) (Outcome, *LinkEntry) {
	o := Outcome{ID: e.ID, Dest: e.Dest, Mechanism: e.Mechanism}

	switch state := inspect(e); state {
	case destIntact:
		if e.Mechanism != Copy {
			if sum, err := Checksum(e.Source); err == nil {
				e.Checksum = sum
			}
		}
		o.Status = StatusUnchanged
		return o, &e

	case destMissing, destStale:
		if d.dryRun {
			o.Status = StatusCreated
			return o, &e
		}
		if state == destStale {
			if err := os.Remove(e.Dest); err != nil {
				o.Status, o.Err = StatusFailed, rserrors.IOError("remove stale "+e.Dest, err)
				return o, nil
			}
		}
		return d.place(Item{ID: e.ID, Kind: e.Kind, Source: e.Source, Dest: e.Dest})

	default:
		o.Status = StatusFailed
		o.Conflict = true
		o.Err = divergedError(e.Dest)
		d.logger.Warn("distribution_conflict", slog.String("id", e.ID), slog.String("dest", e.Dest))
		return o, nil
	}
}

// relink handles an entry whose destination is unchanged but whose source
// moved, as when the catalog is relocated. The destination is replaced in
// one step so it is never removed after being adopted.
func (d *Distributor) relink(prev LinkEntry, item Item) (Outcome, *LinkEntry) {
	if _, ok := adoptable(item.Source, item.Dest); ok {
		return d.place(item)
	}
	if _, err := os.Stat(item.Source); err != nil {
		return d.place(item)
	}

	switch inspect(prev) {
	case destMissing:
		return d.place(item)

	case destIntact, destStale:
		if d.dryRun {
			o := Outcome{ID: item.ID, Dest: item.Dest, Status: StatusCreated, Mechanism: d.strategies[0].Mechanism}
			entry := LinkEntry{ID: item.ID, Kind: item.Kind, Source: item.Source, Dest: item.Dest, Mechanism: o.Mechanism}
			entry.Checksum, _ = Checksum(item.Source)
			return o, &entry
		}
		if err := os.Remove(item.Dest); err != nil {
			return Outcome{ID: item.ID, Dest: item.Dest, Status: StatusFailed,
				Err: rserrors.IOError("remove stale "+item.Dest, err)}, nil
		}
		d.logger.Debug("distribution_relinked",
			slog.String("id", item.ID),
			slog.String("old_source", prev.Source),
			slog.String("source", item.Source))
		return d.place(item)

	default:
		d.logger.Warn("distribution_conflict", slog.String("id", item.ID), slog.String("dest", item.Dest))
		return Outcome{ID: item.ID, Dest: item.Dest, Status: StatusFailed, Conflict: true, Err: divergedError(item.Dest)}, nil
	}
}

// place creates the destination for an item that has no usable entry.
func (d *Distributor) place(item Item) (Outcome, *LinkEntry) {
	o := Outcome{ID: item.ID, Dest: item.Dest}

	if item.Source == "" {
		o.Status, o.Err = StatusFailed, rserrors.InternalError("no source file for "+item.ID, nil)
		return o, nil
	}
	sum, err := Checksum(item.Source)
	if err != nil {
		o.Status, o.Err = StatusFailed, rserrors.New(rserrors.ErrCodeFileNotFound, "read source "+item.Source, err)
		return o, nil
	}
	entry := LinkEntry{ID: item.ID, Kind: item.Kind, Source: item.Source, Dest: item.Dest, Checksum: sum}

	if _, err := os.Lstat(item.Dest); err == nil {
		if mech, ok := adoptable(item.Source, item.Dest); ok {
			entry.Mechanism = mech
			o.Status, o.Mechanism = StatusUnchanged, mech
			return o, &entry
		}
		o.Status, o.Conflict, o.Err = StatusFailed, true, divergedError(item.Dest)
		d.logger.Warn("distribution_conflict", slog.String("id", item.ID), slog.String("dest", item.Dest))
		return o, nil
	}

	if d.dryRun {
		entry.Mechanism = d.strategies[0].Mechanism
		o.Status, o.Mechanism = StatusCreated, entry.Mechanism
		return o, &entry
	}

	mech, err := d.link(item.Source, item.Dest)
	if err != nil {
		o.Status, o.Err = StatusFailed, err
		d.logger.Error("distribution_link_failed", slog.String("id", item.ID), slog.String("error", err.Error()))
		return o, nil
	}
	entry.Mechanism = mech
	o.Status, o.Mechanism = StatusCreated, mech
	return o, &entry
}

// link tries each strategy in order and returns the mechanism that worked.
func (d *Distributor) link(src, dst string) (Mechanism, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", rserrors.New(rserrors.ErrCodeLinkFailed, "create directory for "+dst, err)
	}

	var errs []error
	for _, s := range d.strategies {
		err := s.Link(src, dst)
		if err == nil {
			return s.Mechanism, nil
		}
		d.logger.Debug("link_strategy_failed",
			slog.String("mechanism", string(s.Mechanism)),
			slog.String("dest", dst),
			slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("%s: %w", s.Mechanism, err))
	}
	return "", rserrors.New(rserrors.ErrCodeLinkFailed, "every link strategy failed for "+dst, errors.Join(errs...))
}

// remove deletes a destination that is no longer desired, if it is still
// ours.
func (d *Distributor) remove(e LinkEntry) Outcome {
	o := Outcome{ID: e.ID, Dest: e.Dest, Mechanism: e.Mechanism}

	switch inspect(e) {
	case destMissing:
		o.Status = StatusRemoved
	case destIntact, destStale:
		if !d.dryRun {
			if err := os.Remove(e.Dest); err != nil {
				o.Status, o.Err = StatusFailed, rserrors.IOError("remove "+e.Dest, err)
				return o
			}
		}
		o.Status = StatusRemoved
	default:
		o.Status, o.Conflict, o.Err = StatusFailed, true, divergedError(e.Dest)
		d.logger.Warn("distribution_conflict", slog.String("id", e.ID), slog.String("dest", e.Dest))
	}
	return o
}

// prune removes empty directories left behind by removals, stopping at the
// distribution root.
func (d *Distributor) prune(paths []string) {
	if d.root == "" {
		return
	}
	root := filepath.Clean(d.root)
	for _, p := range paths {
		dir := filepath.Dir(p)
		for dir != root && strings.HasPrefix(dir, root+string(filepath.Separator)) {
			if err := os.Remove(dir); err != nil {
				break
			}
			dir = filepath.Dir(dir)
		}
	}
}

func divergedError(dest string) error {
	return rserrors.New(rserrors.ErrCodeDestDiverged, dest+" was modified outside rulesmith", nil).
		WithDetail("path", dest).
		WithSuggestion("Keep your version by leaving it, or delete it and run `rulesmith sync` to restore the managed copy")
}
