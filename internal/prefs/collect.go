package prefs

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
	"github.com/Aman-CERP/rulesmith/internal/profile"
)

// ErrCancelled is returned when the user aborts collection. No partial
// answers are returned alongside it.
var ErrCancelled = errors.New("preference collection cancelled")

// Mode selects how preferences are collected.
type Mode int

const (
	// ModeQuick derives Tier 1 from the profile and asks nothing.
	ModeQuick Mode = iota
	// ModeInteractive walks the tiers through an Asker.
	ModeInteractive
)

// Asker presents a question and returns the user's answer. Implementations
// return ErrCancelled when the user aborts.
type Asker interface {
	Ask(ctx context.Context, q Question) (Answer, error)
}

// AskerFunc adapts a function to the Asker interface.
type AskerFunc func(ctx context.Context, q Question) (Answer, error)

// Ask calls f.
func (f AskerFunc) Ask(ctx context.Context, q Question) (Answer, error) {
	return f(ctx, q)
}

// Collector gathers a preference Set.
type Collector struct {
	asker  Asker
	logger *slog.Logger
	// fallback is the strictness used in quick mode when the stage is unknown.
	fallback Strictness
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithAsker sets the Asker used in interactive mode.
func WithAsker(a Asker) CollectorOption {
	return func(c *Collector) {
		c.asker = a
	}
}

// WithDefaultStrictness sets the quick-mode strictness used when the
// profile does not reveal a stage.
func WithDefaultStrictness(s Strictness) CollectorOption {
	return func(c *Collector) {
		c.fallback = s
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) CollectorOption {
	return func(c *Collector) {
		c.logger = logger
	}
}

// NewCollector creates a Collector.
func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect gathers a preference Set for the given profile.
func Collect(ctx context.Context, p profile.Profile, mode Mode, asker Asker) (Set, error) {
	return NewCollector(WithAsker(asker)).Collect(ctx, p, mode)
}

// Collect gathers a preference Set. In quick mode no questions are asked.
// In interactive mode a cancelled Asker yields ErrCancelled and an empty Set.
func (c *Collector) Collect(ctx context.Context, p profile.Profile, mode Mode) (Set, error) {
	if mode == ModeQuick {
		set := c.Quick(p)
		c.logger.Debug("preferences_quick",
			slog.String("strictness", string(set.Tier1.Strictness)),
			slog.String("stage", string(set.Tier1.Stage)))
		return set, nil
	}

	if c.asker == nil {
		return Set{}, rserrors.InternalError("interactive collection requires an asker", nil)
	}

	set, err := c.interactive(ctx, p)
	if err != nil {
		if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
			c.logger.Info("preferences_cancelled")
			return Set{}, ErrCancelled
		}
		return Set{}, err
	}

	c.logger.Debug("preferences_collected",
		slog.String("strictness", string(set.Tier1.Strictness)),
		slog.Bool("extended", set.Tier3 != nil))
	return set, nil
}

// Quick derives Tier 1 answers from the profile. Tier 2 and Tier 3 are left
// unset.
func (c *Collector) Quick(p profile.Profile) Set {
	var t1 Tier1Answers
	if stage := Stage(p.Maturity); validStage(stage) {
		t1.Stage = stage
		t1.Strictness = StrictnessForStage(stage)
	} else if c.fallback != "" {
		t1.Strictness = c.fallback
	}
	return Merge(t1, Tier2Answers{}, nil)
}

// StrictnessForStage is the quick-mode strictness for a lifecycle stage.
func StrictnessForStage(s Stage) Strictness {
	switch s {
	case StagePrototype:
		return StrictnessRelaxed
	case StageProduction:
		return StrictnessStrict
	default:
		return StrictnessStandard
	}
}

func (c *Collector) interactive(ctx context.Context, p profile.Profile) (Set, error) {
	quick := c.Quick(p)
	defStrictness := quick.Tier1.Strictness
	if defStrictness == "" {
		defStrictness = DefaultStrictness
	}
	defStage := quick.Tier1.Stage
	if defStage == "" {
		defStage = StageMVP
	}

	var t1 Tier1Answers
	a, err := c.ask(ctx, strictnessQuestion(defStrictness))
	if err != nil {
		return Set{}, err
	}
	t1.Strictness = Strictness(a.Value)

	if a, err = c.ask(ctx, stageQuestion(defStage)); err != nil {
		return Set{}, err
	}
	t1.Stage = Stage(a.Value)

	if a, err = c.ask(ctx, excludedCategoriesQuestion()); err != nil {
		return Set{}, err
	}
	t1.ExcludedCategories = Ptr(a.Values)

	var t2 Tier2Answers
	for _, tq := range tier2Questions {
		if !tq.gate(t1, p) {
			continue
		}
		a, err := c.ask(ctx, tq.question)
		if err != nil {
			return Set{}, err
		}
		tq.assign(&t2, a)
	}

	a, err = c.ask(ctx, customizeQuestion)
	if err != nil {
		return Set{}, err
	}
	if !a.Yes {
		return Merge(t1, t2, nil), nil
	}

	t3 := &Tier3Answers{}
	for _, q := range tier3Questions() {
		a, err := c.ask(ctx, q)
		if err != nil {
			return Set{}, err
		}
		switch q.ID {
		case QGitWorkflow:
			t3.GitWorkflow = Ptr(GitWorkflow(a.Value))
		case QAPIStyle:
			t3.APIStyle = Ptr(APIStyle(a.Value))
		case QPerformanceFocus:
			t3.PerformanceFocus = Ptr(PerformanceFocus(a.Value))
		case QArtifactKinds:
			t3.ArtifactKinds = Ptr(a.Values)
		}
	}

	return Merge(t1, t2, t3), nil
}

// ask runs one question and validates the answer against its options.
func (c *Collector) ask(ctx context.Context, q Question) (Answer, error) {
	if err := ctx.Err(); err != nil {
		return Answer{}, err
	}
	a, err := c.asker.Ask(ctx, q)
	if err != nil {
		return Answer{}, err
	}

	switch q.Kind {
	case KindSingle:
		if a.Value == "" {
			a.Value = q.Default
		}
		if !hasOption(q, a.Value) {
			return Answer{}, rserrors.ValidationError("invalid answer for "+q.ID+": "+a.Value, nil)
		}
	case KindMulti:
		for _, v := range a.Values.Values {
			if !hasOption(q, v) {
				return Answer{}, rserrors.ValidationError("invalid answer for "+q.ID+": "+v, nil)
			}
		}
		switch {
		case len(a.Values.Values) > 0, a.Values.None:
		case len(q.Defaults) > 0:
			a.Values = MultiSelect{Values: slices.Clone(q.Defaults)}
		default:
			a.Values = MultiSelect{None: true}
		}
	}
	return a, nil
}

func hasOption(q Question, v string) bool {
	return slices.ContainsFunc(q.Options, func(o Option) bool { return o.Value == v })
}

func validStage(s Stage) bool {
	switch s {
	case StagePrototype, StageMVP, StageProduction, StageLegacy:
		return true
	}
	return false
}
