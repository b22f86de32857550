package cmd

import (
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/rulesmith/internal/config"
	"github.com/Aman-CERP/rulesmith/internal/engine"
	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
	"github.com/Aman-CERP/rulesmith/internal/journal"
)

// env is what a pipeline command needs: the project root, its merged
// configuration and an engine journaling into state.dir.
type env struct {
	root    string
	cfg     *config.Config
	journal *journal.Store
	engine  *engine.Engine
}

// openEnv loads configuration for the current project and builds an engine.
// The journal is optional: when it cannot be opened runs are simply not
// recorded.
func openEnv(opts ...engine.Option) (*env, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, rserrors.ConfigError("failed to load config", err).
			WithSuggestion("Run 'rulesmith config show' to inspect the merged configuration")
	}

	e := &env{root: root, cfg: cfg}

	all := []engine.Option{engine.WithLogger(slog.Default())}
	if j, err := journal.Open(cfg.JournalPath()); err != nil {
		slog.Warn("journal_unavailable",
			slog.String("path", cfg.JournalPath()),
			slog.String("error", err.Error()))
	} else {
		e.journal = j
		all = append(all, engine.WithJournal(j))
	}
	all = append(all, opts...)

	eng, err := engine.New(cfg, all...)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.engine = eng
	return e, nil
}

// Close releases the journal.
func (e *env) Close() {
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			slog.Debug("journal_close_failed", slog.String("error", err.Error()))
		}
		e.journal = nil
	}
}
