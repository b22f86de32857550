package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
	"github.com/Aman-CERP/rulesmith/internal/watcher"
)

// Watch runs Sync every time the catalog changes, until ctx is cancelled.
// onRun receives the result of every run; a failed run does not stop the
// loop.
func (e *Engine) Watch(ctx context.Context, projectPath string, onRun func(*Report, error)) error {
	if e.loader == nil {
		return rserrors.InternalError("watch requires an on-disk catalog", nil)
	}

	debounce, err := time.ParseDuration(e.cfg.Watch.Debounce)
	if err != nil {
		debounce = 0
	}
	w, err := watcher.New(watcher.Options{Debounce: debounce, Filter: watcher.CatalogFiles}, e.logger)
	if err != nil {
		return err
	}
	defer w.Stop()

	started := make(chan error, 1)
	go func() { started <- w.Start(ctx, e.cfg.Catalog.Path) }()

	e.logger.Info("watch_started",
		slog.String("catalog", e.cfg.Catalog.Path),
		slog.String("project", projectPath),
		slog.String("mode", w.Mode()))

	watchErrs := w.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-started:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			e.logger.Warn("watch_error", slog.String("error", err.Error()))
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			if len(batch) == 0 {
				continue
			}
			e.logger.Info("catalog_changed", slog.Int("files", len(batch)), slog.String("first", batch[0].Path))
			r, err := e.Sync(ctx, projectPath, SyncOptions{})
			if onRun != nil {
				onRun(r, err)
			}
		}
	}
}
