package cmd

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/rulesmith/internal/engine"
	"github.com/Aman-CERP/rulesmith/internal/output"
)

func newSyncCmd() *cobra.Command {
	var (
		flags reportFlags
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Re-apply the stored selection against the current catalog",
		Long: `Re-detect the project's profile, re-run selection with the preferences
stored by 'rulesmith init' and bring the guidance file and linked artifacts
up to date. No questions are asked.

With --watch, sync runs once and then again every time the catalog
changes, until interrupted.`,
		Example: `  # Update after a catalog change
  rulesmith sync

  # Show the diff without writing
  rulesmith sync --dry-run

  # Keep the project in step with the catalog
  rulesmith sync --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if watch && flags.dryRun {
				return errors.New("--watch and --dry-run are mutually exclusive")
			}
			return runSync(cmd, flags, watch)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Sync again whenever the catalog changes")

	return cmd
}

func runSync(cmd *cobra.Command, flags reportFlags, watch bool) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	r, err := e.engine.Sync(ctx, e.root, engine.SyncOptions{DryRun: flags.dryRun})
	if err := finishRun(cmd, flags, r, err); err != nil || !watch {
		return err
	}

	out := output.New(cmd.ErrOrStderr())
	out.Statusf("👀", "Watching %s (Ctrl-C to stop)", e.cfg.Catalog.Path)

	return e.engine.Watch(ctx, e.root, func(r *engine.Report, err error) {
		if err := finishRun(cmd, flags, r, err); err != nil {
			slog.Warn("watch_sync_failed", slog.String("error", err.Error()))
			out.Errorf("sync failed: %v", err)
		}
	})
}
