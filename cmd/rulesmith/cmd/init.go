package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/rulesmith/internal/engine"
	"github.com/Aman-CERP/rulesmith/internal/output"
	"github.com/Aman-CERP/rulesmith/internal/prefs"
	"github.com/Aman-CERP/rulesmith/internal/prompt"
	"github.com/Aman-CERP/rulesmith/internal/ui"
)

func newInitCmd() *cobra.Command {
	var (
		flags       reportFlags
		quick       bool
		interactive bool
		threshold   int
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Configure a project from the catalog",
		Long: `Detect the project's profile, collect preferences, select rules and
artifacts from the catalog, write them into the guidance file's managed
regions and link the selected artifacts into the project.

Preferences are asked interactively when stdin is a terminal. With --quick,
or when no terminal is attached, defaults derived from the profile are used.

Running init again re-asks the questions and replaces the previous
selection. An existing guidance file that rulesmith has never managed is
backed up before the first write.`,
		Example: `  # Answer a few questions
  rulesmith init

  # Use profile defaults
  rulesmith init --quick

  # Preview the result
  rulesmith init --quick --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if quick && interactive {
				return fmt.Errorf("--quick and --interactive are mutually exclusive")
			}
			if threshold < 0 || threshold > 10 {
				return fmt.Errorf("--threshold must be between 1 and 10, got %d", threshold)
			}
			return runInit(cmd, flags, quick, interactive, threshold)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&quick, "quick", false, "Skip questions and use profile defaults")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "Ask questions even when stdin is not a terminal")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "Override the weight threshold (1-10)")

	return cmd
}

func runInit(cmd *cobra.Command, flags reportFlags, quick, interactive bool, threshold int) error {
	opts := engine.InitOptions{
		Mode:      prefs.ModeQuick,
		Threshold: threshold,
		DryRun:    flags.dryRun,
	}

	var engineOpts []engine.Option
	if !quick {
		asker, closeAsker := newAsker(cmd, interactive)
		if asker != nil {
			defer closeAsker()
			opts.Mode = prefs.ModeInteractive
			engineOpts = append(engineOpts, engine.WithAsker(asker))
		} else if !flags.json {
			output.New(cmd.ErrOrStderr()).Status("💡", "No terminal attached; using profile defaults (--quick)")
		}
	}

	e, err := openEnv(engineOpts...)
	if err != nil {
		return err
	}
	defer e.Close()

	r, err := e.engine.Init(cmd.Context(), e.root, opts)
	return finishRun(cmd, flags, r, err)
}

// newAsker returns the Asker for interactive init, or nil when questions
// cannot be asked. A terminal gets line editing; forced interactive mode on
// a pipe reads plain lines.
func newAsker(cmd *cobra.Command, force bool) (prefs.Asker, func()) {
	in, out := cmd.InOrStdin(), cmd.OutOrStdout()
	if !ui.IsInteractive(in, out) {
		if !force {
			return nil, nil
		}
		return prompt.New(in, out), func() {}
	}

	term, err := prompt.NewTerminal()
	if err != nil {
		slog.Debug("readline_unavailable", slog.String("error", err.Error()))
		a := prompt.New(in, out)
		return a, closer(a)
	}
	return term, closer(term)
}

func closer(c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			slog.Debug("prompt_close_failed", slog.String("error", err.Error()))
		}
	}
}
