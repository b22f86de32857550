package cmd

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/rulesmith/internal/logging"
)

type logsOptions struct {
	follow  bool
	lines   int
	level   string
	filter  string
	logFile string
	source  string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View rulesmith logs",
		Long: `View and tail rulesmith's structured logs.

By default, shows the last 50 lines of the command log. Use -f to follow
new entries in real-time (like 'tail -f').

Log Sources:
  cli    - command log (<state.dir>/logs/rulesmith.log)
  serve  - MCP server log (<state.dir>/logs/serve.log)
  all    - both sources merged by timestamp`,
		Example: `  rulesmith logs                    # Last 50 lines of the command log
  rulesmith logs --source serve     # MCP server log
  rulesmith logs --source all -f    # Follow everything
  rulesmith logs --level error      # Errors only
  rulesmith logs --filter link_     # Filter by pattern`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Filter by log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Filter by keyword/pattern (regex)")
	cmd.Flags().StringVar(&opts.logFile, "file", "", "Path to log file (overrides --source)")
	cmd.Flags().StringVar(&opts.source, "source", "cli", "Log source: cli, serve, or all")

	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	source, err := logging.ParseLogSource(opts.source)
	if err != nil {
		return err
	}

	cfg := loadConfigOrDefault()
	paths, err := logging.FindLogFiles(cfg.LogDir(), source, opts.logFile)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		pattern, err = regexp.Compile(opts.filter)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:      opts.level,
		Pattern:    pattern,
		NoColor:    noColor,
		ShowSource: source == logging.LogSourceAll || len(paths) > 1,
	}, out)

	if len(paths) == 1 {
		_, _ = fmt.Fprintf(errOut, "Log file: %s\n", paths[0])
	} else {
		_, _ = fmt.Fprintf(errOut, "Log files: %s\n", strings.Join(paths, ", "))
	}
	if opts.follow {
		_, _ = fmt.Fprintln(errOut, "Following... (Ctrl+C to stop)")
	}
	_, _ = fmt.Fprintln(errOut, "---")

	if opts.follow {
		return followLogs(cmd.Context(), cmd, viewer, paths)
	}

	entries, err := viewer.Tail(opts.lines, paths...)
	if err != nil {
		return err
	}
	viewer.Print(entries)
	return nil
}

func followLogs(ctx context.Context, cmd *cobra.Command, viewer *logging.Viewer, paths []string) error {
	entries := make(chan logging.LogEntry, 100)
	errCh := make(chan error, 1)

	go func() {
		errCh <- viewer.Follow(ctx, paths, entries)
	}()

	for {
		select {
		case entry := <-entries:
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), viewer.FormatEntry(entry))
		case err := <-errCh:
			return err
		case <-ctx.Done():
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "\n---")
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Stopped.")
			return nil
		}
	}
}
