// Package cmd provides the CLI commands for rulesmith.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/rulesmith/internal/config"
	"github.com/Aman-CERP/rulesmith/internal/logging"
	"github.com/Aman-CERP/rulesmith/internal/profiling"
	"github.com/Aman-CERP/rulesmith/pkg/version"
)

// Global flags
var (
	debugMode      bool
	projectDir     string
	noColor        bool
	loggingCleanup func()
)

// Profiling flags
var (
	profileOpts profiling.Options
	profSession *profiling.Session
)

// NewRootCmd creates the root command for the rulesmith CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rulesmith",
		Short: "Synthesize agent guidance from a curated rule catalog",
		Long: `rulesmith selects rules and artifacts from a curated catalog based on
what a project is and how strict its team wants to be, writes them into
marker-delimited regions of the project's guidance file, and links the
chosen commands, skills and agents into the project.

Text outside the managed regions is never touched.

Run 'rulesmith init' in a project directory to get started.`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.SetVersionTemplate("rulesmith version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to stderr and the log file")
	cmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "Project directory")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newCatalogCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, which is cancelled on
// SIGINT and SIGTERM.
func ExecuteContext(ctx context.Context) error {
	err := NewRootCmd().ExecuteContext(ctx)
	// PersistentPostRunE is skipped when RunE fails.
	if stopErr := stopProfilingAndLogging(nil, nil); err == nil {
		err = stopErr
	}
	return err
}

func startProfilingAndLogging(cmd *cobra.Command, args []string) error {
	_ = stopProfilingAndLogging(cmd, args)

	if profileOpts.Enabled() {
		s, err := profiling.Start(profileOpts)
		if err != nil {
			return err
		}
		profSession = s
	}
	return startLogging(cmd)
}

func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var err error
	if profSession != nil {
		err = profSession.Stop()
		profSession = nil
	}
	stopLogging()
	return err
}

// startLogging points slog at the rotating log file. serve installs its own
// logger and logs never writes to the file it reads.
func startLogging(cmd *cobra.Command) error {
	if name := cmd.Name(); name == "serve" || name == "logs" {
		return nil
	}

	cfg := loadConfigOrDefault()
	logCfg := logging.DefaultConfig(cfg.LogDir())
	logCfg.Level = cfg.Logging.Level
	if debugMode {
		logCfg = logging.DebugConfig(cfg.LogDir())
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		// An unwritable state dir must not stop the command.
		slog.SetDefault(logging.Quiet(cmd.ErrOrStderr()))
		slog.Warn("file_logging_unavailable", slog.String("error", err.Error()))
		return nil
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("command_started",
		slog.String("command", cmd.CommandPath()),
		slog.String("version", version.Version),
		slog.String("log_file", logCfg.FilePath))
	return nil
}

func stopLogging() {
	if loggingCleanup != nil {
		slog.Debug("command_finished")
		loggingCleanup()
		loggingCleanup = nil
		slog.SetDefault(logging.Quiet(os.Stderr))
	}
}

// loadConfigOrDefault loads the project's configuration for logging setup.
// Errors are reported later by the command that needs the configuration.
func loadConfigOrDefault() *config.Config {
	root, err := projectRoot()
	if err != nil {
		return config.NewConfig()
	}
	cfg, err := config.Load(root)
	if err != nil {
		return config.NewConfig()
	}
	return cfg
}

// projectRoot resolves the project the command operates on. An explicit
// --dir is used as given; otherwise the root is found by walking up from
// the working directory.
func projectRoot() (string, error) {
	if projectDir != "" && projectDir != "." {
		return filepath.Abs(projectDir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return config.FindProjectRoot(cwd)
}
