package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/rulesmith/internal/logging"
	"github.com/Aman-CERP/rulesmith/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Serve read-only rulesmith tools and the catalog's records over the Model
Context Protocol so an assistant can inspect a project's configuration,
preview a selection and search the catalog.

stdout carries the JSON-RPC stream. Logs go to serve.log under the state
directory; read them with 'rulesmith logs --source serve'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport: stdio")

	return cmd
}

func runServe(ctx context.Context, transport string) error {
	cfg := loadConfigOrDefault()
	level := cfg.Logging.Level
	if debugMode {
		level = "debug"
	}

	logger, cleanup, err := logging.SetupServeMode(cfg.LogDir(), level)
	if err != nil {
		return fmt.Errorf("failed to setup serve logging: %w", err)
	}
	defer cleanup()

	e, err := openEnv()
	if err != nil {
		logger.Error("serve_config_failed", slog.String("error", err.Error()))
		return err
	}
	defer e.Close()

	srv, err := mcp.NewServer(e.engine, e.root, logger)
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	if n, err := srv.RegisterResources(ctx); err != nil {
		logger.Warn("resources_unavailable", slog.String("error", err.Error()))
	} else {
		logger.Info("resources_registered", slog.Int("count", n))
	}

	if err := srv.Serve(ctx, transport); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
