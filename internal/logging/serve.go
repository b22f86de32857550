package logging

import (
	"log/slog"
)

// SetupServeMode logs the MCP server to ServeLogPath(dir) only. Nothing
// may reach stdout while the JSON-RPC stream is open.
func SetupServeMode(dir, level string) (*slog.Logger, func(), error) {
	cfg := Config{
		Level:         level,
		FilePath:      ServeLogPath(dir),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	logger.Info("serve_logging_started",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level))
	return logger, cleanup, nil
}
