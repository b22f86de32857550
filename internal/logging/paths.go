package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Log file names inside the log directory.
const (
	LogFileName      = "rulesmith.log"
	ServeLogFileName = "serve.log"
)

// DefaultLogDir returns ~/.rulesmith/logs, falling back to the temp
// directory when the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".rulesmith", "logs")
	}
	return filepath.Join(home, ".rulesmith", "logs")
}

// LogPath returns the command log inside dir.
func LogPath(dir string) string {
	return filepath.Join(dir, LogFileName)
}

// ServeLogPath returns the MCP server log inside dir.
func ServeLogPath(dir string) string {
	return filepath.Join(dir, ServeLogFileName)
}

// LogSource selects which log files to view.
type LogSource string

const (
	// LogSourceCLI is the command log (default).
	LogSourceCLI LogSource = "cli"
	// LogSourceServe is the MCP server log.
	LogSourceServe LogSource = "serve"
	// LogSourceAll merges every source.
	LogSourceAll LogSource = "all"
)

// ParseLogSource parses a --source value.
func ParseLogSource(s string) (LogSource, error) {
	switch LogSource(strings.ToLower(s)) {
	case "", LogSourceCLI:
		return LogSourceCLI, nil
	case LogSourceServe:
		return LogSourceServe, nil
	case LogSourceAll:
		return LogSourceAll, nil
	default:
		return "", fmt.Errorf("unknown log source %q (use: cli, serve, all)", s)
	}
}

// FindLogFiles returns the existing log files for source inside dir.
// An explicit path takes precedence over source.
func FindLogFiles(dir string, source LogSource, explicit string) ([]string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, fmt.Errorf("log file not found: %s", explicit)
		}
		return []string{explicit}, nil
	}

	var candidates []string
	switch source {
	case LogSourceCLI:
		candidates = []string{LogPath(dir)}
	case LogSourceServe:
		candidates = []string{ServeLogPath(dir)}
	case LogSourceAll:
		candidates = []string{LogPath(dir), ServeLogPath(dir)}
	default:
		return nil, fmt.Errorf("unknown log source %q", source)
	}

	var found []string
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no log files found for source %q (checked %s)\n\n%s",
			source, strings.Join(candidates, ", "), logHint(source))
	}
	return found, nil
}

// sourceFromPath names the source a log file belongs to.
func sourceFromPath(path string) string {
	switch filepath.Base(path) {
	case LogFileName:
		return string(LogSourceCLI)
	case ServeLogFileName:
		return string(LogSourceServe)
	default:
		return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
}

func logHint(source LogSource) string {
	switch source {
	case LogSourceServe:
		return "Server logs are written while `rulesmith serve` runs."
	default:
		return "Command logs are written by every rulesmith command, for example:\n  rulesmith status"
	}
}
