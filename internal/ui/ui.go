// Package ui renders run reports and project status for the terminal.
package ui

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Config configures the renderers.
type Config struct {
	Output  io.Writer
	NoColor bool
	// Verbose adds the guidance diff and every link outcome to reports.
	Verbose bool
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = c.NoColor || noColor
	}
}

// WithVerbose enables verbose reports.
func WithVerbose(verbose bool) ConfigOption {
	return func(c *Config) {
		c.Verbose = verbose
	}
}

// NewConfig creates a Config for output. Color is off when output is not a
// terminal, when NO_COLOR is set, or in CI.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{
		Output:  output,
		NoColor: !IsTTY(output) || DetectNoColor() || DetectCI(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// IsTTY checks if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// IsInteractive reports whether both in and out are terminals, which is
// what interactive init needs to ask questions.
func IsInteractive(in io.Reader, out io.Writer) bool {
	f, ok := in.(*os.File)
	if !ok || f == nil {
		return false
	}
	return (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) && IsTTY(out)
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}
	for _, v := range ciVars {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
