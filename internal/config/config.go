package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectFileName is the per-project configuration file.
const ProjectFileName = ".rulesmith.yaml"

// Config represents the complete rulesmith configuration.
type Config struct {
	Version      int                `yaml:"version" json:"version"`
	Catalog      CatalogConfig      `yaml:"catalog" json:"catalog"`
	State        StateConfig        `yaml:"state" json:"state"`
	Target       TargetConfig       `yaml:"target" json:"target"`
	Selection    SelectionConfig    `yaml:"selection" json:"selection"`
	Distribution DistributionConfig `yaml:"distribution" json:"distribution"`
	Profile      ProfileOverrides   `yaml:"profile" json:"profile"`
	Watch        WatchConfig        `yaml:"watch" json:"watch"`
	Logging      LoggingConfig      `yaml:"logging" json:"logging"`
}

// CatalogConfig locates the global catalog store.
type CatalogConfig struct {
	// Path is the catalog root directory (contains catalog.yaml).
	Path string `yaml:"path" json:"path"`
}

// StateConfig locates rulesmith's own state (registry records, journal, logs).
type StateConfig struct {
	Dir string `yaml:"dir" json:"dir"`
}

// TargetConfig names the files rulesmith writes inside a project.
type TargetConfig struct {
	// GuidanceFile is the marker-managed document, relative to the project root.
	GuidanceFile string `yaml:"guidance_file" json:"guidance_file"`
	// DistributionDir receives linked catalog artifacts, relative to the project root.
	DistributionDir string `yaml:"distribution_dir" json:"distribution_dir"`
}

// SelectionConfig tunes the rule selector.
type SelectionConfig struct {
	// DefaultStrictness is used by quick mode when the profile says nothing about stage.
	DefaultStrictness string `yaml:"default_strictness" json:"default_strictness"`
	// Threshold overrides the strictness-derived weight threshold (0 = derive).
	Threshold int `yaml:"threshold" json:"threshold"`
}

// DistributionConfig tunes the distributor.
type DistributionConfig struct {
	// Strategies is the ordered fallback chain of link mechanisms.
	Strategies []string `yaml:"strategies" json:"strategies"`
	// ManageGitignore adds distributed directories to the project's .gitignore.
	// Nil means the default (true).
	ManageGitignore *bool `yaml:"manage_gitignore,omitempty" json:"manage_gitignore,omitempty"`
}

// GitignoreManaged reports whether .gitignore should be maintained.
func (d DistributionConfig) GitignoreManaged() bool {
	return d.ManageGitignore == nil || *d.ManageGitignore
}

// ProfileOverrides supplies project facts the detector cannot see.
type ProfileOverrides struct {
	PrimaryLanguage  string   `yaml:"primary_language" json:"primary_language,omitempty"`
	ProjectTypes     []string `yaml:"project_types" json:"project_types,omitempty"`
	TeamSize         string   `yaml:"team_size" json:"team_size,omitempty"`
	Maturity         string   `yaml:"maturity" json:"maturity,omitempty"`
	DeploymentTarget string   `yaml:"deployment_target" json:"deployment_target,omitempty"`
	Compliance       []string `yaml:"compliance" json:"compliance,omitempty"`
}

// WatchConfig configures `sync --watch`.
type WatchConfig struct {
	Debounce string `yaml:"debounce" json:"debounce"`
}

// LoggingConfig configures file logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// DefaultStrategies is the link fallback chain used when none is configured.
var DefaultStrategies = []string{"hardlink", "symlink", "copy"}

// Strictness levels accepted by selection.default_strictness.
var validStrictness = []string{"relaxed", "standard", "strict", "paranoid"}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	state := defaultStateDir()
	return &Config{
		Version: 1,
		Catalog: CatalogConfig{
			Path: filepath.Join(state, "catalog"),
		},
		State: StateConfig{
			Dir: state,
		},
		Target: TargetConfig{
			GuidanceFile:    "CLAUDE.md",
			DistributionDir: ".claude",
		},
		Selection: SelectionConfig{
			DefaultStrictness: "standard",
		},
		Distribution: DistributionConfig{
			Strategies: slices.Clone(DefaultStrategies),
		},
		Watch: WatchConfig{
			Debounce: "300ms",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// defaultStateDir returns ~/.rulesmith, falling back to the temp directory.
func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".rulesmith")
	}
	return filepath.Join(home, ".rulesmith")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/rulesmith/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/rulesmith/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rulesmith", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "rulesmith", "config.yaml")
	}
	return filepath.Join(home, ".config", "rulesmith", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for the project rooted at dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/rulesmith/config.yaml)
//  3. Project config (.rulesmith.yaml in project root)
//  4. Environment variables (RULESMITH_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if dir != "" {
		if err := cfg.loadFromFile(dir); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .rulesmith.yaml or .rulesmith.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ProjectFileName)
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".rulesmith.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Catalog.Path != "" {
		c.Catalog.Path = other.Catalog.Path
	}
	if other.State.Dir != "" {
		c.State.Dir = other.State.Dir
	}
	if other.Target.GuidanceFile != "" {
		c.Target.GuidanceFile = other.Target.GuidanceFile
	}
	if other.Target.DistributionDir != "" {
		c.Target.DistributionDir = other.Target.DistributionDir
	}
	if other.Selection.DefaultStrictness != "" {
		c.Selection.DefaultStrictness = other.Selection.DefaultStrictness
	}
	if other.Selection.Threshold != 0 {
		c.Selection.Threshold = other.Selection.Threshold
	}
	if len(other.Distribution.Strategies) > 0 {
		c.Distribution.Strategies = other.Distribution.Strategies
	}
	if other.Distribution.ManageGitignore != nil {
		c.Distribution.ManageGitignore = other.Distribution.ManageGitignore
	}

	// Profile overrides
	if other.Profile.PrimaryLanguage != "" {
		c.Profile.PrimaryLanguage = other.Profile.PrimaryLanguage
	}
	if len(other.Profile.ProjectTypes) > 0 {
		c.Profile.ProjectTypes = other.Profile.ProjectTypes
	}
	if other.Profile.TeamSize != "" {
		c.Profile.TeamSize = other.Profile.TeamSize
	}
	if other.Profile.Maturity != "" {
		c.Profile.Maturity = other.Profile.Maturity
	}
	if other.Profile.DeploymentTarget != "" {
		c.Profile.DeploymentTarget = other.Profile.DeploymentTarget
	}
	if len(other.Profile.Compliance) > 0 {
		c.Profile.Compliance = other.Profile.Compliance
	}

	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
}

// applyEnvOverrides applies RULESMITH_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RULESMITH_CATALOG"); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv("RULESMITH_STATE_DIR"); v != "" {
		c.State.Dir = v
	}
	if v := os.Getenv("RULESMITH_GUIDANCE_FILE"); v != "" {
		c.Target.GuidanceFile = v
	}
	if v := os.Getenv("RULESMITH_STRICTNESS"); v != "" {
		c.Selection.DefaultStrictness = strings.ToLower(v)
	}
	if v := os.Getenv("RULESMITH_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Selection.Threshold = n
		}
	}
	if v := os.Getenv("RULESMITH_STRATEGIES"); v != "" {
		var strategies []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				strategies = append(strategies, strings.ToLower(s))
			}
		}
		if len(strategies) > 0 {
			c.Distribution.Strategies = strategies
		}
	}
	if v := os.Getenv("RULESMITH_MANAGE_GITIGNORE"); v != "" {
		enabled := strings.ToLower(v) == "true" || v == "1"
		c.Distribution.ManageGitignore = &enabled
	}
	if v := os.Getenv("RULESMITH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// expandPaths resolves a leading "~/" in path settings.
func (c *Config) expandPaths() {
	c.Catalog.Path = expandHome(c.Catalog.Path)
	c.State.Dir = expandHome(c.State.Dir)
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

// ProjectsDir is where registry records live.
func (c *Config) ProjectsDir() string {
	return filepath.Join(c.State.Dir, "projects")
}

// JournalPath is the run history database.
func (c *Config) JournalPath() string {
	return filepath.Join(c.State.Dir, "history.db")
}

// LogDir is where the rotating log files live.
func (c *Config) LogDir() string {
	return filepath.Join(c.State.Dir, "logs")
}

// FindProjectRoot finds the project root directory.
// It walks up looking for a .git directory or a .rulesmith.yaml/.yml file and
// falls back to the start directory.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, ProjectFileName)) ||
			fileExists(filepath.Join(currentDir, ".rulesmith.yml")) {
			return currentDir, nil
		}

		parent := filepath.Dir(currentDir)
		if parent == currentDir {
			return absDir, nil
		}
		currentDir = parent
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path must not be empty")
	}
	if c.State.Dir == "" {
		return fmt.Errorf("state.dir must not be empty")
	}
	if c.Target.GuidanceFile == "" || filepath.IsAbs(c.Target.GuidanceFile) {
		return fmt.Errorf("target.guidance_file must be a relative path, got %q", c.Target.GuidanceFile)
	}
	if c.Target.DistributionDir == "" || filepath.IsAbs(c.Target.DistributionDir) {
		return fmt.Errorf("target.distribution_dir must be a relative path, got %q", c.Target.DistributionDir)
	}

	if !slices.Contains(validStrictness, strings.ToLower(c.Selection.DefaultStrictness)) {
		return fmt.Errorf("selection.default_strictness must be one of %s, got %s",
			strings.Join(validStrictness, ", "), c.Selection.DefaultStrictness)
	}
	if c.Selection.Threshold < 0 || c.Selection.Threshold > 10 {
		return fmt.Errorf("selection.threshold must be between 0 and 10, got %d", c.Selection.Threshold)
	}

	if len(c.Distribution.Strategies) == 0 {
		return fmt.Errorf("distribution.strategies must not be empty")
	}
	seen := make(map[string]bool)
	for _, s := range c.Distribution.Strategies {
		if !slices.Contains(DefaultStrategies, s) {
			return fmt.Errorf("distribution.strategies: unknown strategy %q (want hardlink, symlink or copy)", s)
		}
		if seen[s] {
			return fmt.Errorf("distribution.strategies: duplicate strategy %q", s)
		}
		seen[s] = true
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
