package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config and state at temp dirs so the developer's
// real ~/.config/rulesmith never leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("HOME", home)
	for _, k := range []string{
		"RULESMITH_CATALOG", "RULESMITH_STATE_DIR", "RULESMITH_GUIDANCE_FILE",
		"RULESMITH_STRICTNESS", "RULESMITH_THRESHOLD", "RULESMITH_STRATEGIES",
		"RULESMITH_MANAGE_GITIGNORE", "RULESMITH_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	return home
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "CLAUDE.md", cfg.Target.GuidanceFile)
	assert.Equal(t, ".claude", cfg.Target.DistributionDir)
	assert.Equal(t, "standard", cfg.Selection.DefaultStrictness)
	assert.Zero(t, cfg.Selection.Threshold)
	assert.Equal(t, []string{"hardlink", "symlink", "copy"}, cfg.Distribution.Strategies)
	assert.True(t, cfg.Distribution.GitignoreManaged())
	assert.Equal(t, filepath.Join(cfg.State.Dir, "catalog"), cfg.Catalog.Path)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig_DefaultStrategiesNotShared(t *testing.T) {
	cfg := NewConfig()
	cfg.Distribution.Strategies[0] = "copy"

	assert.Equal(t, "hardlink", DefaultStrategies[0])
}

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "CLAUDE.md", cfg.Target.GuidanceFile)
}

func TestLoad_ProjectFile_OverridesDefaults(t *testing.T) {
	// Given: a project config with overrides
	isolate(t)
	dir := t.TempDir()
	content := `
selection:
  default_strictness: strict
  threshold: 4
distribution:
  strategies: [symlink, copy]
  manage_gitignore: false
profile:
  team_size: medium
  compliance: [soc2]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectFileName), []byte(content), 0o644))

	// When: loading
	cfg, err := Load(dir)

	// Then: overrides are applied and untouched defaults remain
	require.NoError(t, err)
	assert.Equal(t, "strict", cfg.Selection.DefaultStrictness)
	assert.Equal(t, 4, cfg.Selection.Threshold)
	assert.Equal(t, []string{"symlink", "copy"}, cfg.Distribution.Strategies)
	assert.False(t, cfg.Distribution.GitignoreManaged())
	assert.Equal(t, "medium", cfg.Profile.TeamSize)
	assert.Equal(t, []string{"soc2"}, cfg.Profile.Compliance)
	assert.Equal(t, "CLAUDE.md", cfg.Target.GuidanceFile)
}

func TestLoad_YmlExtension_IsRecognized(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".rulesmith.yml"), []byte("target:\n  guidance_file: AGENTS.md\n"), 0o644))

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "AGENTS.md", cfg.Target.GuidanceFile)
}

func TestLoad_UserThenProjectThenEnv(t *testing.T) {
	// Given: user config, project config and env all setting the strictness
	home := isolate(t)
	userPath := filepath.Join(home, ".config", "rulesmith", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(userPath), 0o755))
	require.NoError(t, os.WriteFile(userPath, []byte("selection:\n  default_strictness: relaxed\nlogging:\n  level: debug\n"), 0o644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectFileName), []byte("selection:\n  default_strictness: strict\n"), 0o644))

	// When: loading without env
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: project beats user, user beats defaults
	assert.Equal(t, "strict", cfg.Selection.DefaultStrictness)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// When: env is set
	t.Setenv("RULESMITH_STRICTNESS", "PARANOID")
	cfg, err = Load(dir)
	require.NoError(t, err)

	// Then: env wins
	assert.Equal(t, "paranoid", cfg.Selection.DefaultStrictness)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("RULESMITH_CATALOG", "/srv/catalog")
	t.Setenv("RULESMITH_THRESHOLD", "7")
	t.Setenv("RULESMITH_STRATEGIES", "copy, symlink")
	t.Setenv("RULESMITH_MANAGE_GITIGNORE", "0")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "/srv/catalog", cfg.Catalog.Path)
	assert.Equal(t, 7, cfg.Selection.Threshold)
	assert.Equal(t, []string{"copy", "symlink"}, cfg.Distribution.Strategies)
	assert.False(t, cfg.Distribution.GitignoreManaged())
}

func TestLoad_EnvInvalidThreshold_IsIgnored(t *testing.T) {
	isolate(t)
	t.Setenv("RULESMITH_THRESHOLD", "lots")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Zero(t, cfg.Selection.Threshold)
}

func TestLoad_TildeIsExpanded(t *testing.T) {
	home := isolate(t)
	t.Setenv("RULESMITH_STATE_DIR", "~/state")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "state"), cfg.State.Dir)
	assert.Equal(t, filepath.Join(home, "state", "projects"), cfg.ProjectsDir())
	assert.Equal(t, filepath.Join(home, "state", "history.db"), cfg.JournalPath())
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectFileName), []byte("selection: [unclosed"), 0o644))

	_, err := Load(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown strictness", func(c *Config) { c.Selection.DefaultStrictness = "lenient" }, "default_strictness"},
		{"threshold too high", func(c *Config) { c.Selection.Threshold = 11 }, "threshold"},
		{"unknown strategy", func(c *Config) { c.Distribution.Strategies = []string{"reflink"} }, "unknown strategy"},
		{"duplicate strategy", func(c *Config) { c.Distribution.Strategies = []string{"copy", "copy"} }, "duplicate strategy"},
		{"empty strategies", func(c *Config) { c.Distribution.Strategies = nil }, "must not be empty"},
		{"absolute guidance file", func(c *Config) { c.Target.GuidanceFile = "/etc/CLAUDE.md" }, "relative path"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFindProjectRoot_GitDirectory_ReturnsGitRoot(t *testing.T) {
	// Given: a nested directory in a git repo
	tmpDir := t.TempDir()
	nestedDir := filepath.Join(tmpDir, "src", "internal")
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(nestedDir, 0o755))

	// When: finding project root from nested directory
	root, err := FindProjectRoot(nestedDir)

	// Then: git root is returned
	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindProjectRoot_ConfigFile_ReturnsConfigLocation(t *testing.T) {
	tmpDir := t.TempDir()
	nestedDir := filepath.Join(tmpDir, "pkg")
	require.NoError(t, os.MkdirAll(nestedDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ProjectFileName), []byte("version: 1"), 0o644))

	root, err := FindProjectRoot(nestedDir)

	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Selection.DefaultStrictness = "strict"

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ProjectFileName)))
	loaded, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "strict", loaded.Selection.DefaultStrictness)
}
