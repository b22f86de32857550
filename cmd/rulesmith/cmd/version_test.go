package cmd

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/rulesmith/pkg/version"
)

func TestVersionCmd_Output(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, out string)
	}{
		{"default", nil, func(t *testing.T, out string) {
			assert.Contains(t, out, "rulesmith "+version.Version)
			assert.Contains(t, out, "commit")
			assert.Contains(t, out, "catalog 1.0.0")
		}},
		{"short", []string{"--short"}, func(t *testing.T, out string) {
			assert.Equal(t, version.Version, strings.TrimSpace(out))
		}},
		{"json", []string{"--json"}, func(t *testing.T, out string) {
			var info map[string]string
			require.NoError(t, json.Unmarshal([]byte(out), &info))
			assert.Equal(t, version.Version, info["version"])
			assert.Equal(t, "1.0.0", info["catalog_version"])
			for _, key := range []string{"commit", "date", "go_version", "os", "arch", "catalog_path"} {
				assert.Contains(t, info, key)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)

			stdout, _, err := e.run(t, "", append([]string{"version"}, tt.args...)...)

			require.NoError(t, err)
			tt.check(t, stdout)
		})
	}
}

func TestVersionCmd_OmitsUnreadableCatalog(t *testing.T) {
	// Given: a catalog path with nothing in it
	newTestEnv(t)
	t.Setenv("RULESMITH_CATALOG", filepath.Join(t.TempDir(), "missing"))

	// When: printing the version
	stdout, _, err := execute(t, "", "version")

	// Then: the build line is printed without a catalog line
	require.NoError(t, err)
	assert.Contains(t, stdout, "rulesmith "+version.Version)
	assert.NotContains(t, stdout, "catalog ")
}

func TestRootCmd_VersionFlag(t *testing.T) {
	newTestEnv(t)

	stdout, _, err := execute(t, "", "--version")

	require.NoError(t, err)
	assert.Equal(t, "rulesmith version "+version.Version+"\n", stdout)
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	// Given: the root command
	root := NewRootCmd()

	// Then: every subcommand is reachable
	for _, name := range []string{"init", "sync", "remove", "status", "catalog", "config", "serve", "logs", "version"} {
		found, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, found.Name())
	}
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	newTestEnv(t)

	stdout, _, err := execute(t, "", "--help")

	require.NoError(t, err)
	assert.Contains(t, stdout, "marker-delimited regions")
	assert.Contains(t, stdout, "--dir")
}

func TestRootCmd_UnwritableStateDirStillRuns(t *testing.T) {
	// Given: a state dir that is a regular file
	e := newTestEnv(t)
	blocker := e.state
	require.NoError(t, writeFile(blocker, "not a directory"))

	// When: running a command that does not need state
	stdout, _, err := e.run(t, "", "version", "--short")

	// Then: logging falls back and the command succeeds
	require.NoError(t, err)
	assert.Equal(t, version.Version, strings.TrimSpace(stdout))
}

func TestRootCmd_ProfileFlags(t *testing.T) {
	// Given: CPU and heap profiles requested
	e := newTestEnv(t)
	cpu := filepath.Join(e.base, "cpu.prof")
	heap := filepath.Join(e.base, "heap.prof")

	// When: running a command
	_, _, err := e.run(t, "", "--profile-cpu", cpu, "--profile-mem", heap, "catalog", "list")

	// Then: both profiles are written when the command finishes
	require.NoError(t, err)
	assert.FileExists(t, cpu)
	assert.FileExists(t, heap)
}
