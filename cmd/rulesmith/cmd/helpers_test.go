package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/rulesmith/internal/catalog"
	"github.com/Aman-CERP/rulesmith/internal/catalog/catalogtest"
)

// testEnv isolates a command run: user config, state dir and catalog all
// live under one temp directory.
type testEnv struct {
	base    string
	project string
	catalog string
	state   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	base := t.TempDir()

	rules := []catalog.Rule{
		catalogtest.Baseline("cq-001", catalog.CategoryCodeQuality, 10),
		catalogtest.Rule("sec-001", catalog.CategorySecurity, 6),
		catalogtest.Rule("perf-001", catalog.CategoryPerformance, 3),
	}
	rules[1].Rationale = "Injection flaws let attackers run arbitrary queries."
	artifacts := []catalog.Artifact{
		catalogtest.Artifact("review", catalog.KindCommand, catalog.CategoryCodeQuality),
		catalogtest.Artifact("bench", catalog.KindSkill, catalog.CategoryPerformance),
	}

	e := &testEnv{
		base:    base,
		project: filepath.Join(base, "project"),
		catalog: catalogtest.Write(t, filepath.Join(base, "catalog"), "1.0.0", rules, artifacts),
		state:   filepath.Join(base, "state"),
	}
	require.NoError(t, os.MkdirAll(e.project, 0o755))

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "xdg"))
	t.Setenv("RULESMITH_CATALOG", e.catalog)
	t.Setenv("RULESMITH_STATE_DIR", e.state)
	t.Setenv("NO_COLOR", "1")
	return e
}

// run executes the root command against the env's project.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	return execute(t, stdin, append([]string{"-C", e.project}, args...)...)
}

func (e *testEnv) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.project, rel))
	require.NoError(t, err)
	return string(data)
}

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer

	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err = cmd.ExecuteContext(context.Background())
	_ = stopProfilingAndLogging(nil, nil)
	return out.String(), errOut.String(), err
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
