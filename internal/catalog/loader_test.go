package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/rulesmith/internal/catalog"
	"github.com/Aman-CERP/rulesmith/internal/catalog/catalogtest"
	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
)

func sampleRules() []catalog.Rule {
	a := catalogtest.Baseline("cq-001", catalog.CategoryCodeQuality, 10)
	a.Rationale = "Readable code is cheaper to change."
	b := catalogtest.Rule("sec-001", catalog.CategorySecurity, 6)
	b.Applicability.Languages = []string{"go"}
	return []catalog.Rule{a, b}
}

func TestLoad_ReadsRulesAndArtifacts(t *testing.T) {
	// Given: a catalog on disk
	root := catalogtest.Write(t, t.TempDir(), "2.1.0", sampleRules(), []catalog.Artifact{
		catalogtest.Artifact("commit", catalog.KindCommand, catalog.CategoryGitWorkflow),
		catalogtest.Artifact("tdd", catalog.KindSkill, catalog.CategoryTesting),
	})

	// When: loading it
	cat, err := catalog.Load(context.Background(), root)

	// Then: records are parsed with paths relative to the root
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", cat.Version())
	assert.Equal(t, "test", cat.Name())
	assert.Equal(t, root, cat.Root())

	r, ok := cat.Rule("cq-001")
	require.True(t, ok)
	assert.True(t, r.Baseline)
	assert.Equal(t, "Readable code is cheaper to change.", r.Rationale)
	assert.Equal(t, "Body of cq-001.", r.Body)
	assert.Equal(t, "principles/code-quality/cq-001.md", r.Path)

	sec, _ := cat.Rule("sec-001")
	assert.Equal(t, []string{"go"}, sec.Applicability.Languages)

	skill, ok := cat.Artifact("tdd")
	require.True(t, ok)
	assert.Equal(t, catalog.KindSkill, skill.Kind)
	assert.Equal(t, "skills/tdd.md", skill.Path)
}

func TestLoad_IDDefaultsToFileName(t *testing.T) {
	root := catalogtest.Write(t, t.TempDir(), "1", nil, nil)
	path := filepath.Join(root, "principles", "testing", "test-first.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("---\ntitle: Test first\nseverity: high\nweight: 7\n---\nWrite the test.\n"), 0o644))

	cat, err := catalog.Load(context.Background(), root)

	require.NoError(t, err)
	r, ok := cat.Rule("test-first")
	require.True(t, ok)
	assert.Equal(t, catalog.CategoryTesting, r.Category)
}

func TestLoad_MalformedRecordsFailWithPath(t *testing.T) {
	tests := []struct {
		name    string
		rel     string
		content string
		want    string
	}{
		{"no header", "principles/testing/x.md", "just text\n", "missing YAML header"},
		{"unclosed header", "principles/testing/x.md", "---\nid: x\n", "no closing header delimiter"},
		{"unknown key", "principles/testing/x.md", "---\nid: x\ntitle: X\nseverity: low\nweight: 2\nwieght: 3\n---\n", "invalid header"},
		{"category mismatch", "principles/testing/x.md", "---\nid: x\ntitle: X\ncategory: security\nseverity: low\nweight: 2\n---\n", "does not match directory"},
		{"too deep", "principles/testing/sub/x.md", "---\nid: x\n---\n", "principles/<category>/<id>.md"},
		{"bad weight type", "principles/testing/x.md", "---\nid: x\ntitle: X\nseverity: low\nweight: heavy\n---\n", "invalid header"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := catalogtest.Write(t, t.TempDir(), "1", nil, nil)
			path := filepath.Join(root, filepath.FromSlash(tt.rel))
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := catalog.Load(context.Background(), root)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), filepath.Base(tt.rel))
			assert.Equal(t, rserrors.ErrCodeMalformedRecord, rserrors.GetCode(err))
		})
	}
}

func TestLoad_MissingManifest(t *testing.T) {
	_, err := catalog.Load(context.Background(), t.TempDir())

	assert.Equal(t, rserrors.ErrCodeCatalogInvalid, rserrors.GetCode(err))
}

func TestLoad_MissingRoot(t *testing.T) {
	_, err := catalog.Load(context.Background(), filepath.Join(t.TempDir(), "nope"))

	assert.Equal(t, rserrors.ErrCodeFileNotFound, rserrors.GetCode(err))
}

func TestLoad_IgnoresNonRecordFiles(t *testing.T) {
	root := catalogtest.Write(t, t.TempDir(), "1", sampleRules(), nil)
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# catalog"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "principles", "security", "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "principles", "security", ".draft.md"), []byte("x"), 0o644))

	cat, err := catalog.Load(context.Background(), root)

	require.NoError(t, err)
	n, _ := cat.Len()
	assert.Equal(t, 2, n)
}

func TestLoader_ReloadPicksUpChanges(t *testing.T) {
	// Given: a loader that has already loaded a catalog
	root := catalogtest.Write(t, t.TempDir(), "1", sampleRules(), nil)
	loader, err := catalog.NewLoader(catalog.WithWorkers(2))
	require.NoError(t, err)
	_, err = loader.Load(context.Background(), root)
	require.NoError(t, err)

	// When: a record changes on disk
	path := filepath.Join(root, "principles", "security", "sec-001.md")
	require.NoError(t, os.WriteFile(path, []byte("---\ntitle: Changed\nseverity: high\nweight: 9\n---\nnew\n"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	cat, err := loader.Load(context.Background(), root)

	// Then: the new content is served, not the cached parse
	require.NoError(t, err)
	r, _ := cat.Rule("sec-001")
	assert.Equal(t, "Changed", r.Title)
	assert.Equal(t, 9, r.Weight)
}

func TestLoad_CancelledContext(t *testing.T) {
	root := catalogtest.Write(t, t.TempDir(), "1", sampleRules(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := catalog.Load(ctx, root)

	assert.ErrorIs(t, err, context.Canceled)
}
