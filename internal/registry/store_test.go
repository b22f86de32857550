package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/rulesmith/internal/distribute"
	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
	"github.com/Aman-CERP/rulesmith/internal/prefs"
	"github.com/Aman-CERP/rulesmith/internal/profile"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "projects"))
	require.NoError(t, err)
	return s
}

func TestStore_LoadMissingReturnsNil(t *testing.T) {
	s := newStore(t)

	rec, err := s.Load(t.TempDir())

	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	// Given: a project with an id file and a full record
	s := newStore(t)
	project := t.TempDir()
	id, err := s.EnsureProjectID(project)
	require.NoError(t, err)

	rec := NewRecord(id, project)
	rec.Profile = profile.Profile{PrimaryLanguage: "go", HasTests: true}
	rec.Preferences = prefs.Merge(
		prefs.Tier1Answers{Strictness: prefs.StrictnessStrict, ExcludedCategories: &prefs.MultiSelect{None: true}},
		prefs.Tier2Answers{TestingApproach: prefs.Ptr(prefs.TestingTDD)},
		nil,
	)
	rec.Selection = Selection{RuleIDs: []string{"a", "b"}, Threshold: 3, CatalogVersion: "1.0.0"}
	rec.Links = []distribute.LinkEntry{{ID: "a", Kind: "rule", Source: "/c/a.md", Dest: "/p/a.md", Mechanism: distribute.Hardlink, Checksum: "x"}}
	rec.Touch("run-1")

	// When: saving and loading
	require.NoError(t, s.Save(rec))
	got, err := s.Load(project)

	// Then: the record survives unchanged
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ProjectID, got.ProjectID)
	assert.Equal(t, rec.Profile, got.Profile)
	assert.Equal(t, rec.Preferences, got.Preferences)
	assert.Equal(t, rec.Selection, got.Selection)
	assert.Equal(t, rec.Links, got.Links)
	assert.Equal(t, "run-1", got.LastRunID)
	assert.True(t, rec.UpdatedAt.Equal(got.UpdatedAt))

	// And: no temp file is left behind
	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_SaveOverwrites(t *testing.T) {
	s := newStore(t)
	project := t.TempDir()
	id, err := s.EnsureProjectID(project)
	require.NoError(t, err)

	rec := NewRecord(id, project)
	rec.Selection.RuleIDs = []string{"a"}
	require.NoError(t, s.Save(rec))
	rec.Selection.RuleIDs = []string{"b"}
	require.NoError(t, s.Save(rec))

	got, err := s.Load(project)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, got.Selection.RuleIDs)

	all, err := s.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_IDSurvivesRelocation(t *testing.T) {
	// Given: a configured project
	s := newStore(t)
	base := t.TempDir()
	oldPath := filepath.Join(base, "old")
	require.NoError(t, os.MkdirAll(oldPath, 0o755))
	id, err := s.EnsureProjectID(oldPath)
	require.NoError(t, err)
	require.NoError(t, s.Save(NewRecord(id, oldPath)))

	// When: the directory moves
	newPath := filepath.Join(base, "new")
	require.NoError(t, os.Rename(oldPath, newPath))

	// Then: the record is still found through the id file
	rec, err := s.Load(newPath)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, id, rec.ProjectID)
}

func TestStore_LostIDFileFallsBackToPath(t *testing.T) {
	s := newStore(t)
	project := t.TempDir()
	id, err := s.EnsureProjectID(project)
	require.NoError(t, err)
	require.NoError(t, s.Save(NewRecord(id, project)))

	require.NoError(t, s.RemoveProjectID(project))
	rec, err := s.Load(project)

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, id, rec.ProjectID)
}

func TestStore_ProjectIDWithoutIDFileIsStable(t *testing.T) {
	s := newStore(t)
	project := t.TempDir()

	a, err := s.ProjectID(project)
	require.NoError(t, err)
	b, err := s.ProjectID(project)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, pathID("/somewhere/else"))
	assert.NoFileExists(t, s.IDFilePath(project))
}

func TestStore_EnsureProjectIDIsIdempotent(t *testing.T) {
	s := newStore(t)
	project := t.TempDir()

	a, err := s.EnsureProjectID(project)
	require.NoError(t, err)
	b, err := s.EnsureProjectID(project)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.FileExists(t, filepath.Join(project, ".claude", "rulesmith.id"))
}

func TestStore_DeleteRemovesRecordOnly(t *testing.T) {
	s := newStore(t)
	project := t.TempDir()
	id, err := s.EnsureProjectID(project)
	require.NoError(t, err)
	require.NoError(t, s.Save(NewRecord(id, project)))

	require.NoError(t, s.Delete(project))
	require.NoError(t, s.Delete(project))

	rec, err := s.Load(project)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.FileExists(t, s.IDFilePath(project))
}

func TestStore_DeleteKeepsHeldLock(t *testing.T) {
	// Given: a configured project whose lock is held
	s := newStore(t)
	project := t.TempDir()
	id, err := s.EnsureProjectID(project)
	require.NoError(t, err)
	require.NoError(t, s.Save(NewRecord(id, project)))
	held, err := s.Lock(project)
	require.NoError(t, err)
	defer held.Unlock()

	// When: the record is deleted under the lock
	require.NoError(t, s.Delete(project))

	// Then: the lock file stays and still excludes other runs
	assert.FileExists(t, held.Path())
	_, err = s.Lock(project)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestStore_CorruptRecord(t *testing.T) {
	s := newStore(t)
	project := t.TempDir()
	id, err := s.EnsureProjectID(project)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), id+".json"), []byte("{not json"), 0o644))

	_, err = s.Load(project)

	assert.Equal(t, rserrors.ErrCodeMalformedRecord, rserrors.GetCode(err))
}

func TestStore_LockFailsFast(t *testing.T) {
	// Given: a held lock
	s := newStore(t)
	project := t.TempDir()
	first, err := s.Lock(project)
	require.NoError(t, err)

	// When: a second run tries to lock
	_, err = s.Lock(project)

	// Then: it fails immediately with ErrLocked
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))
	assert.True(t, rserrors.IsRetryable(err))

	// And: after release the lock can be taken again
	require.NoError(t, first.Unlock())
	require.NoError(t, first.Unlock())
	second, err := s.Lock(project)
	require.NoError(t, err)
	require.NoError(t, second.Unlock())
}
