package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
)

const (
	recordExt = ".json"
	lockExt   = ".lock"

	// DefaultIDFile is where a project's stable id is kept, relative to the
	// project root.
	DefaultIDFile = ".claude/rulesmith.id"
)

// Store reads and writes registry records in a single directory.
type Store struct {
	dir    string
	idFile string
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIDFile sets the project-relative location of the id file.
func WithIDFile(rel string) StoreOption {
	return func(s *Store) {
		s.idFile = rel
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string, opts ...StoreOption) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("registry directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, rserrors.IOError("create registry directory", err)
	}

	s := &Store{dir: dir, idFile: DefaultIDFile, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// IDFilePath returns the id file location for a project.
func (s *Store) IDFilePath(projectPath string) string {
	return filepath.Join(projectPath, filepath.FromSlash(s.idFile))
}

// ProjectID returns the stable id of a project: the id file's content when
// present, otherwise a hash of the absolute path.
func (s *Store) ProjectID(projectPath string) (string, error) {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return "", fmt.Errorf("resolve project path: %w", err)
	}

	data, err := os.ReadFile(s.IDFilePath(abs))
	if err == nil {
		id := strings.TrimSpace(string(data))
		if isUUID(id) {
			return id, nil
		}
		s.logger.Warn("registry_bad_id_file", slog.String("path", s.IDFilePath(abs)))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", rserrors.New(rserrors.ErrCodeFilePermission, "read project id", err)
	}

	return pathID(abs), nil
}

// EnsureProjectID returns the project's id, writing a new id file when the
// project has none.
func (s *Store) EnsureProjectID(projectPath string) (string, error) {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return "", fmt.Errorf("resolve project path: %w", err)
	}

	path := s.IDFilePath(abs)
	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); isUUID(id) {
			return id, nil
		}
	}

	id := uuid.NewString()
	if err := s.WriteProjectID(abs, id); err != nil {
		return "", err
	}
	return id, nil
}

// WriteProjectID stores id in the project's id file. Used to restore the
// file for a record found by path after the id file was lost.
func (s *Store) WriteProjectID(projectPath, id string) error {
	path := s.IDFilePath(projectPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return rserrors.IOError("create id file directory", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return rserrors.IOError("write project id", err)
	}
	return nil
}

// RemoveProjectID deletes the project's id file.
func (s *Store) RemoveProjectID(projectPath string) error {
	path := s.IDFilePath(projectPath)
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return rserrors.IOError("remove project id", err)
	}
	// Drop the directory too when the id file was all it held.
	_ = os.Remove(filepath.Dir(path))
	return nil
}

func pathID(abs string) string {
	sum := sha256.Sum256([]byte(abs))
	return "path-" + hex.EncodeToString(sum[:8])
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.dir, id+recordExt)
}

// Load returns the project's record, or nil when the project has none.
// A record saved before the project moved is still found through the id
// file; a record whose id file was lost is found by its stored path.
func (s *Store) Load(projectPath string) (*Record, error) {
	id, err := s.ProjectID(projectPath)
	if err != nil {
		return nil, err
	}

	rec, err := s.read(s.recordPath(id))
	if err != nil || rec != nil {
		return rec, err
	}

	abs, _ := filepath.Abs(projectPath)
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if r.ProjectPath == abs {
			return r, nil
		}
	}
	return nil, nil
}

func (s *Store) read(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, rserrors.New(rserrors.ErrCodeFilePermission, "read registry record", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, rserrors.MalformedRecord(path, "registry record is not valid JSON", err)
	}
	if rec.SchemaVersion > SchemaVersion {
		return nil, rserrors.MalformedRecord(path, fmt.Sprintf("schema version %d is newer than supported %d", rec.SchemaVersion, SchemaVersion), nil)
	}
	return &rec, nil
}

// Save overwrites the project's record atomically.
func (s *Store) Save(rec *Record) error {
	if rec.ProjectID == "" {
		return rserrors.InternalError("registry record has no project id", nil)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.SchemaVersion = SchemaVersion

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return rserrors.InternalError("marshal registry record", err)
	}

	path := s.recordPath(rec.ProjectID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return rserrors.IOError("write registry record", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return rserrors.IOError("save registry record", err)
	}

	s.logger.Debug("registry_saved", slog.String("project_id", rec.ProjectID), slog.String("path", path))
	return nil
}

// Delete removes the project's record. It does not touch distributed files
// or the lock file, which the caller may still hold.
func (s *Store) Delete(projectPath string) error {
	rec, err := s.Load(projectPath)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	if err := os.Remove(s.recordPath(rec.ProjectID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return rserrors.IOError("delete registry record", err)
	}
	return nil
}

// List returns every readable record sorted by project path. Unreadable
// records are skipped.
func (s *Store) List() ([]*Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, rserrors.IOError("read registry directory", err)
	}

	var out []*Record
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != recordExt {
			continue
		}
		rec, err := s.read(filepath.Join(s.dir, e.Name()))
		if err != nil || rec == nil {
			s.logger.Warn("registry_skip_record", slog.String("file", e.Name()))
			continue
		}
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ProjectPath < out[j].ProjectPath })
	return out, nil
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
