package synth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"

	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
)

// Update is a planned change to one guidance file.
type Update struct {
	Path    string
	Before  string
	After   string
	Diff    string
	Created bool
	// Removed means the file is deleted: stripping left nothing of the
	// user's own.
	Removed bool
}

// Changed reports whether applying the update would modify the file.
func (u *Update) Changed() bool {
	return u.Created || u.Removed || u.Before != u.After
}

// Plan reads path, synthesizes the regions into it, and computes a unified
// diff. Nothing is written.
func Plan(path string, regions Regions) (*Update, error) {
	data, err := os.ReadFile(path)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, rserrors.New(rserrors.ErrCodeFilePermission, "read "+path, err)
	}

	after, err := Synthesize(string(data), exists, regions)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	u := &Update{
		Path:    path,
		Before:  string(data),
		After:   after,
		Created: !exists,
	}
	u.Diff = Diff(path, u.Before, u.After)
	return u, nil
}

// PlanStrip reads path and plans the removal of the labelled regions.
// It returns nil when the file does not exist.
func PlanStrip(path string, labels ...string) (*Update, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, rserrors.New(rserrors.ErrCodeFilePermission, "read "+path, err)
	}

	after, err := Strip(string(data), labels...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	u := &Update{
		Path:    path,
		Before:  string(data),
		After:   after,
		Removed: after == "",
	}
	u.Diff = Diff(path, u.Before, u.After)
	return u, nil
}

// Diff returns a unified diff between before and after, or "" when they
// are equal.
func Diff(path, before, after string) string {
	if before == after {
		return ""
	}
	name := filepath.Base(path)
	edits := myers.ComputeEdits(span.URIFromPath(path), before, after)
	return fmt.Sprint(gotextdiff.ToUnified("a/"+name, "b/"+name, before, edits))
}

// Apply writes the update atomically. Unchanged updates are skipped.
func Apply(u *Update) error {
	if !u.Changed() {
		return nil
	}
	if u.Removed {
		if err := os.Remove(u.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return rserrors.IOError("remove "+u.Path, err)
		}
		return nil
	}
	return WriteFileAtomic(u.Path, []byte(u.After))
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, keeping the existing file mode.
func WriteFileAtomic(path string, data []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return rserrors.IOError("create directory "+dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return rserrors.IOError("create temp file for "+path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return rserrors.IOError("write "+path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return rserrors.IOError("close "+path, err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		_ = os.Remove(tmpPath)
		return rserrors.IOError("chmod "+path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return rserrors.IOError("rename into "+path, err)
	}
	return nil
}
