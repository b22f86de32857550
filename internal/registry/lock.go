package registry

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
)

// ErrLocked is returned when another run holds the project lock.
var ErrLocked = rserrors.New(rserrors.ErrCodeLocked, "another rulesmith run holds the project lock", nil)

// Lock is an advisory, cross-process lock on one project's record.
type Lock struct {
	path  string
	flock *flock.Flock
}

// Lock acquires the project's lock without blocking. It fails fast with
// ErrLocked when the lock is held.
func (s *Store) Lock(projectPath string) (*Lock, error) {
	id, err := s.ProjectID(projectPath)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.dir, id+lockExt)
	l := &Lock{path: path, flock: flock.New(path)}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return nil, rserrors.IOError("acquire project lock", err)
	}
	if !acquired {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}
	return l, nil
}

// Unlock releases the lock. It is safe to call more than once.
func (l *Lock) Unlock() error {
	if l == nil || !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release project lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}
