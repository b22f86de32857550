package distribute

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
)

// Checksum returns the hex sha256 of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// destState describes what is at a destination relative to a LinkEntry.
type destState int

const (
	// destMissing: nothing at the destination.
	destMissing destState = iota
	// destIntact: the destination is exactly what was linked.
	destIntact
	// destStale: the destination is ours and untouched but the source moved
	// on (new inode or new content).
	destStale
	// destDiverged: the user modified or redirected the destination.
	destDiverged
)

// inspect compares the destination of e with its source.
func inspect(e LinkEntry) destState {
	info, err := os.Lstat(e.Dest)
	if errors.Is(err, fs.ErrNotExist) {
		return destMissing
	}
	if err != nil {
		return destDiverged
	}

	switch e.Mechanism {
	case Symlink:
		if info.Mode()&fs.ModeSymlink == 0 {
			return destDiverged
		}
		target, err := os.Readlink(e.Dest)
		if err != nil || target != e.Source {
			return destDiverged
		}
		if _, err := os.Stat(e.Source); err != nil {
			return destStale
		}
		return destIntact

	case Hardlink:
		if !info.Mode().IsRegular() {
			return destDiverged
		}
		if srcInfo, err := os.Stat(e.Source); err == nil && os.SameFile(info, srcInfo) {
			return destIntact
		}
		// A different inode is still ours if its content is what we linked.
		if sum, err := Checksum(e.Dest); err == nil && sum == e.Checksum {
			return destStale
		}
		return destDiverged

	default:
		if !info.Mode().IsRegular() {
			return destDiverged
		}
		sum, err := Checksum(e.Dest)
		if err != nil || sum != e.Checksum {
			return destDiverged
		}
		if srcSum, err := Checksum(e.Source); err != nil || srcSum != e.Checksum {
			return destStale
		}
		return destIntact
	}
}

// adoptable reports how an unknown file at dst already matches src, if it
// does.
func adoptable(src, dst string) (Mechanism, bool) {
	info, err := os.Lstat(dst)
	if err != nil {
		return "", false
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(dst)
		return Symlink, err == nil && target == src
	}
	if !info.Mode().IsRegular() {
		return "", false
	}
	if srcInfo, err := os.Stat(src); err == nil && os.SameFile(info, srcInfo) {
		return Hardlink, true
	}

	srcSum, err := Checksum(src)
	if err != nil {
		return "", false
	}
	dstSum, err := Checksum(dst)
	return Copy, err == nil && srcSum == dstSum
}

// Health summarizes the on-disk state of recorded entries.
type Health struct {
	Total    int      `json:"total"`
	Intact   int      `json:"intact"`
	Missing  []string `json:"missing,omitempty"`
	Stale    []string `json:"stale,omitempty"`
	Diverged []string `json:"diverged,omitempty"`
}

// Consistent reports whether every entry is intact.
func (h Health) Consistent() bool {
	return h.Intact == h.Total
}

// Verify inspects every entry without changing anything. Stale entries are
// not inconsistencies: the next sync refreshes them.
func Verify(entries []LinkEntry) Health {
	h := Health{Total: len(entries)}
	for _, e := range entries {
		switch inspect(e) {
		case destIntact:
			h.Intact++
		case destMissing:
			h.Missing = append(h.Missing, e.Dest)
		case destStale:
			h.Stale = append(h.Stale, e.Dest)
		case destDiverged:
			h.Diverged = append(h.Diverged, e.Dest)
		}
	}
	return h
}
