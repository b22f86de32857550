package distribute

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Mechanism is how a destination was materialized.
type Mechanism string

const (
	Hardlink Mechanism = "hardlink"
	Symlink  Mechanism = "symlink"
	Copy     Mechanism = "copy"
)

// Strategy materializes src at dst. Link returns an error instead of
// panicking so the Distributor can fall through to the next strategy.
type Strategy struct {
	Mechanism Mechanism
	Link      func(src, dst string) error
}

// HardlinkStrategy links dst to the same inode as src.
func HardlinkStrategy() Strategy {
	return Strategy{Mechanism: Hardlink, Link: os.Link}
}

// SymlinkStrategy points dst at src.
func SymlinkStrategy() Strategy {
	return Strategy{Mechanism: Symlink, Link: os.Symlink}
}

// CopyStrategy writes a verbatim copy of src to dst.
func CopyStrategy() Strategy {
	return Strategy{Mechanism: Copy, Link: copyFile}
}

// DefaultStrategies is the fallback order hardlink, symlink, copy.
func DefaultStrategies() []Strategy {
	return []Strategy{HardlinkStrategy(), SymlinkStrategy(), CopyStrategy()}
}

// StrategiesByName builds a strategy list from configuration names.
func StrategiesByName(names []string) ([]Strategy, error) {
	out := make([]Strategy, 0, len(names))
	for _, n := range names {
		switch Mechanism(n) {
		case Hardlink:
			out = append(out, HardlinkStrategy())
		case Symlink:
			out = append(out, SymlinkStrategy())
		case Copy:
			out = append(out, CopyStrategy())
		default:
			return nil, fmt.Errorf("unknown link strategy %q", n)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no link strategies configured")
	}
	return out, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
