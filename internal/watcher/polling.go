package watcher

import (
	"io/fs"
	"path/filepath"
	"time"
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

// poller detects changes by comparing directory scans. It is the fallback
// when fsnotify is unavailable.
type poller struct {
	root   string
	filter Filter
	state  map[string]fileSnapshot
}

func newPoller(root string, filter Filter) *poller {
	p := &poller{root: root, filter: filter}
	p.state = p.scan()
	return p
}

// scan walks the root and records every reported entry.
func (p *poller) scan() map[string]fileSnapshot {
	out := make(map[string]fileSnapshot)
	_ = filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries we can't access
		}
		rel, err := filepath.Rel(p.root, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !p.filter(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out[rel] = fileSnapshot{modTime: info.ModTime(), size: info.Size(), isDir: d.IsDir()}
		return nil
	})
	return out
}

// poll rescans and returns the changes since the previous scan.
func (p *poller) poll() []FileEvent {
	now := time.Now()
	current := p.scan()

	var events []FileEvent
	for rel, snap := range current {
		prev, ok := p.state[rel]
		switch {
		case !ok:
			events = append(events, FileEvent{Path: rel, Operation: OpCreate, IsDir: snap.isDir, Timestamp: now})
		case !snap.isDir && (prev.modTime != snap.modTime || prev.size != snap.size):
			events = append(events, FileEvent{Path: rel, Operation: OpModify, Timestamp: now})
		}
	}
	for rel, snap := range p.state {
		if _, ok := current[rel]; !ok {
			events = append(events, FileEvent{Path: rel, Operation: OpDelete, IsDir: snap.isDir, Timestamp: now})
		}
	}

	p.state = current
	return events
}
