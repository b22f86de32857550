package watcher

import (
	"path"
	"strings"
	"time"
)

// Operation is a file system operation type.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one change below the watched root.
type FileEvent struct {
	// Path is slash-separated and relative to the root.
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Filter decides whether a relative path is worth reporting. Directories
// rejected by a filter are not descended into.
type Filter func(rel string, isDir bool) bool

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period before a batch is emitted.
	// Default: 300ms
	Debounce time.Duration

	// PollInterval is the scan interval of the polling fallback.
	// Default: 2s
	PollInterval time.Duration

	// BufferSize is the capacity of the batch channel.
	// Default: 16
	BufferSize int

	// Filter selects reported paths. Nil reports everything except hidden
	// entries.
	Filter Filter

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		Debounce:     300 * time.Millisecond,
		PollInterval: 2 * time.Second,
		BufferSize:   16,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.Debounce <= 0 {
		o.Debounce = d.Debounce
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.BufferSize <= 0 {
		o.BufferSize = d.BufferSize
	}
	if o.Filter == nil {
		o.Filter = visible
	}
	return o
}

// visible rejects hidden files and directories and editor leftovers.
func visible(rel string, _ bool) bool {
	base := path.Base(rel)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}

// CatalogFiles reports catalog.yaml and markdown records, and descends into
// every visible directory.
func CatalogFiles(rel string, isDir bool) bool {
	if !visible(rel, isDir) {
		return false
	}
	if isDir {
		return true
	}
	return rel == "catalog.yaml" || strings.HasSuffix(rel, ".md")
}
