package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"
)

// maxLineSize bounds a single log line read by the viewer.
const maxLineSize = 1024 * 1024

// followInterval is how often Follow polls for appended lines.
var followInterval = 100 * time.Millisecond

// LogEntry is one parsed log line.
type LogEntry struct {
	Time   time.Time
	Level  string
	Msg    string
	Source string
	Attrs  map[string]any
	Raw    string
	// IsValid is false when the line was not JSON; Raw is shown as is.
	IsValid bool
}

// ViewerConfig filters and styles viewer output.
type ViewerConfig struct {
	Level      string
	Pattern    *regexp.Regexp
	NoColor    bool
	ShowSource bool
}

// Viewer reads rulesmith log files.
type Viewer struct {
	config ViewerConfig
	out    io.Writer

	levelColors  map[string]*color.Color
	sourceColors map[string]*color.Color
	dim          *color.Color
}

// NewViewer creates a viewer printing to out.
func NewViewer(cfg ViewerConfig, out io.Writer) *Viewer {
	v := &Viewer{
		config: cfg,
		out:    out,
		levelColors: map[string]*color.Color{
			"DEBUG": color.New(color.FgHiBlack),
			"INFO":  color.New(color.FgGreen),
			"WARN":  color.New(color.FgYellow),
			"ERROR": color.New(color.FgRed, color.Bold),
		},
		sourceColors: map[string]*color.Color{
			string(LogSourceCLI):   color.New(color.FgCyan),
			string(LogSourceServe): color.New(color.FgMagenta),
		},
		dim: color.New(color.FgHiBlack),
	}
	for _, c := range v.allColors() {
		if cfg.NoColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return v
}

func (v *Viewer) allColors() []*color.Color {
	out := []*color.Color{v.dim}
	for _, c := range v.levelColors {
		out = append(out, c)
	}
	for _, c := range v.sourceColors {
		out = append(out, c)
	}
	return out
}

// Tail returns the last n matching entries across paths, merged by time.
// Unreadable files are skipped unless every file fails.
func (v *Viewer) Tail(n int, paths ...string) ([]LogEntry, error) {
	var all []LogEntry
	var lastErr error
	read := 0
	for _, path := range paths {
		entries, err := v.readFile(path)
		if err != nil {
			lastErr = err
			continue
		}
		read++
		all = append(all, entries...)
	}
	if read == 0 && lastErr != nil {
		return nil, lastErr
	}

	if len(paths) > 1 {
		slices.SortStableFunc(all, func(a, b LogEntry) int {
			return a.Time.Compare(b.Time)
		})
	}
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

func (v *Viewer) readFile(path string) ([]LogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	source := sourceFromPath(path)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var entries []LogEntry
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if e := v.parseLine(line, source); v.matchesFilter(e) {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file %s: %w", path, err)
	}
	return entries, nil
}

// Follow sends entries appended to paths after the call until ctx is
// cancelled. Cancellation is not an error.
func (v *Viewer) Follow(ctx context.Context, paths []string, entries chan<- LogEntry) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, path := range paths {
		g.Go(func() error {
			return v.follow(ctx, path, entries)
		})
	}
	return g.Wait()
}

func (v *Viewer) follow(ctx context.Context, path string, entries chan<- LogEntry) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek %s: %w", path, err)
	}

	source := sourceFromPath(path)
	reader := bufio.NewReader(f)
	ticker := time.NewTicker(followInterval)
	defer ticker.Stop()

	var partial string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		for {
			chunk, err := reader.ReadString('\n')
			if err != nil {
				// Keep the unterminated tail for the next tick.
				partial += chunk
				break
			}
			line := strings.TrimSuffix(partial+chunk, "\n")
			partial = ""
			if line == "" {
				continue
			}
			e := v.parseLine(line, source)
			if !v.matchesFilter(e) {
				continue
			}
			select {
			case entries <- e:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// FormatEntry renders an entry as
// "15:04:05.000 LEVEL [source] message key=value ...".
func (v *Viewer) FormatEntry(e LogEntry) string {
	if !e.IsValid {
		return e.Raw
	}

	var sb strings.Builder
	sb.WriteString(v.dim.Sprint(e.Time.Local().Format("15:04:05.000")))
	sb.WriteString(" ")
	sb.WriteString(v.formatLevel(e.Level))
	sb.WriteString(" ")
	if v.config.ShowSource && e.Source != "" {
		label := "[" + e.Source + "]"
		if c, ok := v.sourceColors[e.Source]; ok {
			label = c.Sprint(label)
		}
		sb.WriteString(label)
		sb.WriteString(" ")
	}
	sb.WriteString(e.Msg)

	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, e.Attrs[k])
	}
	return sb.String()
}

// Print writes every entry on its own line.
func (v *Viewer) Print(entries []LogEntry) {
	for _, e := range entries {
		_, _ = fmt.Fprintln(v.out, v.FormatEntry(e))
	}
}

func (v *Viewer) formatLevel(level string) string {
	name := strings.ToUpper(level)
	if name == "WARNING" {
		name = "WARN"
	}
	padded := fmt.Sprintf("%-5s", name)
	if c, ok := v.levelColors[name]; ok {
		return c.Sprint(padded)
	}
	return padded
}

// parseLine decodes one slog JSON line. The file's source fills in when
// the record carries none.
func (v *Viewer) parseLine(line, source string) LogEntry {
	e := LogEntry{Raw: line, Source: source}

	var data map[string]any
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return e
	}
	e.IsValid = true

	if s, ok := data["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			e.Time = t
		}
	}
	if s, ok := data["level"].(string); ok {
		e.Level = s
	}
	if s, ok := data["msg"].(string); ok {
		e.Msg = s
	}
	if s, ok := data["source"].(string); ok && s != "" {
		e.Source = s
	}

	e.Attrs = make(map[string]any, len(data))
	for k, val := range data {
		switch k {
		case "time", "level", "msg", "source":
		default:
			e.Attrs[k] = val
		}
	}
	return e
}

func (v *Viewer) matchesFilter(e LogEntry) bool {
	if v.config.Level != "" && e.IsValid {
		if LevelFromString(e.Level) < LevelFromString(v.config.Level) {
			return false
		}
	}
	if v.config.Pattern != nil && !v.config.Pattern.MatchString(e.Raw) {
		return false
	}
	return true
}
