package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
)

const (
	// ManifestFile names the catalog manifest at the catalog root.
	ManifestFile = "catalog.yaml"

	// PrinciplesDir holds rules, one subdirectory per category.
	PrinciplesDir = "principles"

	// recordCacheSize bounds the parsed-record cache kept across reloads.
	recordCacheSize = 4096
)

type manifest struct {
	Version string `yaml:"version"`
	Name    string `yaml:"name"`
}

type ruleHeader struct {
	ID           string   `yaml:"id"`
	Title        string   `yaml:"title"`
	Category     Category `yaml:"category"`
	Severity     Severity `yaml:"severity"`
	Weight       int      `yaml:"weight"`
	Languages    []string `yaml:"languages"`
	ProjectTypes []string `yaml:"project_types"`
	Baseline     bool     `yaml:"baseline"`
	Rationale    string   `yaml:"rationale"`
	Example      *Example `yaml:"example"`
}

type artifactHeader struct {
	ID           string     `yaml:"id"`
	Title        string     `yaml:"title"`
	Description  string     `yaml:"description"`
	Categories   []Category `yaml:"categories"`
	Always       bool       `yaml:"always"`
	Languages    []string   `yaml:"languages"`
	ProjectTypes []string   `yaml:"project_types"`
}

// recordRef is a discovered record file.
type recordRef struct {
	rel      string
	category Category // set for rules
	kind     Kind     // set for artifacts
}

type record struct {
	rule     *Rule
	artifact *Artifact
}

type cachedRecord struct {
	stamp string
	rec   record
}

// Loader reads catalogs from disk. Parsed records are cached by path, size
// and modification time so repeated loads (sync --watch, serve) only reparse
// changed files.
type Loader struct {
	cache   *lru.Cache[string, cachedRecord]
	workers int
	logger  *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithWorkers bounds the number of records parsed concurrently.
func WithWorkers(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithLogger sets the logger used for load diagnostics.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) (*Loader, error) {
	cache, err := lru.New[string, cachedRecord](recordCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create record cache: %w", err)
	}
	l := &Loader{
		cache:   cache,
		workers: runtime.NumCPU(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Load reads the catalog at root with a throwaway Loader.
func Load(ctx context.Context, root string) (*Catalog, error) {
	l, err := NewLoader()
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, root)
}

// Load reads and validates the catalog at root. Any malformed record fails
// the whole load; the returned error joins one RuleError per bad file.
func (l *Loader) Load(ctx context.Context, root string) (*Catalog, error) {
	start := time.Now()

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog path: %w", err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, rserrors.New(rserrors.ErrCodeFileNotFound, fmt.Sprintf("catalog not found at %s", abs), err).
			WithSuggestion("Set catalog.path in the config or RULESMITH_CATALOG to a catalog directory")
	}

	m, err := readManifest(abs)
	if err != nil {
		return nil, err
	}

	refs, err := discover(abs)
	if err != nil {
		return nil, err
	}

	records := make([]record, len(refs))
	errs := make([]error, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, ref := range refs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := l.parseCached(abs, ref)
			if err != nil {
				errs[i] = err
				return nil
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	var rules []Rule
	var artifacts []Artifact
	for _, rec := range records {
		switch {
		case rec.rule != nil:
			rules = append(rules, *rec.rule)
		case rec.artifact != nil:
			artifacts = append(artifacts, *rec.artifact)
		}
	}

	cat, err := build(m.Version, m.Name, abs, rules, artifacts)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("catalog_loaded",
		slog.String("root", abs),
		slog.String("version", cat.Version()),
		slog.Int("rules", len(rules)),
		slog.Int("artifacts", len(artifacts)),
		slog.Duration("duration", time.Since(start)))

	return cat, nil
}

func readManifest(root string) (manifest, error) {
	path := filepath.Join(root, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return manifest{}, rserrors.New(rserrors.ErrCodeCatalogInvalid, fmt.Sprintf("cannot read %s", path), err).
			WithSuggestion("A catalog needs a catalog.yaml with a version")
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return manifest{}, rserrors.New(rserrors.ErrCodeCatalogInvalid, fmt.Sprintf("cannot parse %s", path), err)
	}
	if strings.TrimSpace(m.Version) == "" {
		return manifest{}, rserrors.New(rserrors.ErrCodeCatalogInvalid, fmt.Sprintf("%s has no version", path), nil).
			WithSuggestion("Add `version: \"1\"` to catalog.yaml")
	}
	return m, nil
}

// discover lists record files in deterministic (lexical) order.
func discover(root string) ([]recordRef, error) {
	var refs []recordRef

	principles := filepath.Join(root, PrinciplesDir)
	err := walkRecords(principles, func(rel string) error {
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 2 {
			return rserrors.MalformedRecord(filepath.Join(PrinciplesDir, rel), "rules must live at principles/<category>/<id>.md", nil)
		}
		refs = append(refs, recordRef{
			rel:      filepath.ToSlash(filepath.Join(PrinciplesDir, rel)),
			category: Category(parts[0]),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, kind := range AllKinds {
		dir := filepath.Join(root, kind.Dir())
		err := walkRecords(dir, func(rel string) error {
			refs = append(refs, recordRef{
				rel:  filepath.ToSlash(filepath.Join(kind.Dir(), rel)),
				kind: kind,
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return refs, nil
}

// walkRecords calls fn with the dir-relative path of every visible .md file.
// A missing dir is not an error.
func walkRecords(dir string, fn func(rel string) error) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return fn(rel)
	})
}

func (l *Loader) parseCached(root string, ref recordRef) (record, error) {
	path := filepath.Join(root, filepath.FromSlash(ref.rel))
	info, err := os.Stat(path)
	if err != nil {
		return record{}, rserrors.MalformedRecord(ref.rel, "cannot stat", err)
	}
	stamp := fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())

	if cached, ok := l.cache.Get(path); ok && cached.stamp == stamp {
		return cached.rec, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return record{}, rserrors.MalformedRecord(ref.rel, "cannot read", err)
	}
	rec, err := parseRecord(ref, data)
	if err != nil {
		return record{}, err
	}
	l.cache.Add(path, cachedRecord{stamp: stamp, rec: rec})
	return rec, nil
}

func parseRecord(ref recordRef, data []byte) (record, error) {
	header, body, err := splitFrontMatter(string(data))
	if err != nil {
		return record{}, rserrors.MalformedRecord(ref.rel, err.Error(), nil)
	}
	stem := strings.TrimSuffix(filepath.Base(ref.rel), ".md")

	if ref.kind == "" {
		var h ruleHeader
		if err := decodeStrict(header, &h); err != nil {
			return record{}, rserrors.MalformedRecord(ref.rel, "invalid header", err)
		}
		if h.Category == "" {
			h.Category = ref.category
		}
		if h.Category != ref.category {
			return record{}, rserrors.MalformedRecord(ref.rel,
				fmt.Sprintf("category %q does not match directory %q", h.Category, ref.category), nil)
		}
		if h.ID == "" {
			h.ID = stem
		}
		return record{rule: &Rule{
			ID:       h.ID,
			Title:    h.Title,
			Category: h.Category,
			Severity: h.Severity,
			Weight:   h.Weight,
			Applicability: Applicability{
				Languages:    h.Languages,
				ProjectTypes: h.ProjectTypes,
			},
			Baseline:  h.Baseline,
			Rationale: h.Rationale,
			Example:   h.Example,
			Body:      body,
			Path:      ref.rel,
		}}, nil
	}

	var h artifactHeader
	if err := decodeStrict(header, &h); err != nil {
		return record{}, rserrors.MalformedRecord(ref.rel, "invalid header", err)
	}
	if h.ID == "" {
		h.ID = stem
	}
	return record{artifact: &Artifact{
		ID:          h.ID,
		Kind:        ref.kind,
		Title:       h.Title,
		Description: h.Description,
		Categories:  h.Categories,
		Always:      h.Always,
		Applicability: Applicability{
			Languages:    h.Languages,
			ProjectTypes: h.ProjectTypes,
		},
		Body: body,
		Path: ref.rel,
	}}, nil
}

// decodeStrict rejects unknown header keys so typos surface as malformed records.
func decodeStrict(header string, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader([]byte(header)))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
