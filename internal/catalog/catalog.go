package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"

	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// Catalog is an immutable, versioned set of rules and artifacts.
// Accessors return values; callers cannot change the catalog through them.
type Catalog struct {
	version string
	name    string
	root    string

	rules     map[string]Rule
	ruleIDs   []string
	artifacts map[string]Artifact
	artIDs    []string
}

// New builds a catalog from in-memory records. It applies the same validation
// as Load, which makes it suitable for fixtures.
func New(version string, rules []Rule, artifacts []Artifact) (*Catalog, error) {
	return build(version, "", "", rules, artifacts)
}

func build(version, name, root string, rules []Rule, artifacts []Artifact) (*Catalog, error) {
	if version == "" {
		return nil, rserrors.New(rserrors.ErrCodeCatalogInvalid, "catalog has no version", nil).
			WithSuggestion("Set `version:` in catalog.yaml")
	}

	c := &Catalog{
		version:   version,
		name:      name,
		root:      root,
		rules:     make(map[string]Rule, len(rules)),
		artifacts: make(map[string]Artifact, len(artifacts)),
	}

	var errs []error
	seen := make(map[string]string)
	claim := func(id, path string) bool {
		if prev, dup := seen[id]; dup {
			errs = append(errs, rserrors.MalformedRecord(path, fmt.Sprintf("duplicate id %q (also in %s)", id, prev), nil))
			return false
		}
		seen[id] = path
		return true
	}

	for _, r := range rules {
		if r.Path == "" {
			r.Path = RulePath(r.Category, r.ID)
		}
		if err := validateRule(r); err != nil {
			errs = append(errs, err)
			continue
		}
		if claim(r.ID, r.Path) {
			c.rules[r.ID] = r
			c.ruleIDs = append(c.ruleIDs, r.ID)
		}
	}
	for _, a := range artifacts {
		if a.Path == "" {
			a.Path = ArtifactPath(a.Kind, a.ID)
		}
		if err := validateArtifact(a); err != nil {
			errs = append(errs, err)
			continue
		}
		if claim(a.ID, a.Path) {
			c.artifacts[a.ID] = a
			c.artIDs = append(c.artIDs, a.ID)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sort.Strings(c.ruleIDs)
	sort.Strings(c.artIDs)
	return c, nil
}

func validateRule(r Rule) error {
	switch {
	case !idPattern.MatchString(r.ID):
		return rserrors.MalformedRecord(r.Path, fmt.Sprintf("invalid id %q", r.ID), nil)
	case r.Title == "":
		return rserrors.MalformedRecord(r.Path, "missing title", nil)
	case !r.Category.Valid():
		return rserrors.MalformedRecord(r.Path, fmt.Sprintf("unknown category %q", r.Category), nil)
	case !r.Severity.Valid():
		return rserrors.MalformedRecord(r.Path, fmt.Sprintf("unknown severity %q", r.Severity), nil)
	case r.Weight < 1 || r.Weight > 10:
		return rserrors.MalformedRecord(r.Path, fmt.Sprintf("weight %d out of range 1..10", r.Weight), nil)
	}
	return nil
}

func validateArtifact(a Artifact) error {
	switch {
	case !idPattern.MatchString(a.ID):
		return rserrors.MalformedRecord(a.Path, fmt.Sprintf("invalid id %q", a.ID), nil)
	case !a.Kind.Valid():
		return rserrors.MalformedRecord(a.Path, fmt.Sprintf("unknown kind %q", a.Kind), nil)
	case a.Title == "":
		return rserrors.MalformedRecord(a.Path, "missing title", nil)
	}
	for _, cat := range a.Categories {
		if !cat.Valid() {
			return rserrors.MalformedRecord(a.Path, fmt.Sprintf("unknown category %q", cat), nil)
		}
	}
	return nil
}

// Version is the catalog's published version.
func (c *Catalog) Version() string { return c.version }

// Name is the optional display name from catalog.yaml.
func (c *Catalog) Name() string { return c.name }

// Root is the absolute catalog directory, empty for in-memory catalogs.
func (c *Catalog) Root() string { return c.root }

// Rule looks up a rule by id.
func (c *Catalog) Rule(id string) (Rule, bool) {
	r, ok := c.rules[id]
	return r, ok
}

// Artifact looks up an artifact by id.
func (c *Catalog) Artifact(id string) (Artifact, bool) {
	a, ok := c.artifacts[id]
	return a, ok
}

// Abs resolves a catalog-relative record path. It returns "" for catalogs
// built in memory.
func (c *Catalog) Abs(rel string) string {
	if c.root == "" {
		return ""
	}
	return filepath.Join(c.root, filepath.FromSlash(rel))
}

// Rules returns all rules sorted by id.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, 0, len(c.ruleIDs))
	for _, id := range c.ruleIDs {
		out = append(out, c.rules[id])
	}
	return out
}

// Artifacts returns all artifacts sorted by id.
func (c *Catalog) Artifacts() []Artifact {
	out := make([]Artifact, 0, len(c.artIDs))
	for _, id := range c.artIDs {
		out = append(out, c.artifacts[id])
	}
	return out
}

// Baseline returns the rules that are always selected, sorted by id.
func (c *Catalog) Baseline() []Rule {
	var out []Rule
	for _, id := range c.ruleIDs {
		if r := c.rules[id]; r.Baseline {
			out = append(out, r)
		}
	}
	return out
}

// Categories returns the categories that have at least one rule, in canonical order.
func (c *Catalog) Categories() []Category {
	present := make(map[Category]bool)
	for _, r := range c.rules {
		present[r.Category] = true
	}
	var out []Category
	for _, cat := range AllCategories {
		if present[cat] {
			out = append(out, cat)
		}
	}
	return out
}

// Len returns the number of rules and artifacts.
func (c *Catalog) Len() (rules, artifacts int) {
	return len(c.ruleIDs), len(c.artIDs)
}
