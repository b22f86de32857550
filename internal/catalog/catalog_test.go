package catalog_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/rulesmith/internal/catalog"
	"github.com/Aman-CERP/rulesmith/internal/catalog/catalogtest"
	rserrors "github.com/Aman-CERP/rulesmith/internal/errors"
)

func TestNew_SortsAndIndexes(t *testing.T) {
	// Given: rules and artifacts in arbitrary order
	rules := []catalog.Rule{
		catalogtest.Rule("sec-002", catalog.CategorySecurity, 6),
		catalogtest.Baseline("cq-001", catalog.CategoryCodeQuality, 10),
		catalogtest.Rule("sec-001", catalog.CategorySecurity, 3),
	}
	artifacts := []catalog.Artifact{
		catalogtest.Artifact("review", catalog.KindCommand, catalog.CategoryCodeQuality),
	}

	// When: building the catalog
	cat := catalogtest.New(t, rules, artifacts)

	// Then: lookups and ordering are deterministic
	ids := func(rs []catalog.Rule) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}
	assert.Equal(t, []string{"cq-001", "sec-001", "sec-002"}, ids(cat.Rules()))
	assert.Equal(t, []string{"cq-001"}, ids(cat.Baseline()))
	assert.Equal(t, []catalog.Category{catalog.CategoryCodeQuality, catalog.CategorySecurity}, cat.Categories())

	r, ok := cat.Rule("sec-002")
	require.True(t, ok)
	assert.Equal(t, 6, r.Weight)
	_, ok = cat.Rule("missing")
	assert.False(t, ok)

	a, ok := cat.Artifact("review")
	require.True(t, ok)
	assert.Equal(t, catalog.KindCommand, a.Kind)

	nr, na := cat.Len()
	assert.Equal(t, 3, nr)
	assert.Equal(t, 1, na)
}

func TestNew_RejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*catalog.Rule)
		want   string
	}{
		{"weight too low", func(r *catalog.Rule) { r.Weight = 0 }, "weight 0 out of range"},
		{"weight too high", func(r *catalog.Rule) { r.Weight = 11 }, "weight 11 out of range"},
		{"unknown category", func(r *catalog.Rule) { r.Category = "style" }, "unknown category"},
		{"unknown severity", func(r *catalog.Rule) { r.Severity = "blocker" }, "unknown severity"},
		{"bad id", func(r *catalog.Rule) { r.ID = "Has Spaces" }, "invalid id"},
		{"missing title", func(r *catalog.Rule) { r.Title = "" }, "missing title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := catalogtest.Rule("r-1", catalog.CategoryTesting, 5)
			r.Path = "principles/testing/r-1.md"
			tt.mutate(&r)

			_, err := catalog.New("1", []catalog.Rule{r}, nil)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, rserrors.ErrCodeMalformedRecord, rserrors.GetCode(err))
		})
	}
}

func TestNew_DuplicateIDFails(t *testing.T) {
	a := catalogtest.Rule("dup", catalog.CategoryTesting, 5)
	a.Path = "principles/testing/dup.md"
	b := catalogtest.Rule("dup", catalog.CategorySecurity, 5)
	b.Path = "principles/security/dup.md"

	_, err := catalog.New("1", []catalog.Rule{a, b}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
	assert.Contains(t, err.Error(), "principles/testing/dup.md")
}

func TestNew_ReportsEveryBadRecord(t *testing.T) {
	a := catalogtest.Rule("a", catalog.CategoryTesting, 0)
	b := catalogtest.Rule("b", catalog.CategoryTesting, 99)

	_, err := catalog.New("1", []catalog.Rule{a, b}, nil)

	var joined interface{ Unwrap() []error }
	require.True(t, errors.As(err, &joined))
	assert.Len(t, joined.Unwrap(), 2)
}

func TestNew_RequiresVersion(t *testing.T) {
	_, err := catalog.New("", nil, nil)

	assert.Equal(t, rserrors.ErrCodeCatalogInvalid, rserrors.GetCode(err))
}

func TestApplicability_Matches(t *testing.T) {
	tests := []struct {
		name  string
		app   catalog.Applicability
		lang  string
		types []string
		want  bool
	}{
		{"empty matches all", catalog.Applicability{}, "go", []string{"cli"}, true},
		{"all keyword", catalog.Applicability{Languages: []string{"all"}, ProjectTypes: []string{"all"}}, "rust", nil, true},
		{"language match is case-insensitive", catalog.Applicability{Languages: []string{"Go"}}, "go", nil, true},
		{"language mismatch", catalog.Applicability{Languages: []string{"python"}}, "go", nil, false},
		{"type intersects", catalog.Applicability{ProjectTypes: []string{"web-api", "cli"}}, "go", []string{"cli"}, true},
		{"type disjoint", catalog.Applicability{ProjectTypes: []string{"web-api"}}, "go", []string{"library"}, false},
		{"type required but profile has none", catalog.Applicability{ProjectTypes: []string{"web-api"}}, "go", nil, false},
		{"unknown language against specific set", catalog.Applicability{Languages: []string{"go"}}, "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.app.Matches(tt.lang, tt.types))
		})
	}
}

func TestNew_FillsDefaultPaths(t *testing.T) {
	cat := catalogtest.New(t,
		[]catalog.Rule{catalogtest.Rule("sec-001", catalog.CategorySecurity, 3)},
		[]catalog.Artifact{catalogtest.Artifact("review", catalog.KindCommand)},
	)

	r, _ := cat.Rule("sec-001")
	a, _ := cat.Artifact("review")

	assert.Equal(t, "principles/security/sec-001.md", r.Path)
	assert.Equal(t, "commands/review.md", a.Path)
	assert.Equal(t, "", cat.Abs(r.Path), "in-memory catalogs have no files")
}
