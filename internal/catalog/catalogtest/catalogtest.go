// Package catalogtest builds catalogs for tests, in memory or on disk.
package catalogtest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/rulesmith/internal/catalog"
)

// Rule returns a rule with every required field filled in.
func Rule(id string, category catalog.Category, weight int) catalog.Rule {
	return catalog.Rule{
		ID:       id,
		Title:    "Rule " + id,
		Category: category,
		Severity: catalog.SeverityMedium,
		Weight:   weight,
		Body:     "Body of " + id + ".",
	}
}

// Baseline returns a baseline rule.
func Baseline(id string, category catalog.Category, weight int) catalog.Rule {
	r := Rule(id, category, weight)
	r.Baseline = true
	return r
}

// Artifact returns an artifact with every required field filled in.
func Artifact(id string, kind catalog.Kind, categories ...catalog.Category) catalog.Artifact {
	return catalog.Artifact{
		ID:         id,
		Kind:       kind,
		Title:      "Artifact " + id,
		Categories: categories,
		Body:       "Instructions for " + id + ".",
	}
}

// New builds an in-memory catalog and fails the test on error.
func New(t testing.TB, rules []catalog.Rule, artifacts []catalog.Artifact) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New("1.0.0", rules, artifacts)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return cat
}

// Write materializes a catalog under root and returns root.
func Write(t testing.TB, root, version string, rules []catalog.Rule, artifacts []catalog.Artifact) string {
	t.Helper()

	writeFile(t, filepath.Join(root, catalog.ManifestFile), "version: \""+version+"\"\nname: test\n")

	for _, r := range rules {
		header := map[string]any{
			"id":       r.ID,
			"title":    r.Title,
			"category": string(r.Category),
			"severity": string(r.Severity),
			"weight":   r.Weight,
		}
		if len(r.Applicability.Languages) > 0 {
			header["languages"] = r.Applicability.Languages
		}
		if len(r.Applicability.ProjectTypes) > 0 {
			header["project_types"] = r.Applicability.ProjectTypes
		}
		if r.Baseline {
			header["baseline"] = true
		}
		if r.Rationale != "" {
			header["rationale"] = r.Rationale
		}
		path := r.Path
		if path == "" {
			path = filepath.Join(catalog.PrinciplesDir, string(r.Category), r.ID+".md")
		}
		writeFile(t, filepath.Join(root, path), Record(t, header, r.Body))
	}

	for _, a := range artifacts {
		header := map[string]any{
			"id":    a.ID,
			"title": a.Title,
		}
		if a.Description != "" {
			header["description"] = a.Description
		}
		if len(a.Categories) > 0 {
			cats := make([]string, len(a.Categories))
			for i, c := range a.Categories {
				cats[i] = string(c)
			}
			header["categories"] = cats
		}
		if a.Always {
			header["always"] = true
		}
		if len(a.Applicability.Languages) > 0 {
			header["languages"] = a.Applicability.Languages
		}
		path := a.Path
		if path == "" {
			path = filepath.Join(a.Kind.Dir(), a.ID+".md")
		}
		writeFile(t, filepath.Join(root, path), Record(t, header, a.Body))
	}

	return root
}

// Record renders a catalog record file from a header and body.
func Record(t testing.TB, header map[string]any, body string) string {
	t.Helper()
	data, err := yaml.Marshal(header)
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(data)
	sb.WriteString("---\n\n")
	sb.WriteString(body)
	sb.WriteString("\n")
	return sb.String()
}

func writeFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
