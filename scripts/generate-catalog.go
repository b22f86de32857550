//go:build ignore

// Package main generates a synthetic catalog for load testing the loader,
// the selector and `sync --watch`.
// Usage: go run scripts/generate-catalog.go -rules 400 -artifacts 60 -output testdata/catalog
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	numRules     = flag.Int("rules", 400, "Number of rules to generate")
	numArtifacts = flag.Int("artifacts", 60, "Number of artifacts to generate")
	outputDir    = flag.String("output", "testdata/catalog", "Output directory")
	seed         = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var categories = []string{
	"code-quality", "security", "testing", "architecture",
	"performance", "operations", "git-workflow", "api-design",
}

var (
	severities   = []string{"critical", "high", "medium", "low"}
	kinds        = []string{"command", "skill", "agent"}
	languages    = []string{"go", "python", "typescript", "rust", "java"}
	projectTypes = []string{"web-api", "cli", "library", "frontend", "data-pipeline"}
	verbs        = []string{"Validate", "Document", "Isolate", "Measure", "Review", "Pin", "Limit", "Log"}
	nouns        = []string{"inputs", "dependencies", "migrations", "secrets", "timeouts", "errors", "fixtures", "releases"}
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	fmt.Printf("Generating catalog: %d rules, %d artifacts in %s\n", *numRules, *numArtifacts, *outputDir)

	manifest := map[string]any{"version": "0.0.0-synthetic", "name": "synthetic"}
	if err := writeYAML(filepath.Join(*outputDir, "catalog.yaml"), manifest); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for i := range *numRules {
		category := categories[i%len(categories)]
		id := fmt.Sprintf("%s-%03d", abbrev(category), i)
		header := map[string]any{
			"id":       id,
			"title":    pick(rng, verbs) + " " + pick(rng, nouns),
			"category": category,
			"severity": pick(rng, severities),
			"weight":   1 + rng.Intn(10),
		}
		if i%25 == 0 {
			header["baseline"] = true
		}
		if rng.Intn(3) == 0 {
			header["languages"] = []string{pick(rng, languages)}
		}
		if rng.Intn(4) == 0 {
			header["project_types"] = []string{pick(rng, projectTypes), pick(rng, projectTypes)}
		}
		path := filepath.Join(*outputDir, "principles", category, id+".md")
		if err := writeRecord(path, header, body(rng, id)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	for i := range *numArtifacts {
		kind := kinds[i%len(kinds)]
		id := fmt.Sprintf("%s-%03d", kind, i)
		header := map[string]any{
			"id":         id,
			"title":      pick(rng, verbs) + " " + pick(rng, nouns),
			"categories": []string{pick(rng, categories)},
		}
		if i%20 == 0 {
			header["always"] = true
		}
		path := filepath.Join(*outputDir, kind+"s", id+".md")
		if err := writeRecord(path, header, body(rng, id)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generated %d records successfully.\n", *numRules+*numArtifacts)
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

func abbrev(category string) string {
	parts := strings.Split(category, "-")
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p[:min(3, len(p))])
	}
	return sb.String()
}

func body(rng *rand.Rand, id string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Guidance for %s.\n\n", id)
	for range 1 + rng.Intn(4) {
		fmt.Fprintf(&sb, "- %s %s before merging.\n", pick(rng, verbs), pick(rng, nouns))
	}
	return sb.String()
}

func writeRecord(path string, header map[string]any, text string) error {
	data, err := yaml.Marshal(header)
	if err != nil {
		return err
	}
	content := "---\n" + string(data) + "---\n\n" + text
	return writeFile(path, content)
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return writeFile(path, string(data))
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
