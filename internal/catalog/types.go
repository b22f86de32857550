// Package catalog loads and serves the global store of rules and reusable
// artifacts that rulesmith selects from.
//
// A catalog is a directory:
//
//	catalog.yaml                       version and name
//	principles/<category>/<id>.md      rules
//	commands/<id>.md                   artifacts of kind command
//	skills/<id>.md                     artifacts of kind skill
//	agents/<id>.md                     artifacts of kind agent
//
// Every record starts with a YAML header between "---" lines followed by free
// text. A loaded Catalog is immutable and safe for concurrent readers.
package catalog

import (
	"slices"
	"strings"
)

// Category is a closed set of rule categories.
type Category string

const (
	CategoryCodeQuality  Category = "code-quality"
	CategorySecurity     Category = "security"
	CategoryTesting      Category = "testing"
	CategoryArchitecture Category = "architecture"
	CategoryPerformance  Category = "performance"
	CategoryOperations   Category = "operations"
	CategoryGitWorkflow  Category = "git-workflow"
	CategoryAPIDesign    Category = "api-design"
)

// AllCategories lists the categories in canonical order.
var AllCategories = []Category{
	CategoryCodeQuality,
	CategorySecurity,
	CategoryTesting,
	CategoryArchitecture,
	CategoryPerformance,
	CategoryOperations,
	CategoryGitWorkflow,
	CategoryAPIDesign,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return slices.Contains(AllCategories, c)
}

// Severity ranks how bad a violation of a rule is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Kind identifies the type of a distributable artifact.
type Kind string

const (
	KindCommand Kind = "command"
	KindSkill   Kind = "skill"
	KindAgent   Kind = "agent"
)

// AllKinds lists artifact kinds in canonical order.
var AllKinds = []Kind{KindCommand, KindSkill, KindAgent}

// Dir returns the catalog subdirectory holding artifacts of kind k.
func (k Kind) Dir() string {
	return string(k) + "s"
}

// Valid reports whether k is a known artifact kind.
func (k Kind) Valid() bool {
	return slices.Contains(AllKinds, k)
}

// RulePath is the catalog-relative path of a rule record.
func RulePath(c Category, id string) string {
	return "principles/" + string(c) + "/" + id + ".md"
}

// ArtifactPath is the catalog-relative path of an artifact record.
func ArtifactPath(k Kind, id string) string {
	return k.Dir() + "/" + id + ".md"
}

// All is the wildcard accepted in applicability sets.
const All = "all"

// Applicability restricts a record to certain languages and project types.
// An empty set, or one containing "all", matches everything.
type Applicability struct {
	Languages    []string `yaml:"languages" json:"languages,omitempty"`
	ProjectTypes []string `yaml:"project_types" json:"project_types,omitempty"`
}

// Matches reports whether a project with the given primary language and
// project types is covered.
func (a Applicability) Matches(language string, projectTypes []string) bool {
	return matchesLanguage(a.Languages, language) && matchesTypes(a.ProjectTypes, projectTypes)
}

func isWildcard(set []string) bool {
	return len(set) == 0 || slices.Contains(set, All)
}

func matchesLanguage(set []string, language string) bool {
	if isWildcard(set) {
		return true
	}
	return slices.ContainsFunc(set, func(l string) bool {
		return strings.EqualFold(l, language)
	})
}

func matchesTypes(set []string, projectTypes []string) bool {
	if isWildcard(set) {
		return true
	}
	for _, pt := range projectTypes {
		if slices.Contains(set, pt) {
			return true
		}
	}
	return false
}

// Example pairs a compliant and a non-compliant snippet.
type Example struct {
	Good string `yaml:"good" json:"good,omitempty"`
	Bad  string `yaml:"bad" json:"bad,omitempty"`
}

// Rule is a single guidance principle.
type Rule struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Category      Category      `json:"category"`
	Severity      Severity      `json:"severity"`
	Weight        int           `json:"weight"`
	Applicability Applicability `json:"applicability"`
	Baseline      bool          `json:"baseline"`
	Rationale     string        `json:"rationale,omitempty"`
	Example       *Example      `json:"example,omitempty"`
	Body          string        `json:"body,omitempty"`
	// Path is the record location relative to the catalog root.
	Path string `json:"path"`
}

// Artifact is a reusable command, skill or agent definition.
type Artifact struct {
	ID            string        `json:"id"`
	Kind          Kind          `json:"kind"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	Categories    []Category    `json:"categories,omitempty"`
	Always        bool          `json:"always"`
	Applicability Applicability `json:"applicability"`
	Body          string        `json:"body,omitempty"`
	Path          string        `json:"path"`
}
