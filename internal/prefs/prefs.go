// Package prefs models the answers a user gives about how a project should be
// configured, and the rules for which questions get asked.
//
// Answers are grouped by tier. Tier 1 is always asked, each Tier 2 field is
// asked only when its gate holds, and Tier 3 is asked only after the user
// opts into extended configuration. A nil field means "not asked"; defaults
// are applied by Resolve at selection time, never while collecting.
package prefs

import (
	"slices"

	"github.com/Aman-CERP/rulesmith/internal/catalog"
)

// Strictness controls the rule weight threshold.
type Strictness string

const (
	StrictnessRelaxed  Strictness = "relaxed"
	StrictnessStandard Strictness = "standard"
	StrictnessStrict   Strictness = "strict"
	StrictnessParanoid Strictness = "paranoid"
)

// Stage is the project's lifecycle stage.
type Stage string

const (
	StagePrototype  Stage = "prototype"
	StageMVP        Stage = "mvp"
	StageProduction Stage = "production"
	StageLegacy     Stage = "legacy"
)

// SecurityPosture raises the weight of security rules.
type SecurityPosture string

const (
	SecurityBaseline   SecurityPosture = "baseline"
	SecurityHardened   SecurityPosture = "hardened"
	SecurityCompliance SecurityPosture = "compliance"
)

// TestingApproach raises the weight of testing rules.
type TestingApproach string

const (
	TestingPragmatic     TestingApproach = "pragmatic"
	TestingTDD           TestingApproach = "tdd"
	TestingCoverageGated TestingApproach = "coverage-gated"
)

// OperationsMaturity raises the weight of operations rules.
type OperationsMaturity string

const (
	OpsBasic         OperationsMaturity = "basic"
	OpsObservability OperationsMaturity = "observability"
	OpsSRE           OperationsMaturity = "sre"
)

// GitWorkflow names the team's branching model.
type GitWorkflow string

const (
	GitTrunk      GitWorkflow = "trunk"
	GitGitHubFlow GitWorkflow = "github-flow"
	GitFlow       GitWorkflow = "gitflow"
)

// APIStyle names the project's API paradigm.
type APIStyle string

const (
	APIREST    APIStyle = "rest"
	APIGraphQL APIStyle = "graphql"
	APIGRPC    APIStyle = "grpc"
	APINone    APIStyle = "none"
)

// PerformanceFocus raises the weight of performance rules when latency matters.
type PerformanceFocus string

const (
	PerfStandard        PerformanceFocus = "standard"
	PerfLatencyCritical PerformanceFocus = "latency-critical"
)

// ComplianceFrameworks offered by the compliance question.
var ComplianceFrameworks = []string{"soc2", "hipaa", "pci-dss", "gdpr", "iso27001"}

// MultiSelect is the answer to a multi-choice question. None records an
// explicit "none of the above", which differs from a nil *MultiSelect
// (question not asked).
type MultiSelect struct {
	Values []string `json:"values,omitempty"`
	None   bool     `json:"none,omitempty"`
}

// Selected returns the chosen values, or nil when none were chosen or the
// question was not asked. It is nil-safe.
func (m *MultiSelect) Selected() []string {
	if m == nil || m.None {
		return nil
	}
	return m.Values
}

// Contains reports whether v was chosen.
func (m *MultiSelect) Contains(v string) bool {
	return slices.Contains(m.Selected(), v)
}

// Tier1Answers are always asked (or derived from the profile in quick mode).
type Tier1Answers struct {
	Strictness         Strictness   `json:"strictness,omitempty"`
	Stage              Stage        `json:"stage,omitempty"`
	ExcludedCategories *MultiSelect `json:"excluded_categories,omitempty"`
}

// Tier2Answers are asked when their gate holds.
type Tier2Answers struct {
	SecurityPosture      *SecurityPosture    `json:"security_posture,omitempty"`
	TestingApproach      *TestingApproach    `json:"testing_approach,omitempty"`
	ComplianceFrameworks *MultiSelect        `json:"compliance_frameworks,omitempty"`
	OperationsMaturity   *OperationsMaturity `json:"operations_maturity,omitempty"`
}

// Tier3Answers are asked only after opting into extended configuration.
type Tier3Answers struct {
	GitWorkflow      *GitWorkflow      `json:"git_workflow,omitempty"`
	APIStyle         *APIStyle         `json:"api_style,omitempty"`
	PerformanceFocus *PerformanceFocus `json:"performance_focus,omitempty"`
	ArtifactKinds    *MultiSelect      `json:"artifact_kinds,omitempty"`
}

// Set is the full record of collected answers.
type Set struct {
	Tier1 Tier1Answers  `json:"tier1"`
	Tier2 Tier2Answers  `json:"tier2"`
	Tier3 *Tier3Answers `json:"tier3,omitempty"`
}

// Merge combines per-tier answers into a Set. Every combination is valid.
func Merge(t1 Tier1Answers, t2 Tier2Answers, t3 *Tier3Answers) Set {
	return Set{Tier1: t1, Tier2: t2, Tier3: t3}
}

// Resolved is a Set with every default applied.
type Resolved struct {
	Strictness           Strictness
	Stage                Stage
	ExcludedCategories   []catalog.Category
	SecurityPosture      SecurityPosture
	TestingApproach      TestingApproach
	ComplianceFrameworks []string
	OperationsMaturity   OperationsMaturity
	// GitWorkflow is empty when no workflow was chosen.
	GitWorkflow      GitWorkflow
	APIStyle         APIStyle
	PerformanceFocus PerformanceFocus
	// ArtifactKinds lists the kinds to distribute.
	ArtifactKinds []catalog.Kind
}

// Defaults applied by Resolve.
const (
	DefaultStrictness         = StrictnessStandard
	DefaultSecurityPosture    = SecurityBaseline
	DefaultTestingApproach    = TestingPragmatic
	DefaultOperationsMaturity = OpsBasic
	DefaultAPIStyle           = APINone
	DefaultPerformanceFocus   = PerfStandard
)

// Resolve applies documented defaults to unset fields.
func Resolve(s Set) Resolved {
	r := Resolved{
		Strictness:         DefaultStrictness,
		Stage:              s.Tier1.Stage,
		SecurityPosture:    DefaultSecurityPosture,
		TestingApproach:    DefaultTestingApproach,
		OperationsMaturity: DefaultOperationsMaturity,
		APIStyle:           DefaultAPIStyle,
		PerformanceFocus:   DefaultPerformanceFocus,
		ArtifactKinds:      slices.Clone(catalog.AllKinds),
	}

	if s.Tier1.Strictness != "" {
		r.Strictness = s.Tier1.Strictness
	}
	for _, c := range s.Tier1.ExcludedCategories.Selected() {
		r.ExcludedCategories = append(r.ExcludedCategories, catalog.Category(c))
	}

	if v := s.Tier2.SecurityPosture; v != nil {
		r.SecurityPosture = *v
	}
	if v := s.Tier2.TestingApproach; v != nil {
		r.TestingApproach = *v
	}
	r.ComplianceFrameworks = slices.Clone(s.Tier2.ComplianceFrameworks.Selected())
	if v := s.Tier2.OperationsMaturity; v != nil {
		r.OperationsMaturity = *v
	}

	if t3 := s.Tier3; t3 != nil {
		if t3.GitWorkflow != nil {
			r.GitWorkflow = *t3.GitWorkflow
		}
		if t3.APIStyle != nil {
			r.APIStyle = *t3.APIStyle
		}
		if t3.PerformanceFocus != nil {
			r.PerformanceFocus = *t3.PerformanceFocus
		}
		if t3.ArtifactKinds != nil {
			r.ArtifactKinds = nil
			for _, k := range t3.ArtifactKinds.Selected() {
				r.ArtifactKinds = append(r.ArtifactKinds, catalog.Kind(k))
			}
		}
	}

	return r
}

// Excludes reports whether category c was excluded.
func (r Resolved) Excludes(c catalog.Category) bool {
	return slices.Contains(r.ExcludedCategories, c)
}

// AllowsKind reports whether artifacts of kind k may be distributed.
func (r Resolved) AllowsKind(k catalog.Kind) bool {
	return slices.Contains(r.ArtifactKinds, k)
}

// Ptr returns a pointer to v, for building answer records.
func Ptr[T any](v T) *T {
	return &v
}
