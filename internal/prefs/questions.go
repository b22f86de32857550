package prefs

import (
	"github.com/Aman-CERP/rulesmith/internal/catalog"
	"github.com/Aman-CERP/rulesmith/internal/profile"
)

// QuestionKind selects how an Asker renders a question.
type QuestionKind int

const (
	// KindSingle picks exactly one option.
	KindSingle QuestionKind = iota + 1
	// KindMulti picks zero or more options. An empty pick takes Defaults;
	// "none" must be chosen explicitly when Defaults is set.
	KindMulti
	// KindConfirm is a yes/no question.
	KindConfirm
)

// Option is one choice offered by a question.
type Option struct {
	Value string
	Label string
}

// Question is a single prompt shown to the user.
type Question struct {
	ID      string
	Tier    int
	Prompt  string
	Kind    QuestionKind
	Options []Option
	// Default is the option value used when the user accepts the default.
	// For KindConfirm it is "yes" or "no".
	Default string
	// Defaults are the values a KindMulti question takes on an empty pick.
	// Without them an empty pick means none.
	Defaults []string
}

// Answer is what an Asker returns. Exactly one field is meaningful,
// according to the question kind.
type Answer struct {
	Value  string
	Values MultiSelect
	Yes    bool
}

// Question ids.
const (
	QStrictness           = "strictness"
	QStage                = "stage"
	QExcludedCategories   = "excluded_categories"
	QSecurityPosture      = "security_posture"
	QTestingApproach      = "testing_approach"
	QComplianceFrameworks = "compliance_frameworks"
	QOperationsMaturity   = "operations_maturity"
	QCustomize            = "customize"
	QGitWorkflow          = "git_workflow"
	QAPIStyle             = "api_style"
	QPerformanceFocus     = "performance_focus"
	QArtifactKinds        = "artifact_kinds"
)

func options(values ...string) []Option {
	out := make([]Option, len(values))
	for i, v := range values {
		out[i] = Option{Value: v, Label: v}
	}
	return out
}

func strictnessQuestion(def Strictness) Question {
	return Question{
		ID: QStrictness, Tier: 1, Kind: KindSingle,
		Prompt: "How strict should the rule set be?",
		Options: []Option{
			{Value: string(StrictnessRelaxed), Label: "relaxed: only the most important rules"},
			{Value: string(StrictnessStandard), Label: "standard: a balanced set"},
			{Value: string(StrictnessStrict), Label: "strict: most applicable rules"},
			{Value: string(StrictnessParanoid), Label: "paranoid: everything applicable"},
		},
		Default: string(def),
	}
}

func stageQuestion(def Stage) Question {
	return Question{
		ID: QStage, Tier: 1, Kind: KindSingle,
		Prompt:  "What stage is the project in?",
		Options: options(string(StagePrototype), string(StageMVP), string(StageProduction), string(StageLegacy)),
		Default: string(def),
	}
}

func excludedCategoriesQuestion() Question {
	values := make([]string, 0, len(catalog.AllCategories))
	for _, c := range catalog.AllCategories {
		values = append(values, string(c))
	}
	return Question{
		ID: QExcludedCategories, Tier: 1, Kind: KindMulti,
		Prompt:  "Exclude any rule categories?",
		Options: options(values...),
	}
}

// Gate decides whether a Tier 2 question is asked. Gates read only Tier 1
// answers and the profile, so they do not depend on question order.
type Gate func(t1 Tier1Answers, p profile.Profile) bool

type tier2Question struct {
	question Question
	gate     Gate
	assign   func(t2 *Tier2Answers, a Answer)
}

func stricterThanStandard(s Strictness) bool {
	return s == StrictnessStrict || s == StrictnessParanoid
}

// SecurityGate holds for web projects, compliance-tagged projects, and
// strict or paranoid strictness.
func SecurityGate(t1 Tier1Answers, p profile.Profile) bool {
	return p.IsWeb() || len(p.ComplianceTags) > 0 || stricterThanStandard(t1.Strictness)
}

// TestingGate holds when the project has tests or is in production or legacy.
func TestingGate(t1 Tier1Answers, p profile.Profile) bool {
	return p.HasTests || t1.Stage == StageProduction || t1.Stage == StageLegacy
}

// ComplianceGate holds for production projects that carry compliance tags
// or expose a web API.
func ComplianceGate(t1 Tier1Answers, p profile.Profile) bool {
	return t1.Stage == StageProduction &&
		(len(p.ComplianceTags) > 0 || p.HasType(profile.TypeWebAPI))
}

// OperationsGate holds when the project ships containers, runs CI, or has a
// deployment target.
func OperationsGate(_ Tier1Answers, p profile.Profile) bool {
	return p.HasContainers || p.HasCI || p.Deployed()
}

var tier2Questions = []tier2Question{
	{
		question: Question{
			ID: QSecurityPosture, Tier: 2, Kind: KindSingle,
			Prompt:  "Security posture?",
			Options: options(string(SecurityBaseline), string(SecurityHardened), string(SecurityCompliance)),
			Default: string(DefaultSecurityPosture),
		},
		gate: SecurityGate,
		assign: func(t2 *Tier2Answers, a Answer) {
			t2.SecurityPosture = Ptr(SecurityPosture(a.Value))
		},
	},
	{
		question: Question{
			ID: QTestingApproach, Tier: 2, Kind: KindSingle,
			Prompt:  "Testing approach?",
			Options: options(string(TestingPragmatic), string(TestingTDD), string(TestingCoverageGated)),
			Default: string(DefaultTestingApproach),
		},
		gate: TestingGate,
		assign: func(t2 *Tier2Answers, a Answer) {
			t2.TestingApproach = Ptr(TestingApproach(a.Value))
		},
	},
	{
		question: Question{
			ID: QComplianceFrameworks, Tier: 2, Kind: KindMulti,
			Prompt:  "Which compliance frameworks apply?",
			Options: options(ComplianceFrameworks...),
		},
		gate: ComplianceGate,
		assign: func(t2 *Tier2Answers, a Answer) {
			t2.ComplianceFrameworks = Ptr(a.Values)
		},
	},
	{
		question: Question{
			ID: QOperationsMaturity, Tier: 2, Kind: KindSingle,
			Prompt:  "Operations maturity?",
			Options: options(string(OpsBasic), string(OpsObservability), string(OpsSRE)),
			Default: string(DefaultOperationsMaturity),
		},
		gate: OperationsGate,
		assign: func(t2 *Tier2Answers, a Answer) {
			t2.OperationsMaturity = Ptr(OperationsMaturity(a.Value))
		},
	},
}

var customizeQuestion = Question{
	ID: QCustomize, Tier: 3, Kind: KindConfirm,
	Prompt:  "Customize further (git workflow, API style, artifacts)?",
	Default: "no",
}

func tier3Questions() []Question {
	kinds := make([]string, 0, len(catalog.AllKinds))
	for _, k := range catalog.AllKinds {
		kinds = append(kinds, string(k))
	}
	return []Question{
		{
			ID: QGitWorkflow, Tier: 3, Kind: KindSingle,
			Prompt:  "Git workflow?",
			Options: options(string(GitTrunk), string(GitGitHubFlow), string(GitFlow)),
			Default: string(GitGitHubFlow),
		},
		{
			ID: QAPIStyle, Tier: 3, Kind: KindSingle,
			Prompt:  "API style?",
			Options: options(string(APIREST), string(APIGraphQL), string(APIGRPC), string(APINone)),
			Default: string(DefaultAPIStyle),
		},
		{
			ID: QPerformanceFocus, Tier: 3, Kind: KindSingle,
			Prompt:  "Performance focus?",
			Options: options(string(PerfStandard), string(PerfLatencyCritical)),
			Default: string(DefaultPerformanceFocus),
		},
		{
			ID: QArtifactKinds, Tier: 3, Kind: KindMulti,
			Prompt:   "Which artifact kinds should be distributed?",
			Options:  options(kinds...),
			Defaults: kinds,
		},
	}
}
