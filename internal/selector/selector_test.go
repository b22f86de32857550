package selector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/rulesmith/internal/catalog"
	"github.com/Aman-CERP/rulesmith/internal/catalog/catalogtest"
	"github.com/Aman-CERP/rulesmith/internal/prefs"
	"github.com/Aman-CERP/rulesmith/internal/profile"
	"github.com/Aman-CERP/rulesmith/internal/selector"
)

func scenarioCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	return catalogtest.New(t, []catalog.Rule{
		catalogtest.Baseline("a", catalog.CategoryCodeQuality, 10),
		catalogtest.Rule("b", catalog.CategorySecurity, 6),
		catalogtest.Rule("c", catalog.CategorySecurity, 3),
	}, nil)
}

func withStrictness(s prefs.Strictness) prefs.Set {
	return prefs.Merge(prefs.Tier1Answers{Strictness: s}, prefs.Tier2Answers{}, nil)
}

func TestSelect_StrictnessScenario(t *testing.T) {
	// Given: a (baseline, 10), b (security, 6), c (security, 3) and a
	// profile without security flags
	cat := scenarioCatalog(t)
	p := profile.Profile{PrimaryLanguage: "go"}

	// When: selecting at standard strictness
	standard := withStrictness(prefs.StrictnessStandard)
	res := selector.Select(cat, p, standard, selector.ThresholdFromPreferences(standard))

	// Then: c falls below the threshold
	assert.Equal(t, 5, res.Threshold)
	assert.Equal(t, []string{"a", "b"}, res.RuleIDs)

	// When: selecting at paranoid strictness
	paranoid := withStrictness(prefs.StrictnessParanoid)
	res = selector.Select(cat, p, paranoid, selector.ThresholdFromPreferences(paranoid))

	// Then: c is added and nothing else changes
	assert.Equal(t, 1, res.Threshold)
	assert.Equal(t, []string{"a", "b", "c"}, res.RuleIDs)
}

func TestThresholdFor(t *testing.T) {
	tests := []struct {
		strictness prefs.Strictness
		want       int
	}{
		{prefs.StrictnessRelaxed, 8},
		{prefs.StrictnessStandard, 5},
		{prefs.StrictnessStrict, 3},
		{prefs.StrictnessParanoid, 1},
		{"", 5},
	}

	for _, tt := range tests {
		t.Run(string(tt.strictness), func(t *testing.T) {
			assert.Equal(t, tt.want, selector.ThresholdFor(tt.strictness))
		})
	}
}

func largeCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	var rules []catalog.Rule
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for i, c := range catalog.AllCategories {
		rules = append(rules, catalogtest.Rule(ids[i]+"-1", c, i+1))
		rules = append(rules, catalogtest.Rule(ids[i]+"-2", c, 10-i))
	}
	rules = append(rules, catalogtest.Baseline("base-1", catalog.CategoryCodeQuality, 2))

	goOnly := catalogtest.Rule("go-only", catalog.CategoryCodeQuality, 9)
	goOnly.Applicability.Languages = []string{"go"}
	rules = append(rules, goOnly)

	webOnly := catalogtest.Rule("web-only", catalog.CategorySecurity, 9)
	webOnly.Applicability.ProjectTypes = []string{profile.TypeWebAPI}
	rules = append(rules, webOnly)

	return catalogtest.New(t, rules, nil)
}

func TestSelect_Deterministic(t *testing.T) {
	cat := largeCatalog(t)
	p := profile.Profile{PrimaryLanguage: "go", ProjectTypes: []string{profile.TypeCLI}}
	set := withStrictness(prefs.StrictnessStrict)

	first := selector.Select(cat, p, set, 3)
	second := selector.Select(cat, p, set, 3)

	assert.Equal(t, first.RuleIDs, second.RuleIDs)
	assert.Equal(t, first.EffectiveWeights, second.EffectiveWeights)
	assert.Equal(t, first.ByCategory(), second.ByCategory())
}

func TestSelect_Monotonic(t *testing.T) {
	cat := largeCatalog(t)
	p := profile.Profile{PrimaryLanguage: "go"}
	set := prefs.Merge(
		prefs.Tier1Answers{ExcludedCategories: &prefs.MultiSelect{Values: []string{"performance"}}},
		prefs.Tier2Answers{SecurityPosture: prefs.Ptr(prefs.SecurityHardened)},
		nil,
	)

	prev := len(cat.Rules()) + 1
	for threshold := 0; threshold <= 12; threshold++ {
		n := selector.Select(cat, p, set, threshold).Len()
		assert.LessOrEqual(t, n, prev, "threshold %d", threshold)
		prev = n
	}
}

func TestSelect_BaselineAlwaysPresent(t *testing.T) {
	cat := largeCatalog(t)

	tests := []struct {
		name      string
		profile   profile.Profile
		set       prefs.Set
		threshold int
	}{
		{"empty set", profile.Profile{}, prefs.Set{}, 5},
		{"threshold above every weight", profile.Profile{PrimaryLanguage: "rust"}, prefs.Set{}, 100},
		{
			"baseline category excluded",
			profile.Profile{},
			prefs.Merge(prefs.Tier1Answers{ExcludedCategories: &prefs.MultiSelect{Values: []string{"code-quality"}}}, prefs.Tier2Answers{}, nil),
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := selector.Select(cat, tt.profile, tt.set, tt.threshold)
			assert.Contains(t, res.RuleIDs, "base-1")
			assert.NotEmpty(t, res.RuleIDs)
		})
	}
}

func TestSelect_Applicability(t *testing.T) {
	cat := largeCatalog(t)

	goCLI := selector.Select(cat, profile.Profile{PrimaryLanguage: "Go", ProjectTypes: []string{profile.TypeCLI}}, prefs.Set{}, 1)
	assert.Contains(t, goCLI.RuleIDs, "go-only")
	assert.NotContains(t, goCLI.RuleIDs, "web-only")

	pyAPI := selector.Select(cat, profile.Profile{PrimaryLanguage: "python", ProjectTypes: []string{profile.TypeWebAPI}}, prefs.Set{}, 1)
	assert.NotContains(t, pyAPI.RuleIDs, "go-only")
	assert.Contains(t, pyAPI.RuleIDs, "web-only")
}

func TestSelect_OrderingWeightThenCategoryThenID(t *testing.T) {
	cat := catalogtest.New(t, []catalog.Rule{
		catalogtest.Rule("z", catalog.CategorySecurity, 7),
		catalogtest.Rule("y", catalog.CategoryArchitecture, 7),
		catalogtest.Rule("x", catalog.CategoryArchitecture, 7),
		catalogtest.Rule("w", catalog.CategoryTesting, 9),
	}, nil)

	res := selector.Select(cat, profile.Profile{}, prefs.Set{}, 1)

	assert.Equal(t, []string{"w", "x", "y", "z"}, res.RuleIDs)
}

func TestSelect_BonusRaisesButNeverLowers(t *testing.T) {
	cat := scenarioCatalog(t)
	set := prefs.Merge(
		prefs.Tier1Answers{Strictness: prefs.StrictnessStandard},
		prefs.Tier2Answers{
			SecurityPosture:      prefs.Ptr(prefs.SecurityCompliance),
			ComplianceFrameworks: &prefs.MultiSelect{Values: []string{"soc2"}},
		},
		nil,
	)

	res := selector.Select(cat, profile.Profile{}, set, 5)

	// c: 3 + 3 (compliance) + 1 (frameworks) = 7
	assert.Equal(t, []string{"a", "b", "c"}, res.RuleIDs)
	assert.Equal(t, 7, res.EffectiveWeights["c"])
	assert.Equal(t, 10, res.EffectiveWeights["b"])
	assert.Equal(t, 10, res.EffectiveWeights["a"])

	for _, d := range selector.Explain(cat, profile.Profile{}, prefs.Set{}, 5) {
		assert.GreaterOrEqual(t, d.EffectiveWeight, d.Weight)
	}
}

func TestBonus(t *testing.T) {
	tests := []struct {
		name     string
		set      prefs.Set
		category catalog.Category
		want     int
	}{
		{"defaults", prefs.Set{}, catalog.CategorySecurity, 0},
		{"hardened", prefs.Set{Tier2: prefs.Tier2Answers{SecurityPosture: prefs.Ptr(prefs.SecurityHardened)}}, catalog.CategorySecurity, 2},
		{"tdd", prefs.Set{Tier2: prefs.Tier2Answers{TestingApproach: prefs.Ptr(prefs.TestingTDD)}}, catalog.CategoryTesting, 2},
		{"sre", prefs.Set{Tier2: prefs.Tier2Answers{OperationsMaturity: prefs.Ptr(prefs.OpsSRE)}}, catalog.CategoryOperations, 2},
		{"latency", prefs.Set{Tier3: &prefs.Tier3Answers{PerformanceFocus: prefs.Ptr(prefs.PerfLatencyCritical)}}, catalog.CategoryPerformance, 2},
		{"workflow", prefs.Set{Tier3: &prefs.Tier3Answers{GitWorkflow: prefs.Ptr(prefs.GitTrunk)}}, catalog.CategoryGitWorkflow, 1},
		{"api none", prefs.Set{Tier3: &prefs.Tier3Answers{APIStyle: prefs.Ptr(prefs.APINone)}}, catalog.CategoryAPIDesign, 0},
		{"api grpc", prefs.Set{Tier3: &prefs.Tier3Answers{APIStyle: prefs.Ptr(prefs.APIGRPC)}}, catalog.CategoryAPIDesign, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selector.Bonus(prefs.Resolve(tt.set), tt.category))
		})
	}
}

func TestSelect_Artifacts(t *testing.T) {
	// Given: artifacts tied to selected and unselected categories
	cat := catalogtest.New(t,
		[]catalog.Rule{
			catalogtest.Baseline("a", catalog.CategoryCodeQuality, 10),
			catalogtest.Rule("t", catalog.CategoryTesting, 2),
		},
		[]catalog.Artifact{
			catalogtest.Artifact("review", catalog.KindCommand, catalog.CategoryCodeQuality),
			catalogtest.Artifact("tdd-coach", catalog.KindAgent, catalog.CategoryTesting),
			func() catalog.Artifact {
				a := catalogtest.Artifact("commit", catalog.KindSkill)
				a.Always = true
				return a
			}(),
		},
	)

	// When: testing is below threshold
	res := selector.Select(cat, profile.Profile{}, prefs.Set{}, 5)

	// Then: only artifacts backed by a selected category or Always are picked
	assert.Equal(t, []string{"commit", "review"}, res.ArtifactIDs)

	// When: the user chose no artifact kinds
	none := prefs.Set{Tier3: &prefs.Tier3Answers{ArtifactKinds: &prefs.MultiSelect{None: true}}}
	res = selector.Select(cat, profile.Profile{}, none, 5)

	// Then: no artifacts
	assert.Empty(t, res.ArtifactIDs)
}

func TestResult_ByCategory(t *testing.T) {
	cat := largeCatalog(t)

	res := selector.Select(cat, profile.Profile{PrimaryLanguage: "go"}, prefs.Set{}, 8)
	groups := res.ByCategory()

	require.NotEmpty(t, groups)
	total := 0
	for i, g := range groups {
		total += len(g.RuleIDs)
		if i > 0 {
			assert.Less(t, indexOf(groups[i-1].Category), indexOf(g.Category))
		}
	}
	assert.Equal(t, res.Len(), total)
}

func indexOf(c catalog.Category) int {
	for i, v := range catalog.AllCategories {
		if v == c {
			return i
		}
	}
	return -1
}
