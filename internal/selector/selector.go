// Package selector evaluates catalog rules against a project profile and
// preferences, producing a deterministic selection.
package selector

import (
	"cmp"
	"slices"

	"github.com/Aman-CERP/rulesmith/internal/catalog"
	"github.com/Aman-CERP/rulesmith/internal/prefs"
	"github.com/Aman-CERP/rulesmith/internal/profile"
)

// Thresholds per strictness level.
const (
	ThresholdRelaxed  = 8
	ThresholdStandard = 5
	ThresholdStrict   = 3
	ThresholdParanoid = 1
)

// ThresholdFor maps a strictness level to its weight threshold. Unknown
// values get the standard threshold.
func ThresholdFor(s prefs.Strictness) int {
	switch s {
	case prefs.StrictnessRelaxed:
		return ThresholdRelaxed
	case prefs.StrictnessStrict:
		return ThresholdStrict
	case prefs.StrictnessParanoid:
		return ThresholdParanoid
	default:
		return ThresholdStandard
	}
}

// ThresholdFromPreferences resolves the set and returns its threshold.
func ThresholdFromPreferences(set prefs.Set) int {
	return ThresholdFor(prefs.Resolve(set).Strictness)
}

// Reason explains why a rule was or was not selected.
type Reason string

const (
	ReasonBaseline         Reason = "baseline"
	ReasonSelected         Reason = "selected"
	ReasonNotApplicable    Reason = "not_applicable"
	ReasonCategoryExcluded Reason = "category_excluded"
	ReasonBelowThreshold   Reason = "below_threshold"
)

// Decision records the outcome of evaluating one rule.
type Decision struct {
	RuleID          string           `json:"rule_id"`
	Category        catalog.Category `json:"category"`
	Weight          int              `json:"weight"`
	EffectiveWeight int              `json:"effective_weight"`
	Included        bool             `json:"included"`
	Reason          Reason           `json:"reason"`
}

// CategoryGroup is one category's slice of a selection.
type CategoryGroup struct {
	Category catalog.Category `json:"category"`
	RuleIDs  []string         `json:"rule_ids"`
}

// Result is the output of Select.
type Result struct {
	RuleIDs          []string       `json:"rule_ids"`
	ArtifactIDs      []string       `json:"artifact_ids"`
	Threshold        int            `json:"threshold"`
	Preferences      prefs.Set      `json:"preferences"`
	CatalogVersion   string         `json:"catalog_version"`
	EffectiveWeights map[string]int `json:"effective_weights"`

	categories map[string]catalog.Category
}

// ByCategory groups the selected rule ids by category in canonical
// category order. Order within a group follows RuleIDs.
func (r Result) ByCategory() []CategoryGroup {
	groups := make(map[catalog.Category][]string)
	for _, id := range r.RuleIDs {
		c := r.categories[id]
		groups[c] = append(groups[c], id)
	}

	out := make([]CategoryGroup, 0, len(groups))
	for _, c := range catalog.AllCategories {
		if ids, ok := groups[c]; ok {
			out = append(out, CategoryGroup{Category: c, RuleIDs: ids})
		}
	}
	return out
}

// Len returns the number of selected rules.
func (r Result) Len() int {
	return len(r.RuleIDs)
}

// Select evaluates every rule in cat. The same inputs always produce the
// same Result; baseline rules are always present.
func Select(cat *catalog.Catalog, p profile.Profile, set prefs.Set, threshold int) Result {
	decisions := Explain(cat, p, set, threshold)
	resolved := prefs.Resolve(set)

	res := Result{
		Threshold:        threshold,
		Preferences:      set,
		CatalogVersion:   cat.Version(),
		EffectiveWeights: make(map[string]int),
		categories:       make(map[string]catalog.Category),
	}

	included := make([]Decision, 0, len(decisions))
	for _, d := range decisions {
		if d.Included {
			included = append(included, d)
		}
	}
	slices.SortFunc(included, func(a, b Decision) int {
		if c := cmp.Compare(b.EffectiveWeight, a.EffectiveWeight); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Category, b.Category); c != 0 {
			return c
		}
		return cmp.Compare(a.RuleID, b.RuleID)
	})

	selectedCategories := make(map[catalog.Category]bool)
	for _, d := range included {
		res.RuleIDs = append(res.RuleIDs, d.RuleID)
		res.EffectiveWeights[d.RuleID] = d.EffectiveWeight
		res.categories[d.RuleID] = d.Category
		selectedCategories[d.Category] = true
	}

	res.ArtifactIDs = selectArtifacts(cat, p, resolved, selectedCategories)
	return res
}

// Explain returns one Decision per catalog rule, sorted by rule id.
func Explain(cat *catalog.Catalog, p profile.Profile, set prefs.Set, threshold int) []Decision {
	resolved := prefs.Resolve(set)
	rules := cat.Rules()
	out := make([]Decision, 0, len(rules))

	for _, r := range rules {
		d := Decision{
			RuleID:          r.ID,
			Category:        r.Category,
			Weight:          r.Weight,
			EffectiveWeight: r.Weight + Bonus(resolved, r.Category),
		}

		switch {
		case r.Baseline:
			d.Included, d.Reason = true, ReasonBaseline
		case !r.Applicability.Matches(p.PrimaryLanguage, p.ProjectTypes):
			d.Reason = ReasonNotApplicable
		case resolved.Excludes(r.Category):
			d.Reason = ReasonCategoryExcluded
		case d.EffectiveWeight < threshold:
			d.Reason = ReasonBelowThreshold
		default:
			d.Included, d.Reason = true, ReasonSelected
		}
		out = append(out, d)
	}
	return out
}

// Bonus is the weight added to rules of category c. It is never negative.
func Bonus(r prefs.Resolved, c catalog.Category) int {
	switch c {
	case catalog.CategorySecurity:
		bonus := 0
		switch r.SecurityPosture {
		case prefs.SecurityHardened:
			bonus = 2
		case prefs.SecurityCompliance:
			bonus = 3
		}
		if len(r.ComplianceFrameworks) > 0 {
			bonus++
		}
		return bonus
	case catalog.CategoryTesting:
		if r.TestingApproach == prefs.TestingTDD || r.TestingApproach == prefs.TestingCoverageGated {
			return 2
		}
	case catalog.CategoryOperations:
		switch r.OperationsMaturity {
		case prefs.OpsObservability:
			return 1
		case prefs.OpsSRE:
			return 2
		}
	case catalog.CategoryPerformance:
		if r.PerformanceFocus == prefs.PerfLatencyCritical {
			return 2
		}
	case catalog.CategoryGitWorkflow:
		if r.GitWorkflow != "" {
			return 1
		}
	case catalog.CategoryAPIDesign:
		if r.APIStyle != "" && r.APIStyle != prefs.APINone {
			return 1
		}
	}
	return 0
}

func selectArtifacts(cat *catalog.Catalog, p profile.Profile, r prefs.Resolved, selected map[catalog.Category]bool) []string {
	var ids []string
	for _, a := range cat.Artifacts() {
		if !r.AllowsKind(a.Kind) {
			continue
		}
		if !a.Applicability.Matches(p.PrimaryLanguage, p.ProjectTypes) {
			continue
		}
		if a.Always || slices.ContainsFunc(a.Categories, func(c catalog.Category) bool { return selected[c] }) {
			ids = append(ids, a.ID)
		}
	}
	slices.Sort(ids)
	return ids
}
