package prefs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/rulesmith/internal/catalog"
)

func TestResolve_EmptySetAppliesDefaults(t *testing.T) {
	// Given: nothing was asked
	var set Set

	// When: resolving
	r := Resolve(set)

	// Then: every field carries its documented default
	assert.Equal(t, StrictnessStandard, r.Strictness)
	assert.Equal(t, Stage(""), r.Stage)
	assert.Empty(t, r.ExcludedCategories)
	assert.Equal(t, SecurityBaseline, r.SecurityPosture)
	assert.Equal(t, TestingPragmatic, r.TestingApproach)
	assert.Equal(t, OpsBasic, r.OperationsMaturity)
	assert.Equal(t, GitWorkflow(""), r.GitWorkflow)
	assert.Equal(t, APINone, r.APIStyle)
	assert.Equal(t, PerfStandard, r.PerformanceFocus)
	assert.Equal(t, catalog.AllKinds, r.ArtifactKinds)
}

func TestResolve_ArtifactKindsNoneMeansNoArtifacts(t *testing.T) {
	tests := []struct {
		name  string
		kinds *MultiSelect
		want  []catalog.Kind
	}{
		{"not asked", nil, catalog.AllKinds},
		{"explicit none", &MultiSelect{None: true}, nil},
		{"subset", &MultiSelect{Values: []string{"skill"}}, []catalog.Kind{catalog.KindSkill}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := Merge(Tier1Answers{}, Tier2Answers{}, &Tier3Answers{ArtifactKinds: tt.kinds})
			assert.Equal(t, tt.want, Resolve(set).ArtifactKinds)
		})
	}
}

func TestResolve_ExplicitAnswersWin(t *testing.T) {
	set := Merge(
		Tier1Answers{
			Strictness:         StrictnessParanoid,
			Stage:              StageProduction,
			ExcludedCategories: &MultiSelect{Values: []string{"architecture"}},
		},
		Tier2Answers{
			SecurityPosture:      Ptr(SecurityCompliance),
			ComplianceFrameworks: &MultiSelect{Values: []string{"soc2"}},
		},
		&Tier3Answers{GitWorkflow: Ptr(GitTrunk)},
	)

	r := Resolve(set)

	assert.Equal(t, StrictnessParanoid, r.Strictness)
	assert.Equal(t, StageProduction, r.Stage)
	assert.True(t, r.Excludes(catalog.CategoryArchitecture))
	assert.False(t, r.Excludes(catalog.CategorySecurity))
	assert.Equal(t, SecurityCompliance, r.SecurityPosture)
	assert.Equal(t, []string{"soc2"}, r.ComplianceFrameworks)
	assert.Equal(t, GitTrunk, r.GitWorkflow)
	assert.True(t, r.AllowsKind(catalog.KindCommand))
}

func TestMultiSelect_NilAndNoneAreDistinctButEmpty(t *testing.T) {
	var unasked *MultiSelect
	none := &MultiSelect{None: true}

	assert.Nil(t, unasked.Selected())
	assert.Nil(t, none.Selected())
	assert.False(t, unasked.Contains("x"))

	// The distinction survives persistence.
	data, err := json.Marshal(Set{Tier1: Tier1Answers{ExcludedCategories: none}})
	require.NoError(t, err)

	var back Set
	require.NoError(t, json.Unmarshal(data, &back))
	require.NotNil(t, back.Tier1.ExcludedCategories)
	assert.True(t, back.Tier1.ExcludedCategories.None)
	assert.Nil(t, back.Tier2.ComplianceFrameworks)
	assert.Nil(t, back.Tier3)
}
