package prefs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/rulesmith/internal/catalog"
	"github.com/Aman-CERP/rulesmith/internal/profile"
)

// scriptedAsker answers from a map keyed by question id and records what
// was asked.
type scriptedAsker struct {
	answers  map[string]Answer
	cancelAt string
	asked    []string
}

func (s *scriptedAsker) Ask(_ context.Context, q Question) (Answer, error) {
	s.asked = append(s.asked, q.ID)
	if q.ID == s.cancelAt {
		return Answer{}, ErrCancelled
	}
	return s.answers[q.ID], nil
}

func TestCollect_QuickDerivesFromMaturity(t *testing.T) {
	tests := []struct {
		maturity string
		want     Strictness
	}{
		{"prototype", StrictnessRelaxed},
		{"mvp", StrictnessStandard},
		{"production", StrictnessStrict},
		{"legacy", StrictnessStandard},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.maturity, func(t *testing.T) {
			set, err := Collect(context.Background(), profile.Profile{Maturity: tt.maturity}, ModeQuick, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, set.Tier1.Strictness)
			assert.Equal(t, Tier2Answers{}, set.Tier2)
			assert.Nil(t, set.Tier3)
		})
	}
}

func TestCollect_QuickUsesConfiguredFallback(t *testing.T) {
	c := NewCollector(WithDefaultStrictness(StrictnessStrict))

	set, err := c.Collect(context.Background(), profile.Profile{}, ModeQuick)

	require.NoError(t, err)
	assert.Equal(t, StrictnessStrict, set.Tier1.Strictness)
}

func TestCollect_GatesSkipIrrelevantQuestions(t *testing.T) {
	// Given: a CLI project without tests, CI, or containers
	p := profile.Profile{PrimaryLanguage: "go", ProjectTypes: []string{profile.TypeCLI}}
	asker := &scriptedAsker{answers: map[string]Answer{
		QStrictness: {Value: "standard"},
		QStage:      {Value: "mvp"},
		QCustomize:  {Yes: false},
	}}

	// When: collecting interactively
	set, err := Collect(context.Background(), p, ModeInteractive, asker)

	// Then: only Tier 1 and the customize question were asked
	require.NoError(t, err)
	assert.Equal(t, []string{QStrictness, QStage, QExcludedCategories, QCustomize}, asker.asked)
	assert.Nil(t, set.Tier2.SecurityPosture)
	assert.Nil(t, set.Tier3)
	require.NotNil(t, set.Tier1.ExcludedCategories)
	assert.True(t, set.Tier1.ExcludedCategories.None)
}

func TestCollect_WebProductionAsksAllTier2(t *testing.T) {
	p := profile.Profile{
		PrimaryLanguage:  "go",
		ProjectTypes:     []string{profile.TypeWebAPI},
		HasTests:         true,
		HasCI:            true,
		DeploymentTarget: profile.DeployKubernetes,
	}
	asker := &scriptedAsker{answers: map[string]Answer{
		QStrictness:           {Value: "strict"},
		QStage:                {Value: "production"},
		QSecurityPosture:      {Value: "hardened"},
		QTestingApproach:      {Value: "tdd"},
		QComplianceFrameworks: {Values: MultiSelect{Values: []string{"soc2"}}},
		QOperationsMaturity:   {Value: "sre"},
		QCustomize:            {Yes: true},
		QGitWorkflow:          {Value: "trunk"},
		QAPIStyle:             {Value: "grpc"},
		QPerformanceFocus:     {Value: "latency-critical"},
		QArtifactKinds:        {Values: MultiSelect{Values: []string{"command"}}},
	}}

	set, err := Collect(context.Background(), p, ModeInteractive, asker)

	require.NoError(t, err)
	assert.Equal(t, SecurityHardened, *set.Tier2.SecurityPosture)
	assert.Equal(t, TestingTDD, *set.Tier2.TestingApproach)
	assert.True(t, set.Tier2.ComplianceFrameworks.Contains("soc2"))
	assert.Equal(t, OpsSRE, *set.Tier2.OperationsMaturity)
	require.NotNil(t, set.Tier3)
	assert.Equal(t, GitTrunk, *set.Tier3.GitWorkflow)
	assert.Equal(t, APIGRPC, *set.Tier3.APIStyle)
	assert.Equal(t, PerfLatencyCritical, *set.Tier3.PerformanceFocus)
	assert.True(t, set.Tier3.ArtifactKinds.Contains("command"))
}

func TestCollect_EmptySingleAnswerTakesDefault(t *testing.T) {
	asker := &scriptedAsker{answers: map[string]Answer{}}

	set, err := Collect(context.Background(), profile.Profile{Maturity: "prototype"}, ModeInteractive, asker)

	require.NoError(t, err)
	assert.Equal(t, StrictnessRelaxed, set.Tier1.Strictness)
	assert.Equal(t, StagePrototype, set.Tier1.Stage)
}

func TestCollect_EmptyMultiAnswerTakesDefaults(t *testing.T) {
	tests := []struct {
		name   string
		answer Answer
		want   []catalog.Kind
	}{
		{"enter keeps every kind", Answer{}, catalog.AllKinds},
		{"explicit none", Answer{Values: MultiSelect{None: true}}, nil},
		{"explicit pick", Answer{Values: MultiSelect{Values: []string{"skill"}}}, []catalog.Kind{catalog.KindSkill}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a user who customizes and answers the artifact question
			asker := &scriptedAsker{answers: map[string]Answer{
				QCustomize:     {Yes: true},
				QArtifactKinds: tt.answer,
			}}

			// When: collecting interactively
			set, err := Collect(context.Background(), profile.Profile{}, ModeInteractive, asker)

			// Then: only an explicit "none" disables artifacts
			require.NoError(t, err)
			require.NotNil(t, set.Tier3)
			require.NotNil(t, set.Tier3.ArtifactKinds)
			assert.Equal(t, tt.want, Resolve(set).ArtifactKinds)
			assert.True(t, set.Tier1.ExcludedCategories.None, "categories default to none excluded")
		})
	}
}

func TestCollect_CancelReturnsNoPartialSet(t *testing.T) {
	asker := &scriptedAsker{
		answers:  map[string]Answer{QStrictness: {Value: "strict"}},
		cancelAt: QStage,
	}

	set, err := Collect(context.Background(), profile.Profile{}, ModeInteractive, asker)

	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, Set{}, set)
}

func TestCollect_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, profile.Profile{}, ModeInteractive, &scriptedAsker{})

	assert.ErrorIs(t, err, ErrCancelled)
}

func TestCollect_InvalidAnswerRejected(t *testing.T) {
	asker := &scriptedAsker{answers: map[string]Answer{QStrictness: {Value: "extreme"}}}

	_, err := Collect(context.Background(), profile.Profile{}, ModeInteractive, asker)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCancelled)
}

func TestCollect_InteractiveWithoutAsker(t *testing.T) {
	_, err := Collect(context.Background(), profile.Profile{}, ModeInteractive, nil)
	assert.Error(t, err)
}

func TestGates(t *testing.T) {
	web := profile.Profile{ProjectTypes: []string{profile.TypeWebAPI}}
	lib := profile.Profile{ProjectTypes: []string{profile.TypeLibrary}}
	prod := Tier1Answers{Stage: StageProduction}

	assert.True(t, SecurityGate(Tier1Answers{}, web))
	assert.False(t, SecurityGate(Tier1Answers{}, lib))
	assert.True(t, SecurityGate(Tier1Answers{Strictness: StrictnessParanoid}, lib))

	assert.True(t, TestingGate(prod, lib))
	assert.False(t, TestingGate(Tier1Answers{Stage: StageMVP}, lib))

	assert.True(t, ComplianceGate(prod, web))
	assert.False(t, ComplianceGate(prod, lib))
	assert.True(t, ComplianceGate(prod, profile.Profile{ComplianceTags: []string{"hipaa"}}))

	assert.True(t, OperationsGate(Tier1Answers{}, profile.Profile{HasCI: true}))
	assert.False(t, OperationsGate(Tier1Answers{}, profile.Profile{DeploymentTarget: profile.DeployNone}))
}
