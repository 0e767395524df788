package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligibilityStatusTiers(t *testing.T) {
	cases := map[string]EligibilityStatus{
		"ELIGIBLE":             StatusEligible,
		"possibly eligible":    StatusPossiblyEligible,
		"conditional":          StatusPossiblyEligible,
		"pending-verification": StatusPossiblyEligible,
		"NOT_ELIGIBLE":         StatusNotEligible,
		"ineligible":           StatusNotEligible,
	}
	for in, want := range cases {
		got, err := ParseEligibilityStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseEligibilityStatus("probably")
	assert.Error(t, err)
}

func TestEligibilityAlternativesNeverNull(t *testing.T) {
	var a EligibilityAnalysis
	require.NoError(t, json.Unmarshal([]byte(`{"status":"not_eligible","justification":"Income too high"}`), &a))
	require.NoError(t, a.Validate())

	assert.Equal(t, StatusNotEligible, a.Status)
	require.NotNil(t, a.Alternatives)
	assert.Empty(t, a.Alternatives)

	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"alternatives":[]`)
}

func TestEligibilityGround(t *testing.T) {
	profile := &CitizenProfile{Age: FlexOf(70), Income: FlexOf(50000)}

	a := EligibilityAnalysis{Justification: "You meet the age requirement."}
	a.Ground(profile)
	assert.Contains(t, a.Justification, "age: 70")
	assert.Contains(t, a.Justification, "income: 50000")

	quoted := EligibilityAnalysis{Justification: "At 70 you qualify."}
	quoted.Ground(profile)
	assert.Equal(t, "At 70 you qualify.", quoted.Justification)

	empty := EligibilityAnalysis{}
	empty.Ground(nil)
	assert.NotEmpty(t, empty.Justification)
}

func TestBenefitsValidate(t *testing.T) {
	a := BenefitsAnalysis{
		Benefits: []Benefit{
			{Name: "Old Age Pension", Source: "Central", Tier: "HIGH_PRIORITY"},
			{Name: "Ration card", Source: "state", Tier: "medium"},
			{Name: "Skill course", Source: "panchayat", Tier: "later"},
		},
		TierOrder: []BenefitTier{"secondary"},
		Strategy:  "Apply for the pension first.",
	}
	require.NoError(t, a.Validate())

	assert.Equal(t, TierHigh, a.Benefits[0].Tier)
	assert.Equal(t, SourceLocal, a.Benefits[2].Source)
	assert.Equal(t, []BenefitTier{TierSecondary, TierHigh, TierFuture}, a.TierOrder)
	assert.ElementsMatch(t, []SchemeSource{SourceCentral, SourceState, SourceLocal}, a.SourcesConsulted)
	assert.Len(t, a.ByTier(TierHigh), 1)
	assert.NotNil(t, a.Benefits[1].Documents)
}

func TestBenefitsValidateRejects(t *testing.T) {
	bad := BenefitsAnalysis{Benefits: []Benefit{{Name: "x", Source: "central", Tier: "urgent"}}, Strategy: "s"}
	assert.Error(t, bad.Validate())

	noStrategy := BenefitsAnalysis{}
	assert.Error(t, noStrategy.Validate())
}

func TestAdvocacyAppealAlwaysPresent(t *testing.T) {
	a := AdvocacyAnalysis{
		ApplicationPath: ApplicationPath{Mode: "online", PortalOrOffice: "pmkisan.gov.in"},
		SubmissionSteps: []string{"Register", "Upload documents"},
	}
	require.NoError(t, a.Validate())

	assert.Equal(t, SituationGeneral, a.Situation)
	assert.NotNil(t, a.Appeal.Steps)
	assert.NotNil(t, a.Appeal.Escalation)
	assert.NotNil(t, a.Documents.HighRisk)
	assert.NotNil(t, a.Tracking.StatusMeanings)

	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"appeal_support":{"eligible":false,"reason":"","steps":[],"escalation_options":[]}`)
}

func TestAdvocacyValidateRequiresPlan(t *testing.T) {
	assert.Error(t, (&AdvocacyAnalysis{SubmissionSteps: []string{"a"}}).Validate())
	assert.Error(t, (&AdvocacyAnalysis{ApplicationPath: ApplicationPath{Mode: "offline"}}).Validate())
}

func TestAdvocacyRequestFallsBackToGeneralScheme(t *testing.T) {
	r := AdvocacyRequest{Scheme: " ", Situation: "my application was rejected"}
	require.NoError(t, r.Validate())
	assert.Equal(t, GeneralApplicationScheme, r.Scheme)
	assert.Equal(t, SituationRejection, r.Situation)
}

func TestPolicyAnalysisValidate(t *testing.T) {
	a := PolicyAnalysis{Summary: "Zoning rules", Citations: []Citation{{Source: ""}, {Source: "zoning.md"}}, Confidence: 3}
	require.NoError(t, a.Validate())
	assert.Len(t, a.Citations, 1)
	assert.Equal(t, Confidence(1), a.Confidence)
	assert.NotNil(t, a.Risks)

	assert.Error(t, (&PolicyAnalysis{}).Validate())
}

func TestConfidenceAcceptsWordsAndPercentages(t *testing.T) {
	cases := map[string]Confidence{
		`0.75`:    0.75,
		`"high"`:  0.9,
		`" Low "`: 0.3,
		`"80%"`:   0.8,
		`"0.4"`:   0.4,
		`"maybe"`: 0,
	}
	for in, want := range cases {
		var c Confidence
		require.NoError(t, json.Unmarshal([]byte(in), &c), in)
		assert.InDelta(t, float64(want), float64(c), 1e-9, in)
	}

	var a EligibilityAnalysis
	require.NoError(t, json.Unmarshal([]byte(`{"status":"eligible","justification":"You are 70.","confidence":"medium"}`), &a))
	assert.Equal(t, Confidence(0.6), a.Confidence)

	var c Confidence
	assert.Error(t, json.Unmarshal([]byte(`{}`), &c))
}

func TestParsePolicyAspect(t *testing.T) {
	assert.Equal(t, AspectEligibility, ParsePolicyAspect("eligibility_check"))
	assert.Equal(t, AspectBenefits, ParsePolicyAspect("benefit analysis"))
	assert.Equal(t, AspectRisk, ParsePolicyAspect("RISK"))
	assert.Equal(t, AspectExplanation, ParsePolicyAspect(""))
}
