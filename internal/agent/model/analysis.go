package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Confidence is a score in [0, 1]. Models sometimes answer with a word, so
// high, medium and low are accepted as 0.9, 0.6 and 0.3.
type Confidence float64

var confidenceWords = map[string]Confidence{
	"high":   0.9,
	"medium": 0.6,
	"low":    0.3,
}

func (c *Confidence) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*c = Confidence(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("confidence: %w", err)
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if v, ok := confidenceWords[s]; ok {
		*c = v
		return nil
	}
	if v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64); err == nil {
		if strings.HasSuffix(s, "%") {
			v /= 100
		}
		*c = Confidence(v)
		return nil
	}
	// an unreadable score must not sink the whole analysis
	*c = 0
	return nil
}

func (c Confidence) clamp() Confidence {
	return Confidence(clamp01(float64(c)))
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// ===== Policy =====

// PolicyAspect is the facet of a policy the citizen asked about.
type PolicyAspect string

const (
	AspectExplanation PolicyAspect = "explanation"
	AspectEligibility PolicyAspect = "eligibility"
	AspectBenefits    PolicyAspect = "benefits"
	AspectObligations PolicyAspect = "obligations"
	AspectRisk        PolicyAspect = "risk"
)

func ParsePolicyAspect(s string) PolicyAspect {
	switch v := normalizeToken(s); {
	case strings.Contains(v, "eligib"):
		return AspectEligibility
	case strings.Contains(v, "benefit"):
		return AspectBenefits
	case strings.Contains(v, "obligation"), strings.Contains(v, "duty"):
		return AspectObligations
	case strings.Contains(v, "risk"):
		return AspectRisk
	default:
		return AspectExplanation
	}
}

// PolicyQuery is the extraction result of the policy pipeline.
type PolicyQuery struct {
	PolicyName string       `json:"policy_name" jsonschema:"description=Name of the policy or scheme asked about, empty if none"`
	Aspect     PolicyAspect `json:"aspect" jsonschema:"enum=explanation,enum=eligibility,enum=benefits,enum=obligations,enum=risk"`
}

func (q *PolicyQuery) Validate() error {
	q.PolicyName = strings.TrimSpace(q.PolicyName)
	q.Aspect = ParsePolicyAspect(string(q.Aspect))
	return nil
}

type Citation struct {
	Source  string `json:"source"`
	Excerpt string `json:"excerpt,omitempty"`
}

// PolicyAnalysis is the structured reading of a policy document.
type PolicyAnalysis struct {
	PolicyName       string     `json:"policy_name"`
	Summary          string     `json:"summary"`
	EligibilityRules []string   `json:"eligibility_rules"`
	Benefits         []string   `json:"benefits"`
	Obligations      []string   `json:"obligations"`
	Risks            []string   `json:"risks"`
	Citations        []Citation `json:"citations" jsonschema:"description=Document sources the analysis relied on; empty if none were found"`
	Confidence       Confidence `json:"confidence" jsonschema:"minimum=0,maximum=1"`
}

func (a *PolicyAnalysis) Validate() error {
	if strings.TrimSpace(a.Summary) == "" {
		return errors.New("policy analysis: empty summary")
	}
	a.EligibilityRules = nonNil(a.EligibilityRules)
	a.Benefits = nonNil(a.Benefits)
	a.Obligations = nonNil(a.Obligations)
	a.Risks = nonNil(a.Risks)
	cites := make([]Citation, 0, len(a.Citations))
	for _, c := range a.Citations {
		if strings.TrimSpace(c.Source) != "" {
			cites = append(cites, c)
		}
	}
	a.Citations = cites
	a.Confidence = a.Confidence.clamp()
	return nil
}

// ===== Eligibility =====

type EligibilityStatus string

const (
	StatusEligible         EligibilityStatus = "eligible"
	StatusPossiblyEligible EligibilityStatus = "possibly_eligible"
	StatusNotEligible      EligibilityStatus = "not_eligible"
)

// ParseEligibilityStatus maps model output onto the three tiers.
func ParseEligibilityStatus(s string) (EligibilityStatus, error) {
	switch normalizeToken(s) {
	case "eligible", "fully_eligible":
		return StatusEligible, nil
	case "possibly_eligible", "conditional", "conditionally_eligible", "pending", "pending_verification", "maybe":
		return StatusPossiblyEligible, nil
	case "not_eligible", "ineligible", "rejected":
		return StatusNotEligible, nil
	}
	return "", fmt.Errorf("unknown eligibility status %q", s)
}

// EligibilityRequest is the extraction result of the eligibility pipeline.
type EligibilityRequest struct {
	Profile CitizenProfile `json:"profile"`
	Scheme  string         `json:"scheme,omitempty" jsonschema:"description=Scheme the citizen wants checked, empty if none"`
}

func (r *EligibilityRequest) Validate() error {
	r.Scheme = strings.TrimSpace(r.Scheme)
	if r.Scheme != "" && ValidateSchemeName(r.Scheme) != nil {
		r.Scheme = ""
	}
	return nil
}

// EligibilityAnalysis is the three-tier eligibility verdict.
type EligibilityAnalysis struct {
	Scheme            string            `json:"scheme"`
	Status            EligibilityStatus `json:"status" jsonschema:"enum=eligible,enum=possibly_eligible,enum=not_eligible"`
	Headline          string            `json:"headline"`
	Justification     string            `json:"justification" jsonschema:"description=Plain-language reason quoting the citizen's own values"`
	MatchedCriteria   []string          `json:"matched_criteria"`
	MissingCriteria   []string          `json:"missing_for_eligible"`
	Alternatives      []string          `json:"alternatives"`
	RequiredDocuments []string          `json:"required_documents"`
	NextSteps         []string          `json:"next_steps"`
	Confidence        Confidence        `json:"confidence" jsonschema:"minimum=0,maximum=1"`
}

func (a *EligibilityAnalysis) Validate() error {
	status, err := ParseEligibilityStatus(string(a.Status))
	if err != nil {
		return fmt.Errorf("eligibility analysis: %w", err)
	}
	a.Status = status
	a.MatchedCriteria = nonNil(a.MatchedCriteria)
	a.MissingCriteria = nonNil(a.MissingCriteria)
	a.Alternatives = nonNil(a.Alternatives)
	a.RequiredDocuments = nonNil(a.RequiredDocuments)
	a.NextSteps = nonNil(a.NextSteps)
	a.Confidence = a.Confidence.clamp()
	return nil
}

// Ground makes sure the justification quotes the citizen's submitted values.
// When the model's text mentions none of them, the known facts are appended.
func (a *EligibilityAnalysis) Ground(p *CitizenProfile) {
	facts := p.Facts()
	just := strings.TrimSpace(a.Justification)
	if len(facts) == 0 {
		if just == "" {
			a.Justification = "No personal details were provided, so this assessment is based on the scheme rules alone."
		}
		return
	}
	for _, f := range facts {
		_, value, _ := strings.Cut(f, ": ")
		if value != "" && strings.Contains(strings.ToLower(just), strings.ToLower(value)) {
			return
		}
	}
	grounding := "Based on the details you shared (" + strings.Join(facts, ", ") + ")."
	if just == "" {
		a.Justification = grounding
		return
	}
	a.Justification = just + " " + grounding
}

// ===== Benefits =====

type BenefitTier string

const (
	TierHigh      BenefitTier = "high"
	TierSecondary BenefitTier = "secondary"
	TierFuture    BenefitTier = "future"
)

// DefaultTierOrder is used when the model gives no explicit order.
var DefaultTierOrder = []BenefitTier{TierHigh, TierSecondary, TierFuture}

func ParseBenefitTier(s string) (BenefitTier, error) {
	switch normalizeToken(s) {
	case "high", "high_priority", "immediate", "primary":
		return TierHigh, nil
	case "secondary", "medium", "medium_priority":
		return TierSecondary, nil
	case "future", "low", "later", "long_term":
		return TierFuture, nil
	}
	return "", fmt.Errorf("unknown benefit tier %q", s)
}

type SchemeSource string

const (
	SourceCentral SchemeSource = "central"
	SourceState   SchemeSource = "state"
	SourceLocal   SchemeSource = "local"
	SourceNGO     SchemeSource = "ngo"
)

// AllSchemeSources lists the sources every benefits analysis aggregates.
var AllSchemeSources = []SchemeSource{SourceCentral, SourceState, SourceLocal, SourceNGO}

func ParseSchemeSource(s string) (SchemeSource, error) {
	switch normalizeToken(s) {
	case "central", "national", "union", "centre", "center":
		return SourceCentral, nil
	case "state":
		return SourceState, nil
	case "local", "district", "municipal", "panchayat":
		return SourceLocal, nil
	case "ngo", "charity", "non_profit", "nonprofit":
		return SourceNGO, nil
	}
	return "", fmt.Errorf("unknown scheme source %q", s)
}

type Benefit struct {
	Name        string       `json:"name"`
	Source      SchemeSource `json:"source" jsonschema:"enum=central,enum=state,enum=local,enum=ngo"`
	Tier        BenefitTier  `json:"tier" jsonschema:"enum=high,enum=secondary,enum=future"`
	Description string       `json:"description"`
	Value       string       `json:"value,omitempty"`
	Reason      string       `json:"reason" jsonschema:"description=Why this benefit fits the citizen"`
	Documents   []string     `json:"documents"`
}

// BenefitsAnalysis groups discovered benefits into priority tiers.
type BenefitsAnalysis struct {
	Benefits         []Benefit      `json:"benefits"`
	SourcesConsulted []SchemeSource `json:"sources_consulted"`
	TierOrder        []BenefitTier  `json:"recommended_order"`
	Strategy         string         `json:"strategy" jsonschema:"description=Closing recommendation on which tier to pursue first"`
	Conflicts        []string       `json:"conflicts"`
	Confidence       Confidence     `json:"confidence" jsonschema:"minimum=0,maximum=1"`
}

func (a *BenefitsAnalysis) Validate() error {
	for i := range a.Benefits {
		b := &a.Benefits[i]
		tier, err := ParseBenefitTier(string(b.Tier))
		if err != nil {
			return fmt.Errorf("benefit %q: %w", b.Name, err)
		}
		src, err := ParseSchemeSource(string(b.Source))
		if err != nil {
			return fmt.Errorf("benefit %q: %w", b.Name, err)
		}
		b.Tier, b.Source = tier, src
		b.Documents = nonNil(b.Documents)
	}
	if a.Benefits == nil {
		a.Benefits = []Benefit{}
	}
	if strings.TrimSpace(a.Strategy) == "" {
		return errors.New("benefits analysis: missing strategy")
	}

	seen := map[SchemeSource]bool{}
	sources := make([]SchemeSource, 0, len(AllSchemeSources))
	for _, s := range a.SourcesConsulted {
		if src, err := ParseSchemeSource(string(s)); err == nil && !seen[src] {
			seen[src] = true
			sources = append(sources, src)
		}
	}
	for _, b := range a.Benefits {
		if !seen[b.Source] {
			seen[b.Source] = true
			sources = append(sources, b.Source)
		}
	}
	a.SourcesConsulted = sources

	order := make([]BenefitTier, 0, len(DefaultTierOrder))
	used := map[BenefitTier]bool{}
	for _, t := range a.TierOrder {
		if tier, err := ParseBenefitTier(string(t)); err == nil && !used[tier] {
			used[tier] = true
			order = append(order, tier)
		}
	}
	for _, t := range DefaultTierOrder {
		if !used[t] {
			order = append(order, t)
		}
	}
	a.TierOrder = order
	a.Conflicts = nonNil(a.Conflicts)
	a.Confidence = a.Confidence.clamp()
	return nil
}

// ByTier returns the benefits in tier t, in the order the model listed them.
func (a *BenefitsAnalysis) ByTier(t BenefitTier) []Benefit {
	var out []Benefit
	for _, b := range a.Benefits {
		if b.Tier == t {
			out = append(out, b)
		}
	}
	return out
}

// ===== Advocacy =====

type Situation string

const (
	SituationNewApplication Situation = "new_application"
	SituationRejection      Situation = "rejection"
	SituationStatusCheck    Situation = "status_check"
	SituationGeneral        Situation = "general"
)

func ParseSituation(s string) Situation {
	switch v := normalizeToken(s); {
	case strings.Contains(v, "reject"), strings.Contains(v, "appeal"), strings.Contains(v, "denied"):
		return SituationRejection
	case strings.Contains(v, "status"), strings.Contains(v, "track"):
		return SituationStatusCheck
	case strings.Contains(v, "new"), strings.Contains(v, "apply"), strings.Contains(v, "application"):
		return SituationNewApplication
	default:
		return SituationGeneral
	}
}

// AdvocacyRequest is the extraction result of the advocacy pipeline.
type AdvocacyRequest struct {
	Scheme    string    `json:"scheme" jsonschema:"description=Scheme the citizen is applying to or appealing, empty if unclear"`
	Situation Situation `json:"situation" jsonschema:"enum=new_application,enum=rejection,enum=status_check,enum=general"`

	// RejectionReason is the reason the citizen was given, if any.
	RejectionReason string         `json:"rejection_reason,omitempty"`
	Profile         CitizenProfile `json:"profile"`
}

func (r *AdvocacyRequest) Validate() error {
	r.Scheme = strings.TrimSpace(r.Scheme)
	if ValidateSchemeName(r.Scheme) != nil {
		r.Scheme = GeneralApplicationScheme
	}
	r.Situation = ParseSituation(string(r.Situation))
	r.RejectionReason = strings.TrimSpace(r.RejectionReason)
	return nil
}

type ApplicationPath struct {
	Mode           string `json:"mode" jsonschema:"description=online, offline or assisted"`
	PortalOrOffice string `json:"portal_or_office"`
	Deadline       string `json:"deadline,omitempty"`
}

type DocumentStatus struct {
	Ready    []string `json:"ready"`
	Missing  []string `json:"missing"`
	HighRisk []string `json:"high_risk" jsonschema:"description=Documents likely to cause rejection"`
}

type TrackingGuidance struct {
	ExpectedTimelines []string          `json:"expected_timelines"`
	StatusMeanings    map[string]string `json:"status_meanings"`
}

type EscalationOption struct {
	Level     string `json:"level"`
	Authority string `json:"authority"`
	Contact   string `json:"contact,omitempty"`
}

type AppealGuidance struct {
	Eligible   bool               `json:"eligible"`
	Reason     string             `json:"reason"`
	Steps      []string           `json:"steps"`
	Escalation []EscalationOption `json:"escalation_options"`
}

// AdvocacyAnalysis is the application plan for one scheme.
type AdvocacyAnalysis struct {
	Scheme          string           `json:"scheme"`
	Situation       Situation        `json:"situation"`
	ApplicationPath ApplicationPath  `json:"application_path"`
	Documents       DocumentStatus   `json:"document_status"`
	SubmissionSteps []string         `json:"submission_steps"`
	CommonMistakes  []string         `json:"common_mistakes"`
	Tracking        TrackingGuidance `json:"post_submission"`
	Appeal          AppealGuidance   `json:"appeal_support"`
	Confidence      Confidence       `json:"confidence" jsonschema:"minimum=0,maximum=1"`
}

func (a *AdvocacyAnalysis) Validate() error {
	if strings.TrimSpace(a.ApplicationPath.Mode) == "" && strings.TrimSpace(a.ApplicationPath.PortalOrOffice) == "" {
		return errors.New("advocacy analysis: missing application path")
	}
	if len(a.SubmissionSteps) == 0 {
		return errors.New("advocacy analysis: missing submission steps")
	}
	a.Situation = ParseSituation(string(a.Situation))
	a.Documents.Ready = nonNil(a.Documents.Ready)
	a.Documents.Missing = nonNil(a.Documents.Missing)
	a.Documents.HighRisk = nonNil(a.Documents.HighRisk)
	a.CommonMistakes = nonNil(a.CommonMistakes)
	a.Tracking.ExpectedTimelines = nonNil(a.Tracking.ExpectedTimelines)
	if a.Tracking.StatusMeanings == nil {
		a.Tracking.StatusMeanings = map[string]string{}
	}
	a.Appeal.Steps = nonNil(a.Appeal.Steps)
	if a.Appeal.Escalation == nil {
		a.Appeal.Escalation = []EscalationOption{}
	}
	a.Confidence = a.Confidence.clamp()
	return nil
}
