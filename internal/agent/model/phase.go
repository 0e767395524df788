package model

import "fmt"

// Phase is a state of the conversation session machine.
type Phase string

const (
	PhaseEntry          Phase = "entry"
	PhaseDiscovery      Phase = "discovery"
	PhaseProfiling      Phase = "profiling"
	PhaseRecommendation Phase = "recommendation"
	PhaseApplication    Phase = "application"
	PhaseTracking       Phase = "tracking"
	PhaseComplete       Phase = "complete"
)

var phaseTransitions = map[Phase][]Phase{
	PhaseEntry:          {PhaseDiscovery},
	PhaseDiscovery:      {PhaseProfiling},
	PhaseProfiling:      {PhaseRecommendation},
	PhaseRecommendation: {PhaseApplication, PhaseComplete},
	PhaseApplication:    {PhaseTracking, PhaseComplete},
	PhaseTracking:       {PhaseComplete},
	PhaseComplete:       {},
}

func (p Phase) Valid() bool {
	_, ok := phaseTransitions[p]
	return ok
}

// Next lists the phases reachable from p in one declared transition.
func (p Phase) Next() []Phase {
	return append([]Phase(nil), phaseTransitions[p]...)
}

func (p Phase) CanTransitionTo(next Phase) bool {
	for _, n := range phaseTransitions[p] {
		if n == next {
			return true
		}
	}
	return false
}

func (p Phase) Terminal() bool {
	return p.Valid() && len(phaseTransitions[p]) == 0
}

// DiscoveryProfile is the coarse citizen profile built across conversation turns.
type DiscoveryProfile struct {
	AgeRange          string   `json:"age_range,omitempty"`
	EmploymentStatus  string   `json:"employment_status,omitempty"`
	IncomeBracket     string   `json:"income_bracket,omitempty"`
	FamilyComposition string   `json:"family_composition,omitempty"`
	Location          string   `json:"location,omitempty"`
	SpecialConditions []string `json:"special_conditions,omitempty"`
}

const discoveryBuckets = 6

// Completeness is the share of filled buckets in [0,1].
func (d DiscoveryProfile) Completeness() float64 {
	n := 0
	for _, v := range []string{d.AgeRange, d.EmploymentStatus, d.IncomeBracket, d.FamilyComposition, d.Location} {
		if v != "" {
			n++
		}
	}
	if len(d.SpecialConditions) > 0 {
		n++
	}
	return float64(n) / discoveryBuckets
}

// Absorb fills empty buckets from a caller profile. Filled buckets are kept.
func (d *DiscoveryProfile) Absorb(u *UserProfile) {
	if u == nil {
		return
	}
	if d.AgeRange == "" && u.Age != nil {
		d.AgeRange = AgeRange(*u.Age)
	}
	if d.EmploymentStatus == "" && u.EmploymentStatus != nil {
		d.EmploymentStatus = *u.EmploymentStatus
	}
	if d.IncomeBracket == "" && u.Income != nil {
		d.IncomeBracket = IncomeBracket(*u.Income)
	}
	if d.FamilyComposition == "" && u.FamilySize != nil {
		d.FamilyComposition = fmt.Sprintf("%d members", *u.FamilySize)
	}
	if d.Location == "" && u.Location != nil {
		d.Location = *u.Location
	}
}

func AgeRange(age int) string {
	switch {
	case age < 18:
		return "under 18"
	case age < 30:
		return "18-29"
	case age < 45:
		return "30-44"
	case age < 60:
		return "45-59"
	default:
		return "60+"
	}
}

func IncomeBracket(income float64) string {
	switch {
	case income < 100_000:
		return "below 1 lakh"
	case income < 250_000:
		return "1-2.5 lakh"
	case income < 500_000:
		return "2.5-5 lakh"
	case income < 1_000_000:
		return "5-10 lakh"
	default:
		return "above 10 lakh"
	}
}

// ConversationState is the phase machine's persisted state for one thread.
type ConversationState struct {
	Phase               Phase            `json:"phase"`
	Profile             DiscoveryProfile `json:"profile"`
	ProfileCompleteness float64          `json:"profile_completeness"`
	TrustLevel          float64          `json:"session_trust_level"`
	Turns               int              `json:"turns"`
}

func NewConversationState() *ConversationState {
	return &ConversationState{Phase: PhaseEntry}
}

func (c *ConversationState) Clone() *ConversationState {
	if c == nil {
		return nil
	}
	out := *c
	out.Profile.SpecialConditions = append([]string(nil), c.Profile.SpecialConditions...)
	return &out
}

// RaiseTrust sets the trust level to v unless it is already higher.
func (c *ConversationState) RaiseTrust(v float64) {
	if v = clamp01(v); v > c.TrustLevel {
		c.TrustLevel = v
	}
}

// RefreshCompleteness recomputes completeness without ever lowering it.
func (c *ConversationState) RefreshCompleteness() {
	if v := c.Profile.Completeness(); v > c.ProfileCompleteness {
		c.ProfileCompleteness = v
	}
}

// Advance moves to next when the transition table allows it.
func (c *ConversationState) Advance(next Phase) error {
	if !c.Phase.CanTransitionTo(next) {
		return fmt.Errorf("phase %s cannot move to %s", c.Phase, next)
	}
	c.Phase = next
	return nil
}
