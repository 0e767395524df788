package model

import (
	"fmt"
	"strings"
)

// Route is the dispatch target chosen by the orchestrator.
type Route string

const (
	RouteConversation Route = "CONVERSATION_DISCOVERY"
	RoutePolicy       Route = "POLICY_INTERPRETER"
	RouteEligibility  Route = "ELIGIBILITY_VERIFIER"
	RouteBenefits     Route = "BENEFIT_MATCHER"
	RouteAdvocacy     Route = "CITIZEN_ADVOCATE"
	// RouteFinish is the terminal marker: no further processing this turn.
	RouteFinish Route = "__end__"
)

// SpecialistRoutes lists every non-terminal route in classification order.
var SpecialistRoutes = []Route{
	RouteConversation,
	RoutePolicy,
	RouteEligibility,
	RouteBenefits,
	RouteAdvocacy,
}

func (r Route) String() string {
	return string(r)
}

// Valid reports whether r is in the closed route set, finish included.
func (r Route) Valid() bool {
	if r == RouteFinish {
		return true
	}
	for _, s := range SpecialistRoutes {
		if r == s {
			return true
		}
	}
	return false
}

func (r Route) IsFinish() bool {
	return r == RouteFinish
}

// ParseRoute normalizes s into a Route. Case and surrounding whitespace are
// ignored; FINISH and END are accepted as aliases of the terminal marker.
func ParseRoute(s string) (Route, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "FINISH", "END", "__END__":
		return RouteFinish, nil
	}
	r := Route(v)
	if !r.Valid() {
		return "", fmt.Errorf("unknown route %q", s)
	}
	return r, nil
}

// RouteDecision is the orchestrator output for one turn.
type RouteDecision struct {
	Next   Route  `json:"next_agent" jsonschema:"enum=CONVERSATION_DISCOVERY,enum=POLICY_INTERPRETER,enum=ELIGIBILITY_VERIFIER,enum=BENEFIT_MATCHER,enum=CITIZEN_ADVOCATE,enum=FINISH"`
	Reason string `json:"reason,omitempty"`
}

// Validate rejects decisions outside the closed route set and normalizes Next.
func (d *RouteDecision) Validate() error {
	r, err := ParseRoute(string(d.Next))
	if err != nil {
		return err
	}
	d.Next = r
	d.Reason = strings.TrimSpace(d.Reason)
	return nil
}

// Finish builds a terminal decision with the given reason.
func Finish(reason string) RouteDecision {
	return RouteDecision{Next: RouteFinish, Reason: reason}
}
