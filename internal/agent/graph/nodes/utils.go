package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/jan-sahayak/server/internal/agent/model"
)

// Node keys of the orchestrator graph.
const (
	NodeOrchestrator = "orchestrator"
	NodeConversation = "conversation_agent"
	NodePolicy       = "policy_agent"
	NodeEligibility  = "eligibility_agent"
	NodeBenefits     = "benefit_agent"
	NodeAdvocacy     = "advocacy_agent"
	NodeFinish       = "finish"
)

var routeNodes = map[model.Route]string{
	model.RouteConversation: NodeConversation,
	model.RoutePolicy:       NodePolicy,
	model.RouteEligibility:  NodeEligibility,
	model.RouteBenefits:     NodeBenefits,
	model.RouteAdvocacy:     NodeAdvocacy,
	model.RouteFinish:       NodeFinish,
}

// NodeForRoute maps a decision onto its node. Anything unknown finishes.
func NodeForRoute(r model.Route) string {
	if n, ok := routeNodes[r]; ok {
		return n
	}
	return NodeFinish
}

// BranchTargets lists every node the orchestrator branch may pick.
func BranchTargets() map[string]bool {
	out := make(map[string]bool, len(routeNodes))
	for _, n := range routeNodes {
		out[n] = true
	}
	return out
}

// turnFromState copies what the downstream nodes need out of local state.
func turnFromState(ctx context.Context) (model.Request, *model.Session, error) {
	var (
		req  model.Request
		sess *model.Session
	)
	err := compose.ProcessState(ctx, func(_ context.Context, state *model.AppState) error {
		if state.Session == nil {
			return fmt.Errorf("missing session in state")
		}
		req, sess = state.Request, state.Session
		return nil
	})
	if err != nil {
		return req, nil, fmt.Errorf("failed to access state: %w", err)
	}
	return req, sess, nil
}

// priorMessages drops the trailing current user message from history.
func priorMessages(sess *model.Session) []*schema.Message {
	msgs := sess.Messages
	if n := len(msgs); n > 0 && msgs[n-1] != nil && msgs[n-1].Role == schema.User {
		return msgs[:n-1]
	}
	return msgs
}
