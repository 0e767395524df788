package nodes

import (
	"context"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/jan-sahayak/server/internal/agent/graph/conversations"
	"github.com/jan-sahayak/server/internal/agent/graph/observers"
	"github.com/jan-sahayak/server/internal/agent/graph/pipelines"
	"github.com/jan-sahayak/server/internal/agent/graph/prompts"
	"github.com/jan-sahayak/server/internal/agent/llm"
	"github.com/jan-sahayak/server/internal/agent/model"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

// NewOrchestratorPreHandler records the turn input in graph state.
func NewOrchestratorPreHandler() func(context.Context, model.TurnInput, *model.AppState) (model.TurnInput, error) {
	return func(ctx context.Context, in model.TurnInput, s *model.AppState) (model.TurnInput, error) {
		s.Request = in.Request
		s.Session = in.Session
		if in.Session != nil {
			s.ThreadID = in.Session.ThreadID
		}
		return in, nil
	}
}

// NewOrchestratorNode produces the turn's route decision. A pre-assigned
// route is used verbatim; otherwise one classification call decides, and any
// failure finishes the turn.
func NewOrchestratorNode(router llm.Gateway, maxTurns int) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.RouteDecision, error) {
		if in.Request.Route != "" {
			logx.Debug().Str("route", string(in.Request.Route)).Msg("Using pre-assigned route")
			return model.RouteDecision{Next: in.Request.Route, Reason: "pre-assigned route"}, nil
		}

		system, err := prompts.Render(ctx, prompts.Router, prompts.Vars{"Language": in.Request.Language})
		if err != nil {
			logx.Error().Err(err).Msg("render router prompt")
			return model.Finish("routing unavailable"), nil
		}

		var prior []*schema.Message
		if in.Session != nil {
			prior = priorMessages(in.Session)
		}
		user := conversations.RouterContext(prior, maxTurns, in.Request.InputText)

		var d model.RouteDecision
		if err := llm.Decode(ctx, router, system, user, &d, llm.WithTask(llm.TaskRoute)); err != nil {
			logx.Warn().Err(err).Msg("Routing failed - finishing turn")
			return model.Finish("routing failed"), nil
		}
		return d, nil
	})
}

// NewOrchestratorPostHandler stores the decision and announces it.
func NewOrchestratorPostHandler() func(context.Context, model.RouteDecision, *model.AppState) (model.RouteDecision, error) {
	return func(ctx context.Context, out model.RouteDecision, state *model.AppState) (model.RouteDecision, error) {
		state.Decision = out
		logx.Debug().
			Str("thread_id", state.ThreadID).
			Str("route", string(out.Next)).
			Str("reason", out.Reason).
			Msg("Route decided")
		observers.Emit(ctx, "Routing to "+string(out.Next))
		return out, nil
	}
}

// NewRouteCondition creates the condition function for specialist routing
func NewRouteCondition() func(context.Context, model.RouteDecision) (string, error) {
	return func(ctx context.Context, d model.RouteDecision) (string, error) {
		return NodeForRoute(d.Next), nil
	}
}

// NewSpecialistNode runs one specialist pipeline for the turn.
func NewSpecialistNode(r pipelines.Runner) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, d model.RouteDecision) (*model.TurnOutput, error) {
		req, sess, err := turnFromState(ctx)
		if err != nil {
			return nil, err
		}
		res := r.Run(ctx, pipelines.Input{
			Query:    req.InputText,
			Language: req.Language,
			Profile:  sess.UserProfile.Citizen(),
		})
		return &model.TurnOutput{Decision: d, Text: res.Markdown, Structured: res.Structured}, nil
	})
}

// NewConversationNode runs the conversation machine for the turn.
func NewConversationNode(m *conversations.Machine) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, d model.RouteDecision) (*model.TurnOutput, error) {
		req, sess, err := turnFromState(ctx)
		if err != nil {
			return nil, err
		}
		reply := m.Step(ctx, conversations.Turn{
			ThreadID:    sess.ThreadID,
			Input:       req.InputText,
			Language:    req.Language,
			History:     priorMessages(sess),
			State:       sess.Conversation,
			UserProfile: sess.UserProfile,
		})
		return &model.TurnOutput{Decision: d, Text: reply.Text, Conversation: reply.State}, nil
	})
}

// NewFinishNode ends a turn no specialist handled.
func NewFinishNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, d model.RouteDecision) (*model.TurnOutput, error) {
		logx.Debug().Str("reason", d.Reason).Msg("Turn finished without a specialist")
		return &model.TurnOutput{Decision: d, Text: model.FallbackApology}, nil
	})
}
