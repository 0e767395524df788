// Package conversations runs the multi-turn discovery dialogue.
package conversations

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/jan-sahayak/server/internal/agent/graph/observers"
	"github.com/jan-sahayak/server/internal/agent/graph/prompts"
	"github.com/jan-sahayak/server/internal/agent/llm"
	"github.com/jan-sahayak/server/internal/agent/model"
	"github.com/jan-sahayak/server/internal/agent/retrieval"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

const (
	TaskRewrite = "conversation.rewrite"
	TaskAnswer  = "conversation.answer"

	entryTrust = 0.5
)

// Turn is one message addressed to the machine.
type Turn struct {
	ThreadID string
	Input    string
	Language string
	// History holds the earlier messages of the thread, without Input.
	History     []*schema.Message
	State       *model.ConversationState
	UserProfile *model.UserProfile
}

type Reply struct {
	Text  string
	State *model.ConversationState
}

// Machine implements the conversation phases. Only entry and
// recommendation carry behavior; the remaining phases are declared in the
// transition table and reachable through Advance.
type Machine struct {
	rewriter     llm.Gateway
	responder    llm.Gateway
	retriever    retrieval.Retriever
	rewriteTurns int
	historyTurns int
}

func NewMachine(rewriter, responder llm.Gateway, retriever retrieval.Retriever, cfg model.ConversationConfig) *Machine {
	rewrite, history := cfg.RewriteTurns, cfg.HistoryTurns
	if rewrite <= 0 {
		rewrite = 6
	}
	if history <= 0 {
		history = 10
	}
	return &Machine{
		rewriter:     rewriter,
		responder:    responder,
		retriever:    retriever,
		rewriteTurns: rewrite,
		historyTurns: history,
	}
}

// Step handles one turn. It never advances the phase beyond the entry
// shortcut and never fails.
func (m *Machine) Step(ctx context.Context, t Turn) Reply {
	st := t.State.Clone()
	if st == nil {
		st = model.NewConversationState()
	}
	st.Turns++

	switch st.Phase {
	case model.PhaseEntry:
		return m.entry(t, st)
	case model.PhaseRecommendation:
		return m.recommend(ctx, t, st)
	default:
		logx.Warn().Str("thread_id", t.ThreadID).Str("phase", string(st.Phase)).
			Msg("conversation phase not yet implemented")
		return Reply{Text: model.FallbackApology, State: st}
	}
}

// Advance applies an external phase signal, validated against the
// transition table.
func (m *Machine) Advance(st *model.ConversationState, next model.Phase) (*model.ConversationState, error) {
	out := st.Clone()
	if out == nil {
		out = model.NewConversationState()
	}
	if err := out.Advance(next); err != nil {
		return nil, err
	}
	return out, nil
}

// entry greets and goes straight to open conversation, skipping structured
// discovery.
func (m *Machine) entry(t Turn, st *model.ConversationState) Reply {
	st.Profile.Absorb(t.UserProfile)
	st.RefreshCompleteness()
	st.RaiseTrust(entryTrust)
	st.Phase = model.PhaseRecommendation
	logx.Debug().Str("thread_id", t.ThreadID).Float64("profile_completeness", st.ProfileCompleteness).
		Msg("conversation entry")
	return Reply{Text: model.GreetingText, State: st}
}

func (m *Machine) recommend(ctx context.Context, t Turn, st *model.ConversationState) Reply {
	lines := Lines(t.History)

	query := t.Input
	if len(lines) > 0 {
		query = m.rewrite(ctx, t, tail(lines, m.rewriteTurns))
	}

	observers.Emit(ctx, "Searching scheme documents")
	docs := model.NoDocumentsFound
	if m.retriever != nil {
		text, err := m.retriever.Retrieve(ctx, query)
		if err != nil {
			logx.Warn().Err(err).Str("thread_id", t.ThreadID).Msg("conversation retrieval failed")
		} else {
			docs = text
		}
	}

	history := "No history."
	if len(lines) > 0 {
		history = strings.Join(tail(lines, m.historyTurns), "\n")
	}
	system, err := prompts.Render(ctx, prompts.ConversationAnswer, prompts.Vars{
		"Language": t.Language,
		"Context":  docs,
		"History":  history,
	})
	if err != nil {
		logx.Error().Err(err).Msg("render conversation prompt")
		return Reply{Text: model.ConversationErrorMessage, State: st}
	}
	answer, err := llm.Text(ctx, m.responder, system, t.Input, llm.WithTask(TaskAnswer))
	if err != nil {
		logx.Warn().Err(err).Str("thread_id", t.ThreadID).Msg("conversation answer failed")
		return Reply{Text: model.ConversationErrorMessage, State: st}
	}
	return Reply{Text: answer, State: st}
}

// rewrite turns a follow-up into a standalone query. Any failure falls back
// to the raw input.
func (m *Machine) rewrite(ctx context.Context, t Turn, lines []string) string {
	system, err := prompts.Render(ctx, prompts.ConversationRewrite, prompts.Vars{
		"History": strings.Join(lines, "\n"),
	})
	if err != nil {
		logx.Error().Err(err).Msg("render rewrite prompt")
		return t.Input
	}
	q, err := llm.Text(ctx, m.rewriter, system, "Latest Question: "+t.Input+"\n\nStandalone Question:", llm.WithTask(TaskRewrite))
	if err != nil {
		logx.Warn().Err(err).Str("thread_id", t.ThreadID).Msg("query rewrite failed")
		return t.Input
	}
	logx.Debug().Str("thread_id", t.ThreadID).Str("input", t.Input).Str("query", q).Msg("contextualized query")
	return q
}
