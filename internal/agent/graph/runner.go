package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/jan-sahayak/server/internal/agent/cache"
	"github.com/jan-sahayak/server/internal/agent/graph/conversations"
	"github.com/jan-sahayak/server/internal/agent/graph/nodes"
	"github.com/jan-sahayak/server/internal/agent/graph/observers"
	"github.com/jan-sahayak/server/internal/agent/graph/pipelines"
	"github.com/jan-sahayak/server/internal/agent/metrics"
	"github.com/jan-sahayak/server/internal/agent/model"
	"github.com/jan-sahayak/server/internal/agent/retrieval"
	errx "github.com/jan-sahayak/server/internal/core/error"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

// Runner executes turns for front ends.
type Runner interface {
	Handle(ctx context.Context, req model.Request, sink model.EventSink) (*model.Response, error)
	History(ctx context.Context, threadID string) ([]*schema.Message, error)
	Clear(ctx context.Context, threadID string) error
}

// Config holds everything needed to compose the engine end-to-end.
// This is a convenience layer over GraphConfig that also builds the
// specialists and the conversation machine.
type Config struct {
	Gateways     *nodes.Gateways
	Retrieval    *retrieval.Service
	Cache        *cache.Service
	Conversation model.ConversationConfig
	Repo         model.SessionRepository
	ToolTimeout  time.Duration
	StoreTimeout time.Duration
}

// BuildEngine wires pipelines, the conversation machine and the orchestrator graph.
func BuildEngine(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Repo == nil {
		return nil, fmt.Errorf("session repo is nil")
	}
	if cfg.Gateways == nil || cfg.Retrieval == nil || cfg.Cache == nil {
		return nil, fmt.Errorf("engine dependencies are not properly initialized")
	}

	specialists, err := pipelines.NewAll(ctx, pipelines.Deps{
		Analysis:     cfg.Gateways.Analysis,
		Response:     cfg.Gateways.Response,
		Retriever:    cfg.Retrieval,
		Searcher:     cfg.Retrieval,
		Cache:        cfg.Cache.Analysis,
		MaxToolCalls: cfg.Conversation.Tools.MaxCalls,
		ToolTimeout:  cfg.ToolTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build specialists: %w", err)
	}

	machine := conversations.NewMachine(cfg.Gateways.Router, cfg.Gateways.Response, cfg.Retrieval, cfg.Conversation)

	runnable, err := BuildGraph(ctx, &GraphConfig{
		Router:         cfg.Gateways.Router,
		Specialists:    specialists,
		Conversation:   machine,
		RouterMaxTurns: cfg.Conversation.RouterMaxTurns,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Engine built successfully")
	return NewEngine(runnable, cfg.Repo, cfg.StoreTimeout), nil
}

// Engine runs one orchestrator graph invocation per turn and persists the
// session afterwards. Turns of one thread run one at a time.
type Engine struct {
	runnable     compose.Runnable[model.TurnInput, *model.TurnOutput]
	repo         model.SessionRepository
	storeTimeout time.Duration
	locks        *threadLocks
}

func NewEngine(runnable compose.Runnable[model.TurnInput, *model.TurnOutput], repo model.SessionRepository, storeTimeout time.Duration) *Engine {
	return &Engine{
		runnable:     runnable,
		repo:         repo,
		storeTimeout: storeTimeout,
		locks:        newThreadLocks(),
	}
}

var _ Runner = (*Engine)(nil)

// NewReferenceID returns "REF-" followed by 8 upper-case hex characters.
func NewReferenceID() string {
	id := uuid.New()
	return "REF-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

// Handle runs one turn. Events are delivered to sink in order; the returned
// error is only set for invalid requests, store failures and panics, and is
// mirrored by a single error event.
func (e *Engine) Handle(ctx context.Context, req model.Request, sink model.EventSink) (resp *model.Response, err error) {
	emit := func(ev model.Event) {
		if sink != nil {
			sink(ev)
		}
	}

	if err := req.Normalize(); err != nil {
		emit(model.Event{Type: model.EventError, Message: errx.SafeMessage(err)})
		return nil, err
	}
	if req.ThreadID == "" {
		req.ThreadID = uuid.NewString()
	}
	threadID := req.ThreadID
	log := logx.With(threadID)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Turn panicked")
			metrics.TurnsTotal.WithLabelValues("unknown", metrics.OutcomeError).Inc()
			emit(model.Event{Type: model.EventError, ThreadID: threadID, Message: model.GenericErrorMessage})
			resp, err = nil, errx.New(fmt.Errorf("turn panicked: %v", r), http.StatusInternalServerError, model.GenericErrorMessage)
		}
	}()

	emit(model.Event{Type: model.EventMeta, ThreadID: threadID, Message: "processing"})

	release := e.locks.lock(threadID)
	defer release()

	metrics.ActiveTurns.Inc()
	defer metrics.ActiveTurns.Dec()
	start := time.Now()

	sess, err := e.load(ctx, threadID, req.Language)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load session")
		emit(model.Event{Type: model.EventError, ThreadID: threadID, Message: model.GenericErrorMessage})
		return nil, err
	}

	sess.Language = req.Language
	sess.Messages = append(sess.Messages, schema.UserMessage(req.InputText))
	if req.UserProfile != nil {
		for _, w := range req.UserProfile.Sanitize() {
			log.Warn().Str("field_error", w).Msg("Dropped invalid user profile field")
		}
		sess.UserProfile = sess.UserProfile.Merge(req.UserProfile)
	}

	meter := &model.CostMeter{}
	runCtx := model.WithCostMeter(ctx, meter)
	runCtx = observers.WithSink(runCtx, threadID, sink)

	out, err := e.runnable.Invoke(runCtx, model.TurnInput{Request: req, Session: sess.Clone()},
		compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil || out == nil {
		log.Error().Err(err).Msg("Graph invocation failed")
		out = &model.TurnOutput{Decision: model.Finish("graph failed"), Text: model.FallbackApology}
	}

	if !out.Decision.Next.IsFinish() {
		sess.CurrentIntent = out.Decision.Next
	}
	sess.Messages = append(sess.Messages, schema.AssistantMessage(out.Text, nil))
	if out.Conversation != nil {
		sess.Conversation = out.Conversation
	}
	sess.UpdatedAt = time.Now().UTC()

	if err := e.save(ctx, sess); err != nil {
		log.Error().Err(err).Msg("Failed to persist session")
		emit(model.Event{Type: model.EventError, ThreadID: threadID, Message: model.GenericErrorMessage})
		return nil, err
	}

	cost := meter.Summary()
	resp = &model.Response{
		ThreadID:        threadID,
		Route:           out.Decision.Next,
		Reason:          out.Decision.Reason,
		FinalText:       out.Text,
		FinalStructured: out.Structured,
		ReferenceID:     NewReferenceID(),
		CostUSD:         cost.TotalUSD,
	}

	outcome := metrics.OutcomeOK
	if out.Text == model.FallbackApology {
		outcome = metrics.OutcomeDegraded
	}
	metrics.TurnsTotal.WithLabelValues(string(resp.Route), outcome).Inc()
	metrics.TurnDuration.WithLabelValues(string(resp.Route)).Observe(time.Since(start).Seconds())

	log.Info().
		Str("route", string(resp.Route)).
		Str("reference_id", resp.ReferenceID).
		Int("model_calls", cost.Calls).
		Int("prompt_tokens", cost.PromptTokens).
		Int("completion_tokens", cost.CompletionTokens).
		Float64("cost_usd", cost.TotalUSD).
		Dur("elapsed", time.Since(start)).
		Msg("Turn completed")

	emit(model.Event{Type: model.EventResult, ThreadID: threadID, Result: resp})
	return resp, nil
}

// History returns the stored messages of a thread.
func (e *Engine) History(ctx context.Context, threadID string) ([]*schema.Message, error) {
	ctx, cancel := e.storeContext(ctx)
	defer cancel()
	sess, err := e.repo.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return sess.Messages, nil
}

// Clear drops the stored state of a thread. It waits for a running turn.
func (e *Engine) Clear(ctx context.Context, threadID string) error {
	release := e.locks.lock(threadID)
	defer release()

	ctx, cancel := e.storeContext(ctx)
	defer cancel()
	return e.repo.Clear(ctx, threadID)
}

func (e *Engine) load(ctx context.Context, threadID, language string) (*model.Session, error) {
	ctx, cancel := e.storeContext(ctx)
	defer cancel()

	sess, err := e.repo.Load(ctx, threadID)
	if errors.Is(err, errx.ErrSessionNotFound) {
		logx.Debug().Str("thread_id", threadID).Msg("Starting new session")
		return model.NewSession(threadID, language), nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// save persists the turn even when the caller has already gone away.
func (e *Engine) save(ctx context.Context, sess *model.Session) error {
	ctx, cancel := e.storeContext(context.WithoutCancel(ctx))
	defer cancel()
	return e.repo.Save(ctx, sess)
}

func (e *Engine) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.storeTimeout)
}
