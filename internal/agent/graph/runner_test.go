package graph

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jan-sahayak/server/internal/agent/cache"
	"github.com/jan-sahayak/server/internal/agent/graph/conversations"
	"github.com/jan-sahayak/server/internal/agent/graph/nodes"
	"github.com/jan-sahayak/server/internal/agent/llm"
	"github.com/jan-sahayak/server/internal/agent/llm/llmtest"
	"github.com/jan-sahayak/server/internal/agent/model"
	"github.com/jan-sahayak/server/internal/agent/repo"
	"github.com/jan-sahayak/server/internal/agent/retrieval"
	errx "github.com/jan-sahayak/server/internal/core/error"
)

func newTestEngine(t *testing.T, gw *llmtest.Gateway, store model.SessionRepository) *Engine {
	t.Helper()
	corpus := retrieval.NewCorpus([]*schema.Document{{
		ID:       "zoning.md",
		Content:  "Zoning policy: residential plots may not exceed two floors.",
		MetaData: map[string]any{retrieval.MetaSource: "zoning.md"},
	}}, 3)
	caches := cache.NewService(model.CacheConfig{LLMCapacity: 100, RAGCapacity: 50})

	conv := model.ConversationConfig{RouterMaxTurns: 10, RewriteTurns: 6, HistoryTurns: 10}
	conv.Tools.MaxCalls = 3

	if store == nil {
		store = repo.NewMemorySessionRepository()
	}
	e, err := BuildEngine(context.Background(), Config{
		Gateways:     &nodes.Gateways{Router: gw, Analysis: gw, Response: gw},
		Retrieval:    retrieval.NewService(corpus, caches.Retrieval, time.Second),
		Cache:        caches,
		Conversation: conv,
		Repo:         store,
		ToolTimeout:  time.Second,
		StoreTimeout: time.Second,
	})
	require.NoError(t, err)
	return e
}

type recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recorder) sink(ev model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func policyScript() *llmtest.Gateway {
	return llmtest.New().
		OnJSON(llm.TaskRoute, map[string]any{"next_agent": "POLICY_INTERPRETER", "reason": "asks about a policy"}).
		OnJSON("policy.extract", map[string]any{"policy_name": "zoning policy", "aspect": "explanation"}).
		OnJSON("policy.analyze", map[string]any{
			"summary":   "Residential plots are limited to two floors.",
			"citations": []map[string]any{{"source": "zoning.md", "excerpt": "may not exceed two floors"}},
		}).
		OnText("policy.synthesize", "Here is how zoning works.")
}

var refPattern = regexp.MustCompile(`^REF-[0-9A-F]{8}$`)

func TestPolicyTurnRoutesAndCites(t *testing.T) {
	ctx := context.Background()
	gw := policyScript()
	store := repo.NewMemorySessionRepository()
	e := newTestEngine(t, gw, store)
	rec := &recorder{}

	resp, err := e.Handle(ctx, model.Request{InputText: "Tell me about the zoning policy", Language: "en"}, rec.sink)
	require.NoError(t, err)

	assert.Equal(t, model.RoutePolicy, resp.Route)
	assert.Equal(t, "asks about a policy", resp.Reason)
	assert.Contains(t, resp.FinalText, "**Sources**\n- zoning.md")
	assert.Equal(t, "Residential plots are limited to two floors.", resp.FinalStructured["summary"])
	assert.Regexp(t, refPattern, resp.ReferenceID)
	assert.NotEmpty(t, resp.ThreadID)
	assert.Equal(t, 1, gw.Calls(llm.TaskRoute))

	types := rec.types()
	require.NotEmpty(t, types)
	assert.Equal(t, model.EventMeta, types[0])
	assert.Equal(t, model.EventResult, types[len(types)-1])
	assert.Contains(t, types, model.EventLog)
	assert.NotContains(t, types, model.EventError)

	sess, err := store.Load(ctx, resp.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, model.RoutePolicy, sess.CurrentIntent)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, schema.User, sess.Messages[0].Role)
	assert.Equal(t, resp.FinalText, sess.Messages[1].Content)
}

func TestPreAssignedRouteSkipsClassification(t *testing.T) {
	ctx := context.Background()
	gw := llmtest.New().
		OnText(conversations.TaskRewrite, "What schemes help farmers?").
		OnText(conversations.TaskAnswer, "PM-KISAN supports small farmers.")
	e := newTestEngine(t, gw, nil)

	first, err := e.Handle(ctx, model.Request{InputText: "Ask for help", Route: model.RouteConversation, ThreadID: "chat-1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.GreetingText, first.FinalText)
	assert.Equal(t, model.RouteConversation, first.Route)
	assert.Zero(t, gw.Total())

	second, err := e.Handle(ctx, model.Request{InputText: "what about farmers?", Route: model.RouteConversation, ThreadID: "chat-1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "PM-KISAN supports small farmers.", second.FinalText)
	assert.Zero(t, gw.Calls(llm.TaskRoute))
	assert.Equal(t, 1, gw.Calls(conversations.TaskRewrite))

	history, err := e.History(ctx, "chat-1")
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestRoutingFailureFinishes(t *testing.T) {
	ctx := context.Background()
	gw := llmtest.New().FailAll(errors.New("provider down"))
	e := newTestEngine(t, gw, nil)

	resp, err := e.Handle(ctx, model.Request{InputText: "help"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.RouteFinish, resp.Route)
	assert.Equal(t, model.FallbackApology, resp.FinalText)
}

func TestOutOfSetRouteFinishes(t *testing.T) {
	gw := llmtest.New().OnJSON(llm.TaskRoute, map[string]any{"next_agent": "WEATHER_AGENT"})
	e := newTestEngine(t, gw, nil)

	resp, err := e.Handle(context.Background(), model.Request{InputText: "will it rain?"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.RouteFinish, resp.Route)
	assert.Equal(t, model.FallbackApology, resp.FinalText)
}

func TestEveryCallFailingStillAnswers(t *testing.T) {
	gw := llmtest.New().FailAll(errors.New("provider down"))
	e := newTestEngine(t, gw, nil)

	for _, route := range []model.Route{model.RoutePolicy, model.RouteEligibility, model.RouteBenefits, model.RouteAdvocacy} {
		resp, err := e.Handle(context.Background(), model.Request{InputText: "I need help", Route: route}, nil)
		require.NoError(t, err, route)
		assert.Equal(t, route, resp.Route)
		assert.Equal(t, model.FallbackApology, resp.FinalText, route)
	}
}

func TestInvalidRequests(t *testing.T) {
	e := newTestEngine(t, llmtest.New(), nil)

	for _, req := range []model.Request{
		{InputText: "   "},
		{InputText: "hello", Route: "WEATHER_AGENT"},
	} {
		rec := &recorder{}
		_, err := e.Handle(context.Background(), req, rec.sink)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, errx.Status(err))
		assert.Equal(t, []model.EventType{model.EventError}, rec.types())
	}
}

func TestCallerProfileIsSanitizedAndMerged(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemorySessionRepository()
	e := newTestEngine(t, llmtest.New(), store)

	age, place := 200, "Pune"
	_, err := e.Handle(ctx, model.Request{
		InputText:   "hello",
		Route:       model.RouteConversation,
		ThreadID:    "p-1",
		UserProfile: &model.UserProfile{Age: &age, Location: &place},
	}, nil)
	require.NoError(t, err)

	sess, err := store.Load(ctx, "p-1")
	require.NoError(t, err)
	require.NotNil(t, sess.UserProfile)
	assert.Nil(t, sess.UserProfile.Age)
	assert.Equal(t, "Pune", *sess.UserProfile.Location)
	require.NotNil(t, sess.Conversation)
	assert.Equal(t, model.PhaseRecommendation, sess.Conversation.Phase)
}

func TestClearDropsThread(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, policyScript(), nil)

	resp, err := e.Handle(ctx, model.Request{InputText: "Tell me about the zoning policy"}, nil)
	require.NoError(t, err)

	require.NoError(t, e.Clear(ctx, resp.ThreadID))
	_, err = e.History(ctx, resp.ThreadID)
	assert.ErrorIs(t, err, errx.ErrSessionNotFound)
}

type brokenStore struct {
	model.SessionRepository
	loadErr error
	panics  bool
}

func (b brokenStore) Load(ctx context.Context, threadID string) (*model.Session, error) {
	if b.panics {
		panic("store exploded")
	}
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	return b.SessionRepository.Load(ctx, threadID)
}

func TestStoreFailureEmitsOneError(t *testing.T) {
	store := brokenStore{SessionRepository: repo.NewMemorySessionRepository(), loadErr: errx.WrapStore(errors.New("disk full"))}
	e := newTestEngine(t, llmtest.New(), store)
	rec := &recorder{}

	_, err := e.Handle(context.Background(), model.Request{InputText: "hello"}, rec.sink)
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, errx.Status(err))
	assert.Equal(t, []model.EventType{model.EventMeta, model.EventError}, rec.types())
	assert.Equal(t, model.GenericErrorMessage, rec.events[1].Message)
}

// leavingStore cancels the caller after the session is loaded, the way a
// client that disconnects mid-turn does.
type leavingStore struct {
	model.SessionRepository
	leave context.CancelFunc
}

func (l leavingStore) Load(ctx context.Context, threadID string) (*model.Session, error) {
	defer l.leave()
	return l.SessionRepository.Load(ctx, threadID)
}

func (l leavingStore) Save(ctx context.Context, sess *model.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.SessionRepository.Save(ctx, sess)
}

func TestTurnIsSavedAfterClientLeaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mem := repo.NewMemorySessionRepository()
	e := newTestEngine(t, llmtest.New(), leavingStore{SessionRepository: mem, leave: cancel})

	resp, err := e.Handle(ctx, model.Request{InputText: "hello", Route: model.RouteConversation, ThreadID: "gone-1"}, nil)
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	sess, err := mem.Load(context.Background(), "gone-1")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, resp.FinalText, sess.Messages[1].Content)
}

func TestPanicIsRecovered(t *testing.T) {
	store := brokenStore{SessionRepository: repo.NewMemorySessionRepository(), panics: true}
	e := newTestEngine(t, llmtest.New(), store)
	rec := &recorder{}

	resp, err := e.Handle(context.Background(), model.Request{InputText: "hello", ThreadID: "boom"}, rec.sink)
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, http.StatusInternalServerError, errx.Status(err))
	assert.Equal(t, model.GenericErrorMessage, errx.SafeMessage(err))

	types := rec.types()
	assert.Equal(t, model.EventError, types[len(types)-1])
	assert.NotContains(t, rec.events[len(rec.events)-1].Message, "exploded")

	// the thread lock was released
	assert.Zero(t, e.locks.len())
}

func TestThreadLocksSerializeAndCleanUp(t *testing.T) {
	locks := newThreadLocks()
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.lock("same")
			defer release()
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
	assert.Zero(t, locks.len())
}

func TestReferenceIDFormat(t *testing.T) {
	for i := 0; i < 20; i++ {
		assert.Regexp(t, refPattern, NewReferenceID())
	}
}
