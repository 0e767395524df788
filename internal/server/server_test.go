package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jan-sahayak/server/internal/agent/model"
	"github.com/jan-sahayak/server/internal/core"
	errx "github.com/jan-sahayak/server/internal/core/error"
)

type fakeRunner struct {
	cleared string
	history map[string][]*schema.Message
}

func (f *fakeRunner) Handle(_ context.Context, req model.Request, sink model.EventSink) (*model.Response, error) {
	if err := req.Normalize(); err != nil {
		if sink != nil {
			sink(model.Event{Type: model.EventError, Message: errx.SafeMessage(err)})
		}
		return nil, err
	}
	resp := &model.Response{ThreadID: "t-1", Route: model.RoutePolicy, FinalText: "answer", ReferenceID: "REF-0A1B2C3D"}
	if sink != nil {
		sink(model.Event{Type: model.EventMeta, ThreadID: "t-1", Message: "processing"})
		sink(model.Event{Type: model.EventLog, ThreadID: "t-1", Message: "Routing to POLICY_INTERPRETER"})
		sink(model.Event{Type: model.EventResult, ThreadID: "t-1", Result: resp})
	}
	return resp, nil
}

func (f *fakeRunner) History(_ context.Context, threadID string) ([]*schema.Message, error) {
	msgs, ok := f.history[threadID]
	if !ok {
		return nil, errx.ErrSessionNotFound
	}
	return msgs, nil
}

func (f *fakeRunner) Clear(_ context.Context, threadID string) error {
	f.cleared = threadID
	return nil
}

func newTestServer() (*Server, *fakeRunner) {
	gin.SetMode(gin.TestMode)
	r := &fakeRunner{history: map[string][]*schema.Message{
		"t-1": {schema.UserMessage("hi"), schema.AssistantMessage("hello", nil)},
	}}
	return New(r, core.Testing), r
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestQueryStreamsEvents(t *testing.T) {
	s, _ := newTestServer()
	w := do(s, http.MethodPost, "/api/query", `{"input_text":"Tell me about the zoning policy"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
	body := w.Body.String()
	meta := strings.Index(body, "event:meta")
	logIdx := strings.Index(body, "event:log")
	result := strings.Index(body, "event:result")
	require.True(t, meta >= 0 && logIdx > meta && result > logIdx, body)
	assert.Contains(t, body, "REF-0A1B2C3D")
}

func TestQueryWithoutStreaming(t *testing.T) {
	s, _ := newTestServer()
	w := do(s, http.MethodPost, "/api/query?stream=false", `{"input_text":"hello"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp model.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "t-1", resp.ThreadID)
	assert.Equal(t, model.RoutePolicy, resp.Route)
	assert.Equal(t, "answer", resp.FinalText)
}

func TestQueryRejectsBadInput(t *testing.T) {
	s, _ := newTestServer()

	w := do(s, http.MethodPost, "/api/query?stream=false", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(s, http.MethodPost, "/api/query?stream=false", `{"input_text":"hi","route":"WEATHER"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), errx.InvalidRequestMessage)
}

func TestHistoryAndClear(t *testing.T) {
	s, r := newTestServer()

	w := do(s, http.MethodGet, "/api/threads/t-1/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		ThreadID string `json:"thread_id"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "t-1", body.ThreadID)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "assistant", body.Messages[1].Role)

	w = do(s, http.MethodGet, "/api/threads/nope/history", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(s, http.MethodDelete, "/api/threads/t-1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "t-1", r.cleared)
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer()

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/healthz", "").Code)

	w := do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
