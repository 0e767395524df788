// Package llmtest provides a scripted llm.Gateway for tests.
package llmtest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/jan-sahayak/server/internal/agent/llm"
)

// Reply is one scripted model answer.
type Reply struct {
	Content   string
	ToolCalls []schema.ToolCall
	Err       error
}

// Call records one request seen by the gateway.
type Call struct {
	Task     string
	Messages []*schema.Message
	Tools    []*schema.ToolInfo
}

// Gateway answers by task label. Replies queued for a task are consumed in
// order; the last one repeats. Tasks ending in "*" match by prefix.
type Gateway struct {
	mu       sync.Mutex
	replies  map[string][]Reply
	failAll  error
	calls    []Call
	fallback *Reply
}

func New() *Gateway {
	return &Gateway{replies: map[string][]Reply{}}
}

func (g *Gateway) On(task string, replies ...Reply) *Gateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.replies[task] = append(g.replies[task], replies...)
	return g
}

func (g *Gateway) OnText(task, content string) *Gateway {
	return g.On(task, Reply{Content: content})
}

// OnJSON scripts a reply carrying v marshaled as JSON.
func (g *Gateway) OnJSON(task string, v any) *Gateway {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return g.On(task, Reply{Content: string(b)})
}

func (g *Gateway) OnError(task string, err error) *Gateway {
	return g.On(task, Reply{Err: err})
}

// Otherwise answers every unscripted task with r.
func (g *Gateway) Otherwise(r Reply) *Gateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fallback = &r
	return g
}

// FailAll makes every call return err.
func (g *Gateway) FailAll(err error) *Gateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failAll = err
	return g
}

func (g *Gateway) Generate(_ context.Context, msgs []*schema.Message, opts ...llm.Option) (*schema.Message, error) {
	o := llm.Apply(opts...)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, Call{Task: o.Task, Messages: msgs, Tools: o.Tools})

	if g.failAll != nil {
		return nil, g.failAll
	}
	r, ok := g.next(o.Task)
	if !ok {
		return nil, fmt.Errorf("llmtest: no reply scripted for task %q", o.Task)
	}
	if r.Err != nil {
		return nil, r.Err
	}
	msg := schema.AssistantMessage(r.Content, r.ToolCalls)
	return msg, nil
}

func (g *Gateway) next(task string) (Reply, bool) {
	key := task
	if _, ok := g.replies[key]; !ok {
		key = ""
		for k := range g.replies {
			if p, found := strings.CutSuffix(k, "*"); found && strings.HasPrefix(task, p) {
				key = k
				break
			}
		}
	}
	queue := g.replies[key]
	if len(queue) == 0 {
		if g.fallback != nil {
			return *g.fallback, true
		}
		return Reply{}, false
	}
	r := queue[0]
	if len(queue) > 1 {
		g.replies[key] = queue[1:]
	}
	return r, true
}

// Calls counts requests made for task.
func (g *Gateway) Calls(task string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c.Task == task {
			n++
		}
	}
	return n
}

func (g *Gateway) Total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// Requests returns the recorded calls for task.
func (g *Gateway) Requests(task string) []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Call
	for _, c := range g.calls {
		if c.Task == task {
			out = append(out, c)
		}
	}
	return out
}

// LastUser returns the user message content of the most recent call for task.
func (g *Gateway) LastUser(task string) string {
	reqs := g.Requests(task)
	if len(reqs) == 0 {
		return ""
	}
	msgs := reqs[len(reqs)-1].Messages
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == schema.User {
			return msgs[i].Content
		}
	}
	return ""
}

var _ llm.Gateway = (*Gateway)(nil)
