// Package llm is the vendor-neutral model gateway used by every node.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/jan-sahayak/server/internal/agent/graph/parsers"
	"github.com/jan-sahayak/server/internal/agent/metrics"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

// Gateway is a single synchronous model call that may fail.
type Gateway interface {
	Generate(ctx context.Context, msgs []*schema.Message, opts ...Option) (*schema.Message, error)
}

// Options tune one call.
type Options struct {
	// Task labels the call for logs, metrics and scripted test gateways.
	Task string
	// Tools are offered to the model for this call only.
	Tools []*schema.ToolInfo
}

type Option func(*Options)

func WithTask(task string) Option {
	return func(o *Options) { o.Task = task }
}

func WithTools(tools []*schema.ToolInfo) Option {
	return func(o *Options) { o.Tools = tools }
}

func Apply(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Task builds a task label such as "eligibility.analyze".
func Task(scope, stage string) string {
	return scope + "." + stage
}

const TaskRoute = "router.classify"

// ErrEmptyResponse is returned when the model produced no content.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Text sends system and user prompts and returns the trimmed reply.
func Text(ctx context.Context, gw Gateway, system, user string, opts ...Option) (string, error) {
	msgs := make([]*schema.Message, 0, 2)
	if system != "" {
		msgs = append(msgs, schema.SystemMessage(system))
	}
	msgs = append(msgs, schema.UserMessage(user))

	out, err := gw.Generate(ctx, msgs, opts...)
	if err != nil {
		return "", err
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(out.Content), nil
}

// Decode asks for a JSON object conforming to out's schema and decodes the
// reply into out. Targets implementing parsers.Validator are validated.
func Decode(ctx context.Context, gw Gateway, system, user string, out any, opts ...Option) error {
	instruction, err := SchemaInstruction(out)
	if err != nil {
		return err
	}
	if system != "" {
		instruction = system + "\n\n" + instruction
	}
	text, err := Text(ctx, gw, instruction, user, opts...)
	if err != nil {
		return err
	}
	return parsers.DecodeJSON(text, out)
}

// Guard bounds every call with timeout and records call metrics. A call that
// outlives the timeout is reported as failed even if the provider ignores ctx.
func Guard(gw Gateway, timeout time.Duration) Gateway {
	return &guarded{next: gw, timeout: timeout}
}

type guarded struct {
	next    Gateway
	timeout time.Duration
}

type result struct {
	msg *schema.Message
	err error
}

func (g *guarded) Generate(ctx context.Context, msgs []*schema.Message, opts ...Option) (*schema.Message, error) {
	task := Apply(opts...).Task
	if task == "" {
		task = "unlabeled"
	}
	start := time.Now()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("model gateway panic: %v", r)}
			}
		}()
		msg, err := g.next.Generate(ctx, msgs, opts...)
		done <- result{msg: msg, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res = result{err: fmt.Errorf("model call %s: %w", task, ctx.Err())}
	}
	if res.err == nil && res.msg == nil {
		res.err = ErrEmptyResponse
	}

	if res.err != nil {
		metrics.ModelCalls.WithLabelValues(task, metrics.OutcomeError).Inc()
		logx.Warn().Err(res.err).Str("task", task).Dur("elapsed", time.Since(start)).Msg("model call failed")
		return nil, res.err
	}
	metrics.ModelCalls.WithLabelValues(task, metrics.OutcomeOK).Inc()
	logx.Debug().Str("task", task).Dur("elapsed", time.Since(start)).Int("tool_calls", len(res.msg.ToolCalls)).Msg("model call done")
	return res.msg, nil
}
