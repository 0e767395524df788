package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/jan-sahayak/server/internal/agent/graph/observers"
	"github.com/jan-sahayak/server/internal/agent/metrics"
	"github.com/jan-sahayak/server/internal/agent/model"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

const DefaultMaxToolCalls = 10

// Call is the continuation a specialist hands to the dispatcher: it issues one
// model request with the given history and offered tools. Tool results always
// flow back into the same Call.
type Call func(ctx context.Context, msgs []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error)

// Dispatcher runs the tool loop of one specialist.
type Dispatcher struct {
	route    model.Route
	node     *compose.ToolsNode
	infos    []*schema.ToolInfo
	maxCalls int
	timeout  time.Duration
}

// NewDispatcher builds a dispatcher over ts. With no tools, Run makes a
// single call.
func NewDispatcher(ctx context.Context, route model.Route, ts []tool.BaseTool, maxCalls int, timeout time.Duration) (*Dispatcher, error) {
	d := &Dispatcher{route: route, maxCalls: normalizeMaxToolCalls(maxCalls), timeout: timeout}
	if len(ts) == 0 {
		return d, nil
	}

	infos, err := Infos(ctx, ts)
	if err != nil {
		return nil, err
	}
	node, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:                ts,
		ExecuteSequentially:  true,
		UnknownToolsHandler:  unknownTool,
		ToolArgumentsHandler: sanitizeArguments,
	})
	if err != nil {
		logx.Error().Err(err).Str("route", string(route)).Msg("Failed to create tools node")
		return nil, fmt.Errorf("failed to create tools node: %w", err)
	}
	d.node = node
	d.infos = infos
	return d, nil
}

func (d *Dispatcher) Tools() []*schema.ToolInfo {
	return d.infos
}

// Run calls the continuation until it answers without tool calls. Once the
// tool budget is spent the model gets a wrap-up notice and no tools, and its
// next answer is final.
func (d *Dispatcher) Run(ctx context.Context, msgs []*schema.Message, call Call) (*schema.Message, error) {
	history := append([]*schema.Message(nil), msgs...)
	used, seq := 0, 0
	limited := d.node == nil

	for {
		offered := d.infos
		if limited {
			offered = nil
		}
		out, err := call(ctx, history, offered)
		if err != nil {
			return nil, err
		}
		if len(out.ToolCalls) == 0 {
			return out, nil
		}
		if limited {
			logx.Warn().Str("route", string(d.route)).Int("tool_calls", len(out.ToolCalls)).
				Msg("Tool calls after limit ignored")
			return out, nil
		}

		// Some providers omit tool call ids; tool results must reference one.
		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				seq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", seq)
			}
		}
		history = append(history, out)
		history = append(history, d.execute(ctx, out)...)

		used += len(out.ToolCalls)
		if used >= d.maxCalls {
			logx.Warn().Str("route", string(d.route)).Int("tool_call_count", used).Int("max_tool_calls", d.maxCalls).
				Msg("Tool call limit reached - asking model to wrap up")
			history = append(history, wrapUpNotice(d.maxCalls))
			limited = true
		}
	}
}

// execute runs the requested tools. A failing tools node yields one
// explanatory tool message per call so the model can continue.
func (d *Dispatcher) execute(ctx context.Context, out *schema.Message) []*schema.Message {
	for _, tc := range out.ToolCalls {
		metrics.ToolCalls.WithLabelValues(string(d.route), tc.Function.Name).Inc()
		observers.Emit(ctx, "Looking up "+tc.Function.Name)
	}
	logx.Debug().Int("tool_count", len(out.ToolCalls)).Str("route", string(d.route)).Msg("Calling tools")

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	results, err := d.node.Invoke(ctx, out)
	if err == nil {
		return results
	}
	logx.Warn().Err(err).Str("route", string(d.route)).Msg("Tool execution failed")
	failed := make([]*schema.Message, 0, len(out.ToolCalls))
	for _, tc := range out.ToolCalls {
		failed = append(failed, schema.ToolMessage(
			fmt.Sprintf("Tool %s failed and returned no result. Continue without it.", tc.Function.Name), tc.ID))
	}
	return failed
}

func wrapUpNotice(max int) *schema.Message {
	return schema.SystemMessage(fmt.Sprintf(
		"SYSTEM NOTICE: You have reached the maximum tool call limit (%d). "+
			"Please synthesize a helpful response using the information you've already gathered. "+
			"Acknowledge any limitations in your response if you couldn't complete all necessary tool calls.",
		max,
	))
}

func normalizeMaxToolCalls(n int) int {
	if n <= 0 {
		return DefaultMaxToolCalls
	}
	return n
}
