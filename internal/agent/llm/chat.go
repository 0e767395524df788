package llm

import (
	"context"
	"errors"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/jan-sahayak/server/internal/agent/model"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

// ChatGateway adapts an eino tool-calling chat model to Gateway.
type ChatGateway struct {
	model     einomodel.ToolCallingChatModel
	modelName string
}

func NewChatGateway(m einomodel.ToolCallingChatModel, modelName string) *ChatGateway {
	return &ChatGateway{model: m, modelName: modelName}
}

func (g *ChatGateway) Generate(ctx context.Context, msgs []*schema.Message, opts ...Option) (*schema.Message, error) {
	o := Apply(opts...)

	cm := g.model
	if len(o.Tools) > 0 {
		// WithTools returns a new instance, so concurrent turns never share bindings.
		bound, err := cm.WithTools(o.Tools)
		if err != nil {
			return nil, fmt.Errorf("bind tools for %s: %w", o.Task, err)
		}
		cm = bound
	}

	out, err := cm.Generate(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", o.Task, err)
	}
	if out == nil {
		return nil, errors.New("generate: nil message")
	}

	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		usage := out.ResponseMeta.Usage
		cost := model.CostMeterFrom(ctx).Add(g.modelName, usage)
		logx.Debug().
			Str("task", o.Task).
			Str("model", g.modelName).
			Int("prompt_tokens", usage.PromptTokens).
			Int("completion_tokens", usage.CompletionTokens).
			Int("total_tokens", usage.TotalTokens).
			Float64("total_cost_usd", cost).
			Msg("LLM usage")
	}
	return out, nil
}
