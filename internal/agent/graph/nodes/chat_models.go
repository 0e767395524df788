package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/jan-sahayak/server/internal/agent/llm"
	"github.com/jan-sahayak/server/internal/agent/model"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey   string
	BaseURL  string
	Router   model.ModelParams
	Analysis model.ModelParams
	Response model.ModelParams
	// Timeout bounds every model call.
	Timeout time.Duration
}

// Gateways are the three model roles the graph uses.
type Gateways struct {
	Router   llm.Gateway
	Analysis llm.Gateway
	Response llm.Gateway
}

// NewGateways creates one Gemini client and a guarded gateway per role.
func NewGateways(ctx context.Context, config ChatModelConfig) (*Gateways, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	gws := &Gateways{}
	if gws.Router, err = newGateway(ctx, client, "router", config.Router, config.Timeout); err != nil {
		return nil, err
	}
	if gws.Analysis, err = newGateway(ctx, client, "analysis", config.Analysis, config.Timeout); err != nil {
		return nil, err
	}
	if gws.Response, err = newGateway(ctx, client, "response", config.Response, config.Timeout); err != nil {
		return nil, err
	}
	return gws, nil
}

func newGateway(ctx context.Context, client *genai.Client, role string, p model.ModelParams, timeout time.Duration) (llm.Gateway, error) {
	cm, err := newChatModel(ctx, client, p)
	if err != nil {
		logx.Error().Err(err).Str("role", role).Msg("Error creating chat model")
		return nil, fmt.Errorf("error creating %s model: %w", role, err)
	}
	logx.Debug().Str("role", role).Str("model", p.Model).Msg("Chat model ready")
	return llm.Guard(llm.NewChatGateway(cm, p.Model), timeout), nil
}

func newChatModel(ctx context.Context, client *genai.Client, p model.ModelParams) (*gemini.ChatModel, error) {
	temperature, maxTokens := p.Temperature, p.MaxTokens
	cfg := &gemini.Config{
		Client:      client,
		Model:       p.Model,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
	if p.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(p.ThinkingBudget),
		}
	}
	return gemini.NewChatModel(ctx, cfg)
}
