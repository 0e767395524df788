package model

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// Pricing defines USD cost per 1M tokens for input/output.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

// defaultPricing holds USD pricing per 1M text tokens.
var defaultPricing = map[string]Pricing{
	"gemini-2.5-pro":        {InputPerM: 1.25, OutputPerM: 10.00},
	"gemini-2.5-flash":      {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite": {InputPerM: 0.10, OutputPerM: 0.40},
	"gemini-2.0-flash":      {InputPerM: 0.10, OutputPerM: 0.40},
}

// ResolvePricing returns pricing for a model; unknown models cost zero.
func ResolvePricing(model string) Pricing {
	return defaultPricing[model]
}

// ComputeCost converts token usage to USD cost using per-1M Pricing.
func ComputeCost(usage *schema.TokenUsage, p Pricing) (inputCost, outputCost, total float64) {
	if usage == nil {
		return 0, 0, 0
	}
	inputCost = p.InputPerM * float64(usage.PromptTokens) / 1_000_000.0
	outputCost = p.OutputPerM * float64(usage.CompletionTokens) / 1_000_000.0
	total = inputCost + outputCost
	return
}

// CostSummary is the accumulated model usage of one turn.
type CostSummary struct {
	Calls            int     `json:"calls"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalUSD         float64 `json:"total_usd"`
}

// CostMeter accumulates usage across every model call made for one turn.
type CostMeter struct {
	mu  sync.Mutex
	sum CostSummary
}

// Add records one call and returns its cost. A nil meter only computes.
func (m *CostMeter) Add(modelName string, usage *schema.TokenUsage) float64 {
	_, _, total := ComputeCost(usage, ResolvePricing(modelName))
	if m == nil {
		return total
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sum.Calls++
	if usage != nil {
		m.sum.PromptTokens += usage.PromptTokens
		m.sum.CompletionTokens += usage.CompletionTokens
	}
	m.sum.TotalUSD += total
	return total
}

func (m *CostMeter) Summary() CostSummary {
	if m == nil {
		return CostSummary{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sum
}

type costMeterKey struct{}

func WithCostMeter(ctx context.Context, m *CostMeter) context.Context {
	return context.WithValue(ctx, costMeterKey{}, m)
}

// CostMeterFrom returns the turn's meter, or nil outside a turn.
func CostMeterFrom(ctx context.Context) *CostMeter {
	m, _ := ctx.Value(costMeterKey{}).(*CostMeter)
	return m
}
