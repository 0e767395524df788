package llm_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jan-sahayak/server/internal/agent/llm"
	"github.com/jan-sahayak/server/internal/agent/llm/llmtest"
	"github.com/jan-sahayak/server/internal/agent/model"
)

func TestTextTrimsAndRejectsEmpty(t *testing.T) {
	gw := llmtest.New().OnText("t", "  hello  ").OnText("empty", "   ")

	got, err := llm.Text(context.Background(), gw, "sys", "hi", llm.WithTask("t"))
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = llm.Text(context.Background(), gw, "", "hi", llm.WithTask("empty"))
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)

	reqs := gw.Requests("empty")
	require.Len(t, reqs, 1)
	assert.Len(t, reqs[0].Messages, 1, "blank system prompt is not sent")
}

func TestDecodeValidatesRoute(t *testing.T) {
	gw := llmtest.New().
		On("route",
			llmtest.Reply{Content: "```json\n{\"next_agent\":\"benefit_matcher\",\"reason\":\"schemes\"}\n```"},
			llmtest.Reply{Content: `{"next_agent":"TAROT_READER"}`},
		)

	var d model.RouteDecision
	require.NoError(t, llm.Decode(context.Background(), gw, "classify", "what can I get?", &d, llm.WithTask("route")))
	assert.Equal(t, model.RouteBenefits, d.Next)

	system := gw.Requests("route")[0].Messages[0].Content
	assert.Contains(t, system, "classify")
	assert.Contains(t, system, "next_agent")
	assert.Contains(t, system, "POLICY_INTERPRETER")

	var bad model.RouteDecision
	assert.Error(t, llm.Decode(context.Background(), gw, "classify", "?", &bad, llm.WithTask("route")))
}

type slowGateway struct{ delay time.Duration }

func (s slowGateway) Generate(ctx context.Context, _ []*schema.Message, _ ...llm.Option) (*schema.Message, error) {
	time.Sleep(s.delay)
	return schema.AssistantMessage("late", nil), nil
}

func TestGuardTimesOutEvenWhenProviderIgnoresContext(t *testing.T) {
	gw := llm.Guard(slowGateway{delay: 500 * time.Millisecond}, 20*time.Millisecond)

	start := time.Now()
	_, err := gw.Generate(context.Background(), nil, llm.WithTask("slow"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

type panicGateway struct{}

func (panicGateway) Generate(context.Context, []*schema.Message, ...llm.Option) (*schema.Message, error) {
	panic("provider bug")
}

func TestGuardRecoversPanics(t *testing.T) {
	_, err := llm.Guard(panicGateway{}, time.Second).Generate(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider bug")
}

func TestGuardPassesThrough(t *testing.T) {
	inner := llmtest.New().OnText("ok", "fine")
	out, err := llm.Guard(inner, 0).Generate(context.Background(), nil, llm.WithTask("ok"))
	require.NoError(t, err)
	assert.Equal(t, "fine", out.Content)
}

// fakeChatModel is a minimal eino ToolCallingChatModel.
type fakeChatModel struct {
	tools []*schema.ToolInfo
	seen  *[]int
}

func (f *fakeChatModel) Generate(ctx context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	*f.seen = append(*f.seen, len(f.tools))
	msg := schema.AssistantMessage("answer", nil)
	msg.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 1000, CompletionTokens: 100, TotalTokens: 1100}}
	return msg, nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return &fakeChatModel{tools: tools, seen: f.seen}, nil
}

func TestChatGatewayBindsToolsPerCallAndMetersCost(t *testing.T) {
	var seen []int
	gw := llm.NewChatGateway(&fakeChatModel{seen: &seen}, "gemini-2.5-flash")

	meter := &model.CostMeter{}
	ctx := model.WithCostMeter(context.Background(), meter)

	_, err := gw.Generate(ctx, []*schema.Message{schema.UserMessage("x")},
		llm.WithTools([]*schema.ToolInfo{{Name: "retrieve_policy"}}))
	require.NoError(t, err)
	_, err = gw.Generate(ctx, []*schema.Message{schema.UserMessage("y")})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 0}, seen, "tool binding must not leak into later calls")
	sum := meter.Summary()
	assert.Equal(t, 2, sum.Calls)
	assert.Equal(t, 2000, sum.PromptTokens)
	assert.Greater(t, sum.TotalUSD, 0.0)
}

func TestSchemaInstructionCached(t *testing.T) {
	a, err := llm.SchemaInstruction(&model.EligibilityAnalysis{})
	require.NoError(t, err)
	b, err := llm.SchemaInstruction(&model.EligibilityAnalysis{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, strings.Contains(a, "possibly_eligible"))
}
