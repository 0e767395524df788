package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jan-sahayak/server/internal/agent/llm"
	"github.com/jan-sahayak/server/internal/agent/llm/llmtest"
	"github.com/jan-sahayak/server/internal/agent/model"
	"github.com/jan-sahayak/server/internal/agent/retrieval"
)

type fakeSearch struct {
	docs    []*schema.Document
	err     error
	queries []string
}

func (f *fakeSearch) Search(_ context.Context, q string) ([]*schema.Document, error) {
	f.queries = append(f.queries, q)
	return f.docs, f.err
}

func zoningDocs() []*schema.Document {
	return []*schema.Document{{
		ID:       "zoning.md",
		Content:  "Residential plots may not exceed two floors.",
		MetaData: map[string]any{retrieval.MetaSource: "zoning.md"},
	}}
}

func invoke(t *testing.T, bt tool.BaseTool, args string) string {
	t.Helper()
	it, ok := bt.(tool.InvokableTool)
	require.True(t, ok)
	out, err := it.InvokableRun(context.Background(), args)
	require.NoError(t, err)
	return out
}

func TestRetrievePolicy(t *testing.T) {
	fs := &fakeSearch{docs: zoningDocs()}
	out := invoke(t, ForRoute(model.RoutePolicy, fs)[0], `{"query":"zoning"}`)
	assert.Equal(t, "Source: zoning.md\nContent: Residential plots may not exceed two floors.", out)

	empty := invoke(t, ForRoute(model.RoutePolicy, &fakeSearch{})[0], `{"query":"zoning"}`)
	assert.Equal(t, noPolicyFound, empty)

	failing := invoke(t, ForRoute(model.RoutePolicy, &fakeSearch{err: errors.New("down")})[0], `{"query":"zoning"}`)
	assert.Contains(t, failing, "unavailable")
}

func TestCheckEligibilityRules(t *testing.T) {
	fs := &fakeSearch{docs: []*schema.Document{{Content: "Applicants must be 60 or older."}}}
	out := invoke(t, ForRoute(model.RouteEligibility, fs)[0], `{"age":70,"income":"50000","scheme_name":"SeniorPension"}`)
	assert.Contains(t, out, "Found the following rules for SeniorPension:\nApplicants must be 60 or older.")
	assert.Contains(t, out, "(Age: 70, Income: 50000, Location: unknown)")
	assert.Equal(t, []string{"eligibility rules for SeniorPension"}, fs.queries)

	none := invoke(t, ForRoute(model.RouteEligibility, &fakeSearch{})[0], `{"scheme_name":"SeniorPension"}`)
	assert.Equal(t, "Could not find specific eligibility rules for SeniorPension in the database.", none)

	short := invoke(t, ForRoute(model.RouteEligibility, fs)[0], `{"scheme_name":"x"}`)
	assert.Contains(t, short, "Could not check eligibility")
}

func TestFindBenefitsDatabase(t *testing.T) {
	fs := &fakeSearch{docs: zoningDocs()}
	out := invoke(t, ForRoute(model.RouteBenefits, fs)[0], `{"profile_summary":"age 70"}`)
	assert.Equal(t, "Found the following potential schemes:\n- Residential plots may not exceed two floors. (Source: zoning.md)", out)

	none := invoke(t, ForRoute(model.RouteBenefits, &fakeSearch{})[0], `{"profile_summary":"age 70"}`)
	assert.Equal(t, noSchemesFound, none)
}

func TestForRouteToolSets(t *testing.T) {
	assert.Empty(t, ForRoute(model.RouteAdvocacy, &fakeSearch{}))
	for _, route := range []model.Route{model.RoutePolicy, model.RouteEligibility, model.RouteBenefits} {
		assert.Len(t, ForRoute(route, &fakeSearch{}), 1, route)
	}
}

func TestSanitizeArguments(t *testing.T) {
	out, err := sanitizeArguments(context.Background(), ToolCheckEligibilityRules,
		`{"age":"70","income":"50,000","scheme_name":"  SeniorPension ","location":null}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"age":70,"income":50000,"scheme_name":"SeniorPension"}`, out)

	out, err = sanitizeArguments(context.Background(), ToolCheckEligibilityRules, `{"age":400,"scheme_name":"abc"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"scheme_name":"abc"}`, out)

	out, err = sanitizeArguments(context.Background(), ToolRetrievePolicy, `not json`)
	require.NoError(t, err)
	assert.Equal(t, "not json", out)
}

func TestUnknownTool(t *testing.T) {
	out, err := unknownTool(context.Background(), "", "{}")
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"unknown_tool","name":"","note":"ignored"}`, out)
}

func callWith(gw llm.Gateway, task string) Call {
	return func(ctx context.Context, msgs []*schema.Message, ts []*schema.ToolInfo) (*schema.Message, error) {
		return gw.Generate(ctx, msgs, llm.WithTask(task), llm.WithTools(ts))
	}
}

func policyToolCall(id string) schema.ToolCall {
	return schema.ToolCall{ID: id, Function: schema.FunctionCall{Name: ToolRetrievePolicy, Arguments: `{"query":" zoning "}`}}
}

func TestDispatcherReturnsToolResultsToTheSameCall(t *testing.T) {
	ctx := context.Background()
	fs := &fakeSearch{docs: zoningDocs()}
	d, err := NewDispatcher(ctx, model.RoutePolicy, ForRoute(model.RoutePolicy, fs), 5, 0)
	require.NoError(t, err)

	gw := llmtest.New().On("policy.analyze",
		llmtest.Reply{ToolCalls: []schema.ToolCall{policyToolCall("")}},
		llmtest.Reply{Content: `{"summary":"done"}`},
	)
	out, err := d.Run(ctx, []*schema.Message{schema.UserMessage("zoning?")}, callWith(gw, "policy.analyze"))
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"done"}`, out.Content)

	reqs := gw.Requests("policy.analyze")
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[0].Tools, 1)

	second := reqs[1].Messages
	last := second[len(second)-1]
	assert.Equal(t, schema.Tool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)
	assert.Contains(t, last.Content, "Source: zoning.md")
	assert.Equal(t, []string{"zoning"}, fs.queries)
}

func TestDispatcherWrapsUpAtLimit(t *testing.T) {
	ctx := context.Background()
	d, err := NewDispatcher(ctx, model.RoutePolicy, ForRoute(model.RoutePolicy, &fakeSearch{docs: zoningDocs()}), 1, 0)
	require.NoError(t, err)

	gw := llmtest.New().On("policy.analyze", llmtest.Reply{Content: "partial", ToolCalls: []schema.ToolCall{policyToolCall("a")}})
	out, err := d.Run(ctx, []*schema.Message{schema.UserMessage("zoning?")}, callWith(gw, "policy.analyze"))
	require.NoError(t, err)
	assert.Equal(t, "partial", out.Content)

	reqs := gw.Requests("policy.analyze")
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[1].Tools)
	msgs := reqs[1].Messages
	assert.Equal(t, schema.System, msgs[len(msgs)-1].Role)
	assert.Contains(t, msgs[len(msgs)-1].Content, "maximum tool call limit (1)")
}

func TestDispatcherWithoutToolsCallsOnce(t *testing.T) {
	ctx := context.Background()
	d, err := NewDispatcher(ctx, model.RouteAdvocacy, nil, 0, 0)
	require.NoError(t, err)

	gw := llmtest.New().OnText("advocacy.analyze", "plan")
	out, err := d.Run(ctx, []*schema.Message{schema.UserMessage("help")}, callWith(gw, "advocacy.analyze"))
	require.NoError(t, err)
	assert.Equal(t, "plan", out.Content)
	assert.Equal(t, 1, gw.Total())
}

func TestDispatcherPropagatesModelError(t *testing.T) {
	ctx := context.Background()
	d, err := NewDispatcher(ctx, model.RoutePolicy, ForRoute(model.RoutePolicy, &fakeSearch{}), 0, 0)
	require.NoError(t, err)

	gw := llmtest.New().FailAll(errors.New("boom"))
	_, err = d.Run(ctx, []*schema.Message{schema.UserMessage("x")}, callWith(gw, "policy.analyze"))
	require.Error(t, err)
}
