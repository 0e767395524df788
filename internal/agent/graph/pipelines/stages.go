package pipelines

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/jan-sahayak/server/internal/agent/cache"
	"github.com/jan-sahayak/server/internal/agent/graph/parsers"
	"github.com/jan-sahayak/server/internal/agent/graph/prompts"
	"github.com/jan-sahayak/server/internal/agent/graph/tools"
	"github.com/jan-sahayak/server/internal/agent/llm"
	"github.com/jan-sahayak/server/internal/agent/metrics"
	"github.com/jan-sahayak/server/internal/agent/model"
	"github.com/jan-sahayak/server/internal/agent/retrieval"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

// contextKeyRunes bounds how much retrieved text enters a cache key.
const contextKeyRunes = 200

// Deps are the collaborators shared by every specialist.
type Deps struct {
	// Analysis serves extraction and analysis calls.
	Analysis llm.Gateway
	// Response serves synthesis calls.
	Response llm.Gateway

	Retriever retrieval.Retriever
	Searcher  retrieval.Searcher
	Cache     *cache.FIFO[any]

	MaxToolCalls int
	ToolTimeout  time.Duration
}

func (d Deps) validate() error {
	if d.Analysis == nil || d.Response == nil {
		return fmt.Errorf("pipelines: analysis and response gateways are required")
	}
	return nil
}

// base carries the plumbing every specialist repeats.
type base struct {
	route      model.Route
	deps       Deps
	dispatcher *tools.Dispatcher
	toolName   string
}

func newBase(ctx context.Context, route model.Route, deps Deps) (base, error) {
	if err := deps.validate(); err != nil {
		return base{}, err
	}
	var ts []tool.BaseTool
	if deps.Searcher != nil {
		ts = tools.ForRoute(route, deps.Searcher)
	}
	d, err := tools.NewDispatcher(ctx, route, ts, deps.MaxToolCalls, deps.ToolTimeout)
	if err != nil {
		return base{}, err
	}
	b := base{route: route, deps: deps, dispatcher: d}
	if infos := d.Tools(); len(infos) > 0 {
		b.toolName = infos[0].Name
	}
	return b, nil
}

func (b base) Route() model.Route {
	return b.route
}

func (b base) task(stage string) llm.Option {
	return llm.WithTask(llm.Task(Scope(b.route), stage))
}

func (b base) vars(in Input, extra prompts.Vars) prompts.Vars {
	v := prompts.Vars{
		"Language": in.Language,
		"HasTools": b.toolName != "",
		"Tool":     b.toolName,
	}
	for k, val := range extra {
		v[k] = val
	}
	return v
}

// extract decodes the stage-one structured call into out.
func (b base) extract(ctx context.Context, in Input, out any) error {
	system, err := prompts.Render(ctx, prompts.Stage(Scope(b.route), StageExtract), b.vars(in, nil))
	if err != nil {
		return err
	}
	return llm.Decode(ctx, b.deps.Analysis, system, in.Query, out, b.task(StageExtract))
}

// analyze runs the analysis call through the tool loop and decodes the final
// answer into out.
func (b base) analyze(ctx context.Context, in Input, extra prompts.Vars, out any) error {
	system, err := prompts.Render(ctx, prompts.Stage(Scope(b.route), StageAnalyze), b.vars(in, extra))
	if err != nil {
		return err
	}
	instruction, err := llm.SchemaInstruction(out)
	if err != nil {
		return err
	}
	msgs := []*schema.Message{
		schema.SystemMessage(system + "\n\n" + instruction),
		schema.UserMessage(in.Query),
	}

	task := b.task(StageAnalyze)
	res, err := b.dispatcher.Run(ctx, msgs, func(ctx context.Context, msgs []*schema.Message, ts []*schema.ToolInfo) (*schema.Message, error) {
		return b.deps.Analysis.Generate(ctx, msgs, task, llm.WithTools(ts))
	})
	if err != nil {
		return err
	}
	if res == nil || strings.TrimSpace(res.Content) == "" {
		return llm.ErrEmptyResponse
	}
	return parsers.DecodeJSON(res.Content, out)
}

// synthesize writes the localized markdown for analysis.
func (b base) synthesize(ctx context.Context, in Input, analysis any) (string, error) {
	system, err := prompts.Render(ctx, prompts.Stage(Scope(b.route), StageSynthesize), b.vars(in, nil))
	if err != nil {
		return "", err
	}
	body, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal analysis: %w", err)
	}
	return llm.Text(ctx, b.deps.Response, system, "ANALYSIS:\n"+string(body), b.task(StageSynthesize))
}

// retrieve returns formatted context for query. Failures degrade to the
// no-documents sentinel.
func (b base) retrieve(ctx context.Context, query string) string {
	if b.deps.Retriever == nil {
		return model.NoDocumentsFound
	}
	text, err := b.deps.Retriever.Retrieve(ctx, query)
	if err != nil {
		metrics.StageFailures.WithLabelValues(string(b.route), "retrieve").Inc()
		logx.Warn().Err(err).Str("route", string(b.route)).Msg("retrieval failed")
		return model.NoDocumentsFound
	}
	return text
}

func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
