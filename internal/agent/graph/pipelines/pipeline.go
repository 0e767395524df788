// Package pipelines implements the extract, analyze, synthesize chain shared
// by every specialist.
package pipelines

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/jan-sahayak/server/internal/agent/cache"
	"github.com/jan-sahayak/server/internal/agent/graph/observers"
	"github.com/jan-sahayak/server/internal/agent/metrics"
	"github.com/jan-sahayak/server/internal/agent/model"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

const (
	StageExtract    = "extract"
	StageAnalyze    = "analyze"
	StageSynthesize = "synthesize"
)

// Specialist supplies the domain half of a pipeline. E is the extraction
// result, A the analysis result.
type Specialist[E, A any] interface {
	Route() model.Route
	Extract(ctx context.Context, in Input) (E, error)
	// Empty is the extraction used when Extract fails.
	Empty(in Input) E
	ProfileOf(e E) *model.CitizenProfile
	// Context gathers analysis context and returns the part of it that
	// identifies the result in the cache.
	Context(ctx context.Context, st State[E, A]) (text, key string)
	Analyze(ctx context.Context, st State[E, A]) (*A, error)
	Synthesize(ctx context.Context, st State[E, A]) (string, error)
}

// Runner is what the orchestrator calls.
type Runner interface {
	Route() model.Route
	Run(ctx context.Context, in Input) Result
}

// Pipeline runs a Specialist as a compiled eino graph.
type Pipeline[E, A any] struct {
	spec     Specialist[E, A]
	cache    *cache.FIFO[any]
	runnable compose.Runnable[State[E, A], State[E, A]]
}

func New[E, A any](ctx context.Context, spec Specialist[E, A], c *cache.FIFO[any]) (*Pipeline[E, A], error) {
	p := &Pipeline[E, A]{spec: spec, cache: c}

	g := compose.NewGraph[State[E, A], State[E, A]]()
	stages := []struct {
		key string
		fn  func(context.Context, State[E, A]) Patch[E, A]
	}{
		{StageExtract, p.extract},
		{StageAnalyze, p.analyze},
		{StageSynthesize, p.synthesize},
	}
	prev := compose.START
	for _, s := range stages {
		if err := g.AddLambdaNode(s.key, compose.InvokableLambda(p.node(s.key, s.fn))); err != nil {
			return nil, fmt.Errorf("add %s node: %w", s.key, err)
		}
		if err := g.AddEdge(prev, s.key); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", prev, s.key, err)
		}
		prev = s.key
	}
	if err := g.AddEdge(prev, compose.END); err != nil {
		return nil, fmt.Errorf("add edge %s->end: %w", prev, err)
	}

	r, err := g.Compile(ctx, compose.WithGraphName(Scope(spec.Route())+"_pipeline"))
	if err != nil {
		logx.Error().Err(err).Str("route", string(spec.Route())).Msg("Error compiling pipeline")
		return nil, fmt.Errorf("compile %s pipeline: %w", spec.Route(), err)
	}
	p.runnable = r
	return p, nil
}

func (p *Pipeline[E, A]) Route() model.Route {
	return p.spec.Route()
}

// Run never fails: every stage degrades to its fallback instead.
func (p *Pipeline[E, A]) Run(ctx context.Context, in Input) Result {
	start := time.Now()
	out, err := p.runnable.Invoke(ctx, State[E, A]{Input: in})
	if err != nil {
		logx.Error().Err(err).Str("route", string(p.Route())).Msg("pipeline run failed")
		return Result{Markdown: model.SynthesisErrorMessage}
	}
	logx.Debug().Str("route", string(p.Route())).Dur("elapsed", time.Since(start)).
		Bool("analysis", out.Analysis != nil).Msg("pipeline done")
	return Result{Markdown: out.Markdown, Structured: out.JSON}
}

// node adapts a stage into a lambda that applies its patch. A panicking stage
// contributes an empty patch.
func (p *Pipeline[E, A]) node(stage string, fn func(context.Context, State[E, A]) Patch[E, A]) func(context.Context, State[E, A]) (State[E, A], error) {
	return func(ctx context.Context, st State[E, A]) (out State[E, A], err error) {
		defer func() {
			if r := recover(); r != nil {
				p.failed(stage, fmt.Errorf("panic: %v", r))
				out = st.Apply(p.fallback(stage, st))
				err = nil
			}
		}()
		observers.Emit(ctx, fmt.Sprintf("%s: %s", Scope(p.Route()), stage))
		return st.Apply(fn(ctx, st)), nil
	}
}

// fallback is the patch of a stage that did not complete.
func (p *Pipeline[E, A]) fallback(stage string, st State[E, A]) Patch[E, A] {
	switch stage {
	case StageExtract:
		empty := p.spec.Empty(st.Input)
		return Patch[E, A]{Extracted: &empty, Profile: st.Input.Profile.Merge(nil)}
	case StageSynthesize:
		msg := model.SynthesisErrorMessage
		if st.Analysis == nil {
			msg = model.FallbackApology
		}
		return Patch[E, A]{Markdown: &msg}
	default:
		return Patch[E, A]{}
	}
}

func (p *Pipeline[E, A]) failed(stage string, err error) {
	metrics.StageFailures.WithLabelValues(string(p.Route()), stage).Inc()
	logx.Warn().Err(err).Str("route", string(p.Route())).Str("stage", stage).Msg("stage degraded")
}

func (p *Pipeline[E, A]) extract(ctx context.Context, st State[E, A]) Patch[E, A] {
	ext, err := p.spec.Extract(ctx, st.Input)
	if err != nil {
		p.failed(StageExtract, err)
		return p.fallback(StageExtract, st)
	}
	profile := st.Input.Profile.Merge(p.spec.ProfileOf(ext))
	for _, w := range profile.Sanitize() {
		logx.Warn().Str("route", string(p.Route())).Msg(w)
	}
	return Patch[E, A]{Extracted: &ext, Profile: profile}
}

func (p *Pipeline[E, A]) analyze(ctx context.Context, st State[E, A]) Patch[E, A] {
	text, keyContext := p.spec.Context(ctx, st)
	st.Context = text
	key := string(p.Route()) + ":" + cache.Fingerprint(st.Input.Query, keyContext)

	if p.cache != nil {
		if v, ok := p.cache.Get(key); ok {
			if a, ok := v.(*A); ok {
				logx.Debug().Str("route", string(p.Route())).Str("key", key).Msg("analysis cache hit")
				return Patch[E, A]{Context: &text, Analysis: a}
			}
		}
	}

	a, err := p.spec.Analyze(ctx, st)
	if err != nil || a == nil {
		if err == nil {
			err = fmt.Errorf("empty analysis")
		}
		p.failed(StageAnalyze, err)
		return Patch[E, A]{Context: &text}
	}
	if p.cache != nil {
		p.cache.Set(key, a)
	}
	return Patch[E, A]{Context: &text, Analysis: a}
}

func (p *Pipeline[E, A]) synthesize(ctx context.Context, st State[E, A]) Patch[E, A] {
	if st.Analysis == nil {
		msg := model.FallbackApology
		return Patch[E, A]{Markdown: &msg}
	}
	structured, err := toMap(st.Analysis)
	if err != nil {
		logx.Warn().Err(err).Str("route", string(p.Route())).Msg("structured response conversion failed")
	}

	md, err := p.spec.Synthesize(ctx, st)
	if err != nil {
		p.failed(StageSynthesize, err)
		md = model.SynthesisErrorMessage
	}
	return Patch[E, A]{Markdown: &md, JSON: structured}
}

func toMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Scope is the short lower-case name of a specialist route used in task
// labels and prompt names.
func Scope(r model.Route) string {
	switch r {
	case model.RoutePolicy:
		return "policy"
	case model.RouteEligibility:
		return "eligibility"
	case model.RouteBenefits:
		return "benefits"
	case model.RouteAdvocacy:
		return "advocacy"
	case model.RouteConversation:
		return "conversation"
	default:
		return "unknown"
	}
}
