package pipelines

import (
	"context"
	"fmt"
	"strings"

	"github.com/jan-sahayak/server/internal/agent/graph/prompts"
	"github.com/jan-sahayak/server/internal/agent/model"
)

type (
	PolicyState    = State[model.PolicyQuery, model.PolicyAnalysis]
	PolicyPipeline = Pipeline[model.PolicyQuery, model.PolicyAnalysis]
)

// policySpecialist explains policy text, always citing sources or saying
// nothing was found.
type policySpecialist struct {
	base
}

func NewPolicy(ctx context.Context, deps Deps) (*PolicyPipeline, error) {
	b, err := newBase(ctx, model.RoutePolicy, deps)
	if err != nil {
		return nil, err
	}
	return New[model.PolicyQuery, model.PolicyAnalysis](ctx, &policySpecialist{base: b}, deps.Cache)
}

func (s *policySpecialist) Extract(ctx context.Context, in Input) (model.PolicyQuery, error) {
	var q model.PolicyQuery
	err := s.extract(ctx, in, &q)
	return q, err
}

func (s *policySpecialist) Empty(Input) model.PolicyQuery {
	return model.PolicyQuery{Aspect: model.AspectExplanation}
}

func (s *policySpecialist) ProfileOf(model.PolicyQuery) *model.CitizenProfile {
	return nil
}

func (s *policySpecialist) Context(ctx context.Context, st PolicyState) (string, string) {
	query := strings.TrimSpace(st.Extracted.PolicyName + " " + st.Input.Query)
	text := s.retrieve(ctx, query)
	return text, headRunes(text, contextKeyRunes)
}

func (s *policySpecialist) Analyze(ctx context.Context, st PolicyState) (*model.PolicyAnalysis, error) {
	var a model.PolicyAnalysis
	err := s.analyze(ctx, st.Input, prompts.Vars{
		"PolicyName": orDefault(st.Extracted.PolicyName, "not named"),
		"Aspect":     string(model.ParsePolicyAspect(string(st.Extracted.Aspect))),
		"Profile":    st.Profile.Summary(),
		"Context":    st.Context,
	}, &a)
	if err != nil {
		return nil, err
	}
	if a.PolicyName == "" {
		a.PolicyName = st.Extracted.PolicyName
	}
	return &a, nil
}

func (s *policySpecialist) Synthesize(ctx context.Context, st PolicyState) (string, error) {
	md, err := s.synthesize(ctx, st.Input, st.Analysis)
	if err != nil {
		return "", err
	}
	return withSources(md, st.Analysis.Citations), nil
}

// withSources appends the citation list, or the not-found note when the
// analysis cites nothing.
func withSources(md string, cites []model.Citation) string {
	md = strings.TrimRight(md, "\n")
	if len(cites) == 0 {
		return md + "\n\n" + model.PolicyNotFoundNote
	}
	var b strings.Builder
	b.WriteString(md)
	b.WriteString("\n\n**Sources**\n")
	seen := map[string]bool{}
	for _, c := range cites {
		if seen[c.Source] {
			continue
		}
		seen[c.Source] = true
		if c.Excerpt != "" {
			fmt.Fprintf(&b, "- %s: \"%s\"\n", c.Source, strings.TrimSpace(c.Excerpt))
		} else {
			fmt.Fprintf(&b, "- %s\n", c.Source)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
