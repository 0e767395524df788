package pipelines

import (
	"context"

	"github.com/jan-sahayak/server/internal/agent/graph/prompts"
	"github.com/jan-sahayak/server/internal/agent/model"
)

type (
	EligibilityState    = State[model.EligibilityRequest, model.EligibilityAnalysis]
	EligibilityPipeline = Pipeline[model.EligibilityRequest, model.EligibilityAnalysis]
)

type eligibilitySpecialist struct {
	base
}

func NewEligibility(ctx context.Context, deps Deps) (*EligibilityPipeline, error) {
	b, err := newBase(ctx, model.RouteEligibility, deps)
	if err != nil {
		return nil, err
	}
	return New[model.EligibilityRequest, model.EligibilityAnalysis](ctx, &eligibilitySpecialist{base: b}, deps.Cache)
}

func (s *eligibilitySpecialist) Extract(ctx context.Context, in Input) (model.EligibilityRequest, error) {
	var r model.EligibilityRequest
	err := s.extract(ctx, in, &r)
	return r, err
}

func (s *eligibilitySpecialist) Empty(Input) model.EligibilityRequest {
	return model.EligibilityRequest{}
}

func (s *eligibilitySpecialist) ProfileOf(r model.EligibilityRequest) *model.CitizenProfile {
	return &r.Profile
}

// Context is empty: the rules arrive through the lookup tool. The profile
// and scheme identify the result.
func (s *eligibilitySpecialist) Context(_ context.Context, st EligibilityState) (string, string) {
	return "", st.Profile.Key() + "|" + st.Extracted.Scheme
}

func (s *eligibilitySpecialist) Analyze(ctx context.Context, st EligibilityState) (*model.EligibilityAnalysis, error) {
	location := "Unknown"
	if st.Profile != nil && st.Profile.Location != nil && *st.Profile.Location != "" {
		location = *st.Profile.Location
	}

	var a model.EligibilityAnalysis
	err := s.analyze(ctx, st.Input, prompts.Vars{
		"Scheme":   orDefault(st.Extracted.Scheme, "not specified; infer it from the question"),
		"Profile":  st.Profile.Summary(),
		"Location": location,
	}, &a)
	if err != nil {
		return nil, err
	}
	if a.Scheme == "" {
		a.Scheme = st.Extracted.Scheme
	}
	a.Ground(st.Profile)
	return &a, nil
}

func (s *eligibilitySpecialist) Synthesize(ctx context.Context, st EligibilityState) (string, error) {
	return s.synthesize(ctx, st.Input, st.Analysis)
}
