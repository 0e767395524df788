package pipelines

import (
	"context"

	"github.com/jan-sahayak/server/internal/agent/graph/prompts"
	"github.com/jan-sahayak/server/internal/agent/model"
)

type (
	BenefitsState    = State[model.CitizenProfile, model.BenefitsAnalysis]
	BenefitsPipeline = Pipeline[model.CitizenProfile, model.BenefitsAnalysis]
)

type benefitsSpecialist struct {
	base
}

func NewBenefits(ctx context.Context, deps Deps) (*BenefitsPipeline, error) {
	b, err := newBase(ctx, model.RouteBenefits, deps)
	if err != nil {
		return nil, err
	}
	return New[model.CitizenProfile, model.BenefitsAnalysis](ctx, &benefitsSpecialist{base: b}, deps.Cache)
}

func (s *benefitsSpecialist) Extract(ctx context.Context, in Input) (model.CitizenProfile, error) {
	var p model.CitizenProfile
	err := s.extract(ctx, in, &p)
	return p, err
}

func (s *benefitsSpecialist) Empty(Input) model.CitizenProfile {
	return model.CitizenProfile{}
}

func (s *benefitsSpecialist) ProfileOf(p model.CitizenProfile) *model.CitizenProfile {
	return &p
}

func (s *benefitsSpecialist) Context(ctx context.Context, st BenefitsState) (string, string) {
	text := s.retrieve(ctx, "government schemes and benefits for "+st.Profile.Summary())
	return text, st.Profile.Key() + "|" + headRunes(text, contextKeyRunes)
}

func (s *benefitsSpecialist) Analyze(ctx context.Context, st BenefitsState) (*model.BenefitsAnalysis, error) {
	var a model.BenefitsAnalysis
	err := s.analyze(ctx, st.Input, prompts.Vars{
		"Profile": st.Profile.Summary(),
		"Context": st.Context,
	}, &a)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *benefitsSpecialist) Synthesize(ctx context.Context, st BenefitsState) (string, error) {
	return s.synthesize(ctx, st.Input, st.Analysis)
}
