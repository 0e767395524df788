package pipelines

import (
	"context"
	"strings"

	"github.com/jan-sahayak/server/internal/agent/graph/prompts"
	"github.com/jan-sahayak/server/internal/agent/model"
)

type (
	AdvocacyState    = State[model.AdvocacyRequest, model.AdvocacyAnalysis]
	AdvocacyPipeline = Pipeline[model.AdvocacyRequest, model.AdvocacyAnalysis]
)

type advocacySpecialist struct {
	base
}

func NewAdvocacy(ctx context.Context, deps Deps) (*AdvocacyPipeline, error) {
	b, err := newBase(ctx, model.RouteAdvocacy, deps)
	if err != nil {
		return nil, err
	}
	return New[model.AdvocacyRequest, model.AdvocacyAnalysis](ctx, &advocacySpecialist{base: b}, deps.Cache)
}

func (s *advocacySpecialist) Extract(ctx context.Context, in Input) (model.AdvocacyRequest, error) {
	var r model.AdvocacyRequest
	err := s.extract(ctx, in, &r)
	return r, err
}

func (s *advocacySpecialist) Empty(Input) model.AdvocacyRequest {
	return model.AdvocacyRequest{Scheme: model.GeneralApplicationScheme, Situation: model.SituationGeneral}
}

func (s *advocacySpecialist) ProfileOf(r model.AdvocacyRequest) *model.CitizenProfile {
	return &r.Profile
}

func (s *advocacySpecialist) Context(_ context.Context, st AdvocacyState) (string, string) {
	r := st.Extracted
	return "", strings.Join([]string{r.Scheme, string(r.Situation), r.RejectionReason}, "|")
}

func (s *advocacySpecialist) Analyze(ctx context.Context, st AdvocacyState) (*model.AdvocacyAnalysis, error) {
	r := st.Extracted
	var a model.AdvocacyAnalysis
	err := s.analyze(ctx, st.Input, prompts.Vars{
		"Scheme":          orDefault(r.Scheme, model.GeneralApplicationScheme),
		"Situation":       string(model.ParseSituation(string(r.Situation))),
		"RejectionReason": r.RejectionReason,
		"Profile":         st.Profile.Summary(),
	}, &a)
	if err != nil {
		return nil, err
	}
	if a.Scheme == "" {
		a.Scheme = orDefault(r.Scheme, model.GeneralApplicationScheme)
	}
	if r.Situation != "" && a.Situation == model.SituationGeneral {
		a.Situation = r.Situation
	}
	return &a, nil
}

func (s *advocacySpecialist) Synthesize(ctx context.Context, st AdvocacyState) (string, error) {
	return s.synthesize(ctx, st.Input, st.Analysis)
}
