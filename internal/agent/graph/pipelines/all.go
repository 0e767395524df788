package pipelines

import (
	"context"

	"github.com/jan-sahayak/server/internal/agent/model"
)

// NewAll builds the four specialist pipelines keyed by route.
func NewAll(ctx context.Context, deps Deps) (map[model.Route]Runner, error) {
	policy, err := NewPolicy(ctx, deps)
	if err != nil {
		return nil, err
	}
	eligibility, err := NewEligibility(ctx, deps)
	if err != nil {
		return nil, err
	}
	benefits, err := NewBenefits(ctx, deps)
	if err != nil {
		return nil, err
	}
	advocacy, err := NewAdvocacy(ctx, deps)
	if err != nil {
		return nil, err
	}
	return map[model.Route]Runner{
		model.RoutePolicy:      policy,
		model.RouteEligibility: eligibility,
		model.RouteBenefits:    benefits,
		model.RouteAdvocacy:    advocacy,
	}, nil
}
