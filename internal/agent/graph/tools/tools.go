// Package tools holds the lookup tools a specialist's analysis call may
// request, and the dispatcher that runs them.
package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/jan-sahayak/server/internal/agent/model"
	"github.com/jan-sahayak/server/internal/agent/retrieval"
)

const (
	ToolRetrievePolicy        = "retrieve_policy"
	ToolCheckEligibilityRules = "check_eligibility_rules"
	ToolFindBenefitsDatabase  = "find_benefits_database"
)

// ForRoute returns the tools offered to a specialist. Advocacy has none.
func ForRoute(route model.Route, search retrieval.Searcher) []tool.BaseTool {
	switch route {
	case model.RoutePolicy:
		return []tool.BaseTool{newRetrievePolicyTool(search)}
	case model.RouteEligibility:
		return []tool.BaseTool{newCheckEligibilityRulesTool(search)}
	case model.RouteBenefits:
		return []tool.BaseTool{newFindBenefitsDatabaseTool(search)}
	default:
		return nil
	}
}

func Infos(ctx context.Context, ts []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(ts))
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
