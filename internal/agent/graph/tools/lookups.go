package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/jan-sahayak/server/internal/agent/model"
	"github.com/jan-sahayak/server/internal/agent/retrieval"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

const (
	noPolicyFound   = "No specific policy found for this query."
	noSchemesFound  = "No specific schemes found matching this profile."
	lookupFailedFmt = "The %s lookup is unavailable right now. Continue with what you already know and say the documents could not be checked."
)

// ===================================
// Policy text lookup
// ===================================

func newRetrievePolicyTool(search retrieval.Searcher) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolRetrievePolicy,
			Desc: "Retrieves official government policy text for a question. Use it for every policy question and answer only from what it returns.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "The policy question or policy name to look up, e.g. 'zoning policy residential limits'.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *model.PolicyLookupArgs) (string, error) {
			query := strings.TrimSpace(in.Query)
			if query == "" {
				return noPolicyFound, nil
			}
			docs, err := search.Search(ctx, query)
			if err != nil {
				logx.Warn().Err(err).Str("tool", ToolRetrievePolicy).Str("query", query).Msg("policy lookup failed")
				return fmt.Sprintf(lookupFailedFmt, "policy"), nil
			}
			if len(docs) == 0 {
				return noPolicyFound, nil
			}
			blocks := make([]string, 0, len(docs))
			for _, d := range docs {
				blocks = append(blocks, fmt.Sprintf("Source: %s\nContent: %s", sourceOr(d, "Policy Doc"), strings.TrimSpace(d.Content)))
			}
			return strings.Join(blocks, "\n\n"), nil
		},
	)
}

// ===================================
// Eligibility rule lookup
// ===================================

func newCheckEligibilityRulesTool(search retrieval.Searcher) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolCheckEligibilityRules,
			Desc: "Finds the official eligibility rules of a scheme so they can be compared against the citizen's details.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"age": {
					Type: "number",
					Desc: "Citizen age in years, if known",
				},
				"income": {
					Type: "number",
					Desc: "Citizen annual income in rupees, if known",
				},
				"location": {
					Type: "string",
					Desc: "State or district, if known",
				},
				"scheme_name": {
					Type:     "string",
					Desc:     "Name of the scheme to check, e.g. 'Senior Pension'",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *model.EligibilityRuleArgs) (string, error) {
			scheme := strings.TrimSpace(in.SchemeName)
			if err := model.ValidateSchemeName(scheme); err != nil {
				return fmt.Sprintf("Could not check eligibility: %s. Ask the citizen which scheme they mean.", err), nil
			}
			docs, err := search.Search(ctx, "eligibility rules for "+scheme)
			if err != nil {
				logx.Warn().Err(err).Str("tool", ToolCheckEligibilityRules).Str("scheme", scheme).Msg("eligibility rule lookup failed")
				return fmt.Sprintf(lookupFailedFmt, "eligibility rule"), nil
			}
			if len(docs) == 0 {
				return fmt.Sprintf("Could not find specific eligibility rules for %s in the database.", scheme), nil
			}
			rules := make([]string, 0, len(docs))
			for _, d := range docs {
				rules = append(rules, strings.TrimSpace(d.Content))
			}
			return fmt.Sprintf(
				"Found the following rules for %s:\n%s\n\nPlease evaluate the user's profile (Age: %s, Income: %s, Location: %s) against these rules.",
				scheme, strings.Join(rules, "\n"), flexOr(in.Age), flexOr(in.Income), stringOr(in.Location),
			), nil
		},
	)
}

// ===================================
// Benefits database lookup
// ===================================

func newFindBenefitsDatabaseTool(search retrieval.Searcher) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolFindBenefitsDatabase,
			Desc: "Searches central, state, local and NGO schemes matching a citizen profile summary.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"profile_summary": {
					Type:     "string",
					Desc:     "Short summary of the citizen profile, e.g. 'age 70, income 50000, Kerala, widow'",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *model.BenefitsLookupArgs) (string, error) {
			summary := strings.TrimSpace(in.ProfileSummary)
			if summary == "" {
				return noSchemesFound, nil
			}
			docs, err := search.Search(ctx, "government schemes and benefits for "+summary)
			if err != nil {
				logx.Warn().Err(err).Str("tool", ToolFindBenefitsDatabase).Msg("benefits lookup failed")
				return fmt.Sprintf(lookupFailedFmt, "benefits"), nil
			}
			if len(docs) == 0 {
				return noSchemesFound, nil
			}
			items := make([]string, 0, len(docs))
			for _, d := range docs {
				items = append(items, fmt.Sprintf("- %s (Source: %s)", strings.TrimSpace(d.Content), sourceOr(d, "Unknown")))
			}
			return "Found the following potential schemes:\n" + strings.Join(items, "\n\n"), nil
		},
	)
}

func sourceOr(d *schema.Document, fallback string) string {
	if s, ok := d.MetaData[retrieval.MetaSource].(string); ok && s != "" {
		return s
	}
	return fallback
}

func flexOr(f *model.Flex) string {
	if f == nil || *f == "" {
		return "unknown"
	}
	return string(*f)
}

func stringOr(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return strings.TrimSpace(s)
}
