package model

// Argument shapes of the lookup tools a specialist's model call may request.

type PolicyLookupArgs struct {
	Query string `json:"query"`
}

type EligibilityRuleArgs struct {
	Age        *Flex  `json:"age,omitempty"`
	Income     *Flex  `json:"income,omitempty"`
	Location   string `json:"location,omitempty"`
	SchemeName string `json:"scheme_name"`
}

type BenefitsLookupArgs struct {
	ProfileSummary string `json:"profile_summary"`
}
