package catalog

import (
	"github.com/dusk-indust/genpipe/internal/agent"
	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

// BusinessPlanSynthesis maps the research payloads into business plan fields.
func BusinessPlanSynthesis(minContributors int) orchestrator.SynthesisPlan {
	market := agent.RoleMarketSize.StageID()
	comp := agent.RoleCompetitors.StageID()
	pricing := agent.RolePricing.StageID()
	gtm := agent.RoleGTM.StageID()

	return orchestrator.SynthesisPlan{
		Contributors:    []orchestrator.StageID{market, comp, pricing, gtm},
		MinContributors: minContributors,
		Fields: []orchestrator.FieldMapping{
			{Field: "title", Stage: market, Path: "title"},
			{Field: "tagline", Stage: market, Path: "tagline"},

			{Field: "problem", Stage: gtm, Path: "problemStatement"},
			{Field: "painPoints", Stage: gtm, Path: "painPoints"},
			{Field: "solution", Stage: gtm, Path: "solution"},
			{Field: "uniqueValueProp", Stage: gtm, Path: "gtmStrategy.messaging.valueProposition"},

			{Field: "marketSize", Stage: market, Path: "summary"},
			{Field: "marketGrowth", Stage: market, Path: "growthRate"},
			{Field: "marketDescription", Stage: market, Path: "description"},
			{Field: "targetCustomer", Stage: market, Path: "targetCustomer"},
			{Field: "marketTrends", Stage: market, Path: "marketTrends"},

			{Field: "competitors", Stage: comp, Path: "competitors"},
			{Field: "marketSaturation", Stage: comp, Path: "competitiveLandscape.marketSaturation"},
			{Field: "barriersToEntry", Stage: comp, Path: "competitiveLandscape.barriersToEntry"},

			{Field: "revenueModel", Stage: pricing, Path: "pricingStrategy.recommendedModel"},
			{Field: "pricingStrategy", Stage: pricing, Path: "strategySummary"},
			{Field: "pricePoints", Stage: pricing, Path: "pricingStrategy.pricePoints"},
			{Field: "pricingRationale", Stage: pricing, Path: "pricingStrategy.rationale"},
			{Field: "revenueStreams", Stage: pricing, Path: "revenueStreams"},

			{Field: "channels", Stage: gtm, Path: "gtmStrategy.recommendedChannels"},
			{Field: "marketingStrategy", Stage: gtm, Path: "marketingStrategy"},
			{Field: "salesStrategy", Stage: gtm, Path: "salesStrategy"},
			{Field: "timeline", Stage: gtm, Path: "gtmStrategy.timeline"},
			{Field: "marketingBudget", Stage: gtm, Path: "gtmStrategy.budget"},

			{Field: "keyMetrics", Stage: market, Path: "keyMetrics"},
			{Field: "costStructure", Stage: pricing, Path: "costStructure"},
			{Field: "fundingNeeds", Stage: pricing, Path: "fundingNeeds"},

			{Field: "riskFactors", Stage: comp, Path: "riskFactors"},
			{Field: "opportunities", Stage: market, Path: "opportunities"},
			{Field: "nextSteps", Stage: gtm, Path: "nextSteps"},
		},
	}
}
