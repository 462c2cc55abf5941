package catalog

import (
	"fmt"

	"github.com/dusk-indust/genpipe/internal/agent"
	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

// Fallbacks holds the built-in substitute producers. They read only the
// request and static tables.
var Fallbacks = map[agent.Role]orchestrator.FallbackFunc{
	agent.RoleMarketSize: marketFallback,
	agent.RolePricing:    pricingFallback,
	agent.RoleGTM:        gtmFallback,
	agent.RoleBranding:   brandingFallback,
	agent.RoleAnalytics:  analyticsFallback,
}

func marketFallback(req orchestrator.GenerationRequest) orchestrator.GenerationResult {
	b := agent.BriefFrom(req.Params)
	tam, sam, som, growth := agent.MarketFor("Other")
	return orchestrator.GenerationResult{Payload: orchestrator.Payload{
		"tam":            tam,
		"sam":            sam,
		"som":            som,
		"growthRate":     growth,
		"summary":        fmt.Sprintf("%s TAM, %s SAM, %s SOM", tam, sam, som),
		"marketTrends":   []string{"Digital transformation", "Remote work adoption", "AI integration"},
		"title":          agent.Title(b.Idea, b.Industry),
		"tagline":        agent.Tagline(b.Industry),
		"targetCustomer": agent.TargetCustomer(b.TargetMarket),
	}}
}

func pricingFallback(req orchestrator.GenerationRequest) orchestrator.GenerationResult {
	b := agent.BriefFrom(req.Params)
	return orchestrator.GenerationResult{Payload: orchestrator.Payload{
		"pricingStrategy": map[string]any{
			"recommendedModel": "Subscription",
			"pricePoints":      agent.PricePoints(b.TargetMarket),
			"rationale":        "Default subscription tiers for the target market.",
		},
		"costStructure": agent.CostStructure(b.Industry, b.TargetMarket),
		"fundingNeeds":  agent.FundingNeeds(b.Industry, b.TargetMarket),
	}}
}

func gtmFallback(req orchestrator.GenerationRequest) orchestrator.GenerationResult {
	b := agent.BriefFrom(req.Params)
	return orchestrator.GenerationResult{Payload: orchestrator.Payload{
		"painPoints": []string{"Common complaint: integration and usability challenges"},
		"gtmStrategy": map[string]any{
			"recommendedChannels": agent.Channels(b.TargetMarket),
		},
	}}
}

func brandingFallback(req orchestrator.GenerationRequest) orchestrator.GenerationResult {
	b := agent.BriefFrom(req.Params)
	primary, secondary, accent := agent.Palette("")
	return orchestrator.GenerationResult{Payload: orchestrator.Payload{
		"name":    agent.BrandName(b.Idea),
		"tagline": "Innovative solutions for your business",
		"colors": map[string]any{
			"primary":   primary,
			"secondary": secondary,
			"accent":    accent,
		},
	}}
}

func analyticsFallback(orchestrator.GenerationRequest) orchestrator.GenerationResult {
	return orchestrator.GenerationResult{Payload: orchestrator.Payload{
		"provider": "PostHog",
		"status":   "Pending",
		"events":   []string{"page_view", "sign_up"},
	}}
}
