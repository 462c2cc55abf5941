package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

type pricingProfile struct {
	models      []string
	benchmarks  map[string]any
	conversions map[string]any
}

var industryPricing = map[string]pricingProfile{
	"AI/ML": {
		models:      []string{"Subscription", "Usage-based", "Freemium"},
		benchmarks:  map[string]any{"starter": "$29/month", "professional": "$99/month", "enterprise": "$299/month", "usage": "$0.10/API call"},
		conversions: map[string]any{"freemium": "8.5%", "trial": "12.3%", "direct": "4.2%"},
	},
	"FinTech": {
		models:      []string{"Transaction-based", "Subscription", "Freemium"},
		benchmarks:  map[string]any{"starter": "$49/month", "professional": "$199/month", "enterprise": "$499/month", "transaction": "2.9% + $0.30"},
		conversions: map[string]any{"freemium": "6.8%", "trial": "15.2%", "direct": "3.1%"},
	},
	"EdTech": {
		models:      []string{"Freemium", "Subscription", "Per-student"},
		benchmarks:  map[string]any{"starter": "$19/month", "professional": "$79/month", "enterprise": "$199/month", "perStudent": "$5/student/month"},
		conversions: map[string]any{"freemium": "12.1%", "trial": "18.5%", "direct": "6.8%"},
	},
	"SaaS": {
		models:      []string{"Subscription", "Freemium", "Usage-based"},
		benchmarks:  map[string]any{"starter": "$29/month", "professional": "$99/month", "enterprise": "$299/month", "usage": "$0.05/action"},
		conversions: map[string]any{"freemium": "9.3%", "trial": "14.7%", "direct": "5.1%"},
	},
}

var defaultPricing = pricingProfile{
	models:      []string{"Subscription", "Freemium"},
	benchmarks:  map[string]any{"starter": "$29/month", "professional": "$99/month", "enterprise": "$299/month"},
	conversions: map[string]any{"freemium": "8.0%", "trial": "12.0%", "direct": "4.5%"},
}

var marketPricePoints = map[string]map[string]any{
	"B2B Enterprise":  {"starter": "$99", "pro": "$299", "enterprise": "$799"},
	"B2B SMB":         {"starter": "$49", "pro": "$149", "enterprise": "$399"},
	"B2C Consumer":    {"starter": "$9", "pro": "$29", "enterprise": "$99"},
	"B2C Prosumer":    {"starter": "$19", "pro": "$59", "enterprise": "$199"},
	"Marketplace":     {"starter": "$29", "pro": "$99", "enterprise": "$299"},
	"Developer Tools": {"starter": "$19", "pro": "$79", "enterprise": "$299"},
}

// PricePoints returns the tiered price points for a target market.
func PricePoints(targetMarket string) map[string]any {
	if p, ok := marketPricePoints[targetMarket]; ok {
		return p
	}
	return map[string]any{"starter": "$29", "pro": "$99", "enterprise": "$299"}
}

// RecommendedModel picks a pricing model from keywords in the idea.
func RecommendedModel(idea string) string {
	lower := strings.ToLower(idea)
	switch {
	case containsAny(lower, "api", "usage"):
		return "Usage-based"
	case containsAny(lower, "free", "trial"):
		return "Freemium"
	default:
		return "Subscription"
	}
}

// NewPricingAgent benchmarks pricing and recommends a model and price points.
func NewPricingAgent() *BaseAgent {
	card := Card{
		Role:        RolePricing,
		Name:        "Pricing Benchmarks",
		Description: "Recommends a pricing model and tiered price points.",
		Sources: []orchestrator.Source{
			{Name: "Stripe", Type: "Payment Data", Confidence: 95},
			{Name: "ProductHunt", Type: "Competitor Pricing", Confidence: 80},
			{Name: "OpenAI", Type: "AI Analysis", Confidence: 88},
		},
	}
	return NewBaseAgent(card, pricing)
}

func pricing(_ context.Context, b Brief, _ orchestrator.GenerationRequest) (orchestrator.Payload, error) {
	profile, ok := industryPricing[b.Industry]
	if !ok {
		profile = defaultPricing
	}
	model := RecommendedModel(b.Idea)
	points := PricePoints(b.TargetMarket)
	freemium := b.TargetMarket == "B2C Consumer" || b.Industry == "EdTech"
	return orchestrator.Payload{
		"pricingModels":    profile.models,
		"marketBenchmarks": profile.benchmarks,
		"conversionRates":  profile.conversions,
		"competitorPricing": []any{
			map[string]any{"name": "Competitor A", "model": "Freemium", "starter": "$19", "pro": "$79"},
			map[string]any{"name": "Competitor B", "model": "Subscription", "starter": "$39", "pro": "$149"},
		},
		"pricingStrategy": map[string]any{
			"recommendedModel": model,
			"pricePoints":      points,
			"freemiumStrategy": map[string]any{
				"recommended":      freemium,
				"freeTier":         "Basic features, limited usage",
				"conversionTarget": "8-12%",
			},
			"rationale": fmt.Sprintf("Based on %s market analysis and %s characteristics, %s model shows optimal conversion rates.", b.Industry, b.TargetMarket, model),
		},
		"strategySummary": pricingSummary(model, points, freemium),
		"revenueStreams":  revenueStreams(model),
		"costStructure":   CostStructure(b.Industry, b.TargetMarket),
		"fundingNeeds":    FundingNeeds(b.Industry, b.TargetMarket),
	}, nil
}

var marketChannels = map[string][]string{
	"B2B Enterprise":  {"Content Marketing", "Webinars", "Partnerships", "Direct Sales"},
	"B2B SMB":         {"Email Marketing", "Social Media", "Content Marketing", "Referrals"},
	"B2C Consumer":    {"Social Media", "Influencer Marketing", "Content Marketing", "Paid Ads"},
	"B2C Prosumer":    {"Content Marketing", "Community Building", "Email Marketing", "Social Media"},
	"Marketplace":     {"SEO", "Content Marketing", "Partnerships", "Paid Acquisition"},
	"Developer Tools": {"Developer Communities", "Content Marketing", "Open Source", "Conferences"},
}

// Channels returns the recommended acquisition channels for a target market.
func Channels(targetMarket string) []string {
	if c, ok := marketChannels[targetMarket]; ok {
		return c
	}
	return []string{"Content Marketing", "Social Media", "Email Marketing"}
}

var marketBudgets = map[string]map[string]any{
	"B2B Enterprise": {"content": "40%", "sales": "35%", "events": "15%", "paid": "10%"},
	"B2B SMB":        {"content": "30%", "paid": "25%", "email": "20%", "social": "15%", "events": "10%"},
	"B2C Consumer":   {"paid": "40%", "social": "25%", "content": "20%", "influencer": "15%"},
}

var marketTimelines = map[string][]string{
	"B2B Enterprise": {"Months 1-3: Content creation and SEO", "Months 4-6: Direct outreach and partnerships", "Months 7-12: Sales enablement and scaling"},
	"B2B SMB":        {"Months 1-2: Content marketing and social media", "Months 3-4: Email campaigns and referrals", "Months 5-6: Paid acquisition and optimization"},
	"B2C Consumer":   {"Months 1-2: Social media and influencer outreach", "Months 3-4: Paid advertising and content creation", "Months 5-6: Community building and retention"},
}

// NewGTMAgent derives pain points, channels, messaging, and a launch timeline.
func NewGTMAgent() *BaseAgent {
	card := Card{
		Role:        RoleGTM,
		Name:        "Go-to-Market Insights",
		Description: "Recommends channels, messaging, timeline, and budget split.",
		Sources: []orchestrator.Source{
			{Name: "Reddit", Type: "Community Insights", Confidence: 85},
			{Name: "Twitter", Type: "Marketing Trends", Confidence: 80},
			{Name: "LinkedIn", Type: "B2B Strategy", Confidence: 88},
		},
	}
	return NewBaseAgent(card, gtm)
}

func gtm(_ context.Context, b Brief, _ orchestrator.GenerationRequest) (orchestrator.Payload, error) {
	budget, ok := marketBudgets[b.TargetMarket]
	if !ok {
		budget = marketBudgets["B2B SMB"]
	}
	timeline, ok := marketTimelines[b.TargetMarket]
	if !ok {
		timeline = marketTimelines["B2B SMB"]
	}
	pains := []string{
		fmt.Sprintf("Users in r/%s frequently mention %s", strings.ToLower(b.Industry), painPoint(b.Idea)),
		"Common complaint: integration and usability challenges",
		"Top request: improved user experience and features",
	}
	channels := Channels(b.TargetMarket)
	valueProp := fmt.Sprintf("Transform %s with our innovative %s solution", problem(b.Idea), b.Industry)
	messages := []string{
		"Solve the problem faster and more efficiently",
		"Reduce costs and improve ROI",
		"Easy to implement and scale",
	}
	return orchestrator.Payload{
		"painPoints": pains,
		"gtmStrategy": map[string]any{
			"recommendedChannels": channels,
			"messaging": map[string]any{
				"valueProposition": valueProp,
				"keyMessages":      messages,
			},
			"timeline": timeline,
			"budget":   budget,
		},
		"problemStatement":  problemStatement(b.Industry, pains),
		"solution":          solution(b.Idea),
		"marketingStrategy": marketingStrategy(b.TargetMarket, channels, valueProp, messages),
		"salesStrategy":     salesStrategy(b.TargetMarket),
		"nextSteps":         append([]string(nil), nextSteps...),
	}, nil
}

func painPoint(idea string) string {
	lower := strings.ToLower(idea)
	switch {
	case containsAny(lower, "expensive", "cost"):
		return "high costs and pricing concerns"
	case containsAny(lower, "slow", "time"):
		return "slow processes and time inefficiencies"
	case containsAny(lower, "complex", "difficult"):
		return "complexity and usability issues"
	default:
		return "general workflow inefficiencies"
	}
}

func problem(idea string) string {
	lower := strings.ToLower(idea)
	switch {
	case strings.Contains(lower, "manage"):
		return "management challenges"
	case strings.Contains(lower, "track"):
		return "tracking difficulties"
	case strings.Contains(lower, "analyze"):
		return "analysis bottlenecks"
	case strings.Contains(lower, "automate"):
		return "manual processes"
	default:
		return "workflow inefficiencies"
	}
}
