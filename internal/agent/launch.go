package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

type platform struct {
	name, kind, domain string
}

// Platform selects a hosting platform for a tech stack.
func Platform(techStack string) (name, kind string) {
	p := selectPlatform(techStack)
	return p.name, p.kind
}

func selectPlatform(techStack string) platform {
	lower := strings.ToLower(techStack)
	switch {
	case strings.Contains(lower, "next.js"):
		return platform{"Vercel", "Frontend + Backend", "vercel.app"}
	case containsAny(lower, "react", "vue"):
		return platform{"Netlify", "Frontend + Serverless", "netlify.app"}
	case containsAny(lower, "flask", "django"):
		return platform{"Render", "Full-stack", "onrender.com"}
	case strings.Contains(lower, "laravel"):
		return platform{"Railway", "Full-stack", "railway.app"}
	default:
		return platform{"Vercel", "Universal", "vercel.app"}
	}
}

var (
	subdomainAdjectives = []string{"smart", "fast", "cool", "bright", "quick", "swift", "sharp", "bold"}
	subdomainNouns      = []string{"app", "hub", "lab", "pro", "tech", "works", "studio", "space"}
)

// Subdomain derives a stable deployment subdomain from the idea.
func Subdomain(idea string) string {
	h := seed(idea)
	return fmt.Sprintf("%s-%s-%d",
		subdomainAdjectives[h%uint32(len(subdomainAdjectives))],
		subdomainNouns[(h/8)%uint32(len(subdomainNouns))],
		h%999+1)
}

// NewDeployAgent deploys the generated code. It reads the tech stack from
// the generateCode result when present.
func NewDeployAgent() *BaseAgent {
	card := Card{
		Role:        RoleDeploy,
		Name:        "Deployment",
		Description: "Selects a hosting platform and publishes the application.",
		Sources:     []orchestrator.Source{{Name: "Platform Catalog", Type: "Hosting"}},
		Confidence:  85,
	}
	return NewBaseAgent(card, deploy)
}

func deploy(_ context.Context, b Brief, req orchestrator.GenerationRequest) (orchestrator.Payload, error) {
	code, ok := req.Input(RoleCode.StageID())
	if !ok {
		return nil, fmt.Errorf("no generated code to deploy")
	}
	stack := b.TechStack
	if v, ok := code.Payload.Lookup("techStack"); ok {
		if s, ok := v.(string); ok && s != "" {
			stack = s
		}
	}

	p := selectPlatform(stack)
	deployTime := 30
	lower := strings.ToLower(stack)
	switch {
	case strings.Contains(lower, "next.js"):
		deployTime += 20
	case strings.Contains(lower, "django"):
		deployTime += 25
	case strings.Contains(lower, "laravel"):
		deployTime += 30
	}

	return orchestrator.Payload{
		"platform":     p.name,
		"platformType": p.kind,
		"url":          fmt.Sprintf("https://%s.%s", Subdomain(b.Idea), p.domain),
		"status":       "Live",
		"deployTime":   fmt.Sprintf("%ds", deployTime),
		"techStack":    stack,
		"monitoring": map[string]any{
			"uptime":      "Enabled",
			"errorAlerts": "Enabled",
		},
	}, nil
}

// PaymentProvider selects a payment provider for a business model.
func PaymentProvider(businessModel string) string {
	lower := strings.ToLower(businessModel)
	switch {
	case containsAny(lower, "subscription", "saas"):
		return "Stripe"
	case containsAny(lower, "marketplace", "platform"):
		return "Stripe Connect"
	case containsAny(lower, "freemium", "consumer"):
		return "PayPal"
	default:
		return "Stripe"
	}
}

// NewPaymentsAgent configures a payment provider and plans.
func NewPaymentsAgent() *BaseAgent {
	card := Card{
		Role:        RolePayments,
		Name:        "Payments Setup",
		Description: "Selects a payment provider and configures pricing plans.",
		Sources:     []orchestrator.Source{{Name: "Provider Catalog", Type: "Payments", Confidence: 90}},
	}
	return NewBaseAgent(card, payments)
}

func payments(_ context.Context, b Brief, req orchestrator.GenerationRequest) (orchestrator.Payload, error) {
	model := req.Param("businessModel")
	if model == "" {
		model = RecommendedModel(b.Idea)
	}
	provider := PaymentProvider(model)
	return orchestrator.Payload{
		"provider":      provider,
		"status":        "Configured",
		"businessModel": model,
		"plans":         PricePoints(b.TargetMarket),
		"webhooks":      []string{"checkout.session.completed", "invoice.paid", "customer.subscription.deleted"},
		"fees":          "2.9% + $0.30 per transaction",
	}, nil
}

// AnalyticsProvider selects an analytics provider from features and audience.
func AnalyticsProvider(b Brief) string {
	users := strings.ToLower(b.TargetUsers)
	switch {
	case b.HasFeature("Analytics") && b.HasFeature("User Authentication"):
		return "PostHog"
	case containsAny(users, "consumer", "privacy"):
		return "Plausible"
	case b.HasFeature("E-commerce") || b.HasFeature("Marketing"):
		return "Google Analytics"
	default:
		return "PostHog"
	}
}

// NewAnalyticsAgent configures product analytics and dashboards.
func NewAnalyticsAgent() *BaseAgent {
	card := Card{
		Role:        RoleAnalytics,
		Name:        "Analytics Setup",
		Description: "Selects an analytics provider and defines tracked events.",
		Sources:     []orchestrator.Source{{Name: "Provider Catalog", Type: "Analytics", Confidence: 85}},
	}
	return NewBaseAgent(card, analytics)
}

func analytics(_ context.Context, b Brief, _ orchestrator.GenerationRequest) (orchestrator.Payload, error) {
	events := []string{"page_view", "sign_up"}
	if b.HasFeature("Payment Integration") {
		events = append(events, "checkout_started", "purchase_completed")
	}
	if b.HasFeature("Dashboard") {
		events = append(events, "dashboard_viewed")
	}
	return orchestrator.Payload{
		"provider":   AnalyticsProvider(b),
		"status":     "Active",
		"events":     events,
		"dashboards": []string{"Acquisition", "Activation", "Retention"},
	}, nil
}
