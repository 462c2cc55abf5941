package agent

import (
	"context"
	"strings"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

// NewCodeAgent scaffolds an application: components, database schema, and
// API endpoints derived from the requested features.
func NewCodeAgent() *BaseAgent {
	card := Card{
		Role:        RoleCode,
		Name:        "Code Generation",
		Description: "Scaffolds the application structure for the chosen stack.",
		Sources:     []orchestrator.Source{{Name: "Scaffold Templates", Type: "Code Generation"}},
		Confidence:  80,
	}
	return NewBaseAgent(card, generateCode)
}

func generateCode(_ context.Context, b Brief, _ orchestrator.GenerationRequest) (orchestrator.Payload, error) {
	components := mainComponents(b)
	endpoints := apiEndpoints(b)
	schema := databaseSchema(b)

	files := len(components) + len(endpoints) + len(schema) + 4 // config, readme, entrypoint, styles
	return orchestrator.Payload{
		"appType":      appType(b.Idea),
		"architecture": Architecture(b.TechStack),
		"techStack":    b.TechStack,
		"features":     b.Features,
		"structure": map[string]any{
			"mainComponents": components,
			"apiEndpoints":   endpoints,
			"databaseSchema": schema,
		},
		"filesCreated": files,
		"linesOfCode":  files * 120,
	}, nil
}

func appType(idea string) string {
	lower := strings.ToLower(idea)
	switch {
	case containsAny(lower, "ecommerce", "shop"):
		return "E-commerce"
	case containsAny(lower, "social", "community"):
		return "Social Platform"
	case containsAny(lower, "saas", "software"):
		return "SaaS Application"
	case containsAny(lower, "marketplace", "platform"):
		return "Marketplace"
	case containsAny(lower, "tool", "utility"):
		return "Utility Tool"
	default:
		return "Web Application"
	}
}

// Architecture describes the application architecture implied by a stack.
func Architecture(techStack string) string {
	lower := strings.ToLower(techStack)
	switch {
	case strings.Contains(lower, "next.js"):
		return "Full-stack React with SSR"
	case strings.Contains(lower, "react"):
		return "React SPA with Node.js backend"
	case strings.Contains(lower, "vue"):
		return "Vue.js SPA with Express backend"
	case strings.Contains(lower, "flask"):
		return "Python Flask with Jinja2 templates"
	case strings.Contains(lower, "django"):
		return "Django MVC with PostgreSQL"
	case strings.Contains(lower, "laravel"):
		return "Laravel MVC with MySQL"
	default:
		return "Modern Web Application"
	}
}

func mainComponents(b Brief) []string {
	components := []string{"App", "Layout", "Header", "Footer"}
	if b.HasFeature("User Authentication") {
		components = append(components, "Login", "Register", "Profile", "AuthGuard")
	}
	if b.HasFeature("Dashboard") {
		components = append(components, "Dashboard", "Sidebar", "Stats")
	}
	if b.HasFeature("Data Management") {
		components = append(components, "DataTable", "Form", "Modal", "Pagination")
	}
	if b.HasFeature("Payment Integration") {
		components = append(components, "PaymentForm", "Billing", "Subscription")
	}
	if b.HasFeature("Analytics") {
		components = append(components, "Analytics", "Reports", "Charts")
	}
	return components
}

func databaseSchema(b Brief) map[string]any {
	schema := map[string]any{
		"users": map[string]any{
			"id":            "UUID (Primary Key)",
			"email":         "VARCHAR(255) UNIQUE",
			"password_hash": "VARCHAR(255)",
			"created_at":    "TIMESTAMP",
		},
	}
	if b.HasFeature("Data Management") {
		schema["data_entries"] = map[string]any{
			"id":      "UUID (Primary Key)",
			"user_id": "UUID (Foreign Key)",
			"title":   "VARCHAR(255)",
			"content": "TEXT",
		}
	}
	if b.HasFeature("Payment Integration") {
		schema["subscriptions"] = map[string]any{
			"id":      "UUID (Primary Key)",
			"user_id": "UUID (Foreign Key)",
			"plan":    "VARCHAR(50)",
			"status":  "VARCHAR(20)",
		}
	}
	return schema
}

func apiEndpoints(b Brief) []string {
	endpoints := []string{
		"GET /api/health",
		"POST /api/auth/login",
		"POST /api/auth/register",
		"GET /api/user/profile",
	}
	if b.HasFeature("Data Management") {
		endpoints = append(endpoints, "GET /api/data", "POST /api/data", "PUT /api/data/:id", "DELETE /api/data/:id")
	}
	if b.HasFeature("Payment Integration") {
		endpoints = append(endpoints, "POST /api/payments/checkout", "POST /api/payments/webhook")
	}
	if b.HasFeature("Analytics") {
		endpoints = append(endpoints, "GET /api/analytics/summary")
	}
	return endpoints
}
