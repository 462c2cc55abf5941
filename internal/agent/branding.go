package agent

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

var (
	namePrefixes = []string{"Nova", "Bright", "Swift", "Pulse", "Vertex", "Lumen", "Apex", "Kinetic"}
	nameSuffixes = []string{"ly", "ify", "Hub", "Labs", "io", "Works", "Base", "Stack"}
)

type palette struct {
	primary, secondary, accent string
}

var industryPalettes = map[string]palette{
	"AI/ML":      {"#6366F1", "#0EA5E9", "#F59E0B"},
	"FinTech":    {"#0F766E", "#1E3A8A", "#FACC15"},
	"HealthTech": {"#059669", "#0284C7", "#F472B6"},
	"EdTech":     {"#F97316", "#2563EB", "#22C55E"},
	"SaaS":       {"#4F46E5", "#64748B", "#06B6D4"},
	"E-commerce": {"#DC2626", "#111827", "#FBBF24"},
}

var defaultPalette = palette{"#2563EB", "#475569", "#10B981"}

// BrandName derives a stable brand name from the idea.
func BrandName(idea string) string {
	h := seed(idea)
	return namePrefixes[h%uint32(len(namePrefixes))] + nameSuffixes[(h/7)%uint32(len(nameSuffixes))]
}

// Palette returns the primary, secondary and accent colours for an industry.
func Palette(industry string) (primary, secondary, accent string) {
	p, ok := industryPalettes[industry]
	if !ok {
		p = defaultPalette
	}
	return p.primary, p.secondary, p.accent
}

func seed(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(s))))
	return h.Sum32()
}

// NewBrandingAgent produces a name, tagline, palette, typography and logo
// concept.
func NewBrandingAgent() *BaseAgent {
	card := Card{
		Role:        RoleBranding,
		Name:        "Brand Identity",
		Description: "Creates a brand name, palette, typography and logo concept.",
		Sources: []orchestrator.Source{
			{Name: "Google Fonts", Type: "Typography", Confidence: 90},
			{Name: "Coolors", Type: "Color Palettes", Confidence: 80},
		},
	}
	return NewBaseAgent(card, branding)
}

func branding(_ context.Context, b Brief, _ orchestrator.GenerationRequest) (orchestrator.Payload, error) {
	name := BrandName(b.Idea)
	primary, secondary, accent := Palette(b.Industry)
	return orchestrator.Payload{
		"name":    name,
		"tagline": fmt.Sprintf("%s, reimagined for %s", strings.TrimSuffix(b.Idea, "."), strings.ToLower(b.TargetUsers)),
		"colors": map[string]any{
			"primary":   primary,
			"secondary": secondary,
			"accent":    accent,
		},
		"typography": map[string]any{
			"headings": headingFont(b.Industry),
			"body":     "Open Sans",
		},
		"logo": map[string]any{
			"style":   logoStyle(b.Industry, b.Personality),
			"concept": logoConcept(b.Idea, b.Industry),
		},
		"personality": b.Personality,
	}, nil
}

func headingFont(industry string) string {
	switch industry {
	case "AI/ML", "SaaS":
		return "Inter"
	case "FinTech":
		return "Roboto"
	case "HealthTech":
		return "Lato"
	case "EdTech":
		return "Nunito"
	default:
		return "Poppins"
	}
}

func logoStyle(industry, personality string) string {
	lower := strings.ToLower(personality)
	switch {
	case strings.Contains(lower, "modern"):
		return "Modern Minimalist"
	case strings.Contains(lower, "professional"):
		return "Professional Corporate"
	case strings.Contains(lower, "creative"):
		return "Creative Artistic"
	case strings.Contains(lower, "friendly"):
		return "Friendly Rounded"
	}
	switch industry {
	case "AI/ML":
		return "Tech Geometric"
	case "FinTech":
		return "Professional Corporate"
	case "HealthTech":
		return "Clean Medical"
	default:
		return "Modern Minimalist"
	}
}

func logoConcept(idea, industry string) string {
	lower := strings.ToLower(idea)
	switch {
	case containsAny(lower, " ai ", "intelligence"):
		return "AI Brain Circuit"
	case containsAny(lower, "finance", "money"):
		return "Financial Growth"
	case containsAny(lower, "health", "medical"):
		return "Health Cross"
	case containsAny(lower, "education", "learning"):
		return "Education Book"
	case containsAny(lower, "social", "community"):
		return "Social Network"
	case containsAny(lower, "marketplace", "platform"):
		return "Platform Hub"
	}
	if industry == "E-commerce" {
		return "Shopping Cart"
	}
	return "Innovation Symbol"
}
