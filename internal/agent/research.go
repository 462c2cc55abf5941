package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

type marketFigures struct {
	tam, sam, som, growth, description string
}

// industryMarkets holds market sizing by industry. "Other" is the default.
var industryMarkets = map[string]marketFigures{
	"AI/ML":      {"$1.8T", "$180B", "$18B", "28.5%", "Global AI market including software, hardware, and services"},
	"FinTech":    {"$310B", "$31B", "$3.1B", "22.3%", "Financial technology services and digital payments"},
	"HealthTech": {"$659B", "$66B", "$6.6B", "15.8%", "Healthcare technology and digital health solutions"},
	"EdTech":     {"$404B", "$40B", "$4B", "16.3%", "Educational technology and online learning platforms"},
	"SaaS":       {"$623B", "$62B", "$6.2B", "18.4%", "Software as a Service and cloud-based applications"},
	"E-commerce": {"$5.7T", "$570B", "$57B", "12.2%", "Online retail and digital commerce platforms"},
	"Other":      {"$100B", "$10B", "$1B", "12.0%", "General technology market"},
}

// MarketFor returns the sizing table entry for an industry.
func MarketFor(industry string) (tam, sam, som, growth string) {
	m, ok := industryMarkets[industry]
	if !ok {
		m = industryMarkets["Other"]
	}
	return m.tam, m.sam, m.som, m.growth
}

// NewMarketSizeAgent sizes the addressable market for the idea's industry.
func NewMarketSizeAgent() *BaseAgent {
	card := Card{
		Role:        RoleMarketSize,
		Name:        "Market Sizing",
		Description: "Estimates TAM, SAM, SOM and growth for the industry.",
		Sources: []orchestrator.Source{
			{Name: "Statista", Type: "Market Research", Confidence: 95},
			{Name: "World Bank", Type: "Economic Data", Confidence: 98},
			{Name: "Google News", Type: "Industry Trends", Confidence: 85},
		},
	}
	return NewBaseAgent(card, marketSize)
}

func marketSize(_ context.Context, b Brief, _ orchestrator.GenerationRequest) (orchestrator.Payload, error) {
	m, ok := industryMarkets[b.Industry]
	if !ok {
		m = industryMarkets["Other"]
	}
	trends := []string{
		fmt.Sprintf("%s sector showing strong growth momentum", b.Industry),
		fmt.Sprintf("Investors increasingly focused on %s startups", b.Industry),
		"Market consolidation creating opportunities for new entrants",
	}
	return orchestrator.Payload{
		"tam":            m.tam,
		"sam":            m.sam,
		"som":            m.som,
		"growthRate":     m.growth,
		"description":    m.description,
		"summary":        fmt.Sprintf("%s TAM, %s SAM, %s SOM", m.tam, m.sam, m.som),
		"marketTrends":   trends,
		"title":          Title(b.Idea, b.Industry),
		"tagline":        Tagline(b.Industry),
		"targetCustomer": TargetCustomer(b.TargetMarket),
		"keyMetrics":     KeyMetrics(b.TargetMarket),
		"opportunities":  opportunities(m.growth),
		"industryInsights": map[string]any{
			"gdpGrowth":             "3.2%",
			"digitalAdoption":       "68%",
			"regulatoryEnvironment": "Favorable",
			"keyDrivers": []string{
				"Digital transformation acceleration",
				"Remote work adoption",
				"Consumer behavior shifts",
			},
		},
	}, nil
}

type competitor struct {
	name, funding, stage, kind, description string
}

var industryCompetitors = map[string][]competitor{
	"AI/ML": {
		{"OpenAI", "$13.3B", "Series C", "direct", "AI research and deployment company"},
		{"Hugging Face", "$235M", "Series C", "indirect", "AI model hosting platform"},
		{"Cohere", "$270M", "Series B", "direct", "Enterprise AI platform"},
	},
	"FinTech": {
		{"Stripe", "$9.2B", "Series H", "direct", "Payment processing platform"},
		{"Plaid", "$734M", "Series D", "indirect", "Financial data connectivity"},
		{"Brex", "$1.2B", "Series C", "direct", "Corporate credit cards"},
		{"Ramp", "$1.1B", "Series C", "direct", "Expense management platform"},
	},
	"HealthTech": {
		{"Teladoc", "$1.1B", "Public", "direct", "Telemedicine platform"},
		{"Ro", "$876M", "Series D", "indirect", "Digital health platform"},
		{"Carbon Health", "$350M", "Series C", "direct", "Primary care platform"},
	},
	"EdTech": {
		{"Coursera", "$464M", "Public", "direct", "Online learning platform"},
		{"Udemy", "$173M", "Public", "direct", "Skill-based learning marketplace"},
		{"MasterClass", "$461M", "Series F", "indirect", "Celebrity-taught courses"},
	},
	"SaaS": {
		{"Salesforce", "$2.2B", "Public", "direct", "CRM platform"},
		{"HubSpot", "$100M", "Public", "direct", "Marketing automation"},
		{"Notion", "$343M", "Series C", "indirect", "Productivity workspace"},
	},
}

var defaultCompetitors = []competitor{
	{"Industry Leader", "$500M", "Series C", "direct", "Market leader in the space"},
	{"Emerging Competitor", "$50M", "Series A", "direct", "Fast-growing startup"},
	{"Adjacent Player", "$200M", "Series B", "indirect", "Related market player"},
}

var entryBarriers = map[string][]string{
	"AI/ML":      {"High technical expertise", "Data requirements", "Regulatory compliance"},
	"FinTech":    {"Regulatory licensing", "Security requirements", "Banking partnerships"},
	"HealthTech": {"HIPAA compliance", "Medical certifications", "Insurance integration"},
	"EdTech":     {"Content creation", "Teacher adoption", "Student engagement"},
	"SaaS":       {"Customer acquisition", "Product development", "Support infrastructure"},
	"E-commerce": {"Supply chain", "Logistics", "Customer acquisition"},
}

// NewCompetitorAgent lists known competitors and the competitive landscape.
func NewCompetitorAgent() *BaseAgent {
	card := Card{
		Role:        RoleCompetitors,
		Name:        "Competitor Analysis",
		Description: "Lists competitors, funding, and barriers to entry.",
		Sources: []orchestrator.Source{
			{Name: "Crunchbase", Type: "Funding Data", Confidence: 92},
			{Name: "SimilarWeb", Type: "Traffic Analysis", Confidence: 88},
			{Name: "ProductHunt", Type: "Product Launches", Confidence: 85},
		},
	}
	return NewBaseAgent(card, competitors)
}

func competitors(_ context.Context, b Brief, _ orchestrator.GenerationRequest) (orchestrator.Payload, error) {
	list, ok := industryCompetitors[b.Industry]
	if !ok {
		list = defaultCompetitors
	}
	barriers, ok := entryBarriers[b.Industry]
	if !ok {
		barriers = []string{"Market competition", "Customer acquisition", "Product development"}
	}

	var out []any
	var direct, indirect int
	for _, c := range list {
		out = append(out, map[string]any{
			"name":        c.name,
			"funding":     c.funding,
			"stage":       c.stage,
			"type":        c.kind,
			"description": c.description,
		})
		if c.kind == "direct" {
			direct++
		} else {
			indirect++
		}
	}

	return orchestrator.Payload{
		"competitors": out,
		"marketShare": map[string]any{
			"topPlayer":    "35%",
			"secondPlayer": "22%",
			"thirdPlayer":  "15%",
			"others":       "28%",
		},
		"competitiveLandscape": map[string]any{
			"directCompetitors":   direct,
			"indirectCompetitors": indirect,
			"marketSaturation":    marketSaturation(list),
			"barriersToEntry":     barriers,
		},
		"riskFactors": riskFactors(len(list)),
	}, nil
}

// marketSaturation grades the summed funding of competitors, counted in
// billions: above 10 is High, above 5 Medium.
func marketSaturation(list []competitor) string {
	var billions float64
	for _, c := range list {
		billions += fundingBillions(c.funding)
	}
	switch {
	case billions > 10:
		return "High"
	case billions > 5:
		return "Medium"
	default:
		return "Low"
	}
}

func fundingBillions(s string) float64 {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	scale := 1.0
	switch {
	case strings.HasSuffix(s, "T"):
		scale = 1000
	case strings.HasSuffix(s, "M"):
		scale = 0.001
	}
	v, err := strconv.ParseFloat(strings.TrimRight(s, "BMT"), 64)
	if err != nil {
		return 0
	}
	return v * scale
}
