package agent

import (
	"fmt"
	"strings"
)

var industryTaglines = map[string]string{
	"AI/ML":      "Intelligent solutions for modern challenges",
	"FinTech":    "Transforming financial services with technology",
	"HealthTech": "Advancing healthcare through innovation",
	"EdTech":     "Empowering learning through technology",
	"SaaS":       "Streamlining business operations",
	"E-commerce": "Revolutionizing online commerce",
}

// Title names a plan after the first three words of the idea and its
// industry.
func Title(idea, industry string) string {
	words := strings.Fields(idea)
	if len(words) > 3 {
		words = words[:3]
	}
	head := strings.Join(words, " ")
	if head == "" {
		head = "Untitled"
	}
	switch industry {
	case "":
		return head
	case "AI/ML":
		industry = "AI"
	}
	return fmt.Sprintf("%s - %s Solution", head, industry)
}

// Tagline returns the industry's tagline.
func Tagline(industry string) string {
	if t, ok := industryTaglines[industry]; ok {
		return t
	}
	return "Innovative solutions for your business"
}

var targetCustomers = map[string]string{
	"B2B Enterprise":  "Large enterprises with complex operational needs",
	"B2B SMB":         "Small to medium businesses seeking efficiency gains",
	"B2C Consumer":    "Individual consumers looking for convenience",
	"B2C Prosumer":    "Professional consumers requiring advanced features",
	"Marketplace":     "Multi-sided platform participants",
	"Developer Tools": "Software developers and engineering teams",
}

// TargetCustomer describes the customer a target market implies.
func TargetCustomer(targetMarket string) string {
	if c, ok := targetCustomers[targetMarket]; ok {
		return c
	}
	return "Business users seeking solutions"
}

var targetAudiences = map[string]string{
	"B2B Enterprise":  "C-level executives and decision makers",
	"B2B SMB":         "business owners and managers",
	"B2C Consumer":    "end consumers and users",
	"B2C Prosumer":    "professional users and enthusiasts",
	"Marketplace":     "platform participants and stakeholders",
	"Developer Tools": "software developers and engineers",
}

var marketMetrics = map[string][]string{
	"B2B Enterprise":  {"Customer Acquisition Cost (CAC)", "Customer Lifetime Value (LTV)", "Sales Cycle Length", "Churn Rate"},
	"B2B SMB":         {"Monthly Recurring Revenue (MRR)", "Customer Acquisition Cost (CAC)", "Conversion Rate", "Support Tickets"},
	"B2C Consumer":    {"Daily Active Users (DAU)", "Monthly Active Users (MAU)", "Conversion Rate", "Retention Rate"},
	"B2C Prosumer":    {"User Engagement", "Feature Adoption", "Upgrade Rate", "Community Growth"},
	"Marketplace":     {"Gross Merchandise Value (GMV)", "Take Rate", "Seller Acquisition", "Buyer Retention"},
	"Developer Tools": {"Developer Adoption", "API Usage", "Documentation Views", "Community Engagement"},
}

// KeyMetrics lists the metrics worth tracking for a target market.
func KeyMetrics(targetMarket string) []string {
	if m, ok := marketMetrics[targetMarket]; ok {
		return m
	}
	return []string{"Revenue Growth", "Customer Acquisition", "User Engagement", "Market Share"}
}

func opportunities(growth string) []string {
	return []string{
		fmt.Sprintf("Growing market with %s annual growth", growth),
		"Emerging technology trends creating new possibilities",
		"Underserved customer segments and use cases",
		"Partnership opportunities with industry leaders",
	}
}

// riskFactors lists the top four risks, leading with saturation when more
// than five competitors are known.
func riskFactors(competitors int) []string {
	risks := []string{
		"Market competition from established players",
		"Regulatory changes affecting industry",
		"Technology disruption and obsolescence",
		"Customer acquisition challenges",
		"Funding and cash flow management",
	}
	if competitors > 5 {
		risks = append([]string{"High market saturation and competition"}, risks...)
	}
	return risks[:4]
}

func pricingSummary(model string, points map[string]any, freemium bool) string {
	tail := "Direct paid model for immediate revenue."
	if freemium {
		tail = "Freemium strategy recommended for user acquisition."
	}
	return fmt.Sprintf("%s model with %v starter tier, %v professional tier, and %v enterprise tier. %s",
		model, points["starter"], points["pro"], points["enterprise"], tail)
}

func revenueStreams(model string) []string {
	var streams []string
	switch model {
	case "Subscription":
		streams = append(streams, "Monthly/annual subscription fees")
	case "Usage-based":
		streams = append(streams, "Per-transaction or per-usage fees")
	case "Freemium":
		streams = append(streams, "Freemium conversion to paid tiers")
	}
	return append(streams, "Enterprise custom solutions", "Professional services and support")
}

var industryCosts = map[string]string{
	"AI/ML":      "High: Compute resources, data processing, model training",
	"FinTech":    "Medium-High: Compliance, security, payment processing",
	"HealthTech": "High: Regulatory compliance, security, integration",
	"EdTech":     "Medium: Content creation, platform maintenance, support",
	"SaaS":       "Medium: Infrastructure, development, customer success",
	"E-commerce": "Medium: Inventory, logistics, payment processing",
}

// CostStructure summarizes the cost base for an industry and target market.
func CostStructure(industry, targetMarket string) string {
	base, ok := industryCosts[industry]
	if !ok {
		base = "Medium: Development, infrastructure, marketing"
	}
	extra := "Standard: Platform maintenance, customer support"
	if strings.Contains(targetMarket, "Enterprise") {
		extra = "Higher: Custom development, enterprise support"
	}
	return base + ". " + extra + "."
}

var industryFunding = map[string]string{
	"AI/ML":      "$2-5M for compute resources and talent",
	"FinTech":    "$1-3M for compliance and security infrastructure",
	"HealthTech": "$3-7M for regulatory approval and integration",
	"EdTech":     "$500K-2M for content and platform development",
	"SaaS":       "$1-3M for product development and go-to-market",
	"E-commerce": "$1-4M for inventory and logistics setup",
}

// FundingNeeds estimates the raise for an industry and target market.
func FundingNeeds(industry, targetMarket string) string {
	base, ok := industryFunding[industry]
	if !ok {
		base = "$1-3M for product development and market entry"
	}
	extra := "Standard go-to-market budget"
	if strings.Contains(targetMarket, "Enterprise") {
		extra = "Additional $1-2M for enterprise sales team"
	}
	return base + ". " + extra + "."
}

func problemStatement(industry string, painPoints []string) string {
	return fmt.Sprintf("The %s industry faces significant challenges: %s. Current solutions are inadequate, creating inefficiencies and missed opportunities for businesses.",
		industry, strings.Join(painPoints, " "))
}

// solution describes the product from keywords in the idea.
func solution(idea string) string {
	lower := strings.ToLower(idea)

	kind := "Software Solution"
	switch {
	case containsAny(lower, "ai", "machine learning"):
		kind = "AI-Powered"
	case containsAny(lower, "mobile", "app"):
		kind = "Mobile-First"
	case containsAny(lower, "cloud", "saas"):
		kind = "Cloud-Based"
	case containsAny(lower, "api", "integration"):
		kind = "Platform/API"
	}

	approach := "providing innovative solutions"
	switch {
	case strings.Contains(lower, "automate"):
		approach = "automating manual processes"
	case strings.Contains(lower, "optimize"):
		approach = "optimizing existing workflows"
	case strings.Contains(lower, "streamline"):
		approach = "streamlining operations"
	case strings.Contains(lower, "enhance"):
		approach = "enhancing current capabilities"
	}

	var score int
	for _, w := range []string{"ai", "machine learning", "blockchain", "iot", "integration"} {
		if strings.Contains(lower, w) {
			score++
		}
	}
	complexity := "low"
	switch {
	case score >= 3:
		complexity = "high"
	case score >= 1:
		complexity = "medium"
	}

	var benefits []string
	if complexity == "low" {
		benefits = append(benefits, "easy implementation")
	}
	if containsAny(lower, "revolutionary", "breakthrough", "innovative", "cutting-edge", "next-generation") {
		benefits = append(benefits, "cutting-edge technology")
	}
	if containsAny(lower, "platform", "marketplace", "network", "ecosystem", "global") {
		benefits = append(benefits, "unlimited scalability")
	}
	benefit := strings.Join(benefits, ", ")
	if benefit == "" {
		benefit = "significant value"
	}

	return fmt.Sprintf("Our %s platform addresses these challenges by %s. We provide %s-complexity solutions that deliver %s.",
		kind, approach, complexity, benefit)
}

func marketingStrategy(targetMarket string, channels []string, valueProp string, keyMessages []string) string {
	audience, ok := targetAudiences[targetMarket]
	if !ok {
		audience = "target users"
	}
	return fmt.Sprintf("Focus on %s channels with messaging centered on %q. Target %s with %s.",
		strings.Join(channels, ", "), valueProp, audience, strings.Join(keyMessages, ", "))
}

func salesStrategy(targetMarket string) string {
	switch {
	case targetMarket == "B2B Enterprise":
		return "Direct sales approach with long-term enterprise sales cycles. Focus on custom solutions and enterprise features."
	case strings.Contains(targetMarket, "B2B"):
		return "Direct sales approach with quick SMB sales process. Focus on standard packages and self-service."
	case targetMarket == "B2C Consumer":
		return "Self-service model with freemium conversion. Focus on user acquisition and retention."
	default:
		return "Self-service model with direct paid subscriptions. Focus on professional features and support."
	}
}

var nextSteps = []string{
	"Validate problem-solution fit with target customers",
	"Build MVP and gather user feedback",
	"Develop go-to-market strategy and pricing",
	"Secure initial funding and team expansion",
	"Launch beta program and iterate based on feedback",
}
