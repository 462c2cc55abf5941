package agent

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

// Agent is a generator bound to one pipeline stage.
type Agent interface {
	orchestrator.Generator

	// Card describes the agent and the data sources it cites.
	Card() Card
}

// Role identifies the stage an agent serves. Role values double as stage ids.
type Role string

const (
	RoleMarketSize  Role = "marketSize"
	RoleCompetitors Role = "competitors"
	RolePricing     Role = "pricing"
	RoleGTM         Role = "gtmInsights"

	RoleCode      Role = "generateCode"
	RoleBranding  Role = "generateBranding"
	RoleDeploy    Role = "deploy"
	RolePayments  Role = "setupPayments"
	RoleAnalytics Role = "setupAnalytics"
)

// StageID returns the stage id served by the role.
func (r Role) StageID() orchestrator.StageID { return orchestrator.StageID(r) }

// Card describes an agent.
type Card struct {
	Role        Role
	Name        string
	Description string
	Sources     []orchestrator.Source
	// Confidence is reported when Sources carry no confidence of their own.
	Confidence int
}

// Brief holds the run parameters agents understand.
type Brief struct {
	Idea         string
	Industry     string
	TargetMarket string
	TechStack    string
	Features     []string
	TargetUsers  string
	Personality  string
}

// Default values applied when a run omits a parameter.
const (
	DefaultTechStack   = "Next.js"
	DefaultTargetUsers = "Small businesses"
	DefaultPersonality = "Modern"
)

// DefaultFeatures is used when a run names no features.
var DefaultFeatures = []string{"User Authentication", "Dashboard", "Data Management"}

// BriefFrom extracts a Brief from run parameters. Features may be given as a
// string slice, a []any of strings, or a comma separated string.
func BriefFrom(params map[string]any) Brief {
	str := func(key, def string) string {
		if v, ok := params[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}
	b := Brief{
		Idea:         str("idea", ""),
		Industry:     str("industry", "Other"),
		TargetMarket: str("targetMarket", "B2B SMB"),
		TechStack:    str("techStack", DefaultTechStack),
		TargetUsers:  str("targetUsers", DefaultTargetUsers),
		Personality:  str("personality", DefaultPersonality),
	}
	switch v := params["features"].(type) {
	case []string:
		b.Features = append(b.Features, v...)
	case []any:
		for _, f := range v {
			if s, ok := f.(string); ok {
				b.Features = append(b.Features, s)
			}
		}
	case string:
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				b.Features = append(b.Features, f)
			}
		}
	}
	if len(b.Features) == 0 {
		b.Features = append([]string(nil), DefaultFeatures...)
	}
	return b
}

// Validate reports a missing idea, which every agent needs.
func (b Brief) Validate() error {
	if b.Idea == "" {
		return fmt.Errorf("agent: brief has no idea")
	}
	return nil
}

// HasFeature reports whether the brief lists the feature (case-insensitive).
func (b Brief) HasFeature(name string) bool {
	for _, f := range b.Features {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
