package catalog

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/genpipe/internal/agent"
	"github.com/dusk-indust/genpipe/internal/config"
	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

func registry(t *testing.T, agents *agent.Registry, cfg *config.ProjectConfig) *orchestrator.Registry {
	t.Helper()
	reg := orchestrator.NewRegistry()
	require.NoError(t, NewBuilder(agents, cfg).Register(reg))
	return reg
}

func executor() *orchestrator.Executor {
	return orchestrator.NewExecutor(orchestrator.WithLogger(log.New(io.Discard, "", 0)))
}

func intPtr(n int) *int { return &n }

func failing(role agent.Role) agent.AgentFactory {
	return func() agent.Agent {
		return agent.NewBaseAgent(agent.Card{Role: role, Name: "broken"}, func(context.Context, agent.Brief, orchestrator.GenerationRequest) (orchestrator.Payload, error) {
			return nil, errors.New("upstream unavailable")
		})
	}
}

func TestRegister_Definitions(t *testing.T) {
	reg := registry(t, agent.NewRegistry(), nil)

	bp, ok := reg.Lookup(BusinessPlanID)
	require.True(t, ok)
	assert.Equal(t, SynthesizeStage, bp.Terminal())
	assert.Len(t, bp.Stages(), 5)
	assert.Equal(t, [][]orchestrator.StageID{
		{"marketSize", "competitors", "pricing", "gtmInsights"},
		{"synthesize"},
	}, bp.Levels())

	mvp, ok := reg.Lookup(MVPBuildID)
	require.True(t, ok)
	assert.Empty(t, mvp.Terminal())
	deploy, ok := mvp.Stage("deploy")
	require.True(t, ok)
	assert.Equal(t, []orchestrator.StageID{"generateCode"}, deploy.DependsOn)
	assert.Equal(t, DefaultStageTimeout, deploy.Timeout)

	var total float64
	for _, s := range mvp.Stages() {
		total += s.Weight
	}
	assert.InDelta(t, 100, total, 0.001)
}

func TestBusinessPlan_EndToEnd(t *testing.T) {
	def, _ := registry(t, agent.NewRegistry(), nil).Lookup(BusinessPlanID)

	run := executor().Run(context.Background(), def, map[string]any{
		"idea": "AI tutor for students", "industry": "EdTech", "targetMarket": "B2C Consumer",
	})

	assert.Equal(t, orchestrator.OutcomeSucceeded, run.Outcome)
	assert.InDelta(t, 100, run.OverallProgress, 0.001)
	require.NotNil(t, run.Artifact)

	f := run.Artifact.Fields
	assert.Equal(t, "$404B TAM, $40B SAM, $4B SOM", f["marketSize"])
	assert.Equal(t, "Subscription", f["revenueModel"])
	assert.Equal(t, []string{"Social Media", "Influencer Marketing", "Content Marketing", "Paid Ads"}, f["channels"])
	assert.Len(t, f["competitors"], 3)
	assert.Equal(t, "AI tutor for - EdTech Solution", f["title"])
	assert.Equal(t, "Empowering learning through technology", f["tagline"])
	assert.Equal(t, "Individual consumers looking for convenience", f["targetCustomer"])
	assert.Equal(t, "Subscription model with $9 starter tier, $29 professional tier, and $99 enterprise tier. Freemium strategy recommended for user acquisition.", f["pricingStrategy"])
	assert.Equal(t, "Self-service model with freemium conversion. Focus on user acquisition and retention.", f["salesStrategy"])
	assert.Equal(t, "Medium: Content creation, platform maintenance, support. Standard: Platform maintenance, customer support.", f["costStructure"])
	assert.Contains(t, f["problem"], "The EdTech industry faces significant challenges")
	for _, field := range []string{
		"solution", "revenueStreams", "marketingStrategy", "keyMetrics",
		"fundingNeeds", "riskFactors", "opportunities", "nextSteps",
	} {
		assert.NotEmpty(t, f[field], field)
	}
	assert.Len(t, f, len(BusinessPlanSynthesis(0).Fields))
	// market 93, competitors 88, pricing 88, gtm 84
	assert.Equal(t, 88, run.Artifact.Confidence)
	assert.Len(t, run.Artifact.DataSources, 12)
}

func TestBusinessPlan_FallbackLowersConfidence(t *testing.T) {
	agents := agent.NewRegistry()
	agents.Register(agent.RolePricing, failing(agent.RolePricing))
	def, _ := registry(t, agents, nil).Lookup(BusinessPlanID)

	run := executor().Run(context.Background(), def, map[string]any{"idea": "bookkeeping", "targetMarket": "B2B SMB"})

	assert.Equal(t, orchestrator.StatusCompletedWithFallback, run.Statuses["pricing"])
	require.NotNil(t, run.Artifact)
	assert.Equal(t, "Subscription", run.Artifact.Fields["revenueModel"])
	assert.Equal(t, map[string]any{"starter": "$49", "pro": "$149", "enterprise": "$399"}, run.Artifact.Fields["pricePoints"])
	// (93 + 88 + 25 + 84) / 4 = 72.5
	assert.Equal(t, 73, run.Artifact.Confidence)
}

func TestBusinessPlan_FallbackDisabledByConfig(t *testing.T) {
	off := false
	cfg := &config.ProjectConfig{
		MinContributors: intPtr(4),
		Pipelines: map[string]map[string]config.StageConfig{
			BusinessPlanID: {"pricing": {Fallback: &off, Timeout: "2s"}},
		},
	}
	agents := agent.NewRegistry()
	agents.Register(agent.RolePricing, failing(agent.RolePricing))
	def, _ := registry(t, agents, cfg).Lookup(BusinessPlanID)

	pricing, _ := def.Stage("pricing")
	assert.Nil(t, pricing.Fallback)
	assert.Equal(t, 2*time.Second, pricing.Timeout)

	run := executor().Run(context.Background(), def, map[string]any{"idea": "bookkeeping"})
	assert.Equal(t, orchestrator.StatusFailed, run.Statuses["pricing"])
	assert.Equal(t, orchestrator.StatusSkipped, run.Statuses["synthesize"])
	assert.Equal(t, orchestrator.OutcomePartialFailure, run.Outcome)
	assert.Nil(t, run.Artifact)
}

func TestBusinessPlan_TolerantSynthesisBelowMinimum(t *testing.T) {
	on := true
	cfg := &config.ProjectConfig{
		MinContributors: intPtr(4),
		Pipelines: map[string]map[string]config.StageConfig{
			BusinessPlanID: {
				"synthesize": {Tolerant: &on},
			},
		},
	}
	agents := agent.NewRegistry()
	agents.Register(agent.RoleCompetitors, failing(agent.RoleCompetitors))
	def, _ := registry(t, agents, cfg).Lookup(BusinessPlanID)

	run := executor().Run(context.Background(), def, map[string]any{"idea": "bookkeeping"})
	assert.Equal(t, orchestrator.StatusFailed, run.Statuses["competitors"])
	assert.Equal(t, orchestrator.StatusFailed, run.Statuses["synthesize"])
	assert.Contains(t, run.Errors["synthesize"], "needs 4 contributing stages, got 3")
	assert.Equal(t, orchestrator.OutcomePartialFailure, run.Outcome)
}

func TestBusinessPlan_ZeroMinimumSynthesizesWithoutContributors(t *testing.T) {
	on, off := true, false
	cfg := &config.ProjectConfig{
		MinContributors: intPtr(0),
		Pipelines: map[string]map[string]config.StageConfig{
			BusinessPlanID: {
				"marketSize":  {Fallback: &off},
				"pricing":     {Fallback: &off},
				"gtmInsights": {Fallback: &off},
				"synthesize":  {Tolerant: &on},
			},
		},
	}
	agents := agent.NewRegistry()
	for _, role := range []agent.Role{agent.RoleMarketSize, agent.RoleCompetitors, agent.RolePricing, agent.RoleGTM} {
		agents.Register(role, failing(role))
	}
	def, _ := registry(t, agents, cfg).Lookup(BusinessPlanID)

	run := executor().Run(context.Background(), def, map[string]any{"idea": "bookkeeping"})
	assert.Equal(t, orchestrator.StatusCompleted, run.Statuses["synthesize"])
	require.NotNil(t, run.Artifact)
	assert.Zero(t, run.Artifact.Confidence)
	assert.Empty(t, run.Artifact.DataSources)
}

func TestRegister_RejectsImpossibleMinimum(t *testing.T) {
	reg := orchestrator.NewRegistry()
	err := NewBuilder(agent.NewRegistry(), &config.ProjectConfig{MinContributors: intPtr(5)}).Register(reg)
	assert.Error(t, err)
	_, ok := reg.Lookup(BusinessPlanID)
	assert.False(t, ok)
}

func TestMVPBuild_EndToEnd(t *testing.T) {
	def, _ := registry(t, agent.NewRegistry(), nil).Lookup(MVPBuildID)

	run := executor().Run(context.Background(), def, map[string]any{"idea": "habit tracker", "techStack": "Vue"})

	assert.Equal(t, orchestrator.OutcomeSucceeded, run.Outcome)
	assert.Nil(t, run.Artifact)
	assert.Equal(t, "Netlify", run.Results["deploy"].Payload["platform"])
	assert.InDelta(t, 100, run.OverallProgress, 0.001)
}

func TestMVPBuild_DeploySkippedWhenCodeFails(t *testing.T) {
	agents := agent.NewRegistry()
	agents.Register(agent.RoleCode, failing(agent.RoleCode))
	def, _ := registry(t, agents, nil).Lookup(MVPBuildID)

	run := executor().Run(context.Background(), def, map[string]any{"idea": "habit tracker"})

	assert.Equal(t, orchestrator.StatusFailed, run.Statuses["generateCode"])
	assert.Equal(t, orchestrator.StatusSkipped, run.Statuses["deploy"])
	assert.Equal(t, orchestrator.StatusCompleted, run.Statuses["generateBranding"])
	assert.Equal(t, orchestrator.OutcomePartialFailure, run.Outcome)
}

func TestFallbacks_ArePure(t *testing.T) {
	req := orchestrator.GenerationRequest{Stage: "pricing", Params: map[string]any{"idea": "x", "targetMarket": "Marketplace"}}
	for role, fb := range Fallbacks {
		first := fb(req)
		second := fb(req)
		assert.Equal(t, first, second, role)
		assert.NotEmpty(t, first.Payload, role)
	}

	market := marketFallback(req)
	assert.Equal(t, "$100B TAM, $10B SAM, $1B SOM", market.Payload["summary"])
}

func TestBusinessPlanSynthesis_Valid(t *testing.T) {
	plan := BusinessPlanSynthesis(2)
	assert.NoError(t, plan.Validate(plan.Contributors))
}
