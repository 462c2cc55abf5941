// Package catalog declares the built-in pipelines and binds their stages to
// the specialist agents.
package catalog

import (
	"fmt"
	"time"

	"github.com/dusk-indust/genpipe/internal/agent"
	"github.com/dusk-indust/genpipe/internal/config"
	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

// Pipeline identifiers.
const (
	BusinessPlanID = "business-plan"
	MVPBuildID     = "mvp-build"
)

// SynthesizeStage is the terminal join stage of the business plan.
const SynthesizeStage orchestrator.StageID = "synthesize"

// DefaultStageTimeout bounds a generator call when the config sets none.
const DefaultStageTimeout = 30 * time.Second

// FallbackConfidence is the confidence carried by built-in fallback results.
const FallbackConfidence = 25

// Builder assembles stage descriptors from agents and config overrides.
type Builder struct {
	agents *agent.Registry
	cfg    *config.ProjectConfig
}

// NewBuilder creates a Builder. A nil cfg means defaults everywhere.
func NewBuilder(agents *agent.Registry, cfg *config.ProjectConfig) *Builder {
	if cfg == nil {
		cfg = &config.ProjectConfig{}
	}
	return &Builder{agents: agents, cfg: cfg}
}

// Register builds both pipelines and registers them in reg.
func (b *Builder) Register(reg *orchestrator.Registry) error {
	bp, err := b.BusinessPlan()
	if err != nil {
		return err
	}
	if _, err := reg.Register(BusinessPlanID, "Business Plan", bp); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	mvp, err := b.MVPBuild()
	if err != nil {
		return err
	}
	if _, err := reg.Register(MVPBuildID, "MVP Build", mvp); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	return nil
}

// BusinessPlan returns the business-plan stages: four independent research
// stages joined by synthesize.
func (b *Builder) BusinessPlan() ([]orchestrator.StageDescriptor, error) {
	research := []agent.Role{agent.RoleMarketSize, agent.RoleCompetitors, agent.RolePricing, agent.RoleGTM}

	var stages []orchestrator.StageDescriptor
	var deps []orchestrator.StageID
	for _, role := range research {
		s, err := b.agentStage(BusinessPlanID, role)
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
		deps = append(deps, role.StageID())
	}

	plan := BusinessPlanSynthesis(b.cfg.Contributors())
	synth := orchestrator.StageDescriptor{
		ID:        SynthesizeStage,
		DependsOn: deps,
		Weight:    20,
		Generator: orchestrator.NewSynthesizer(plan),
	}
	stages = append(stages, b.override(BusinessPlanID, synth))
	return stages, nil
}

// MVPBuild returns the mvp-build stages. Only deploy has a dependency.
func (b *Builder) MVPBuild() ([]orchestrator.StageDescriptor, error) {
	roles := []agent.Role{agent.RoleCode, agent.RoleBranding, agent.RoleDeploy, agent.RolePayments, agent.RoleAnalytics}

	var stages []orchestrator.StageDescriptor
	for _, role := range roles {
		s, err := b.agentStage(MVPBuildID, role)
		if err != nil {
			return nil, err
		}
		if role == agent.RoleDeploy {
			s.DependsOn = []orchestrator.StageID{agent.RoleCode.StageID()}
		}
		stages = append(stages, s)
	}
	return stages, nil
}

func (b *Builder) agentStage(pipeline string, role agent.Role) (orchestrator.StageDescriptor, error) {
	ag, err := b.agents.Spawn(role)
	if err != nil {
		return orchestrator.StageDescriptor{}, fmt.Errorf("catalog: %s: %w", pipeline, err)
	}
	s := orchestrator.StageDescriptor{
		ID:        role.StageID(),
		Weight:    20,
		Generator: ag,
	}
	if fb, ok := Fallbacks[role]; ok {
		s.Fallback = &orchestrator.Fallback{Confidence: FallbackConfidence, Produce: fb}
	}
	return b.override(pipeline, s), nil
}

// override applies the default timeout and per-stage config settings.
func (b *Builder) override(pipeline string, s orchestrator.StageDescriptor) orchestrator.StageDescriptor {
	def := b.cfg.DefaultStageTimeout()
	if def == 0 {
		def = DefaultStageTimeout
	}
	sc := b.cfg.Stage(pipeline, string(s.ID))
	s.Timeout = sc.StageTimeout(def)
	if sc.Tolerant != nil {
		s.Tolerant = *sc.Tolerant
	}
	if sc.Fallback != nil && !*sc.Fallback {
		s.Fallback = nil
	}
	return s
}
