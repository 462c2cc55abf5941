package agent

import (
	"fmt"
	"sync"
	"time"
)

// AgentFactory is a constructor that creates an Agent.
type AgentFactory func() Agent

// Registry maps roles to their factory constructors.
type Registry struct {
	mu        sync.Mutex
	factories map[Role]AgentFactory
	latency   time.Duration
}

// NewRegistry creates a Registry pre-registered with every specialist agent.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[Role]AgentFactory),
	}
	r.factories[RoleMarketSize] = func() Agent { return NewMarketSizeAgent() }
	r.factories[RoleCompetitors] = func() Agent { return NewCompetitorAgent() }
	r.factories[RolePricing] = func() Agent { return NewPricingAgent() }
	r.factories[RoleGTM] = func() Agent { return NewGTMAgent() }
	r.factories[RoleCode] = func() Agent { return NewCodeAgent() }
	r.factories[RoleBranding] = func() Agent { return NewBrandingAgent() }
	r.factories[RoleDeploy] = func() Agent { return NewDeployAgent() }
	r.factories[RolePayments] = func() Agent { return NewPaymentsAgent() }
	r.factories[RoleAnalytics] = func() Agent { return NewAnalyticsAgent() }
	return r
}

// Register replaces the factory for a role.
func (r *Registry) Register(role Role, factory AgentFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[role] = factory
}

// SetLatency applies a simulated latency to agents spawned afterwards.
func (r *Registry) SetLatency(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latency = d
}

// Spawn creates a single agent by role using the registered factory.
func (r *Registry) Spawn(role Role) (Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	factory, ok := r.factories[role]
	if !ok {
		return nil, fmt.Errorf("no factory registered for role %q", role)
	}
	ag := factory()
	if b, ok := ag.(*BaseAgent); ok && r.latency > 0 {
		b.SetLatency(r.latency)
	}
	return ag, nil
}

// MustSpawn is Spawn for roles known to be registered.
func (r *Registry) MustSpawn(role Role) Agent {
	ag, err := r.Spawn(role)
	if err != nil {
		panic(err)
	}
	return ag
}
