package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

// Compile-time interface check.
var _ Agent = (*BaseAgent)(nil)

// ProcessFunc is the function specialist agents implement. It receives the
// parsed brief and the request (for upstream inputs) and returns the payload.
type ProcessFunc func(ctx context.Context, brief Brief, req orchestrator.GenerationRequest) (orchestrator.Payload, error)

// BaseAgent provides the shared boilerplate for specialist agents: brief
// parsing, simulated latency, and wrapping the payload into a result carrying
// the card's sources and confidence.
type BaseAgent struct {
	card    Card
	process ProcessFunc
	latency time.Duration
}

// NewBaseAgent creates a BaseAgent with the given card and process function.
func NewBaseAgent(card Card, process ProcessFunc) *BaseAgent {
	return &BaseAgent{card: card, process: process}
}

// Card returns the agent's card.
func (b *BaseAgent) Card() Card {
	return b.card
}

// SetLatency makes every call wait d before producing its result. The wait
// honours cancellation.
func (b *BaseAgent) SetLatency(d time.Duration) {
	b.latency = d
}

// Generate implements orchestrator.Generator.
func (b *BaseAgent) Generate(ctx context.Context, req orchestrator.GenerationRequest) (orchestrator.GenerationResult, error) {
	brief := BriefFrom(req.Params)
	if err := brief.Validate(); err != nil {
		return orchestrator.GenerationResult{}, err
	}

	if b.latency > 0 {
		timer := time.NewTimer(b.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return orchestrator.GenerationResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	payload, err := b.process(ctx, brief, req)
	if err != nil {
		return orchestrator.GenerationResult{}, fmt.Errorf("%s: %w", b.card.Role, err)
	}

	return orchestrator.GenerationResult{
		Success:    true,
		Payload:    payload,
		Confidence: b.confidence(),
		Sources:    append([]orchestrator.Source(nil), b.card.Sources...),
	}, nil
}

// confidence averages the card's source confidences, falling back to the
// card's own value.
func (b *BaseAgent) confidence() int {
	var sum, n int
	for _, s := range b.card.Sources {
		if s.Confidence > 0 {
			sum += s.Confidence
			n++
		}
	}
	if n == 0 {
		return b.card.Confidence
	}
	return (sum + n/2) / n
}
