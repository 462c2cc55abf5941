package orchestrator

import (
	"context"
	"fmt"
	"math"
)

// Synthesizer is the generator of a terminal join stage. It merges the
// payloads of its predecessors through an explicit field mapping.
type Synthesizer struct {
	plan SynthesisPlan
}

var _ Generator = (*Synthesizer)(nil)

// NewSynthesizer creates a Synthesizer for plan.
func NewSynthesizer(plan SynthesisPlan) *Synthesizer {
	return &Synthesizer{plan: plan}
}

// Validate checks the plan against the stage's dependency list: every mapped
// or contributing stage must be a dependency and output fields must be unique.
func (p SynthesisPlan) Validate(dependsOn []StageID) error {
	deps := make(map[StageID]bool, len(dependsOn))
	for _, d := range dependsOn {
		deps[d] = true
	}
	for _, c := range p.Contributors {
		if !deps[c] {
			return fmt.Errorf("merge: contributor %q is not a dependency", c)
		}
	}
	seen := make(map[string]bool, len(p.Fields))
	for _, f := range p.Fields {
		if f.Field == "" || f.Path == "" {
			return fmt.Errorf("merge: mapping %+v is incomplete", f)
		}
		if seen[f.Field] {
			return fmt.Errorf("merge: field %q mapped twice", f.Field)
		}
		seen[f.Field] = true
		if !deps[f.Stage] {
			return fmt.Errorf("merge: field %q maps from %q, which is not a dependency", f.Field, f.Stage)
		}
	}
	if p.MinContributors < 0 || p.MinContributors > len(dependsOn) {
		return fmt.Errorf("merge: min contributors %d outside 0-%d", p.MinContributors, len(dependsOn))
	}
	return nil
}

// Generate merges req.Inputs. Each mapped field whose stage and path are
// present is copied; absent ones are left out of the payload.
func (s *Synthesizer) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	if err := ctx.Err(); err != nil {
		return GenerationResult{}, err
	}

	order := s.contributorOrder()
	var contributors []StageID
	for _, id := range order {
		if _, ok := req.Inputs[id]; ok {
			contributors = append(contributors, id)
		}
	}
	if len(contributors) < s.plan.MinContributors {
		return GenerationResult{Success: false}, &AggregationError{
			Contributors: len(contributors),
			Required:     s.plan.MinContributors,
		}
	}

	fields := make(Payload, len(s.plan.Fields))
	for _, m := range s.plan.Fields {
		in, ok := req.Inputs[m.Stage]
		if !ok {
			continue
		}
		if v, ok := in.Payload.Lookup(m.Path); ok {
			fields[m.Field] = v
		}
	}

	var sum int
	var sources []Source
	seen := make(map[Source]bool)
	for _, id := range contributors {
		in := req.Inputs[id]
		sum += in.Confidence
		for _, src := range in.Sources {
			key := Source{Name: src.Name, Type: src.Type}
			if seen[key] {
				continue
			}
			seen[key] = true
			sources = append(sources, src)
		}
	}

	confidence := 0
	if len(contributors) > 0 {
		confidence = clampConfidence(int(math.Round(float64(sum) / float64(len(contributors)))))
	}

	return GenerationResult{
		Success:    true,
		Payload:    fields,
		Confidence: confidence,
		Sources:    sources,
	}, nil
}

// contributorOrder returns the plan's contributor list, or the mapped stages
// in order of first appearance when the plan lists none.
func (s *Synthesizer) contributorOrder() []StageID {
	if len(s.plan.Contributors) > 0 {
		return s.plan.Contributors
	}
	seen := make(map[StageID]bool)
	var order []StageID
	for _, m := range s.plan.Fields {
		if !seen[m.Stage] {
			seen[m.Stage] = true
			order = append(order, m.Stage)
		}
	}
	return order
}

// synthesisPlanOf returns the plan of the definition's terminal stage when it
// is backed by a Synthesizer.
func synthesisPlanOf(def *Definition) (SynthesisPlan, bool) {
	if def.terminal == "" {
		return SynthesisPlan{}, false
	}
	stage, _ := def.Stage(def.terminal)
	syn, ok := stage.Generator.(*Synthesizer)
	if !ok {
		return SynthesisPlan{}, false
	}
	return syn.plan, true
}
