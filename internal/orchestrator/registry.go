package orchestrator

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// MaxFallbackConfidence is the highest confidence a fallback may declare.
const MaxFallbackConfidence = 30

// weightTolerance absorbs rounding in fractional weights.
const weightTolerance = 0.01

// FallbackFunc produces a substitute result locally. It must be pure: no I/O
// and no external calls.
type FallbackFunc func(req GenerationRequest) GenerationResult

// Fallback pairs a substitute producer with the confidence its results carry.
type Fallback struct {
	Confidence int
	Produce    FallbackFunc
}

// StageDescriptor is the static definition of one stage.
type StageDescriptor struct {
	ID        StageID
	DependsOn []StageID
	// Weight is this stage's share of the run's progress.
	Weight float64
	// Timeout bounds a single generator call. Zero disables the deadline.
	Timeout time.Duration
	// Tolerant stages run even when some dependencies failed or were skipped.
	Tolerant  bool
	Generator Generator
	Fallback  *Fallback
}

// Definition is a validated, immutable pipeline definition.
type Definition struct {
	id       string
	name     string
	stages   []StageDescriptor // topological order
	index    map[StageID]int
	levels   [][]StageID
	terminal StageID
}

// ID returns the definition identifier (e.g. "business-plan").
func (d *Definition) ID() string { return d.id }

// Name returns the human-readable name.
func (d *Definition) Name() string { return d.name }

// Stages returns the descriptors in topological order. The slice is a copy.
func (d *Definition) Stages() []StageDescriptor {
	out := make([]StageDescriptor, len(d.stages))
	for i, s := range d.stages {
		s.DependsOn = append([]StageID(nil), s.DependsOn...)
		out[i] = s
	}
	return out
}

// Stage looks up a descriptor by id.
func (d *Definition) Stage(id StageID) (StageDescriptor, bool) {
	i, ok := d.index[id]
	if !ok {
		return StageDescriptor{}, false
	}
	return d.stages[i], true
}

// StageIDs returns the stage ids in topological order.
func (d *Definition) StageIDs() []StageID {
	ids := make([]StageID, len(d.stages))
	for i, s := range d.stages {
		ids[i] = s.ID
	}
	return ids
}

// Levels groups stages by the length of their longest dependency chain.
// Level 0 holds stages without dependencies.
func (d *Definition) Levels() [][]StageID {
	out := make([][]StageID, len(d.levels))
	for i, l := range d.levels {
		out[i] = append([]StageID(nil), l...)
	}
	return out
}

// Terminal returns the join stage that depends on every other stage, or ""
// when the definition has none.
func (d *Definition) Terminal() StageID { return d.terminal }

// NewDefinition validates descriptors and builds a Definition. Validation is
// all-or-nothing.
func NewDefinition(id, name string, descriptors []StageDescriptor) (*Definition, error) {
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("router: definition %q: %w", id, ErrEmptyPipeline)
	}

	index := make(map[StageID]int, len(descriptors))
	for i, s := range descriptors {
		if s.ID == "" {
			return nil, fmt.Errorf("router: definition %q: %w", id, &InvalidStageError{Stage: s.ID, Reason: "empty id"})
		}
		if _, dup := index[s.ID]; dup {
			return nil, fmt.Errorf("router: definition %q: %w", id, &DuplicateStageError{Stage: s.ID})
		}
		index[s.ID] = i
	}

	var sum float64
	for _, s := range descriptors {
		if err := validateDescriptor(s); err != nil {
			return nil, fmt.Errorf("router: definition %q: %w", id, err)
		}
		for _, dep := range s.DependsOn {
			if _, ok := index[dep]; !ok {
				return nil, fmt.Errorf("router: definition %q: %w", id, &UnknownDependencyError{Stage: s.ID, Dependency: dep})
			}
		}
		sum += s.Weight
	}
	if math.IsNaN(sum) || math.Abs(sum-100) > weightTolerance {
		return nil, fmt.Errorf("router: definition %q: %w", id, &WeightSumError{Sum: sum})
	}

	if cycle := findCycle(descriptors, index); cycle != nil {
		return nil, fmt.Errorf("router: definition %q: %w", id, &CycleDetectedError{Path: cycle})
	}

	levels, order := levelize(descriptors, index)

	def := &Definition{
		id:     id,
		name:   name,
		stages: make([]StageDescriptor, 0, len(descriptors)),
		index:  make(map[StageID]int, len(descriptors)),
		levels: levels,
	}
	for _, sid := range order {
		s := descriptors[index[sid]]
		s.DependsOn = append([]StageID(nil), s.DependsOn...)
		def.index[s.ID] = len(def.stages)
		def.stages = append(def.stages, s)
	}
	def.terminal = findTerminal(def.stages)
	return def, nil
}

func validateDescriptor(s StageDescriptor) error {
	if !(s.Weight > 0) || math.IsInf(s.Weight, 0) {
		return &WeightSumError{Stage: s.ID, Weight: s.Weight}
	}
	if s.Generator == nil {
		return &InvalidStageError{Stage: s.ID, Reason: "no generator"}
	}
	if s.Timeout < 0 {
		return &InvalidStageError{Stage: s.ID, Reason: "negative timeout"}
	}
	if s.Fallback != nil {
		if s.Fallback.Produce == nil {
			return &InvalidStageError{Stage: s.ID, Reason: "fallback without producer"}
		}
		if s.Fallback.Confidence < 0 || s.Fallback.Confidence > MaxFallbackConfidence {
			return &InvalidStageError{Stage: s.ID, Reason: fmt.Sprintf("fallback confidence %d outside 0-%d", s.Fallback.Confidence, MaxFallbackConfidence)}
		}
	}
	if syn, ok := s.Generator.(*Synthesizer); ok {
		if err := syn.plan.Validate(s.DependsOn); err != nil {
			return &InvalidStageError{Stage: s.ID, Reason: err.Error()}
		}
	}
	seen := make(map[StageID]bool, len(s.DependsOn))
	for _, dep := range s.DependsOn {
		if dep == s.ID {
			return &CycleDetectedError{Path: []StageID{s.ID, s.ID}}
		}
		if seen[dep] {
			return &InvalidStageError{Stage: s.ID, Reason: fmt.Sprintf("dependency %q listed twice", dep)}
		}
		seen[dep] = true
	}
	return nil
}

// findCycle runs a three-color DFS in declaration order and returns the first
// cycle found, or nil.
func findCycle(descriptors []StageDescriptor, index map[StageID]int) []StageID {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(descriptors))
	var stack []StageID

	var visit func(i int) []StageID
	visit = func(i int) []StageID {
		color[i] = gray
		stack = append(stack, descriptors[i].ID)
		for _, dep := range descriptors[i].DependsOn {
			j := index[dep]
			switch color[j] {
			case gray:
				// Slice the stack from the first occurrence of dep.
				for k, id := range stack {
					if id == dep {
						cycle := append([]StageID(nil), stack[k:]...)
						return append(cycle, dep)
					}
				}
			case white:
				if c := visit(j); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		return nil
	}

	for i := range descriptors {
		if color[i] == white {
			if c := visit(i); c != nil {
				return c
			}
		}
	}
	return nil
}

// levelize assigns each stage the length of its longest dependency chain and
// returns the levels plus a topological order (by level, then declaration
// order). The graph must be acyclic.
func levelize(descriptors []StageDescriptor, index map[StageID]int) ([][]StageID, []StageID) {
	depth := make([]int, len(descriptors))
	done := make([]bool, len(descriptors))

	var depthOf func(i int) int
	depthOf = func(i int) int {
		if done[i] {
			return depth[i]
		}
		d := 0
		for _, dep := range descriptors[i].DependsOn {
			if dd := depthOf(index[dep]) + 1; dd > d {
				d = dd
			}
		}
		depth[i], done[i] = d, true
		return d
	}

	maxDepth := 0
	for i := range descriptors {
		if d := depthOf(i); d > maxDepth {
			maxDepth = d
		}
	}

	levels := make([][]StageID, maxDepth+1)
	for i, s := range descriptors {
		levels[depth[i]] = append(levels[depth[i]], s.ID)
	}
	order := make([]StageID, 0, len(descriptors))
	for _, l := range levels {
		order = append(order, l...)
	}
	return levels, order
}

// findTerminal returns the stage that depends on every other stage.
func findTerminal(stages []StageDescriptor) StageID {
	if len(stages) < 2 {
		return ""
	}
	for _, s := range stages {
		if len(s.DependsOn) == len(stages)-1 {
			return s.ID
		}
	}
	return ""
}

// Registry holds validated definitions keyed by id.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register validates descriptors and stores the resulting definition. Nothing
// is stored when validation fails.
func (r *Registry) Register(id, name string, descriptors []StageDescriptor) (*Definition, error) {
	def, err := NewDefinition(id, name, descriptors)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[id]; exists {
		return nil, fmt.Errorf("router: definition %q already registered", id)
	}
	r.defs[id] = def
	return def, nil
}

// Lookup returns the definition registered under id.
func (r *Registry) Lookup(id string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[id]
	return def, ok
}

// Definitions returns all registered definitions sorted by id.
func (r *Registry) Definitions() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
