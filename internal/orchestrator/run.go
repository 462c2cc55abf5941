package orchestrator

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RunOutcome summarizes how a run ended.
type RunOutcome string

const (
	OutcomeRunning        RunOutcome = "running"
	OutcomeSucceeded      RunOutcome = "succeeded"
	OutcomePartialFailure RunOutcome = "partial-failure"
)

// CompositeArtifact is the merged output of a run's terminal join stage.
type CompositeArtifact struct {
	Fields      map[string]any `json:"fields"`
	Confidence  int            `json:"confidence"`
	DataSources []Source       `json:"dataSources"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// PipelineRun is the record of one execution. Values returned to callers are
// snapshots and safe to read without synchronization.
type PipelineRun struct {
	ID              string                       `json:"id"`
	DefinitionID    string                       `json:"definitionId"`
	Params          map[string]any               `json:"params,omitempty"`
	Statuses        map[StageID]StageStatus      `json:"statuses"`
	Results         map[StageID]GenerationResult `json:"results,omitempty"`
	Errors          map[StageID]string           `json:"errors,omitempty"`
	StartedAt       time.Time                    `json:"startedAt"`
	CompletedAt     *time.Time                   `json:"completedAt,omitempty"`
	OverallProgress float64                      `json:"overallProgress"`
	Outcome         RunOutcome                   `json:"outcome"`
	Cancelled       bool                         `json:"cancelled,omitempty"`
	Artifact        *CompositeArtifact           `json:"artifact,omitempty"`
	StageTimes      map[StageID]StageTiming      `json:"stageTimes,omitempty"`
}

// StageTiming records when a stage started and finished.
type StageTiming struct {
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// IsTerminal reports whether the run has finished.
func (r *PipelineRun) IsTerminal() bool {
	return r.CompletedAt != nil
}

// FailedStages lists the stages that ended Failed or Skipped, in the given
// order.
func (r *PipelineRun) FailedStages(order []StageID) []StageID {
	var out []StageID
	for _, id := range order {
		if st := r.Statuses[id]; st == StatusFailed || st == StatusSkipped {
			out = append(out, id)
		}
	}
	return out
}

// Clone returns a deep copy of the run record. Payload maps are shared; they
// are immutable once a result is recorded.
func (r *PipelineRun) Clone() *PipelineRun {
	c := *r
	c.Params = cloneParams(r.Params)
	c.Statuses = make(map[StageID]StageStatus, len(r.Statuses))
	for k, v := range r.Statuses {
		c.Statuses[k] = v
	}
	if r.Results != nil {
		c.Results = make(map[StageID]GenerationResult, len(r.Results))
		for k, v := range r.Results {
			v.Sources = append([]Source(nil), v.Sources...)
			c.Results[k] = v
		}
	}
	if r.Errors != nil {
		c.Errors = make(map[StageID]string, len(r.Errors))
		for k, v := range r.Errors {
			c.Errors[k] = v
		}
	}
	if r.StageTimes != nil {
		c.StageTimes = make(map[StageID]StageTiming, len(r.StageTimes))
		for k, v := range r.StageTimes {
			c.StageTimes[k] = v
		}
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	if r.Artifact != nil {
		a := *r.Artifact
		a.DataSources = append([]Source(nil), r.Artifact.DataSources...)
		c.Artifact = &a
	}
	return &c
}

func cloneParams(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// NewRunID returns a lexically sortable run identifier.
func NewRunID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// Run is a live pipeline run. Only the executor mutates it; Snapshot may be
// called concurrently.
type Run struct {
	def *Definition

	mu     sync.RWMutex
	record PipelineRun
}

// NewRun creates a run of def with every stage pending.
func NewRun(def *Definition, params map[string]any) *Run {
	r := &Run{
		def: def,
		record: PipelineRun{
			ID:           NewRunID(),
			DefinitionID: def.id,
			Params:       cloneParams(params),
			Statuses:     make(map[StageID]StageStatus, len(def.stages)),
			Results:      make(map[StageID]GenerationResult),
			Errors:       make(map[StageID]string),
			StageTimes:   make(map[StageID]StageTiming, len(def.stages)),
			Outcome:      OutcomeRunning,
		},
	}
	for _, s := range def.stages {
		r.record.Statuses[s.ID] = StatusPending
	}
	return r
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.record.ID }

// Definition returns the definition being executed.
func (r *Run) Definition() *Definition { return r.def }

// Snapshot returns a copy of the current run record.
func (r *Run) Snapshot() *PipelineRun {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.record.Clone()
}

func (r *Run) statuses() map[StageID]StageStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[StageID]StageStatus, len(r.record.Statuses))
	for k, v := range r.record.Statuses {
		out[k] = v
	}
	return out
}

// usableInputs collects results of the usable dependencies of a stage.
func (r *Run) usableInputs(stage StageDescriptor) map[StageID]GenerationResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inputs := make(map[StageID]GenerationResult, len(stage.DependsOn))
	for _, dep := range stage.DependsOn {
		if r.record.Statuses[dep].IsUsable() {
			inputs[dep] = r.record.Results[dep]
		}
	}
	return inputs
}

func (r *Run) start(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record.StartedAt = at
}

func (r *Run) markRunning(id StageID, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record.Statuses[id] = StatusRunning
	t := at
	r.record.StageTimes[id] = StageTiming{StartedAt: &t}
}

func (r *Run) markTerminal(id StageID, res Resolution, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record.Statuses[id] = res.Status
	if res.Result != nil {
		r.record.Results[id] = *res.Result
	}
	if res.Err != nil {
		r.record.Errors[id] = res.Err.Error()
	}
	timing := r.record.StageTimes[id]
	t := at
	timing.CompletedAt = &t
	r.record.StageTimes[id] = timing
}

func (r *Run) setProgress(p float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p > r.record.OverallProgress {
		r.record.OverallProgress = p
	}
}

func (r *Run) finish(at time.Time, cancelled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := at
	r.record.CompletedAt = &t
	r.record.Cancelled = cancelled

	if term := r.def.terminal; term != "" && r.record.Statuses[term].IsUsable() {
		res := r.record.Results[term]
		generatedAt := at
		if st := r.record.StageTimes[term]; st.CompletedAt != nil {
			generatedAt = *st.CompletedAt
		}
		r.record.Artifact = &CompositeArtifact{
			Fields:      map[string]any(res.Payload),
			Confidence:  res.Confidence,
			DataSources: append([]Source(nil), res.Sources...),
			GeneratedAt: generatedAt,
		}
	}

	r.record.Outcome = OutcomeSucceeded
	switch {
	case r.def.terminal != "" && r.record.Artifact == nil:
		r.record.Outcome = OutcomePartialFailure
	case r.def.terminal == "":
		for _, st := range r.record.Statuses {
			if !st.IsUsable() {
				r.record.Outcome = OutcomePartialFailure
				break
			}
		}
	}
}
