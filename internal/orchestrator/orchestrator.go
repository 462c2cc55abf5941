package orchestrator

import (
	"context"
	"strings"
	"time"
)

// StageID identifies a stage within a pipeline definition (e.g. "marketSize").
type StageID string

// StageStatus is the lifecycle state of one stage within one run.
type StageStatus string

const (
	StatusPending               StageStatus = "pending"
	StatusRunning               StageStatus = "running"
	StatusCompleted             StageStatus = "completed"
	StatusCompletedWithFallback StageStatus = "completed-with-fallback"
	StatusFailed                StageStatus = "failed"
	StatusSkipped               StageStatus = "skipped"
)

// IsTerminal reports whether the status can no longer change.
func (s StageStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedWithFallback, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// IsUsable reports whether a stage in this status produced a result that
// downstream stages may consume.
func (s StageStatus) IsUsable() bool {
	return s == StatusCompleted || s == StatusCompletedWithFallback
}

// Source is a provenance tag attached to a generation result.
type Source struct {
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	Confidence int    `json:"confidence,omitempty"`
}

// Payload is the structured output of a generator. The core only reads it
// through explicit field mappings.
type Payload map[string]any

// Lookup resolves a dotted path ("gtmStrategy.recommendedChannels") against
// nested maps. It returns false when any segment is missing.
func (p Payload) Lookup(path string) (any, bool) {
	if p == nil || path == "" {
		return nil, false
	}
	var cur any = map[string]any(p)
	for _, seg := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case map[string]any:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case Payload:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

// GenerationResult is produced exactly once per stage attempt.
type GenerationResult struct {
	Success    bool     `json:"success"`
	Payload    Payload  `json:"payload,omitempty"`
	Confidence int      `json:"confidence"`
	Sources    []Source `json:"sources,omitempty"`
}

// GenerationRequest is the input handed to a stage's generator. Inputs holds
// the results of usable dependencies only.
type GenerationRequest struct {
	RunID  string
	Stage  StageID
	Params map[string]any
	Inputs map[StageID]GenerationResult
}

// Param returns a run parameter as a string, or "" when absent.
func (r GenerationRequest) Param(key string) string {
	v, ok := r.Params[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Input returns the result of a dependency, if it is usable.
func (r GenerationRequest) Input(id StageID) (GenerationResult, bool) {
	res, ok := r.Inputs[id]
	return res, ok
}

// Generator is the external capability behind a stage. Implementations must
// honor ctx cancellation; one that does not is abandoned at the stage timeout.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req GenerationRequest) (GenerationResult, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	return f(ctx, req)
}

// ProgressEvent is emitted to observers while a run executes.
type ProgressEvent struct {
	RunID    string      `json:"runId"`
	Stage    StageID     `json:"stage,omitempty"`
	Status   StageStatus `json:"status,omitempty"`
	Progress float64     `json:"progress"`
	Message  string      `json:"message,omitempty"`
	// Final is set on the single event emitted when the run terminates.
	Final bool      `json:"final,omitempty"`
	At    time.Time `json:"at"`
}

// RunFilter narrows ListRuns results.
type RunFilter struct {
	DefinitionID string
	Outcome      RunOutcome
	// PageToken is the ID of the last run of the previous page.
	PageToken string
	PageSize  int
}

// Orchestrator is the run-trigger surface consumed by the HTTP, MCP, and CLI
// layers.
type Orchestrator interface {
	// StartRun launches a run of the named definition and returns its ID
	// without waiting for completion.
	StartRun(ctx context.Context, definitionID string, params map[string]any) (string, error)

	// Subscribe replays the events emitted so far and then streams live
	// events. The channel is closed after the Final event.
	Subscribe(runID string) (<-chan ProgressEvent, func(), error)

	// Result returns a snapshot of the run record.
	Result(runID string) (*PipelineRun, error)

	// Wait blocks until the run is terminal or ctx is done.
	Wait(ctx context.Context, runID string) (*PipelineRun, error)

	// Cancel signals a run to stop dispatching stages.
	Cancel(runID string) error

	// ListRuns returns run records, newest last.
	ListRuns(filter RunFilter) ([]PipelineRun, error)

	// Definitions returns the registered pipeline definitions.
	Definitions() []*Definition
}
