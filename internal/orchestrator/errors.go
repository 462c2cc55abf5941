package orchestrator

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyPipeline is returned when a definition has no stages.
var ErrEmptyPipeline = errors.New("pipeline has no stages")

// Definition-time errors. All of them abort registration.

// CycleDetectedError reports a dependency cycle. Path starts and ends with
// the same stage.
type CycleDetectedError struct {
	Path []StageID
}

func (e *CycleDetectedError) Error() string {
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = string(id)
	}
	return "dependency cycle detected: " + strings.Join(parts, " -> ")
}

// UnknownDependencyError reports a dependency on a stage id that is not part
// of the definition.
type UnknownDependencyError struct {
	Stage      StageID
	Dependency StageID
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("stage %q depends on unknown stage %q", e.Stage, e.Dependency)
}

// WeightSumError reports weights that do not sum to 100, or a stage whose
// weight is not a positive finite number (Stage and Weight are set then).
type WeightSumError struct {
	Sum    float64
	Stage  StageID
	Weight float64
}

func (e *WeightSumError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("stage %q weight %v is not a positive finite number", e.Stage, e.Weight)
	}
	return fmt.Sprintf("stage weights sum to %.2f, want 100", e.Sum)
}

// DuplicateStageError reports two descriptors sharing an id.
type DuplicateStageError struct {
	Stage StageID
}

func (e *DuplicateStageError) Error() string {
	return fmt.Sprintf("duplicate stage id %q", e.Stage)
}

// InvalidStageError reports a descriptor that is malformed on its own.
type InvalidStageError struct {
	Stage  StageID
	Reason string
}

func (e *InvalidStageError) Error() string {
	return fmt.Sprintf("stage %q: %s", e.Stage, e.Reason)
}

// Stage-time errors. These never escape the executor; they are recorded in
// PipelineRun.Errors.

// StageTimeoutError reports a generator that did not return within the stage
// timeout.
type StageTimeoutError struct {
	Stage   StageID
	Timeout time.Duration
}

func (e *StageTimeoutError) Error() string {
	return fmt.Sprintf("stage %q timed out after %s", e.Stage, e.Timeout)
}

// StageExecutionError wraps an error returned (or a panic raised) by a
// generator, or a result reported as unsuccessful.
type StageExecutionError struct {
	Stage StageID
	Err   error
}

func (e *StageExecutionError) Error() string {
	return fmt.Sprintf("stage %q failed: %v", e.Stage, e.Err)
}

func (e *StageExecutionError) Unwrap() error { return e.Err }

// DependencySkippedError explains why a non-tolerant stage was skipped.
type DependencySkippedError struct {
	Stage      StageID
	Dependency StageID
	Status     StageStatus
}

func (e *DependencySkippedError) Error() string {
	return fmt.Sprintf("stage %q skipped: dependency %q is %s", e.Stage, e.Dependency, e.Status)
}

// AggregationError is returned by the synthesizer when too few predecessors
// produced usable results.
type AggregationError struct {
	Contributors int
	Required     int
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("synthesis needs %d contributing stages, got %d", e.Required, e.Contributors)
}

// errUnsuccessfulResult marks a generator that returned Success == false
// without an error.
var errUnsuccessfulResult = errors.New("generator reported an unsuccessful result")

// errRunCancelled marks stages skipped because the run was cancelled before
// they could start.
var errRunCancelled = errors.New("run cancelled before stage started")
