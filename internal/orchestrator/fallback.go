package orchestrator

import (
	"fmt"
)

// OutcomeKind classifies the raw result of one generator call.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeError
	OutcomeTimeout
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Outcome is what the executor observed when a generator call ended.
type Outcome struct {
	Kind   OutcomeKind
	Result GenerationResult
	Err    error
}

// Resolution is the policy's decision for a finished stage. Result is nil for
// Failed and Skipped stages. Err carries the cause for anything other than a
// clean completion.
type Resolution struct {
	Status StageStatus
	Result *GenerationResult
	Err    error
}

// Resolve converts a generator outcome into the stage's terminal status,
// applying the stage's fallback when the generator did not succeed.
func Resolve(stage StageDescriptor, req GenerationRequest, out Outcome) Resolution {
	if out.Kind == OutcomeSuccess && out.Err == nil && out.Result.Success {
		res := out.Result
		res.Confidence = clampConfidence(res.Confidence)
		return Resolution{Status: StatusCompleted, Result: &res}
	}

	cause := failureCause(stage, out)
	if stage.Fallback == nil {
		return Resolution{Status: StatusFailed, Err: cause}
	}

	res, err := runFallback(stage, req)
	if err != nil {
		return Resolution{Status: StatusFailed, Err: fmt.Errorf("%w; %v", cause, err)}
	}
	return Resolution{Status: StatusCompletedWithFallback, Result: &res, Err: cause}
}

// Admit decides whether a stage whose dependencies are all terminal may be
// dispatched. A non-tolerant stage with a failed or skipped dependency is
// skipped; the returned error explains why.
func Admit(stage StageDescriptor, statuses map[StageID]StageStatus) (bool, error) {
	if stage.Tolerant {
		return true, nil
	}
	for _, dep := range stage.DependsOn {
		if st := statuses[dep]; st == StatusFailed || st == StatusSkipped {
			return false, &DependencySkippedError{Stage: stage.ID, Dependency: dep, Status: st}
		}
	}
	return true, nil
}

func failureCause(stage StageDescriptor, out Outcome) error {
	switch {
	case out.Kind == OutcomeTimeout:
		return &StageTimeoutError{Stage: stage.ID, Timeout: stage.Timeout}
	case out.Err != nil:
		return &StageExecutionError{Stage: stage.ID, Err: out.Err}
	default:
		return &StageExecutionError{Stage: stage.ID, Err: errUnsuccessfulResult}
	}
}

// runFallback invokes the stage's fallback and forces the declared
// confidence. A panicking fallback counts as no fallback.
func runFallback(stage StageDescriptor, req GenerationRequest) (res GenerationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fallback for stage %q panicked: %v", stage.ID, r)
		}
	}()

	res = stage.Fallback.Produce(req)
	res.Success = true
	res.Confidence = stage.Fallback.Confidence
	if len(res.Sources) == 0 {
		res.Sources = []Source{{
			Name:       "fallback:" + string(stage.ID),
			Type:       "Fallback",
			Confidence: stage.Fallback.Confidence,
		}}
	}
	return res, nil
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
