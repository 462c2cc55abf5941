package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Executor drives runs of validated definitions. It is safe to share between
// concurrent runs; all per-run state lives in Run and ProgressTracker.
type Executor struct {
	maxParallel int
	logger      *log.Logger
	now         func() time.Time
}

// NewExecutor creates an Executor with the given options applied.
func NewExecutor(opts ...ExecutorOption) *Executor {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Executor{
		maxParallel: cfg.MaxParallel,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
}

// Run executes def synchronously and returns the final run record.
func (e *Executor) Run(ctx context.Context, def *Definition, params map[string]any, observers ...Observer) *PipelineRun {
	run := NewRun(def, params)
	tracker := NewProgressTracker(run.ID(), def)
	tracker.now = e.now
	for _, obs := range observers {
		tracker.Subscribe(obs)
	}
	return e.Execute(ctx, run, tracker)
}

// Execute drives an already created run to completion. Cancelling ctx stops
// further dispatch; stages that never started end Skipped. Execute never
// fails: every outcome is recorded in the returned run record.
func (e *Executor) Execute(ctx context.Context, run *Run, tracker *ProgressTracker) *PipelineRun {
	def := run.Definition()
	run.start(e.now())

	fan := newFanOut(ctx, len(def.stages))
	inflight := 0
	cancelled := false
	done := ctx.Done()

	for {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
			done = nil
			e.skipPending(run, tracker, errRunCancelled)
		}

		var ready []StageDescriptor
		if !cancelled {
			ready = e.advance(run, tracker)
		}
		for _, stage := range ready {
			if e.maxParallel > 0 && inflight >= e.maxParallel {
				break
			}
			e.dispatch(fan, run, tracker, stage)
			inflight++
		}

		if inflight == 0 {
			// Nothing running and nothing dispatchable: whatever is still
			// pending can never become ready.
			e.skipPending(run, tracker, errRunCancelled)
			break
		}

		select {
		case c := <-fan.results:
			inflight--
			e.complete(run, tracker, c)
		case <-done:
			// Loop around to record the cancellation, then keep draining
			// in-flight completions.
		}
	}

	fan.Wait()
	run.finish(e.now(), cancelled)
	snap := run.Snapshot()

	if plan, ok := synthesisPlanOf(def); ok && snap.Artifact != nil {
		for _, issue := range CheckCoherence(plan, snap) {
			e.logger.Printf("WARNING: run %s: coherence: %s", snap.ID, issue.Description)
		}
	}

	tracker.Finish(outcomeMessage(def, snap))
	return snap
}

// advance makes one pass over pending stages in topological order. Stages
// whose dependencies are all terminal are either skipped by the policy or
// returned as ready. A skip can unblock later stages in the same pass.
func (e *Executor) advance(run *Run, tracker *ProgressTracker) []StageDescriptor {
	var ready []StageDescriptor
	for _, stage := range run.def.stages {
		statuses := run.statuses()
		if statuses[stage.ID] != StatusPending {
			continue
		}
		if !depsTerminal(stage, statuses) {
			continue
		}
		ok, err := Admit(stage, statuses)
		if !ok {
			e.skip(run, tracker, stage.ID, err)
			continue
		}
		ready = append(ready, stage)
	}
	return ready
}

func depsTerminal(stage StageDescriptor, statuses map[StageID]StageStatus) bool {
	for _, dep := range stage.DependsOn {
		if !statuses[dep].IsTerminal() {
			return false
		}
	}
	return true
}

func (e *Executor) dispatch(fan *FanOut, run *Run, tracker *ProgressTracker, stage StageDescriptor) {
	req := GenerationRequest{
		RunID:  run.ID(),
		Stage:  stage.ID,
		Params: cloneParams(run.record.Params),
		Inputs: run.usableInputs(stage),
	}
	run.markRunning(stage.ID, e.now())
	tracker.OnStageStarted(stage.ID)
	fan.Dispatch(stage, req)
}

func (e *Executor) complete(run *Run, tracker *ProgressTracker, c stageCompletion) {
	res := Resolve(c.stage, c.req, c.outcome)
	run.markTerminal(c.stage.ID, res, e.now())

	var msg string
	switch res.Status {
	case StatusCompletedWithFallback:
		msg = res.Err.Error()
		e.logger.Printf("WARNING: run %s: stage %s used fallback: %v", run.ID(), c.stage.ID, res.Err)
	case StatusFailed:
		msg = res.Err.Error()
		e.logger.Printf("WARNING: run %s: stage %s failed: %v", run.ID(), c.stage.ID, res.Err)
	}
	run.setProgress(tracker.OnStageTerminal(c.stage.ID, res.Status, msg))
}

func (e *Executor) skip(run *Run, tracker *ProgressTracker, id StageID, cause error) {
	run.markTerminal(id, Resolution{Status: StatusSkipped, Err: cause}, e.now())
	run.setProgress(tracker.OnStageTerminal(id, StatusSkipped, cause.Error()))
}

func (e *Executor) skipPending(run *Run, tracker *ProgressTracker, cause error) {
	statuses := run.statuses()
	for _, stage := range run.def.stages {
		if statuses[stage.ID] == StatusPending {
			e.skip(run, tracker, stage.ID, cause)
		}
	}
}

// outcomeMessage summarises a finished run for the Final progress event.
func outcomeMessage(def *Definition, run *PipelineRun) string {
	failed := run.FailedStages(def.StageIDs())
	switch {
	case run.Cancelled:
		return fmt.Sprintf("%s cancelled (%d stage(s) not usable)", run.Outcome, len(failed))
	case len(failed) == 0:
		return string(run.Outcome)
	default:
		return fmt.Sprintf("%s (%d stage(s) not usable: %v)", run.Outcome, len(failed), failed)
	}
}
