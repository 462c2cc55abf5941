package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// stageCompletion is what a dispatched stage reports back to the scheduler.
type stageCompletion struct {
	stage   StageDescriptor
	req     GenerationRequest
	outcome Outcome
}

// FanOut runs dispatched stages in their own goroutines and delivers each
// completion on a channel. Stage goroutines never fail the group; generator
// errors travel inside the Outcome.
type FanOut struct {
	ctx     context.Context
	g       errgroup.Group
	results chan stageCompletion
}

// newFanOut creates a FanOut whose results channel can hold one completion
// per stage, so stage goroutines never block on delivery.
func newFanOut(ctx context.Context, stages int) *FanOut {
	return &FanOut{
		ctx:     ctx,
		results: make(chan stageCompletion, stages),
	}
}

// Dispatch starts the stage's generator.
func (f *FanOut) Dispatch(stage StageDescriptor, req GenerationRequest) {
	f.g.Go(func() error {
		out := invoke(f.ctx, stage, req)
		f.results <- stageCompletion{stage: stage, req: req, outcome: out}
		return nil
	})
}

// Wait blocks until every dispatched stage goroutine has reported.
func (f *FanOut) Wait() {
	_ = f.g.Wait()
}

// invoke calls the generator under the stage timeout. The generator runs in
// its own goroutine so that one ignoring its context is abandoned at the
// deadline instead of holding the stage open.
func invoke(ctx context.Context, stage StageDescriptor, req GenerationRequest) Outcome {
	var (
		sctx   context.Context
		cancel context.CancelFunc
	)
	if stage.Timeout > 0 {
		sctx, cancel = context.WithTimeout(ctx, stage.Timeout)
	} else {
		sctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan Outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Outcome{Kind: OutcomeError, Err: fmt.Errorf("generator panicked: %v", r)}
			}
		}()
		res, err := stage.Generator.Generate(sctx, req)
		if err != nil {
			done <- Outcome{Kind: OutcomeError, Result: res, Err: err}
			return
		}
		done <- Outcome{Kind: OutcomeSuccess, Result: res}
	}()

	select {
	case out := <-done:
		if out.Err != nil && stageDeadlineHit(ctx, sctx) {
			out.Kind = OutcomeTimeout
		}
		return out
	case <-sctx.Done():
		if stageDeadlineHit(ctx, sctx) {
			return Outcome{Kind: OutcomeTimeout, Err: sctx.Err()}
		}
		return Outcome{Kind: OutcomeError, Err: sctx.Err()}
	}
}

// stageDeadlineHit reports whether the stage's own deadline expired, as
// opposed to the run being cancelled.
func stageDeadlineHit(runCtx, stageCtx context.Context) bool {
	return runCtx.Err() == nil && errors.Is(stageCtx.Err(), context.DeadlineExceeded)
}
