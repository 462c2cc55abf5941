package launcher

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
	"github.com/dusk-indust/genpipe/internal/store"
)

func constGen(conf int) orchestrator.Generator {
	return orchestrator.GeneratorFunc(func(ctx context.Context, req orchestrator.GenerationRequest) (orchestrator.GenerationResult, error) {
		return orchestrator.GenerationResult{
			Success:    true,
			Confidence: conf,
			Payload:    orchestrator.Payload{"stage": string(req.Stage)},
		}, nil
	})
}

// gated blocks until release is closed or ctx is done.
func gated(release <-chan struct{}) orchestrator.Generator {
	return orchestrator.GeneratorFunc(func(ctx context.Context, req orchestrator.GenerationRequest) (orchestrator.GenerationResult, error) {
		select {
		case <-release:
			return orchestrator.GenerationResult{Success: true, Confidence: 70}, nil
		case <-ctx.Done():
			return orchestrator.GenerationResult{}, ctx.Err()
		}
	})
}

func newService(t *testing.T, second orchestrator.Generator, opts ...Option) *Service {
	t.Helper()
	reg := orchestrator.NewRegistry()
	_, err := reg.Register("pair", "Pair", []orchestrator.StageDescriptor{
		{ID: "first", Weight: 50, Generator: constGen(80)},
		{ID: "second", DependsOn: []orchestrator.StageID{"first"}, Weight: 50, Generator: second},
	})
	require.NoError(t, err)

	quiet := log.New(io.Discard, "", 0)
	opts = append([]Option{WithLogger(quiet)}, opts...)
	svc := NewService(reg, orchestrator.NewExecutor(orchestrator.WithLogger(quiet)), opts...)
	t.Cleanup(svc.Close)
	return svc
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestStartRun_UnknownPipeline(t *testing.T) {
	svc := newService(t, constGen(60))
	_, err := svc.StartRun(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrUnknownPipeline)
}

func TestStartRun_WaitReturnsFinalRecord(t *testing.T) {
	svc := newService(t, constGen(60))

	id, err := svc.StartRun(context.Background(), "pair", map[string]any{"idea": "x"})
	require.NoError(t, err)

	run, err := svc.Wait(waitCtx(t), id)
	require.NoError(t, err)
	assert.True(t, run.IsTerminal())
	assert.Equal(t, orchestrator.OutcomeSucceeded, run.Outcome)
	assert.InDelta(t, 100, run.OverallProgress, 0.001)
	assert.Equal(t, "x", run.Params["idea"])

	got, err := svc.Result(id)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
}

func TestStartRun_NotBoundToCallerContext(t *testing.T) {
	release := make(chan struct{})
	svc := newService(t, gated(release))

	ctx, cancel := context.WithCancel(context.Background())
	id, err := svc.StartRun(ctx, "pair", map[string]any{"idea": "x"})
	require.NoError(t, err)
	cancel()
	close(release)

	run, err := svc.Wait(waitCtx(t), id)
	require.NoError(t, err)
	assert.False(t, run.Cancelled)
	assert.Equal(t, orchestrator.OutcomeSucceeded, run.Outcome)
}

func TestSubscribe_ReplaysHistoryAndCloses(t *testing.T) {
	svc := newService(t, constGen(60))
	id, err := svc.StartRun(context.Background(), "pair", nil)
	require.NoError(t, err)
	_, err = svc.Wait(waitCtx(t), id)
	require.NoError(t, err)

	// Subscribing after the run finished still yields the whole history.
	ch, unsubscribe, err := svc.Subscribe(id)
	require.NoError(t, err)
	defer unsubscribe()

	var events []orchestrator.ProgressEvent
	for ev := range ch {
		events = append(events, ev)
	}
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.True(t, last.Final)
	assert.InDelta(t, 100, last.Progress, 0.001)

	prev := 0.0
	for _, ev := range events {
		assert.GreaterOrEqual(t, ev.Progress, prev)
		prev = ev.Progress
	}
}

func TestSubscribe_LiveEvents(t *testing.T) {
	release := make(chan struct{})
	svc := newService(t, gated(release))
	id, err := svc.StartRun(context.Background(), "pair", nil)
	require.NoError(t, err)

	ch, unsubscribe, err := svc.Subscribe(id)
	require.NoError(t, err)
	defer unsubscribe()

	close(release)
	var final orchestrator.ProgressEvent
	for ev := range ch {
		if ev.Final {
			final = ev
		}
	}
	assert.True(t, final.Final)
	assert.Equal(t, id, final.RunID)
}

func TestSubscribe_Unknown(t *testing.T) {
	svc := newService(t, constGen(60))
	_, _, err := svc.Subscribe("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestCancel(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	svc := newService(t, gated(release))

	id, err := svc.StartRun(context.Background(), "pair", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		r, err := svc.Result(id)
		return err == nil && r.Statuses["second"] == orchestrator.StatusRunning
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, svc.Cancel(id))
	run, err := svc.Wait(waitCtx(t), id)
	require.NoError(t, err)
	assert.True(t, run.Cancelled)
	assert.Equal(t, orchestrator.StatusFailed, run.Statuses["second"])
	assert.Equal(t, orchestrator.OutcomePartialFailure, run.Outcome)

	assert.NoError(t, svc.Cancel(id), "cancelling a finished run is a no-op")
	assert.ErrorIs(t, svc.Cancel("missing"), ErrRunNotFound)
}

func TestListRuns(t *testing.T) {
	svc := newService(t, constGen(60))
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := svc.StartRun(context.Background(), "pair", nil)
		require.NoError(t, err)
		_, err = svc.Wait(waitCtx(t), id)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := svc.ListRuns(orchestrator.RunFilter{DefinitionID: "pair"})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for i, r := range runs {
		assert.Equal(t, ids[i], r.ID)
		assert.Equal(t, orchestrator.OutcomeSucceeded, r.Outcome)
	}

	page, err := svc.Page(orchestrator.RunFilter{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Runs, 2)
	assert.Equal(t, ids[1], page.NextPageToken)

	runs, err = svc.ListRuns(orchestrator.RunFilter{Outcome: orchestrator.OutcomePartialFailure})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestListRuns_ShowsActiveRun(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	svc := newService(t, gated(release))

	id, err := svc.StartRun(context.Background(), "pair", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		runs, err := svc.ListRuns(orchestrator.RunFilter{})
		return err == nil && len(runs) == 1 && runs[0].ID == id && runs[0].OverallProgress >= 50
	}, 2*time.Second, 5*time.Millisecond)
}

func TestArchive(t *testing.T) {
	archive, err := store.OpenSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer archive.Close()

	svc := newService(t, constGen(60), WithArchive(archive))
	id, err := svc.StartRun(context.Background(), "pair", nil)
	require.NoError(t, err)
	_, err = svc.Wait(waitCtx(t), id)
	require.NoError(t, err)

	archived, err := archive.Get(id)
	require.NoError(t, err)
	assert.Equal(t, orchestrator.OutcomeSucceeded, archived.Outcome)

	page, err := svc.Archived(orchestrator.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, page.Runs, 1)

	// A fresh service over the same archive still answers for the run.
	other := newService(t, constGen(60), WithArchive(archive))
	got, err := other.Result(id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	ch, unsubscribe, err := other.Subscribe(id)
	require.NoError(t, err)
	defer unsubscribe()
	ev, ok := <-ch
	require.True(t, ok)
	assert.True(t, ev.Final)
	assert.Equal(t, string(orchestrator.OutcomeSucceeded), ev.Message)
	_, ok = <-ch
	assert.False(t, ok)
}

func TestArchived_WithoutArchive(t *testing.T) {
	svc := newService(t, constGen(60))
	page, err := svc.Archived(orchestrator.RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, page.Runs)
	assert.Len(t, svc.Definitions(), 1)
}
