package orchestrator

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func thirdsDefinition(t *testing.T) *Definition {
	t.Helper()
	def, err := NewDefinition("thirds", "Thirds", []StageDescriptor{
		desc("a", 33.333),
		desc("b", 33.333),
		desc("c", 33.334, "a", "b"),
	})
	require.NoError(t, err)
	return def
}

func TestProgressTracker_WeightedAndExactHundred(t *testing.T) {
	tracker := NewProgressTracker("run-1", thirdsDefinition(t))

	var events []ProgressEvent
	tracker.Subscribe(func(ev ProgressEvent) { events = append(events, ev) })

	tracker.OnStageStarted("a")
	p := tracker.OnStageTerminal("a", StatusCompleted, "")
	assert.InDelta(t, 33.333, p, 0.001)

	p = tracker.OnStageTerminal("b", StatusFailed, "boom")
	assert.InDelta(t, 66.666, p, 0.001)

	p = tracker.OnStageTerminal("c", StatusSkipped, "dep failed")
	assert.Equal(t, float64(100), p)
	assert.Equal(t, float64(100), tracker.Progress())

	require.Len(t, events, 4)
	assert.Equal(t, StatusRunning, events[0].Status)
	assert.Equal(t, float64(0), events[0].Progress)
	assert.Equal(t, "run-1", events[1].RunID)
	assert.Equal(t, "boom", events[2].Message)
}

func TestProgressTracker_NoDoubleCounting(t *testing.T) {
	tracker := NewProgressTracker("run-1", thirdsDefinition(t))

	first := tracker.OnStageTerminal("a", StatusCompleted, "")
	second := tracker.OnStageTerminal("a", StatusCompleted, "")
	assert.Equal(t, first, second)

	// Non-terminal statuses and unknown stages do not move progress.
	assert.Equal(t, first, tracker.OnStageTerminal("b", StatusRunning, ""))
	assert.Equal(t, first, tracker.OnStageTerminal("ghost", StatusCompleted, ""))
}

func TestProgressTracker_ConcurrentTerminals(t *testing.T) {
	var stages []StageDescriptor
	for i := 0; i < 50; i++ {
		stages = append(stages, desc(StageID(fmt.Sprintf("s%02d", i)), 2))
	}
	def, err := NewDefinition("wide", "Wide", stages)
	require.NoError(t, err)
	tracker := NewProgressTracker("run-1", def)

	// Observers run under the tracker lock, so this slice needs no mutex.
	var seen []float64
	tracker.Subscribe(func(ev ProgressEvent) { seen = append(seen, ev.Progress) })

	var wg sync.WaitGroup
	for _, s := range def.Stages() {
		for dup := 0; dup < 2; dup++ {
			wg.Add(1)
			go func(id StageID) {
				defer wg.Done()
				tracker.OnStageTerminal(id, StatusCompleted, "")
			}(s.ID)
		}
	}
	wg.Wait()

	assert.Equal(t, float64(100), tracker.Progress())
	require.Len(t, seen, 100)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
	assert.Equal(t, float64(100), seen[len(seen)-1])
}

func TestProgressTracker_Monotonic(t *testing.T) {
	tracker := NewProgressTracker("run-1", thirdsDefinition(t))

	var last float64
	tracker.Subscribe(func(ev ProgressEvent) {
		assert.GreaterOrEqual(t, ev.Progress, last)
		last = ev.Progress
	})
	for _, id := range []StageID{"b", "a", "c", "a", "b"} {
		tracker.OnStageStarted(id)
		tracker.OnStageTerminal(id, StatusCompleted, "")
	}
	assert.Equal(t, float64(100), last)
}

func TestProgressTracker_FinishOnceAndUnsubscribe(t *testing.T) {
	tracker := NewProgressTracker("run-1", thirdsDefinition(t))
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tracker.now = func() time.Time { return fixed }

	var kept, dropped []ProgressEvent
	tracker.Subscribe(func(ev ProgressEvent) { kept = append(kept, ev) })
	unsubscribe := tracker.Subscribe(func(ev ProgressEvent) { dropped = append(dropped, ev) })

	tracker.OnStageTerminal("a", StatusCompleted, "")
	unsubscribe()
	tracker.Finish("succeeded")
	tracker.Finish("again")

	require.Len(t, kept, 2)
	assert.True(t, kept[1].Final)
	assert.Equal(t, "succeeded", kept[1].Message)
	assert.Equal(t, fixed, kept[1].At)
	assert.Len(t, dropped, 1)
}

func TestProgressReporter(t *testing.T) {
	pr := NewProgressReporter(2)
	pr.Emit(ProgressEvent{Stage: "a"})
	pr.Emit(ProgressEvent{Stage: "b"})
	pr.Emit(ProgressEvent{Stage: "c"}) // dropped, buffer full

	ch := pr.Subscribe()
	assert.Equal(t, StageID("a"), (<-ch).Stage)
	assert.Equal(t, StageID("b"), (<-ch).Stage)

	pr.Close()
	pr.Close()
	pr.Emit(ProgressEvent{Stage: "d"}) // no panic after close

	_, open := <-ch
	assert.False(t, open)
}

func TestNewProgressReporter_DefaultSize(t *testing.T) {
	pr := NewProgressReporter(0)
	assert.Equal(t, 64, cap(pr.ch))
}

func TestFormatProgress(t *testing.T) {
	tests := []struct {
		ev   ProgressEvent
		want string
	}{
		{ProgressEvent{Stage: "pricing", Status: StatusRunning, Progress: 20}, "[ 20%]   ● pricing..."},
		{ProgressEvent{Stage: "pricing", Status: StatusCompleted, Progress: 80}, "[ 80%]   ✓ pricing complete"},
		{ProgressEvent{Stage: "pricing", Status: StatusCompletedWithFallback, Progress: 40, Message: "timeout"}, "[ 40%]   ✓ pricing complete (fallback): timeout"},
		{ProgressEvent{Stage: "pricing", Status: StatusFailed, Progress: 40, Message: "boom"}, "[ 40%]   ✗ pricing failed: boom"},
		{ProgressEvent{Stage: "synthesize", Status: StatusSkipped, Progress: 100, Message: "dep"}, "[100%]   - synthesize skipped: dep"},
		{ProgressEvent{Final: true, Progress: 100, Message: "succeeded"}, "[100%] run finished: succeeded"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatProgress(tt.ev))
	}
}
