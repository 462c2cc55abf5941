package orchestrator

import (
	"fmt"
	"sync"
	"time"
)

// Observer receives progress events. Observers are invoked synchronously
// under the tracker's lock, so they must not block or call back into the
// tracker.
type Observer func(ProgressEvent)

// ProgressTracker maintains the weighted completion of one run and notifies
// observers. It is the single writer of the run's progress value.
type ProgressTracker struct {
	mu        sync.Mutex
	runID     string
	order     []StageID
	weights   map[StageID]float64
	terminal  map[StageID]bool
	progress  float64
	observers map[int]Observer
	nextObs   int
	finished  bool
	now       func() time.Time
}

// NewProgressTracker creates a tracker for a run of def.
func NewProgressTracker(runID string, def *Definition) *ProgressTracker {
	t := &ProgressTracker{
		runID:     runID,
		weights:   make(map[StageID]float64, len(def.stages)),
		terminal:  make(map[StageID]bool, len(def.stages)),
		observers: make(map[int]Observer),
		now:       time.Now,
	}
	for _, s := range def.stages {
		t.order = append(t.order, s.ID)
		t.weights[s.ID] = s.Weight
	}
	return t
}

// Subscribe registers an observer and returns a function that removes it.
func (t *ProgressTracker) Subscribe(obs Observer) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextObs
	t.nextObs++
	t.observers[id] = obs
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.observers, id)
	}
}

// Progress returns the current overall progress (0-100).
func (t *ProgressTracker) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// OnStageStarted notifies observers that a stage began running. Progress is
// unchanged.
func (t *ProgressTracker) OnStageStarted(stage StageID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notify(ProgressEvent{Stage: stage, Status: StatusRunning})
}

// OnStageTerminal records a terminal transition and returns the new progress.
// Repeated notifications for the same stage do not count twice.
func (t *ProgressTracker) OnStageTerminal(stage StageID, status StageStatus, message string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, known := t.weights[stage]; known && status.IsTerminal() && !t.terminal[stage] {
		t.terminal[stage] = true
		t.progress = t.recompute()
	}
	t.notify(ProgressEvent{Stage: stage, Status: status, Message: message})
	return t.progress
}

// Finish emits the Final event once. Later calls are ignored.
func (t *ProgressTracker) Finish(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return
	}
	t.finished = true
	t.notify(ProgressEvent{Final: true, Message: message})
}

// recompute sums terminal weights in definition order so that a fully
// terminal run yields exactly 100.
func (t *ProgressTracker) recompute() float64 {
	var total, done float64
	for _, id := range t.order {
		w := t.weights[id]
		total += w
		if t.terminal[id] {
			done += w
		}
	}
	if total == 0 {
		return 0
	}
	p := done / total * 100
	if done == total {
		p = 100
	}
	if p < t.progress {
		return t.progress
	}
	return p
}

func (t *ProgressTracker) notify(ev ProgressEvent) {
	ev.RunID = t.runID
	ev.Progress = t.progress
	ev.At = t.now()
	for i := 0; i < t.nextObs; i++ {
		if obs, ok := t.observers[i]; ok {
			obs(ev)
		}
	}
}

// ProgressReporter emits progress events through a buffered channel.
type ProgressReporter struct {
	mu     sync.Mutex
	ch     chan ProgressEvent
	closed bool
}

// NewProgressReporter creates a ProgressReporter with the given buffer size.
// Sizes below 1 default to 64.
func NewProgressReporter(size int) *ProgressReporter {
	if size < 1 {
		size = 64
	}
	return &ProgressReporter{
		ch: make(chan ProgressEvent, size),
	}
}

// Emit sends a progress event in a non-blocking fashion.
// If the channel is full or closed, the event is silently dropped.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.closed {
		return
	}
	select {
	case pr.ch <- event:
	default:
		// Drop the event if the channel is full.
	}
}

// Subscribe returns a read-only channel for consuming progress events.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	return pr.ch
}

// Close closes the progress event channel. It is safe to call more than once.
func (pr *ProgressReporter) Close() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.closed {
		return
	}
	pr.closed = true
	close(pr.ch)
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	if event.Final {
		return fmt.Sprintf("[%3.0f%%] run finished: %s", event.Progress, event.Message)
	}
	switch event.Status {
	case StatusPending:
		return fmt.Sprintf("[%3.0f%%]   ○ %s (pending)", event.Progress, event.Stage)
	case StatusRunning:
		return fmt.Sprintf("[%3.0f%%]   ● %s...", event.Progress, event.Stage)
	case StatusCompleted:
		return fmt.Sprintf("[%3.0f%%]   ✓ %s complete", event.Progress, event.Stage)
	case StatusCompletedWithFallback:
		return fmt.Sprintf("[%3.0f%%]   ✓ %s complete (fallback): %s", event.Progress, event.Stage, event.Message)
	case StatusFailed:
		return fmt.Sprintf("[%3.0f%%]   ✗ %s failed: %s", event.Progress, event.Stage, event.Message)
	case StatusSkipped:
		return fmt.Sprintf("[%3.0f%%]   - %s skipped: %s", event.Progress, event.Stage, event.Message)
	default:
		return fmt.Sprintf("[%3.0f%%]   ? %s (unknown status)", event.Progress, event.Stage)
	}
}
