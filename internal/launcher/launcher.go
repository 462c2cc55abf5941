// Package launcher runs pipelines in the background and exposes them through
// the orchestrator.Orchestrator surface used by the HTTP, MCP and CLI layers.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
	"github.com/dusk-indust/genpipe/internal/store"
)

// ErrUnknownPipeline is returned by StartRun for an unregistered definition.
var ErrUnknownPipeline = errors.New("launcher: unknown pipeline")

// ErrRunNotFound is returned for run ids the service has never seen.
var ErrRunNotFound = store.ErrRunNotFound

var _ orchestrator.Orchestrator = (*Service)(nil)

// Service launches runs and tracks them until they finish. Every run started
// by the service stays queryable for the life of the process; terminal runs
// are also written to the archive when one is configured.
type Service struct {
	registry *orchestrator.Registry
	executor *orchestrator.Executor
	records  *store.MemoryStore
	archive  store.RunStore
	logger   *log.Logger

	mu      sync.Mutex
	handles map[string]*handle
	wg      sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithArchive writes terminal runs to s and consults it for unknown ids.
func WithArchive(s store.RunStore) Option {
	return func(svc *Service) { svc.archive = s }
}

// WithLogger sets the logger for archive failures.
func WithLogger(l *log.Logger) Option {
	return func(svc *Service) { svc.logger = l }
}

// NewService creates a Service over the definitions in reg.
func NewService(reg *orchestrator.Registry, exec *orchestrator.Executor, opts ...Option) *Service {
	s := &Service{
		registry: reg,
		executor: exec,
		records:  store.NewMemoryStore(),
		logger:   log.Default(),
		handles:  make(map[string]*handle),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Definitions returns the registered pipeline definitions.
func (s *Service) Definitions() []*orchestrator.Definition {
	return s.registry.Definitions()
}

// StartRun launches a run of definitionID in the background. The run is not
// bound to ctx: cancelling the caller's context does not stop it, use Cancel.
func (s *Service) StartRun(ctx context.Context, definitionID string, params map[string]any) (string, error) {
	def, ok := s.registry.Lookup(definitionID)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPipeline, definitionID)
	}

	run := orchestrator.NewRun(def, params)
	tracker := orchestrator.NewProgressTracker(run.ID(), def)
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := newHandle(run, cancel, 2*len(def.Stages())+2)
	tracker.Subscribe(h.record)

	if err := s.records.Put(run.Snapshot()); err != nil {
		cancel()
		return "", err
	}
	s.mu.Lock()
	s.handles[run.ID()] = h
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		final := s.executor.Execute(runCtx, run, tracker)
		s.finish(h, final)
	}()
	return run.ID(), nil
}

func (s *Service) finish(h *handle, final *orchestrator.PipelineRun) {
	h.mu.Lock()
	err := s.records.Put(final)
	h.mu.Unlock()
	if err != nil {
		s.logger.Printf("WARNING: run %s: record: %v", final.ID, err)
	}
	if s.archive != nil {
		if err := s.archive.Put(final); err != nil {
			s.logger.Printf("WARNING: run %s: archive: %v", final.ID, err)
		}
	}
	h.close()
}

// Result returns a snapshot of the run, live or finished.
func (s *Service) Result(runID string) (*orchestrator.PipelineRun, error) {
	if h, ok := s.handle(runID); ok && !h.isDone() {
		return h.run.Snapshot(), nil
	}
	if r, err := s.records.Get(runID); err == nil {
		return r, nil
	}
	if s.archive != nil {
		return s.archive.Get(runID)
	}
	return nil, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
}

// Wait blocks until the run is terminal or ctx is done.
func (s *Service) Wait(ctx context.Context, runID string) (*orchestrator.PipelineRun, error) {
	if h, ok := s.handle(runID); ok {
		select {
		case <-h.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.Result(runID)
}

// Cancel stops dispatching new stages for the run. Cancelling a finished run
// is a no-op.
func (s *Service) Cancel(runID string) error {
	if h, ok := s.handle(runID); ok {
		h.cancel()
		return nil
	}
	if _, err := s.Result(runID); err != nil {
		return err
	}
	return nil
}

// Subscribe replays the run's events so far and then streams live ones. The
// channel closes after the Final event. For archived runs only a synthesized
// Final event is delivered.
func (s *Service) Subscribe(runID string) (<-chan orchestrator.ProgressEvent, func(), error) {
	if h, ok := s.handle(runID); ok {
		ch, unsubscribe := h.subscribe()
		return ch, unsubscribe, nil
	}
	r, err := s.Result(runID)
	if err != nil {
		return nil, nil, err
	}
	ch := make(chan orchestrator.ProgressEvent, 1)
	ev := orchestrator.ProgressEvent{
		RunID:    r.ID,
		Progress: r.OverallProgress,
		Message:  string(r.Outcome),
		Final:    true,
	}
	if r.CompletedAt != nil {
		ev.At = *r.CompletedAt
	}
	ch <- ev
	close(ch)
	return ch, func() {}, nil
}

// ListRuns returns the runs started by this process, oldest first.
func (s *Service) ListRuns(filter orchestrator.RunFilter) ([]orchestrator.PipelineRun, error) {
	page, err := s.Page(filter)
	if err != nil {
		return nil, err
	}
	return page.Runs, nil
}

// Page is ListRuns with the pagination token.
func (s *Service) Page(filter orchestrator.RunFilter) (*store.Page, error) {
	s.refresh()
	return s.records.List(filter)
}

// Archived lists the archive, or nothing when no archive is configured.
func (s *Service) Archived(filter orchestrator.RunFilter) (*store.Page, error) {
	if s.archive == nil {
		return &store.Page{Runs: []orchestrator.PipelineRun{}}, nil
	}
	return s.archive.List(filter)
}

// Close cancels every active run and waits for them to finish.
func (s *Service) Close() {
	s.mu.Lock()
	for _, h := range s.handles {
		h.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// refresh copies live snapshots of active runs into the record store so that
// listings show current progress.
func (s *Service) refresh() {
	s.mu.Lock()
	var active []*handle
	for _, h := range s.handles {
		if !h.isDone() {
			active = append(active, h)
		}
	}
	s.mu.Unlock()
	for _, h := range active {
		h.mu.Lock()
		// A terminal snapshot means finish owns the final record.
		if snap := h.run.Snapshot(); !h.closed && !snap.IsTerminal() {
			_ = s.records.Put(snap)
		}
		h.mu.Unlock()
	}
}

func (s *Service) handle(runID string) (*handle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[runID]
	return h, ok
}

// handle holds the event history and subscribers of one run.
type handle struct {
	run    *orchestrator.Run
	cancel context.CancelFunc
	done   chan struct{}
	buffer int

	mu      sync.Mutex
	history []orchestrator.ProgressEvent
	subs    map[uuid.UUID]chan orchestrator.ProgressEvent
	closed  bool
}

func newHandle(run *orchestrator.Run, cancel context.CancelFunc, buffer int) *handle {
	return &handle{
		run:    run,
		cancel: cancel,
		done:   make(chan struct{}),
		buffer: buffer,
		subs:   make(map[uuid.UUID]chan orchestrator.ProgressEvent),
	}
}

// record is the tracker observer. It runs under the tracker's lock and never
// blocks: subscriber channels are sized to hold a whole run's events.
func (h *handle) record(ev orchestrator.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history, ev)
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *handle) subscribe() (<-chan orchestrator.ProgressEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	size := h.buffer
	if len(h.history) > size {
		size = len(h.history)
	}
	ch := make(chan orchestrator.ProgressEvent, size)
	for _, ev := range h.history {
		ch <- ev
	}
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := uuid.New()
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

func (h *handle) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		close(ch)
		delete(h.subs, id)
	}
	close(h.done)
}

func (h *handle) isDone() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
