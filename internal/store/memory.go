package store

import (
	"fmt"
	"sync"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

var _ RunStore = (*MemoryStore)(nil)

// MemoryStore is a concurrency-safe in-memory RunStore. Runs are kept in a
// map keyed by ID with a separate slice maintaining insertion order for
// deterministic pagination.
type MemoryStore struct {
	mu       sync.RWMutex
	runs     map[string]*orchestrator.PipelineRun
	orderIDs []string
}

// NewMemoryStore returns an initialized MemoryStore ready for use.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:     make(map[string]*orchestrator.PipelineRun),
		orderIDs: make([]string, 0),
	}
}

// Put stores a copy of run. A run already present keeps its position in the
// listing order.
func (s *MemoryStore) Put(run *orchestrator.PipelineRun) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("store: run has no id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; !exists {
		s.orderIDs = append(s.orderIDs, run.ID)
	}
	s.runs[run.ID] = run.Clone()
	return nil
}

// Get returns a copy of the run with the given ID.
func (s *MemoryStore) Get(id string) (*orchestrator.PipelineRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}
	return r.Clone(), nil
}

// List returns runs matching the filter with pagination support.
//
// Pagination:
//   - PageToken is the ID of the last run from the previous page; results
//     start after that run in insertion order.
//   - PageSize <= 0 means return all matching runs.
func (s *MemoryStore) List(filter orchestrator.RunFilter) (*Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	startIdx := 0
	if filter.PageToken != "" {
		found := false
		for i, id := range s.orderIDs {
			if id == filter.PageToken {
				startIdx = i + 1
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("store: invalid page token %q", filter.PageToken)
		}
	}

	totalBefore := 0
	for i := 0; i < startIdx; i++ {
		if matchesFilter(s.runs[s.orderIDs[i]], filter) {
			totalBefore++
		}
	}

	var matched []orchestrator.PipelineRun
	for i := startIdx; i < len(s.orderIDs); i++ {
		r := s.runs[s.orderIDs[i]]
		if !matchesFilter(r, filter) {
			continue
		}
		matched = append(matched, *r.Clone())
	}

	return paginate(matched, totalBefore, filter.PageSize), nil
}

func paginate(matched []orchestrator.PipelineRun, totalBefore, pageSize int) *Page {
	page := &Page{TotalSize: totalBefore + len(matched)}
	if pageSize > 0 && len(matched) > pageSize {
		page.NextPageToken = matched[pageSize-1].ID
		matched = matched[:pageSize]
	}
	if matched == nil {
		matched = []orchestrator.PipelineRun{}
	}
	page.Runs = matched
	return page
}
