// Package store keeps pipeline run records: an in-memory index of live and
// recent runs, and an optional SQLite archive of terminal runs.
package store

import (
	"errors"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

// ErrRunNotFound is returned when no record exists for a run id.
var ErrRunNotFound = errors.New("store: run not found")

// Page is one page of a run listing.
type Page struct {
	Runs []orchestrator.PipelineRun
	// NextPageToken is the id to pass as PageToken for the next page, or ""
	// when this is the last page.
	NextPageToken string
	TotalSize     int
}

// RunStore persists run records. Implementations return copies: callers may
// mutate what they receive.
type RunStore interface {
	// Put inserts or replaces the record with run.ID.
	Put(run *orchestrator.PipelineRun) error
	Get(id string) (*orchestrator.PipelineRun, error)
	// List returns runs matching filter in insertion order.
	List(filter orchestrator.RunFilter) (*Page, error)
}

func matchesFilter(r *orchestrator.PipelineRun, filter orchestrator.RunFilter) bool {
	if filter.DefinitionID != "" && r.DefinitionID != filter.DefinitionID {
		return false
	}
	if filter.Outcome != "" && r.Outcome != filter.Outcome {
		return false
	}
	return true
}
