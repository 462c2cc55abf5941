package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

// RunExport is the top-level JSON export structure.
type RunExport struct {
	ID          string                          `json:"id"`
	Pipeline    string                          `json:"pipeline"`
	Outcome     orchestrator.RunOutcome         `json:"outcome"`
	Progress    float64                         `json:"progress"`
	Cancelled   bool                            `json:"cancelled,omitempty"`
	StartedAt   time.Time                       `json:"startedAt"`
	CompletedAt *time.Time                      `json:"completedAt,omitempty"`
	ExportedAt  string                          `json:"exportedAt"`
	Params      map[string]any                  `json:"params,omitempty"`
	Stages      []StageExport                   `json:"stages"`
	Artifact    *orchestrator.CompositeArtifact `json:"artifact,omitempty"`
}

// StageExport describes one pipeline stage of a run.
type StageExport struct {
	Stage      orchestrator.StageID     `json:"stage"`
	Status     orchestrator.StageStatus `json:"status"`
	DependsOn  []orchestrator.StageID   `json:"dependsOn,omitempty"`
	Confidence int                      `json:"confidence,omitempty"`
	Sources    int                      `json:"sources,omitempty"`
	DurationMs int64                    `json:"durationMs,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

// ExportRun builds a RunExport. Stages follow the definition's topological
// order.
func ExportRun(def *orchestrator.Definition, run *orchestrator.PipelineRun) *RunExport {
	out := &RunExport{
		ID:          run.ID,
		Pipeline:    run.DefinitionID,
		Outcome:     run.Outcome,
		Progress:    run.OverallProgress,
		Cancelled:   run.Cancelled,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		Params:      run.Params,
		Artifact:    run.Artifact,
	}
	for _, s := range def.Stages() {
		se := StageExport{
			Stage:     s.ID,
			Status:    run.Statuses[s.ID],
			DependsOn: s.DependsOn,
			Error:     run.Errors[s.ID],
		}
		if res, ok := run.Results[s.ID]; ok {
			se.Confidence = res.Confidence
			se.Sources = len(res.Sources)
		}
		if t, ok := run.StageTimes[s.ID]; ok && t.StartedAt != nil && t.CompletedAt != nil {
			se.DurationMs = t.CompletedAt.Sub(*t.StartedAt).Milliseconds()
		}
		out.Stages = append(out.Stages, se)
	}
	return out
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("export: encode json: %w", err)
	}
	return nil
}
