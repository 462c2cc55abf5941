package mcptools

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/genpipe/internal/export"
	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

// PipelineService handles MCP tool calls. It wraps an Orchestrator to start,
// inspect and cancel runs.
type PipelineService struct {
	orch orchestrator.Orchestrator
}

// NewPipelineService creates a PipelineService over orch.
func NewPipelineService(orch orchestrator.Orchestrator) *PipelineService {
	return &PipelineService{orch: orch}
}

// StartRun launches a run. With Wait set it blocks until the run finishes and
// returns its summary.
func (s *PipelineService) StartRun(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StartRunInput,
) (*mcp.CallToolResult, StartRunOutput, error) {
	if input.Pipeline == "" {
		return nil, StartRunOutput{}, fmt.Errorf("pipeline is required")
	}
	if input.Idea == "" {
		return nil, StartRunOutput{}, fmt.Errorf("idea is required")
	}

	id, err := s.orch.StartRun(ctx, input.Pipeline, runParams(input))
	if err != nil {
		return nil, StartRunOutput{}, err
	}
	out := StartRunOutput{RunID: id}
	if !input.Wait {
		return nil, out, nil
	}

	run, err := s.orch.Wait(ctx, id)
	if err != nil {
		return nil, out, fmt.Errorf("wait for run %s: %w", id, err)
	}
	summary := Summarize(run)
	out.Run = &summary
	return nil, out, nil
}

func runParams(input StartRunInput) map[string]any {
	params := make(map[string]any, len(input.Params)+5)
	for k, v := range input.Params {
		params[k] = v
	}
	params["idea"] = input.Idea
	for key, v := range map[string]string{
		"industry":     input.Industry,
		"targetMarket": input.TargetMarket,
		"techStack":    input.TechStack,
	} {
		if v != "" {
			params[key] = v
		}
	}
	if len(input.Features) > 0 {
		params["features"] = input.Features
	}
	return params
}

// GetRun returns the current record of a run.
func (s *PipelineService) GetRun(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetRunInput,
) (*mcp.CallToolResult, RunSummary, error) {
	run, err := s.orch.Result(input.RunID)
	if err != nil {
		return nil, RunSummary{}, err
	}
	return nil, Summarize(run), nil
}

// ListRuns lists runs matching the filter.
func (s *PipelineService) ListRuns(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ListRunsInput,
) (*mcp.CallToolResult, ListRunsOutput, error) {
	runs, err := s.orch.ListRuns(orchestrator.RunFilter{
		DefinitionID: input.Pipeline,
		Outcome:      orchestrator.RunOutcome(input.Outcome),
		PageSize:     input.PageSize,
		PageToken:    input.PageToken,
	})
	if err != nil {
		return nil, ListRunsOutput{}, err
	}
	out := ListRunsOutput{Runs: make([]RunSummary, 0, len(runs))}
	for i := range runs {
		out.Runs = append(out.Runs, Summarize(&runs[i]))
	}
	return nil, out, nil
}

// ListPipelines describes the registered pipelines.
func (s *PipelineService) ListPipelines(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListPipelinesInput,
) (*mcp.CallToolResult, ListPipelinesOutput, error) {
	out := ListPipelinesOutput{Pipelines: []PipelineSummary{}}
	for _, def := range s.orch.Definitions() {
		ps := PipelineSummary{
			ID:       def.ID(),
			Name:     def.Name(),
			Terminal: string(def.Terminal()),
			Diagram:  export.GenerateMermaid(def, nil),
		}
		for _, level := range def.Levels() {
			ids := make([]string, len(level))
			for i, id := range level {
				ids[i] = string(id)
			}
			ps.Levels = append(ps.Levels, ids)
		}
		out.Pipelines = append(out.Pipelines, ps)
	}
	return nil, out, nil
}

// CancelRun stops a run from dispatching further stages.
func (s *PipelineService) CancelRun(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetRunInput,
) (*mcp.CallToolResult, CancelRunOutput, error) {
	if err := s.orch.Cancel(input.RunID); err != nil {
		return nil, CancelRunOutput{}, err
	}
	return nil, CancelRunOutput{RunID: input.RunID, Status: "cancelling"}, nil
}

// Summarize converts a run record to its wire form.
func Summarize(run *orchestrator.PipelineRun) RunSummary {
	out := RunSummary{
		ID:        run.ID,
		Pipeline:  run.DefinitionID,
		Outcome:   string(run.Outcome),
		Progress:  run.OverallProgress,
		Cancelled: run.Cancelled,
		Statuses:  make(map[string]string, len(run.Statuses)),
	}
	if !run.StartedAt.IsZero() {
		out.StartedAt = run.StartedAt.Format(time.RFC3339)
	}
	if run.CompletedAt != nil {
		out.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	for id, st := range run.Statuses {
		out.Statuses[string(id)] = string(st)
	}
	if len(run.Errors) > 0 {
		out.Errors = make(map[string]string, len(run.Errors))
		for id, msg := range run.Errors {
			out.Errors[string(id)] = msg
		}
	}
	if run.Artifact != nil {
		out.Confidence = run.Artifact.Confidence
		out.Artifact = run.Artifact.Fields
	}
	return out
}
