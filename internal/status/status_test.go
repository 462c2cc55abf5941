package status

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

func testDefinition(t *testing.T) *orchestrator.Definition {
	t.Helper()
	ok := orchestrator.GeneratorFunc(func(context.Context, orchestrator.GenerationRequest) (orchestrator.GenerationResult, error) {
		return orchestrator.GenerationResult{Success: true, Confidence: 80, Payload: orchestrator.Payload{"k": "v"}}, nil
	})
	def, err := orchestrator.NewDefinition("mvp-build", "MVP Build", []orchestrator.StageDescriptor{
		{ID: "generateCode", Weight: 50, Generator: ok},
		{ID: "deploy", DependsOn: []orchestrator.StageID{"generateCode"}, Weight: 50, Generator: ok},
	})
	require.NoError(t, err)
	return def
}

func finishedRun() *orchestrator.PipelineRun {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mid := start.Add(1500 * time.Millisecond)
	end := start.Add(2 * time.Second)
	return &orchestrator.PipelineRun{
		ID:              "01J0RUN",
		DefinitionID:    "mvp-build",
		Outcome:         orchestrator.OutcomePartialFailure,
		OverallProgress: 100,
		StartedAt:       start,
		CompletedAt:     &end,
		Statuses: map[orchestrator.StageID]orchestrator.StageStatus{
			"generateCode": orchestrator.StatusFailed,
			"deploy":       orchestrator.StatusSkipped,
		},
		Errors: map[orchestrator.StageID]string{
			"generateCode": "stage \"generateCode\" failed: boom",
			"deploy":       "dependency generateCode failed",
		},
		StageTimes: map[orchestrator.StageID]orchestrator.StageTiming{
			"generateCode": {StartedAt: &start, CompletedAt: &mid},
		},
	}
}

func TestSummarize(t *testing.T) {
	rs := Summarize(testDefinition(t), finishedRun())

	assert.Equal(t, "01J0RUN", rs.ID)
	assert.Equal(t, 2*time.Second, rs.Elapsed)
	assert.Zero(t, rs.Confidence)
	require.Len(t, rs.Stages, 2)
	assert.Equal(t, orchestrator.StageID("generateCode"), rs.Stages[0].ID)
	assert.Equal(t, 0, rs.Stages[0].Level)
	assert.Equal(t, 1500*time.Millisecond, rs.Stages[0].Duration)
	assert.Equal(t, 1, rs.Stages[1].Level)
	assert.Zero(t, rs.Stages[1].Duration)
	assert.Equal(t, orchestrator.StatusSkipped, rs.Stages[1].Status)
}

func TestSummarize_WithoutDefinition(t *testing.T) {
	rs := Summarize(nil, finishedRun())
	require.Len(t, rs.Stages, 2)
	// Sorted by name when the definition is unknown.
	assert.Equal(t, orchestrator.StageID("deploy"), rs.Stages[0].ID)
	assert.Equal(t, -1, rs.Stages[0].Level)
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	Write(&buf, Summarize(testDefinition(t), finishedRun()))
	out := buf.String()

	assert.Contains(t, out, "Run: 01J0RUN (mvp-build)")
	assert.Contains(t, out, "Outcome: partial-failure  [100%]  in 2s")
	assert.Contains(t, out, "L0 ✗ generateCode")
	assert.Contains(t, out, "[failed] 1.5s: stage \"generateCode\" failed: boom")
	assert.Contains(t, out, "L1 - deploy")
	assert.NotContains(t, out, "Confidence")
}

func TestWrite_Confidence(t *testing.T) {
	run := finishedRun()
	run.Artifact = &orchestrator.CompositeArtifact{Confidence: 81}
	run.Cancelled = true

	var buf bytes.Buffer
	Write(&buf, Summarize(testDefinition(t), run))
	assert.Contains(t, buf.String(), "Confidence: 81%")
	assert.Contains(t, buf.String(), "partial-failure, cancelled")
}

func TestWriteList(t *testing.T) {
	var buf bytes.Buffer
	WriteList(&buf, nil)
	assert.Equal(t, "No runs found.\n", buf.String())

	buf.Reset()
	WriteList(&buf, []orchestrator.PipelineRun{*finishedRun()})
	assert.Contains(t, buf.String(), "01J0RUN  mvp-build")
	assert.Contains(t, buf.String(), "failed: deploy, generateCode")
	assert.Contains(t, buf.String(), "2026-03-01T12:00:00Z")
}

func TestFollow(t *testing.T) {
	def := testDefinition(t)
	exec := orchestrator.NewExecutor()
	reporter := orchestrator.NewProgressReporter(64)

	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		Follow(&buf, reporter.Subscribe())
		close(done)
	}()

	run := exec.Run(context.Background(), def, map[string]any{"idea": "x"}, reporter.Emit)
	reporter.Close()
	<-done

	assert.Equal(t, orchestrator.OutcomeSucceeded, run.Outcome)
	assert.Contains(t, buf.String(), "✓ generateCode complete")
	assert.Contains(t, buf.String(), "run finished")
}
