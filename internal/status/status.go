// Package status renders run records as terminal summaries.
package status

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

// StageInfo describes the state of a single stage within a run.
type StageInfo struct {
	ID       orchestrator.StageID
	Level    int
	Status   orchestrator.StageStatus
	Duration time.Duration // zero until the stage finishes
	Error    string
	Terminal bool
}

// RunStatus holds the summary of one run.
type RunStatus struct {
	ID         string
	Pipeline   string
	Outcome    orchestrator.RunOutcome
	Progress   float64
	Cancelled  bool
	Elapsed    time.Duration
	Confidence int // zero when the run produced no artifact
	Stages     []StageInfo
}

var markers = map[orchestrator.StageStatus]string{
	orchestrator.StatusPending:               "○",
	orchestrator.StatusRunning:               "●",
	orchestrator.StatusCompleted:             "✓",
	orchestrator.StatusCompletedWithFallback: "✓",
	orchestrator.StatusFailed:                "✗",
	orchestrator.StatusSkipped:               "-",
}

// Summarize builds the status of run, ordering stages by level the way def
// schedules them.
func Summarize(def *orchestrator.Definition, run *orchestrator.PipelineRun) RunStatus {
	rs := RunStatus{
		ID:        run.ID,
		Pipeline:  run.DefinitionID,
		Outcome:   run.Outcome,
		Progress:  run.OverallProgress,
		Cancelled: run.Cancelled,
	}
	if run.CompletedAt != nil {
		rs.Elapsed = run.CompletedAt.Sub(run.StartedAt)
	}
	if run.Artifact != nil {
		rs.Confidence = run.Artifact.Confidence
	}

	seen := make(map[orchestrator.StageID]bool)
	if def != nil {
		for level, ids := range def.Levels() {
			for _, id := range ids {
				rs.Stages = append(rs.Stages, stageInfo(run, id, level, id == def.Terminal()))
				seen[id] = true
			}
		}
	}
	// Archived records may outlive their definition; list leftovers by name.
	var rest []orchestrator.StageID
	for id := range run.Statuses {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	for _, id := range rest {
		rs.Stages = append(rs.Stages, stageInfo(run, id, -1, false))
	}
	return rs
}

func stageInfo(run *orchestrator.PipelineRun, id orchestrator.StageID, level int, terminal bool) StageInfo {
	si := StageInfo{
		ID:       id,
		Level:    level,
		Status:   run.Statuses[id],
		Error:    run.Errors[id],
		Terminal: terminal,
	}
	if t, ok := run.StageTimes[id]; ok && t.StartedAt != nil && t.CompletedAt != nil {
		si.Duration = t.CompletedAt.Sub(*t.StartedAt)
	}
	return si
}

// Write prints rs as a stage table.
func Write(w io.Writer, rs RunStatus) {
	fmt.Fprintf(w, "Run: %s (%s)\n", rs.ID, rs.Pipeline)
	outcome := string(rs.Outcome)
	if rs.Cancelled {
		outcome += ", cancelled"
	}
	fmt.Fprintf(w, "Outcome: %s  [%3.0f%%]", outcome, rs.Progress)
	if rs.Elapsed > 0 {
		fmt.Fprintf(w, "  in %s", rs.Elapsed.Round(time.Millisecond))
	}
	fmt.Fprintln(w)
	if rs.Confidence > 0 {
		fmt.Fprintf(w, "Confidence: %d%%\n", rs.Confidence)
	}
	fmt.Fprintln(w)

	for _, si := range rs.Stages {
		marker, ok := markers[si.Status]
		if !ok {
			marker = "?"
		}
		name := string(si.ID)
		if si.Terminal {
			name += " (join)"
		}
		level := "  "
		if si.Level >= 0 {
			level = fmt.Sprintf("L%d", si.Level)
		}
		line := fmt.Sprintf("  %s %s %-22s [%s]", level, marker, name, si.Status)
		if si.Duration > 0 {
			line += " " + si.Duration.Round(time.Millisecond).String()
		}
		if si.Error != "" {
			line += ": " + si.Error
		}
		fmt.Fprintln(w, line)
	}
}

// WriteList prints one line per run.
func WriteList(w io.Writer, runs []orchestrator.PipelineRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return
	}
	for _, run := range runs {
		failed := run.FailedStages(stageOrder(&run))
		suffix := ""
		if len(failed) > 0 {
			names := make([]string, len(failed))
			for i, id := range failed {
				names[i] = string(id)
			}
			suffix = "  failed: " + strings.Join(names, ", ")
		}
		fmt.Fprintf(w, "%s  %-14s %-16s %3.0f%%  %s%s\n",
			run.ID, run.DefinitionID, run.Outcome, run.OverallProgress,
			run.StartedAt.Format(time.RFC3339), suffix)
	}
}

func stageOrder(run *orchestrator.PipelineRun) []orchestrator.StageID {
	ids := make([]orchestrator.StageID, 0, len(run.Statuses))
	for id := range run.Statuses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Follow prints each event from events until the channel closes.
func Follow(w io.Writer, events <-chan orchestrator.ProgressEvent) {
	for ev := range events {
		fmt.Fprintln(w, orchestrator.FormatProgress(ev))
	}
}
