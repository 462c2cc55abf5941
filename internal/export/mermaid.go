package export

import (
	"fmt"
	"strings"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

// GenerateMermaid produces a Mermaid flowchart of a definition. Stages are
// grouped into one subgraph per level; dependencies become arrows. When run
// is non-nil each stage is styled by its status.
func GenerateMermaid(def *orchestrator.Definition, run *orchestrator.PipelineRun) string {
	// Node ids must be alphanumeric for Mermaid.
	nodeIDs := make(map[orchestrator.StageID]string)
	for i, id := range def.StageIDs() {
		nodeIDs[id] = fmt.Sprintf("S%d", i)
	}

	var sb strings.Builder
	sb.WriteString("flowchart TD\n")

	for i, level := range def.Levels() {
		sb.WriteString(fmt.Sprintf("  subgraph L%d[\"Level %d\"]\n", i, i))
		for _, id := range level {
			label := string(id)
			if id == def.Terminal() {
				label += " (join)"
			}
			if run != nil {
				label += "<br/>" + string(run.Statuses[id])
			}
			sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", nodeIDs[id], label))
		}
		sb.WriteString("  end\n")
	}

	for _, s := range def.Stages() {
		for _, dep := range s.DependsOn {
			arrow := "-->"
			if s.Tolerant {
				arrow = "-.->"
			}
			sb.WriteString(fmt.Sprintf("  %s %s %s\n", nodeIDs[dep], arrow, nodeIDs[s.ID]))
		}
	}

	if run != nil {
		sb.WriteString("  classDef completed fill:#dcfce7,stroke:#16a34a\n")
		sb.WriteString("  classDef fallback fill:#fef9c3,stroke:#ca8a04\n")
		sb.WriteString("  classDef failed fill:#fee2e2,stroke:#dc2626\n")
		sb.WriteString("  classDef skipped fill:#f1f5f9,stroke:#94a3b8\n")
		for _, id := range def.StageIDs() {
			if class := statusClass(run.Statuses[id]); class != "" {
				sb.WriteString(fmt.Sprintf("  class %s %s\n", nodeIDs[id], class))
			}
		}
	}
	return sb.String()
}

func statusClass(st orchestrator.StageStatus) string {
	switch st {
	case orchestrator.StatusCompleted:
		return "completed"
	case orchestrator.StatusCompletedWithFallback:
		return "fallback"
	case orchestrator.StatusFailed:
		return "failed"
	case orchestrator.StatusSkipped:
		return "skipped"
	default:
		return ""
	}
}
