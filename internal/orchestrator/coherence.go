package orchestrator

import (
	"fmt"
	"reflect"
	"strings"
)

// CheckCoherence performs a lightweight scan of a finished run's artifact
// against the synthesis plan. It flags mapped fields that are missing or
// empty and contributors whose data came from a fallback. Issues are
// advisory; the run outcome does not depend on them.
func CheckCoherence(plan SynthesisPlan, run *PipelineRun) []CoherenceIssue {
	if run == nil || run.Artifact == nil {
		return nil
	}

	var issues []CoherenceIssue
	for _, m := range plan.Fields {
		v, ok := run.Artifact.Fields[m.Field]
		switch {
		case !ok:
			issues = append(issues, CoherenceIssue{
				Field:       m.Field,
				Stage:       m.Stage,
				Description: fmt.Sprintf("field %q missing: %s has no %q (status %s)", m.Field, m.Stage, m.Path, run.Statuses[m.Stage]),
			})
		case isEmptyValue(v):
			issues = append(issues, CoherenceIssue{
				Field:       m.Field,
				Stage:       m.Stage,
				Description: fmt.Sprintf("field %q is empty", m.Field),
			})
		}
	}

	var degraded []string
	for _, id := range planStages(plan) {
		if run.Statuses[id] == StatusCompletedWithFallback {
			degraded = append(degraded, string(id))
			issues = append(issues, CoherenceIssue{
				Stage:       id,
				Description: fmt.Sprintf("stage %s contributed fallback data (confidence %d)", id, run.Results[id].Confidence),
			})
		}
	}
	if len(degraded) > 1 {
		issues = append(issues, CoherenceIssue{
			Description: "artifact built from several fallbacks: " + strings.Join(degraded, ", "),
		})
	}
	return issues
}

func planStages(plan SynthesisPlan) []StageID {
	return NewSynthesizer(plan).contributorOrder()
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	default:
		return false
	}
}
