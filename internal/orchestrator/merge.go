package orchestrator

// FieldMapping copies one upstream payload value into one artifact field.
type FieldMapping struct {
	Field string  // output field name
	Stage StageID // contributing predecessor
	Path  string  // dotted path into the predecessor's payload
}

// SynthesisPlan describes how the terminal stage merges its predecessors.
type SynthesisPlan struct {
	Fields []FieldMapping

	// Contributors lists the predecessors in definition order. Data sources
	// are unioned in this order.
	Contributors []StageID

	// MinContributors is the fewest usable predecessors the merge accepts.
	MinContributors int
}

// CoherenceIssue is a quality problem found in a synthesized artifact.
type CoherenceIssue struct {
	Field       string  // affected output field, if any
	Stage       StageID // contributing stage, if any
	Description string
}
