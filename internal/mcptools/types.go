package mcptools

// --- MCP tool types for the pipeline server mode (serve-mcp) ---

// StartRunInput is the input for the start_run MCP tool.
type StartRunInput struct {
	Pipeline     string         `json:"pipeline" jsonschema:"pipeline id: business-plan or mvp-build"`
	Idea         string         `json:"idea" jsonschema:"the business or product idea"`
	Industry     string         `json:"industry,omitempty" jsonschema:"industry, e.g. AI/ML, FinTech, SaaS"`
	TargetMarket string         `json:"targetMarket,omitempty" jsonschema:"target market, e.g. B2B SMB"`
	TechStack    string         `json:"techStack,omitempty" jsonschema:"tech stack for mvp-build, e.g. Next.js"`
	Features     []string       `json:"features,omitempty" jsonschema:"features for mvp-build"`
	Params       map[string]any `json:"params,omitempty" jsonschema:"additional run parameters"`
	Wait         bool           `json:"wait,omitempty" jsonschema:"block until the run finishes"`
}

// StartRunOutput is the result of the start_run MCP tool.
type StartRunOutput struct {
	RunID string      `json:"runId"`
	Run   *RunSummary `json:"run,omitempty"`
}

// GetRunInput is the input for the get_run and cancel_run MCP tools.
type GetRunInput struct {
	RunID string `json:"runId" jsonschema:"run identifier returned by start_run"`
}

// RunSummary is the wire form of a run record.
type RunSummary struct {
	ID          string            `json:"id"`
	Pipeline    string            `json:"pipeline"`
	Outcome     string            `json:"outcome"`
	Progress    float64           `json:"progress"`
	Cancelled   bool              `json:"cancelled,omitempty"`
	StartedAt   string            `json:"startedAt,omitempty"`
	CompletedAt string            `json:"completedAt,omitempty"`
	Statuses    map[string]string `json:"statuses"`
	Errors      map[string]string `json:"errors,omitempty"`
	Confidence  int               `json:"confidence,omitempty"`
	Artifact    map[string]any    `json:"artifact,omitempty"`
}

// ListRunsInput is the input for the list_runs MCP tool.
type ListRunsInput struct {
	Pipeline  string `json:"pipeline,omitempty" jsonschema:"only runs of this pipeline"`
	Outcome   string `json:"outcome,omitempty" jsonschema:"running, succeeded or partial-failure"`
	PageSize  int    `json:"pageSize,omitempty" jsonschema:"maximum runs to return"`
	PageToken string `json:"pageToken,omitempty" jsonschema:"id of the last run of the previous page"`
}

// ListRunsOutput is the result of the list_runs MCP tool.
type ListRunsOutput struct {
	Runs []RunSummary `json:"runs"`
}

// ListPipelinesInput is the input for the list_pipelines MCP tool.
type ListPipelinesInput struct{}

// ListPipelinesOutput is the result of the list_pipelines MCP tool.
type ListPipelinesOutput struct {
	Pipelines []PipelineSummary `json:"pipelines"`
}

// PipelineSummary is a brief overview of one pipeline definition.
type PipelineSummary struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Terminal string     `json:"terminal,omitempty"`
	Levels   [][]string `json:"levels"`
	Diagram  string     `json:"diagram"`
}

// CancelRunOutput is the result of the cancel_run MCP tool.
type CancelRunOutput struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
}
