package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

// version is set by the linker at build time.
var version = "dev"

// NewPipelineMCPServer creates an MCP server with the run tools registered:
// start_run, get_run, list_runs, list_pipelines and cancel_run.
func NewPipelineMCPServer(orch orchestrator.Orchestrator) *mcp.Server {
	svc := NewPipelineService(orch)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "genpipe",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "start_run",
		Description: "Start a generation pipeline run (business-plan or mvp-build) for an idea. Returns the run id; set wait to block until the run finishes.",
	}, svc.StartRun)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_run",
		Description: "Get the status, progress and artifact of a run.",
	}, svc.GetRun)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_runs",
		Description: "List runs, optionally filtered by pipeline and outcome.",
	}, svc.ListRuns)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_pipelines",
		Description: "List the available pipelines with their stage levels and a Mermaid diagram.",
	}, svc.ListPipelines)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cancel_run",
		Description: "Cancel a running pipeline. Stages not yet started are skipped.",
	}, svc.CancelRun)

	return server
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking until
// stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunMCPServerHTTP serves the MCP server over streamable HTTP on addr until
// ctx is cancelled.
func RunMCPServerHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
