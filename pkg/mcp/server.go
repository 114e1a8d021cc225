// Package mcp exposes the migration pipeline as MCP tools over stdio, so
// agent clients can migrate and inspect process documents without the HTTP
// API.
package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flowport/flowport/internal/engine"
	"github.com/flowport/flowport/internal/store"
)

// FlowportServerDeps holds the dependencies for creating a FlowportServer.
type FlowportServerDeps struct {
	Pipeline *engine.Pipeline
	Store    store.Store
	Logger   *slog.Logger
}

// FlowportServer wraps an MCP server with flowport-specific tool handlers.
type FlowportServer struct {
	pipeline  *engine.Pipeline
	store     store.Store
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewFlowportServer creates a new FlowportServer with all 4 tools registered.
func NewFlowportServer(deps FlowportServerDeps) *FlowportServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &FlowportServer{
		pipeline: deps.Pipeline,
		store:    deps.Store,
		logger:   logger,
	}

	mcpSrv := server.NewMCPServer(
		"flowport",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Flowport converts BPMN 2.0 process definitions into sequential workflow documents. Use flowport.migrate to convert a document, flowport.analyze for the migration report only, flowport.runs to browse archived runs, and flowport.diagram to visualize a source process or its converted workflow."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *FlowportServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *FlowportServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the 4 registered MCP tools as ServerTool entries.
func (s *FlowportServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: migrateTool(), Handler: s.handleMigrate},
		{Tool: analyzeTool(), Handler: s.handleAnalyze},
		{Tool: runsTool(), Handler: s.handleRuns},
		{Tool: diagramTool(), Handler: s.handleDiagram},
	}
}

// --- Tool definitions ---

func migrateTool() mcp.Tool {
	return mcp.NewTool("flowport.migrate",
		mcp.WithDescription("Convert a BPMN 2.0 process definition into a sequential workflow document with a migration report"),
		mcp.WithString("bpmn", mcp.Required(), mcp.Description("The BPMN 2.0 XML document")),
		mcp.WithString("source_name", mcp.Description("Original file name, recorded in the run archive")),
		mcp.WithString("archive", mcp.Description("Set to 'false' to skip archiving the run (default: true when a store is configured)")),
	)
}

func analyzeTool() mcp.Tool {
	return mcp.NewTool("flowport.analyze",
		mcp.WithDescription("Produce the migration feasibility report for a BPMN 2.0 document without returning the converted workflow"),
		mcp.WithString("bpmn", mcp.Required(), mcp.Description("The BPMN 2.0 XML document")),
	)
}

func runsTool() mcp.Tool {
	return mcp.NewTool("flowport.runs",
		mcp.WithDescription("Browse archived migration runs"),
		mcp.WithString("run_id", mcp.Description("Fetch one run by id (returns document and report)")),
		mcp.WithObject("filter", mcp.Description("Filter criteria (process_id, complexity, limit)")),
	)
}

func diagramTool() mcp.Tool {
	return mcp.NewTool("flowport.diagram",
		mcp.WithDescription("Generate a visual diagram of a source process or its converted workflow. Returns Mermaid flowchart syntax or a base64-encoded PNG image"),
		mcp.WithString("bpmn", mcp.Description("BPMN 2.0 XML document to diagram (alternative to run_id)")),
		mcp.WithString("run_id", mcp.Description("Archived run to diagram (alternative to bpmn)")),
		mcp.WithString("view", mcp.Required(),
			mcp.Enum("source", "target"),
			mcp.Description("Diagram the source process graph or the converted target workflow"),
		),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("mermaid", "image"),
			mcp.Description("Output format: mermaid (flowchart syntax) or image (base64 PNG)"),
		),
	)
}
