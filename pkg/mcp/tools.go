package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flowport/flowport/internal/diagram"
	"github.com/flowport/flowport/internal/store"
	"github.com/flowport/flowport/pkg/schema"
)

// handleMigrate converts a BPMN document and optionally archives the run.
func (s *FlowportServer) handleMigrate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bpmn, err := req.RequireString("bpmn")
	if err != nil {
		return mcp.NewToolResultError("bpmn is required"), nil
	}

	res, migErr := s.pipeline.Migrate(ctx, []byte(bpmn))
	if migErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("migration failed: %v", migErr)), nil
	}

	out := map[string]any{
		"document": res.Document,
		"report":   res.Report,
	}

	if s.store != nil && req.GetString("archive", "true") != "false" {
		run := &store.Run{
			ID:               uuid.NewString(),
			ProcessID:        res.Report.ProcessID,
			SourceName:       req.GetString("source_name", ""),
			FeasibilityScore: res.Report.FeasibilityScore,
			Complexity:       res.Report.ComplexityLevel,
			Document:         res.Document,
			Report:           res.Report,
			CreatedAt:        time.Now().UTC(),
		}
		if saveErr := s.store.SaveRun(ctx, run); saveErr != nil {
			s.logger.WarnContext(ctx, "archive run failed", "error", saveErr)
		} else {
			out["run_id"] = run.ID
		}
	}

	return marshalResult(out)
}

// handleAnalyze returns the migration report only.
func (s *FlowportServer) handleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bpmn, err := req.RequireString("bpmn")
	if err != nil {
		return mcp.NewToolResultError("bpmn is required"), nil
	}

	report, anErr := s.pipeline.Analyze(ctx, []byte(bpmn))
	if anErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", anErr)), nil
	}
	return marshalResult(report)
}

// handleRuns fetches one archived run or lists runs matching a filter.
func (s *FlowportServer) handleRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("run archive is not configured"), nil
	}

	if runID := req.GetString("run_id", ""); runID != "" {
		run, err := s.store.GetRun(ctx, runID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("run lookup failed: %v", err)), nil
		}
		return marshalResult(run)
	}

	filter := mcp.ParseStringMap(req, "filter", nil)
	rf := store.RunFilter{
		Limit: extractInt(filter, "limit", 50),
	}
	if processID, ok := filter["process_id"].(string); ok {
		rf.ProcessID = processID
	}
	if complexity, ok := filter["complexity"].(string); ok {
		rf.Complexity = schema.ComplexityLevel(complexity)
	}

	runs, err := s.store.ListRuns(ctx, rf)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	// Summaries only; full documents come from a run_id lookup.
	summaries := make([]map[string]any, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, map[string]any{
			"run_id":            run.ID,
			"process_id":        run.ProcessID,
			"source_name":       run.SourceName,
			"feasibility_score": run.FeasibilityScore,
			"complexity":        run.Complexity,
			"created_at":        run.CreatedAt,
		})
	}
	return marshalResult(map[string]any{"runs": summaries})
}

// handleDiagram renders a source process or converted workflow diagram.
func (s *FlowportServer) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := req.RequireString("view")
	if err != nil {
		return mcp.NewToolResultError("view is required"), nil
	}
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}

	bpmn := req.GetString("bpmn", "")
	runID := req.GetString("run_id", "")
	if bpmn == "" && runID == "" {
		return mcp.NewToolResultError("one of bpmn or run_id is required"), nil
	}

	var model *diagram.Model
	switch {
	case bpmn != "":
		res, migErr := s.pipeline.Migrate(ctx, []byte(bpmn))
		if migErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("migration failed: %v", migErr)), nil
		}
		if view == "source" {
			model = diagram.BuildSource(res.Graph, res.Report)
		} else {
			model = diagram.BuildTarget(res.Document)
		}
	default:
		if s.store == nil {
			return mcp.NewToolResultError("run archive is not configured"), nil
		}
		run, runErr := s.store.GetRun(ctx, runID)
		if runErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("run lookup failed: %v", runErr)), nil
		}
		// Archived runs keep the converted document only; the source graph
		// would need the original BPMN.
		if view == "source" {
			return mcp.NewToolResultError("source view requires bpmn; archived runs keep the converted document only"), nil
		}
		model = diagram.BuildTarget(run.Document)
	}

	switch format {
	case "mermaid":
		return mcp.NewToolResultText(diagram.RenderMermaid(model)), nil
	case "image":
		png, imgErr := diagram.RenderImage(model)
		if imgErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", imgErr)), nil
		}
		return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(png)), nil
	default:
		return mcp.NewToolResultError("format must be mermaid or image"), nil
	}
}

// --- Internal helpers ---

// extractInt safely extracts an integer from a filter map.
func extractInt(filter map[string]any, key string, defaultVal int) int {
	if filter == nil {
		return defaultVal
	}
	v, ok := filter[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	}
	return defaultVal
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
