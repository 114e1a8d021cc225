package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowport/flowport/internal/engine"
	"github.com/flowport/flowport/internal/store"
	"github.com/flowport/flowport/pkg/schema"
)

const approvalBPMN = `<?xml version="1.0" encoding="UTF-8"?>
<definitions xmlns="http://www.omg.org/spec/BPMN/20100524/MODEL">
  <process id="purchase_approval" name="Purchase Approval">
    <startEvent id="start"/>
    <userTask id="review" name="Review Request"/>
    <exclusiveGateway id="decision" name="Approved?" default="flow_reject"/>
    <serviceTask id="order" name="Place Order"/>
    <sendTask id="notify_reject" name="Notify Rejection"/>
    <endEvent id="done_ok"/>
    <endEvent id="done_reject"/>
    <sequenceFlow id="f1" sourceRef="start" targetRef="review"/>
    <sequenceFlow id="f2" sourceRef="review" targetRef="decision"/>
    <sequenceFlow id="flow_approve" sourceRef="decision" targetRef="order">
      <conditionExpression>approved == true</conditionExpression>
    </sequenceFlow>
    <sequenceFlow id="flow_reject" sourceRef="decision" targetRef="notify_reject"/>
    <sequenceFlow id="f3" sourceRef="order" targetRef="done_ok"/>
    <sequenceFlow id="f4" sourceRef="notify_reject" targetRef="done_reject"/>
  </process>
</definitions>`

// --- Mock Store ---

type mockStore struct {
	runs    map[string]*store.Run
	ordered []string
	saveErr error
}

func newMockStore() *mockStore {
	return &mockStore{runs: make(map[string]*store.Run)}
}

func (m *mockStore) SaveRun(_ context.Context, run *store.Run) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, exists := m.runs[run.ID]; !exists {
		m.ordered = append(m.ordered, run.ID)
	}
	m.runs[run.ID] = run
	return nil
}

func (m *mockStore) GetRun(_ context.Context, id string) (*store.Run, error) {
	if run, ok := m.runs[id]; ok {
		return run, nil
	}
	return nil, schema.NewError(schema.ErrCodeNotFound, "run not found")
}

func (m *mockStore) ListRuns(_ context.Context, filter store.RunFilter) ([]*store.Run, error) {
	result := make([]*store.Run, 0)
	for _, id := range m.ordered {
		run := m.runs[id]
		if filter.ProcessID != "" && run.ProcessID != filter.ProcessID {
			continue
		}
		if filter.Complexity != "" && run.Complexity != filter.Complexity {
			continue
		}
		result = append(result, run)
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *mockStore) DeleteRun(_ context.Context, id string) error {
	delete(m.runs, id)
	return nil
}

func (m *mockStore) Migrate(_ context.Context) error { return nil }
func (m *mockStore) Vacuum(_ context.Context) error  { return nil }
func (m *mockStore) Close() error                    { return nil }

// --- Helpers ---

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func newServer(t *testing.T, s store.Store) *FlowportServer {
	t.Helper()
	p, err := engine.New()
	require.NoError(t, err)
	return NewFlowportServer(FlowportServerDeps{Pipeline: p, Store: s})
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

// --- Tests ---

func TestMigrateTool(t *testing.T) {
	ms := newMockStore()
	s := newServer(t, ms)

	req := buildRequest("flowport.migrate", map[string]any{
		"bpmn":        approvalBPMN,
		"source_name": "approval.bpmn",
	})

	result, err := s.handleMigrate(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.IsError)

	out := resultJSON(t, result)
	assert.Contains(t, out, "document")
	assert.Contains(t, out, "report")
	require.Contains(t, out, "run_id")

	// Verify the run was archived.
	runID := out["run_id"].(string)
	run, ok := ms.runs[runID]
	require.True(t, ok)
	assert.Equal(t, "purchase_approval", run.ProcessID)
	assert.Equal(t, "approval.bpmn", run.SourceName)
}

func TestMigrateToolSkipArchive(t *testing.T) {
	ms := newMockStore()
	s := newServer(t, ms)

	req := buildRequest("flowport.migrate", map[string]any{
		"bpmn":    approvalBPMN,
		"archive": "false",
	})

	result, err := s.handleMigrate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	out := resultJSON(t, result)
	assert.NotContains(t, out, "run_id")
	assert.Empty(t, ms.runs)
}

func TestMigrateToolMissingBPMN(t *testing.T) {
	s := newServer(t, nil)

	result, err := s.handleMigrate(context.Background(), buildRequest("flowport.migrate", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMigrateToolMalformedBPMN(t *testing.T) {
	s := newServer(t, nil)

	req := buildRequest("flowport.migrate", map[string]any{"bpmn": "not xml <<"})
	result, err := s.handleMigrate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestAnalyzeTool(t *testing.T) {
	s := newServer(t, nil)

	req := buildRequest("flowport.analyze", map[string]any{"bpmn": approvalBPMN})
	result, err := s.handleAnalyze(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	out := resultJSON(t, result)
	assert.Equal(t, "purchase_approval", out["process_id"])
	assert.Contains(t, out, "feasibility_score")
	assert.NotContains(t, out, "document", "analyze returns the report only")
}

func TestRunsToolList(t *testing.T) {
	ms := newMockStore()
	s := newServer(t, ms)

	for i := 0; i < 2; i++ {
		req := buildRequest("flowport.migrate", map[string]any{"bpmn": approvalBPMN})
		result, err := s.handleMigrate(context.Background(), req)
		require.NoError(t, err)
		require.False(t, result.IsError)
	}

	req := buildRequest("flowport.runs", map[string]any{
		"filter": map[string]any{"process_id": "purchase_approval"},
	})
	result, err := s.handleRuns(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsError)

	out := resultJSON(t, result)
	runs := out["runs"].([]any)
	assert.Len(t, runs, 2)
	first := runs[0].(map[string]any)
	assert.Contains(t, first, "run_id")
	assert.Contains(t, first, "feasibility_score")
	assert.NotContains(t, first, "document", "list returns summaries only")
}

func TestRunsToolByID(t *testing.T) {
	ms := newMockStore()
	s := newServer(t, ms)

	migResult, err := s.handleMigrate(context.Background(),
		buildRequest("flowport.migrate", map[string]any{"bpmn": approvalBPMN}))
	require.NoError(t, err)
	runID := resultJSON(t, migResult)["run_id"].(string)

	result, err := s.handleRuns(context.Background(),
		buildRequest("flowport.runs", map[string]any{"run_id": runID}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	out := resultJSON(t, result)
	assert.Contains(t, out, "document")
	assert.Contains(t, out, "report")
}

func TestRunsToolNotFound(t *testing.T) {
	s := newServer(t, newMockStore())

	result, err := s.handleRuns(context.Background(),
		buildRequest("flowport.runs", map[string]any{"run_id": "missing"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestRunsToolWithoutStore(t *testing.T) {
	s := newServer(t, nil)

	result, err := s.handleRuns(context.Background(), buildRequest("flowport.runs", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestDiagramToolMermaidSource(t *testing.T) {
	s := newServer(t, nil)

	req := buildRequest("flowport.diagram", map[string]any{
		"bpmn":   approvalBPMN,
		"view":   "source",
		"format": "mermaid",
	})
	result, err := s.handleDiagram(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError)

	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	assert.Contains(t, text.Text, "graph TD")
	assert.Contains(t, text.Text, "decision{")
}

func TestDiagramToolMermaidTarget(t *testing.T) {
	s := newServer(t, nil)

	req := buildRequest("flowport.diagram", map[string]any{
		"bpmn":   approvalBPMN,
		"view":   "target",
		"format": "mermaid",
	})
	result, err := s.handleDiagram(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError)

	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	assert.Contains(t, text.Text, "graph TD")
}

func TestDiagramToolFromRun(t *testing.T) {
	ms := newMockStore()
	s := newServer(t, ms)

	migResult, err := s.handleMigrate(context.Background(),
		buildRequest("flowport.migrate", map[string]any{"bpmn": approvalBPMN}))
	require.NoError(t, err)
	runID := resultJSON(t, migResult)["run_id"].(string)

	result, err := s.handleDiagram(context.Background(), buildRequest("flowport.diagram", map[string]any{
		"run_id": runID,
		"view":   "target",
		"format": "mermaid",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	// Source view needs the original BPMN.
	result, err = s.handleDiagram(context.Background(), buildRequest("flowport.diagram", map[string]any{
		"run_id": runID,
		"view":   "source",
		"format": "mermaid",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestDiagramToolMissingInput(t *testing.T) {
	s := newServer(t, nil)

	result, err := s.handleDiagram(context.Background(), buildRequest("flowport.diagram", map[string]any{
		"view":   "source",
		"format": "mermaid",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
