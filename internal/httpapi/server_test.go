package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

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
    <userTask id="submit" name="Submit Request"/>
    <userTask id="review" name="Review Request"/>
    <exclusiveGateway id="decision" name="Approved?" default="flow_reject"/>
    <serviceTask id="order" name="Place Order"/>
    <sendTask id="notify_reject" name="Notify Rejection"/>
    <endEvent id="done_ok"/>
    <endEvent id="done_reject"/>
    <sequenceFlow id="f1" sourceRef="start" targetRef="submit"/>
    <sequenceFlow id="f2" sourceRef="submit" targetRef="review"/>
    <sequenceFlow id="f3" sourceRef="review" targetRef="decision"/>
    <sequenceFlow id="flow_approve" sourceRef="decision" targetRef="order">
      <conditionExpression>approved == true</conditionExpression>
    </sequenceFlow>
    <sequenceFlow id="flow_reject" sourceRef="decision" targetRef="notify_reject"/>
    <sequenceFlow id="f4" sourceRef="order" targetRef="done_ok"/>
    <sequenceFlow id="f5" sourceRef="notify_reject" targetRef="done_reject"/>
  </process>
</definitions>`

func newTestServer(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	p, err := engine.New()
	require.NoError(t, err)
	return NewServer(p, opts...).Router()
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewLibSQLStore("file:" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMigrate(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/migrate", bytes.NewReader([]byte(approvalBPMN))))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp migrateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Document)
	require.NotNil(t, resp.Report)
	assert.Empty(t, resp.RunID, "no store configured")
	assert.Equal(t, "purchase_approval", resp.Report.ProcessID)
	assert.Len(t, resp.Document.Steps, 4)
}

func TestMigrateArchivesRun(t *testing.T) {
	s := newTestStore(t)
	h := newTestServer(t, WithStore(s))

	req := httptest.NewRequest(http.MethodPost, "/v1/migrate", bytes.NewReader([]byte(approvalBPMN)))
	req.Header.Set("X-Source-Name", "approval.bpmn")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp migrateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.RunID)

	run, err := s.GetRun(context.Background(), resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, "purchase_approval", run.ProcessID)
	assert.Equal(t, "approval.bpmn", run.SourceName)
}

func TestMigrateMalformedInput(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/migrate", bytes.NewReader([]byte("not xml at all <<"))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var envelope map[string]errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, schema.ErrCodeMalformedInput, envelope["error"].Code)
}

func TestMigrateEmptyBody(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/migrate", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyze(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader([]byte(approvalBPMN))))

	require.Equal(t, http.StatusOK, rec.Code)
	var report schema.MigrationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "purchase_approval", report.ProcessID)
	assert.NotEmpty(t, report.Supported)
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	h := newTestServer(t, WithStore(s))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/migrate", bytes.NewReader([]byte(approvalBPMN))))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs?process_id=purchase_approval", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var runs []*store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)
}

func TestGetRunNotFound(t *testing.T) {
	h := newTestServer(t, WithStore(newTestStore(t)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var envelope map[string]errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, schema.ErrCodeNotFound, envelope["error"].Code)
}

func TestDeleteRun(t *testing.T) {
	s := newTestStore(t)
	h := newTestServer(t, WithStore(s))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/migrate", bytes.NewReader([]byte(approvalBPMN))))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp migrateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/runs/"+resp.RunID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/"+resp.RunID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunsWithoutStore(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
