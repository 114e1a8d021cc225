package lambdatransport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowport/flowport/internal/engine"
	"github.com/flowport/flowport/pkg/schema"
)

const approvalBPMN = `<?xml version="1.0" encoding="UTF-8"?>
<definitions xmlns="http://www.omg.org/spec/BPMN/20100524/MODEL">
  <process id="purchase_approval" name="Purchase Approval">
    <startEvent id="start"/>
    <userTask id="review" name="Review Request"/>
    <endEvent id="done"/>
    <sequenceFlow id="f1" sourceRef="start" targetRef="review"/>
    <sequenceFlow id="f2" sourceRef="review" targetRef="done"/>
  </process>
</definitions>`

func newHandler(t *testing.T) *Handler {
	t.Helper()
	p, err := engine.New()
	require.NoError(t, err)
	return NewHandler(p)
}

func migrateBody(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(migrateRequest{BPMN: approvalBPMN})
	require.NoError(t, err)
	return string(b)
}

func TestHandleMigrate(t *testing.T) {
	h := newHandler(t)

	resp, err := h.Handle(context.Background(), events.APIGatewayV2HTTPRequest{
		RawPath: "/migrate",
		Body:    migrateBody(t),
	})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["content-type"])

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &out))
	assert.Contains(t, out, "document")
	assert.Contains(t, out, "report")
}

func TestHandleAnalyze(t *testing.T) {
	h := newHandler(t)

	resp, err := h.Handle(context.Background(), events.APIGatewayV2HTTPRequest{
		RawPath: "/analyze",
		Body:    migrateBody(t),
	})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var report schema.MigrationReport
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &report))
	assert.Equal(t, "purchase_approval", report.ProcessID)
}

func TestHandleBase64Body(t *testing.T) {
	h := newHandler(t)

	resp, err := h.Handle(context.Background(), events.APIGatewayV2HTTPRequest{
		RawPath:         "/migrate",
		Body:            base64.StdEncoding.EncodeToString([]byte(migrateBody(t))),
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestHandleInvalidJSON(t *testing.T) {
	h := newHandler(t)

	resp, err := h.Handle(context.Background(), events.APIGatewayV2HTTPRequest{Body: "{"})
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHandleMissingBPMN(t *testing.T) {
	h := newHandler(t)

	resp, err := h.Handle(context.Background(), events.APIGatewayV2HTTPRequest{Body: "{}"})
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHandleMalformedBPMN(t *testing.T) {
	h := newHandler(t)

	body, err := json.Marshal(migrateRequest{BPMN: "not xml <<"})
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), events.APIGatewayV2HTTPRequest{
		RawPath: "/migrate",
		Body:    string(body),
	})
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	var out map[string]*schema.FlowportError
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &out))
	require.NotNil(t, out["error"])
	assert.Equal(t, schema.ErrCodeMalformedInput, out["error"].Code)
}
