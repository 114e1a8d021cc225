// Package lambdatransport adapts the migration pipeline to AWS Lambda behind
// an API Gateway HTTP API, for running conversions without a standing server.
package lambdatransport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/flowport/flowport/internal/engine"
	"github.com/flowport/flowport/pkg/schema"
)

// Handler routes API Gateway requests into the pipeline.
type Handler struct {
	pipeline *engine.Pipeline
}

// NewHandler wraps a pipeline.
func NewHandler(pipeline *engine.Pipeline) *Handler {
	return &Handler{pipeline: pipeline}
}

type migrateRequest struct {
	BPMN string `json:"bpmn"`
}

// Handle serves POST /migrate and POST /analyze. The request body is JSON
// with the BPMN document inline.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	body, err := readBody(req)
	if err != nil {
		return jsonResp(http.StatusBadRequest, errorBody(schema.ErrCodeMalformedInput, "invalid request body: "+err.Error())), nil
	}

	var in migrateRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return jsonResp(http.StatusBadRequest, errorBody(schema.ErrCodeMalformedInput, "invalid json: "+err.Error())), nil
	}
	if in.BPMN == "" {
		return jsonResp(http.StatusBadRequest, errorBody(schema.ErrCodeMalformedInput, "bpmn is required")), nil
	}

	if strings.HasSuffix(req.RawPath, "/analyze") {
		report, anErr := h.pipeline.Analyze(ctx, []byte(in.BPMN))
		if anErr != nil {
			return errorResp(anErr), nil
		}
		return jsonResp(http.StatusOK, report), nil
	}

	res, migErr := h.pipeline.Migrate(ctx, []byte(in.BPMN))
	if migErr != nil {
		return errorResp(migErr), nil
	}
	return jsonResp(http.StatusOK, map[string]any{
		"document": res.Document,
		"report":   res.Report,
	}), nil
}

func readBody(req events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}
	return []byte(req.Body), nil
}

func jsonResp(status int, body any) events.APIGatewayV2HTTPResponse {
	b, _ := json.Marshal(body)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       string(b),
	}
}

func errorResp(err error) events.APIGatewayV2HTTPResponse {
	var ferr *schema.FlowportError
	if errors.As(err, &ferr) {
		return jsonResp(http.StatusBadRequest, map[string]any{"error": ferr})
	}
	return jsonResp(http.StatusInternalServerError, errorBody(schema.ErrCodeExecution, err.Error()))
}

func errorBody(code, message string) map[string]any {
	return map[string]any{
		"error": map[string]string{"code": code, "message": message},
	}
}
