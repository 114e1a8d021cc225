package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	// Initially empty.
	assert.Equal(t, "", DocumentID(ctx))
	assert.Equal(t, "", NodeID(ctx))
	assert.Equal(t, "", RunID(ctx))

	// Set values.
	ctx = WithDocumentID(ctx, "doc-123")
	ctx = WithNodeID(ctx, "task_1")
	ctx = WithRunID(ctx, "run-42")

	// Round-trip.
	assert.Equal(t, "doc-123", DocumentID(ctx))
	assert.Equal(t, "task_1", NodeID(ctx))
	assert.Equal(t, "run-42", RunID(ctx))
}

func TestLogWith(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := context.Background()
	ctx = WithDocumentID(ctx, "doc-abc")
	ctx = WithNodeID(ctx, "gw_1")
	ctx = WithRunID(ctx, "run-7")

	enriched := LogWith(ctx, logger)
	enriched.Info("test message")

	output := buf.String()
	assert.Contains(t, output, "document_id=doc-abc")
	assert.Contains(t, output, "node_id=gw_1")
	assert.Contains(t, output, "run_id=run-7")
	assert.Contains(t, output, "test message")
}

func TestLogWithMissingKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Only set document ID — node and run should not appear.
	ctx := WithDocumentID(context.Background(), "doc-only")

	enriched := LogWith(ctx, logger)
	enriched.Info("partial context")

	output := buf.String()
	assert.Contains(t, output, "document_id=doc-only")
	assert.NotContains(t, output, "node_id")
	assert.NotContains(t, output, "run_id")
}

func TestLogWithEmptyContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// No correlation IDs — no extra attrs.
	enriched := LogWith(context.Background(), logger)
	enriched.Info("no context")

	output := buf.String()
	assert.NotContains(t, output, "document_id")
	assert.NotContains(t, output, "node_id")
	assert.NotContains(t, output, "run_id")
	assert.Contains(t, output, "no context")
}

func TestWithIDs(t *testing.T) {
	ctx := WithIDs(context.Background(), "doc-1", "node-2", "run-3")
	assert.Equal(t, "doc-1", DocumentID(ctx))
	assert.Equal(t, "node-2", NodeID(ctx))
	assert.Equal(t, "run-3", RunID(ctx))
}

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewCorrelationHandler(inner))

	ctx := WithIDs(context.Background(), "doc-auto", "node-auto", "run-auto")
	logger.InfoContext(ctx, "auto inject")

	output := buf.String()
	assert.Contains(t, output, `"document_id":"doc-auto"`)
	assert.Contains(t, output, `"node_id":"node-auto"`)
	assert.Contains(t, output, `"run_id":"run-auto"`)
	assert.Contains(t, output, "auto inject")
}

func TestCorrelationHandlerEmptyContext(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewCorrelationHandler(inner))

	logger.InfoContext(context.Background(), "bare log")

	output := buf.String()
	assert.NotContains(t, output, "document_id")
	assert.NotContains(t, output, "node_id")
	assert.NotContains(t, output, "run_id")
	assert.Contains(t, output, "bare log")
}

func TestCorrelationHandlerPartialContext(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewCorrelationHandler(inner))

	ctx := WithDocumentID(context.Background(), "doc-only")
	logger.InfoContext(ctx, "partial")

	output := buf.String()
	assert.Contains(t, output, `"document_id":"doc-only"`)
	assert.NotContains(t, output, "node_id")
	assert.NotContains(t, output, "run_id")
}

func TestCorrelationHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	handler := NewCorrelationHandler(inner)
	logger := slog.New(handler.WithAttrs([]slog.Attr{slog.String("component", "pipeline")}))

	ctx := WithDocumentID(context.Background(), "doc-attr")
	logger.InfoContext(ctx, "with attrs")

	output := buf.String()
	assert.Contains(t, output, `"document_id":"doc-attr"`)
	assert.Contains(t, output, `"component":"pipeline"`)
}

func TestCorrelationHandlerWithGroup(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	handler := NewCorrelationHandler(inner)
	logger := slog.New(handler.WithGroup("pipeline"))

	ctx := WithDocumentID(context.Background(), "doc-grp")
	logger.InfoContext(ctx, "grouped", "key", "val")

	output := buf.String()
	assert.Contains(t, output, "doc-grp")
	assert.Contains(t, output, "grouped")
}
