// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestAppendCtx(t *testing.T) {
	parent := AppendCtx(context.Background(), slog.String("meeting_uid", "m-1"))
	child := AppendCtx(parent, slog.String("conference_id", "c-1"))
	sibling := AppendCtx(parent, slog.String("job", "fetch_transcript"))

	parentAttrs, _ := parent.Value(slogFields).([]slog.Attr)
	childAttrs, _ := child.Value(slogFields).([]slog.Attr)
	siblingAttrs, _ := sibling.Value(slogFields).([]slog.Attr)

	assert.Len(t, parentAttrs, 1)
	require.Len(t, childAttrs, 2)
	require.Len(t, siblingAttrs, 2)
	assert.Equal(t, "conference_id", childAttrs[1].Key)
	assert.Equal(t, "job", siblingAttrs[1].Key, "siblings do not share a backing array")
}

func TestAppendCtx_NilParent(t *testing.T) {
	//nolint:staticcheck // exercising the nil guard
	ctx := AppendCtx(nil, slog.String("k", "v"))
	require.NotNil(t, ctx)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestHandler_ContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := AppendCtx(context.Background(), slog.String("meeting_uid", "m-1"))
	logger.InfoContext(ctx, "status changed", "status", "Completed")

	line := decodeLine(t, &buf)
	assert.Equal(t, "status changed", line["msg"])
	assert.Equal(t, "m-1", line["meeting_uid"])
	assert.Equal(t, "Completed", line["status"])
}

func TestHandler_TraceCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, nil))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "inside span")
	span.End()

	line := decodeLine(t, &buf)
	assert.Equal(t, span.SpanContext().TraceID().String(), line["trace_id"])
}

func TestLevelFromEnv(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelDebug,
		"verbose": slog.LevelDebug,
	}
	for value, want := range tests {
		assert.Equal(t, want, levelFromEnv(value), value)
	}
}

func TestInitStructureLogConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_ADD_SOURCE", "true")

	h := InitStructureLogConfig()

	require.NotNil(t, h)
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
}

func TestPriorityCritical(t *testing.T) {
	attr := PriorityCritical()
	assert.Equal(t, "priority", attr.Key)
	assert.Equal(t, "critical", attr.Value.String())
}
