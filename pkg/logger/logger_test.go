package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestContextHandler_Handle(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})

	testCases := []struct {
		name     string
		ctx      context.Context
		expected map[string]string
		absent   []string
	}{
		{
			name:   "No context values",
			ctx:    context.Background(),
			absent: []string{"trace_id", "request_id", "session_id"},
		},
		{
			name:     "Session ID",
			ctx:      WithSessionID(context.Background(), "s-1"),
			expected: map[string]string{"session_id": "s-1"},
			absent:   []string{"trace_id"},
		},
		{
			name:     "Trace ID",
			ctx:      trace.ContextWithSpanContext(context.Background(), spanCtx),
			expected: map[string]string{"trace_id": traceID.String()},
			absent:   []string{"session_id"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var buf bytes.Buffer
			logger := slog.New(NewContextHandler(slog.NewJSONHandler(&buf, nil))).With("component", "test")

			// when
			logger.InfoContext(tc.ctx, "message")

			// then
			var record map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
			assert.Equal(t, "test", record["component"])
			for k, v := range tc.expected {
				assert.Equal(t, v, record[k])
			}
			for _, k := range tc.absent {
				assert.NotContains(t, record, k)
			}
		})
	}
}

func TestSessionID_Empty(t *testing.T) {
	_, ok := SessionID(WithSessionID(context.Background(), ""))
	assert.False(t, ok)
}
