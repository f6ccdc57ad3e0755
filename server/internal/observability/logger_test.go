package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContextLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	reqCtx := NewRequestContext(logger, "send_message", 42)
	require.NotEmpty(t, reqCtx.RequestID)

	reqCtx.Error("completion failed", errors.New("boom"), slog.Int(LogFieldConversationID, 7))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "completion failed", entry["msg"])
	assert.Equal(t, reqCtx.RequestID, entry[LogFieldRequestID])
	assert.Equal(t, float64(42), entry[LogFieldUserID])
	assert.Equal(t, "send_message", entry[LogFieldOperation])
	assert.Equal(t, float64(7), entry[LogFieldConversationID])
	assert.Equal(t, "boom", entry["error"])
}

func TestRequestContextRoundTrip(t *testing.T) {
	reqCtx := NewRequestContextWithID(nil, "req-1", "list_messages", 3)
	ctx := WithRequestContext(context.Background(), reqCtx)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, reqCtx, got)
	assert.NotNil(t, got.Logger)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
