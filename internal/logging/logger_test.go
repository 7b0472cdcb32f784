package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	stored := &CtxLogger{New(DebugLevel, &buf)}

	ctx := stored.WithContext(context.Background())
	got := FromContext(ctx)

	assert.Same(t, stored, got, "context carries the stored logger")
}

func TestFromContextFallback(t *testing.T) {
	got := FromContext(context.Background())
	require.NotNil(t, got)

	// The fallback logger is usable, not just non-nil.
	assert.NotPanics(t, func() {
		got.Debug("ignored at default level")
	})
}

func TestWithFieldsMergesIntoEntries(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf).WithFields(map[string]interface{}{
		"request_id": "req-1",
	})

	logger.Info("Request started", map[string]interface{}{"path": "/api/v1/search"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "/api/v1/search", entry["path"])
	assert.Equal(t, "Request started", entry["message"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WarnLevel, &buf)

	logger.Info("suppressed")
	assert.Zero(t, buf.Len())

	logger.Warn("emitted")
	assert.NotZero(t, buf.Len())
}
