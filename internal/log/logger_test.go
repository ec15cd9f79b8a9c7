package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestComponentTagging(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf, Level: slog.LevelDebug})

	logger.Info("plain")
	logger.With(FieldRequestID, "abc").WithComponent(ComponentHTTP).Warn("tagged", FieldCount, 2)
	logger.Debug("debug line")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, ComponentApp, lines[0][FieldComponent])
	assert.Equal(t, ComponentHTTP, lines[1][FieldComponent])
	assert.Equal(t, "abc", lines[1][FieldRequestID], "WithComponent keeps earlier attributes")
	assert.EqualValues(t, 2, lines[1][FieldCount])
	assert.Equal(t, "DEBUG", lines[2]["level"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf, Level: slog.LevelWarn})
	logger.Info("dropped")
	logger.Error("kept")
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["msg"])
}

func TestContextRoundTrip(t *testing.T) {
	logger := Discard().WithComponent(ComponentTracker)
	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))

	fallback := FromContext(context.Background())
	require.NotNil(t, fallback)
	assert.Equal(t, "unknown", fallback.Component())
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))
	ctx := context.Background()

	r := httptest.NewRequest("GET", "/api/transactions?search=rent", nil)
	r.Header.Set("User-Agent", "test-agent")
	sl.LogHTTPStart(ctx, r, "10.0.0.1")
	sl.LogHTTPEnd(ctx, r, 500, 12, "10.0.0.1")
	sl.LogTransaction(ctx, OpCreate, "txn_1", "expense", "Food", 1250)
	sl.LogError(ctx, "Save failed", errors.New("disk full"), ComponentStorage, OpSave, nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 4)

	assert.Equal(t, "HTTP request started", lines[0]["msg"])
	assert.Equal(t, "search=rent", lines[0][FieldQuery])
	assert.Equal(t, "test-agent", lines[0][FieldUserAgent])

	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.EqualValues(t, 500, lines[1][FieldStatusCode])
	assert.Equal(t, false, lines[1][FieldSuccess])

	assert.Equal(t, "Transaction created", lines[2]["msg"])
	assert.Equal(t, ComponentTracker, lines[2][FieldComponent])
	assert.EqualValues(t, 1250, lines[2][FieldTxAmount])

	assert.Equal(t, ComponentStorage, lines[3][FieldComponent])
	assert.Equal(t, "disk full", lines[3][FieldError])
	assert.Equal(t, OpSave, lines[3][FieldOperation])
}
