package logging

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestLogError_IncludesErrorAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf)

	LogError(logger, "lookup failed", errors.New("boom"), slog.String("stop_id", "s1"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Equal(t, "lookup failed", lines[0]["msg"])
	assert.Equal(t, "boom", lines[0]["error"])
	assert.Equal(t, "s1", lines[0]["stop_id"])
}

func TestLogHTTPRequest_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{503, "ERROR"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		LogHTTPRequest(newJSONLogger(&buf), "GET", "/x", tt.status, 1.5)
		lines := decodeLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, tt.level, lines[0]["level"])
		assert.Equal(t, float64(tt.status), lines[0]["status"])
	}
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}

func TestSafeRollbackWithLogging_AfterCommitIsSilent(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	var buf bytes.Buffer
	SafeRollbackWithLogging(tx, newJSONLogger(&buf), "test")
	assert.Empty(t, buf.String())
}

func TestSlogReporter_SortsTags(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewSlogReporter(newJSONLogger(&buf))

	reporter.Report(context.Background(), errors.New("geocoder down"), map[string]string{
		"module": "routing",
		"action": "resolve_origin",
	})
	reporter.Report(context.Background(), nil, nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "routing", lines[0]["module"])
	assert.Equal(t, "resolve_origin", lines[0]["action"])
	assert.Equal(t, "geocoder down", lines[0]["error"])
}
