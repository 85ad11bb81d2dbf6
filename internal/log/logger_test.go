package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ildang/internal/core"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelInfo,
		"DEBUG": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestJSONLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentStorage, Output: &buf})

	logger.WithComponent(ComponentLive).InfoContext(context.Background(), "hello", FieldCount, 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, ComponentLive, line[FieldComponent])
	assert.Equal(t, float64(3), line[FieldCount])
}

func TestFieldsToSliceIsSorted(t *testing.T) {
	w := core.WorkLog{ID: 4, Date: core.MustParseDate("2024-06-01"), Location: "A", Amount: 150000}
	got := NewFields().WithOperation(OpCreate).WithWorkLog(w).ToSlice()

	assert.Equal(t, []any{
		FieldAmount, int64(150000),
		FieldDate, "2024-06-01",
		FieldLocation, "A",
		FieldLogID, int64(4),
		FieldOperation, OpCreate,
	}, got)
}

func TestContextCarriesLogger(t *testing.T) {
	logger := New(Config{Component: ComponentLive, Output: &bytes.Buffer{}})
	assert.Same(t, logger, FromContext(WithContext(context.Background(), logger)))
	assert.Equal(t, ComponentHTTP, FromContext(context.Background()).Component())
}

func TestRequestAndResponseFields(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/logs?start=2024-06-01", nil)
	got := NewFields().WithRequest(r).WithResponse(http.StatusOK, 1500*time.Millisecond, 42).ToSlice()

	assert.Equal(t, []any{
		FieldBytes, int64(42),
		FieldDuration, int64(1500),
		FieldMethod, http.MethodGet,
		FieldPath, "/api/logs",
		FieldQuery, "start=2024-06-01",
		FieldStatusCode, http.StatusOK,
	}, got)

	plain := NewFields().WithRequest(httptest.NewRequest(http.MethodPost, "/api/logs", nil))
	assert.NotContains(t, plain, FieldQuery)
}
