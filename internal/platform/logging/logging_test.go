package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	grpclogging "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/ogurasousui/business-license-api/internal/platform/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var entry map[string]any
		require.NoError(t, dec.Decode(&entry))
		out = append(out, entry)
	}
	return out
}

func TestNewLogger_SeverityAndComponent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := newLogger(config.LogConfig{Level: "warn", Component: "license-api"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("cache unavailable", zap.String("key", "license:1"))
	require.NoError(t, logger.Sync())

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	require.Equal(t, "WARNING", entries[0]["severity"])
	require.Equal(t, "license-api", entries[0]["component"])
	require.Equal(t, "cache unavailable", entries[0]["message"])
	require.Equal(t, "license:1", entries[0]["key"])
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	t.Parallel()

	_, err := NewLogger(config.LogConfig{Level: "verbose"})
	require.Error(t, err)
}

func TestRequestLogger_StoresLoggerOnContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base, err := newLogger(config.LogConfig{Level: "debug"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	var scoped *zap.Logger
	handler := middleware.RequestID(RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scoped = FromContext(r.Context(), nil)
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/licenses/search", nil))

	require.NotNil(t, scoped)
	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	require.Equal(t, "request completed", entries[0]["message"])
	require.Equal(t, float64(http.StatusTeapot), entries[0]["status"])
	require.Equal(t, "/api/v1/licenses/search", entries[0]["path"])
	require.NotEmpty(t, entries[0]["request_id"])
}

func TestInterceptorLogger_MapsFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base, err := newLogger(config.LogConfig{Level: "debug"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	InterceptorLogger(base).Log(context.Background(), grpclogging.LevelError, "finished call", "grpc.code", "Internal", "grpc.time_ms", 12)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	require.Equal(t, "ERROR", entries[0]["severity"])
	require.Equal(t, "Internal", entries[0]["grpc.code"])
	require.Equal(t, float64(12), entries[0]["grpc.time_ms"])
}
