package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaarage/storefront/pkg/logger"
)

func debugLogger(buf *bytes.Buffer) *slog.Logger {
	return logger.NewWithWriter("storefront", logger.Options{Level: "debug"}, buf)
}

func TestRequestLogger_UsesIncomingRequestID(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	handler := RequestLogger(debugLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.CorrelationIDFromContext(r.Context())
		logger.FromContext(r.Context()).Info("inside")
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &out))
		assert.Equal(t, "req-42", out["correlation_id"])
	}

	var done map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &done))
	assert.Equal(t, "http request", done["msg"])
	assert.Equal(t, float64(http.StatusTeapot), done["status"])
}

func TestRequestLogger_GeneratesRequestID(t *testing.T) {
	handler := RequestLogger(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	handler := Recovery(debugLogger(&buf))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reachability", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.Contains(t, buf.String(), "panic recovered")
}
