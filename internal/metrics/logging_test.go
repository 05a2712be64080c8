package metrics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func captureLogger() (*zap.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(&buf), zapcore.InfoLevel)), &buf
}

func serveLogged(t *testing.T, req *http.Request, status int) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	log, buf := captureLogger()
	wrapped := LoggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log: %s", buf.String())
	return entry, w
}

func TestLoggingMiddleware(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/assess", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	entry, w := serveLogged(t, req, http.StatusCreated)

	assert.Equal(t, "POST", entry["method"])
	assert.Equal(t, "/api/assess", entry["path"])
	assert.Equal(t, float64(201), entry["status"])
	assert.Equal(t, "192.168.1.1:12345", entry["client_ip"])
	assert.Contains(t, entry, "duration_ms")

	id := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, id)
	assert.Equal(t, id, entry["request_id"])
}

func TestLoggingMiddleware_KeepsRequestID(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")

	entry, w := serveLogged(t, req, http.StatusOK)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "abc-123", entry["request_id"])
}

func TestLoggingMiddleware_XForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 10.0.0.2")
	req.RemoteAddr = "10.0.0.1:54321"

	entry, _ := serveLogged(t, req, http.StatusOK)
	assert.Equal(t, "203.0.113.50", entry["client_ip"])
}
