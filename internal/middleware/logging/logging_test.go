package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/skillcert/internal/middleware/realip"
)

// testHandler returns a handler that writes a response with the given status and body
func testHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
}

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestMiddleware_LogsRequests(t *testing.T) {
	var logBuf bytes.Buffer
	handler := Middleware(newLogger(&logBuf), Config{})(testHandler(http.StatusOK, "hello"))

	req := httptest.NewRequest("GET", "/api/v1/skills/Qm123", nil)
	req.RemoteAddr = "192.168.1.100:12345"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "hello", rr.Body.String())

	entry := decode(t, &logBuf)
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/api/v1/skills/Qm123", entry["path"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
	assert.Equal(t, float64(5), entry["bytes"])
	assert.NotEmpty(t, entry["duration"])
	assert.Equal(t, "192.168.1.100", entry["client_ip"])
}

func TestMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusCreated, "INFO"},
		{http.StatusBadRequest, "WARN"},
		{http.StatusConflict, "WARN"},
		{http.StatusBadGateway, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var logBuf bytes.Buffer
			handler := Middleware(newLogger(&logBuf), Config{})(testHandler(tt.status, ""))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/v1/skills", nil))

			entry := decode(t, &logBuf)
			assert.Equal(t, tt.want, entry["level"])
			assert.Equal(t, float64(tt.status), entry["status"])
		})
	}
}

func TestMiddleware_QuietPaths(t *testing.T) {
	var logBuf bytes.Buffer
	mw := Middleware(newLogger(&logBuf), Config{Quiet: []string{"/healthz"}})

	mw(testHandler(http.StatusOK, "")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, "DEBUG", decode(t, &logBuf)["level"])

	// Failures on quiet paths still surface.
	logBuf.Reset()
	mw(testHandler(http.StatusServiceUnavailable, "")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, "ERROR", decode(t, &logBuf)["level"])
}

func TestMiddleware_DefaultStatus200(t *testing.T) {
	var logBuf bytes.Buffer
	handler := Middleware(newLogger(&logBuf), Config{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("no explicit status"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, float64(http.StatusOK), decode(t, &logBuf)["status"])
}

func TestMiddleware_RoutePattern(t *testing.T) {
	var logBuf bytes.Buffer
	r := chi.NewRouter()
	r.Use(Middleware(newLogger(&logBuf), Config{}))
	r.Get("/api/v1/skills/{hash}", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/skills/QmAbc", nil))

	assert.Equal(t, "/api/v1/skills/{hash}", decode(t, &logBuf)["route"])
}

func TestMiddleware_IncludesRequestID(t *testing.T) {
	var logBuf bytes.Buffer
	handler := Middleware(newLogger(&logBuf), Config{})(testHandler(http.StatusOK, ""))

	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "test-request-id-123"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "test-request-id-123", decode(t, &logBuf)["request_id"])
}

func TestMiddleware_UsesRealIPFromContext(t *testing.T) {
	var logBuf bytes.Buffer
	realipMiddleware := realip.Middleware(realip.Config{
		TrustProxy:     true,
		TrustedProxies: []string{"10.0.0.0/8"},
	})
	handler := realipMiddleware(Middleware(newLogger(&logBuf), Config{})(testHandler(http.StatusOK, "")))

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	req.Header.Set("X-Forwarded-For", "203.0.113.50")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "203.0.113.50", decode(t, &logBuf)["client_ip"])
}

func TestMiddleware_OneLinePerRequest(t *testing.T) {
	var logBuf bytes.Buffer
	handler := Middleware(newLogger(&logBuf), Config{})(testHandler(http.StatusOK, "x"))

	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	}
	assert.Equal(t, 3, strings.Count(logBuf.String(), "\n"))
}
