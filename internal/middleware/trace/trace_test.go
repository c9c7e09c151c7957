package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tally/internal/log"
)

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Format: "text", Output: &buf})
	m := NewMiddleware(logger, func(*http.Request) string { return "10.0.0.9" })

	var seenID string
	var ctxLogger *log.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		ctxLogger = log.FromContext(r.Context())
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))

	t.Run("generates id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/views", nil))
		if !strings.HasPrefix(seenID, "req_") {
			t.Fatalf("request id = %q", seenID)
		}
		if rec.Header().Get(HeaderRequestID) != seenID {
			t.Errorf("response header = %q", rec.Header().Get(HeaderRequestID))
		}
		if ctxLogger == nil || ctxLogger.Component() != log.ComponentHTTP {
			t.Errorf("request logger not installed")
		}
		out := buf.String()
		if !strings.Contains(out, "HTTP request completed") || !strings.Contains(out, "client_ip=10.0.0.9") {
			t.Errorf("log output = %s", out)
		}
	})

	t.Run("keeps caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/views", nil)
		req.Header.Set(HeaderRequestID, "abc-123")
		h.ServeHTTP(httptest.NewRecorder(), req)
		if seenID != "abc-123" {
			t.Errorf("request id = %q", seenID)
		}
	})

	t.Run("counts server errors", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
		got := m.GetMetrics()
		if got.TotalRequests != 3 || got.ServerErrors != 1 {
			t.Errorf("metrics = %+v", got)
		}
	})
}

func TestGetRequestIDMissing(t *testing.T) {
	if id := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); id != "" {
		t.Errorf("id = %q", id)
	}
}
