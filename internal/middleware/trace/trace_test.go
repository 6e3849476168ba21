package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "chitieu/internal/log"
)

func TestMiddleware_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Output: &buf})
	m := NewMiddleware(logger, func(*http.Request) string { return "192.0.2.1" })

	var seen string
	var ctxLogger *applog.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		ctxLogger = applog.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if !strings.HasPrefix(seen, "req_") || rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("request id = %q, header = %q", seen, rec.Header().Get(HeaderRequestID))
	}
	if ctxLogger == nil || ctxLogger.Component() != applog.ComponentHTTP {
		t.Errorf("context logger = %+v", ctxLogger)
	}
	if !strings.Contains(buf.String(), "status_code=418") || !strings.Contains(buf.String(), "request_id="+seen) {
		t.Errorf("log output = %s", buf.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc-123" {
		t.Errorf("incoming id not kept, got %q", seen)
	}

	if got := m.GetMetrics(); got.TotalRequests != 2 || got.InFlight != 0 {
		t.Errorf("metrics = %+v", got)
	}
}

func TestIncomingID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{" ok ", "ok"},
		{"has space", ""},
		{strings.Repeat("a", 65), ""},
	}
	for _, tt := range tests {
		if got := incomingID(tt.in); got != tt.want {
			t.Errorf("incomingID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResponseWriter_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	var w http.ResponseWriter = &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	f, ok := w.(http.Flusher)
	if !ok {
		t.Fatal("responseWriter does not implement http.Flusher")
	}
	f.Flush()
	if !rec.Flushed {
		t.Error("flush not forwarded")
	}
}
