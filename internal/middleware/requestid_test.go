package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fluxcrm/leadengine/internal/logger"
)

func TestRequestIDPropagatesHeader(t *testing.T) {
	var ctxID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = logger.RequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("X-Request-ID", "req-abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if ctxID != "req-abc-123" {
		t.Errorf("context request id = %q, want %q", ctxID, "req-abc-123")
	}
	if got := rec.Header().Get("X-Request-ID"); got != "req-abc-123" {
		t.Errorf("response header = %q, want %q", got, "req-abc-123")
	}
}

func TestRequestIDGenerates(t *testing.T) {
	var ctxID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = logger.RequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if len(ctxID) != 32 {
		t.Errorf("generated id length = %d, want 32 hex chars", len(ctxID))
	}
	if rec.Header().Get("X-Request-ID") != ctxID {
		t.Error("response header does not match context id")
	}
}
