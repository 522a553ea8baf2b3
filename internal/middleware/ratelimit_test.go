package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(handler http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = ip
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := NewRateLimiter(10, 5)
	handler := rl.Handler(okHandler())

	for i := range 5 {
		if rec := hit(handler, "192.168.1.1:1234"); rec.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	rl := NewRateLimiter(10, 3)
	handler := rl.Handler(okHandler())

	for range 3 {
		hit(handler, "192.168.1.1:1234")
	}

	rec := hit(handler, "192.168.1.1:1234")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(10, 2)
	handler := rl.Handler(okHandler())

	for range 2 {
		hit(handler, "10.0.0.1:1000")
	}

	if rec := hit(handler, "10.0.0.1:1000"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("exhausted IP: expected 429, got %d", rec.Code)
	}
	// Another client has its own bucket.
	if rec := hit(handler, "10.0.0.2:1000"); rec.Code != http.StatusOK {
		t.Errorf("fresh IP: expected 200, got %d", rec.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(10, 5)
	handler := rl.Handler(okHandler())

	hit(handler, "10.0.0.1:1000")
	hit(handler, "10.0.0.2:1000")
	if rl.Len() != 2 {
		t.Fatalf("tracked buckets = %d, want 2", rl.Len())
	}

	time.Sleep(time.Millisecond)
	rl.cleanup(time.Nanosecond)
	if rl.Len() != 0 {
		t.Fatalf("buckets after cleanup = %d, want 0", rl.Len())
	}
}
