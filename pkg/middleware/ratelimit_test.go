package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func rateLimitTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRateLimit_AllowsWithinBurst(t *testing.T) {
	handler := RateLimit(1, 3, rateLimitTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "203.0.113.10:5000"
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "request %d within burst should pass", i+1)
	}
}

func TestRateLimit_RejectsBeyondBurst(t *testing.T) {
	handler := RateLimit(1, 2, rateLimitTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var lastCode int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "203.0.113.10:5000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		lastCode = rr.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
}

func TestRateLimit_429ResponseShape(t *testing.T) {
	handler := RateLimit(1, 1, rateLimitTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = "203.0.113.10:5000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code == http.StatusTooManyRequests {
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.Equal(t, "1", rr.Header().Get("Retry-After"))
			assert.Contains(t, rr.Body.String(), "too many requests")
			return
		}
	}
	t.Fatal("second request should have been rate limited")
}

func TestRateLimit_SeparateBucketsPerIP(t *testing.T) {
	handler := RateLimit(1, 1, rateLimitTestLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Exhaust the first client's bucket.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "203.0.113.10:5000"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "203.0.113.10:5000"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	// A different client is unaffected.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "198.51.100.20:6000"
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"remote addr only", "203.0.113.10:5000", "", "", "203.0.113.10"},
		{"x-forwarded-for wins", "10.0.0.1:5000", "203.0.113.7", "", "203.0.113.7"},
		{"x-forwarded-for first hop", "10.0.0.1:5000", "203.0.113.7, 10.0.0.2", "", "203.0.113.7"},
		{"x-real-ip fallback", "10.0.0.1:5000", "", "203.0.113.9", "203.0.113.9"},
		{"garbage xff ignored", "203.0.113.10:5000", "not-an-ip", "", "203.0.113.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}

func TestVisitorStore_CleanupEvictsStale(t *testing.T) {
	store := newVisitorStore(1, 1, time.Minute)
	base := time.Now()
	store.nowFunc = func() time.Time { return base }

	store.getVisitor("203.0.113.10")
	store.getVisitor("198.51.100.20")
	assert.Equal(t, 2, store.len())

	// Advance past the TTL for one visitor only.
	store.nowFunc = func() time.Time { return base.Add(30 * time.Second) }
	store.getVisitor("203.0.113.10")

	store.nowFunc = func() time.Time { return base.Add(70 * time.Second) }
	store.cleanup()

	assert.Equal(t, 1, store.len())
}
