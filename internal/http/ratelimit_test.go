package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPLimiterPerIP(t *testing.T) {
	l := newIPLimiter(1, 2)

	// Each IP gets its own bucket.
	assert.Same(t, l.get("10.0.0.1"), l.get("10.0.0.1"))
	assert.NotSame(t, l.get("10.0.0.1"), l.get("10.0.0.2"))
}

func TestIPLimiterBurst(t *testing.T) {
	l := newIPLimiter(0.001, 2)
	limiter := l.get("10.0.0.1")

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow(), "burst of 2 must be exhausted")

	// A different client is unaffected.
	assert.True(t, l.get("10.0.0.2").Allow())
}

func TestIPLimiterCleanup(t *testing.T) {
	l := newIPLimiter(0.001, 1)
	first := l.get("10.0.0.1")
	require.True(t, first.Allow())
	require.False(t, first.Allow())

	// After the cleanup horizon the map starts over and the client
	// gets a fresh bucket.
	l.mu.Lock()
	l.lastCleanup = time.Now().Add(-2 * time.Hour)
	l.mu.Unlock()

	assert.NotSame(t, first, l.get("10.0.0.1"))
}

func TestSubmitRateLimited(t *testing.T) {
	server := setupTestServer(t, &Config{
		Host:           "localhost",
		Port:           8640,
		MaxUploadBytes: 64 << 20,
		RatePerSecond:  0.001,
		RateBurst:      2,
	})

	// Requests fail validation (no archive field) but still consume
	// limiter tokens; the middleware runs first.
	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/jobs", nil)
		req.RemoteAddr = "203.0.113.7:4711"
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusBadRequest, post())
	assert.Equal(t, http.StatusBadRequest, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	// Reads stay available to a throttled client.
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/nope", nil)
	req.RemoteAddr = "203.0.113.7:4711"
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
