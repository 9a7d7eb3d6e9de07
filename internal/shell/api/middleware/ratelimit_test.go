package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// limitedHandler wraps a counting handler with the given limiter.
func limitedHandler(l *RateLimiter) (http.Handler, *int) {
	calls := 0
	h := l.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	return h, &calls
}

func doRequest(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stacks", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{Limit: 3, Window: time.Minute})
	h, calls := limitedHandler(l)

	for i := 0; i < 3; i++ {
		w := doRequest(h, "10.0.0.1:5000")
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 3, *calls)
}

func TestRateLimiter_RejectsOverLimit(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{Limit: 2, Window: time.Minute})
	h, calls := limitedHandler(l)

	doRequest(h, "10.0.0.1:5000")
	doRequest(h, "10.0.0.1:5000")
	w := doRequest(h, "10.0.0.1:5000")

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 2, *calls)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	var body errorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "rate_limited", body.Code)
}

func TestRateLimiter_WindowResets(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{Limit: 1, Window: 50 * time.Millisecond})
	h, _ := limitedHandler(l)

	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(h, "10.0.0.1:5000").Code)

	// Sleeping longer than the window always crosses an aligned boundary.
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:5000").Code)
}

func TestRateLimiter_PerClientBudgets(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{Limit: 1, Window: time.Minute})
	h, _ := limitedHandler(l)

	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(h, "10.0.0.1:5001").Code)
	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.2:5000").Code)
}

func TestRateLimiter_BareAddrKey(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{Limit: 1, Window: time.Minute})
	h, _ := limitedHandler(l)

	// A RemoteAddr with no port still counts against a stable key.
	assert.Equal(t, http.StatusOK, doRequest(h, "10.0.0.9").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(h, "10.0.0.9").Code)
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	l := NewRateLimiter(RateLimitConfig{})

	assert.Equal(t, 120, l.config.Limit)
	assert.Equal(t, time.Minute, l.config.Window)
	assert.NotNil(t, l.config.Logger)
}

func TestRetryAfterSeconds_RoundsUp(t *testing.T) {
	assert.Equal(t, int64(1), retryAfterSeconds(int64(200*time.Millisecond)))
	assert.Equal(t, int64(2), retryAfterSeconds(int64(1500*time.Millisecond)))
	assert.Equal(t, int64(1), retryAfterSeconds(0))
}
