// Package middleware provides HTTP middleware for the stackd API.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// =============================================================================
// Rate Limit Configuration
// =============================================================================

// RateLimitConfig holds configuration for the rate limiter.
type RateLimitConfig struct {
	// Limit is the number of requests allowed per client per window.
	Limit int

	// Window is the length of the fixed window. Windows are aligned to
	// multiples of this duration, so a burst straddling a boundary can
	// see up to twice the limit.
	Window time.Duration

	// Logger for rate limiter logging.
	Logger *slog.Logger
}

// =============================================================================
// Rate Limiter
// =============================================================================

// RateLimiter rejects requests in excess of a fixed-window per-client
// budget with 429. Counts live in process, keyed by client IP; a window is
// identified by its aligned start time, so a client's stale entry is
// overwritten the next time it appears.
type RateLimiter struct {
	config RateLimitConfig

	mu      sync.Mutex
	clients map[string]*clientWindow
}

type clientWindow struct {
	start int64 // aligned window start, unix nanoseconds
	count int
}

// maxTrackedClients bounds the client map. When exceeded, entries from
// past windows are swept before the next one is added.
const maxTrackedClients = 4096

// NewRateLimiter creates a rate limiter with the given config.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Limit <= 0 {
		cfg.Limit = 120
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RateLimiter{
		config:  cfg,
		clients: make(map[string]*clientWindow),
	}
}

// Handler returns the middleware handler function.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		now := time.Now().UnixNano()
		window := l.config.Window.Nanoseconds()
		windowStart := now - now%window

		l.mu.Lock()
		if len(l.clients) > maxTrackedClients {
			l.sweep(windowStart)
		}
		cw := l.clients[key]
		if cw == nil || cw.start != windowStart {
			cw = &clientWindow{start: windowStart}
			l.clients[key] = cw
		}
		cw.count++
		count := cw.count
		l.mu.Unlock()

		if count > l.config.Limit {
			l.config.Logger.Warn("rate limit exceeded",
				"client", key,
				"count", count,
				"limit", l.config.Limit,
				"path", r.URL.Path,
			)
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSeconds(windowStart+window-now), 10))
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded", "rate_limited")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// sweep drops entries whose window has passed. Caller holds the lock.
func (l *RateLimiter) sweep(currentStart int64) {
	for key, cw := range l.clients {
		if cw.start != currentStart {
			delete(l.clients, key)
		}
	}
}

// retryAfterSeconds converts the remaining window time to whole seconds,
// rounding up so the client never retries early.
func retryAfterSeconds(remaining int64) int64 {
	secs := (remaining + int64(time.Second) - 1) / int64(time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// clientKey identifies the client for rate limiting. RemoteAddr already
// reflects X-Forwarded-For when the RealIP middleware runs first.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// =============================================================================
// JSON Error Response
// =============================================================================

// errorBody mirrors the API's error envelope.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeJSONError writes a JSON formatted error response.
func writeJSONError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: message, Code: code})
}
