package api

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter bounds submissions per client on the public ingestion
// endpoint using a fixed one-minute window per remote address. Admin
// routes are not limited.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	limit   int
}

type rateWindow struct {
	count int
	start time.Time
}

func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 600
	}
	rl := &RateLimiter{
		windows: make(map[string]*rateWindow),
		limit:   perMinute,
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether a request from key fits in the current window.
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) > time.Minute {
		rl.windows[key] = &rateWindow{count: 1, start: now}
		return true
	}
	w.count++
	return w.count <= rl.limit
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-2 * time.Minute)
		rl.mu.Lock()
		for key, w := range rl.windows {
			if w.start.Before(cutoff) {
				delete(rl.windows, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Middleware rejects over-limit requests with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !rl.Allow(host) {
			slog.Warn("rate limit exceeded", "remote", host)
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
