package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a sliding-window counter keyed by client, typically
// by IP.
type RateLimiter struct {
	limit   int
	window  time.Duration
	clients map[string][]time.Time
	mu      sync.Mutex
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string][]time.Time),
	}
	go rl.cleanup()
	return rl
}

// Allow records a hit for key and reports whether it is within the
// limit.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	hits := rl.clients[key]
	live := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			live = append(live, t)
		}
	}

	if len(live) >= rl.limit {
		rl.clients[key] = live
		return false
	}

	rl.clients[key] = append(live, now)
	return true
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-rl.window)

		rl.mu.Lock()
		for key, hits := range rl.clients {
			if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
				delete(rl.clients, key)
			}
		}
		rl.mu.Unlock()
	}
}

// GlobalRateLimit applies one limit across all API endpoints.
func GlobalRateLimit(limit int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(limit, window)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			return
		}

		c.Next()
	}
}

// AuthRateLimiter provides stricter rate limiting for authentication endpoints
func AuthRateLimiter() gin.HandlerFunc {
	// 5 requests per minute per IP for auth endpoints
	limiter := NewRateLimiter(5, time.Minute)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many authentication attempts, please try again later",
				"retry_after": 60,
			})
			return
		}

		c.Next()
	}
}
