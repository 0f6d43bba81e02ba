// Per-key token-bucket rate limiting, built on golang.org/x/time/rate. The
// router uses one RateLimiter, keyed by client IP, to guard the auth token
// exchange (/auth_1 and /auth_2), since /auth_1 hands out tokens to callers
// who by definition don't have one yet; no limiter covers the other routes.
package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// maxTrackedKeys caps how many per-key limiters RateLimiter retains before
// it resets, so a daemon fielding requests from many distinct IPs over a
// long uptime doesn't grow its limiter map without bound.
const maxTrackedKeys = 10000

// RateLimiter buckets requests per key at a shared rate/burst.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewRateLimiter constructs a limiter allowing requestsPerSecond sustained
// throughput per key, with burst requests permitted above that rate.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.limiters) > maxTrackedKeys {
		rl.limiters = make(map[string]*rate.Limiter)
	}

	limiter, ok := rl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Allow reports whether a request keyed by key may proceed right now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware rate limits requests by client IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return rl.KeyedMiddleware(func(c *gin.Context) string { return c.ClientIP() })
}

// KeyedMiddleware rate limits by an arbitrary per-request key.
func (rl *RateLimiter) KeyedMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(keyFn(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"message": "too many requests, try again later",
			})
			return
		}
		c.Next()
	}
}
