// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with
// per-identity buckets (golang.org/x/time/rate). The router installs one
// limiter for all API traffic and a stricter one on POST /likes to slow down
// swipe automation. Idempotent replays flagged by IdempotencyValidator are
// not charged.
//
// The limiter is process-local; with several API instances each enforces its
// own budget.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc selects the identity a request is charged to.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by the authenticated user (set by Auth) and
// falls back to the client IP. Keys are prefixed ("user:<id>", "ip:<addr>")
// so the two namespaces never collide.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if uid := UserID(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

// RateLimitOptions configures a RateLimiter.
type RateLimitOptions struct {
	// Name labels rejections on http_rate_limited_total. Defaults to "api".
	Name string
	// RPS is the refill rate in tokens per second.
	RPS float64
	// Burst is the bucket size; values <= 0 are coerced to 1.
	Burst int
	// Key maps a request to a bucket. Defaults to KeyByUserOrIP.
	Key keyFunc
	// IdleTTL evicts buckets unused for this long. Defaults to 10 minutes.
	IdleTTL time.Duration
}

// gcEvery is how many lookups happen between idle-bucket sweeps.
const gcEvery = 5000

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces per-key token buckets. It is safe for concurrent use.
type RateLimiter struct {
	name  string
	rps   rate.Limit
	burst int
	keyFn keyFunc
	ttl   time.Duration

	mu       sync.Mutex
	visitors map[string]*visitor
	lookups  uint64
}

// NewRateLimiter constructs a RateLimiter from opts.
func NewRateLimiter(opts RateLimitOptions) *RateLimiter {
	rl := &RateLimiter{
		name:     opts.Name,
		rps:      rate.Limit(opts.RPS),
		burst:    max(opts.Burst, 1),
		keyFn:    opts.Key,
		ttl:      opts.IdleTTL,
		visitors: make(map[string]*visitor),
	}
	if rl.name == "" {
		rl.name = "api"
	}
	if rl.keyFn == nil {
		rl.keyFn = KeyByUserOrIP()
	}
	if rl.ttl <= 0 {
		rl.ttl = 10 * time.Minute
	}
	return rl
}

// limiterFor returns the bucket for key, creating it on first use. Every
// gcEvery lookups idle buckets are swept first, so a stale bucket is replaced
// rather than refreshed.
func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= gcEvery {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.lookups = 0
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// IsRateBypass reports whether IdempotencyValidator exempted this request
// (a replay of a completed operation).
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns the limiting middleware. Rejected requests get 429 with
// Retry-After: 1 and the standard error envelope (code "rate_limited").
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		if rl.limiterFor(rl.keyFn(c), time.Now()).Allow() {
			c.Next()
			return
		}
		rateLimited.WithLabelValues(rl.name).Inc()
		c.Header("Retry-After", "1")
		abortJSON(c, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
	}
}
