package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/dkoca/meshkit/errors"
	"github.com/dkoca/meshkit/resilience"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// Rate is the number of requests allowed per second per key.
	Rate float64
	// Burst is the maximum burst size per key.
	Burst int
	// KeyFunc extracts the rate limit key from a request. Defaults to client IP.
	KeyFunc func(*gin.Context) string
}

// RateLimit returns a Gin middleware applying per-key token-bucket rate limiting.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.Rate) * 2
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPBasedKey
	}

	buckets := &keyedLimiter{
		limiters: make(map[string]*resilience.RateLimiter),
		cfg:      cfg,
	}

	return func(c *gin.Context) {
		if !buckets.allow(cfg.KeyFunc(c)) {
			appErr := errors.RateLimited()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, appErr.ToResponse())
			return
		}
		c.Next()
	}
}

// IPBasedKey extracts the client IP for use as a rate limit key.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}

type keyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*resilience.RateLimiter
	cfg      RateLimitConfig
}

func (kl *keyedLimiter) allow(key string) bool {
	kl.mu.Lock()
	rl, ok := kl.limiters[key]
	if !ok {
		rl = resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name:  key,
			Rate:  kl.cfg.Rate,
			Burst: kl.cfg.Burst,
		})
		kl.limiters[key] = rl
	}
	kl.mu.Unlock()
	return rl.Allow()
}
