package middleware

import (
	"net/http"

	"fleet-ops-api/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit shares one token bucket across all callers of the wrapped
// routes. A non-positive RPS disables it.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.RPS), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
