package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hireloop/platform-core/internal/ratelimit"
)

// RateLimitMiddleware consults the limiter after the tenant context is
// installed. Every response carries the X-RateLimit-* headers; throttled
// requests get a 429 with a retry hint, never a silent drop.
func RateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := limiter.Check(c.Request.Context(), c.Request.URL.Path, c.GetString(KeyUserID))

		if decision.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))
			c.Header("X-RateLimit-Window", strconv.Itoa(int(decision.Window.Seconds())))
		}
		c.Header("X-RateLimit-Type", decision.Type)

		if !decision.Allowed {
			retryAfter := int(decision.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limit_exceeded",
				"message":     "request rate limit exceeded, slow down",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
