package middleware

import (
	"net/http"
	"strconv"

	"rps_challenge/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// ActionRateLimit limits actions per player (not per IP).
// Requires JWT middleware to run before this.
func ActionRateLimit(l *ratelimit.Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64("user_id")
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		d := l.Allow(c.Request.Context(), scope, userID)
		if d.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		}
		if !d.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": int(d.RetryAfter.Seconds()),
			})
			return
		}

		c.Next()
	}
}
