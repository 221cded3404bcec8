package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/commonshub/core/internal/pkg/ratelimit"
	"github.com/commonshub/core/internal/pkg/response"
)

// ClientKey derives a per-client identity for rate limiting. Prefers the first
// forwarded-for hop, then the real-ip header, then a shared "unknown" bucket.
func ClientKey(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(c.GetHeader("X-Real-Ip")); real != "" {
		return real
	}
	return "unknown"
}

// RateLimit enforces a per-client budget for one logical operation. The check
// runs before any body parsing so oversized or malformed payloads still count.
func RateLimit(limiter ratelimit.Limiter, operation string, limit int, window time.Duration) gin.HandlerFunc {
	retryAfter := "60"
	return func(c *gin.Context) {
		key := operation + ":" + ClientKey(c)
		if !limiter.Allow(key, limit, window) {
			response.TooManyRequests(c, retryAfter)
			return
		}
		c.Next()
	}
}
