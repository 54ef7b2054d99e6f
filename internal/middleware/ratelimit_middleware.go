// internal/middleware/ratelimit_middleware.go
package middleware

import (
	"time"

	"shopfloor-service/internal/pkg/response"
	"shopfloor-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware throttles general API traffic per caller IP using a
// fixed window. Login throttling is separate and stricter (see the auth
// service), so the same caller's login budget is unaffected by API traffic.
func RateLimitMiddleware(limiter *session.RateLimiter, window time.Duration, max int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := limiter.CheckAndIncrement("api:"+c.ClientIP(), window, max)
		if !decision.Allowed {
			response.RateLimited(c, decision.ResetAt)
			return
		}
		c.Next()
	}
}
