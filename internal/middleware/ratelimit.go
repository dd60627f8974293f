package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/triage-risk-service/internal/domain"
)

// RateLimit applies a process-wide token bucket. The service has a single
// upstream client, so per-IP buckets are not kept.
func RateLimit(perSecond, burst int) gin.HandlerFunc {
	if perSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = perSecond
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewServiceError(
				domain.ErrRateLimit, "Rate limit exceeded", "", c.GetString(CorrelationKey)))
			return
		}
		c.Next()
	}
}
