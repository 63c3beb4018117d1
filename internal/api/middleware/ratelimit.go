package middleware

import (
	"net/http"

	"taskmanager/internal/pkg/metrics"
	"taskmanager/internal/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// LoginRateLimit 按客户端 IP 限制登录尝试频率。
//
// Redis 不可用时放行而不是拒绝，限流是保护手段不是依赖项。
func LoginRateLimit(limiter *ratelimit.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			c.Next()
			return
		}
		if !ok {
			metrics.RateLimitRejectedTotal.Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"kind":  "rate-limited",
				"error": "too many login attempts, try again later",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
