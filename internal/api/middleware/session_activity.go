package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const sessionActiveKeyPrefix = "session:active:"

// SessionActivity marks authenticated sessions as recently used so ops can see live session counts.
func SessionActivity(rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}
		sessionIDVal, ok := c.Get("sessionID")
		if !ok {
			c.Next()
			return
		}
		sessionID, ok := sessionIDVal.(string)
		if !ok || sessionID == "" {
			c.Next()
			return
		}

		if ttl <= 0 {
			ttl = 10 * time.Minute
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		key := fmt.Sprintf("%s%s", sessionActiveKeyPrefix, sessionID)
		_ = rdb.Set(ctx, key, "1", ttl).Err()

		c.Next()
	}
}
