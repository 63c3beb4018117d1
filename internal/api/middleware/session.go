package middleware

import (
	"errors"
	"net/http"

	"taskmanager/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

// 客户端在受保护请求上出示的两个头。
const (
	HeaderSessionID   = "sessionId"
	HeaderSessionHash = "sessionHash"
)

// SessionAuth 校验会话凭证对并将属主写入上下文。
//
// 凭证缺失、伪造、已吊销、属主已删号，一律返回 404 与同一段文案，
// 响应不暴露具体是哪一半凭证错了。
func SessionAuth(mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderSessionID)
		hash := c.GetHeader(HeaderSessionHash)

		user, err := mgr.Authenticate(c.Request.Context(), id, hash)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{
					"kind":  "not-found",
					"error": session.ErrNotFound.Error(),
				})
				c.Abort()
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"kind":  "internal",
				"error": "something went wrong",
			})
			c.Abort()
			return
		}

		c.Set("userID", user.ID)
		c.Set("user", user)
		c.Set("sessionID", id)
		c.Next()
	}
}
