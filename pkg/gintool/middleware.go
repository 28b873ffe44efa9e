package gintool

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/to404hanga/online_judge_duel/constants"
)

// ContextMiddleware 上下文中间件, 为请求分配 RequestID 并把日志字段挂到 request context 上
func ContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderRequestIDKey)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(constants.HeaderRequestIDKey, requestID)
		c.Header(constants.HeaderRequestIDKey, requestID)

		c.Request = c.Request.WithContext(GinContextToLoggerContext(c))
		c.Next()
	}
}
