package middleware

import (
	"github.com/wyfcoding/bloomlab/contextx"
	"github.com/wyfcoding/bloomlab/idgen"

	"github.com/gin-gonic/gin"
)

// HeaderXRequestID 请求 ID 头.
const HeaderXRequestID = "X-Request-ID"

// maxRequestIDLen 客户端传入的请求 ID 超过该长度时重新生成.
const maxRequestIDLen = 128

// RequestID 返回一个用于生成或传递请求 ID 的 Gin 中间件。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderXRequestID)
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = idgen.GenIDString()
		}

		c.Request = c.Request.WithContext(contextx.WithRequestID(c.Request.Context(), requestID))
		c.Header(HeaderXRequestID, requestID)

		c.Next()
	}
}
