package middleware

import (
	"log/slog"
	"time"

	"github.com/wyfcoding/bloomlab/contextx"

	"github.com/gin-gonic/gin"
)

// Logger 访问日志中间件。trace_id 与 span_id 由日志 Handler 从 context 中注入。
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		ctx := c.Request.Context()
		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}

		logger.Log(ctx, level, "HTTP Request",
			"request_id", contextx.GetRequestID(ctx),
			"session_id", contextx.GetSessionID(ctx),
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"ip", c.ClientIP(),
			"cost", time.Since(start),
			"user_agent", c.Request.UserAgent(),
		)
	}
}
