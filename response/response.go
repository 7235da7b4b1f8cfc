// Package response 提供了统一的 HTTP 响应封装，负责业务错误码到 HTTP 状态码的映射。
package response

import (
	"log/slog"
	"net/http"

	"github.com/wyfcoding/bloomlab/xerrors"

	"github.com/gin-gonic/gin"
)

// Body 统一响应体。成功时 Code 为 0。
type Body struct {
	Data   any    `json:"data,omitempty"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
	Code   int    `json:"code"`
}

// Success 发送一个标准的成功响应。
// 默认：HTTP 200，业务码 0，消息 "success"。
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Code: 0, Msg: "success", Data: data})
}

// SuccessWithRawData 发送原始数据的成功响应 (不包装 code 和 msg)。
// 用于健康检查等系统接口。
func SuccessWithRawData(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// Error 发送错误响应。
// 错误链中存在 *xerrors.Error 时使用其业务码与 HTTP 映射，否则按 500 处理且不暴露内部信息。
func Error(c *gin.Context, err error) {
	if err == nil {
		Success(c, nil)
		return
	}

	xe, ok := xerrors.FromError(err)
	if !ok {
		slog.ErrorContext(c.Request.Context(), "unclassified handler error", "path", c.Request.URL.Path, "error", err)
		ErrorWithStatus(c, http.StatusInternalServerError, "internal server error", "")
		return
	}

	status := xe.HTTPStatus()
	switch {
	case status >= http.StatusInternalServerError:
		slog.ErrorContext(c.Request.Context(), "handler error", "path", c.Request.URL.Path, "code", xe.Code, "error", err, "context", xe.Context)
	case status == http.StatusTooManyRequests:
		slog.WarnContext(c.Request.Context(), "request rejected", "path", c.Request.URL.Path, "code", xe.Code, "context", xe.Context)
	}

	c.JSON(status, Body{Code: xe.Code, Msg: xe.Message, Detail: xe.Detail})
}

// ErrorWithStatus 发送一个带有指定 HTTP 状态码、消息和详情的错误响应。
func ErrorWithStatus(c *gin.Context, status int, msg string, detail string) {
	c.JSON(status, Body{Code: status, Msg: msg, Detail: detail})
}
