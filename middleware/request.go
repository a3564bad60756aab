package middleware

import (
	"crypto/subtle"
	"time"

	"envelope/logger"
	"envelope/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader 请求 ID 响应头
const RequestIDHeader = "X-Request-ID"

// RequestLogger 为每个请求分配 ID 并输出一条结构化日志
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestID", requestID)
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if userID := GetCurrentUserID(c); userID != 0 {
			args = append(args, "user_id", userID)
		}
		switch {
		case status >= 500:
			logger.L().Error("请求失败", args...)
		case status >= 400:
			logger.L().Warn("请求被拒绝", args...)
		default:
			logger.L().Info("请求完成", args...)
		}
	}
}

// GetRequestID 当前请求 ID
func GetRequestID(c *gin.Context) string {
	return c.GetString("requestID")
}

// StaticBearer 固定令牌校验，用于定时任务回调；令牌未配置时拒绝所有请求
func StaticBearer(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := bearerToken(c)
		if token == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			AbortWithError(c, service.ErrUnauthorized)
			return
		}
		c.Next()
	}
}
