package middleware

import (
	"errors"
	"net/http"

	"envelope/config"
	"envelope/service"

	"github.com/gin-gonic/gin"
)

// ErrorBody 失败响应结构
type ErrorBody struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Error    string `json:"error"`
	Details  string `json:"details,omitempty"`
	UserRole string `json:"user_role,omitempty"`
}

// StatusOf 业务错误分类对应的 HTTP 状态码
func StatusOf(err error) int {
	switch service.KindOf(err) {
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindInvalidInput, service.KindConflict, service.KindInvalidState:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorBody 构造失败响应，内部错误只返回通用提示
func NewErrorBody(err error) ErrorBody {
	status := StatusOf(err)
	body := ErrorBody{Code: status, Message: "服务器内部错误"}

	var appErr *service.AppError
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
		body.Details = appErr.Details
		body.UserRole = appErr.UserRole
	} else if status == http.StatusNotFound {
		body.Message = service.ErrNotFound.Message
	} else {
		// release 模式下为空
		body.Details = config.SafeErrorMessage(err, "")
	}
	body.Error = body.Message
	return body
}

// AbortWithError 按错误分类中断请求
func AbortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(StatusOf(err), NewErrorBody(err))
}
