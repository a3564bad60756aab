package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"envelope/logger"
	"envelope/middleware"
	"envelope/models"
	"envelope/service"

	"github.com/gin-gonic/gin"
)

// Response 通用响应结构
type Response struct {
	Code     int         `json:"code"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
	Details  string      `json:"details,omitempty"`
	UserRole string      `json:"user_role,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	List     interface{} `json:"list"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Message: "success",
		Data:    data,
	})
}

// SuccessWithMessage 带消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Message: message,
		Data:    data,
	})
}

// Created 201 响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Error:   message,
	})
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// HandleError 按业务错误分类输出响应，内部错误记录日志后只返回通用提示
func HandleError(c *gin.Context, err error) {
	body := middleware.NewErrorBody(err)
	if body.Code >= http.StatusInternalServerError {
		logger.L().InternalError("请求处理失败", err,
			"request_id", middleware.GetRequestID(c),
			"path", c.Request.URL.Path,
		)
	} else {
		logger.L().BusinessError("请求被拒绝", err,
			"request_id", middleware.GetRequestID(c),
			"kind", service.KindOf(err).String(),
		)
	}
	c.JSON(body.Code, Response{
		Code:     body.Code,
		Message:  body.Message,
		Error:    body.Error,
		Details:  body.Details,
		UserRole: body.UserRole,
	})
}

// bindJSON 解析请求体，失败时已写入 400 响应
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		HandleError(c, service.ErrInvalidInput.WithDetails(err.Error()))
		return false
	}
	return true
}

// pathID 解析路径中的数字 ID
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		HandleError(c, service.ErrInvalidInput.WithDetails("无效的 "+name+": "+c.Param(name)))
		return 0, false
	}
	return uint(id), true
}

// queryID 可选的数字查询参数，缺省为 0
func queryID(c *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		HandleError(c, service.ErrInvalidInput.WithDetails("无效的 "+name+": "+raw))
		return 0, false
	}
	return uint(id), true
}

// parseMonth 解析 YYYY-MM 或 YYYY-MM-DD，返回当月第一天；为空时返回本月
func parseMonth(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.FirstOfMonth(time.Now().UTC()), nil
	}
	for _, layout := range []string{"2006-01", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return models.FirstOfMonth(t), nil
		}
	}
	return time.Time{}, service.ErrInvalidInput.WithDetails("无效的月份: " + raw)
}

// parseDate 解析交易日期，支持 YYYY-MM-DD 与 RFC3339
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, service.ErrInvalidInput.WithDetails("无效的日期: " + raw)
}
