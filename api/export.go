package api

import (
	"fmt"
	"net/http"

	"envelope/middleware"
	"envelope/service"

	"github.com/gin-gonic/gin"
)

// ExportHandler 导出处理器
type ExportHandler struct {
	ledger   *service.LedgerService
	messages *service.MessageService
}

// NewExportHandler 创建导出处理器
func NewExportHandler(ledger *service.LedgerService, messages *service.MessageService) *ExportHandler {
	return &ExportHandler{ledger: ledger, messages: messages}
}

// ExportTransactions 导出交易明细
// @Summary 导出交易明细
// @Description 导出为 Excel（默认）或 CSV，末行为金额合计
// @Tags 导出
// @Produce application/octet-stream
// @Security BearerAuth
// @Param X-Plan-ID header int false "计划 ID"
// @Param format query string false "xlsx 或 csv" default(xlsx)
// @Param account_id query int false "账户 ID"
// @Param month query string false "月份 (2025-03)"
// @Success 200 {file} file "导出文件"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/transactions/export [get]
func (h *ExportHandler) ExportTransactions(c *gin.Context) {
	filter, ok := transactionFilter(c)
	if !ok {
		return
	}
	file, err := h.ledger.ExportTransactions(c.Request.Context(), middleware.GetCurrentPlanID(c), filter, c.DefaultQuery("format", service.ExportXLSX))
	if err != nil {
		HandleError(c, err)
		return
	}
	sendFile(c, file)
}

// ExportMessages 导出聊天记录
// @Summary 导出聊天记录
// @Description 已删除（匿名化）的消息不导出
// @Tags 导出
// @Produce application/octet-stream
// @Security BearerAuth
// @Param X-Plan-ID header int false "计划 ID"
// @Param format query string false "json、csv 或 xlsx" default(json)
// @Success 200 {file} file "导出文件"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/messages/export [get]
func (h *ExportHandler) ExportMessages(c *gin.Context) {
	file, err := h.messages.Export(c.Request.Context(), middleware.GetCurrentPlanID(c), c.DefaultQuery("format", service.ExportJSON))
	if err != nil {
		HandleError(c, err)
		return
	}
	sendFile(c, file)
}

// sendFile 以附件形式返回导出文件
func sendFile(c *gin.Context, file *service.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", file.Filename))
	c.Header("Content-Length", fmt.Sprintf("%d", file.Body.Len()))
	c.Data(http.StatusOK, file.ContentType, file.Body.Bytes())
}
