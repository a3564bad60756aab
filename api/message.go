package api

import (
	"strconv"

	"envelope/middleware"
	"envelope/service"

	"github.com/gin-gonic/gin"
)

// MessageHandler 计划聊天处理器
type MessageHandler struct {
	messages *service.MessageService
}

// NewMessageHandler 创建消息处理器
func NewMessageHandler(messages *service.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// CreateMessageRequest 发送消息请求
type CreateMessageRequest struct {
	Content   string `json:"content" binding:"required" example:"这个月餐饮超支了"`
	ReplyToID *uint  `json:"reply_to_id" example:"10"`
}

// CleanupResponse 清理结果
type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
}

// List 消息列表
// @Summary 消息列表
// @Description 返回 before_id 之前最近的 limit 条消息，按时间正序
// @Tags 消息
// @Produce json
// @Security BearerAuth
// @Param X-Plan-ID header int false "计划 ID"
// @Param limit query int false "数量，最大 200" default(50)
// @Param before_id query int false "分页游标"
// @Success 200 {object} Response{data=[]models.Message} "获取成功"
// @Router /api/v1/messages [get]
func (h *MessageHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	beforeID, ok := queryID(c, "before_id")
	if !ok {
		return
	}
	list, err := h.messages.List(c.Request.Context(), middleware.GetCurrentPlanID(c), limit, beforeID)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, list)
}

// Create 发送消息
// @Summary 发送消息
// @Description 任意成员可发送，回复的消息必须属于同一计划
// @Tags 消息
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Plan-ID header int false "计划 ID"
// @Param request body CreateMessageRequest true "消息内容"
// @Success 201 {object} Response{data=models.Message} "发送成功"
// @Failure 400 {object} Response "内容为空或过长"
// @Router /api/v1/messages [post]
func (h *MessageHandler) Create(c *gin.Context) {
	var req CreateMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.messages.Create(c.Request.Context(), middleware.GetCurrentPlanID(c), middleware.GetCurrentUserID(c), req.Content, req.ReplyToID)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, msg)
}

// Delete 删除消息
// @Summary 删除消息
// @Description 作者或计划所有者可删除；内容立即匿名化，保留期满后物理删除
// @Tags 消息
// @Produce json
// @Security BearerAuth
// @Param id path int true "消息 ID"
// @Success 200 {object} Response "删除成功"
// @Failure 403 {object} Response "权限不足"
// @Router /api/v1/messages/{id} [delete]
func (h *MessageHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	err := h.messages.Delete(c.Request.Context(),
		middleware.GetCurrentPlanID(c),
		middleware.GetCurrentUserID(c),
		middleware.GetPlanRole(c),
		id)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// Cleanup 物理删除到期的匿名消息
// @Summary 清理到期消息
// @Description 供定时任务调用，需要 Authorization: Bearer CLEANUP_TOKEN
// @Tags 消息
// @Produce json
// @Param Authorization header string true "Bearer 清理令牌"
// @Success 200 {object} Response{data=CleanupResponse} "清理完成"
// @Failure 401 {object} Response "令牌错误"
// @Router /api/v1/messages/cleanup [post]
func (h *MessageHandler) Cleanup(c *gin.Context) {
	deleted, err := h.messages.Cleanup(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, CleanupResponse{Deleted: deleted})
}
