package api

import (
	"envelope/middleware"
	"envelope/service"

	"github.com/gin-gonic/gin"
)

// InvitationHandler 邀请处理器
type InvitationHandler struct {
	invitations *service.InvitationService
}

// NewInvitationHandler 创建邀请处理器
func NewInvitationHandler(invitations *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

// SendInvitationRequest 发送邀请请求
type SendInvitationRequest struct {
	PlanID uint   `json:"plan_id" binding:"required" example:"1"`
	Email  string `json:"email" binding:"required,email" example:"friend@example.com"`
	Role   string `json:"role" binding:"omitempty,oneof=OWNER EDITOR VIEWER" example:"EDITOR"`
}

// AcceptInvitationRequest 接受邀请请求
type AcceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

// Send 发送邀请
// @Summary 发送邀请
// @Description 仅计划所有者；同一邮箱的旧邀请立即失效；邮件发送失败时邀请被撤销
// @Tags 邀请
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SendInvitationRequest true "邀请信息"
// @Success 201 {object} Response{data=service.SendResult} "发送成功"
// @Failure 400 {object} Response "已是成员或参数错误"
// @Failure 403 {object} Response "仅所有者可邀请"
// @Router /api/v1/invitations/send [post]
func (h *InvitationHandler) Send(c *gin.Context) {
	var req SendInvitationRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.invitations.Send(c.Request.Context(), middleware.GetCurrentUserID(c), req.PlanID, req.Email, req.Role)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, result)
}

// Preview 查看邀请
// @Summary 查看邀请
// @Description 接受前展示计划名称、角色与状态
// @Tags 邀请
// @Produce json
// @Security BearerAuth
// @Param token query string true "邀请令牌"
// @Success 200 {object} Response{data=service.InvitationPreview} "获取成功"
// @Failure 400 {object} Response "邀请无效或已过期"
// @Router /api/v1/invitations/accept [get]
func (h *InvitationHandler) Preview(c *gin.Context) {
	preview, err := h.invitations.Preview(c.Request.Context(), c.Query("token"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, preview)
}

// Accept 接受邀请
// @Summary 接受邀请
// @Description 当前登录邮箱须与邀请邮箱一致；令牌只能使用一次
// @Tags 邀请
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AcceptInvitationRequest true "邀请令牌"
// @Success 200 {object} Response{data=models.PlanMember} "已加入"
// @Failure 400 {object} Response "邀请无效或已过期"
// @Failure 403 {object} Response "邮箱不一致"
// @Router /api/v1/invitations/accept [post]
func (h *InvitationHandler) Accept(c *gin.Context) {
	var req AcceptInvitationRequest
	if !bindJSON(c, &req) {
		return
	}
	member, err := h.invitations.Accept(c.Request.Context(), middleware.GetCurrentUserID(c), req.Token)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "已加入计划", member)
}
