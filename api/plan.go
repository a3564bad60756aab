package api

import (
	"envelope/middleware"
	"envelope/models"
	"envelope/service"

	"github.com/gin-gonic/gin"
)

// PlanHandler 预算计划（/groups）与成员管理
type PlanHandler struct {
	plans       *service.PlanService
	invitations *service.InvitationService
}

// NewPlanHandler 创建计划处理器
func NewPlanHandler(plans *service.PlanService, invitations *service.InvitationService) *PlanHandler {
	return &PlanHandler{plans: plans, invitations: invitations}
}

// UpdatePlanRequest 计划设置，字段缺省表示不修改
type UpdatePlanRequest struct {
	Name                 *string `json:"name" binding:"omitempty,max=100" example:"家庭预算"`
	Currency             *string `json:"currency" example:"CNY"`
	MessageRetentionDays *int    `json:"message_retention_days" example:"30"`
}

// UpdateRoleRequest 修改成员角色
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=OWNER EDITOR VIEWER" example:"EDITOR"`
}

// PlanDetail 计划及当前用户角色
type PlanDetail struct {
	models.Plan
	Role string `json:"role"`
}

// List 我加入的计划
// @Summary 我加入的计划
// @Description 按加入时间排序，第一个为默认计划
// @Tags 计划
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]service.PlanWithRole} "获取成功"
// @Router /api/v1/groups [get]
func (h *PlanHandler) List(c *gin.Context) {
	plans, err := h.plans.List(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, plans)
}

// Get 计划详情
// @Summary 计划详情
// @Tags 计划
// @Produce json
// @Security BearerAuth
// @Param id path int true "计划 ID"
// @Success 200 {object} Response{data=PlanDetail} "获取成功"
// @Failure 403 {object} Response "无权访问"
// @Router /api/v1/groups/{id} [get]
func (h *PlanHandler) Get(c *gin.Context) {
	plan, err := h.plans.Get(c.Request.Context(), middleware.GetCurrentPlanID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, PlanDetail{Plan: *plan, Role: middleware.GetPlanRole(c)})
}

// Update 修改计划设置
// @Summary 修改计划设置
// @Description 仅所有者；消息保留天数范围 1-365
// @Tags 计划
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "计划 ID"
// @Param request body UpdatePlanRequest true "计划设置"
// @Success 200 {object} Response{data=models.Plan} "修改成功"
// @Failure 403 {object} Response "仅所有者可操作"
// @Router /api/v1/groups/{id} [patch]
func (h *PlanHandler) Update(c *gin.Context) {
	var req UpdatePlanRequest
	if !bindJSON(c, &req) {
		return
	}
	plan, err := h.plans.UpdateSettings(c.Request.Context(), middleware.GetCurrentPlanID(c), service.PlanUpdate{
		Name:                 req.Name,
		Currency:             req.Currency,
		MessageRetentionDays: req.MessageRetentionDays,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "修改成功", plan)
}

// Delete 删除计划
// @Summary 删除计划
// @Description 仅所有者；删除后调用者必须至少还属于一个计划
// @Tags 计划
// @Produce json
// @Security BearerAuth
// @Param id path int true "计划 ID"
// @Success 200 {object} Response "删除成功"
// @Failure 400 {object} Response "至少需要保留一个预算计划"
// @Router /api/v1/groups/{id} [delete]
func (h *PlanHandler) Delete(c *gin.Context) {
	if err := h.plans.Delete(c.Request.Context(), middleware.GetCurrentUserID(c), middleware.GetCurrentPlanID(c)); err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// ListMembers 成员列表
// @Summary 成员列表
// @Tags 计划
// @Produce json
// @Security BearerAuth
// @Param id path int true "计划 ID"
// @Success 200 {object} Response{data=[]models.PlanMember} "获取成功"
// @Router /api/v1/groups/{id}/members [get]
func (h *PlanHandler) ListMembers(c *gin.Context) {
	members, err := h.plans.ListMembers(c.Request.Context(), middleware.GetCurrentPlanID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, members)
}

// UpdateMemberRole 修改成员角色
// @Summary 修改成员角色
// @Description 仅所有者；不能降级最后一位所有者
// @Tags 计划
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "计划 ID"
// @Param memberId path int true "成员 ID"
// @Param request body UpdateRoleRequest true "角色"
// @Success 200 {object} Response{data=models.PlanMember} "修改成功"
// @Failure 400 {object} Response "不能降级最后一位所有者"
// @Router /api/v1/groups/{id}/members/{memberId} [patch]
func (h *PlanHandler) UpdateMemberRole(c *gin.Context) {
	memberID, ok := pathID(c, "memberId")
	if !ok {
		return
	}
	var req UpdateRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	member, err := h.plans.UpdateMemberRole(c.Request.Context(), middleware.GetCurrentPlanID(c), memberID, req.Role)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "修改成功", member)
}

// RemoveMember 移除成员
// @Summary 移除成员
// @Description 仅所有者；不能移除自己，也不能移除最后一位所有者
// @Tags 计划
// @Produce json
// @Security BearerAuth
// @Param id path int true "计划 ID"
// @Param memberId path int true "成员 ID"
// @Success 200 {object} Response "移除成功"
// @Failure 400 {object} Response "不能移除最后一位所有者"
// @Router /api/v1/groups/{id}/members/{memberId} [delete]
func (h *PlanHandler) RemoveMember(c *gin.Context) {
	memberID, ok := pathID(c, "memberId")
	if !ok {
		return
	}
	err := h.plans.RemoveMember(c.Request.Context(), middleware.GetCurrentUserID(c), middleware.GetCurrentPlanID(c), memberID)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "移除成功", nil)
}

// ListInvitations 待接受的邀请
// @Summary 待接受的邀请
// @Tags 计划
// @Produce json
// @Security BearerAuth
// @Param id path int true "计划 ID"
// @Success 200 {object} Response{data=[]models.Invitation} "获取成功"
// @Router /api/v1/groups/{id}/invitations [get]
func (h *PlanHandler) ListInvitations(c *gin.Context) {
	list, err := h.invitations.ListPending(c.Request.Context(), middleware.GetCurrentPlanID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, list)
}

// RevokeInvitation 撤销邀请
// @Summary 撤销邀请
// @Tags 计划
// @Produce json
// @Security BearerAuth
// @Param id path int true "计划 ID"
// @Param invitationId path int true "邀请 ID"
// @Success 200 {object} Response "已撤销"
// @Failure 400 {object} Response "邀请无效或已过期"
// @Router /api/v1/groups/{id}/invitations/{invitationId} [delete]
func (h *PlanHandler) RevokeInvitation(c *gin.Context) {
	invitationID, ok := pathID(c, "invitationId")
	if !ok {
		return
	}
	if err := h.invitations.Revoke(c.Request.Context(), middleware.GetCurrentPlanID(c), invitationID); err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "已撤销", nil)
}
