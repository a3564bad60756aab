package api

import (
	"envelope/middleware"
	"envelope/models"
	"envelope/service"

	"github.com/gin-gonic/gin"
)

// UserHandler 个人资料与引导
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler 创建用户处理器
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// UpdateProfileRequest 修改资料请求，字段缺省表示不修改
type UpdateProfileRequest struct {
	Name  *string `json:"name" binding:"omitempty,max=100" example:"小明"`
	Email *string `json:"email" binding:"omitempty,email" example:"new@example.com"`
}

// OnboardingRequest 完成引导请求
type OnboardingRequest struct {
	Name     string `json:"name" binding:"max=100" example:"小明"`
	PlanName string `json:"plan_name" binding:"max=100" example:"家庭预算"`
	Currency string `json:"currency" binding:"omitempty,len=3" example:"CNY"`
}

// OnboardingResponse 引导结果，已有计划时 plan 为空
type OnboardingResponse struct {
	User models.User  `json:"user"`
	Plan *models.Plan `json:"plan,omitempty"`
}

// GetProfile 获取当前用户信息
// @Summary 获取当前用户信息
// @Tags 用户
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.User} "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/user/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.users.Profile(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, user)
}

// UpdateProfile 修改个人资料
// @Summary 修改个人资料
// @Description 修改姓名或邮箱，邮箱需未被占用
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "资料"
// @Success 200 {object} Response{data=models.User} "修改成功"
// @Failure 400 {object} Response "请求参数错误或邮箱已注册"
// @Router /api/v1/user/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), middleware.GetCurrentUserID(c), service.ProfileUpdate{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "修改成功", user)
}

// CompleteOnboarding 完成引导
// @Summary 完成引导
// @Description 设置姓名并标记完成；尚未加入任何计划时创建第一个计划并写入默认类别
// @Tags 用户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body OnboardingRequest true "引导信息"
// @Success 200 {object} Response{data=OnboardingResponse} "完成"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/onboarding/complete [post]
func (h *UserHandler) CompleteOnboarding(c *gin.Context) {
	var req OnboardingRequest
	if !bindJSON(c, &req) {
		return
	}

	user, plan, err := h.users.CompleteOnboarding(c.Request.Context(), middleware.GetCurrentUserID(c), service.OnboardingInput{
		Name:     req.Name,
		PlanName: req.PlanName,
		Currency: req.Currency,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, OnboardingResponse{User: *user, Plan: plan})
}
