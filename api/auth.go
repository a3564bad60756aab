package api

import (
	"envelope/config"
	"envelope/middleware"
	"envelope/models"
	"envelope/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	cfg   *config.Config
	users *service.UserService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cfg *config.Config, users *service.UserService) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email" example:"test@example.com"`
	Password string `json:"password" binding:"required,min=6,max=72" example:"password123"`
	Name     string `json:"name" binding:"max=100" example:"小明"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"test@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token    string      `json:"token"`
	UserInfo models.User `json:"user_info"`
}

// Register 用户注册
// @Summary 用户注册
// @Description 使用邮箱注册并直接登录，首次登录后需完成引导以创建第一个预算计划
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册信息"
// @Success 200 {object} Response{data=LoginResponse} "注册成功"
// @Failure 400 {object} Response "请求参数错误或邮箱已注册"
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		HandleError(c, err)
		return
	}

	h.startSession(c, user, "注册成功")
}

// Login 用户登录
// @Summary 用户登录
// @Description 返回 JWT，同时写入 HttpOnly 会话 Cookie
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} Response{data=LoginResponse} "登录成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "邮箱或密码错误"
// @Failure 429 {object} Response "请求过于频繁"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		HandleError(c, err)
		return
	}

	h.startSession(c, user, "登录成功")
}

// Logout 退出登录
// @Summary 退出登录
// @Description 清除会话 Cookie
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response "已退出"
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	clearSessionCookie(c)
	SuccessWithMessage(c, "已退出登录", nil)
}

func (h *AuthHandler) startSession(c *gin.Context, user *models.User, message string) {
	token, err := middleware.GenerateToken(user.ID, user.Email, h.cfg.JWT.ExpireTime)
	if err != nil {
		HandleError(c, err)
		return
	}
	setSessionCookie(c, token, h.cfg.JWT.ExpireTime)
	SuccessWithMessage(c, message, LoginResponse{
		Token:    token,
		UserInfo: *user,
	})
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required" example:"oldpassword123"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72" example:"newpassword123"`
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Description 校验原密码后修改当前用户密码
// @Tags 认证
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "密码信息"
// @Success 200 {object} Response "修改成功"
// @Failure 400 {object} Response "请求参数错误或原密码错误"
// @Router /api/v1/auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	userID := middleware.GetCurrentUserID(c)
	if err := h.users.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		HandleError(c, err)
		return
	}

	SuccessWithMessage(c, "密码修改成功", nil)
}

// ============== 忘记密码 ==============

// ForgotPasswordRequest 请求重置验证码
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email" example:"test@example.com"`
}

// ForgotPassword 发送密码重置验证码
// @Summary 发送密码重置验证码
// @Description 向邮箱发送 6 位验证码，未注册的邮箱同样返回成功
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body ForgotPasswordRequest true "邮箱"
// @Success 200 {object} Response "验证码已发送"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 500 {object} Response "邮件发送失败"
// @Router /api/v1/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.users.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		HandleError(c, err)
		return
	}

	SuccessWithMessage(c, "如果该邮箱已注册，您将收到密码重置验证码", nil)
}

// VerifyOTPRequest 校验验证码
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email" example:"test@example.com"`
	Code  string `json:"code" binding:"required,len=6" example:"123456"`
}

// VerifyOTP 校验重置验证码
// @Summary 校验重置验证码
// @Description 只校验不消费，验证码在重置密码成功后失效
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body VerifyOTPRequest true "验证码"
// @Success 200 {object} Response "验证成功"
// @Failure 400 {object} Response "验证码错误或已过期"
// @Router /api/v1/auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.users.VerifyResetCode(c.Request.Context(), req.Email, req.Code); err != nil {
		HandleError(c, err)
		return
	}

	SuccessWithMessage(c, "验证成功", nil)
}

// ResetPasswordRequest 使用验证码重置密码
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email" example:"test@example.com"`
	Code        string `json:"code" binding:"required,len=6" example:"123456"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72" example:"newpassword123"`
}

// ResetPassword 重置密码
// @Summary 重置密码
// @Description 验证码单次有效，成功后删除
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "重置信息"
// @Success 200 {object} Response "密码重置成功"
// @Failure 400 {object} Response "验证码错误或已过期"
// @Router /api/v1/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		HandleError(c, err)
		return
	}

	SuccessWithMessage(c, "密码重置成功，请使用新密码登录", nil)
}
