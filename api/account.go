package api

import (
	"envelope/middleware"
	"envelope/models"
	"envelope/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AccountHandler 账户处理器
type AccountHandler struct {
	accounts *service.AccountService
}

// NewAccountHandler 创建账户处理器
func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// CreateAccountRequest 创建账户请求
type CreateAccountRequest struct {
	Name       string          `json:"name" binding:"required,max=100" example:"招商银行储蓄卡"`
	Type       string          `json:"type" binding:"required" example:"CHECKING"`
	Balance    decimal.Decimal `json:"balance" swaggertype:"string" example:"1000.00"`
	IsOnBudget *bool           `json:"is_on_budget" example:"true"`
}

// UpdateAccountRequest 修改账户请求，字段缺省表示不修改
type UpdateAccountRequest struct {
	Name       *string          `json:"name" binding:"omitempty,max=100"`
	Balance    *decimal.Decimal `json:"balance" swaggertype:"string"`
	IsOnBudget *bool            `json:"is_on_budget"`
	IsClosed   *bool            `json:"is_closed"`
}

// List 账户列表
// @Summary 账户列表
// @Description 预算内账户在前，已关闭账户在后，再按类型与名称排序
// @Tags 账户
// @Produce json
// @Security BearerAuth
// @Param X-Plan-ID header int false "计划 ID，缺省为最早加入的计划"
// @Success 200 {object} Response{data=[]models.Account} "获取成功"
// @Failure 403 {object} Response "无权访问"
// @Router /api/v1/accounts [get]
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.accounts.List(c.Request.Context(), middleware.GetCurrentPlanID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, accounts)
}

// Get 账户详情
// @Summary 账户详情
// @Tags 账户
// @Produce json
// @Security BearerAuth
// @Param id path int true "账户 ID"
// @Success 200 {object} Response{data=models.Account} "获取成功"
// @Failure 404 {object} Response "账户不存在"
// @Router /api/v1/accounts/{id} [get]
func (h *AccountHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	account, err := h.accounts.Get(c.Request.Context(), middleware.GetCurrentPlanID(c), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, account)
}

// Create 创建账户
// @Summary 创建账户
// @Description 需要编辑者或所有者权限
// @Tags 账户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Plan-ID header int false "计划 ID"
// @Param request body CreateAccountRequest true "账户信息"
// @Success 201 {object} Response{data=models.Account} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "权限不足"
// @Router /api/v1/accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if !bindJSON(c, &req) {
		return
	}
	if !models.IsValidAccountType(req.Type) {
		HandleError(c, service.ErrInvalidInput.WithDetails("无效的账户类型: "+req.Type))
		return
	}

	onBudget := true
	if req.IsOnBudget != nil {
		onBudget = *req.IsOnBudget
	}
	account, err := h.accounts.Create(c.Request.Context(), middleware.GetCurrentPlanID(c), service.AccountInput{
		Name:       req.Name,
		Type:       req.Type,
		Balance:    req.Balance,
		IsOnBudget: onBudget,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, account)
}

// Update 修改账户
// @Summary 修改账户
// @Description 可修改名称、余额、是否计入预算与是否关闭
// @Tags 账户
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "账户 ID"
// @Param request body UpdateAccountRequest true "修改内容"
// @Success 200 {object} Response{data=models.Account} "修改成功"
// @Failure 403 {object} Response "权限不足"
// @Failure 404 {object} Response "账户不存在"
// @Router /api/v1/accounts/{id} [put]
func (h *AccountHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.accounts.Update(c.Request.Context(), middleware.GetCurrentPlanID(c), id, service.AccountUpdate{
		Name:       req.Name,
		Balance:    req.Balance,
		IsOnBudget: req.IsOnBudget,
		IsClosed:   req.IsClosed,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "修改成功", account)
}

// Delete 删除账户
// @Summary 删除账户
// @Description 存在关联交易时拒绝，请改为关闭账户
// @Tags 账户
// @Produce json
// @Security BearerAuth
// @Param id path int true "账户 ID"
// @Success 200 {object} Response "删除成功"
// @Failure 400 {object} Response "账户存在关联交易"
// @Router /api/v1/accounts/{id} [delete]
func (h *AccountHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.accounts.Delete(c.Request.Context(), middleware.GetCurrentPlanID(c), id); err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
