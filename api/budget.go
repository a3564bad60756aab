package api

import (
	"envelope/middleware"
	"envelope/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// BudgetHandler 预算汇总与类别预算
type BudgetHandler struct {
	ledger *service.LedgerService
	plans  *service.PlanService
}

// NewBudgetHandler 创建预算处理器
func NewBudgetHandler(ledger *service.LedgerService, plans *service.PlanService) *BudgetHandler {
	return &BudgetHandler{ledger: ledger, plans: plans}
}

// CreatePlanRequest 创建计划请求
type CreatePlanRequest struct {
	Name     string `json:"name" binding:"required,max=100" example:"家庭预算"`
	Currency string `json:"currency" binding:"omitempty,len=3" example:"CNY"`
}

// UpdateBudgetRequest 设置类别预算请求
type UpdateBudgetRequest struct {
	Month    string          `json:"month" binding:"required" example:"2025-03"`
	Budgeted decimal.Decimal `json:"budgeted" swaggertype:"string" example:"500.00"`
}

// Summary 月度预算汇总
// @Summary 月度预算汇总
// @Description 返回分组、类别、账户与待分配金额；收入取自调用者最早加入计划中的未关闭账户
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param X-Plan-ID header int false "计划 ID"
// @Param month query string false "月份 (2025-03)，缺省为本月"
// @Success 200 {object} Response{data=service.PlanSummary} "获取成功"
// @Failure 403 {object} Response "无权访问"
// @Router /api/v1/budgets [get]
func (h *BudgetHandler) Summary(c *gin.Context) {
	month, err := parseMonth(c.Query("month"))
	if err != nil {
		HandleError(c, err)
		return
	}

	summary, err := h.ledger.Summary(c.Request.Context(), middleware.GetCurrentUserID(c), middleware.GetCurrentPlanID(c), month)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, summary)
}

// CreatePlan 创建预算计划
// @Summary 创建预算计划
// @Description 创建者成为所有者，分类结构从其最早加入的计划复制（不含预算金额）
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePlanRequest true "计划信息"
// @Success 201 {object} Response{data=models.Plan} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/budgets [post]
func (h *BudgetHandler) CreatePlan(c *gin.Context) {
	var req CreatePlanRequest
	if !bindJSON(c, &req) {
		return
	}

	plan, err := h.plans.Create(c.Request.Context(), middleware.GetCurrentUserID(c), req.Name, req.Currency)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, plan)
}

// UpdateBudget 设置类别月度预算
// @Summary 设置类别月度预算
// @Description 幂等：重复提交相同金额结果不变；available = budgeted - activity
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Plan-ID header int false "计划 ID"
// @Param categoryId path int true "类别 ID"
// @Param request body UpdateBudgetRequest true "预算金额"
// @Success 200 {object} Response{data=models.Budget} "设置成功"
// @Failure 403 {object} Response "权限不足"
// @Failure 404 {object} Response "类别不存在"
// @Router /api/v1/budgets/{categoryId} [put]
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	categoryID, ok := pathID(c, "categoryId")
	if !ok {
		return
	}
	var req UpdateBudgetRequest
	if !bindJSON(c, &req) {
		return
	}
	month, err := parseMonth(req.Month)
	if err != nil {
		HandleError(c, err)
		return
	}

	budget, err := h.ledger.UpdateBudget(c.Request.Context(), middleware.GetCurrentPlanID(c), categoryID, month, req.Budgeted)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, budget)
}
