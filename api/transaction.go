package api

import (
	"strconv"

	"envelope/middleware"
	"envelope/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TransactionHandler 交易处理器
type TransactionHandler struct {
	ledger *service.LedgerService
}

// NewTransactionHandler 创建交易处理器
func NewTransactionHandler(ledger *service.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

// CreateTransactionRequest 记账请求
// 有 to_account_id 时为转账，不计入类别预算
type CreateTransactionRequest struct {
	Date          string          `json:"date" binding:"required" example:"2025-03-14"`
	Amount        decimal.Decimal `json:"amount" swaggertype:"string" example:"-30.00"`
	Payee         string          `json:"payee" binding:"max=200" example:"超市"`
	Memo          string          `json:"memo" binding:"max=500" example:"周末采购"`
	FromAccountID uint            `json:"from_account_id" binding:"required" example:"1"`
	ToAccountID   *uint           `json:"to_account_id" example:"2"`
	CategoryID    *uint           `json:"category_id" example:"5"`
	Cleared       bool            `json:"cleared" example:"false"`
	FlagColor     *string         `json:"flag_color" example:"red"`
}

// UpdateTransactionRequest 修改交易的非记账字段
type UpdateTransactionRequest struct {
	Cleared   *bool   `json:"cleared"`
	FlagColor *string `json:"flag_color"`
	ClearFlag bool    `json:"clear_flag"`
	Payee     *string `json:"payee" binding:"omitempty,max=200"`
	Memo      *string `json:"memo" binding:"omitempty,max=500"`
}

// List 交易列表
// @Summary 交易列表
// @Description 按日期倒序分页，可按账户、类别、月份筛选
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param X-Plan-ID header int false "计划 ID"
// @Param account_id query int false "账户 ID（转出或转入）"
// @Param category_id query int false "类别 ID"
// @Param month query string false "月份 (2025-03)"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(50)
// @Success 200 {object} Response{data=PageResponse{list=[]models.Transaction}} "获取成功"
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	filter, ok := transactionFilter(c)
	if !ok {
		return
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	list, total, err := h.ledger.ListTransactions(c.Request.Context(), middleware.GetCurrentPlanID(c), filter)
	if err != nil {
		HandleError(c, err)
		return
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 500 {
		filter.PageSize = 50
	}
	Success(c, PageResponse{
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
		List:     list,
	})
}

// Get 交易详情
// @Summary 交易详情
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易 ID"
// @Success 200 {object} Response{data=models.Transaction} "获取成功"
// @Failure 404 {object} Response "交易不存在"
// @Router /api/v1/transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	txn, err := h.ledger.GetTransaction(c.Request.Context(), middleware.GetCurrentPlanID(c), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, txn)
}

// Create 记账
// @Summary 记账
// @Description 在一个数据库事务内写入交易、更新账户余额与类别当月预算
// @Tags 交易
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Plan-ID header int false "计划 ID"
// @Param request body CreateTransactionRequest true "交易信息"
// @Success 201 {object} Response{data=models.Transaction} "记账成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 403 {object} Response "权限不足"
// @Failure 404 {object} Response "账户或类别不存在"
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	var req CreateTransactionRequest
	if !bindJSON(c, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		HandleError(c, err)
		return
	}

	txn, err := h.ledger.PostTransaction(c.Request.Context(), service.PostTransactionInput{
		PlanID:        middleware.GetCurrentPlanID(c),
		UserID:        middleware.GetCurrentUserID(c),
		Date:          date,
		Amount:        req.Amount,
		Payee:         req.Payee,
		Memo:          req.Memo,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		CategoryID:    req.CategoryID,
		Cleared:       req.Cleared,
		FlagColor:     req.FlagColor,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, txn)
}

// Update 修改交易备注、收款方、对账状态或旗标
// @Summary 修改交易
// @Description 金额、日期、账户与类别不可修改，如需调整请删除后重新记账
// @Tags 交易
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易 ID"
// @Param request body UpdateTransactionRequest true "修改内容"
// @Success 200 {object} Response{data=models.Transaction} "修改成功"
// @Router /api/v1/transactions/{id} [patch]
func (h *TransactionHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateTransactionRequest
	if !bindJSON(c, &req) {
		return
	}

	txn, err := h.ledger.UpdateTransactionDetails(c.Request.Context(), middleware.GetCurrentPlanID(c), id, service.TransactionDetails{
		Cleared:   req.Cleared,
		FlagColor: req.FlagColor,
		ClearFlag: req.ClearFlag,
		Payee:     req.Payee,
		Memo:      req.Memo,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "修改成功", txn)
}

// Delete 删除交易
// @Summary 删除交易
// @Description 冲回对余额与预算的影响后删除
// @Tags 交易
// @Produce json
// @Security BearerAuth
// @Param id path int true "交易 ID"
// @Success 200 {object} Response "删除成功"
// @Router /api/v1/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.ledger.DeleteTransaction(c.Request.Context(), middleware.GetCurrentPlanID(c), id); err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// transactionFilter 解析列表与导出共用的筛选条件
func transactionFilter(c *gin.Context) (service.TransactionFilter, bool) {
	var f service.TransactionFilter
	var ok bool
	if f.AccountID, ok = queryID(c, "account_id"); !ok {
		return f, false
	}
	if f.CategoryID, ok = queryID(c, "category_id"); !ok {
		return f, false
	}
	if raw := c.Query("month"); raw != "" {
		month, err := parseMonth(raw)
		if err != nil {
			HandleError(c, err)
			return f, false
		}
		f.Month = &month
	}
	return f, true
}

