package api

import (
	"envelope/middleware"
	"envelope/models"
	"envelope/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GoalHandler 目标处理器
type GoalHandler struct {
	goals *service.GoalService
}

// NewGoalHandler 创建目标处理器
func NewGoalHandler(goals *service.GoalService) *GoalHandler {
	return &GoalHandler{goals: goals}
}

// GoalSpecRequest 目标参数，按 type 读取对应字段
type GoalSpecRequest struct {
	Type           models.GoalType  `json:"type" example:"TARGET_BALANCE_BY_DATE"`
	TargetAmount   *decimal.Decimal `json:"target_amount" swaggertype:"string" example:"5000.00"`
	TargetDate     string           `json:"target_date" example:"2025-12-31"`
	PeriodicAmount *decimal.Decimal `json:"periodic_amount" swaggertype:"string"`
	Cadence        string           `json:"cadence" example:"MONTHLY"`
	Percent        *decimal.Decimal `json:"percent" swaggertype:"string"`
	Description    string           `json:"description"`
}

// CreateGoalRequest 新建目标请求
type CreateGoalRequest struct {
	GoalSpecRequest
	CategoryID      *uint           `json:"category_id" example:"5"`
	CategoryGroupID *uint           `json:"category_group_id"`
	Name            string          `json:"name" binding:"required,max=100" example:"应急基金"`
	CurrentAmount   decimal.Decimal `json:"current_amount" swaggertype:"string" example:"0"`
}

// UpdateGoalRequest 修改目标请求，type 非空时整体替换目标参数
type UpdateGoalRequest struct {
	GoalSpecRequest
	Name          *string          `json:"name" binding:"omitempty,max=100"`
	CurrentAmount *decimal.Decimal `json:"current_amount" swaggertype:"string"`
}

// GoalView 目标及完成进度
type GoalView struct {
	models.Goal
	Progress *decimal.Decimal `json:"progress,omitempty" swaggertype:"string"`
}

// List 目标列表
// @Summary 目标列表
// @Tags 目标
// @Produce json
// @Security BearerAuth
// @Param X-Plan-ID header int false "计划 ID"
// @Success 200 {object} Response{data=[]GoalView} "获取成功"
// @Router /api/v1/goals [get]
func (h *GoalHandler) List(c *gin.Context) {
	goals, err := h.goals.List(c.Request.Context(), middleware.GetCurrentPlanID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	views := make([]GoalView, 0, len(goals))
	for i := range goals {
		views = append(views, newGoalView(&goals[i]))
	}
	Success(c, views)
}

// Get 目标详情
// @Summary 目标详情
// @Tags 目标
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标 ID"
// @Success 200 {object} Response{data=GoalView} "获取成功"
// @Failure 404 {object} Response "目标不存在"
// @Router /api/v1/goals/{id} [get]
func (h *GoalHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	goal, err := h.goals.Get(c.Request.Context(), middleware.GetCurrentPlanID(c), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, newGoalView(goal))
}

// Create 新建目标
// @Summary 新建目标
// @Description 目标关联一个类别或一个分组；type 为 TARGET_BALANCE、TARGET_BALANCE_BY_DATE、PERIODIC_FUNDING、PERCENT_OF_INCOME 或 CUSTOM
// @Tags 目标
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Plan-ID header int false "计划 ID"
// @Param request body CreateGoalRequest true "目标信息"
// @Success 201 {object} Response{data=GoalView} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/v1/goals [post]
func (h *GoalHandler) Create(c *gin.Context) {
	var req CreateGoalRequest
	if !bindJSON(c, &req) {
		return
	}
	spec, err := req.GoalSpecRequest.spec()
	if err != nil {
		HandleError(c, err)
		return
	}

	goal, err := h.goals.Create(c.Request.Context(), middleware.GetCurrentPlanID(c), service.GoalInput{
		CategoryID:      req.CategoryID,
		CategoryGroupID: req.CategoryGroupID,
		Name:            req.Name,
		Spec:            spec,
		CurrentAmount:   req.CurrentAmount,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, newGoalView(goal))
}

// Update 修改目标
// @Summary 修改目标
// @Tags 目标
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标 ID"
// @Param request body UpdateGoalRequest true "修改内容"
// @Success 200 {object} Response{data=GoalView} "修改成功"
// @Router /api/v1/goals/{id} [put]
func (h *GoalHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateGoalRequest
	if !bindJSON(c, &req) {
		return
	}

	update := service.GoalUpdate{Name: req.Name, CurrentAmount: req.CurrentAmount}
	if req.Type != "" {
		spec, err := req.GoalSpecRequest.spec()
		if err != nil {
			HandleError(c, err)
			return
		}
		update.Spec = spec
	}

	goal, err := h.goals.Update(c.Request.Context(), middleware.GetCurrentPlanID(c), id, update)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "修改成功", newGoalView(goal))
}

// Delete 删除目标
// @Summary 删除目标
// @Tags 目标
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标 ID"
// @Success 200 {object} Response "删除成功"
// @Router /api/v1/goals/{id} [delete]
func (h *GoalHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.goals.Delete(c.Request.Context(), middleware.GetCurrentPlanID(c), id); err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// spec 将请求字段转换为对应类型的目标参数
func (r GoalSpecRequest) spec() (models.GoalSpec, error) {
	amount := func(d *decimal.Decimal) decimal.Decimal {
		if d == nil {
			return decimal.Zero
		}
		return *d
	}

	switch r.Type {
	case models.GoalTargetBalance:
		return models.TargetBalance{Target: amount(r.TargetAmount)}, nil
	case models.GoalTargetBalanceByDate:
		by, err := parseDate(r.TargetDate)
		if err != nil {
			return nil, err
		}
		return models.TargetBalanceByDate{Target: amount(r.TargetAmount), By: by}, nil
	case models.GoalPeriodicFunding:
		return models.PeriodicFunding{Amount: amount(r.PeriodicAmount), Cadence: r.Cadence}, nil
	case models.GoalPercentOfIncome:
		return models.PercentOfIncome{Percent: amount(r.Percent)}, nil
	case models.GoalCustom:
		custom := models.Custom{Description: r.Description}
		if r.TargetAmount != nil {
			custom.Target = decimal.NewNullDecimal(*r.TargetAmount)
		}
		return custom, nil
	}
	return nil, service.ErrInvalidInput.WithDetails("无效的目标类型: " + string(r.Type))
}

func newGoalView(goal *models.Goal) GoalView {
	view := GoalView{Goal: *goal}
	if p, ok := goal.Progress(); ok {
		view.Progress = &p
	}
	return view
}
