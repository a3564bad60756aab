package api

import (
	"envelope/middleware"
	"envelope/service"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 类别与类别分组处理器
type CategoryHandler struct {
	categories *service.CategoryService
}

// NewCategoryHandler 创建类别处理器
func NewCategoryHandler(categories *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// NameRequest 新建分组或类别
type NameRequest struct {
	Name string `json:"name" binding:"required,max=100" example:"日常开销"`
}

// UpdateCategoryRequest 重命名或隐藏，字段缺省表示不修改
type UpdateCategoryRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=100" example:"餐饮"`
	IsHidden *bool   `json:"is_hidden" example:"false"`
}

// MoveCategoryRequest 移动类别
type MoveCategoryRequest struct {
	CategoryID    uint `json:"category_id" binding:"required" example:"12"`
	TargetGroupID uint `json:"target_group_id" binding:"required" example:"3"`
}

// Structure 分组与类别结构
// @Summary 分组与类别结构
// @Description 分组与类别均按 sort_order 升序
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param X-Plan-ID header int false "计划 ID"
// @Success 200 {object} Response{data=[]models.CategoryGroup} "获取成功"
// @Router /api/v1/categories [get]
func (h *CategoryHandler) Structure(c *gin.Context) {
	groups, err := h.categories.Structure(c.Request.Context(), middleware.GetCurrentPlanID(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, groups)
}

// CreateGroup 新建分组
// @Summary 新建分组
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Plan-ID header int false "计划 ID"
// @Param request body NameRequest true "分组名称"
// @Success 201 {object} Response{data=models.CategoryGroup} "创建成功"
// @Failure 403 {object} Response "权限不足"
// @Router /api/v1/categories [post]
func (h *CategoryHandler) CreateGroup(c *gin.Context) {
	var req NameRequest
	if !bindJSON(c, &req) {
		return
	}
	group, err := h.categories.CreateGroup(c.Request.Context(), middleware.GetCurrentPlanID(c), req.Name)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, group)
}

// UpdateGroup 重命名或隐藏分组
// @Summary 重命名或隐藏分组
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param groupId path int true "分组 ID"
// @Param request body UpdateCategoryRequest true "修改内容"
// @Success 200 {object} Response{data=models.CategoryGroup} "修改成功"
// @Failure 404 {object} Response "分组不存在"
// @Router /api/v1/categories/{groupId} [put]
func (h *CategoryHandler) UpdateGroup(c *gin.Context) {
	groupID, ok := pathID(c, "groupId")
	if !ok {
		return
	}
	var req UpdateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	group, err := h.categories.UpdateGroup(c.Request.Context(), middleware.GetCurrentPlanID(c), groupID, service.CategoryUpdate{
		Name:     req.Name,
		IsHidden: req.IsHidden,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "修改成功", group)
}

// DeleteGroup 删除分组
// @Summary 删除分组
// @Description 同时删除其下类别、预算、目标与备注；相关交易保留但不再关联类别
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param groupId path int true "分组 ID"
// @Success 200 {object} Response "删除成功"
// @Router /api/v1/categories/{groupId} [delete]
func (h *CategoryHandler) DeleteGroup(c *gin.Context) {
	groupID, ok := pathID(c, "groupId")
	if !ok {
		return
	}
	if err := h.categories.DeleteGroup(c.Request.Context(), middleware.GetCurrentPlanID(c), groupID); err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// CreateCategory 在分组中新建类别
// @Summary 新建类别
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param groupId path int true "分组 ID"
// @Param request body NameRequest true "类别名称"
// @Success 201 {object} Response{data=models.Category} "创建成功"
// @Router /api/v1/categories/{groupId}/categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	groupID, ok := pathID(c, "groupId")
	if !ok {
		return
	}
	var req NameRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.categories.CreateCategory(c.Request.Context(), middleware.GetCurrentPlanID(c), groupID, req.Name)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, category)
}

// UpdateCategory 重命名或隐藏类别
// @Summary 重命名或隐藏类别
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param groupId path int true "分组 ID"
// @Param categoryId path int true "类别 ID"
// @Param request body UpdateCategoryRequest true "修改内容"
// @Success 200 {object} Response{data=models.Category} "修改成功"
// @Router /api/v1/categories/{groupId}/categories/{categoryId} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	groupID, ok := pathID(c, "groupId")
	if !ok {
		return
	}
	categoryID, ok := pathID(c, "categoryId")
	if !ok {
		return
	}
	var req UpdateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.categories.UpdateCategory(c.Request.Context(), middleware.GetCurrentPlanID(c), groupID, categoryID, service.CategoryUpdate{
		Name:     req.Name,
		IsHidden: req.IsHidden,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "修改成功", category)
}

// DeleteCategory 删除类别
// @Summary 删除类别
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param groupId path int true "分组 ID"
// @Param categoryId path int true "类别 ID"
// @Success 200 {object} Response "删除成功"
// @Router /api/v1/categories/{groupId}/categories/{categoryId} [delete]
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	groupID, ok := pathID(c, "groupId")
	if !ok {
		return
	}
	categoryID, ok := pathID(c, "categoryId")
	if !ok {
		return
	}
	if err := h.categories.DeleteCategory(c.Request.Context(), middleware.GetCurrentPlanID(c), groupID, categoryID); err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// MoveCategory 移动类别到其他分组
// @Summary 移动类别
// @Description 移动到目标分组末尾，sort_order 为目标分组当前最大值加一
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body MoveCategoryRequest true "移动信息"
// @Success 200 {object} Response{data=models.Category} "移动成功"
// @Router /api/v1/categories/move [post]
func (h *CategoryHandler) MoveCategory(c *gin.Context) {
	var req MoveCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.categories.MoveCategory(c.Request.Context(), middleware.GetCurrentPlanID(c), req.CategoryID, req.TargetGroupID)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, category)
}
