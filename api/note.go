package api

import (
	"envelope/middleware"
	"envelope/service"

	"github.com/gin-gonic/gin"
)

// NoteHandler 备注处理器
type NoteHandler struct {
	notes *service.NoteService
}

// NewNoteHandler 创建备注处理器
func NewNoteHandler(notes *service.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// CreateNoteRequest 新建备注，category_id 与 category_group_id 二选一
type CreateNoteRequest struct {
	CategoryID      *uint  `json:"category_id" example:"5"`
	CategoryGroupID *uint  `json:"category_group_id"`
	Content         string `json:"content" binding:"required,max=5000" example:"房租每季度初支付"`
}

// UpdateNoteRequest 修改备注
type UpdateNoteRequest struct {
	Content string `json:"content" binding:"required,max=5000"`
}

// List 备注列表
// @Summary 备注列表
// @Tags 备注
// @Produce json
// @Security BearerAuth
// @Param X-Plan-ID header int false "计划 ID"
// @Param category_id query int false "类别 ID"
// @Param category_group_id query int false "分组 ID"
// @Success 200 {object} Response{data=[]models.Note} "获取成功"
// @Router /api/v1/notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	var f service.NoteFilter
	var ok bool
	if f.CategoryID, ok = queryID(c, "category_id"); !ok {
		return
	}
	if f.CategoryGroupID, ok = queryID(c, "category_group_id"); !ok {
		return
	}
	notes, err := h.notes.List(c.Request.Context(), middleware.GetCurrentPlanID(c), f)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, notes)
}

// Get 备注详情
// @Summary 备注详情
// @Tags 备注
// @Produce json
// @Security BearerAuth
// @Param id path int true "备注 ID"
// @Success 200 {object} Response{data=models.Note} "获取成功"
// @Router /api/v1/notes/{id} [get]
func (h *NoteHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	note, err := h.notes.Get(c.Request.Context(), middleware.GetCurrentPlanID(c), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, note)
}

// Create 新建备注
// @Summary 新建备注
// @Tags 备注
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Plan-ID header int false "计划 ID"
// @Param request body CreateNoteRequest true "备注内容"
// @Success 201 {object} Response{data=models.Note} "创建成功"
// @Router /api/v1/notes [post]
func (h *NoteHandler) Create(c *gin.Context) {
	var req CreateNoteRequest
	if !bindJSON(c, &req) {
		return
	}
	note, err := h.notes.Create(c.Request.Context(), middleware.GetCurrentPlanID(c), middleware.GetCurrentUserID(c), service.NoteInput{
		CategoryID:      req.CategoryID,
		CategoryGroupID: req.CategoryGroupID,
		Content:         req.Content,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, note)
}

// Update 修改备注
// @Summary 修改备注
// @Tags 备注
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "备注 ID"
// @Param request body UpdateNoteRequest true "备注内容"
// @Success 200 {object} Response{data=models.Note} "修改成功"
// @Router /api/v1/notes/{id} [put]
func (h *NoteHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateNoteRequest
	if !bindJSON(c, &req) {
		return
	}
	note, err := h.notes.Update(c.Request.Context(), middleware.GetCurrentPlanID(c), id, req.Content)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "修改成功", note)
}

// Delete 删除备注
// @Summary 删除备注
// @Tags 备注
// @Produce json
// @Security BearerAuth
// @Param id path int true "备注 ID"
// @Success 200 {object} Response "删除成功"
// @Router /api/v1/notes/{id} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.notes.Delete(c.Request.Context(), middleware.GetCurrentPlanID(c), id); err != nil {
		HandleError(c, err)
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}
