package service

import (
	"context"
	"strings"

	"envelope/models"

	"gorm.io/gorm"
)

// NoteService 类别/分组备注
type NoteService struct {
	db *gorm.DB
}

// NewNoteService 创建备注服务
func NewNoteService(db *gorm.DB) *NoteService {
	return &NoteService{db: db}
}

// NoteInput 新建备注，CategoryID 与 CategoryGroupID 二选一
type NoteInput struct {
	CategoryID      *uint
	CategoryGroupID *uint
	Content         string
}

// NoteFilter 备注筛选
type NoteFilter struct {
	CategoryID      uint
	CategoryGroupID uint
}

// List 计划内备注，按更新时间倒序
func (s *NoteService) List(ctx context.Context, planID uint, f NoteFilter) ([]models.Note, error) {
	query := s.db.WithContext(ctx).Where("plan_id = ?", planID)
	if f.CategoryID != 0 {
		query = query.Where("category_id = ?", f.CategoryID)
	}
	if f.CategoryGroupID != 0 {
		query = query.Where("category_group_id = ?", f.CategoryGroupID)
	}
	var list []models.Note
	err := query.Order("updated_at DESC, id DESC").Find(&list).Error
	return list, err
}

// Get 获取计划内备注
func (s *NoteService) Get(ctx context.Context, planID, noteID uint) (*models.Note, error) {
	var note models.Note
	if err := s.db.WithContext(ctx).Where("id = ? AND plan_id = ?", noteID, planID).Take(&note).Error; err != nil {
		return nil, notFoundAs(err, ErrNotFound)
	}
	return &note, nil
}

// Create 新建备注
func (s *NoteService) Create(ctx context.Context, planID, userID uint, in NoteInput) (*models.Note, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, invalidInput("备注内容不能为空")
	}
	if err := models.ValidateOwner(in.CategoryID, in.CategoryGroupID); err != nil {
		return nil, invalidInput("%s", err.Error())
	}

	db := s.db.WithContext(ctx)
	if err := ensureOwnerInPlan(db, planID, in.CategoryID, in.CategoryGroupID); err != nil {
		return nil, err
	}

	note := &models.Note{
		PlanID:          planID,
		CategoryID:      in.CategoryID,
		CategoryGroupID: in.CategoryGroupID,
		Content:         content,
		CreatedBy:       userID,
	}
	if err := db.Create(note).Error; err != nil {
		return nil, err
	}
	return note, nil
}

// Update 修改备注内容
func (s *NoteService) Update(ctx context.Context, planID, noteID uint, content string) (*models.Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalidInput("备注内容不能为空")
	}
	note, err := s.Get(ctx, planID, noteID)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	if err := db.Model(note).Update("content", content).Error; err != nil {
		return nil, err
	}
	if err := db.First(note, note.ID).Error; err != nil {
		return nil, err
	}
	return note, nil
}

// Delete 删除备注
func (s *NoteService) Delete(ctx context.Context, planID, noteID uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND plan_id = ?", noteID, planID).Delete(&models.Note{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ensureOwnerInPlan 备注/目标关联的类别或分组必须属于该计划
func ensureOwnerInPlan(db *gorm.DB, planID uint, categoryID, groupID *uint) error {
	if categoryID != nil {
		return ensureCategoryInPlan(db, *categoryID, planID)
	}
	if groupID != nil {
		return ensureGroupInPlan(db, *groupID, planID)
	}
	return nil
}
