package service

import (
	"context"
	"strings"

	"envelope/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GoalService 储蓄/支出目标
type GoalService struct {
	db *gorm.DB
}

// NewGoalService 创建目标服务
func NewGoalService(db *gorm.DB) *GoalService {
	return &GoalService{db: db}
}

// GoalInput 新建目标
type GoalInput struct {
	CategoryID      *uint
	CategoryGroupID *uint
	Name            string
	Spec            models.GoalSpec
	CurrentAmount   decimal.Decimal
}

// GoalUpdate 可修改字段，Spec 非空时整体替换类型参数
type GoalUpdate struct {
	Name          *string
	Spec          models.GoalSpec
	CurrentAmount *decimal.Decimal
}

// List 计划内目标
func (s *GoalService) List(ctx context.Context, planID uint) ([]models.Goal, error) {
	var list []models.Goal
	err := s.db.WithContext(ctx).Where("plan_id = ?", planID).Order("id ASC").Find(&list).Error
	return list, err
}

// Get 获取计划内目标
func (s *GoalService) Get(ctx context.Context, planID, goalID uint) (*models.Goal, error) {
	var goal models.Goal
	if err := s.db.WithContext(ctx).Where("id = ? AND plan_id = ?", goalID, planID).Take(&goal).Error; err != nil {
		return nil, notFoundAs(err, ErrNotFound)
	}
	return &goal, nil
}

// Create 新建目标
func (s *GoalService) Create(ctx context.Context, planID uint, in GoalInput) (*models.Goal, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidInput("目标名称不能为空")
	}
	if err := models.ValidateOwner(in.CategoryID, in.CategoryGroupID); err != nil {
		return nil, invalidInput("%s", err.Error())
	}
	if in.CurrentAmount.IsNegative() {
		return nil, invalidInput("当前金额不能为负数")
	}

	goal := &models.Goal{
		PlanID:          planID,
		CategoryID:      in.CategoryID,
		CategoryGroupID: in.CategoryGroupID,
		Name:            name,
		CurrentAmount:   in.CurrentAmount,
	}
	if err := goal.ApplySpec(in.Spec); err != nil {
		return nil, invalidInput("%s", err.Error())
	}

	db := s.db.WithContext(ctx)
	if err := ensureOwnerInPlan(db, planID, in.CategoryID, in.CategoryGroupID); err != nil {
		return nil, err
	}
	if err := db.Create(goal).Error; err != nil {
		return nil, err
	}
	return goal, nil
}

// Update 修改目标
func (s *GoalService) Update(ctx context.Context, planID, goalID uint, in GoalUpdate) (*models.Goal, error) {
	goal, err := s.Get(ctx, planID, goalID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalidInput("目标名称不能为空")
		}
		goal.Name = name
	}
	if in.CurrentAmount != nil {
		if in.CurrentAmount.IsNegative() {
			return nil, invalidInput("当前金额不能为负数")
		}
		goal.CurrentAmount = *in.CurrentAmount
	}
	if in.Spec != nil {
		if err := goal.ApplySpec(in.Spec); err != nil {
			return nil, invalidInput("%s", err.Error())
		}
	}

	// Select 全部字段，确保切换类型时旧参数被清空
	if err := s.db.WithContext(ctx).Model(goal).Select(
		"name", "type", "target_amount", "target_date", "periodic_amount",
		"cadence", "percent", "description", "current_amount",
	).Updates(goal).Error; err != nil {
		return nil, err
	}
	return goal, nil
}

// Delete 删除目标
func (s *GoalService) Delete(ctx context.Context, planID, goalID uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND plan_id = ?", goalID, planID).Delete(&models.Goal{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
