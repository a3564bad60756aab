package service

import (
	"context"
	"strings"

	"envelope/models"

	"gorm.io/gorm"
)

// CategoryService 类别与类别分组管理
type CategoryService struct {
	db    *gorm.DB
	cache *SummaryCache
}

// NewCategoryService 创建类别服务
func NewCategoryService(db *gorm.DB, cache *SummaryCache) *CategoryService {
	return &CategoryService{db: db, cache: cache}
}

// CategoryUpdate 重命名或隐藏
type CategoryUpdate struct {
	Name     *string
	IsHidden *bool
}

// Structure 计划的分组与类别，均按 sort_order 排序
func (s *CategoryService) Structure(ctx context.Context, planID uint) ([]models.CategoryGroup, error) {
	var groups []models.CategoryGroup
	if err := s.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Preload("Categories").
		Find(&groups).Error; err != nil {
		return nil, err
	}
	SortGroups(groups)
	return groups, nil
}

// CreateGroup 新分组排在最后（max+1，不复用空位）
func (s *CategoryService) CreateGroup(ctx context.Context, planID uint, name string) (*models.CategoryGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput("分组名称不能为空")
	}

	group := &models.CategoryGroup{PlanID: planID, Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := nextSortOrder(tx.Model(&models.CategoryGroup{}).Where("plan_id = ?", planID))
		if err != nil {
			return err
		}
		group.SortOrder = next
		return tx.Create(group).Error
	})
	if err != nil {
		return nil, err
	}
	s.cache.InvalidatePlan(planID)
	return group, nil
}

// UpdateGroup 重命名或隐藏分组
func (s *CategoryService) UpdateGroup(ctx context.Context, planID, groupID uint, in CategoryUpdate) (*models.CategoryGroup, error) {
	db := s.db.WithContext(ctx)
	var group models.CategoryGroup
	if err := db.Where("id = ? AND plan_id = ?", groupID, planID).Take(&group).Error; err != nil {
		return nil, notFoundAs(err, ErrGroupNotFound)
	}

	updates, err := categoryUpdates(in)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := db.Model(&group).Updates(updates).Error; err != nil {
			return nil, err
		}
		if err := db.First(&group, group.ID).Error; err != nil {
			return nil, err
		}
		s.cache.InvalidatePlan(planID)
	}
	return &group, nil
}

// DeleteGroup 在一个事务内删除分组、其下类别及关联数据
func (s *CategoryService) DeleteGroup(ctx context.Context, planID, groupID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.CategoryGroup
		if err := tx.Where("id = ? AND plan_id = ?", groupID, planID).Take(&group).Error; err != nil {
			return notFoundAs(err, ErrGroupNotFound)
		}

		var categoryIDs []uint
		if err := tx.Model(&models.Category{}).Where("category_group_id = ?", groupID).Pluck("id", &categoryIDs).Error; err != nil {
			return err
		}
		if err := deleteCategories(tx, categoryIDs); err != nil {
			return err
		}
		if err := tx.Where("category_group_id = ?", groupID).Delete(&models.Goal{}).Error; err != nil {
			return err
		}
		if err := tx.Where("category_group_id = ?", groupID).Delete(&models.Note{}).Error; err != nil {
			return err
		}
		return tx.Delete(&group).Error
	})
	if err != nil {
		return err
	}
	s.cache.InvalidatePlan(planID)
	return nil
}

// CreateCategory 在分组末尾新增类别
func (s *CategoryService) CreateCategory(ctx context.Context, planID, groupID uint, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput("类别名称不能为空")
	}

	category := &models.Category{PlanID: planID, CategoryGroupID: groupID, Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureGroupInPlan(tx, groupID, planID); err != nil {
			return err
		}
		next, err := nextSortOrder(tx.Model(&models.Category{}).Where("category_group_id = ?", groupID))
		if err != nil {
			return err
		}
		category.SortOrder = next
		return tx.Create(category).Error
	})
	if err != nil {
		return nil, err
	}
	s.cache.InvalidatePlan(planID)
	return category, nil
}

// UpdateCategory 重命名或隐藏类别
func (s *CategoryService) UpdateCategory(ctx context.Context, planID, groupID, categoryID uint, in CategoryUpdate) (*models.Category, error) {
	db := s.db.WithContext(ctx)
	var category models.Category
	if err := db.Where("id = ? AND plan_id = ? AND category_group_id = ?", categoryID, planID, groupID).
		Take(&category).Error; err != nil {
		return nil, notFoundAs(err, ErrCategoryNotFound)
	}

	updates, err := categoryUpdates(in)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := db.Model(&category).Updates(updates).Error; err != nil {
			return nil, err
		}
		if err := db.First(&category, category.ID).Error; err != nil {
			return nil, err
		}
		s.cache.InvalidatePlan(planID)
	}
	return &category, nil
}

// DeleteCategory 删除类别及其预算、目标与备注，交易保留但不再关联类别
func (s *CategoryService) DeleteCategory(ctx context.Context, planID, groupID, categoryID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.Where("id = ? AND plan_id = ? AND category_group_id = ?", categoryID, planID, groupID).
			Take(&category).Error; err != nil {
			return notFoundAs(err, ErrCategoryNotFound)
		}
		return deleteCategories(tx, []uint{category.ID})
	})
	if err != nil {
		return err
	}
	s.cache.InvalidatePlan(planID)
	return nil
}

// MoveCategory 移动到目标分组末尾
func (s *CategoryService) MoveCategory(ctx context.Context, planID, categoryID, targetGroupID uint) (*models.Category, error) {
	var category models.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND plan_id = ?", categoryID, planID).Take(&category).Error; err != nil {
			return notFoundAs(err, ErrCategoryNotFound)
		}
		if err := ensureGroupInPlan(tx, targetGroupID, planID); err != nil {
			return err
		}
		next, err := nextSortOrder(tx.Model(&models.Category{}).Where("category_group_id = ?", targetGroupID))
		if err != nil {
			return err
		}
		if err := tx.Model(&category).Updates(map[string]interface{}{
			"category_group_id": targetGroupID,
			"sort_order":        next,
		}).Error; err != nil {
			return err
		}
		return tx.First(&category, category.ID).Error
	})
	if err != nil {
		return nil, err
	}
	s.cache.InvalidatePlan(planID)
	return &category, nil
}

// CopyStructure 复制分组与类别的名称、排序与隐藏状态，不复制预算、目标与备注
func CopyStructure(tx *gorm.DB, fromPlanID, toPlanID uint) error {
	var groups []models.CategoryGroup
	if err := tx.Where("plan_id = ?", fromPlanID).Preload("Categories").Find(&groups).Error; err != nil {
		return err
	}
	SortGroups(groups)

	for _, src := range groups {
		dst := models.CategoryGroup{
			PlanID:    toPlanID,
			Name:      src.Name,
			SortOrder: src.SortOrder,
			IsHidden:  src.IsHidden,
		}
		if err := tx.Omit("Categories").Create(&dst).Error; err != nil {
			return err
		}
		if len(src.Categories) == 0 {
			continue
		}
		cats := make([]models.Category, 0, len(src.Categories))
		for _, c := range src.Categories {
			cats = append(cats, models.Category{
				PlanID:          toPlanID,
				CategoryGroupID: dst.ID,
				Name:            c.Name,
				SortOrder:       c.SortOrder,
				IsHidden:        c.IsHidden,
			})
		}
		if err := tx.Create(&cats).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedDefaultStructure 为新计划创建默认分组与类别
func SeedDefaultStructure(tx *gorm.DB, planID uint) error {
	for i, def := range models.DefaultCategoryStructure() {
		group := models.CategoryGroup{PlanID: planID, Name: def.Name, SortOrder: i + 1}
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		cats := make([]models.Category, 0, len(def.Categories))
		for j, name := range def.Categories {
			cats = append(cats, models.Category{
				PlanID:          planID,
				CategoryGroupID: group.ID,
				Name:            name,
				SortOrder:       j + 1,
			})
		}
		if err := tx.Create(&cats).Error; err != nil {
			return err
		}
	}
	return nil
}

func categoryUpdates(in CategoryUpdate) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalidInput("名称不能为空")
		}
		updates["name"] = name
	}
	if in.IsHidden != nil {
		updates["is_hidden"] = *in.IsHidden
	}
	return updates, nil
}

// deleteCategories 删除类别及其预算、目标、备注，并解除交易关联
func deleteCategories(tx *gorm.DB, categoryIDs []uint) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	if err := tx.Model(&models.Transaction{}).
		Where("category_id IN ?", categoryIDs).
		Update("category_id", nil).Error; err != nil {
		return err
	}
	for _, model := range []interface{}{&models.Budget{}, &models.Goal{}, &models.Note{}} {
		if err := tx.Where("category_id IN ?", categoryIDs).Delete(model).Error; err != nil {
			return err
		}
	}
	return tx.Where("id IN ?", categoryIDs).Delete(&models.Category{}).Error
}

func ensureGroupInPlan(tx *gorm.DB, groupID, planID uint) error {
	var count int64
	if err := tx.Model(&models.CategoryGroup{}).
		Where("id = ? AND plan_id = ?", groupID, planID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// nextSortOrder 返回 max(sort_order)+1，空集合为 1
func nextSortOrder(scope *gorm.DB) (int, error) {
	var max int64
	if err := scope.Select("COALESCE(MAX(sort_order), 0)").Row().Scan(&max); err != nil {
		return 0, err
	}
	return int(max) + 1, nil
}
