package models

import (
	"time"
)

// CategoryGroup 类别分组
type CategoryGroup struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	PlanID     uint       `json:"plan_id" gorm:"index;not null"`
	Name       string     `json:"name" gorm:"size:100;not null"`
	SortOrder  int        `json:"sort_order" gorm:"not null"`
	IsHidden   bool       `json:"is_hidden" gorm:"not null"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Categories []Category `json:"categories,omitempty" gorm:"foreignKey:CategoryGroupID"`
}

func (CategoryGroup) TableName() string {
	return "category_groups"
}

// Category 预算类别（信封）
type Category struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	PlanID          uint      `json:"plan_id" gorm:"index;not null"`
	CategoryGroupID uint      `json:"category_group_id" gorm:"index;not null"`
	Name            string    `json:"name" gorm:"size:100;not null"`
	SortOrder       int       `json:"sort_order" gorm:"not null"`
	IsHidden        bool      `json:"is_hidden" gorm:"not null"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}

// DefaultCategoryGroup 新用户引导时创建的默认结构
type DefaultCategoryGroup struct {
	Name       string
	Categories []string
}

// DefaultCategoryStructure 默认类别结构
func DefaultCategoryStructure() []DefaultCategoryGroup {
	return []DefaultCategoryGroup{
		{Name: "Bills", Categories: []string{"Rent", "Electric", "Water", "Internet", "Phone"}},
		{Name: "Needs", Categories: []string{"Groceries", "Transportation", "Medical"}},
		{Name: "Wants", Categories: []string{"Dining Out", "Entertainment", "Shopping"}},
		{Name: "Savings", Categories: []string{"Emergency Fund", "Vacation"}},
	}
}
