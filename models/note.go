package models

import (
	"time"
)

// Note 类别或类别分组上的备注
type Note struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	PlanID          uint      `json:"plan_id" gorm:"index;not null"`
	CategoryID      *uint     `json:"category_id" gorm:"index"`
	CategoryGroupID *uint     `json:"category_group_id" gorm:"index"`
	Content         string    `json:"content" gorm:"type:text;not null"`
	CreatedBy       uint      `json:"created_by" gorm:"not null"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName 设置表名
func (Note) TableName() string {
	return "notes"
}
