package models

import (
	"time"
)

// User 用户模型
type User struct {
	ID                     uint      `json:"id" gorm:"primaryKey"`
	Email                  string    `json:"email" gorm:"uniqueIndex;size:100;not null"`
	Name                   string    `json:"name" gorm:"size:100"`
	Password               string    `json:"-" gorm:"size:255;not null"`
	HasCompletedOnboarding bool      `json:"has_completed_onboarding" gorm:"not null"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// TableName 设置表名
func (User) TableName() string {
	return "users"
}
