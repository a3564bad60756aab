package models

import (
	"time"
)

// 成员角色
const (
	RoleOwner  = "OWNER"
	RoleEditor = "EDITOR"
	RoleViewer = "VIEWER"
)

// DefaultMessageRetentionDays 消息匿名化后保留天数
const DefaultMessageRetentionDays = 30

// Plan 预算计划（多人共享的预算容器）
type Plan struct {
	ID                   uint      `json:"id" gorm:"primaryKey"`
	Name                 string    `json:"name" gorm:"size:100;not null"`
	Currency             string    `json:"currency" gorm:"size:3;not null"`
	MessageRetentionDays int       `json:"message_retention_days" gorm:"not null"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TableName 设置表名
func (Plan) TableName() string {
	return "plans"
}

// PlanMember 计划成员，(plan_id, user_id) 唯一
type PlanMember struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	PlanID   uint      `json:"plan_id" gorm:"uniqueIndex:idx_plan_member;not null"`
	UserID   uint      `json:"user_id" gorm:"uniqueIndex:idx_plan_member;index;not null"`
	Role     string    `json:"role" gorm:"size:10;not null"`
	JoinedAt time.Time `json:"joined_at" gorm:"not null"`
	User     *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Plan     *Plan     `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
}

// TableName 设置表名
func (PlanMember) TableName() string {
	return "plan_members"
}

// IsValidRole 校验角色取值
func IsValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// CanWrite 角色是否可修改预算数据
func CanWrite(role string) bool {
	return role == RoleOwner || role == RoleEditor
}
