package models

import (
	"time"
)

// 邀请状态，由 AcceptedAt 与 ExpiresAt 推导
const (
	InvitationPending  = "PENDING"
	InvitationAccepted = "ACCEPTED"
	InvitationExpired  = "EXPIRED"
)

// Invitation 计划邀请，令牌一次性使用
type Invitation struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	PlanID     uint       `json:"plan_id" gorm:"index;not null"`
	Email      string     `json:"email" gorm:"index;size:100;not null"`
	Role       string     `json:"role" gorm:"size:10;not null"`
	Token      string     `json:"-" gorm:"uniqueIndex;size:64;not null"`
	InvitedBy  uint       `json:"invited_by" gorm:"not null"`
	ExpiresAt  time.Time  `json:"expires_at" gorm:"not null"`
	AcceptedAt *time.Time `json:"accepted_at"`
	AcceptedBy *uint      `json:"accepted_by"`
	CreatedAt  time.Time  `json:"created_at"`
	Plan       *Plan      `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
}

// TableName 设置表名
func (Invitation) TableName() string {
	return "invitations"
}

// Status 当前状态
func (i *Invitation) Status(now time.Time) string {
	if i.AcceptedAt != nil {
		return InvitationAccepted
	}
	if !now.Before(i.ExpiresAt) {
		return InvitationExpired
	}
	return InvitationPending
}

// IsValid 是否仍可接受
func (i *Invitation) IsValid(now time.Time) bool {
	return i.Status(now) == InvitationPending
}
