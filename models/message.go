package models

import (
	"time"
)

// Message 计划内聊天消息
// 删除分两步：先匿名化并写入 ScheduledDelete，到期后由清理任务物理删除
type Message struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	PlanID          uint       `json:"plan_id" gorm:"index;not null"`
	UserID          *uint      `json:"user_id" gorm:"index"`
	Content         string     `json:"content" gorm:"type:text;not null"`
	ReplyToID       *uint      `json:"reply_to_id" gorm:"index"`
	IsAnonymized    bool       `json:"is_anonymized" gorm:"not null"`
	ScheduledDelete *time.Time `json:"scheduled_delete" gorm:"index"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	User            *User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// TableName 设置表名
func (Message) TableName() string {
	return "messages"
}

// Anonymize 清除作者与内容，并安排在 retention 后删除
func (m *Message) Anonymize(now time.Time, retentionDays int) {
	if retentionDays <= 0 {
		retentionDays = DefaultMessageRetentionDays
	}
	at := now.AddDate(0, 0, retentionDays)
	m.UserID = nil
	m.User = nil
	m.Content = ""
	m.IsAnonymized = true
	m.ScheduledDelete = &at
}
