package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Budget 某类别某月的预算行，(plan_id, category_id, month) 唯一
// Available = Budgeted - Activity，由记账增量维护
type Budget struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	PlanID     uint            `json:"plan_id" gorm:"uniqueIndex:idx_budget_month;not null"`
	CategoryID uint            `json:"category_id" gorm:"uniqueIndex:idx_budget_month;index;not null"`
	Month      time.Time       `json:"month" gorm:"uniqueIndex:idx_budget_month;not null"`
	Budgeted   decimal.Decimal `json:"budgeted" gorm:"type:decimal(20,2);not null"`
	Activity   decimal.Decimal `json:"activity" gorm:"type:decimal(20,2);not null"`
	Available  decimal.Decimal `json:"available" gorm:"type:decimal(20,2);not null"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// TableName 设置表名
func (Budget) TableName() string {
	return "budgets"
}

// FirstOfMonth 归一化为当月 1 日 00:00 UTC
func FirstOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ParseMonth 解析 YYYY-MM 或 YYYY-MM-DD，空字符串取当前月
func ParseMonth(s string) (time.Time, error) {
	if s == "" {
		return FirstOfMonth(time.Now()), nil
	}
	for _, layout := range []string{"2006-01", "2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return FirstOfMonth(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("无效的月份格式: %s", s)
}
