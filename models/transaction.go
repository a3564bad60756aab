package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction 交易记录
// 同时带 ToAccountID 与 CategoryID 时视为转账，不计入预算
type Transaction struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	PlanID        uint            `json:"plan_id" gorm:"index;not null"`
	Date          time.Time       `json:"date" gorm:"index;not null"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(20,2);not null"`
	Payee         string          `json:"payee" gorm:"size:100"`
	Memo          string          `json:"memo" gorm:"size:255"`
	FromAccountID uint            `json:"from_account_id" gorm:"index;not null"`
	ToAccountID   *uint           `json:"to_account_id" gorm:"index"`
	CategoryID    *uint           `json:"category_id" gorm:"index"`
	Cleared       bool            `json:"cleared" gorm:"not null"`
	FlagColor     *string         `json:"flag_color" gorm:"size:20"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName 设置表名
func (Transaction) TableName() string {
	return "transactions"
}

// IsTransfer 是否为账户间转账
func (t *Transaction) IsTransfer() bool {
	return t.ToAccountID != nil
}

// PostsToBudget 是否计入类别预算
func (t *Transaction) PostsToBudget() bool {
	return t.CategoryID != nil && t.ToAccountID == nil
}

// FlagColors 可用的旗标颜色
var FlagColors = []string{"red", "orange", "yellow", "green", "blue", "purple"}

// IsValidFlagColor 校验旗标颜色
func IsValidFlagColor(c string) bool {
	for _, v := range FlagColors {
		if v == c {
			return true
		}
	}
	return false
}
