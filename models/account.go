package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// 账户类型
const (
	AccountChecking     = "CHECKING"
	AccountSavings      = "SAVINGS"
	AccountCash         = "CASH"
	AccountCreditCard   = "CREDIT_CARD"
	AccountLineOfCredit = "LINE_OF_CREDIT"
	AccountInvestment   = "INVESTMENT"
	AccountMortgage     = "MORTGAGE"
	AccountLoan         = "LOAN"
)

// Account 资金账户，余额只由交易记账或显式编辑修改
type Account struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	PlanID     uint            `json:"plan_id" gorm:"index;not null"`
	Name       string          `json:"name" gorm:"size:100;not null"`
	Type       string          `json:"type" gorm:"size:20;not null"`
	Balance    decimal.Decimal `json:"balance" gorm:"type:decimal(20,2);not null"`
	IsOnBudget bool            `json:"is_on_budget" gorm:"not null"`
	IsClosed   bool            `json:"is_closed" gorm:"not null"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// TableName 设置表名
func (Account) TableName() string {
	return "accounts"
}

// AccountTypes 所有账户类型
func AccountTypes() []string {
	return []string{
		AccountChecking,
		AccountSavings,
		AccountCash,
		AccountCreditCard,
		AccountLineOfCredit,
		AccountInvestment,
		AccountMortgage,
		AccountLoan,
	}
}

// IsValidAccountType 校验账户类型
func IsValidAccountType(t string) bool {
	for _, v := range AccountTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// IsLiability 负债类账户
func IsLiability(t string) bool {
	switch t {
	case AccountCreditCard, AccountLineOfCredit, AccountMortgage, AccountLoan:
		return true
	}
	return false
}
