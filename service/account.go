package service

import (
	"context"
	"strings"

	"envelope/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountService 账户管理
type AccountService struct {
	db    *gorm.DB
	cache *SummaryCache
}

// NewAccountService 创建账户服务
func NewAccountService(db *gorm.DB, cache *SummaryCache) *AccountService {
	return &AccountService{db: db, cache: cache}
}

// AccountInput 创建账户参数
type AccountInput struct {
	Name       string
	Type       string
	Balance    decimal.Decimal
	IsOnBudget bool
}

// AccountUpdate 账户可修改字段
type AccountUpdate struct {
	Name       *string
	Balance    *decimal.Decimal
	IsOnBudget *bool
	IsClosed   *bool
}

// List 计划内账户，按预算内/未关闭/类型/名称排序
func (s *AccountService) List(ctx context.Context, planID uint) ([]models.Account, error) {
	var accounts []models.Account
	if err := s.db.WithContext(ctx).Where("plan_id = ?", planID).Find(&accounts).Error; err != nil {
		return nil, err
	}
	SortAccounts(accounts)
	return accounts, nil
}

// Get 获取计划内账户
func (s *AccountService) Get(ctx context.Context, planID, accountID uint) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).Where("id = ? AND plan_id = ?", accountID, planID).Take(&account).Error; err != nil {
		return nil, notFoundAs(err, ErrAccountNotFound)
	}
	return &account, nil
}

// Create 创建账户
func (s *AccountService) Create(ctx context.Context, planID uint, in AccountInput) (*models.Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidInput("账户名称不能为空")
	}
	if !models.IsValidAccountType(in.Type) {
		return nil, invalidInput("无效的账户类型: %s", in.Type)
	}

	account := &models.Account{
		PlanID:     planID,
		Name:       name,
		Type:       in.Type,
		Balance:    in.Balance,
		IsOnBudget: in.IsOnBudget,
	}
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		return nil, err
	}
	s.cache.InvalidatePlan(planID)
	return account, nil
}

// Update 修改账户，余额可显式编辑
func (s *AccountService) Update(ctx context.Context, planID, accountID uint, in AccountUpdate) (*models.Account, error) {
	account, err := s.Get(ctx, planID, accountID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalidInput("账户名称不能为空")
		}
		updates["name"] = name
	}
	if in.Balance != nil {
		updates["balance"] = *in.Balance
	}
	if in.IsOnBudget != nil {
		updates["is_on_budget"] = *in.IsOnBudget
	}
	if in.IsClosed != nil {
		updates["is_closed"] = *in.IsClosed
	}
	if len(updates) == 0 {
		return account, nil
	}

	db := s.db.WithContext(ctx)
	if err := db.Model(account).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := db.First(account, account.ID).Error; err != nil {
		return nil, err
	}
	s.cache.InvalidatePlan(planID)
	return account, nil
}

// Delete 删除账户，存在关联交易时拒绝
func (s *AccountService) Delete(ctx context.Context, planID, accountID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.Account
		if err := tx.Where("id = ? AND plan_id = ?", accountID, planID).Take(&account).Error; err != nil {
			return notFoundAs(err, ErrAccountNotFound)
		}

		var refs int64
		if err := tx.Model(&models.Transaction{}).
			Where("from_account_id = ? OR to_account_id = ?", accountID, accountID).
			Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return ErrAccountInUse
		}
		return tx.Delete(&account).Error
	})
	if err != nil {
		return err
	}
	s.cache.InvalidatePlan(planID)
	return nil
}
