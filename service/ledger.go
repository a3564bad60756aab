package service

import (
	"context"
	"time"

	"envelope/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerService 维护账户余额与类别预算
type LedgerService struct {
	db       *gorm.DB
	cache    *SummaryCache
	notifier Notifier
}

// NewLedgerService 创建记账服务
func NewLedgerService(db *gorm.DB, cache *SummaryCache, notifier Notifier) *LedgerService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &LedgerService{db: db, cache: cache, notifier: notifier}
}

// PostTransactionInput 记账参数
type PostTransactionInput struct {
	PlanID        uint
	UserID        uint
	Date          time.Time
	Amount        decimal.Decimal
	Payee         string
	Memo          string
	FromAccountID uint
	ToAccountID   *uint
	CategoryID    *uint
	Cleared       bool
	FlagColor     *string
}

// TransactionFilter 交易列表筛选
type TransactionFilter struct {
	AccountID  uint
	CategoryID uint
	Month      *time.Time
	Page       int
	PageSize   int
}

// TransactionDetails 可直接修改的非记账字段
type TransactionDetails struct {
	Cleared   *bool
	FlagColor *string
	ClearFlag bool
	Payee     *string
	Memo      *string
}

func (in *PostTransactionInput) validate() error {
	if in.FromAccountID == 0 {
		return invalidInput("转出账户不能为空")
	}
	if in.ToAccountID != nil && *in.ToAccountID == in.FromAccountID {
		return ErrInvalidTransfer
	}
	if in.Date.IsZero() {
		return invalidInput("交易日期不能为空")
	}
	if in.Amount.IsZero() {
		return invalidInput("交易金额不能为 0")
	}
	if in.FlagColor != nil && !models.IsValidFlagColor(*in.FlagColor) {
		return invalidInput("无效的旗标颜色: %s", *in.FlagColor)
	}
	return nil
}

// PostTransaction 记录交易并在同一数据库事务内更新余额与预算
//
// 转出账户余额减少 amount，转入账户增加 amount；
// 只有类别没有转入账户时，按 |amount| 累加当月 activity 并扣减 available。
// 账户可属于交易所在计划或用户最早加入的计划。
func (s *LedgerService) PostTransaction(ctx context.Context, in PostTransactionInput) (*models.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		PlanID:        in.PlanID,
		Date:          in.Date.UTC(),
		Amount:        in.Amount,
		Payee:         in.Payee,
		Memo:          in.Memo,
		FromAccountID: in.FromAccountID,
		ToAccountID:   in.ToAccountID,
		CategoryID:    in.CategoryID,
		Cleared:       in.Cleared,
		FlagColor:     in.FlagColor,
	}

	touched := []uint{in.PlanID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allowed, err := allowedAccountPlans(tx, in.UserID, in.PlanID)
		if err != nil {
			return err
		}

		from, err := loadAccount(tx, in.FromAccountID, allowed)
		if err != nil {
			return err
		}
		touched = append(touched, from.PlanID)
		if in.ToAccountID != nil {
			to, err := loadAccount(tx, *in.ToAccountID, allowed)
			if err != nil {
				return err
			}
			touched = append(touched, to.PlanID)
		}
		if in.CategoryID != nil {
			if err := ensureCategoryInPlan(tx, *in.CategoryID, in.PlanID); err != nil {
				return err
			}
		}

		if err := tx.Create(txn).Error; err != nil {
			return err
		}
		return applyPostings(tx, txn, 1)
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidatePlan(touched...)
	publish(ctx, s.notifier, Event{
		Type:       EventTransactionPosted,
		PlanID:     in.PlanID,
		ActorID:    in.UserID,
		ResourceID: txn.ID,
	})
	return txn, nil
}

// DeleteTransaction 删除交易并原子地冲回其对余额与预算的影响
func (s *LedgerService) DeleteTransaction(ctx context.Context, planID, transactionID uint) error {
	var touched []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txn models.Transaction
		if err := tx.Where("id = ? AND plan_id = ?", transactionID, planID).Take(&txn).Error; err != nil {
			return notFoundAs(err, ErrNotFound)
		}
		// 先删除再冲回，并发删除时只有一个请求能删到行
		res := tx.Delete(&models.Transaction{}, txn.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		touched = append(touched, txn.PlanID)
		var accountPlans []uint
		ids := []uint{txn.FromAccountID}
		if txn.ToAccountID != nil {
			ids = append(ids, *txn.ToAccountID)
		}
		if err := tx.Model(&models.Account{}).Where("id IN ?", ids).Pluck("plan_id", &accountPlans).Error; err != nil {
			return err
		}
		touched = append(touched, accountPlans...)

		return applyPostings(tx, &txn, -1)
	})
	if err != nil {
		return err
	}
	s.cache.InvalidatePlan(touched...)
	return nil
}

// UpdateTransactionDetails 修改核对状态、旗标、收款方与备注，不影响余额
func (s *LedgerService) UpdateTransactionDetails(ctx context.Context, planID, transactionID uint, d TransactionDetails) (*models.Transaction, error) {
	if d.FlagColor != nil && !models.IsValidFlagColor(*d.FlagColor) {
		return nil, invalidInput("无效的旗标颜色: %s", *d.FlagColor)
	}

	db := s.db.WithContext(ctx)
	var txn models.Transaction
	if err := db.Where("id = ? AND plan_id = ?", transactionID, planID).Take(&txn).Error; err != nil {
		return nil, notFoundAs(err, ErrNotFound)
	}

	updates := map[string]interface{}{}
	if d.Cleared != nil {
		updates["cleared"] = *d.Cleared
	}
	if d.ClearFlag {
		updates["flag_color"] = nil
	} else if d.FlagColor != nil {
		updates["flag_color"] = *d.FlagColor
	}
	if d.Payee != nil {
		updates["payee"] = *d.Payee
	}
	if d.Memo != nil {
		updates["memo"] = *d.Memo
	}
	if len(updates) == 0 {
		return &txn, nil
	}

	if err := db.Model(&txn).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := db.First(&txn, txn.ID).Error; err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetTransaction 获取计划内的单条交易
func (s *LedgerService) GetTransaction(ctx context.Context, planID, transactionID uint) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.WithContext(ctx).Where("id = ? AND plan_id = ?", transactionID, planID).Take(&txn).Error; err != nil {
		return nil, notFoundAs(err, ErrNotFound)
	}
	return &txn, nil
}

// ListTransactions 按日期倒序分页查询
func (s *LedgerService) ListTransactions(ctx context.Context, planID uint, f TransactionFilter) ([]models.Transaction, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("plan_id = ?", planID)
	if f.AccountID != 0 {
		query = query.Where("from_account_id = ? OR to_account_id = ?", f.AccountID, f.AccountID)
	}
	if f.CategoryID != 0 {
		query = query.Where("category_id = ?", f.CategoryID)
	}
	if f.Month != nil {
		start := models.FirstOfMonth(*f.Month)
		query = query.Where("date >= ? AND date < ?", start, start.AddDate(0, 1, 0))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 || f.PageSize > 500 {
		f.PageSize = 50
	}

	var list []models.Transaction
	err := query.Order("date DESC, id DESC").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&list).Error
	return list, total, err
}

// UpdateBudget 设置某类别某月的预算金额，可重复调用
// available = budgeted - activity
func (s *LedgerService) UpdateBudget(ctx context.Context, planID, categoryID uint, month time.Time, budgeted decimal.Decimal) (*models.Budget, error) {
	month = models.FirstOfMonth(month)

	var budget models.Budget
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureCategoryInPlan(tx, categoryID, planID); err != nil {
			return err
		}
		if err := ensureBudgetRow(tx, planID, categoryID, month); err != nil {
			return err
		}
		if err := budgetRow(tx, planID, categoryID, month).
			Updates(map[string]interface{}{
				"budgeted":  budgeted,
				"available": gorm.Expr("? - activity", budgeted),
			}).Error; err != nil {
			return err
		}
		return tx.Where("plan_id = ? AND category_id = ? AND month = ?", planID, categoryID, month).
			Take(&budget).Error
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidatePlan(planID)
	publish(ctx, s.notifier, Event{
		Type:       EventBudgetUpdated,
		PlanID:     planID,
		ResourceID: categoryID,
		Payload:    map[string]string{"month": month.Format("2006-01"), "budgeted": budgeted.String()},
	})
	return &budget, nil
}

// applyPostings 按方向（1 记账 / -1 冲回）更新余额与预算
func applyPostings(tx *gorm.DB, txn *models.Transaction, direction int64) error {
	amount := txn.Amount.Mul(decimal.NewFromInt(direction))

	if err := tx.Model(&models.Account{}).Where("id = ?", txn.FromAccountID).
		Update("balance", gorm.Expr("balance - ?", amount)).Error; err != nil {
		return err
	}
	if txn.ToAccountID != nil {
		if err := tx.Model(&models.Account{}).Where("id = ?", *txn.ToAccountID).
			Update("balance", gorm.Expr("balance + ?", amount)).Error; err != nil {
			return err
		}
	}

	if !txn.PostsToBudget() {
		return nil
	}
	magnitude := txn.Amount.Abs().Mul(decimal.NewFromInt(direction))
	month := models.FirstOfMonth(txn.Date)
	if err := ensureBudgetRow(tx, txn.PlanID, *txn.CategoryID, month); err != nil {
		return err
	}
	return budgetRow(tx, txn.PlanID, *txn.CategoryID, month).
		Updates(map[string]interface{}{
			"activity":  gorm.Expr("activity + ?", magnitude),
			"available": gorm.Expr("available - ?", magnitude),
		}).Error
}

// ensureBudgetRow 依赖唯一索引原子地创建当月预算行
func ensureBudgetRow(tx *gorm.DB, planID, categoryID uint, month time.Time) error {
	row := models.Budget{
		PlanID:     planID,
		CategoryID: categoryID,
		Month:      month,
		Budgeted:   decimal.Zero,
		Activity:   decimal.Zero,
		Available:  decimal.Zero,
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plan_id"}, {Name: "category_id"}, {Name: "month"}},
		DoNothing: true,
	}).Create(&row).Error
}

func budgetRow(tx *gorm.DB, planID, categoryID uint, month time.Time) *gorm.DB {
	return tx.Model(&models.Budget{}).
		Where("plan_id = ? AND category_id = ? AND month = ?", planID, categoryID, month)
}

// allowedAccountPlans 交易可使用的账户所属计划：当前计划与用户最早加入的计划
func allowedAccountPlans(tx *gorm.DB, userID, planID uint) (map[uint]struct{}, error) {
	allowed := map[uint]struct{}{planID: {}}
	if userID == 0 {
		return allowed, nil
	}
	home, err := homePlanID(tx, userID)
	if err != nil && KindOf(err) != KindInvalidState {
		return nil, err
	}
	if home != 0 {
		allowed[home] = struct{}{}
	}
	return allowed, nil
}

func loadAccount(tx *gorm.DB, accountID uint, allowed map[uint]struct{}) (*models.Account, error) {
	var account models.Account
	if err := tx.Take(&account, accountID).Error; err != nil {
		return nil, notFoundAs(err, ErrAccountNotFound)
	}
	if _, ok := allowed[account.PlanID]; !ok {
		return nil, ErrAccountNotFound
	}
	return &account, nil
}

func ensureCategoryInPlan(tx *gorm.DB, categoryID, planID uint) error {
	var count int64
	if err := tx.Model(&models.Category{}).
		Where("id = ? AND plan_id = ?", categoryID, planID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// ExportTransactions 导出交易明细，末行为金额合计
func (s *LedgerService) ExportTransactions(ctx context.Context, planID uint, f TransactionFilter, format string) (*ExportFile, error) {
	query := s.db.WithContext(ctx).Where("plan_id = ?", planID)
	if f.AccountID != 0 {
		query = query.Where("from_account_id = ? OR to_account_id = ?", f.AccountID, f.AccountID)
	}
	if f.Month != nil {
		start := models.FirstOfMonth(*f.Month)
		query = query.Where("date >= ? AND date < ?", start, start.AddDate(0, 1, 0))
	}
	var list []models.Transaction
	if err := query.Order("date ASC, id ASC").Find(&list).Error; err != nil {
		return nil, err
	}

	var (
		accounts   []models.Account
		categories []models.Category
	)
	db := s.db.WithContext(ctx)
	if err := db.Where("plan_id = ?", planID).Find(&accounts).Error; err != nil {
		return nil, err
	}
	if err := db.Where("plan_id = ?", planID).Find(&categories).Error; err != nil {
		return nil, err
	}
	accountNames := make(map[uint]string, len(accounts))
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
	}
	categoryNames := make(map[uint]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	total := decimal.Zero
	rows := make([][]interface{}, 0, len(list))
	for _, t := range list {
		to, category, flag := "", "", ""
		if t.ToAccountID != nil {
			to = accountNames[*t.ToAccountID]
		}
		if t.CategoryID != nil {
			category = categoryNames[*t.CategoryID]
		}
		if t.FlagColor != nil {
			flag = *t.FlagColor
		}
		cleared := "否"
		if t.Cleared {
			cleared = "是"
		}
		amount, _ := t.Amount.Float64()
		rows = append(rows, []interface{}{
			t.Date.Format("2006-01-02"),
			accountNames[t.FromAccountID],
			to,
			category,
			t.Payee,
			t.Memo,
			amount,
			cleared,
			flag,
		})
		total = total.Add(t.Amount)
	}
	totalFloat, _ := total.Float64()

	table := Table{
		Sheet:   "交易明细",
		Headers: []string{"日期", "账户", "转入账户", "类别", "收款方", "备注", "金额", "已核对", "旗标"},
		Widths:  []float64{12, 16, 16, 16, 20, 30, 14, 8, 8},
		Rows:    rows,
		Footer:  []interface{}{"合计", "", "", "", "", "", totalFloat, "", ""},
	}

	stamp := time.Now().Format("20060102_150405")
	if format == ExportCSV {
		buf, err := BuildCSV(table)
		if err != nil {
			return nil, err
		}
		return &ExportFile{Filename: "transactions_" + stamp + ".csv", ContentType: "text/csv; charset=utf-8", Body: buf}, nil
	}
	if format != "" && format != ExportXLSX {
		return nil, invalidInput("不支持的导出格式: %s", format)
	}
	buf, err := BuildWorkbook(table)
	if err != nil {
		return nil, err
	}
	return &ExportFile{
		Filename:    "transactions_" + stamp + ".xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Body:        buf,
	}, nil
}
