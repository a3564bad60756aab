package service

import (
	"context"
	"sort"
	"time"

	"envelope/models"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// PlanSummary 某计划某月的预算汇总
type PlanSummary struct {
	PlanID         uint             `json:"plan_id"`
	Month          string           `json:"month"`
	IncomePlanID   uint             `json:"income_plan_id"`
	TotalIncome    decimal.Decimal  `json:"total_income"`
	TotalBudgeted  decimal.Decimal  `json:"total_budgeted"`
	TotalActivity  decimal.Decimal  `json:"total_activity"`
	TotalAvailable decimal.Decimal  `json:"total_available"`
	ToBeBudgeted   decimal.Decimal  `json:"to_be_budgeted"`
	CategoryGroups []GroupSummary   `json:"category_groups"`
	Accounts       []models.Account `json:"accounts"`
}

// GroupSummary 分组汇总
type GroupSummary struct {
	ID         uint              `json:"id"`
	Name       string            `json:"name"`
	SortOrder  int               `json:"sort_order"`
	IsHidden   bool              `json:"is_hidden"`
	Budgeted   decimal.Decimal   `json:"budgeted"`
	Activity   decimal.Decimal   `json:"activity"`
	Available  decimal.Decimal   `json:"available"`
	Categories []CategorySummary `json:"categories"`
}

// CategorySummary 类别当月预算
type CategorySummary struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	SortOrder int             `json:"sort_order"`
	IsHidden  bool            `json:"is_hidden"`
	Budgeted  decimal.Decimal `json:"budgeted"`
	Activity  decimal.Decimal `json:"activity"`
	Available decimal.Decimal `json:"available"`
}

// Summary 计算汇总，结果按 (用户, 计划, 月份) 缓存
//
// totalIncome 取调用者最早加入的计划中所有未关闭账户的余额之和；
// 预算合计只统计未隐藏的类别；toBeBudgeted = totalIncome - totalBudgeted。
func (s *LedgerService) Summary(ctx context.Context, userID, planID uint, month time.Time) (*PlanSummary, error) {
	month = models.FirstOfMonth(month)
	return s.cache.GetOrLoad(userID, planID, month, func() (*PlanSummary, error) {
		return s.computeSummary(ctx, userID, planID, month)
	})
}

func (s *LedgerService) computeSummary(ctx context.Context, userID, planID uint, month time.Time) (*PlanSummary, error) {
	db := s.db.WithContext(ctx)

	incomePlanID, err := homePlanID(db, userID)
	if err != nil {
		return nil, err
	}

	var (
		groups         []models.CategoryGroup
		budgets        []models.Budget
		accounts       []models.Account
		incomeAccounts []models.Account
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("plan_id = ?", planID).
			Preload("Categories").
			Find(&groups).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("plan_id = ? AND month = ?", planID, month).
			Find(&budgets).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Where("plan_id = ?", planID).Find(&accounts).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Where("plan_id = ? AND is_closed = ?", incomePlanID, false).
			Find(&incomeAccounts).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byCategory := make(map[uint]models.Budget, len(budgets))
	for _, b := range budgets {
		byCategory[b.CategoryID] = b
	}

	summary := &PlanSummary{
		PlanID:         planID,
		Month:          month.Format("2006-01"),
		IncomePlanID:   incomePlanID,
		TotalIncome:    decimal.Zero,
		TotalBudgeted:  decimal.Zero,
		TotalActivity:  decimal.Zero,
		TotalAvailable: decimal.Zero,
		CategoryGroups: make([]GroupSummary, 0, len(groups)),
	}

	for _, a := range incomeAccounts {
		summary.TotalIncome = summary.TotalIncome.Add(a.Balance)
	}

	SortGroups(groups)
	for _, grp := range groups {
		gs := GroupSummary{
			ID:         grp.ID,
			Name:       grp.Name,
			SortOrder:  grp.SortOrder,
			IsHidden:   grp.IsHidden,
			Budgeted:   decimal.Zero,
			Activity:   decimal.Zero,
			Available:  decimal.Zero,
			Categories: make([]CategorySummary, 0, len(grp.Categories)),
		}
		for _, cat := range grp.Categories {
			b, ok := byCategory[cat.ID]
			cs := CategorySummary{
				ID:        cat.ID,
				Name:      cat.Name,
				SortOrder: cat.SortOrder,
				IsHidden:  cat.IsHidden,
				Budgeted:  decimal.Zero,
				Activity:  decimal.Zero,
				Available: decimal.Zero,
			}
			if ok {
				cs.Budgeted = b.Budgeted
				cs.Activity = b.Activity
				cs.Available = b.Available
			}
			gs.Categories = append(gs.Categories, cs)

			if cat.IsHidden || grp.IsHidden {
				continue
			}
			gs.Budgeted = gs.Budgeted.Add(cs.Budgeted)
			gs.Activity = gs.Activity.Add(cs.Activity)
			gs.Available = gs.Available.Add(cs.Available)
		}
		summary.TotalBudgeted = summary.TotalBudgeted.Add(gs.Budgeted)
		summary.TotalActivity = summary.TotalActivity.Add(gs.Activity)
		summary.TotalAvailable = summary.TotalAvailable.Add(gs.Available)
		summary.CategoryGroups = append(summary.CategoryGroups, gs)
	}

	summary.ToBeBudgeted = summary.TotalIncome.Sub(summary.TotalBudgeted)

	SortAccounts(accounts)
	summary.Accounts = accounts
	return summary, nil
}

// SortGroups 分组及其类别按 sort_order 升序
func SortGroups(groups []models.CategoryGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].SortOrder != groups[j].SortOrder {
			return groups[i].SortOrder < groups[j].SortOrder
		}
		return groups[i].ID < groups[j].ID
	})
	for i := range groups {
		cats := groups[i].Categories
		sort.SliceStable(cats, func(a, b int) bool {
			if cats[a].SortOrder != cats[b].SortOrder {
				return cats[a].SortOrder < cats[b].SortOrder
			}
			return cats[a].ID < cats[b].ID
		})
	}
}

// SortAccounts 预算内优先，未关闭优先，再按类型与名称
func SortAccounts(accounts []models.Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		a, b := accounts[i], accounts[j]
		if a.IsOnBudget != b.IsOnBudget {
			return a.IsOnBudget
		}
		if a.IsClosed != b.IsClosed {
			return !a.IsClosed
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Name < b.Name
	})
}
