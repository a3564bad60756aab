package service

import (
	"context"
	"testing"
	"time"

	"envelope/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var march = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func newLedgerFixture(t *testing.T) (*LedgerService, *models.User, *models.Plan) {
	t.Helper()
	db := newTestDB(t)
	user := seedUser(t, db)
	plan := seedPlan(t, db, user)
	return NewLedgerService(db, NewSummaryCache(time.Minute), nil), user, plan
}

func TestPostTransaction_TransferConservesBalance(t *testing.T) {
	svc, user, plan := newLedgerFixture(t)
	a := seedAccount(t, svc.db, plan.ID, 500)
	b := seedAccount(t, svc.db, plan.ID, 100)
	category := firstCategory(t, svc.db, plan.ID)

	_, err := svc.PostTransaction(context.Background(), PostTransactionInput{
		PlanID:        plan.ID,
		UserID:        user.ID,
		Date:          march,
		Amount:        dec(120),
		FromAccountID: a.ID,
		ToAccountID:   uintPtr(b.ID),
		CategoryID:    uintPtr(category.ID),
	})
	require.NoError(t, err)

	ra, rb := reloadAccount(t, svc.db, a.ID), reloadAccount(t, svc.db, b.ID)
	assert.True(t, ra.Balance.Equal(dec(380)), ra.Balance.String())
	assert.True(t, rb.Balance.Equal(dec(220)), rb.Balance.String())
	assert.True(t, ra.Balance.Add(rb.Balance).Equal(dec(600)))

	// 转账不产生预算行
	var budgets int64
	require.NoError(t, svc.db.Model(&models.Budget{}).Where("category_id = ?", category.ID).Count(&budgets).Error)
	assert.Zero(t, budgets)
}

func TestPostTransaction_SameAccountTransfer(t *testing.T) {
	svc, user, plan := newLedgerFixture(t)
	a := seedAccount(t, svc.db, plan.ID, 500)

	_, err := svc.PostTransaction(context.Background(), PostTransactionInput{
		PlanID:        plan.ID,
		UserID:        user.ID,
		Date:          march,
		Amount:        dec(10),
		FromAccountID: a.ID,
		ToAccountID:   uintPtr(a.ID),
	})
	assert.ErrorIs(t, err, ErrInvalidTransfer)

	var count int64
	require.NoError(t, svc.db.Model(&models.Transaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPostTransaction_ActivityAccumulates(t *testing.T) {
	svc, user, plan := newLedgerFixture(t)
	a := seedAccount(t, svc.db, plan.ID, 1000)
	category := firstCategory(t, svc.db, plan.ID)
	ctx := context.Background()

	_, err := svc.UpdateBudget(ctx, plan.ID, category.ID, march, dec(100))
	require.NoError(t, err)

	for _, amount := range []int64{-30, -20} {
		_, err := svc.PostTransaction(ctx, PostTransactionInput{
			PlanID:        plan.ID,
			UserID:        user.ID,
			Date:          march,
			Amount:        dec(amount),
			FromAccountID: a.ID,
			CategoryID:    uintPtr(category.ID),
		})
		require.NoError(t, err)
	}

	var budget models.Budget
	require.NoError(t, svc.db.Where("plan_id = ? AND category_id = ? AND month = ?",
		plan.ID, category.ID, models.FirstOfMonth(march)).Take(&budget).Error)
	assert.True(t, budget.Activity.Equal(dec(50)), budget.Activity.String())
	assert.True(t, budget.Available.Equal(dec(50)), budget.Available.String())
	assert.True(t, budget.Budgeted.Equal(dec(100)))
}

func TestUpdateBudget_Idempotent(t *testing.T) {
	svc, _, plan := newLedgerFixture(t)
	category := firstCategory(t, svc.db, plan.ID)
	ctx := context.Background()

	first, err := svc.UpdateBudget(ctx, plan.ID, category.ID, march, dec(250))
	require.NoError(t, err)
	second, err := svc.UpdateBudget(ctx, plan.ID, category.ID, march.AddDate(0, 0, 5), dec(250))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Budgeted.Equal(dec(250)))
	assert.True(t, second.Available.Equal(dec(250)))

	var count int64
	require.NoError(t, svc.db.Model(&models.Budget{}).Where("category_id = ?", category.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpdateBudget_CategoryOutsidePlan(t *testing.T) {
	svc, user, plan := newLedgerFixture(t)
	other := seedPlan(t, svc.db, user)
	foreign := firstCategory(t, svc.db, other.ID)

	_, err := svc.UpdateBudget(context.Background(), plan.ID, foreign.ID, march, dec(10))
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestSummary_ToBeBudgeted(t *testing.T) {
	svc, user, plan := newLedgerFixture(t)
	ctx := context.Background()
	seedAccount(t, svc.db, plan.ID, 600)
	seedAccount(t, svc.db, plan.ID, 400)
	closed := seedAccount(t, svc.db, plan.ID, 999)
	require.NoError(t, svc.db.Model(closed).Update("is_closed", true).Error)

	var cats []models.Category
	require.NoError(t, svc.db.Where("plan_id = ?", plan.ID).Order("id ASC").Limit(3).Find(&cats).Error)
	require.Len(t, cats, 3)
	for i, amount := range []int64{500, 250} {
		_, err := svc.UpdateBudget(ctx, plan.ID, cats[i].ID, march, dec(amount))
		require.NoError(t, err)
	}
	// 隐藏类别不计入合计
	require.NoError(t, svc.db.Model(&cats[2]).Update("is_hidden", true).Error)
	_, err := svc.UpdateBudget(ctx, plan.ID, cats[2].ID, march, dec(1000))
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, user.ID, plan.ID, march)
	require.NoError(t, err)
	assert.Equal(t, "2025-03", summary.Month)
	assert.True(t, summary.TotalIncome.Equal(dec(1000)), summary.TotalIncome.String())
	assert.True(t, summary.TotalBudgeted.Equal(dec(750)), summary.TotalBudgeted.String())
	assert.True(t, summary.ToBeBudgeted.Equal(dec(250)), summary.ToBeBudgeted.String())
	assert.Len(t, summary.Accounts, 3)
	assert.True(t, summary.Accounts[len(summary.Accounts)-1].IsClosed)
}

func TestSummary_IncomeFromFirstJoinedPlan(t *testing.T) {
	svc, user, home := newLedgerFixture(t)
	seedAccount(t, svc.db, home.ID, 300)

	second := seedPlan(t, svc.db, user)
	seedAccount(t, svc.db, second.ID, 9000)

	summary, err := svc.Summary(context.Background(), user.ID, second.ID, march)
	require.NoError(t, err)
	assert.Equal(t, home.ID, summary.IncomePlanID)
	assert.True(t, summary.TotalIncome.Equal(dec(300)), summary.TotalIncome.String())
}

func TestSummary_CacheInvalidatedOnWrite(t *testing.T) {
	svc, user, plan := newLedgerFixture(t)
	ctx := context.Background()
	category := firstCategory(t, svc.db, plan.ID)

	before, err := svc.Summary(ctx, user.ID, plan.ID, march)
	require.NoError(t, err)
	assert.True(t, before.TotalBudgeted.IsZero())
	assert.Equal(t, 1, svc.cache.Len())

	_, err = svc.UpdateBudget(ctx, plan.ID, category.ID, march, dec(40))
	require.NoError(t, err)
	assert.Equal(t, 0, svc.cache.Len())

	after, err := svc.Summary(ctx, user.ID, plan.ID, march)
	require.NoError(t, err)
	assert.True(t, after.TotalBudgeted.Equal(dec(40)))
}

func TestDeleteTransaction_ReversesPostings(t *testing.T) {
	svc, user, plan := newLedgerFixture(t)
	ctx := context.Background()
	a := seedAccount(t, svc.db, plan.ID, 200)
	category := firstCategory(t, svc.db, plan.ID)

	txn, err := svc.PostTransaction(ctx, PostTransactionInput{
		PlanID:        plan.ID,
		UserID:        user.ID,
		Date:          march,
		Amount:        dec(75),
		FromAccountID: a.ID,
		CategoryID:    uintPtr(category.ID),
	})
	require.NoError(t, err)
	assert.True(t, reloadAccount(t, svc.db, a.ID).Balance.Equal(dec(125)))

	require.NoError(t, svc.DeleteTransaction(ctx, plan.ID, txn.ID))
	assert.True(t, reloadAccount(t, svc.db, a.ID).Balance.Equal(dec(200)))

	var budget models.Budget
	require.NoError(t, svc.db.Where("category_id = ?", category.ID).Take(&budget).Error)
	assert.True(t, budget.Activity.IsZero())
	assert.True(t, budget.Available.IsZero())

	assert.ErrorIs(t, svc.DeleteTransaction(ctx, plan.ID, txn.ID), ErrNotFound)
}

func TestPostTransaction_AccountFromUnrelatedPlan(t *testing.T) {
	svc, user, plan := newLedgerFixture(t)
	stranger := seedUser(t, svc.db)
	strangerPlan := seedPlan(t, svc.db, stranger)
	foreign := seedAccount(t, svc.db, strangerPlan.ID, 100)

	_, err := svc.PostTransaction(context.Background(), PostTransactionInput{
		PlanID:        plan.ID,
		UserID:        user.ID,
		Date:          march,
		Amount:        dec(10),
		FromAccountID: foreign.ID,
	})
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.True(t, reloadAccount(t, svc.db, foreign.ID).Balance.Equal(dec(100)))
}

func TestPostTransaction_PublishesEvent(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	plan := seedPlan(t, db, user)
	n := &recordingNotifier{}
	svc := NewLedgerService(db, nil, n)
	a := seedAccount(t, db, plan.ID, 10)

	_, err := svc.PostTransaction(context.Background(), PostTransactionInput{
		PlanID:        plan.ID,
		UserID:        user.ID,
		Date:          march,
		Amount:        dec(5),
		FromAccountID: a.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{EventTransactionPosted}, n.types())
}

func TestUpdateTransactionDetails(t *testing.T) {
	svc, user, plan := newLedgerFixture(t)
	ctx := context.Background()
	a := seedAccount(t, svc.db, plan.ID, 10)
	txn, err := svc.PostTransaction(ctx, PostTransactionInput{
		PlanID: plan.ID, UserID: user.ID, Date: march, Amount: dec(5), FromAccountID: a.ID,
	})
	require.NoError(t, err)

	cleared := true
	red := "red"
	updated, err := svc.UpdateTransactionDetails(ctx, plan.ID, txn.ID, TransactionDetails{Cleared: &cleared, FlagColor: &red})
	require.NoError(t, err)
	assert.True(t, updated.Cleared)
	require.NotNil(t, updated.FlagColor)
	assert.Equal(t, "red", *updated.FlagColor)

	bad := "pink"
	_, err = svc.UpdateTransactionDetails(ctx, plan.ID, txn.ID, TransactionDetails{FlagColor: &bad})
	assert.Equal(t, KindInvalidInput, KindOf(err))

	// 余额不受影响
	assert.True(t, reloadAccount(t, svc.db, a.ID).Balance.Equal(dec(5)))
}

func TestListTransactions_FilterAndPage(t *testing.T) {
	svc, user, plan := newLedgerFixture(t)
	ctx := context.Background()
	a := seedAccount(t, svc.db, plan.ID, 100)
	for i := 0; i < 3; i++ {
		_, err := svc.PostTransaction(ctx, PostTransactionInput{
			PlanID: plan.ID, UserID: user.ID, Date: march.AddDate(0, 0, i), Amount: dec(1), FromAccountID: a.ID,
		})
		require.NoError(t, err)
	}
	_, err := svc.PostTransaction(ctx, PostTransactionInput{
		PlanID: plan.ID, UserID: user.ID, Date: march.AddDate(0, 1, 0), Amount: dec(1), FromAccountID: a.ID,
	})
	require.NoError(t, err)

	month := march
	list, total, err := svc.ListTransactions(ctx, plan.ID, TransactionFilter{Month: &month, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 2)
	assert.True(t, list[0].Date.After(list[1].Date))
}

func TestExportTransactions(t *testing.T) {
	svc, user, plan := newLedgerFixture(t)
	ctx := context.Background()
	a := seedAccount(t, svc.db, plan.ID, 100)
	_, err := svc.PostTransaction(ctx, PostTransactionInput{
		PlanID: plan.ID, UserID: user.ID, Date: march, Amount: dec(12), Payee: "超市", FromAccountID: a.ID,
	})
	require.NoError(t, err)

	file, err := svc.ExportTransactions(ctx, plan.ID, TransactionFilter{}, ExportCSV)
	require.NoError(t, err)
	assert.Contains(t, file.Filename, ".csv")
	assert.Contains(t, file.Body.String(), "超市")

	file, err = svc.ExportTransactions(ctx, plan.ID, TransactionFilter{}, ExportXLSX)
	require.NoError(t, err)
	assert.Greater(t, file.Body.Len(), 0)

	_, err = svc.ExportTransactions(ctx, plan.ID, TransactionFilter{}, "pdf")
	assert.Equal(t, KindInvalidInput, KindOf(err))
}
