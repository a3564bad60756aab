package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstOfMonth(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	// 本地时间 3 月 1 日 02:00 对应 UTC 2 月 29 日
	d := time.Date(2024, 3, 1, 2, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), FirstOfMonth(d))

	d2 := time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), FirstOfMonth(d2))
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), m)

	m, err = ParseMonth("2024-05-17")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), m)

	m, err = ParseMonth("")
	require.NoError(t, err)
	assert.Equal(t, 1, m.Day())

	_, err = ParseMonth("May 2024")
	assert.Error(t, err)
}

func TestRoles(t *testing.T) {
	assert.True(t, IsValidRole(RoleOwner))
	assert.True(t, IsValidRole(RoleViewer))
	assert.False(t, IsValidRole("ADMIN"))

	assert.True(t, CanWrite(RoleOwner))
	assert.True(t, CanWrite(RoleEditor))
	assert.False(t, CanWrite(RoleViewer))
}

func TestAccountTypes(t *testing.T) {
	assert.True(t, IsValidAccountType(AccountCreditCard))
	assert.False(t, IsValidAccountType("PIGGY_BANK"))
	assert.True(t, IsLiability(AccountMortgage))
	assert.False(t, IsLiability(AccountChecking))
}

func TestTransaction_PostsToBudget(t *testing.T) {
	cat := uint(3)
	to := uint(9)

	assert.True(t, (&Transaction{CategoryID: &cat}).PostsToBudget())
	assert.False(t, (&Transaction{CategoryID: &cat, ToAccountID: &to}).PostsToBudget())
	assert.False(t, (&Transaction{}).PostsToBudget())
	assert.True(t, (&Transaction{ToAccountID: &to}).IsTransfer())
}

func TestInvitation_Status(t *testing.T) {
	now := time.Now()
	inv := &Invitation{ExpiresAt: now.Add(time.Hour)}
	assert.Equal(t, InvitationPending, inv.Status(now))
	assert.True(t, inv.IsValid(now))

	inv.ExpiresAt = now
	assert.Equal(t, InvitationExpired, inv.Status(now))
	assert.False(t, inv.IsValid(now))

	accepted := now.Add(-time.Minute)
	inv2 := &Invitation{ExpiresAt: now.Add(-time.Hour), AcceptedAt: &accepted}
	assert.Equal(t, InvitationAccepted, inv2.Status(now))
}

func TestMessage_Anonymize(t *testing.T) {
	uid := uint(5)
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	m := &Message{UserID: &uid, Content: "hello"}

	m.Anonymize(now, 7)
	assert.Nil(t, m.UserID)
	assert.Empty(t, m.Content)
	assert.True(t, m.IsAnonymized)
	require.NotNil(t, m.ScheduledDelete)
	assert.Equal(t, now.AddDate(0, 0, 7), *m.ScheduledDelete)

	m2 := &Message{}
	m2.Anonymize(now, 0)
	assert.Equal(t, now.AddDate(0, 0, DefaultMessageRetentionDays), *m2.ScheduledDelete)
}

func TestGoal_ApplySpec(t *testing.T) {
	g := &Goal{}
	by := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, g.ApplySpec(TargetBalanceByDate{Target: decimal.NewFromInt(1200), By: by}))
	assert.Equal(t, GoalTargetBalanceByDate, g.Type)
	assert.True(t, g.TargetAmount.Valid)
	require.NotNil(t, g.TargetDate)

	// 切换类型时清空无关字段
	require.NoError(t, g.ApplySpec(PeriodicFunding{Amount: decimal.NewFromInt(50), Cadence: CadenceWeekly}))
	assert.Equal(t, GoalPeriodicFunding, g.Type)
	assert.False(t, g.TargetAmount.Valid)
	assert.Nil(t, g.TargetDate)
	assert.Equal(t, CadenceWeekly, g.Cadence)

	spec, err := g.Spec()
	require.NoError(t, err)
	pf, ok := spec.(PeriodicFunding)
	require.True(t, ok)
	assert.True(t, pf.Amount.Equal(decimal.NewFromInt(50)))
}

func TestGoal_ApplySpecValidation(t *testing.T) {
	g := &Goal{}
	assert.ErrorIs(t, g.ApplySpec(TargetBalance{Target: decimal.Zero}), ErrGoalTarget)
	assert.ErrorIs(t, g.ApplySpec(TargetBalanceByDate{Target: decimal.NewFromInt(1)}), ErrGoalDate)
	assert.ErrorIs(t, g.ApplySpec(PeriodicFunding{Amount: decimal.NewFromInt(1), Cadence: "DAILY"}), ErrGoalCadence)
	assert.ErrorIs(t, g.ApplySpec(PercentOfIncome{Percent: decimal.NewFromInt(120)}), ErrGoalPercent)
	assert.ErrorIs(t, g.ApplySpec(nil), ErrGoalType)
	assert.NoError(t, g.ApplySpec(Custom{Description: "someday"}))

	_, err := (&Goal{Type: "UNKNOWN"}).Spec()
	assert.ErrorIs(t, err, ErrGoalType)
}

func TestGoal_Progress(t *testing.T) {
	g := &Goal{CurrentAmount: decimal.NewFromInt(250)}
	require.NoError(t, g.ApplySpec(TargetBalance{Target: decimal.NewFromInt(1000)}))

	p, ok := g.Progress()
	require.True(t, ok)
	assert.True(t, p.Equal(decimal.NewFromInt(25)), p.String())

	g.CurrentAmount = decimal.NewFromInt(5000)
	p, _ = g.Progress()
	assert.True(t, p.Equal(decimal.NewFromInt(100)))

	custom := &Goal{}
	require.NoError(t, custom.ApplySpec(Custom{}))
	_, ok = custom.Progress()
	assert.False(t, ok)
}

func TestValidateOwner(t *testing.T) {
	id := uint(1)
	assert.NoError(t, ValidateOwner(&id, nil))
	assert.NoError(t, ValidateOwner(nil, &id))
	assert.ErrorIs(t, ValidateOwner(nil, nil), ErrGoalOwner)
	assert.ErrorIs(t, ValidateOwner(&id, &id), ErrGoalOwner)
}
