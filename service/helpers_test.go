package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"envelope/config"
	"envelope/database"
	"envelope/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", DBName: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	hash, err := hashPassword("password123")
	require.NoError(t, err)
	user := &models.User{
		Email:    strings.ToLower(gofakeit.Email()),
		Name:     gofakeit.Name(),
		Password: hash,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// seedPlan 创建计划并使用默认分类结构
func seedPlan(t *testing.T, db *gorm.DB, owner *models.User) *models.Plan {
	t.Helper()
	var plan *models.Plan
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		plan, err = createPlan(tx, owner.ID, gofakeit.Company(), "USD")
		return err
	}))
	return plan
}

func addMember(t *testing.T, db *gorm.DB, planID uint, user *models.User, role string) *models.PlanMember {
	t.Helper()
	member := &models.PlanMember{PlanID: planID, UserID: user.ID, Role: role, JoinedAt: time.Now().UTC()}
	require.NoError(t, db.Create(member).Error)
	return member
}

func seedAccount(t *testing.T, db *gorm.DB, planID uint, balance int64) *models.Account {
	t.Helper()
	account := &models.Account{
		PlanID:     planID,
		Name:       gofakeit.Word() + " account",
		Type:       models.AccountChecking,
		Balance:    decimal.NewFromInt(balance),
		IsOnBudget: true,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

// firstCategory 计划中排序最靠前的类别
func firstCategory(t *testing.T, db *gorm.DB, planID uint) *models.Category {
	t.Helper()
	var category models.Category
	require.NoError(t, db.Where("plan_id = ?", planID).Order("category_group_id ASC, sort_order ASC").Take(&category).Error)
	return &category
}

func reloadAccount(t *testing.T, db *gorm.DB, id uint) models.Account {
	t.Helper()
	var account models.Account
	require.NoError(t, db.First(&account, id).Error)
	return account
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func uintPtr(v uint) *uint {
	return &v
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.BaseURL = "https://budget.example.com"
	cfg.Invitation.TTLHours = 168
	cfg.Invitation.MaxMembers = 5
	cfg.OTP.TTLMinutes = 15
	return cfg
}

// recordingNotifier 记录发布的事件
type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Publish(_ context.Context, e Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) Close() error { return nil }

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

// fakeMailer 记录发送的邮件，可模拟失败
type fakeMailer struct {
	enabled     bool
	fail        error
	invitations []string
	codes       map[string]string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{enabled: true, codes: map[string]string{}}
}

func (m *fakeMailer) Enabled() bool { return m.enabled }

func (m *fakeMailer) SendInvitationEmail(toEmail, _, _, _, inviteLink string) error {
	if m.fail != nil {
		return m.fail
	}
	m.invitations = append(m.invitations, toEmail+" "+inviteLink)
	return nil
}

func (m *fakeMailer) SendPasswordResetCode(toEmail, _, code string, _ int) error {
	if m.fail != nil {
		return m.fail
	}
	m.codes[toEmail] = code
	return nil
}
