package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"envelope/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, nil, 0)
	ctx := context.Background()

	user, err := svc.Register(ctx, " Alice@Example.com ", "password123", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "password123", user.Password)
	assert.False(t, user.HasCompletedOnboarding)

	_, err = svc.Register(ctx, "alice@example.com", "password123", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
	_, err = svc.Register(ctx, "bob@example.com", "123", "")
	assert.Equal(t, KindInvalidInput, KindOf(err))
	_, err = svc.Register(ctx, "not-an-email", "password123", "")
	assert.Equal(t, KindInvalidInput, KindOf(err))

	got, err := svc.Authenticate(ctx, "ALICE@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestChangePassword(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, nil, 0)
	ctx := context.Background()
	user := seedUser(t, db)

	assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "wrong", "newpassword"), ErrWrongPassword)
	require.NoError(t, svc.ChangePassword(ctx, user.ID, "password123", "newpassword"))

	_, err := svc.Authenticate(ctx, user.Email, "newpassword")
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, nil, 0)
	ctx := context.Background()
	user := seedUser(t, db)
	other := seedUser(t, db)

	name := "New Name"
	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)

	_, err = svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Email: &other.Email})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestPasswordResetFlow(t *testing.T) {
	db := newTestDB(t)
	mailer := newFakeMailer()
	svc := NewUserService(db, mailer, 15*time.Minute)
	ctx := context.Background()
	user := seedUser(t, db)

	require.NoError(t, svc.RequestPasswordReset(ctx, user.Email))
	first := mailer.codes[user.Email]
	require.Len(t, first, 6)

	// 再次请求只保留最新验证码
	require.NoError(t, svc.RequestPasswordReset(ctx, user.Email))
	code := mailer.codes[user.Email]
	var count int64
	require.NoError(t, db.Model(&models.PasswordReset{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	if first != code {
		assert.ErrorIs(t, svc.VerifyResetCode(ctx, user.Email, first), ErrInvalidCode)
	}
	require.NoError(t, svc.VerifyResetCode(ctx, user.Email, code))
	require.NoError(t, svc.ResetPassword(ctx, user.Email, code, "brandnewpass"))

	// 验证码只能使用一次
	assert.ErrorIs(t, svc.ResetPassword(ctx, user.Email, code, "another-pass"), ErrInvalidCode)
	_, err := svc.Authenticate(ctx, user.Email, "brandnewpass")
	assert.NoError(t, err)
}

func TestPasswordReset_ExpiredCode(t *testing.T) {
	db := newTestDB(t)
	mailer := newFakeMailer()
	svc := NewUserService(db, mailer, 15*time.Minute)
	ctx := context.Background()
	user := seedUser(t, db)

	require.NoError(t, svc.RequestPasswordReset(ctx, user.Email))
	code := mailer.codes[user.Email]

	svc.now = func() time.Time { return time.Now().UTC().Add(16 * time.Minute) }
	assert.ErrorIs(t, svc.VerifyResetCode(ctx, user.Email, code), ErrInvalidCode)
}

func TestPasswordReset_UnknownEmailAndMailFailure(t *testing.T) {
	db := newTestDB(t)
	mailer := newFakeMailer()
	svc := NewUserService(db, mailer, 0)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, "ghost@example.com"))
	assert.Empty(t, mailer.codes)

	user := seedUser(t, db)
	mailer.fail = errors.New("smtp down")
	err := svc.RequestPasswordReset(ctx, user.Email)
	assert.Equal(t, KindInternal, KindOf(err))

	var count int64
	require.NoError(t, db.Model(&models.PasswordReset{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPasswordReset_MailDisabledDiscardsCode(t *testing.T) {
	db := newTestDB(t)
	mailer := newFakeMailer()
	mailer.enabled = false
	svc := NewUserService(db, mailer, 0)
	user := seedUser(t, db)

	err := svc.RequestPasswordReset(context.Background(), user.Email)
	assert.ErrorIs(t, err, ErrEmailDisabled)
	assert.Equal(t, KindInternal, KindOf(err))

	var count int64
	require.NoError(t, db.Model(&models.PasswordReset{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCompleteOnboarding(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, nil, 0)
	ctx := context.Background()
	user := seedUser(t, db)

	updated, plan, err := svc.CompleteOnboarding(ctx, user.ID, OnboardingInput{Name: "Dana", PlanName: "Household", Currency: "usd"})
	require.NoError(t, err)
	assert.True(t, updated.HasCompletedOnboarding)
	assert.Equal(t, "Dana", updated.Name)
	require.NotNil(t, plan)
	assert.Equal(t, "Household", plan.Name)
	assert.Equal(t, "USD", plan.Currency)

	// 已有计划时不再创建
	_, plan, err = svc.CompleteOnboarding(ctx, user.ID, OnboardingInput{})
	require.NoError(t, err)
	assert.Nil(t, plan)

	var count int64
	require.NoError(t, db.Model(&models.PlanMember{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
