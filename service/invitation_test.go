package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"envelope/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type invitationFixture struct {
	db      *gorm.DB
	svc     *InvitationService
	mailer  *fakeMailer
	owner   *models.User
	invitee *models.User
	plan    *models.Plan
}

func newInvitationFixture(t *testing.T) *invitationFixture {
	t.Helper()
	db := newTestDB(t)
	owner := seedUser(t, db)
	invitee := seedUser(t, db)
	plan := seedPlan(t, db, owner)
	mailer := newFakeMailer()
	return &invitationFixture{
		db:      db,
		svc:     NewInvitationService(db, testConfig(), mailer, nil),
		mailer:  mailer,
		owner:   owner,
		invitee: invitee,
		plan:    plan,
	}
}

func (f *invitationFixture) token(t *testing.T, id uint) string {
	t.Helper()
	var invitation models.Invitation
	require.NoError(t, f.db.First(&invitation, id).Error)
	return invitation.Token
}

func TestSendInvitation(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()

	result, err := f.svc.Send(ctx, f.owner.ID, f.plan.ID, strings.ToUpper(f.invitee.Email), models.RoleEditor)
	require.NoError(t, err)
	assert.True(t, result.EmailSent)
	assert.Equal(t, f.invitee.Email, result.Invitation.Email)
	assert.True(t, strings.HasPrefix(result.InviteURL, "https://budget.example.com/invitations/accept?token="))
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), result.Invitation.ExpiresAt, time.Minute)
	require.Len(t, f.mailer.invitations, 1)
	assert.Contains(t, f.mailer.invitations[0], f.invitee.Email)
}

func TestSendInvitation_RequiresOwner(t *testing.T) {
	f := newInvitationFixture(t)
	editor := seedUser(t, f.db)
	addMember(t, f.db, f.plan.ID, editor, models.RoleEditor)

	_, err := f.svc.Send(context.Background(), editor.ID, f.plan.ID, f.invitee.Email, models.RoleViewer)
	assert.ErrorIs(t, err, ErrOwnerRequired)
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.RoleEditor, appErr.UserRole)

	stranger := seedUser(t, f.db)
	_, err = f.svc.Send(context.Background(), stranger.ID, f.plan.ID, f.invitee.Email, models.RoleViewer)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestSendInvitation_ExistingMember(t *testing.T) {
	f := newInvitationFixture(t)
	addMember(t, f.db, f.plan.ID, f.invitee, models.RoleViewer)

	_, err := f.svc.Send(context.Background(), f.owner.ID, f.plan.ID, f.invitee.Email, models.RoleViewer)
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestSendInvitation_MailFailureRollsBack(t *testing.T) {
	f := newInvitationFixture(t)
	f.mailer.fail = errors.New("smtp down")

	_, err := f.svc.Send(context.Background(), f.owner.ID, f.plan.ID, f.invitee.Email, models.RoleViewer)
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))

	var count int64
	require.NoError(t, f.db.Model(&models.Invitation{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSendInvitation_FailedResendKeepsPendingInvite(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()

	first, err := f.svc.Send(ctx, f.owner.ID, f.plan.ID, f.invitee.Email, models.RoleViewer)
	require.NoError(t, err)
	token := f.token(t, first.Invitation.ID)

	f.mailer.fail = errors.New("smtp down")
	_, err = f.svc.Send(ctx, f.owner.ID, f.plan.ID, f.invitee.Email, models.RoleEditor)
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))

	var pending int64
	require.NoError(t, f.db.Model(&models.Invitation{}).
		Where("accepted_at IS NULL AND expires_at > ?", time.Now().UTC()).
		Count(&pending).Error)
	assert.Equal(t, int64(1), pending)

	member, err := f.svc.Accept(ctx, f.invitee.ID, token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, member.Role)
}

func TestAcceptInvitation_SingleUse(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()

	result, err := f.svc.Send(ctx, f.owner.ID, f.plan.ID, f.invitee.Email, models.RoleEditor)
	require.NoError(t, err)
	token := f.token(t, result.Invitation.ID)

	member, err := f.svc.Accept(ctx, f.invitee.ID, token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, member.Role)
	assert.Equal(t, f.plan.ID, member.PlanID)

	var invitation models.Invitation
	require.NoError(t, f.db.First(&invitation, result.Invitation.ID).Error)
	assert.Equal(t, models.InvitationAccepted, invitation.Status(time.Now()))
	require.NotNil(t, invitation.AcceptedBy)
	assert.Equal(t, f.invitee.ID, *invitation.AcceptedBy)

	_, err = f.svc.Accept(ctx, f.invitee.ID, token)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestAcceptInvitation_SupersededToken(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()

	first, err := f.svc.Send(ctx, f.owner.ID, f.plan.ID, f.invitee.Email, models.RoleViewer)
	require.NoError(t, err)
	oldToken := f.token(t, first.Invitation.ID)
	second, err := f.svc.Send(ctx, f.owner.ID, f.plan.ID, f.invitee.Email, models.RoleEditor)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, f.invitee.ID, oldToken)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)

	var count int64
	require.NoError(t, f.db.Model(&models.PlanMember{}).Where("user_id = ?", f.invitee.ID).Count(&count).Error)
	assert.Zero(t, count)

	member, err := f.svc.Accept(ctx, f.invitee.ID, f.token(t, second.Invitation.ID))
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, member.Role)
}

func TestAcceptInvitation_EmailMismatch(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	other := seedUser(t, f.db)

	result, err := f.svc.Send(ctx, f.owner.ID, f.plan.ID, f.invitee.Email, models.RoleViewer)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, other.ID, f.token(t, result.Invitation.ID))
	assert.ErrorIs(t, err, ErrEmailMismatch)
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestAcceptInvitation_Expired(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()

	result, err := f.svc.Send(ctx, f.owner.ID, f.plan.ID, f.invitee.Email, models.RoleViewer)
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().UTC().Add(8 * 24 * time.Hour) }
	_, err = f.svc.Accept(ctx, f.invitee.ID, f.token(t, result.Invitation.ID))
	assert.ErrorIs(t, err, ErrInvalidOrExpired)

	_, err = f.svc.Accept(ctx, f.invitee.ID, "no-such-token")
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestAcceptInvitation_PlanFull(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		addMember(t, f.db, f.plan.ID, seedUser(t, f.db), models.RoleViewer)
	}

	result, err := f.svc.Send(ctx, f.owner.ID, f.plan.ID, f.invitee.Email, models.RoleViewer)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, f.invitee.ID, f.token(t, result.Invitation.ID))
	assert.ErrorIs(t, err, ErrPlanFull)

	// 失败后令牌仍可用
	var invitation models.Invitation
	require.NoError(t, f.db.First(&invitation, result.Invitation.ID).Error)
	assert.Nil(t, invitation.AcceptedAt)
}

func TestAcceptInvitation_LastSeatTakenOnce(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		addMember(t, f.db, f.plan.ID, seedUser(t, f.db), models.RoleViewer)
	}
	late := seedUser(t, f.db)

	a, err := f.svc.Send(ctx, f.owner.ID, f.plan.ID, f.invitee.Email, models.RoleViewer)
	require.NoError(t, err)
	b, err := f.svc.Send(ctx, f.owner.ID, f.plan.ID, late.Email, models.RoleViewer)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, f.invitee.ID, f.token(t, a.Invitation.ID))
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, late.ID, f.token(t, b.Invitation.ID))
	assert.ErrorIs(t, err, ErrPlanFull)

	var count int64
	require.NoError(t, f.db.Model(&models.PlanMember{}).Where("plan_id = ?", f.plan.ID).Count(&count).Error)
	assert.Equal(t, int64(5), count)
}

func TestPreviewAndRevoke(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()

	result, err := f.svc.Send(ctx, f.owner.ID, f.plan.ID, f.invitee.Email, models.RoleViewer)
	require.NoError(t, err)
	token := f.token(t, result.Invitation.ID)

	preview, err := f.svc.Preview(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, f.plan.Name, preview.PlanName)
	assert.Equal(t, models.InvitationPending, preview.Status)

	pending, err := f.svc.ListPending(ctx, f.plan.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, f.svc.Revoke(ctx, f.plan.ID, result.Invitation.ID))
	assert.ErrorIs(t, f.svc.Revoke(ctx, f.plan.ID, result.Invitation.ID), ErrInvalidOrExpired)

	pending, err = f.svc.ListPending(ctx, f.plan.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.svc.Accept(ctx, f.invitee.ID, token)
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
}

func TestSweepExpired(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, f.owner.ID, f.plan.ID, f.invitee.Email, models.RoleViewer)
	require.NoError(t, err)

	n, err := f.svc.SweepExpired(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.svc.now = func() time.Time { return time.Now().UTC().Add(40 * 24 * time.Hour) }
	n, err = f.svc.SweepExpired(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
