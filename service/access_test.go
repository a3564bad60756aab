package service

import (
	"context"
	"errors"
	"testing"

	"envelope/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		role string
		cap  Capability
		want error
	}{
		{models.RoleViewer, CapRead, nil},
		{models.RoleViewer, CapWrite, ErrForbidden},
		{models.RoleViewer, CapManage, ErrOwnerRequired},
		{models.RoleEditor, CapWrite, nil},
		{models.RoleEditor, CapManage, ErrOwnerRequired},
		{models.RoleOwner, CapManage, nil},
		{"", CapRead, ErrForbidden},
	}
	for _, tt := range tests {
		err := Authorize(tt.role, tt.cap)
		if tt.want == nil {
			assert.NoError(t, err, "%s/%d", tt.role, tt.cap)
			continue
		}
		assert.ErrorIs(t, err, tt.want, "%s/%d", tt.role, tt.cap)
		var appErr *AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, tt.role, appErr.UserRole)
	}
}

func TestAccessService(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db)
	viewer := seedUser(t, db)
	stranger := seedUser(t, db)
	plan := seedPlan(t, db, owner)
	addMember(t, db, plan.ID, viewer, models.RoleViewer)
	svc := NewAccessService(db)
	ctx := context.Background()

	role, err := svc.Require(ctx, viewer.ID, plan.ID, CapRead)
	require.NoError(t, err)
	assert.Equal(t, models.RoleViewer, role)

	role, err = svc.Require(ctx, viewer.ID, plan.ID, CapWrite)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, models.RoleViewer, role)

	_, err = svc.ResolveRole(ctx, stranger.ID, plan.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	home, err := svc.HomePlanID(ctx, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, home)

	_, err = svc.HomePlanID(ctx, stranger.ID)
	assert.ErrorIs(t, err, ErrNoPlan)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("x")))
	assert.Equal(t, KindConflict, KindOf(ErrEmailTaken))
	assert.Equal(t, KindInvalidState, KindOf(ErrLastOwner.WithDetails("d")))
	assert.Equal(t, "NotFound", KindNotFound.String())
}
