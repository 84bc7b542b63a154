package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvitationAcceptOnce(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	inv := Invitation{
		Email:     "owner@example.com",
		Role:      RoleGymManager,
		Status:    InvitationPending,
		ExpiresAt: now.Add(48 * time.Hour),
	}

	require.NoError(t, inv.Accept(now))
	assert.Equal(t, InvitationAccepted, inv.Status)
	require.NotNil(t, inv.AcceptedAt)
	assert.Equal(t, now, *inv.AcceptedAt)

	err := inv.Accept(now.Add(time.Minute))
	assert.ErrorIs(t, err, ErrInvitationAccepted)
	assert.Equal(t, now, *inv.AcceptedAt, "second accept must not touch the record")
}

func TestInvitationAcceptExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	inv := Invitation{Status: InvitationPending, ExpiresAt: now.Add(-time.Hour)}

	err := inv.Accept(now)
	assert.ErrorIs(t, err, ErrInvitationExpired)
	assert.Equal(t, InvitationPending, inv.Status)
	assert.Nil(t, inv.AcceptedAt)
}

func TestInvitationAcceptMarkedExpired(t *testing.T) {
	now := time.Now()
	inv := Invitation{Status: InvitationExpired, ExpiresAt: now.Add(time.Hour)}
	assert.ErrorIs(t, inv.Accept(now), ErrInvitationExpired)
}

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, RoleSuperAdmin.AtLeast(RoleGymManager))
	assert.True(t, RoleFranchiseAdmin.AtLeast(RoleFranchiseAdmin))
	assert.False(t, RoleGymManager.AtLeast(RoleFranchiseAdmin))
	assert.False(t, Role("member").AtLeast(RoleGymManager))
}
