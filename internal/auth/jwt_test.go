package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kioskhub/internal/models"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	tok, jti, exp, err := Sign("user-123", models.RoleFranchiseAdmin)
	require.NoError(t, err)
	require.NotEmpty(t, jti)
	assert.False(t, exp.IsZero())

	claims, err := Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, models.RoleFranchiseAdmin, claims.Role)
	assert.Equal(t, jti, claims.JWTID)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	t.Setenv("JWT_SECRET", "key-one")
	tok, _, _, err := Sign("user-123", models.RoleGymManager)
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "key-two")
	_, err = Verify(tok)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	_, err := Verify("not.a.token")
	assert.Error(t, err)
}
