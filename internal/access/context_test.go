package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kioskhub/internal/models"
)

func TestSuperAdminAccessesEverything(t *testing.T) {
	ac := Context{UserID: "u1", Role: models.RoleSuperAdmin}
	assert.True(t, ac.CanAccessFranchise("f1"))
	assert.True(t, ac.CanAccessGym("g1"))
	assert.Equal(t, "/admin", ac.HomePath())
}

func TestFranchiseAdminScopedToOwnFranchises(t *testing.T) {
	ac := Context{
		UserID:       "u2",
		Role:         models.RoleFranchiseAdmin,
		FranchiseIDs: []string{"f1", "f2"},
		GymIDs:       []string{"g1", "g2", "g3"},
	}
	assert.True(t, ac.CanAccessFranchise("f1"))
	assert.True(t, ac.CanAccessFranchise("f2"))
	assert.False(t, ac.CanAccessFranchise("f9"))
	assert.True(t, ac.CanAccessGym("g2"))
	assert.False(t, ac.CanAccessGym("g9"))
	assert.Equal(t, "/franchise", ac.HomePath())
}

func TestGymManagerScopedToOwnGym(t *testing.T) {
	ac := Context{UserID: "u3", Role: models.RoleGymManager, GymIDs: []string{"g1"}}
	assert.True(t, ac.CanAccessGym("g1"))
	assert.False(t, ac.CanAccessGym("g2"))
	assert.False(t, ac.CanAccessFranchise("f1"), "gym managers never get franchise scope")
	assert.Equal(t, "/gym", ac.HomePath())
}

func TestEmptyContextDeniesAll(t *testing.T) {
	ac := Context{}
	assert.False(t, ac.CanAccessFranchise("f1"))
	assert.False(t, ac.CanAccessGym("g1"))
}
