package access

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"kioskhub/internal/models"
)

// ErrNotFound means no active profile exists for the authenticated id. The
// middleware treats it the same as any resolver failure: unauthenticated.
var ErrNotFound = errors.New("profile not found")

// Resolve loads the user's profile and computes the accessible franchise and
// gym id sets. A franchise_admin's gym set is expanded here from the gyms
// under their franchises so handlers only ever do set membership checks.
func Resolve(ctx context.Context, db *gorm.DB, userID string) (Context, error) {
	var u models.User
	err := db.WithContext(ctx).Preload("Franchises").Preload("Gyms").First(&u, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Context{}, ErrNotFound
		}
		return Context{}, err
	}
	if !u.IsActive {
		return Context{}, ErrNotFound
	}

	ac := Context{UserID: u.ID, Role: u.Role}
	switch u.Role {
	case models.RoleSuperAdmin:
		// unrestricted, id sets stay empty
	case models.RoleFranchiseAdmin:
		for _, f := range u.Franchises {
			ac.FranchiseIDs = append(ac.FranchiseIDs, f.ID)
		}
		if len(ac.FranchiseIDs) > 0 {
			var gyms []models.Gym
			if err := db.WithContext(ctx).Where("franchise_id IN ?", ac.FranchiseIDs).Find(&gyms).Error; err != nil {
				return Context{}, err
			}
			for _, g := range gyms {
				ac.GymIDs = append(ac.GymIDs, g.ID)
			}
		}
	case models.RoleGymManager:
		for _, g := range u.Gyms {
			ac.GymIDs = append(ac.GymIDs, g.ID)
		}
	default:
		return Context{}, ErrNotFound
	}
	return ac, nil
}
