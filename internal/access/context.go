package access

import (
	"context"

	"kioskhub/internal/models"
)

// Context is the resolved scope for an authenticated principal: the role plus
// the franchise and gym ids the caller may act upon. For super_admin the id
// sets are empty and every check passes; for franchise_admin GymIDs holds all
// gyms under the admin's franchises; for gym_manager only the manager's own
// gyms.
type Context struct {
	UserID       string
	Role         models.Role
	FranchiseIDs []string
	GymIDs       []string
}

func (c Context) CanAccessFranchise(id string) bool {
	if c.Role == models.RoleSuperAdmin {
		return true
	}
	if c.Role != models.RoleFranchiseAdmin {
		return false
	}
	return contains(c.FranchiseIDs, id)
}

func (c Context) CanAccessGym(id string) bool {
	if c.Role == models.RoleSuperAdmin {
		return true
	}
	return contains(c.GymIDs, id)
}

// HomePath is the role-appropriate landing page, used as the redirect target
// the frontend applies after login or on a forbidden route.
func (c Context) HomePath() string {
	switch c.Role {
	case models.RoleSuperAdmin:
		return "/admin"
	case models.RoleFranchiseAdmin:
		return "/franchise"
	default:
		return "/gym"
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type ctxKey string

const accessKey ctxKey = "accessContext"

func WithContext(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, accessKey, ac)
}

func FromContext(ctx context.Context) Context {
	if v, ok := ctx.Value(accessKey).(Context); ok {
		return v
	}
	return Context{}
}
