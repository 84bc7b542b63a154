package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kioskhub/internal/access"
	"kioskhub/internal/auth"
	"kioskhub/internal/models"
)

// ListUsers is scope-filtered: franchise admins only see accounts attached to
// their own franchises or gyms.
func ListUsers(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac := access.FromContext(r.Context())
		var users []models.User
		q := db.Preload("Franchises").Preload("Gyms").Order("created_at desc")
		if ac.Role != models.RoleSuperAdmin {
			// empty scope slices expand to IN (NULL), which matches nothing
			q = q.Where(
				`id IN (SELECT user_id FROM user_franchises WHERE franchise_id IN ?)
				 OR id IN (SELECT user_id FROM user_gyms WHERE gym_id IN ?)`,
				ac.FranchiseIDs, ac.GymIDs,
			)
		}
		if err := q.Find(&users).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondData(w, http.StatusOK, users)
	}
}

// targetInScope reports whether the target user is attached to at least one
// franchise or gym inside the caller's scope.
func targetInScope(db *gorm.DB, ac access.Context, userID string) (bool, error) {
	if ac.Role == models.RoleSuperAdmin {
		return true, nil
	}
	var n int64
	err := db.Raw(
		`SELECT COUNT(*) FROM (
			SELECT user_id FROM user_franchises WHERE user_id = ? AND franchise_id IN ?
			UNION ALL
			SELECT user_id FROM user_gyms WHERE user_id = ? AND gym_id IN ?
		) scoped`,
		userID, ac.FranchiseIDs, userID, ac.GymIDs,
	).Scan(&n).Error
	return n > 0, err
}

func CreateUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email        string   `json:"email"`
			Password     string   `json:"password"`
			Role         string   `json:"role"`
			FranchiseIDs []string `json:"franchise_ids"`
			GymIDs       []string `json:"gym_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		role := models.Role(req.Role)
		if req.Email == "" || req.Password == "" {
			respondErr(w, http.StatusBadRequest, "email and password required")
			return
		}
		if !role.Valid() {
			respondErr(w, http.StatusBadRequest, "invalid role")
			return
		}
		ac := access.FromContext(r.Context())
		if role.AtLeast(ac.Role) && ac.Role != models.RoleSuperAdmin {
			respondErr(w, http.StatusForbidden, "cannot create a peer or higher role")
			return
		}
		for _, fid := range req.FranchiseIDs {
			if !ac.CanAccessFranchise(fid) {
				respondErr(w, http.StatusForbidden, "franchise out of scope")
				return
			}
		}
		for _, gid := range req.GymIDs {
			if !ac.CanAccessGym(gid) {
				respondErr(w, http.StatusForbidden, "gym out of scope")
				return
			}
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondErr(w, http.StatusInternalServerError, "hash error")
			return
		}
		u := models.User{
			Email:        req.Email,
			PasswordHash: hash,
			Role:         role,
			IsActive:     true,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		if err := db.Create(&u).Error; err != nil {
			respondErr(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := attachScopes(db, &u, req.FranchiseIDs, req.GymIDs); err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAudit(db, r, "user.create", map[string]any{"user_id": u.ID, "role": role})
		respondData(w, http.StatusOK, map[string]any{"id": u.ID})
	}
}

func attachScopes(db *gorm.DB, u *models.User, franchiseIDs, gymIDs []string) error {
	if len(franchiseIDs) > 0 {
		var fs []models.Franchise
		if err := db.Where("id IN ?", franchiseIDs).Find(&fs).Error; err != nil {
			return err
		}
		if err := db.Model(u).Association("Franchises").Replace(fs); err != nil {
			return err
		}
	}
	if len(gymIDs) > 0 {
		var gs []models.Gym
		if err := db.Where("id IN ?", gymIDs).Find(&gs).Error; err != nil {
			return err
		}
		if err := db.Model(u).Association("Gyms").Replace(gs); err != nil {
			return err
		}
	}
	return nil
}

func UpdateUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req struct {
			Email        *string  `json:"email"`
			IsActive     *bool    `json:"is_active"`
			Password     *string  `json:"password"`
			FranchiseIDs []string `json:"franchise_ids"`
			GymIDs       []string `json:"gym_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, http.StatusBadRequest, err.Error())
			return
		}
		var u models.User
		if err := db.First(&u, "id = ?", id).Error; err != nil {
			respondErr(w, http.StatusNotFound, "not found")
			return
		}
		ac := access.FromContext(r.Context())
		if ac.Role != models.RoleSuperAdmin && ac.UserID != u.ID {
			if u.Role.AtLeast(ac.Role) {
				respondErr(w, http.StatusForbidden, "cannot modify a peer or higher role")
				return
			}
			ok, err := targetInScope(db, ac, u.ID)
			if err != nil {
				respondErr(w, http.StatusInternalServerError, err.Error())
				return
			}
			if !ok {
				respondErr(w, http.StatusForbidden, "user out of scope")
				return
			}
		}
		for _, fid := range req.FranchiseIDs {
			if !ac.CanAccessFranchise(fid) {
				respondErr(w, http.StatusForbidden, "franchise out of scope")
				return
			}
		}
		for _, gid := range req.GymIDs {
			if !ac.CanAccessGym(gid) {
				respondErr(w, http.StatusForbidden, "gym out of scope")
				return
			}
		}
		if req.Email != nil && strings.TrimSpace(*req.Email) != "" {
			u.Email = strings.TrimSpace(strings.ToLower(*req.Email))
		}
		if req.IsActive != nil {
			u.IsActive = *req.IsActive
		}
		if req.Password != nil && *req.Password != "" {
			hash, err := auth.HashPassword(*req.Password)
			if err != nil {
				respondErr(w, http.StatusInternalServerError, "hash error")
				return
			}
			u.PasswordHash = hash
		}
		if err := attachScopes(db, &u, req.FranchiseIDs, req.GymIDs); err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		u.UpdatedAt = time.Now()
		if err := db.Save(&u).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAudit(db, r, "user.update", map[string]any{"user_id": u.ID})
		respondData(w, http.StatusOK, map[string]any{"updated": true})
	}
}

// DeactivateUser flips is_active off instead of deleting the row; sessions
// die on the next middleware pass since the resolver rejects inactive users.
func DeactivateUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var u models.User
		if err := db.First(&u, "id = ?", id).Error; err != nil {
			respondErr(w, http.StatusNotFound, "not found")
			return
		}
		ac := access.FromContext(r.Context())
		if ac.Role != models.RoleSuperAdmin {
			if u.Role.AtLeast(ac.Role) {
				respondErr(w, http.StatusForbidden, "cannot deactivate a peer or higher role")
				return
			}
			ok, err := targetInScope(db, ac, u.ID)
			if err != nil {
				respondErr(w, http.StatusInternalServerError, err.Error())
				return
			}
			if !ok {
				respondErr(w, http.StatusForbidden, "user out of scope")
				return
			}
		}
		if err := db.Model(&models.User{}).Where("id = ?", id).
			Updates(map[string]any{"is_active": false, "updated_at": time.Now()}).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAudit(db, r, "user.deactivate", map[string]any{"user_id": id})
		respondData(w, http.StatusOK, map[string]any{"deactivated": true})
	}
}
