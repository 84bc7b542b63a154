package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"kioskhub/internal/access"
	"kioskhub/internal/auth"
	"kioskhub/internal/models"
)

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Login(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, http.StatusBadRequest, err.Error())
			return
		}
		var u models.User
		if err := db.First(&u, "email = ?", strings.ToLower(strings.TrimSpace(req.Email))).Error; err != nil {
			respondErr(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if !u.IsActive {
			respondErr(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
			respondErr(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		// resolve before minting the session so a failed resolve never
		// leaves a live session row behind
		ac, err := access.Resolve(r.Context(), db, u.ID)
		if err != nil {
			respondErr(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		tok, jti, expiresAt, err := auth.Sign(u.ID, u.Role)
		if err != nil {
			respondErr(w, http.StatusInternalServerError, "token error")
			return
		}
		sess := models.Session{JTI: jti, UserID: u.ID, ExpiresAt: expiresAt, CreatedAt: time.Now()}
		if err := db.Create(&sess).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, "session error")
			return
		}
		respondData(w, http.StatusOK, map[string]any{
			"token":     tok,
			"role":      u.Role,
			"home_path": ac.HomePath(),
		})
	}
}

func Logout(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jti := auth.FromContext(r.Context()).JWTID
		now := time.Now()
		if err := db.Model(&models.Session{}).Where("jti = ?", jti).Update("revoked_at", &now).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, "logout failed")
			return
		}
		respondData(w, http.StatusOK, map[string]any{"logged_out": true})
	}
}

// Me returns the caller's profile plus the resolved access scope, which is
// what the dashboard uses to decide which tabs to render.
func Me(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.Subject(r.Context())
		var u models.User
		if err := db.Preload("Franchises").Preload("Gyms").First(&u, "id = ?", sub).Error; err != nil {
			respondErr(w, http.StatusNotFound, "not found")
			return
		}
		ac := access.FromContext(r.Context())
		respondData(w, http.StatusOK, map[string]any{
			"id":            u.ID,
			"email":         u.Email,
			"role":          u.Role,
			"is_active":     u.IsActive,
			"franchise_ids": ac.FranchiseIDs,
			"gym_ids":       ac.GymIDs,
			"home_path":     ac.HomePath(),
		})
	}
}

func ChangePassword(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Current string `json:"current_password"`
			New     string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, http.StatusBadRequest, err.Error())
			return
		}
		if len(req.New) < 8 {
			respondErr(w, http.StatusBadRequest, "new password must be at least 8 characters")
			return
		}
		sub := auth.Subject(r.Context())
		var u models.User
		if err := db.First(&u, "id = ?", sub).Error; err != nil {
			respondErr(w, http.StatusNotFound, "not found")
			return
		}
		if err := auth.CheckPassword(u.PasswordHash, req.Current); err != nil {
			respondErr(w, http.StatusUnauthorized, "current password incorrect")
			return
		}
		hash, err := auth.HashPassword(req.New)
		if err != nil {
			respondErr(w, http.StatusInternalServerError, "hash error")
			return
		}
		if err := db.Model(&u).Updates(map[string]any{"password_hash": hash, "updated_at": time.Now()}).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondData(w, http.StatusOK, map[string]any{"updated": true})
	}
}
