package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"kioskhub/internal/access"
	"kioskhub/internal/auth"
	"kioskhub/internal/mailer"
	"kioskhub/internal/models"
)

const invitationTTL = 7 * 24 * time.Hour

func newInvitationToken() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// CreateInvitation stores a pending invitation and emails the accept link.
// Email delivery failure is logged but does not fail the request; the admin
// can still copy the link from the response.
func CreateInvitation(db *gorm.DB, m *mailer.Mailer, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email       string  `json:"email"`
			Role        string  `json:"role"`
			FranchiseID *string `json:"franchise_id"`
			GymID       *string `json:"gym_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		role := models.Role(req.Role)
		if req.Email == "" {
			respondErr(w, http.StatusBadRequest, "email required")
			return
		}
		if !role.Valid() {
			respondErr(w, http.StatusBadRequest, "invalid role")
			return
		}
		ac := access.FromContext(r.Context())
		if role.AtLeast(ac.Role) && ac.Role != models.RoleSuperAdmin {
			respondErr(w, http.StatusForbidden, "cannot invite a peer or higher role")
			return
		}
		switch role {
		case models.RoleFranchiseAdmin:
			if req.FranchiseID == nil {
				respondErr(w, http.StatusBadRequest, "franchise_id required for franchise_admin")
				return
			}
			if !ac.CanAccessFranchise(*req.FranchiseID) {
				respondErr(w, http.StatusForbidden, "franchise out of scope")
				return
			}
		case models.RoleGymManager:
			if req.GymID == nil {
				respondErr(w, http.StatusBadRequest, "gym_id required for gym_manager")
				return
			}
			if !ac.CanAccessGym(*req.GymID) {
				respondErr(w, http.StatusForbidden, "gym out of scope")
				return
			}
		}
		inv := models.Invitation{
			Email:       req.Email,
			Role:        role,
			FranchiseID: req.FranchiseID,
			GymID:       req.GymID,
			Token:       newInvitationToken(),
			Status:      models.InvitationPending,
			ExpiresAt:   time.Now().Add(invitationTTL),
			CreatedAt:   time.Now(),
		}
		if err := db.Create(&inv).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := m.SendInvitation(r.Context(), &inv); err != nil {
			lg.Warnw("invitation email failed", "email", inv.Email, "error", err)
		}
		writeAudit(db, r, "invitation.create", map[string]any{"invitation_id": inv.ID, "role": role})
		respondData(w, http.StatusOK, map[string]any{
			"id":         inv.ID,
			"token":      inv.Token,
			"expires_at": inv.ExpiresAt,
		})
	}
}

func ListInvitations(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac := access.FromContext(r.Context())
		q := db.Order("created_at desc").Limit(200)
		if ac.Role != models.RoleSuperAdmin {
			q = q.Where("franchise_id IN ? OR gym_id IN ?", ac.FranchiseIDs, ac.GymIDs)
		}
		var invs []models.Invitation
		if err := q.Find(&invs).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondData(w, http.StatusOK, invs)
	}
}

// AcceptInvitation is public: token plus chosen password creates the account.
// The pending -> accepted transition happens inside one transaction, so a
// replayed accept can never produce a second user.
func AcceptInvitation(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token    string `json:"token"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Token == "" || len(req.Password) < 8 {
			respondErr(w, http.StatusBadRequest, "token and password (8+ chars) required")
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondErr(w, http.StatusInternalServerError, "hash error")
			return
		}

		var userID string
		err = db.Transaction(func(tx *gorm.DB) error {
			var inv models.Invitation
			if err := tx.First(&inv, "token = ?", req.Token).Error; err != nil {
				return err
			}
			if err := inv.Accept(time.Now()); err != nil {
				return err
			}
			u := models.User{
				Email:        inv.Email,
				PasswordHash: hash,
				Role:         inv.Role,
				IsActive:     true,
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			}
			if err := tx.Create(&u).Error; err != nil {
				return err
			}
			var fids, gids []string
			if inv.FranchiseID != nil {
				fids = append(fids, *inv.FranchiseID)
			}
			if inv.GymID != nil {
				gids = append(gids, *inv.GymID)
			}
			if err := attachScopes(tx, &u, fids, gids); err != nil {
				return err
			}
			if err := tx.Save(&inv).Error; err != nil {
				return err
			}
			userID = u.ID
			return nil
		})
		switch {
		case err == nil:
			respondData(w, http.StatusOK, map[string]any{"user_id": userID})
		case errors.Is(err, gorm.ErrRecordNotFound):
			respondErr(w, http.StatusNotFound, "invitation not found")
		case errors.Is(err, models.ErrInvitationAccepted):
			respondErr(w, http.StatusConflict, "invitation already accepted")
		case errors.Is(err, models.ErrInvitationExpired):
			respondErr(w, http.StatusBadRequest, "invitation expired")
		default:
			lg.Errorw("invitation accept failed", "error", err)
			respondErr(w, http.StatusInternalServerError, "could not accept invitation")
		}
	}
}
