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

// FranchiseStats is denormalized on read, never stored.
type FranchiseStats struct {
	GymCount        int64 `json:"gym_count"`
	ActiveUserCount int64 `json:"active_user_count"`
}

type franchiseWithStats struct {
	models.Franchise
	Stats FranchiseStats `json:"stats"`
}

func loadFranchiseStats(db *gorm.DB, franchiseID string) (FranchiseStats, error) {
	var st FranchiseStats
	err := db.Raw(
		`SELECT
			(SELECT COUNT(*) FROM gyms WHERE franchise_id = ?) AS gym_count,
			(SELECT COUNT(*) FROM users u JOIN user_franchises uf ON uf.user_id = u.id
				WHERE uf.franchise_id = ? AND u.is_active) AS active_user_count`,
		franchiseID, franchiseID,
	).Scan(&st).Error
	return st, err
}

func ListFranchises(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac := access.FromContext(r.Context())
		q := db.Order("created_at desc")
		if ac.Role != models.RoleSuperAdmin {
			q = q.Where("id IN ?", ac.FranchiseIDs)
		}
		var fs []models.Franchise
		if err := q.Find(&fs).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		out := make([]franchiseWithStats, 0, len(fs))
		for _, f := range fs {
			st, err := loadFranchiseStats(db, f.ID)
			if err != nil {
				lg.Warnw("franchise stats load failed", "franchise_id", f.ID, "error", err)
			}
			out = append(out, franchiseWithStats{Franchise: f, Stats: st})
		}
		respondData(w, http.StatusOK, out)
	}
}

func GetFranchise(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !access.FromContext(r.Context()).CanAccessFranchise(id) {
			respondErr(w, http.StatusForbidden, "forbidden")
			return
		}
		var f models.Franchise
		if err := db.First(&f, "id = ?", id).Error; err != nil {
			respondErr(w, http.StatusNotFound, "not found")
			return
		}
		st, err := loadFranchiseStats(db, f.ID)
		if err != nil {
			lg.Warnw("franchise stats load failed", "franchise_id", f.ID, "error", err)
		}
		respondData(w, http.StatusOK, franchiseWithStats{Franchise: f, Stats: st})
	}
}

func CreateFranchise(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name         string `json:"name"`
			ContactEmail string `json:"contact_email"`
			ContactPhone string `json:"contact_phone"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			respondErr(w, http.StatusBadRequest, "name required")
			return
		}
		f := models.Franchise{
			Name:         req.Name,
			ContactEmail: strings.TrimSpace(req.ContactEmail),
			ContactPhone: strings.TrimSpace(req.ContactPhone),
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		if err := db.Create(&f).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAudit(db, r, "franchise.create", map[string]any{"franchise_id": f.ID, "name": f.Name})
		respondData(w, http.StatusOK, f)
	}
}

func UpdateFranchise(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req struct {
			Name         *string `json:"name"`
			ContactEmail *string `json:"contact_email"`
			ContactPhone *string `json:"contact_phone"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, http.StatusBadRequest, err.Error())
			return
		}
		var f models.Franchise
		if err := db.First(&f, "id = ?", id).Error; err != nil {
			respondErr(w, http.StatusNotFound, "not found")
			return
		}
		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			f.Name = strings.TrimSpace(*req.Name)
		}
		if req.ContactEmail != nil {
			f.ContactEmail = strings.TrimSpace(*req.ContactEmail)
		}
		if req.ContactPhone != nil {
			f.ContactPhone = strings.TrimSpace(*req.ContactPhone)
		}
		f.UpdatedAt = time.Now()
		if err := db.Save(&f).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAudit(db, r, "franchise.update", map[string]any{"franchise_id": f.ID})
		respondData(w, http.StatusOK, map[string]any{"updated": true})
	}
}

func DeleteFranchise(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var count int64
		if err := db.Model(&models.Gym{}).Where("franchise_id = ?", id).Count(&count).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		if count > 0 {
			respondErr(w, http.StatusBadRequest, "franchise still has gyms")
			return
		}
		if err := db.Delete(&models.Franchise{}, "id = ?", id).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAudit(db, r, "franchise.delete", map[string]any{"franchise_id": id})
		respondData(w, http.StatusOK, map[string]any{"deleted": true})
	}
}

// writeAudit records an admin mutation. Failures are swallowed; audit rows
// never block the action itself.
func writeAudit(db *gorm.DB, r *http.Request, action string, meta map[string]any) {
	uid := auth.Subject(r.Context())
	var uidPtr *string
	if uid != "" {
		uidPtr = &uid
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		raw = []byte("{}")
	}
	_ = db.Create(&models.AuditLog{
		UserID:    uidPtr,
		Action:    action,
		Metadata:  models.JSONB(raw),
		CreatedAt: time.Now(),
	}).Error
}
