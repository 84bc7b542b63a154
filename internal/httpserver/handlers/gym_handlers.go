package handlers

import (
	"crypto/rand"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kioskhub/internal/access"
	"kioskhub/internal/models"
)

const (
	provisioningAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	slugAlphabet         = "abcdefghijklmnopqrstuvwxyz0123456789"
)

func randomString(alphabet string, n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b)
}

// newProvisioningCode is the 6-character code an installer types into a kiosk
// to bind it to its gym.
func newProvisioningCode() string {
	return randomString(provisioningAlphabet, 6)
}

// newKioskSlug generates the public identifier a kiosk reports under,
// shaped gym-xxxxxxxx.
func newKioskSlug() string {
	return "gym-" + randomString(slugAlphabet, 8)
}

func ListGyms(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac := access.FromContext(r.Context())
		q := db.Order("created_at desc")
		switch ac.Role {
		case models.RoleSuperAdmin:
			if fid := r.URL.Query().Get("franchise_id"); fid != "" {
				q = q.Where("franchise_id = ?", fid)
			}
		default:
			q = q.Where("id IN ?", ac.GymIDs)
		}
		var gyms []models.Gym
		if err := q.Find(&gyms).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondData(w, http.StatusOK, gyms)
	}
}

func GetGym(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !access.FromContext(r.Context()).CanAccessGym(id) {
			respondErr(w, http.StatusForbidden, "forbidden")
			return
		}
		var g models.Gym
		if err := db.First(&g, "id = ?", id).Error; err != nil {
			respondErr(w, http.StatusNotFound, "not found")
			return
		}
		respondData(w, http.StatusOK, g)
	}
}

func CreateGym(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FranchiseID string `json:"franchise_id"`
			Name        string `json:"name"`
			Location    string `json:"location"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.FranchiseID == "" || req.Name == "" {
			respondErr(w, http.StatusBadRequest, "franchise_id and name required")
			return
		}
		if !access.FromContext(r.Context()).CanAccessFranchise(req.FranchiseID) {
			respondErr(w, http.StatusForbidden, "forbidden")
			return
		}
		var fr models.Franchise
		if err := db.First(&fr, "id = ?", req.FranchiseID).Error; err != nil {
			respondErr(w, http.StatusBadRequest, "franchise not found")
			return
		}
		g := models.Gym{
			FranchiseID:      req.FranchiseID,
			Name:             req.Name,
			Location:         strings.TrimSpace(req.Location),
			KioskSlug:        newKioskSlug(),
			ProvisioningCode: newProvisioningCode(),
			Status:           "active",
			CreatedAt:        time.Now(),
			UpdatedAt:        time.Now(),
		}
		if err := db.Create(&g).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAudit(db, r, "gym.create", map[string]any{"gym_id": g.ID, "franchise_id": g.FranchiseID})
		respondData(w, http.StatusOK, g)
	}
}

func UpdateGym(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !access.FromContext(r.Context()).CanAccessGym(id) {
			respondErr(w, http.StatusForbidden, "forbidden")
			return
		}
		var req struct {
			Name     *string `json:"name"`
			Location *string `json:"location"`
			Status   *string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, http.StatusBadRequest, err.Error())
			return
		}
		var g models.Gym
		if err := db.First(&g, "id = ?", id).Error; err != nil {
			respondErr(w, http.StatusNotFound, "not found")
			return
		}
		if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
			g.Name = strings.TrimSpace(*req.Name)
		}
		if req.Location != nil {
			g.Location = strings.TrimSpace(*req.Location)
		}
		if req.Status != nil {
			switch *req.Status {
			case "active", "inactive":
				g.Status = *req.Status
			default:
				respondErr(w, http.StatusBadRequest, "status must be active or inactive")
				return
			}
		}
		g.UpdatedAt = time.Now()
		if err := db.Save(&g).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAudit(db, r, "gym.update", map[string]any{"gym_id": g.ID})
		respondData(w, http.StatusOK, map[string]any{"updated": true})
	}
}

// RotateProvisioningCode invalidates the current kiosk code, e.g. after a
// device swap.
func RotateProvisioningCode(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !access.FromContext(r.Context()).CanAccessGym(id) {
			respondErr(w, http.StatusForbidden, "forbidden")
			return
		}
		var g models.Gym
		if err := db.First(&g, "id = ?", id).Error; err != nil {
			respondErr(w, http.StatusNotFound, "not found")
			return
		}
		g.ProvisioningCode = newProvisioningCode()
		g.UpdatedAt = time.Now()
		if err := db.Save(&g).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAudit(db, r, "gym.rotate_code", map[string]any{"gym_id": g.ID})
		respondData(w, http.StatusOK, map[string]any{"provisioning_code": g.ProvisioningCode})
	}
}

func DeleteGym(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !access.FromContext(r.Context()).CanAccessGym(id) {
			respondErr(w, http.StatusForbidden, "forbidden")
			return
		}
		if err := db.Delete(&models.Gym{}, "id = ?", id).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeAudit(db, r, "gym.delete", map[string]any{"gym_id": id})
		respondData(w, http.StatusOK, map[string]any{"deleted": true})
	}
}
