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
	"kioskhub/internal/models"
	"kioskhub/internal/ratelimit"
)

// StartVoiceSession opens a conversation for a provisioned kiosk. The kiosk
// authenticates itself with its slug + provisioning code rather than a user
// session.
func StartVoiceSession(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			KioskSlug        string  `json:"kiosk_slug"`
			ProvisioningCode string  `json:"provisioning_code"`
			MemberID         *string `json:"member_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.KioskSlug == "" || req.ProvisioningCode == "" {
			respondErr(w, http.StatusBadRequest, "kiosk_slug and provisioning_code required")
			return
		}
		var g models.Gym
		if err := db.First(&g, "kiosk_slug = ? AND provisioning_code = ?", req.KioskSlug, req.ProvisioningCode).Error; err != nil {
			respondErr(w, http.StatusUnauthorized, "unknown kiosk")
			return
		}
		if g.Status != "active" {
			respondErr(w, http.StatusUnauthorized, "gym inactive")
			return
		}
		s := models.VoiceSession{
			GymID:     &g.ID,
			MemberID:  req.MemberID,
			ClientIP:  ratelimit.ClientIP(r),
			Source:    "kiosk",
			StartedAt: time.Now(),
		}
		if err := db.Create(&s).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondData(w, http.StatusOK, s)
	}
}

func EndVoiceSession(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		now := time.Now()
		res := db.Model(&models.VoiceSession{}).Where("id = ? AND ended_at IS NULL", id).Update("ended_at", &now)
		if res.Error != nil {
			respondErr(w, http.StatusInternalServerError, res.Error.Error())
			return
		}
		if res.RowsAffected == 0 {
			respondErr(w, http.StatusNotFound, "session not found or already ended")
			return
		}
		respondData(w, http.StatusOK, map[string]any{"ended": true})
	}
}

// AppendMessage records one conversation turn. Kiosks post these as the
// voice pipeline produces transcripts.
func AppendMessage(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req struct {
			Speaker  string          `json:"speaker"`
			Text     string          `json:"text"`
			Metadata json.RawMessage `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Speaker = strings.TrimSpace(req.Speaker)
		if req.Speaker != "member" && req.Speaker != "assistant" {
			respondErr(w, http.StatusBadRequest, "speaker must be member or assistant")
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			respondErr(w, http.StatusBadRequest, "text required")
			return
		}
		var s models.VoiceSession
		if err := db.First(&s, "id = ?", id).Error; err != nil {
			respondErr(w, http.StatusNotFound, "session not found")
			return
		}
		meta := models.JSONB(req.Metadata)
		if len(meta) == 0 {
			meta = models.JSONB("{}")
		}
		msg := models.ConversationMessage{
			SessionID: s.ID,
			Speaker:   req.Speaker,
			Text:      req.Text,
			Metadata:  meta,
			CreatedAt: time.Now(),
		}
		if err := db.Create(&msg).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondData(w, http.StatusOK, map[string]any{"id": msg.ID})
	}
}

// ListVoiceSessions is the admin view over conversations, scope-checked per
// gym.
func ListVoiceSessions(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac := access.FromContext(r.Context())
		q := db.Order("started_at desc").Limit(200)
		if gid := r.URL.Query().Get("gym_id"); gid != "" {
			if !ac.CanAccessGym(gid) {
				respondErr(w, http.StatusForbidden, "forbidden")
				return
			}
			q = q.Where("gym_id = ?", gid)
		} else if ac.Role != models.RoleSuperAdmin {
			q = q.Where("gym_id IN ?", ac.GymIDs)
		}
		var sessions []models.VoiceSession
		if err := q.Find(&sessions).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondData(w, http.StatusOK, sessions)
	}
}

func ListMessages(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var s models.VoiceSession
		if err := db.First(&s, "id = ?", id).Error; err != nil {
			respondErr(w, http.StatusNotFound, "session not found")
			return
		}
		ac := access.FromContext(r.Context())
		if s.GymID != nil && !ac.CanAccessGym(*s.GymID) {
			respondErr(w, http.StatusForbidden, "forbidden")
			return
		}
		if s.GymID == nil && ac.Role != models.RoleSuperAdmin {
			// demo sessions are only visible to super admins
			respondErr(w, http.StatusForbidden, "forbidden")
			return
		}
		var msgs []models.ConversationMessage
		if err := db.Where("session_id = ?", s.ID).Order("created_at asc").Find(&msgs).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondData(w, http.StatusOK, msgs)
	}
}
