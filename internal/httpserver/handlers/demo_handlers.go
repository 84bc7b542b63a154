package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"kioskhub/internal/models"
	"kioskhub/internal/ratelimit"
)

// RateLimit guards the public voice-demo routes. Over the daily cap the
// response is a 429 carrying the limiter stats, never a redirect.
func RateLimit(l *ratelimit.Limiter, lg *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ratelimit.ClientIP(r)
			res, err := l.CheckAndIncrement(r.Context(), ip)
			if err != nil {
				lg.Errorw("rate limiter unavailable", "ip", ip, "error", err)
				respondErr(w, http.StatusInternalServerError, "demo temporarily unavailable")
				return
			}
			if !res.Allowed {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"error":   "daily demo limit reached",
					"stats":   res,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StartDemoSession opens an unauthenticated trial conversation. It has no
// gym linkage; the client IP is kept for the limiter's bookkeeping.
func StartDemoSession(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := models.VoiceSession{
			ClientIP:  ratelimit.ClientIP(r),
			Source:    "demo",
			StartedAt: time.Now(),
		}
		if err := db.Create(&s).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondData(w, http.StatusOK, map[string]any{"session_id": s.ID})
	}
}

// CaptureDemoEmail saves a lead from the demo flow. A failed save must not
// block demo access, so the handler logs and still reports success.
func CaptureDemoEmail(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || !strings.Contains(req.Email, "@") {
			respondErr(w, http.StatusBadRequest, "valid email required")
			return
		}
		lead := models.DemoLead{Email: req.Email, ClientIP: ratelimit.ClientIP(r), CreatedAt: time.Now()}
		if err := db.Create(&lead).Error; err != nil {
			lg.Errorw("demo lead save failed", "error", err)
		}
		respondData(w, http.StatusOK, map[string]any{"saved": true})
	}
}

// DemoStats exposes the per-IP usage rows to super admins.
func DemoStats(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var recs []models.RateLimitRecord
		if err := db.Order("last_session_at desc").Limit(500).Find(&recs).Error; err != nil {
			respondErr(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondData(w, http.StatusOK, recs)
	}
}
