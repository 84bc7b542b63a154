package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kioskhub/internal/auth"
	"kioskhub/internal/httpserver/handlers"
	"kioskhub/internal/mailer"
	"kioskhub/internal/models"
	"kioskhub/internal/ratelimit"
)

func NewRouter(db *gorm.DB, limiter *ratelimit.Limiter, m *mailer.Mailer, lg *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, middleware.Logger, metricsMiddleware)

	// public
	r.Post("/v1/auth/login", handlers.Login(db, lg))
	r.Post("/v1/invitations/accept", handlers.AcceptInvitation(db, lg))

	// kiosk devices authenticate with slug + provisioning code
	r.Post("/v1/sessions", handlers.StartVoiceSession(db, lg))
	r.Post("/v1/sessions/{id}/end", handlers.EndVoiceSession(db, lg))
	r.Post("/v1/sessions/{id}/messages", handlers.AppendMessage(db, lg))

	// public voice demo, rate limited per client IP
	r.Group(func(demo chi.Router) {
		demo.Use(handlers.RateLimit(limiter, lg))
		demo.Post("/v1/demo/sessions", handlers.StartDemoSession(db, lg))
	})
	r.Post("/v1/demo/email", handlers.CaptureDemoEmail(db, lg))

	r.Group(func(protected chi.Router) {
		protected.Use(auth.JWTAuth(db))
		protected.Get("/v1/me", handlers.Me(db, lg))
		protected.Post("/v1/auth/logout", handlers.Logout(db))
		protected.Post("/v1/auth/password", handlers.ChangePassword(db, lg))

		protected.Get("/v1/sessions", handlers.ListVoiceSessions(db, lg))
		protected.Get("/v1/sessions/{id}/messages", handlers.ListMessages(db, lg))

		// gym managers read their own gym; writes need franchise_admin
		protected.Get("/v1/gyms", handlers.ListGyms(db, lg))
		protected.Get("/v1/gyms/{id}", handlers.GetGym(db, lg))

		protected.Group(func(mgr chi.Router) {
			mgr.Use(auth.RequireRole(models.RoleFranchiseAdmin))
			mgr.Get("/v1/franchises", handlers.ListFranchises(db, lg))
			mgr.Get("/v1/franchises/{id}", handlers.GetFranchise(db, lg))
			mgr.Post("/v1/gyms", handlers.CreateGym(db, lg))
			mgr.Patch("/v1/gyms/{id}", handlers.UpdateGym(db, lg))
			mgr.Post("/v1/gyms/{id}/rotate-code", handlers.RotateProvisioningCode(db, lg))
			mgr.Delete("/v1/gyms/{id}", handlers.DeleteGym(db, lg))
			mgr.Get("/v1/users", handlers.ListUsers(db, lg))
			mgr.Post("/v1/users", handlers.CreateUser(db, lg))
			mgr.Patch("/v1/users/{id}", handlers.UpdateUser(db, lg))
			mgr.Delete("/v1/users/{id}", handlers.DeactivateUser(db, lg))
			mgr.Get("/v1/invitations", handlers.ListInvitations(db, lg))
			mgr.Post("/v1/invitations", handlers.CreateInvitation(db, m, lg))
		})

		protected.Group(func(admin chi.Router) {
			admin.Use(auth.RequireRole(models.RoleSuperAdmin))
			admin.Post("/v1/franchises", handlers.CreateFranchise(db, lg))
			admin.Patch("/v1/franchises/{id}", handlers.UpdateFranchise(db, lg))
			admin.Delete("/v1/franchises/{id}", handlers.DeleteFranchise(db, lg))
			admin.Get("/v1/demo/stats", handlers.DemoStats(db, lg))
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Method(http.MethodGet, "/metrics", metricsHandler())
	return r
}
