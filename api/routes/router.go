package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/partnerhub-backend/api/controllers"
	admincontrollers "github.com/angelmondragon/partnerhub-backend/api/controllers/admin"
	referralcontrollers "github.com/angelmondragon/partnerhub-backend/api/controllers/referrals"
	reportcontrollers "github.com/angelmondragon/partnerhub-backend/api/controllers/reports"
	"github.com/angelmondragon/partnerhub-backend/api/middleware"
	"github.com/angelmondragon/partnerhub-backend/internal/access"
	"github.com/angelmondragon/partnerhub-backend/internal/admin"
	"github.com/angelmondragon/partnerhub-backend/internal/licenses"
	"github.com/angelmondragon/partnerhub-backend/internal/notifications"
	"github.com/angelmondragon/partnerhub-backend/internal/referrals"
	"github.com/angelmondragon/partnerhub-backend/internal/reports"
	"github.com/angelmondragon/partnerhub-backend/pkg/config"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
	"github.com/angelmondragon/partnerhub-backend/pkg/metrics"
	"github.com/angelmondragon/partnerhub-backend/pkg/redis"
)

// Dependencies are the process-wide clients shared by every route. Nil
// Redis pingers and stores disable readiness checks and idempotent replay.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency redis.IdempotencyStore
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

// Services are the domain services exposed over HTTP.
type Services struct {
	Referrals     referrals.Service
	Licenses      licenses.Service
	Reports       reports.Service
	Audit         controllers.AuditLister
	Admin         admin.Service
	Notifications notifications.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Get("/me", controllers.Whoami())

		r.Route("/referrals", func(r chi.Router) {
			r.With(middleware.RequireRoles(logg, access.Originators...)).Post("/", referralcontrollers.Create(svc.Referrals, logg))
			r.With(middleware.RequireRoles(logg, access.Staff...)).Get("/", referralcontrollers.ListByManager(svc.Referrals, logg))
			r.With(middleware.RequireRoles(logg, access.StaffOrPartners...)).Get("/follow-up", referralcontrollers.FollowUpAlerts(svc.Referrals, logg))

			r.Route("/{referralId}", func(r chi.Router) {
				r.With(middleware.RequireRoles(logg, access.StaffOrPartners...)).Get("/", referralcontrollers.Get(svc.Referrals, logg))
				r.With(middleware.RequireRoles(logg, access.Acknowledgers...)).Post("/acknowledge", referralcontrollers.Acknowledge(svc.Referrals, logg))
				r.With(middleware.RequireRoles(logg, access.StaffOrPartners...)).Post("/advance", referralcontrollers.Advance(svc.Referrals, logg))
				r.With(middleware.RequireRoles(logg, access.Staff...)).Patch("/notes", referralcontrollers.UpdateNotes(svc.Referrals, logg))
			})
		})

		r.With(middleware.RequireRoles(logg, access.Staff...)).Get("/licenses/expiring", controllers.LicensesExpiring(svc.Licenses, logg))

		r.Route("/commissions", func(r chi.Router) {
			r.With(middleware.RequireRoles(logg, access.Staff...)).Get("/summary", reportcontrollers.CommissionSummary(svc.Reports, logg))
			r.With(middleware.RequireRoles(logg, access.StaffOrPartners...)).Get("/partners", reportcontrollers.CommissionsByPartner(svc.Reports, logg))
			r.With(middleware.RequireRoles(logg, access.Staff...)).Get("/export", reportcontrollers.ExportCSV(svc.Reports, logg))
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, access.Staff...))
			r.Get("/aging", reportcontrollers.Aging(svc.Reports, logg))
			r.Get("/ranking", reportcontrollers.Ranking(svc.Reports, logg))
			r.Get("/monthly", reportcontrollers.Monthly(svc.Reports, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svc.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svc.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRoles(logg, enums.UserRoleAdmin))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Get("/audit", controllers.AdminAuditList(svc.Audit, logg))
		r.Post("/licenses/check-expirations", controllers.AdminCheckExpirations(svc.Licenses, logg))
		r.Delete("/offers/{offerId}", admincontrollers.ArchiveOffer(svc.Admin, logg))
		r.Delete("/partners/{partnerId}", admincontrollers.DeletePartner(svc.Admin, logg))
		r.Post("/users/{userId}/role", admincontrollers.ChangeUserRole(svc.Admin, logg))
	})

	return r
}
