package controllers

import (
	"net/http"

	"github.com/angelmondragon/partnerhub-backend/api/middleware"
	"github.com/angelmondragon/partnerhub-backend/api/responses"
	"github.com/angelmondragon/partnerhub-backend/api/validators"
	"github.com/angelmondragon/partnerhub-backend/internal/licenses"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
)

// maxExpiringDays bounds the query parameter; the service applies its own
// configured limit on top.
const maxExpiringDays = 3650

// LicensesExpiring lists buyers and partners whose license expires within
// ?days= (default 90).
func LicensesExpiring(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		days, err := validators.ParseQueryInt(r, "days", licenses.DefaultExpiringDays, 1, maxExpiringDays)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.GetExpiring(r.Context(), middleware.ActorFromContext(r.Context()), days)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items, "days": days})
	}
}

// AdminCheckExpirations runs the license sweep on demand and returns its summary.
func AdminCheckExpirations(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		summary, err := svc.CheckExpirations(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
