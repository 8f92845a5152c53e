package reports

import (
	"net/http"

	"github.com/angelmondragon/partnerhub-backend/api/middleware"
	"github.com/angelmondragon/partnerhub-backend/api/responses"
	"github.com/angelmondragon/partnerhub-backend/api/validators"
	internalreports "github.com/angelmondragon/partnerhub-backend/internal/reports"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
)

// Aging buckets open referrals by days since creation.
func Aging(svc internalreports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		report, err := svc.AgingReport(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// Ranking orders approved partners by conversion rate.
func Ranking(svc internalreports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", internalreports.DefaultRankingLimit, 1, internalreports.MaxRankingLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.ConversionRanking(r.Context(), middleware.ActorFromContext(r.Context()), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": entries, "limit": limit})
	}
}

func Monthly(svc internalreports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		months, err := validators.ParseQueryInt(r, "months", internalreports.DefaultMonths, 1, internalreports.MaxMonths)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		points, err := svc.MonthlyEvolution(r.Context(), middleware.ActorFromContext(r.Context()), months)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": points, "months": months})
	}
}

// CommissionSummary totals referrals and commission over an optional
// [from, to) window.
func CommissionSummary(svc internalreports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.CommissionSummary(r.Context(), middleware.ActorFromContext(r.Context()), internalreports.SummaryParams{From: from, To: to})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// CommissionsByPartner breaks commission down per partner. Partners only ever
// see their own row.
func CommissionsByPartner(svc internalreports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		partnerID, err := validators.ParseQueryUUID(r, "partner_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.CommissionsByPartner(r.Context(), middleware.ActorFromContext(r.Context()), partnerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": rows})
	}
}

// ExportCSV downloads one report as CSV, selected by ?type=.
func ExportCSV(svc internalreports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		reportType := validators.QueryString(r, "type", 32)
		if reportType == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "type is required").
				WithDetails(map[string]any{"field": "type"}))
			return
		}
		export, err := svc.ExportCSV(r.Context(), middleware.ActorFromContext(r.Context()), reportType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteAttachment(w, export.Filename, export.ContentType, export.Body)
	}
}

func unavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable")
}
