package referrals

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/api/middleware"
	"github.com/angelmondragon/partnerhub-backend/api/responses"
	"github.com/angelmondragon/partnerhub-backend/api/validators"
	internalreferrals "github.com/angelmondragon/partnerhub-backend/internal/referrals"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
	"github.com/angelmondragon/partnerhub-backend/pkg/pagination"
)

// Create registers a referral in SENT with its commission frozen from the offer.
func Create(svc internalreferrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}

		var input internalreferrals.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		referral, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, referral)
	}
}

func Get(svc internalreferrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		referralID, err := parseReferralID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		referral, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), referralID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, referral)
	}
}

// Acknowledge moves SENT to ACKED on behalf of the owning partner.
func Acknowledge(svc internalreferrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		referralID, err := parseReferralID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		referral, err := svc.Acknowledge(r.Context(), middleware.ActorFromContext(r.Context()), referralID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, referral)
	}
}

// Advance applies IN_NEGOTIATION, WON or LOST.
func Advance(svc internalreferrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		referralID, err := parseReferralID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input internalreferrals.AdvanceInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		referral, err := svc.Advance(r.Context(), middleware.ActorFromContext(r.Context()), referralID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, referral)
	}
}

func UpdateNotes(svc internalreferrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		referralID, err := parseReferralID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var input internalreferrals.NotesInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		referral, err := svc.UpdateNotes(r.Context(), middleware.ActorFromContext(r.Context()), referralID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, referral)
	}
}

// ListByManager pages the referrals of ?manager_id=. Managers default to
// their own book.
func ListByManager(svc internalreferrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}

		managerID, err := validators.ParseQueryUUID(r, "manager_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListByManager(r.Context(), middleware.ActorFromContext(r.Context()), internalreferrals.ListParams{
			ManagerID: managerID,
			Limit:     limit,
			Cursor:    strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func FollowUpAlerts(svc internalreferrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}

		alerts, err := svc.FollowUpAlerts(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": alerts, "count": len(alerts)})
	}
}

func parseReferralID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "referralId")))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid referral id")
	}
	return id, nil
}

func unavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "referral service unavailable")
}
