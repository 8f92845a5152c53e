package admin

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/api/middleware"
	"github.com/angelmondragon/partnerhub-backend/api/responses"
	"github.com/angelmondragon/partnerhub-backend/api/validators"
	internaladmin "github.com/angelmondragon/partnerhub-backend/internal/admin"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
)

// ArchiveOffer moves an offer to ARCHIVED. Existing referrals keep their
// frozen commission.
func ArchiveOffer(svc internaladmin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		offerID, err := parseID(r, "offerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offer, err := svc.ArchiveOffer(r.Context(), middleware.ActorFromContext(r.Context()), offerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, offer)
	}
}

// DeletePartner soft-deletes a partner.
func DeletePartner(svc internaladmin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		partnerID, err := parseID(r, "partnerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeletePartner(r.Context(), middleware.ActorFromContext(r.Context()), partnerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": partnerID, "deleted": true})
	}
}

func ChangeUserRole(svc internaladmin.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		userID, err := parseID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input internaladmin.RoleInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.ChangeUserRole(r.Context(), middleware.ActorFromContext(r.Context()), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func parseID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, param)))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+param)
	}
	return id, nil
}

func unavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable")
}
