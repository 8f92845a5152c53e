package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/partnerhub-backend/api/middleware"
	"github.com/angelmondragon/partnerhub-backend/api/responses"
	"github.com/angelmondragon/partnerhub-backend/api/validators"
	"github.com/angelmondragon/partnerhub-backend/internal/access"
	"github.com/angelmondragon/partnerhub-backend/internal/audit"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
	"github.com/angelmondragon/partnerhub-backend/pkg/pagination"
)

// AuditLister is the read side of the audit service.
type AuditLister interface {
	List(ctx context.Context, actor access.Actor, params audit.ListParams) (*audit.ListResult, error)
}

// AdminAuditList pages through audit entries, newest first. Optional filters:
// entity_type, entity_id, action.
func AdminAuditList(svc AuditLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := audit.ListParams{
			EntityType: validators.QueryString(r, "entity_type", 64),
			EntityID:   validators.QueryString(r, "entity_id", 64),
			Action:     validators.QueryString(r, "action", 64),
			Limit:      limit,
			Cursor:     validators.QueryString(r, "cursor", 512),
		}

		resp, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
