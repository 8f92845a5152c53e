package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/api/middleware"
	"github.com/angelmondragon/partnerhub-backend/api/responses"
	"github.com/angelmondragon/partnerhub-backend/api/validators"
	"github.com/angelmondragon/partnerhub-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
	"github.com/angelmondragon/partnerhub-backend/pkg/pagination"
)

// ListNotifications returns paginated notifications addressed to the caller's role.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unread, err := validators.ParseQueryBool(r, "unreadOnly")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := notifications.ListParams{
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			UnreadOnly: unread,
		}

		resp, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// MarkNotificationRead flags a notification as read.
func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		notificationID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "notificationId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification id"))
			return
		}

		if err := svc.MarkRead(r.Context(), middleware.ActorFromContext(r.Context()), notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}
