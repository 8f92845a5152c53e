package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/partnerhub-backend/api/responses"
	"github.com/angelmondragon/partnerhub-backend/internal/access"
	pkgAuth "github.com/angelmondragon/partnerhub-backend/pkg/auth"
	"github.com/angelmondragon/partnerhub-backend/pkg/config"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/partnerhub-backend/pkg/errors"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
)

// Auth validates the identity provider's bearer token and seeds the request
// context with the caller's user, role and partner.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseIdentityToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.Role == enums.UserRolePartner && claims.PartnerID == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "partner token missing partner_id"))
				return
			}

			actor := access.Actor{UserID: claims.UserID, Role: claims.Role, PartnerID: claims.PartnerID}
			ctx := WithActor(r.Context(), actor)

			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
				ctx = logg.WithActorRole(ctx, string(claims.Role))
				if claims.PartnerID != nil {
					ctx = logg.WithPartnerID(ctx, claims.PartnerID.String())
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
