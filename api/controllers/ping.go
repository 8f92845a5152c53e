package controllers

import (
	"net/http"

	"github.com/angelmondragon/partnerhub-backend/api/middleware"
	"github.com/angelmondragon/partnerhub-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// Whoami echoes the identity the bearer token resolved to.
func Whoami() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := middleware.ActorFromContext(r.Context())
		payload := map[string]any{
			"userId": actor.UserID,
			"role":   actor.Role,
		}
		if actor.PartnerID != nil {
			payload["partnerId"] = *actor.PartnerID
		}
		responses.WriteSuccess(w, payload)
	}
}
