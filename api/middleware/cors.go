package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS applies the configured origin policy. Partner dashboards call the API
// from the browser with bearer tokens and idempotency keys.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Content-Disposition", replayHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
