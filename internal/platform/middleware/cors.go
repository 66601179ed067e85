package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// CORS allows read-only cross-origin access to the service. An empty
// allowedOrigins list means any origin.
func CORS(allowedOrigins ...string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", chimiddleware.RequestIDHeader},
		ExposedHeaders: []string{chimiddleware.RequestIDHeader},
		MaxAge:         300,
	})
}
