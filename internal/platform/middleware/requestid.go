package middleware

import (
	"context"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// maxRequestIDLength bounds inbound request IDs before they reach the logs.
const maxRequestIDLength = 128

// validRequestID accepts 1..128 bytes of printable ASCII (0x20-0x7E) so that
// client-supplied IDs cannot inject control characters into log lines.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if c := id[i]; c < 0x20 || c > 0x7E {
			return false
		}
	}
	return true
}

// RequestID reuses a valid X-Request-Id header or generates a UUIDv4, stores it
// under chi's request ID key and echoes it on the response.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(chimiddleware.RequestIDHeader)
			if !validRequestID(reqID) {
				reqID = uuid.NewString()
			}
			w.Header().Set(chimiddleware.RequestIDHeader, reqID)
			ctx := context.WithValue(r.Context(), chimiddleware.RequestIDKey, reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
