package logging

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestLogger stores a request-scoped logger in the context, tagged with the
// request ID and, when a project is configured, Cloud Trace correlation fields.
func RequestLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := chimiddleware.GetReqID(r.Context())
			project := currentProjectID()

			var fields []zap.Field
			if project != "" {
				if sc, ok := parseTraceHeaders(r.Header.Get(traceparentHeader), r.Header.Get(cloudTraceHeader)); ok {
					fields = traceFields(sc, project)
				}
			}
			if reqID != "" {
				fields = append(fields, zap.String("requestId", reqID))
			}

			logger := Logger()
			if len(fields) > 0 {
				logger = logger.With(fields...)
			}
			next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), logger)))
		})
	}
}

// AccessLogger writes one structured summary per request using the request-scoped logger.
func AccessLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remoteAddr", r.RemoteAddr),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					fields = append(fields, zap.String("route", pattern))
				}
			}
			if ua := r.UserAgent(); ua != "" {
				fields = append(fields, zap.String("userAgent", ua))
			}
			LoggerFromContext(r.Context()).Info("request completed", fields...)
		})
	}
}
