// Package respond writes RFC 9457 problem-details responses for the
// failures that never reach a huma operation: unknown paths, unsupported
// methods and recovered panics.
package respond

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/negotiation"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/hello-devops/internal/platform/logging"
)

const (
	contentTypeProblemJSON = "application/problem+json"
	contentTypeProblemCBOR = "application/problem+cbor"

	detailNotFound       = "resource not found"
	detailInternalServer = "internal server error"
)

// The first entry wins on equal q-values, so JSON stays the default.
var problemFormats = []string{
	"application/json",
	contentTypeProblemJSON,
	"application/cbor",
	contentTypeProblemCBOR,
}

// Problem builds the problem-details body for status.
func Problem(status int, detail, instance string) *huma.ErrorModel {
	return &huma.ErrorModel{
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

// WriteProblem logs and writes a problem-details response, encoded as CBOR
// when the client prefers it and as JSON otherwise.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string, errs ...error) {
	ctx := r.Context()
	logWithStatus(ctx, status, detail, errors.Join(errs...), zap.String("path", r.URL.Path))

	problem := Problem(status, detail, r.URL.Path)
	contentType := contentTypeProblemJSON
	var (
		body []byte
		err  error
	)
	if acceptsCBOR(r.Header.Get("Accept")) {
		contentType = contentTypeProblemCBOR
		body, err = cbor.Marshal(problem)
	} else {
		body, err = json.Marshal(problem)
	}
	if err != nil {
		logging.LogError(ctx, "failed to encode problem", err)
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.LogWarn(ctx, "failed to write problem", zap.Error(err))
	}
}

// NotFoundHandler answers unknown paths with 404.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteProblem(w, r, http.StatusNotFound, detailNotFound)
	}
}

// MethodNotAllowedHandler answers known paths requested with an unsupported
// method with 405 and an Allow header listing the registered methods.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if allow := allowedMethods(r); len(allow) > 0 {
			w.Header().Set("Allow", strings.Join(allow, ", "))
		}
		WriteProblem(w, r, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
	}
}

// Recoverer converts panics into 500 problem responses. The stack trace goes
// to the log only. http.ErrAbortHandler is re-panicked so net/http can abort
// the connection, and nothing is written once a response has started.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v\n%s", rec, debug.Stack())
				if ww.Status() != 0 {
					logging.LogError(r.Context(), "panic after response started", err)
					return
				}
				WriteProblem(ww, r, http.StatusInternalServerError, detailInternalServer, err)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func acceptsCBOR(accept string) bool {
	if accept == "" {
		return false
	}
	return strings.HasSuffix(negotiation.SelectQValue(accept, problemFormats), "cbor")
}

// allowedMethods inspects chi's routing tree to discover the methods
// registered for the request path.
func allowedMethods(r *http.Request) []string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.Routes == nil {
		return nil
	}

	routePath := rctx.RoutePath
	if routePath == "" {
		routePath = r.URL.RawPath
		if routePath == "" {
			routePath = r.URL.Path
		}
		if routePath == "" {
			routePath = "/"
		}
	}

	methods := []string{
		http.MethodGet,
		http.MethodHead,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
	allowed := make([]string, 0, len(methods))
	getAllowed := false
	for _, method := range methods {
		switch {
		case rctx.Routes.Match(chi.NewRouteContext(), method, routePath):
			getAllowed = getAllowed || method == http.MethodGet
		case method == http.MethodHead && getAllowed:
			// chi's GetHead answers HEAD through the GET route.
		default:
			continue
		}
		allowed = append(allowed, method)
	}
	return allowed
}

func logWithStatus(ctx context.Context, status int, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Int("status", status))
	switch {
	case status >= http.StatusInternalServerError:
		logging.LogError(ctx, msg, err, fields...)
	case err != nil:
		logging.LogWarn(ctx, msg, append(fields, zap.Error(err))...)
	default:
		logging.LogWarn(ctx, msg, fields...)
	}
}
