package respond

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/janisto/hello-devops/internal/platform/logging"
)

func decodeJSONProblem(t *testing.T, resp *httptest.ResponseRecorder) huma.ErrorModel {
	t.Helper()
	if ct := resp.Header().Get("Content-Type"); ct != contentTypeProblemJSON {
		t.Fatalf("expected %s, got %q", contentTypeProblemJSON, ct)
	}
	var problem huma.ErrorModel
	if err := json.Unmarshal(resp.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to unmarshal problem: %v", err)
	}
	return problem
}

func decodeCBORProblem(t *testing.T, resp *httptest.ResponseRecorder) huma.ErrorModel {
	t.Helper()
	if ct := resp.Header().Get("Content-Type"); ct != contentTypeProblemCBOR {
		t.Fatalf("expected %s, got %q", contentTypeProblemCBOR, ct)
	}
	var problem huma.ErrorModel
	if err := cbor.Unmarshal(resp.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to unmarshal cbor problem: %v", err)
	}
	return problem
}

func TestNotFoundHandlerReturnsProblemDetails(t *testing.T) {
	router := chi.NewRouter()
	router.NotFound(NotFoundHandler())

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/nonexistent", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	problem := decodeJSONProblem(t, resp)
	if problem.Status != http.StatusNotFound || problem.Title != "Not Found" {
		t.Fatalf("unexpected problem: %+v", problem)
	}
	if problem.Detail != detailNotFound {
		t.Fatalf("unexpected detail: %s", problem.Detail)
	}
	if problem.Instance != "/nonexistent" {
		t.Fatalf("unexpected instance: %s", problem.Instance)
	}
}

func TestNotFoundHandlerReturnsCBORWhenAccepted(t *testing.T) {
	router := chi.NewRouter()
	router.NotFound(NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("Accept", "application/cbor")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	problem := decodeCBORProblem(t, resp)
	if problem.Status != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", problem.Status)
	}
}

func TestMethodNotAllowedHandlerReturnsProblemDetails(t *testing.T) {
	router := chi.NewRouter()
	router.MethodNotAllowed(MethodNotAllowedHandler())
	router.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
	if allow := resp.Header().Get("Allow"); allow != "GET, HEAD" {
		t.Fatalf("expected Allow header GET, HEAD, got %q", allow)
	}
	problem := decodeJSONProblem(t, resp)
	if problem.Title != "Method Not Allowed" {
		t.Fatalf("unexpected title: %s", problem.Title)
	}
	if !strings.Contains(problem.Detail, http.MethodPost) {
		t.Fatalf("expected detail to mention POST, got %s", problem.Detail)
	}
}

func TestMethodNotAllowedKeepsExplicitRoutes(t *testing.T) {
	router := chi.NewRouter()
	router.MethodNotAllowed(MethodNotAllowedHandler())
	router.Post("/items", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	router.Delete("/items", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/items", nil))

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
	if allow := resp.Header().Get("Allow"); allow != "POST, DELETE" {
		t.Fatalf("expected Allow header POST, DELETE, got %q", allow)
	}
}

func TestRecovererReturnsProblemDetails(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(logging.WithLogger(r.Context(), zap.New(core))))
		})
	})
	router.Use(Recoverer())
	router.Get("/panic", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	problem := decodeJSONProblem(t, resp)
	if problem.Detail != detailInternalServer {
		t.Fatalf("unexpected detail: %s", problem.Detail)
	}
	if strings.Contains(resp.Body.String(), "boom") {
		t.Fatal("panic value must not leak into the response")
	}

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 error log entry, got %d", len(entries))
	}
	if errField, _ := entries[0].ContextMap()["error"].(string); !strings.Contains(errField, "boom") {
		t.Fatalf("expected panic value in logged error, got %q", errField)
	}
}

func TestRecovererReturnsCBORWhenAccepted(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Recoverer())
	router.Get("/panic", func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set("Accept", "application/cbor")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	problem := decodeCBORProblem(t, resp)
	if problem.Status != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", problem.Status)
	}
}

func TestRecovererRePanicsOnErrAbortHandler(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Recoverer())
	router.Get("/abort", func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	})

	defer func() {
		rec := recover()
		err, ok := rec.(error)
		if !ok || !errors.Is(err, http.ErrAbortHandler) {
			t.Fatalf("expected http.ErrAbortHandler to be re-panicked, got %v", rec)
		}
	}()

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/abort", nil))
	t.Fatal("expected panic to propagate, but handler returned normally")
}

func TestRecovererSkipsWriteWhenHeaderAlreadyWritten(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Recoverer())
	router.Get("/partial", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial response"))
		panic("panic after write")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/partial", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected original 200 status to be preserved, got %d", resp.Code)
	}
	if body := resp.Body.String(); body != "partial response" {
		t.Fatalf("expected original body to be preserved, got %q", body)
	}
}

func TestWriteProblemLogsClientErrorsAsWarnings(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req = req.WithContext(logging.WithLogger(context.Background(), zap.New(core)))

	WriteProblem(httptest.NewRecorder(), req, http.StatusNotFound, detailNotFound)

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level, got %s", entries[0].Level)
	}
	if entries[0].ContextMap()["status"] != int64(http.StatusNotFound) {
		t.Fatalf("expected status field, got %+v", entries[0].ContextMap())
	}
}

func TestAcceptsCBOR(t *testing.T) {
	tests := []struct {
		name   string
		accept string
		want   bool
	}{
		{"empty accept defaults to JSON", "", false},
		{"wildcard defaults to JSON", "*/*", false},
		{"explicit JSON", "application/json", false},
		{"explicit CBOR", "application/cbor", true},
		{"CBOR with quality parameter", "application/cbor;q=1.0", true},
		{"equal q-values default to JSON", "application/json, application/cbor", false},
		{"CBOR preferred with quality", "application/json;q=0.9, application/cbor;q=1.0", true},
		{"unsupported type defaults to JSON", "text/html", false},
		{"problem+cbor explicit", "application/problem+cbor", true},
		{"problem+json explicit", "application/problem+json", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := acceptsCBOR(tt.accept); got != tt.want {
				t.Fatalf("acceptsCBOR(%q) = %v, want %v", tt.accept, got, tt.want)
			}
		})
	}
}
