// Package server assembles the HTTP handler tree and runs the listeners.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/janisto/hello-devops/internal/http/routes"
	"github.com/janisto/hello-devops/internal/platform/config"
	applog "github.com/janisto/hello-devops/internal/platform/logging"
	appmiddleware "github.com/janisto/hello-devops/internal/platform/middleware"
	"github.com/janisto/hello-devops/internal/platform/metrics"
	"github.com/janisto/hello-devops/internal/platform/openapi"
	"github.com/janisto/hello-devops/internal/platform/respond"
)

const (
	maxRequestBytes = 1 << 20 // 1 MB
	maxHeaderBytes  = 64 << 10
)

// Server owns the router and the optional metrics recorder.
type Server struct {
	cfg     *config.Config
	version string
	metrics *metrics.Recorder
	router  chi.Router
	api     huma.API
}

// Option customizes a Server.
type Option func(*Server)

// WithVersion sets the version reported in the OpenAPI document.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithMetrics records request metrics into m. The metrics listener is only
// started when the config also names a MetricsAddr.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Server) { s.metrics = m }
}

// New builds the router, middleware stack and API for cfg. Client IPs are
// taken from X-Forwarded-For or X-Real-IP, so the service must sit behind a
// trusted proxy. HEAD requests are served by the matching GET route.
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{cfg: cfg, version: "dev"}
	for _, opt := range opts {
		opt(s)
	}

	var skip []string
	if cfg.DocsEnabled {
		skip = append(skip, openapi.DocsPath)
	}

	router := chi.NewRouter()
	router.Use(
		appmiddleware.Security(skip...),
		appmiddleware.Vary(),
		appmiddleware.CORS(cfg.CORSAllowedOrigins...),
		appmiddleware.RequestID(),
		chimiddleware.RealIP,
		chimiddleware.RequestSize(maxRequestBytes),
		chimiddleware.GetHead,
		applog.RequestLogger(),
	)
	if s.metrics != nil {
		router.Use(s.metrics.Middleware())
	}
	router.Use(
		applog.AccessLogger(),
		respond.Recoverer(),
	)
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	s.api = humachi.New(router, openapi.Config(s.version, cfg.DocsEnabled))
	routes.Register(s.api)
	s.router = router
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// API returns the huma API, mainly for inspecting the OpenAPI document.
func (s *Server) API() huma.API {
	return s.api
}

// Run binds the configured listeners and serves until ctx is cancelled or a
// listener fails. Bind failures are returned before anything is served.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr(), err)
	}
	var metricsLn net.Listener
	if s.metrics != nil && s.cfg.MetricsAddr != "" {
		metricsLn, err = net.Listen("tcp", s.cfg.MetricsAddr)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("listen on %s: %w", s.cfg.MetricsAddr, err)
		}
	}
	return s.serve(ctx, ln, metricsLn)
}

func (s *Server) serve(ctx context.Context, ln, metricsLn net.Listener) error {
	servers := []*http.Server{s.httpServer(ln.Addr().String(), s.router)}
	listeners := []net.Listener{ln}
	if metricsLn != nil {
		servers = append(servers, s.httpServer(metricsLn.Addr().String(), s.metrics.Mux()))
		listeners = append(listeners, metricsLn)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, srv := range servers {
		srv := srv
		l := listeners[i]
		g.Go(func() error {
			applog.LogInfo(ctx, "server listening", zap.String("addr", srv.Addr))
			if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			applog.LogInfo(ctx, "shutdown signal received")
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}

func (s *Server) httpServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       s.cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: s.cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      s.cfg.HTTP.WriteTimeout,
		IdleTimeout:       s.cfg.HTTP.IdleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
		ErrorLog:          zap.NewStdLog(applog.Logger()),
	}
}
