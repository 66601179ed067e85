package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/janisto/hello-devops/internal/platform/config"
	applog "github.com/janisto/hello-devops/internal/platform/logging"
	"github.com/janisto/hello-devops/internal/platform/metrics"
	"github.com/janisto/hello-devops/internal/server"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(context.Background(), "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(context.Background(), "logger init error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		applog.LogError(context.Background(), "invalid configuration", err)
		return 1
	}
	if err := applog.Configure(applog.Options{Level: cfg.LogLevel, ProjectID: cfg.ProjectID}); err != nil {
		applog.LogError(context.Background(), "logger configuration error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []server.Option{server.WithVersion(Version)}
	if cfg.MetricsAddr != "" {
		opts = append(opts, server.WithMetrics(metrics.New("hello_devops")))
	}
	srv := server.New(cfg, opts...)

	if err := srv.Run(ctx); err != nil {
		applog.LogError(ctx, "server failed", err, zap.String("addr", cfg.Addr()))
		return 1
	}
	applog.LogInfo(context.Background(), "server exited")
	return 0
}
