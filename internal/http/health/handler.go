// Package health serves the liveness and readiness probes.
package health

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	applog "github.com/janisto/hello-devops/internal/platform/logging"
)

// Register wires the probe routes into the provided API.
func Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Liveness check",
		Description: "Reports that the process is running.",
		Tags:        []string{"Probes"},
	}, healthHandler)

	huma.Register(api, huma.Operation{
		OperationID: "get-ready",
		Method:      http.MethodGet,
		Path:        "/ready",
		Summary:     "Readiness check",
		Description: "Reports that the process is prepared to serve traffic.",
		Tags:        []string{"Probes"},
	}, readyHandler)
}

func healthHandler(ctx context.Context, _ *struct{}) (*Output, error) {
	applog.LogDebug(ctx, "health check")
	return &Output{Body: Data{Status: StatusHealthy, Service: ServiceName}}, nil
}

func readyHandler(ctx context.Context, _ *struct{}) (*ReadyOutput, error) {
	applog.LogDebug(ctx, "readiness check")
	return &ReadyOutput{Body: ReadyData{Status: StatusReady}}, nil
}
