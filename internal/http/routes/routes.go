package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/janisto/hello-devops/internal/http/greeting"
	"github.com/janisto/hello-devops/internal/http/health"
)

// Register wires all HTTP routes into the provided API router.
func Register(api huma.API) {
	greeting.Register(api)
	health.Register(api)
}
