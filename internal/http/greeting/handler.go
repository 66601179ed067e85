// Package greeting serves the plain-text landing page.
package greeting

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	applog "github.com/janisto/hello-devops/internal/platform/logging"
)

// Message is the fixed greeting body.
const Message = "Hello DevOps Engineer!"

const contentType = "text/plain; charset=utf-8"

var body = []byte(Message)

// Output carries the raw greeting bytes; huma writes []byte bodies unencoded.
type Output struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// Register wires the greeting route into the provided API.
func Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-greeting",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Greeting page",
		Tags:        []string{"Greeting"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Plain-text greeting",
				Content: map[string]*huma.MediaType{
					"text/plain": {Schema: &huma.Schema{Type: huma.TypeString, Examples: []any{Message}}},
				},
			},
		},
	}, getHandler)
}

func getHandler(ctx context.Context, _ *struct{}) (*Output, error) {
	applog.LogDebug(ctx, "greeting served")
	return &Output{ContentType: contentType, Body: body}, nil
}
