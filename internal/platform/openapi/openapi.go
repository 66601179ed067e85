// Package openapi builds the huma configuration shared by the server and
// handler tests.
package openapi

import (
	"github.com/danielgtaylor/huma/v2"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // registers application/cbor
)

const (
	// Title is the OpenAPI document title.
	Title = "Hello DevOps"

	// DocsPath serves the interactive docs UI when docs are enabled.
	DocsPath = "/api-docs"
	// SpecPath serves /openapi.json and /openapi.yaml when docs are enabled.
	SpecPath = "/openapi"
	// SchemasPath serves component schemas when docs are enabled.
	SchemasPath = "/schemas"
)

// Config returns a huma configuration that keeps response bodies exactly as
// modelled: the $schema link hook is dropped. Documentation endpoints are
// only mounted when docs is true, so every other path stays a 404.
func Config(version string, docs bool) huma.Config {
	cfg := huma.DefaultConfig(Title, version)
	cfg.Info.Description = "Greeting page plus liveness and readiness probes."
	cfg.CreateHooks = nil
	cfg.Transformers = nil
	if docs {
		cfg.OpenAPIPath = SpecPath
		cfg.DocsPath = DocsPath
		cfg.SchemasPath = SchemasPath
	} else {
		cfg.OpenAPIPath = ""
		cfg.DocsPath = ""
		cfg.SchemasPath = ""
	}
	cfg.OpenAPI.OnAddOperation = append(cfg.OpenAPI.OnAddOperation, AdvertiseCBOR)
	return cfg
}

// AdvertiseCBOR mirrors every JSON request and response media type as
// application/cbor in the OpenAPI document, matching what the negotiated
// formats actually serve.
func AdvertiseCBOR(_ *huma.OpenAPI, op *huma.Operation) {
	if op.RequestBody != nil && op.RequestBody.Content != nil {
		if mt, ok := op.RequestBody.Content["application/json"]; ok {
			op.RequestBody.Content["application/cbor"] = mt
		}
	}
	for _, resp := range op.Responses {
		if resp == nil || resp.Content == nil {
			continue
		}
		if mt, ok := resp.Content["application/json"]; ok {
			resp.Content["application/cbor"] = mt
		}
	}
}
