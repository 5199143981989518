// Package routes provides shared route registration for the context API.
// This allows both the main server and the OpenAPI generator to use
// the same route definitions, ensuring the spec is always in sync.
package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"contextapi/internal/http/mw"
	"contextapi/internal/version"
)

// NewHumaConfig creates the shared Huma configuration for the API.
// This includes API metadata, security schemes, and tag definitions.
func NewHumaConfig(baseURL string) huma.Config {
	cfg := huma.DefaultConfig("Context API", version.Get().Short())
	cfg.Info.Description = "Retrieval-augmented intelligence service: ingest URLs, extract and enrich articles, and assemble budgeted context packs."

	// Disable $schema field in responses - it confuses SDK code generators
	cfg.CreateHooks = nil

	if baseURL != "" {
		cfg.Servers = []*huma.Server{
			{URL: baseURL, Description: "API Server"},
		}
	}

	cfg.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		mw.SecurityScheme: {
			Type:        "http",
			Scheme:      "bearer",
			Description: "Static token authentication. Include the configured token in the Authorization header as `Bearer <token>`.",
		},
	}

	cfg.Tags = []*huma.Tag{
		{Name: "Intel", Description: "Article ingestion and expansion endpoints", Extensions: map[string]any{"x-displayName": "Intel"}},
		{Name: "Context", Description: "Context pack retrieval", Extensions: map[string]any{"x-displayName": "Context"}},
		{Name: "Health", Description: "System health and status", Extensions: map[string]any{"x-displayName": "Health"}},
	}

	return cfg
}
