package routes

import (
	"context"

	"contextapi/internal/http/handlers"
)

// IntelHandlers defines the interface for article ingestion and expansion.
type IntelHandlers interface {
	IngestURLs(ctx context.Context, input *handlers.IngestURLsInput) (*handlers.IngestURLsOutput, error)
	IngestFixtures(ctx context.Context, input *handlers.IngestFixturesInput) (*handlers.IngestFixturesOutput, error)
	GetArticle(ctx context.Context, input *handlers.GetArticleInput) (*handlers.GetArticleOutput, error)
	GetOutline(ctx context.Context, input *handlers.GetOutlineInput) (*handlers.GetOutlineOutput, error)
	GetSections(ctx context.Context, input *handlers.GetSectionsInput) (*handlers.GetSectionsOutput, error)
	SearchChunks(ctx context.Context, input *handlers.SearchChunksInput) (*handlers.SearchChunksOutput, error)
}

// PackHandlers defines the interface for context pack retrieval.
type PackHandlers interface {
	ContextPack(ctx context.Context, input *handlers.ContextPackInput) (*handlers.ContextPackOutput, error)
}

// Handlers aggregates all handler implementations for route registration.
// For the main server, pass real handler implementations.
// For OpenAPI generation, pass stub implementations.
type Handlers struct {
	// Public endpoints
	HealthCheck func(ctx context.Context, input *struct{}) (*handlers.HealthCheckOutput, error)
	Version     func(ctx context.Context, input *struct{}) (*handlers.VersionOutput, error)

	// Kubernetes probes (hidden from docs)
	Livez  func(ctx context.Context, input *struct{}) (*handlers.LivezOutput, error)
	Readyz func(ctx context.Context, input *struct{}) (*handlers.ReadyzOutput, error)

	// Protected endpoint handlers
	Intel IntelHandlers
	Pack  PackHandlers
}
