package routes

import (
	"github.com/danielgtaylor/huma/v2"

	"contextapi/internal/http/mw"
)

// Register registers all API routes with the given Huma API instance.
// Pass real handler implementations for the main server, or stub
// implementations for OpenAPI generation.
func Register(api huma.API, h *Handlers) {
	// =========================================================================
	// Public Routes (no auth required)
	// =========================================================================

	mw.PublicGet(api, "/health", h.HealthCheck,
		mw.WithTags("Health"),
		mw.WithSummary("Health check"),
		mw.WithDescription("Pings the database and reports overall service health."),
		mw.WithOperationID("healthCheck"))

	mw.PublicGet(api, "/version", h.Version,
		mw.WithTags("Health"),
		mw.WithSummary("Build version"),
		mw.WithOperationID("getVersion"))

	// Kubernetes probes (hidden from docs - internal use only)
	mw.HiddenGet(api, "/healthz", h.Livez)
	mw.HiddenGet(api, "/readyz", h.Readyz)

	// =========================================================================
	// Protected Routes (require bearer auth)
	// =========================================================================

	// --- Intel ---
	mw.ProtectedPost(api, "/v2/intel/ingest_urls", h.Intel.IngestURLs,
		mw.WithTags("Intel"),
		mw.WithSummary("Ingest URLs"),
		mw.WithDescription("Canonicalizes each URL, seeds its article row, and enqueues an extraction job."),
		mw.WithOperationID("ingestUrls"))
	mw.ProtectedPost(api, "/v2/intel/ingest", h.Intel.IngestFixtures,
		mw.WithTags("Intel"),
		mw.WithSummary("Ingest fixture bundle"),
		mw.WithOperationID("ingestFixtures"))
	mw.ProtectedGet(api, "/v2/intel/articles/{id}", h.Intel.GetArticle,
		mw.WithTags("Intel"),
		mw.WithSummary("Get article"),
		mw.WithDescription("Returns the full article record including pipeline metadata and the latest job error."),
		mw.WithOperationID("getArticle"))
	mw.ProtectedGet(api, "/v2/intel/articles/{id}/outline", h.Intel.GetOutline,
		mw.WithTags("Intel"),
		mw.WithSummary("Get article outline"),
		mw.WithOperationID("getArticleOutline"))
	mw.ProtectedPost(api, "/v2/intel/articles/{id}/sections", h.Intel.GetSections,
		mw.WithTags("Intel"),
		mw.WithSummary("Expand article sections"),
		mw.WithOperationID("getArticleSections"))
	mw.ProtectedPost(api, "/v2/intel/articles/{id}/chunks:search", h.Intel.SearchChunks,
		mw.WithTags("Intel"),
		mw.WithSummary("Search article chunks"),
		mw.WithDescription("Full-text search within one article's sections, returning snippet hits."),
		mw.WithOperationID("searchArticleChunks"))

	// --- Context ---
	mw.ProtectedPost(api, "/v2/context/pack", h.Pack.ContextPack,
		mw.WithTags("Context"),
		mw.WithSummary("Assemble context pack"),
		mw.WithDescription("Ranks stored articles against the query and packs summaries, signals, and citations into the token budget."),
		mw.WithOperationID("contextPack"))
}
