package routes

import (
	"context"

	"contextapi/internal/http/handlers"
)

// StubHandlers returns a Handlers instance with stub implementations.
// All handlers return nil responses - these are only used for OpenAPI generation
// where Huma extracts type information from function signatures.
func StubHandlers() *Handlers {
	return &Handlers{
		// Public endpoints
		HealthCheck: stubHealthCheck,
		Version:     stubVersion,

		// Kubernetes probes
		Livez:  stubLivez,
		Readyz: stubReadyz,

		// Protected endpoint handlers
		Intel: &stubIntelHandlers{},
		Pack:  &stubPackHandlers{},
	}
}

// --- Public endpoint stubs ---

func stubHealthCheck(_ context.Context, _ *struct{}) (*handlers.HealthCheckOutput, error) {
	return nil, nil
}

func stubVersion(_ context.Context, _ *struct{}) (*handlers.VersionOutput, error) {
	return nil, nil
}

func stubLivez(_ context.Context, _ *struct{}) (*handlers.LivezOutput, error) {
	return nil, nil
}

func stubReadyz(_ context.Context, _ *struct{}) (*handlers.ReadyzOutput, error) {
	return nil, nil
}

// --- Intel handlers stub ---

type stubIntelHandlers struct{}

func (s *stubIntelHandlers) IngestURLs(_ context.Context, _ *handlers.IngestURLsInput) (*handlers.IngestURLsOutput, error) {
	return nil, nil
}

func (s *stubIntelHandlers) IngestFixtures(_ context.Context, _ *handlers.IngestFixturesInput) (*handlers.IngestFixturesOutput, error) {
	return nil, nil
}

func (s *stubIntelHandlers) GetArticle(_ context.Context, _ *handlers.GetArticleInput) (*handlers.GetArticleOutput, error) {
	return nil, nil
}

func (s *stubIntelHandlers) GetOutline(_ context.Context, _ *handlers.GetOutlineInput) (*handlers.GetOutlineOutput, error) {
	return nil, nil
}

func (s *stubIntelHandlers) GetSections(_ context.Context, _ *handlers.GetSectionsInput) (*handlers.GetSectionsOutput, error) {
	return nil, nil
}

func (s *stubIntelHandlers) SearchChunks(_ context.Context, _ *handlers.SearchChunksInput) (*handlers.SearchChunksOutput, error) {
	return nil, nil
}

// --- Pack handlers stub ---

type stubPackHandlers struct{}

func (s *stubPackHandlers) ContextPack(_ context.Context, _ *handlers.ContextPackInput) (*handlers.ContextPackOutput, error) {
	return nil, nil
}
