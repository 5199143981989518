package handlers

import (
	"context"

	"contextapi/internal/models"
	"contextapi/internal/service"
)

// IntelHandler handles article ingestion and expansion endpoints.
type IntelHandler struct {
	ingestSvc  *service.IngestService
	articleSvc *service.ArticleService
	fixtureSvc *service.FixtureService
}

// NewIntelHandler creates a new intel handler.
func NewIntelHandler(ingestSvc *service.IngestService, articleSvc *service.ArticleService, fixtureSvc *service.FixtureService) *IntelHandler {
	return &IntelHandler{
		ingestSvc:  ingestSvc,
		articleSvc: articleSvc,
		fixtureSvc: fixtureSvc,
	}
}

// IngestURLsInput represents a URL ingestion request.
type IngestURLsInput struct {
	Body struct {
		URLs         []string `json:"urls" minItems:"1" maxItems:"100" doc:"URLs to ingest"`
		Topics       []string `json:"topics,omitempty" doc:"Topics attached to each seeded article"`
		Tags         []string `json:"tags,omitempty" doc:"Tags attached to each seeded article"`
		ForceRefetch bool     `json:"force_refetch,omitempty" doc:"Clear stored content before refetching"`
		Enrich       *bool    `json:"enrich,omitempty" doc:"Run LLM enrichment; defaults to the server setting"`
	}
}

// IngestURLsOutput represents a URL ingestion response.
type IngestURLsOutput struct {
	Body struct {
		Results []service.IngestResult `json:"results"`
	}
}

// IngestURLs queues the submitted URLs for the worker pipeline.
func (h *IntelHandler) IngestURLs(ctx context.Context, input *IngestURLsInput) (*IngestURLsOutput, error) {
	results := h.ingestSvc.IngestURLs(ctx, &service.IngestRequest{
		URLs:         input.Body.URLs,
		Topics:       input.Body.Topics,
		Tags:         input.Body.Tags,
		ForceRefetch: input.Body.ForceRefetch,
		Enrich:       input.Body.Enrich,
	})

	out := &IngestURLsOutput{}
	out.Body.Results = results
	return out, nil
}

// IngestFixturesInput represents a fixture bundle ingestion request.
type IngestFixturesInput struct {
	Body struct {
		FixtureBundle string `json:"fixture_bundle" minLength:"1" doc:"Name of the bundled fixture set"`
	}
}

// IngestFixturesOutput represents a fixture bundle ingestion response.
type IngestFixturesOutput struct {
	Body struct {
		IngestedArticleIDs []string `json:"ingested_article_ids"`
	}
}

// IngestFixtures loads a local fixture bundle into the store.
func (h *IntelHandler) IngestFixtures(ctx context.Context, input *IngestFixturesInput) (*IngestFixturesOutput, error) {
	ids, err := h.fixtureSvc.Ingest(ctx, input.Body.FixtureBundle)
	if err != nil {
		return nil, mapServiceError(err)
	}

	out := &IngestFixturesOutput{}
	out.Body.IngestedArticleIDs = ids
	return out, nil
}

// GetArticleInput represents an article lookup request.
type GetArticleInput struct {
	ID string `path:"id" doc:"Article ID"`
}

// GetArticleOutput represents the full article status.
type GetArticleOutput struct {
	Body service.ArticleStatus
}

// GetArticle returns the full article record plus the latest job error.
func (h *IntelHandler) GetArticle(ctx context.Context, input *GetArticleInput) (*GetArticleOutput, error) {
	status, err := h.articleSvc.Get(ctx, input.ID)
	if err != nil {
		return nil, mapServiceError(err)
	}
	return &GetArticleOutput{Body: *status}, nil
}

// GetOutlineInput represents an outline request.
type GetOutlineInput struct {
	ID string `path:"id" doc:"Article ID"`
}

// GetOutlineOutput represents an outline response.
type GetOutlineOutput struct {
	Body struct {
		ArticleID string                `json:"article_id"`
		Outline   []models.OutlineEntry `json:"outline"`
	}
}

// GetOutline returns the article's section outline.
func (h *IntelHandler) GetOutline(ctx context.Context, input *GetOutlineInput) (*GetOutlineOutput, error) {
	outline, err := h.articleSvc.Outline(ctx, input.ID)
	if err != nil {
		return nil, mapServiceError(err)
	}

	out := &GetOutlineOutput{}
	out.Body.ArticleID = input.ID
	out.Body.Outline = outline
	return out, nil
}

// GetSectionsInput represents a section expansion request.
type GetSectionsInput struct {
	ID   string `path:"id" doc:"Article ID"`
	Body struct {
		SectionIDs []string `json:"section_ids" minItems:"1" maxItems:"8" doc:"Section IDs to expand"`
	}
}

// GetSectionsOutput represents a section expansion response.
type GetSectionsOutput struct {
	Body struct {
		ArticleID string           `json:"article_id"`
		Sections  []models.Section `json:"sections"`
	}
}

// GetSections returns full section content in rank order.
func (h *IntelHandler) GetSections(ctx context.Context, input *GetSectionsInput) (*GetSectionsOutput, error) {
	sections, err := h.articleSvc.Sections(ctx, input.ID, input.Body.SectionIDs)
	if err != nil {
		return nil, mapServiceError(err)
	}

	out := &GetSectionsOutput{}
	out.Body.ArticleID = input.ID
	out.Body.Sections = sections
	return out, nil
}

// SearchChunksInput represents a section search request.
type SearchChunksInput struct {
	ID   string `path:"id" doc:"Article ID"`
	Body struct {
		Query     string `json:"query" minLength:"1" doc:"Full-text query over this article's sections"`
		MaxChunks int    `json:"max_chunks,omitempty" minimum:"1" maximum:"10" doc:"Maximum snippets to return (default 3)"`
		MaxChars  int    `json:"max_chars,omitempty" minimum:"80" doc:"Maximum snippet length (default 600)"`
	}
}

// SearchChunksOutput represents a section search response.
type SearchChunksOutput struct {
	Body struct {
		ArticleID string          `json:"article_id"`
		Chunks    []service.Chunk `json:"chunks"`
	}
}

// SearchChunks runs full-text search within one article's sections.
func (h *IntelHandler) SearchChunks(ctx context.Context, input *SearchChunksInput) (*SearchChunksOutput, error) {
	chunks, err := h.articleSvc.ChunkSearch(ctx, input.ID, input.Body.Query, input.Body.MaxChunks, input.Body.MaxChars)
	if err != nil {
		return nil, mapServiceError(err)
	}

	out := &SearchChunksOutput{}
	out.Body.ArticleID = input.ID
	out.Body.Chunks = chunks
	return out, nil
}
