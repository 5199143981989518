// Package repository defines repository interfaces for data access.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"contextapi/internal/models"
)

// ErrNotFound is returned by service lookups when no row matches. Repository
// Get methods return (nil, nil) for missing rows; services wrap that into
// this sentinel so handlers can map it to a 404.
var ErrNotFound = errors.New("not found")

// ArticleRepository defines methods for article data access.
type ArticleRepository interface {
	// Seed inserts the article row for a freshly ingested URL, or refreshes
	// url_original/status on conflict. Existing extraction and enrichment
	// fields are preserved.
	Seed(ctx context.Context, article *models.Article) error
	// ResetContent clears extraction and enrichment fields ahead of a forced
	// refetch.
	ResetContent(ctx context.Context, articleID string) error
	// Upsert writes a complete article row, overwriting content fields on
	// conflict. Used by the fixture loader.
	Upsert(ctx context.Context, article *models.Article) error
	GetByID(ctx context.Context, articleID string) (*models.Article, error)
	// MarkExtracted persists the fetch and extraction results and moves the
	// article to status=extracted.
	MarkExtracted(ctx context.Context, update *ExtractedUpdate) error
	// MarkEnriched persists enrichment results with the given terminal status
	// (enriched or partial).
	MarkEnriched(ctx context.Context, update *EnrichedUpdate) error
	MarkFailed(ctx context.Context, articleID string) error
	// Search runs full-text search over title+summary+signals. recencyDays
	// <= 0 disables the recency filter. Empty queries return no hits.
	Search(ctx context.Context, query string, limit, recencyDays int) ([]models.SearchHit, error)
}

// ExtractedUpdate carries the fields written by MarkExtracted.
type ExtractedUpdate struct {
	ArticleID      string
	Title          string
	Author         string
	PublishedAt    *time.Time
	ExtractedText  string
	RawHTML        string
	HTTPStatus     int
	ContentType    string
	ETag           string
	LastModified   string
	FetchMeta      map[string]any
	ExtractionMeta map[string]any
	Outline        []models.OutlineEntry
}

// EnrichedUpdate carries the fields written by MarkEnriched.
type EnrichedUpdate struct {
	ArticleID      string
	Summary        string
	Signals        []models.Signal
	Topics         []string
	EnrichmentMeta map[string]any
	Outline        []models.OutlineEntry
	Status         models.ArticleStatus // enriched or partial
}

// SectionRepository defines methods for section data access.
type SectionRepository interface {
	// Replace atomically swaps an article's sections for the given set.
	Replace(ctx context.Context, articleID string, sections []models.Section) error
	// GetByIDs returns the requested sections ordered by rank.
	GetByIDs(ctx context.Context, articleID string, sectionIDs []string) ([]models.Section, error)
	// Search runs full-text search over one article's section contents,
	// returning headline snippets. Empty queries return no hits.
	Search(ctx context.Context, articleID, query string, limit int) ([]models.SectionHit, error)
}

// JobRepository defines methods for ingest job data access.
type JobRepository interface {
	Create(ctx context.Context, job *models.IngestJob) error
	GetByID(ctx context.Context, jobID string) (*models.IngestJob, error)
	// LatestByArticle returns the most recently created job for an article.
	LatestByArticle(ctx context.Context, articleID string) (*models.IngestJob, error)
	// ClaimNext atomically claims the oldest queued/retry/queued_no_enrich
	// job, moving it to running and incrementing attempts. Rows locked by a
	// concurrent claim are skipped. Returns nil when the queue is empty.
	ClaimNext(ctx context.Context) (*models.ClaimedJob, error)
	MarkDone(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID, lastError string) error
	// RequeueStaleRunning moves jobs stuck in running longer than maxAge back
	// to retry. Used at startup to recover from crashed workers.
	RequeueStaleRunning(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Repositories holds all repository instances.
type Repositories struct {
	Article ArticleRepository
	Section SectionRepository
	Job     JobRepository
}

// NewRepositories creates all repository instances.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Article: NewPostgresArticleRepository(pool),
		Section: NewPostgresSectionRepository(pool),
		Job:     NewPostgresJobRepository(pool),
	}
}
