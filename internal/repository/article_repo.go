package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"contextapi/internal/models"
)

// articleFTS is the document expression for article full-text search.
// It must stay identical to the expression in the GIN index migration.
const articleFTS = `to_tsvector('english', coalesce(title, '') || ' ' || coalesce(summary, '') || ' ' || coalesce(signals::text, ''))`

const articleColumns = `article_id, url, url_original, title, author, publisher,
	published_at, ingested_at, updated_at, status, topics, tags, summary, signals,
	outline, outbound_links, raw_html, extracted_text, http_status, content_type,
	etag, last_modified, fetch_meta, extraction_meta, enrichment_meta`

// PostgresArticleRepository implements ArticleRepository for PostgreSQL.
type PostgresArticleRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresArticleRepository creates a new PostgreSQL article repository.
func NewPostgresArticleRepository(pool *pgxpool.Pool) *PostgresArticleRepository {
	return &PostgresArticleRepository{pool: pool}
}

func (r *PostgresArticleRepository) Seed(ctx context.Context, article *models.Article) error {
	query := `
		INSERT INTO intel_articles (article_id, url, url_original, status, topics, tags)
		VALUES ($1, $2, $3, 'queued', $4, $5)
		ON CONFLICT (article_id) DO UPDATE SET
			url = excluded.url,
			url_original = excluded.url_original,
			status = 'queued',
			topics = CASE WHEN jsonb_array_length(excluded.topics) > 0 THEN excluded.topics ELSE intel_articles.topics END,
			tags = CASE WHEN jsonb_array_length(excluded.tags) > 0 THEN excluded.tags ELSE intel_articles.tags END,
			updated_at = now()
	`
	_, err := r.pool.Exec(ctx, query,
		article.ArticleID,
		article.URL,
		article.URLOriginal,
		jsonSlice(article.Topics),
		jsonSlice(article.Tags),
	)
	if err != nil {
		return fmt.Errorf("failed to seed article: %w", err)
	}
	return nil
}

func (r *PostgresArticleRepository) ResetContent(ctx context.Context, articleID string) error {
	query := `
		UPDATE intel_articles SET
			summary = '',
			signals = '[]'::jsonb,
			outline = '[]'::jsonb,
			outbound_links = '[]'::jsonb,
			raw_html = '',
			extracted_text = '',
			http_status = 0,
			content_type = '',
			etag = '',
			last_modified = '',
			fetch_meta = '{}'::jsonb,
			extraction_meta = '{}'::jsonb,
			enrichment_meta = '{}'::jsonb,
			updated_at = now()
		WHERE article_id = $1
	`
	if _, err := r.pool.Exec(ctx, query, articleID); err != nil {
		return fmt.Errorf("failed to reset article content: %w", err)
	}
	return nil
}

func (r *PostgresArticleRepository) Upsert(ctx context.Context, article *models.Article) error {
	query := `
		INSERT INTO intel_articles (article_id, url, url_original, title, author, publisher,
			published_at, status, topics, tags, summary, signals, outline, outbound_links)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (article_id) DO UPDATE SET
			url = excluded.url,
			url_original = excluded.url_original,
			title = excluded.title,
			author = excluded.author,
			publisher = excluded.publisher,
			published_at = excluded.published_at,
			status = excluded.status,
			topics = excluded.topics,
			tags = excluded.tags,
			summary = excluded.summary,
			signals = excluded.signals,
			outline = excluded.outline,
			outbound_links = excluded.outbound_links,
			updated_at = now()
	`
	_, err := r.pool.Exec(ctx, query,
		article.ArticleID,
		article.URL,
		article.URLOriginal,
		article.Title,
		article.Author,
		article.Publisher,
		article.PublishedAt,
		article.Status,
		jsonSlice(article.Topics),
		jsonSlice(article.Tags),
		article.Summary,
		jsonSlice(article.Signals),
		jsonSlice(article.Outline),
		jsonSlice(article.OutboundLinks),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert article: %w", err)
	}
	return nil
}

func (r *PostgresArticleRepository) GetByID(ctx context.Context, articleID string) (*models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM intel_articles WHERE article_id = $1`
	return scanArticle(r.pool.QueryRow(ctx, query, articleID))
}

func (r *PostgresArticleRepository) MarkExtracted(ctx context.Context, update *ExtractedUpdate) error {
	query := `
		UPDATE intel_articles SET
			title = $2,
			author = $3,
			published_at = $4,
			extracted_text = $5,
			raw_html = $6,
			http_status = $7,
			content_type = $8,
			etag = $9,
			last_modified = $10,
			fetch_meta = $11,
			extraction_meta = $12,
			outline = $13,
			status = 'extracted',
			updated_at = now()
		WHERE article_id = $1
	`
	_, err := r.pool.Exec(ctx, query,
		update.ArticleID,
		update.Title,
		update.Author,
		update.PublishedAt,
		update.ExtractedText,
		update.RawHTML,
		update.HTTPStatus,
		update.ContentType,
		update.ETag,
		update.LastModified,
		jsonMap(update.FetchMeta),
		jsonMap(update.ExtractionMeta),
		jsonSlice(update.Outline),
	)
	if err != nil {
		return fmt.Errorf("failed to mark article extracted: %w", err)
	}
	return nil
}

func (r *PostgresArticleRepository) MarkEnriched(ctx context.Context, update *EnrichedUpdate) error {
	query := `
		UPDATE intel_articles SET
			summary = $2,
			signals = $3,
			topics = $4,
			enrichment_meta = $5,
			outline = $6,
			status = $7,
			updated_at = now()
		WHERE article_id = $1
	`
	_, err := r.pool.Exec(ctx, query,
		update.ArticleID,
		update.Summary,
		jsonSlice(update.Signals),
		jsonSlice(update.Topics),
		jsonMap(update.EnrichmentMeta),
		jsonSlice(update.Outline),
		update.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to mark article enriched: %w", err)
	}
	return nil
}

func (r *PostgresArticleRepository) MarkFailed(ctx context.Context, articleID string) error {
	query := `UPDATE intel_articles SET status = 'failed', updated_at = now() WHERE article_id = $1`
	if _, err := r.pool.Exec(ctx, query, articleID); err != nil {
		return fmt.Errorf("failed to mark article failed: %w", err)
	}
	return nil
}

func (r *PostgresArticleRepository) Search(ctx context.Context, query string, limit, recencyDays int) ([]models.SearchHit, error) {
	if query == "" {
		return nil, nil
	}

	sql := `
		SELECT article_id, url, title, summary, signals, outline, topics,
			published_at, ingested_at,
			ts_rank(` + articleFTS + `, plainto_tsquery('english', $1)) AS score
		FROM intel_articles
		WHERE ` + articleFTS + ` @@ plainto_tsquery('english', $1)`
	args := []any{query}

	if recencyDays > 0 {
		sql += ` AND coalesce(published_at, ingested_at) >= now() - make_interval(days => $2)`
		args = append(args, recencyDays)
		sql += ` ORDER BY score DESC, published_at DESC NULLS LAST, ingested_at DESC LIMIT $3`
	} else {
		sql += ` ORDER BY score DESC, published_at DESC NULLS LAST, ingested_at DESC LIMIT $2`
	}
	args = append(args, max(limit, 1))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}
	defer rows.Close()

	var hits []models.SearchHit
	for rows.Next() {
		var hit models.SearchHit
		var signals, outline, topics []byte
		if err := rows.Scan(
			&hit.Article.ArticleID,
			&hit.Article.URL,
			&hit.Article.Title,
			&hit.Article.Summary,
			&signals,
			&outline,
			&topics,
			&hit.Article.PublishedAt,
			&hit.Article.IngestedAt,
			&hit.Score,
		); err != nil {
			return nil, fmt.Errorf("failed to scan search hit: %w", err)
		}
		json.Unmarshal(signals, &hit.Article.Signals)
		json.Unmarshal(outline, &hit.Article.Outline)
		json.Unmarshal(topics, &hit.Article.Topics)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// scanArticle reads a full article row. Returns (nil, nil) when the row does
// not exist.
func scanArticle(row pgx.Row) (*models.Article, error) {
	var a models.Article
	var topics, tags, signals, outline, outboundLinks, fetchMeta, extractionMeta, enrichmentMeta []byte

	err := row.Scan(
		&a.ArticleID, &a.URL, &a.URLOriginal, &a.Title, &a.Author, &a.Publisher,
		&a.PublishedAt, &a.IngestedAt, &a.UpdatedAt, &a.Status, &topics, &tags, &a.Summary, &signals,
		&outline, &outboundLinks, &a.RawHTML, &a.ExtractedText, &a.HTTPStatus, &a.ContentType,
		&a.ETag, &a.LastModified, &fetchMeta, &extractionMeta, &enrichmentMeta,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan article: %w", err)
	}

	json.Unmarshal(topics, &a.Topics)
	json.Unmarshal(tags, &a.Tags)
	json.Unmarshal(signals, &a.Signals)
	json.Unmarshal(outline, &a.Outline)
	json.Unmarshal(outboundLinks, &a.OutboundLinks)
	json.Unmarshal(fetchMeta, &a.FetchMeta)
	json.Unmarshal(extractionMeta, &a.ExtractionMeta)
	json.Unmarshal(enrichmentMeta, &a.EnrichmentMeta)

	return &a, nil
}

// jsonSlice marshals a slice for a jsonb column, normalizing nil to [].
func jsonSlice[T any](v []T) []byte {
	if v == nil {
		v = []T{}
	}
	b, _ := json.Marshal(v)
	return b
}

// jsonMap marshals a map for a jsonb column, normalizing nil to {}.
func jsonMap(v map[string]any) []byte {
	if v == nil {
		v = map[string]any{}
	}
	b, _ := json.Marshal(v)
	return b
}
