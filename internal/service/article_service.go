package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"contextapi/internal/models"
	"contextapi/internal/repository"
)

// Section expansion limits.
const (
	MaxSectionIDs    = 8
	MaxChunks        = 10
	DefaultMaxChunks = 3
	MinChunkChars    = 80
	DefaultChunkChar = 600
)

// ErrTooManySectionIDs rejects section lookups beyond MaxSectionIDs.
var ErrTooManySectionIDs = fmt.Errorf("too many section_ids: at most %d", MaxSectionIDs)

// ArticleService serves article status and the section expansion operations
// that follow a context pack.
type ArticleService struct {
	repos     *repository.Repositories
	sanitizer *bluemonday.Policy
	logger    *slog.Logger
}

// NewArticleService creates a new article service.
func NewArticleService(repos *repository.Repositories, logger *slog.Logger) *ArticleService {
	return &ArticleService{
		repos:     repos,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With("component", "article_service"),
	}
}

// ArticleStatus is the full article record plus the latest job's error, when
// one exists.
type ArticleStatus struct {
	Article   *models.Article `json:"article"`
	LastError string          `json:"last_error,omitempty"`
}

// Get returns the article and the last_error of its most recent job.
func (s *ArticleService) Get(ctx context.Context, articleID string) (*ArticleStatus, error) {
	article, err := s.repos.Article.GetByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	if article == nil {
		return nil, repository.ErrNotFound
	}

	status := &ArticleStatus{Article: article}
	job, err := s.repos.Job.LatestByArticle(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest job: %w", err)
	}
	if job != nil {
		status.LastError = job.LastError
	}
	return status, nil
}

// Outline returns the article's section outline.
func (s *ArticleService) Outline(ctx context.Context, articleID string) ([]models.OutlineEntry, error) {
	article, err := s.repos.Article.GetByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	if article == nil {
		return nil, repository.ErrNotFound
	}
	if article.Outline == nil {
		return []models.OutlineEntry{}, nil
	}
	return article.Outline, nil
}

// Sections returns the full content of the requested sections, rank-ordered.
// At most MaxSectionIDs may be requested at once.
func (s *ArticleService) Sections(ctx context.Context, articleID string, sectionIDs []string) ([]models.Section, error) {
	if len(sectionIDs) > MaxSectionIDs {
		return nil, ErrTooManySectionIDs
	}
	article, err := s.repos.Article.GetByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	if article == nil {
		return nil, repository.ErrNotFound
	}

	sections, err := s.repos.Section.GetByIDs(ctx, articleID, sectionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get sections: %w", err)
	}
	if sections == nil {
		sections = []models.Section{}
	}
	return sections, nil
}

// Chunk is one snippet hit from a section search.
type Chunk struct {
	SectionID string  `json:"section_id"`
	Snippet   string  `json:"snippet"`
	Score     float64 `json:"score"`
}

// ChunkSearch runs full-text search over one article's sections and returns
// plain-text snippets. maxChunks and maxChars are clamped to their bounds.
func (s *ArticleService) ChunkSearch(ctx context.Context, articleID, query string, maxChunks, maxChars int) ([]Chunk, error) {
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}
	if maxChunks > MaxChunks {
		maxChunks = MaxChunks
	}
	if maxChars <= 0 {
		maxChars = DefaultChunkChar
	}
	if maxChars < MinChunkChars {
		maxChars = MinChunkChars
	}

	article, err := s.repos.Article.GetByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	if article == nil {
		return nil, repository.ErrNotFound
	}

	hits, err := s.repos.Section.Search(ctx, articleID, query, maxChunks)
	if err != nil {
		return nil, fmt.Errorf("failed to search sections: %w", err)
	}

	chunks := make([]Chunk, 0, len(hits))
	for _, hit := range hits {
		chunks = append(chunks, Chunk{
			SectionID: hit.SectionID,
			Snippet:   s.cleanSnippet(hit.Snippet, maxChars),
			Score:     hit.Score,
		})
	}
	return chunks, nil
}

// cleanSnippet strips the highlight tags ts_headline adds and trims the
// result to maxChars.
func (s *ArticleService) cleanSnippet(snippet string, maxChars int) string {
	plain := strings.TrimSpace(s.sanitizer.Sanitize(snippet))
	if len(plain) > maxChars {
		plain = strings.TrimSpace(plain[:maxChars])
	}
	return plain
}
