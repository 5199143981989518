package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"contextapi/internal/extract"
	"contextapi/internal/models"
	"contextapi/internal/repository"
)

// ErrUnknownBundle rejects fixture bundles other than "default".
var ErrUnknownBundle = fmt.Errorf("unknown fixture_bundle")

// FixtureService loads local fixture bundles into the store. Used to seed
// development and test environments without crawling.
type FixtureService struct {
	repos       *repository.Repositories
	fixturesDir string
	logger      *slog.Logger
}

// NewFixtureService creates a new fixture service.
func NewFixtureService(repos *repository.Repositories, fixturesDir string, logger *slog.Logger) *FixtureService {
	return &FixtureService{
		repos:       repos,
		fixturesDir: fixturesDir,
		logger:      logger.With("component", "fixture_service"),
	}
}

// fixtureMetadata carries the identifying fields of one fixture article.
type fixtureMetadata struct {
	ArticleID   string   `json:"article_id"`
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Publisher   string   `json:"publisher"`
	Author      string   `json:"author"`
	PublishedAt string   `json:"published_at"`
	Topics      []string `json:"topics"`
}

// fixtureFile is one *.json fixture. Metadata fields may also appear at the
// top level; the metadata block wins when both are set.
type fixtureFile struct {
	Metadata fixtureMetadata `json:"metadata"`
	fixtureMetadata
	Summary       string                `json:"summary"`
	Signals       []models.Signal       `json:"signals"`
	Outline       []models.OutlineEntry `json:"outline"`
	OutboundLinks []string              `json:"outbound_links"`
	Sections      []models.Section      `json:"sections"`
}

// Ingest loads the named bundle and upserts its articles and sections.
// Returns the ingested article IDs in file order.
func (s *FixtureService) Ingest(ctx context.Context, bundle string) ([]string, error) {
	if bundle != "default" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBundle, bundle)
	}

	paths, err := filepath.Glob(filepath.Join(s.fixturesDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list fixtures: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", s.fixturesDir)
	}
	sort.Strings(paths)

	ingested := make([]string, 0, len(paths))
	for _, path := range paths {
		articleID, err := s.ingestFile(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to ingest fixture %s: %w", filepath.Base(path), err)
		}
		ingested = append(ingested, articleID)
	}

	s.logger.Info("fixture bundle ingested", "bundle", bundle, "articles", len(ingested))
	return ingested, nil
}

func (s *FixtureService) ingestFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	var fixture fixtureFile
	if err := json.Unmarshal(data, &fixture); err != nil {
		return "", fmt.Errorf("invalid fixture JSON: %w", err)
	}

	article, sections, err := fixture.toArticle()
	if err != nil {
		return "", err
	}
	if err := s.repos.Article.Upsert(ctx, article); err != nil {
		return "", err
	}
	if err := s.repos.Section.Replace(ctx, article.ArticleID, sections); err != nil {
		return "", err
	}
	return article.ArticleID, nil
}

func (f *fixtureFile) toArticle() (*models.Article, []models.Section, error) {
	articleID := firstNonEmpty(f.Metadata.ArticleID, f.fixtureMetadata.ArticleID)
	url := firstNonEmpty(f.Metadata.URL, f.fixtureMetadata.URL)
	title := firstNonEmpty(f.Metadata.Title, f.fixtureMetadata.Title)
	if articleID == "" {
		return nil, nil, fmt.Errorf("missing required field: metadata.article_id")
	}
	if url == "" {
		return nil, nil, fmt.Errorf("missing required field: metadata.url")
	}
	if title == "" {
		return nil, nil, fmt.Errorf("missing required field: metadata.title")
	}

	topics := f.Metadata.Topics
	if len(topics) == 0 {
		topics = f.fixtureMetadata.Topics
	}

	article := &models.Article{
		ArticleID:     articleID,
		URL:           url,
		URLOriginal:   url,
		Title:         title,
		Publisher:     firstNonEmpty(f.Metadata.Publisher, f.fixtureMetadata.Publisher),
		Author:        firstNonEmpty(f.Metadata.Author, f.fixtureMetadata.Author),
		PublishedAt:   extract.ParseDate(firstNonEmpty(f.Metadata.PublishedAt, f.fixtureMetadata.PublishedAt)),
		Status:        models.ArticleStatusEnriched,
		Topics:        topics,
		Tags:          []string{},
		Summary:       f.Summary,
		Signals:       f.Signals,
		Outline:       f.Outline,
		OutboundLinks: f.OutboundLinks,
	}

	sections := make([]models.Section, 0, len(f.Sections))
	for _, section := range f.Sections {
		section.ArticleID = articleID
		sections = append(sections, section)
	}
	return article, sections, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
