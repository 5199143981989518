package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"contextapi/internal/canonical"
	"contextapi/internal/models"
	"contextapi/internal/repository"
)

// IngestService accepts URL lists, seeds article rows, and enqueues jobs for
// the worker pipeline.
type IngestService struct {
	repos         *repository.Repositories
	enrichDefault bool
	logger        *slog.Logger
}

// NewIngestService creates a new ingest service. enrichDefault applies when a
// request leaves the enrich flag unset.
func NewIngestService(repos *repository.Repositories, enrichDefault bool, logger *slog.Logger) *IngestService {
	return &IngestService{
		repos:         repos,
		enrichDefault: enrichDefault,
		logger:        logger.With("component", "ingest_service"),
	}
}

// IngestRequest is one batch of URLs to ingest.
type IngestRequest struct {
	URLs         []string
	Topics       []string
	Tags         []string
	ForceRefetch bool
	Enrich       *bool // nil means use the server default
}

// IngestResult reports the outcome for one submitted URL.
type IngestResult struct {
	URL       string `json:"url"`
	Status    string `json:"status"` // queued or failed
	ArticleID string `json:"article_id,omitempty"`
	JobID     string `json:"job_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// IngestURLs canonicalizes each URL, seeds its article row, and enqueues an
// ingest job. Failures are per-URL: one bad URL never fails the batch.
// Re-submitting a URL that maps to an existing article enqueues a new job.
func (s *IngestService) IngestURLs(ctx context.Context, req *IngestRequest) []IngestResult {
	enrich := s.enrichDefault
	if req.Enrich != nil {
		enrich = *req.Enrich
	}

	results := make([]IngestResult, 0, len(req.URLs))
	for _, raw := range req.URLs {
		results = append(results, s.ingestOne(ctx, raw, req, enrich))
	}
	return results
}

func (s *IngestService) ingestOne(ctx context.Context, raw string, req *IngestRequest, enrich bool) IngestResult {
	canonicalURL := canonical.URL(raw)
	articleID, err := canonical.ArticleID(canonicalURL)
	if err != nil {
		return IngestResult{URL: raw, Status: "failed", Reason: err.Error()}
	}

	article := &models.Article{
		ArticleID:   articleID,
		URL:         canonicalURL,
		URLOriginal: strings.TrimSpace(raw),
		Status:      models.ArticleStatusQueued,
		Topics:      req.Topics,
		Tags:        req.Tags,
	}
	if err := s.repos.Article.Seed(ctx, article); err != nil {
		return IngestResult{URL: raw, Status: "failed", Reason: err.Error()}
	}
	if req.ForceRefetch {
		if err := s.repos.Article.ResetContent(ctx, articleID); err != nil {
			return IngestResult{URL: raw, Status: "failed", Reason: err.Error()}
		}
	}

	status := models.JobStatusQueued
	if !enrich {
		status = models.JobStatusQueuedNoEnrich
	}
	job := &models.IngestJob{
		JobID:        uuid.NewString(),
		URLOriginal:  strings.TrimSpace(raw),
		URLCanonical: canonicalURL,
		ArticleID:    articleID,
		Status:       status,
	}
	if err := s.repos.Job.Create(ctx, job); err != nil {
		return IngestResult{URL: raw, Status: "failed", Reason: err.Error()}
	}

	s.logger.Info("url queued", "article_id", articleID, "job_id", job.JobID, "enrich", enrich)
	return IngestResult{
		URL:       raw,
		Status:    "queued",
		ArticleID: articleID,
		JobID:     job.JobID,
	}
}
