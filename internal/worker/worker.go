// Package worker claims ingest jobs and runs the fetch, extract, sectionise,
// enrich pipeline for each one.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"contextapi/internal/enrich"
	"contextapi/internal/extract"
	"contextapi/internal/fetch"
	"contextapi/internal/models"
	"contextapi/internal/repository"
	"contextapi/internal/sectionise"
)

// Fetcher retrieves article HTML.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// Enricher produces a validated summary and signals for extracted sections.
type Enricher interface {
	Enrich(ctx context.Context, title, url string, sections []models.Section) (*enrich.Result, *enrich.Meta, error)
}

// Worker processes ingest jobs one at a time. Multiple workers may run
// concurrently; they race only at the claim query.
type Worker struct {
	repos     *repository.Repositories
	fetcher   Fetcher
	extractor *extract.Extractor
	enricher  Enricher

	pollInterval time.Duration
	stop         chan struct{}
	wg           sync.WaitGroup
	logger       *slog.Logger
}

// Config holds worker configuration.
type Config struct {
	PollInterval time.Duration
}

// New creates a worker. enricher may be nil when enrichment is disabled
// process-wide; jobs that request it then fail at the enrichment stage.
func New(
	repos *repository.Repositories,
	fetcher Fetcher,
	extractor *extract.Extractor,
	enricher Enricher,
	cfg Config,
	logger *slog.Logger,
) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		repos:        repos,
		fetcher:      fetcher,
		extractor:    extractor,
		enricher:     enricher,
		pollInterval: cfg.PollInterval,
		stop:         make(chan struct{}),
		logger:       logger.With("component", "worker"),
	}
}

// Start begins polling for jobs until Stop is called or ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("starting", "poll_interval", w.pollInterval.String())
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop gracefully stops the worker, waiting for the in-flight job.
func (w *Worker) Stop() {
	w.logger.Info("stopping")
	close(w.stop)
	w.wg.Wait()
	w.logger.Info("stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Drain the queue before going back to sleep.
			for {
				processed, err := w.RunOnce(ctx)
				if err != nil {
					w.logger.Error("failed to claim job", "error", err)
					break
				}
				if !processed {
					break
				}
				select {
				case <-w.stop:
					return
				case <-ctx.Done():
					return
				default:
				}
			}
		}
	}
}

// RunOnce claims and processes at most one job. Returns false when the queue
// is empty.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.repos.Job.ClaimNext(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.ProcessJob(ctx, job)
	return true, nil
}

// ProcessJob runs the pipeline for one claimed job. Each stage is guarded
// individually: work persisted by earlier stages survives later failures.
func (w *Worker) ProcessJob(ctx context.Context, job *models.ClaimedJob) {
	logger := w.logger.With("job_id", job.JobID, "article_id", job.ArticleID)

	url := job.URLCanonical
	if url == "" {
		url = job.URLOriginal
	}
	if job.ArticleID == "" || url == "" {
		w.failJob(ctx, logger, job, "missing job data")
		return
	}

	fetched, err := w.fetcher.Fetch(ctx, url)
	if err != nil {
		w.failJobAndArticle(ctx, logger, job, err.Error())
		return
	}
	if fetched.StatusCode >= 400 {
		w.failJobAndArticle(ctx, logger, job, fmt.Sprintf("http_status_%d", fetched.StatusCode))
		return
	}
	if fetched.HTML == "" {
		w.failJobAndArticle(ctx, logger, job, "empty html")
		return
	}

	extracted := w.extractor.Extract(fetched.HTML, url)
	if extracted.Text == "" {
		w.failJobAndArticle(ctx, logger, job, "empty extracted text")
		return
	}

	split := sectionise.Split(job.ArticleID, extracted.Text)
	if err := w.repos.Section.Replace(ctx, job.ArticleID, split.Sections); err != nil {
		w.failJobAndArticle(ctx, logger, job, err.Error())
		return
	}

	fetchWarnings := []string{}
	if fetched.Truncated {
		fetchWarnings = append(fetchWarnings, "truncated")
	}
	fetchMeta := map[string]any{
		"http_status":  fetched.StatusCode,
		"content_type": fetched.Headers["content-type"],
		"fetched_at":   time.Now().UTC().Format(time.RFC3339),
		"warnings":     fetchWarnings,
	}
	extractionMeta := map[string]any{
		"method":     extracted.Method,
		"confidence": extracted.Confidence,
		"warnings":   extracted.Warnings,
	}

	update := &repository.ExtractedUpdate{
		ArticleID:      job.ArticleID,
		Title:          extracted.Title,
		Author:         extracted.Author,
		PublishedAt:    extracted.PublishedAt,
		ExtractedText:  extracted.Text,
		RawHTML:        fetched.HTML,
		HTTPStatus:     fetched.StatusCode,
		ContentType:    fetched.Headers["content-type"],
		ETag:           fetched.Headers["etag"],
		LastModified:   fetched.Headers["last-modified"],
		FetchMeta:      fetchMeta,
		ExtractionMeta: extractionMeta,
		Outline:        split.Outline,
	}
	if err := w.repos.Article.MarkExtracted(ctx, update); err != nil {
		w.failJobAndArticle(ctx, logger, job, err.Error())
		return
	}

	if !job.Enrich {
		if err := w.repos.Job.MarkDone(ctx, job.JobID); err != nil {
			logger.Error("failed to mark job done", "error", err)
			return
		}
		logger.Info("intel_job_done", "status", models.ArticleStatusExtracted, "sections", len(split.Sections))
		return
	}

	w.enrichArticle(ctx, logger, job, extracted.Title, url, split)
}

// enrichArticle runs the enrichment stage. Failures downgrade the article to
// partial instead of failed: the extracted text and sections stay usable.
func (w *Worker) enrichArticle(ctx context.Context, logger *slog.Logger, job *models.ClaimedJob, title, url string, split *sectionise.Result) {
	existingTopics := w.existingTopics(ctx, job.ArticleID)

	if w.enricher == nil {
		w.markPartial(ctx, logger, job, existingTopics, split, "enrichment disabled: no model configured")
		return
	}

	result, meta, err := w.enricher.Enrich(ctx, title, url, split.Sections)
	if err != nil {
		w.markPartial(ctx, logger, job, existingTopics, split, err.Error())
		return
	}

	// The model's topics win when it produced any; otherwise keep the
	// caller-seeded list.
	topics := result.Topics
	if len(topics) == 0 {
		topics = existingTopics
	}

	enrichmentMeta := map[string]any{
		"model":          meta.Model,
		"prompt_version": meta.PromptVersion,
		"token_usage":    meta.TokenUsage,
	}
	update := &repository.EnrichedUpdate{
		ArticleID:      job.ArticleID,
		Summary:        result.Summary,
		Signals:        enrich.ToModelSignals(job.ArticleID, result.Signals),
		Topics:         normalizeTopics(topics),
		EnrichmentMeta: enrichmentMeta,
		Outline:        split.Outline,
		Status:         models.ArticleStatusEnriched,
	}
	if err := w.repos.Article.MarkEnriched(ctx, update); err != nil {
		w.failJob(ctx, logger, job, err.Error())
		return
	}
	if err := w.repos.Job.MarkDone(ctx, job.JobID); err != nil {
		logger.Error("failed to mark job done", "error", err)
		return
	}
	logger.Info("intel_job_done", "status", models.ArticleStatusEnriched, "signals", len(result.Signals))
}

// markPartial records a failed enrichment while preserving the extraction.
func (w *Worker) markPartial(ctx context.Context, logger *slog.Logger, job *models.ClaimedJob, topics []string, split *sectionise.Result, errMsg string) {
	update := &repository.EnrichedUpdate{
		ArticleID: job.ArticleID,
		Summary:   "",
		Signals:   []models.Signal{},
		Topics:    topics,
		EnrichmentMeta: map[string]any{
			"warnings": []string{"enrichment_failed"},
			"error":    errMsg,
		},
		Outline: split.Outline,
		Status:  models.ArticleStatusPartial,
	}
	if err := w.repos.Article.MarkEnriched(ctx, update); err != nil {
		logger.Error("failed to mark article partial", "error", err)
	}
	w.failJob(ctx, logger, job, errMsg)
}

func (w *Worker) existingTopics(ctx context.Context, articleID string) []string {
	article, err := w.repos.Article.GetByID(ctx, articleID)
	if err != nil || article == nil {
		return nil
	}
	return article.Topics
}

func (w *Worker) failJob(ctx context.Context, logger *slog.Logger, job *models.ClaimedJob, errMsg string) {
	if err := w.repos.Job.MarkFailed(ctx, job.JobID, errMsg); err != nil {
		logger.Error("failed to mark job failed", "error", err)
	}
	logger.Error("intel_job_failed", "error", errMsg)
}

func (w *Worker) failJobAndArticle(ctx context.Context, logger *slog.Logger, job *models.ClaimedJob, errMsg string) {
	if err := w.repos.Article.MarkFailed(ctx, job.ArticleID); err != nil {
		logger.Error("failed to mark article failed", "error", err)
	}
	w.failJob(ctx, logger, job, errMsg)
}

func normalizeTopics(topics []string) []string {
	out := make([]string, 0, len(topics))
	seen := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
