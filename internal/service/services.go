// Package service contains the business logic layer: URL ingestion, context
// pack retrieval, article expansion, and fixture loading. The worker pipeline
// that fills the store lives in internal/worker.
package service

import (
	"log/slog"

	"contextapi/internal/config"
	"contextapi/internal/repository"
)

// Services holds all service instances.
type Services struct {
	Ingest    *IngestService
	Retrieval *RetrievalService
	Article   *ArticleService
	Fixture   *FixtureService
}

// NewServices creates all service instances.
func NewServices(cfg *config.Config, repos *repository.Repositories, logger *slog.Logger) *Services {
	return &Services{
		Ingest:    NewIngestService(repos, cfg.EnrichEnabled, logger),
		Retrieval: NewRetrievalService(repos, logger),
		Article:   NewArticleService(repos, logger),
		Fixture:   NewFixtureService(repos, cfg.FixturesDir, logger),
	}
}
