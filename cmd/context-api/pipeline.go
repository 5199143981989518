package main

import (
	"log/slog"

	"contextapi/internal/config"
	"contextapi/internal/enrich"
	"contextapi/internal/fetch"
	"contextapi/internal/worker"
)

func newFetcher(cfg *config.Config) *fetch.Fetcher {
	return fetch.New(fetch.Config{
		MaxBytes:     cfg.FetchMaxBytes,
		Timeout:      cfg.FetchTimeout,
		MaxRedirects: cfg.FetchMaxRedirects,
		HostThrottle: cfg.HostThrottle,
		UserAgent:    cfg.UserAgent,
	})
}

// newEnricher returns nil when no API key is configured; jobs that request
// enrichment then end up partial instead of enriched.
func newEnricher(cfg *config.Config, logger *slog.Logger) worker.Enricher {
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, enrichment disabled")
		return nil
	}
	return enrich.New(enrich.Config{
		APIBase: cfg.OpenAIAPIBase,
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		Limits: enrich.Limits{
			SummaryMaxChars:    cfg.SummaryMaxChars,
			SignalsMax:         cfg.SignalsMax,
			SignalFieldMax:     cfg.SignalMaxChars,
			SnippetMax:         cfg.SnippetMaxChars,
			SectionPromptChars: cfg.SectionPromptChars,
		},
	})
}
