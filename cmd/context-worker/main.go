// Package main is the entry point for the standalone ingest worker. Use it
// when the API runs with WORKER_ENABLED=false, or to scale job processing
// separately from the HTTP serving path.
//
// Usage:
//
//	context-worker                   # poll for jobs until interrupted
//	context-worker --once            # process at most one job, then exit
//	context-worker --sleep-seconds 2 # poll every 2 seconds
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contextapi/internal/config"
	"contextapi/internal/database"
	"contextapi/internal/enrich"
	"contextapi/internal/extract"
	"contextapi/internal/fetch"
	"contextapi/internal/logging"
	"contextapi/internal/repository"
	"contextapi/internal/version"
	"contextapi/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "Process at most one queued job, then exit")
	sleepSeconds := flag.Int("sleep-seconds", 5, "Seconds between empty-queue polls")
	flag.Parse()

	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting context-worker",
		"version", v.Version,
		"commit", v.Commit,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := database.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.MigrateWithLogger(context.Background(), pool, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(pool)

	staleCount, err := repos.Job.RequeueStaleRunning(context.Background(), 1*time.Hour)
	if err != nil {
		logger.Warn("failed to requeue stale jobs", "error", err)
	} else if staleCount > 0 {
		logger.Info("requeued stale running jobs", "count", staleCount)
	}

	pollInterval := time.Duration(*sleepSeconds) * time.Second
	if pollInterval < time.Second {
		pollInterval = time.Second
	}

	w := worker.New(
		repos,
		newFetcher(cfg),
		extract.New(cfg.ExtractMaxChars),
		newEnricher(cfg, logger),
		worker.Config{PollInterval: pollInterval},
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *once {
		processed, err := w.RunOnce(ctx)
		if err != nil {
			logger.Error("job processing failed", "error", err)
			os.Exit(1)
		}
		if !processed {
			logger.Info("no queued jobs")
		}
		return
	}

	w.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	logger.Info("shutting down worker")
	cancel()
	w.Stop()
	logger.Info("worker stopped")
}

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
