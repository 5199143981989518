// Package main is the entry point for the context-api server. It serves the
// HTTP API and, unless disabled, runs the ingest worker in-process.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"contextapi/internal/config"
	"contextapi/internal/database"
	"contextapi/internal/extract"
	"contextapi/internal/http/handlers"
	"contextapi/internal/http/mw"
	"contextapi/internal/http/routes"
	"contextapi/internal/logging"
	"contextapi/internal/repository"
	"contextapi/internal/service"
	"contextapi/internal/version"
	"contextapi/internal/worker"
)

func main() {
	// Initialize logger with TTY detection, source paths, and format control
	logger := logging.SetDefault()

	// Log version info first thing
	v := version.Get()
	logger.Info("starting context-api",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.APIToken == "" {
		logger.Error("CONTEXT_API_TOKEN is required")
		os.Exit(1)
	}

	// Initialize database
	pool, err := database.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations (with logging for each migration applied)
	if err := database.MigrateWithLogger(context.Background(), pool, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Log current schema version
	schemaVersion, err := database.GetLatestVersion(context.Background(), pool)
	if err != nil {
		logger.Warn("failed to get schema version", "error", err)
	} else if schemaVersion != "" {
		logger.Info("database schema ready", "schema_version", schemaVersion)
	}

	// Initialize repositories
	repos := repository.NewRepositories(pool)

	// Requeue jobs left running by a previous crash. Jobs running for more
	// than an hour are assumed abandoned.
	staleCount, err := repos.Job.RequeueStaleRunning(context.Background(), 1*time.Hour)
	if err != nil {
		logger.Warn("failed to requeue stale jobs", "error", err)
	} else if staleCount > 0 {
		logger.Info("requeued stale running jobs", "count", staleCount)
	}

	// Initialize services
	services := service.NewServices(cfg, repos, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the ingest worker in-process unless disabled
	var ingestWorker *worker.Worker
	if cfg.WorkerEnabled {
		ingestWorker = worker.New(
			repos,
			newFetcher(cfg),
			extract.New(cfg.ExtractMaxChars),
			newEnricher(cfg, logger),
			worker.Config{PollInterval: cfg.WorkerPollInterval},
			logger,
		)
		ingestWorker.Start(ctx)
	}

	// Create router
	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "X-API-Version"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Request size limit (1MB) - prevent large payload attacks
	router.Use(middleware.RequestSize(1 * 1024 * 1024))

	// Global rate limit by IP
	router.Use(httprate.LimitByIP(100, time.Minute))

	// Version header on every response
	router.Use(mw.APIVersion())

	// Huma API with shared route config
	api := humachi.New(router, routes.NewHumaConfig(cfg.BaseURL))
	api.UseMiddleware(mw.HumaAuth(api, cfg.APIToken))

	healthHandler := handlers.NewHealthHandler(pool)
	intelHandler := handlers.NewIntelHandler(services.Ingest, services.Article, services.Fixture)
	packHandler := handlers.NewPackHandler(services.Retrieval)

	routes.Register(api, &routes.Handlers{
		HealthCheck: healthHandler.HealthCheck,
		Version:     healthHandler.Version,
		Livez:       healthHandler.Livez,
		Readyz:      healthHandler.Readyz,
		Intel:       intelHandler,
		Pack:        packHandler,
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan

		logger.Info("shutting down server")

		// Stop the worker first so in-flight jobs finish
		cancel()
		if ingestWorker != nil {
			ingestWorker.Stop()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	// Start server
	logger.Info("starting server", "port", cfg.Port, "worker_enabled", cfg.WorkerEnabled)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
