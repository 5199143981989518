package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"contextapi/internal/database/migrations"
	"contextapi/internal/models"
)

// setupTestDB connects to the PostgreSQL database named by TEST_DATABASE_URL,
// runs migrations, and truncates the intel tables so each test starts clean.
// Tests are skipped when the variable is unset.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to create test pool: %v", err)
	}

	if err := migrations.Run(ctx, pool, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if _, err := pool.Exec(ctx, `TRUNCATE intel_articles, intel_article_sections, intel_ingest_jobs CASCADE`); err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
	})

	return pool
}

// setupTestRepos creates all repositories using a test database.
func setupTestRepos(t *testing.T) (*Repositories, *pgxpool.Pool) {
	t.Helper()
	pool := setupTestDB(t)
	return NewRepositories(pool), pool
}

// InsertTestArticle is a helper to insert a searchable article row directly.
func InsertTestArticle(t *testing.T, pool *pgxpool.Pool, articleID, title, summary string, signals []models.Signal) {
	t.Helper()
	query := `
		INSERT INTO intel_articles (article_id, url, url_original, title, status, summary, signals)
		VALUES ($1, $2, $2, $3, 'enriched', $4, $5)
	`
	url := "https://example.com/" + articleID
	if _, err := pool.Exec(context.Background(), query, articleID, url, title, summary, jsonSlice(signals)); err != nil {
		t.Fatalf("failed to insert test article: %v", err)
	}
}

// InsertTestJob is a helper to insert a test job directly.
func InsertTestJob(t *testing.T, pool *pgxpool.Pool, jobID, articleID string, status models.JobStatus, createdAt time.Time) {
	t.Helper()
	query := `
		INSERT INTO intel_ingest_jobs (job_id, url_original, url_canonical, article_id, status, created_at, updated_at)
		VALUES ($1, 'https://example.com/x', 'https://example.com/x', $2, $3, $4, $4)
	`
	if _, err := pool.Exec(context.Background(), query, jobID, articleID, status, createdAt); err != nil {
		t.Fatalf("failed to insert test job: %v", err)
	}
}

// InsertTestSections is a helper to insert section rows directly.
func InsertTestSections(t *testing.T, pool *pgxpool.Pool, articleID string, sections []models.Section) {
	t.Helper()
	for _, s := range sections {
		query := `
			INSERT INTO intel_article_sections (article_id, section_id, heading, content, rank)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := pool.Exec(context.Background(), query, articleID, s.SectionID, s.Heading, s.Content, s.Rank); err != nil {
			t.Fatalf("failed to insert test section: %v", err)
		}
	}
}
