package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"contextapi/internal/models"
)

const jobColumns = `job_id, url_original, url_canonical, article_id, status, attempts, last_error, created_at, updated_at`

// PostgresJobRepository implements JobRepository for PostgreSQL.
type PostgresJobRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresJobRepository creates a new PostgreSQL job repository.
func NewPostgresJobRepository(pool *pgxpool.Pool) *PostgresJobRepository {
	return &PostgresJobRepository{pool: pool}
}

func (r *PostgresJobRepository) Create(ctx context.Context, job *models.IngestJob) error {
	query := `
		INSERT INTO intel_ingest_jobs (job_id, url_original, url_canonical, article_id, status)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		job.JobID,
		job.URLOriginal,
		job.URLCanonical,
		job.ArticleID,
		job.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (r *PostgresJobRepository) GetByID(ctx context.Context, jobID string) (*models.IngestJob, error) {
	query := `SELECT ` + jobColumns + ` FROM intel_ingest_jobs WHERE job_id = $1`
	return scanJob(r.pool.QueryRow(ctx, query, jobID))
}

func (r *PostgresJobRepository) LatestByArticle(ctx context.Context, articleID string) (*models.IngestJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM intel_ingest_jobs
		WHERE article_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanJob(r.pool.QueryRow(ctx, query, articleID))
}

// ClaimNext claims the oldest claimable job. The row lock with SKIP LOCKED
// guarantees two concurrent claims never return the same job: a second
// claimer skips the locked row and takes the next one. The enrich flag is
// derived from the status the row had before it was moved to running.
func (r *PostgresJobRepository) ClaimNext(ctx context.Context) (*models.ClaimedJob, error) {
	query := `
		WITH next_job AS (
			SELECT job_id, status AS prev_status
			FROM intel_ingest_jobs
			WHERE status IN ('queued', 'retry', 'queued_no_enrich')
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE intel_ingest_jobs j
		SET status = 'running', attempts = j.attempts + 1, updated_at = now()
		FROM next_job
		WHERE j.job_id = next_job.job_id
		RETURNING j.job_id, j.url_original, j.url_canonical, j.article_id, j.status,
			j.attempts, j.last_error, j.created_at, j.updated_at,
			next_job.prev_status <> 'queued_no_enrich' AS enrich
	`
	var claimed models.ClaimedJob
	err := r.pool.QueryRow(ctx, query).Scan(
		&claimed.JobID,
		&claimed.URLOriginal,
		&claimed.URLCanonical,
		&claimed.ArticleID,
		&claimed.Status,
		&claimed.Attempts,
		&claimed.LastError,
		&claimed.CreatedAt,
		&claimed.UpdatedAt,
		&claimed.Enrich,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return &claimed, nil
}

func (r *PostgresJobRepository) MarkDone(ctx context.Context, jobID string) error {
	query := `UPDATE intel_ingest_jobs SET status = 'done', updated_at = now() WHERE job_id = $1`
	if _, err := r.pool.Exec(ctx, query, jobID); err != nil {
		return fmt.Errorf("failed to mark job done: %w", err)
	}
	return nil
}

func (r *PostgresJobRepository) MarkFailed(ctx context.Context, jobID, lastError string) error {
	query := `UPDATE intel_ingest_jobs SET status = 'failed', last_error = $2, updated_at = now() WHERE job_id = $1`
	if _, err := r.pool.Exec(ctx, query, jobID, lastError); err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}

// RequeueStaleRunning moves jobs stuck in running back to retry so a worker
// can pick them up again. Used at startup after an unclean shutdown.
func (r *PostgresJobRepository) RequeueStaleRunning(ctx context.Context, maxAge time.Duration) (int64, error) {
	query := `
		UPDATE intel_ingest_jobs
		SET status = 'retry', updated_at = now()
		WHERE status = 'running' AND updated_at < now() - make_interval(secs => $1)
	`
	tag, err := r.pool.Exec(ctx, query, maxAge.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stale jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanJob reads a job row. Returns (nil, nil) when the row does not exist.
func scanJob(row pgx.Row) (*models.IngestJob, error) {
	var job models.IngestJob
	err := row.Scan(
		&job.JobID,
		&job.URLOriginal,
		&job.URLCanonical,
		&job.ArticleID,
		&job.Status,
		&job.Attempts,
		&job.LastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}
	return &job, nil
}
