package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"contextapi/internal/models"
)

// sectionFTS is the document expression for section full-text search.
// It must stay identical to the expression in the GIN index migration.
const sectionFTS = `to_tsvector('english', coalesce(content, ''))`

// PostgresSectionRepository implements SectionRepository for PostgreSQL.
type PostgresSectionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSectionRepository creates a new PostgreSQL section repository.
func NewPostgresSectionRepository(pool *pgxpool.Pool) *PostgresSectionRepository {
	return &PostgresSectionRepository{pool: pool}
}

func (r *PostgresSectionRepository) Replace(ctx context.Context, articleID string, sections []models.Section) error {
	// Rows with no section_id or no content are dropped rather than stored.
	valid := make([]models.Section, 0, len(sections))
	for _, s := range sections {
		if s.SectionID == "" || s.Content == "" {
			continue
		}
		valid = append(valid, s)
	}
	sort.Slice(valid, func(i, j int) bool {
		if valid[i].Rank != valid[j].Rank {
			return valid[i].Rank < valid[j].Rank
		}
		return valid[i].SectionID < valid[j].SectionID
	})

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM intel_article_sections WHERE article_id = $1`, articleID); err != nil {
		return fmt.Errorf("failed to delete sections: %w", err)
	}

	for _, s := range valid {
		if _, err := tx.Exec(ctx, `
			INSERT INTO intel_article_sections (article_id, section_id, heading, content, rank)
			VALUES ($1, $2, $3, $4, $5)
		`, articleID, s.SectionID, s.Heading, s.Content, s.Rank); err != nil {
			return fmt.Errorf("failed to insert section %s: %w", s.SectionID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PostgresSectionRepository) GetByIDs(ctx context.Context, articleID string, sectionIDs []string) ([]models.Section, error) {
	if len(sectionIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT article_id, section_id, heading, content, rank
		FROM intel_article_sections
		WHERE article_id = $1 AND section_id = ANY($2)
		ORDER BY rank ASC
	`
	rows, err := r.pool.Query(ctx, query, articleID, sectionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	var sections []models.Section
	for rows.Next() {
		var s models.Section
		if err := rows.Scan(&s.ArticleID, &s.SectionID, &s.Heading, &s.Content, &s.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

func (r *PostgresSectionRepository) Search(ctx context.Context, articleID, query string, limit int) ([]models.SectionHit, error) {
	if query == "" {
		return nil, nil
	}

	sql := `
		SELECT section_id,
			ts_headline('english', content, plainto_tsquery('english', $2),
				'MaxWords=30, MinWords=12, ShortWord=3') AS snippet,
			ts_rank(` + sectionFTS + `, plainto_tsquery('english', $2)) AS score,
			rank
		FROM intel_article_sections
		WHERE article_id = $1
			AND ` + sectionFTS + ` @@ plainto_tsquery('english', $2)
		ORDER BY score DESC, rank ASC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, sql, articleID, query, max(limit, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to search sections: %w", err)
	}
	defer rows.Close()

	var hits []models.SectionHit
	for rows.Next() {
		var hit models.SectionHit
		if err := rows.Scan(&hit.SectionID, &hit.Snippet, &hit.Score, &hit.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan section hit: %w", err)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}
