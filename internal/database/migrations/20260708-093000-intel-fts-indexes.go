package migrations

func init() {
	Register(Migration{
		Timestamp:   "20260708-093000",
		Description: "Intel full-text search indexes",
		Up: []string{
			// The expressions here must match the ones used by the search
			// queries exactly, or the planner will not use the indexes.
			`CREATE INDEX IF NOT EXISTS idx_intel_articles_fts ON intel_articles
				USING GIN (to_tsvector('english',
					coalesce(title, '') || ' ' || coalesce(summary, '') || ' ' || coalesce(signals::text, '')))`,
			`CREATE INDEX IF NOT EXISTS idx_intel_sections_fts ON intel_article_sections
				USING GIN (to_tsvector('english', coalesce(content, '')))`,
		},
	})
}
