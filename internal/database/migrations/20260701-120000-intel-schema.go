package migrations

func init() {
	Register(Migration{
		Timestamp:   "20260701-120000",
		Description: "Intel schema",
		Up: []string{
			// Articles - one row per canonical URL. article_id is derived
			// from the canonical URL so re-ingesting the same page upserts.
			`CREATE TABLE IF NOT EXISTS intel_articles (
				article_id TEXT PRIMARY KEY,
				url TEXT NOT NULL,
				url_original TEXT NOT NULL DEFAULT '',
				title TEXT NOT NULL DEFAULT '',
				author TEXT NOT NULL DEFAULT '',
				publisher TEXT NOT NULL DEFAULT '',
				published_at TIMESTAMPTZ,
				ingested_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				status TEXT NOT NULL DEFAULT 'queued',
				topics JSONB NOT NULL DEFAULT '[]'::jsonb,
				tags JSONB NOT NULL DEFAULT '[]'::jsonb,
				summary TEXT NOT NULL DEFAULT '',
				signals JSONB NOT NULL DEFAULT '[]'::jsonb,
				outline JSONB NOT NULL DEFAULT '[]'::jsonb,
				outbound_links JSONB NOT NULL DEFAULT '[]'::jsonb,
				raw_html TEXT NOT NULL DEFAULT '',
				extracted_text TEXT NOT NULL DEFAULT '',
				http_status INTEGER NOT NULL DEFAULT 0,
				content_type TEXT NOT NULL DEFAULT '',
				etag TEXT NOT NULL DEFAULT '',
				last_modified TEXT NOT NULL DEFAULT '',
				fetch_meta JSONB NOT NULL DEFAULT '{}'::jsonb,
				extraction_meta JSONB NOT NULL DEFAULT '{}'::jsonb,
				enrichment_meta JSONB NOT NULL DEFAULT '{}'::jsonb
			)`,
			`CREATE INDEX IF NOT EXISTS idx_intel_articles_ingested_at ON intel_articles(ingested_at)`,
			`CREATE INDEX IF NOT EXISTS idx_intel_articles_published_at ON intel_articles(published_at)`,

			// Sections - replaced wholesale on each extraction.
			`CREATE TABLE IF NOT EXISTS intel_article_sections (
				article_id TEXT NOT NULL REFERENCES intel_articles(article_id) ON DELETE CASCADE,
				section_id TEXT NOT NULL,
				heading TEXT NOT NULL DEFAULT '',
				content TEXT NOT NULL,
				rank INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (article_id, section_id)
			)`,

			// Ingest jobs - the durable work queue.
			`CREATE TABLE IF NOT EXISTS intel_ingest_jobs (
				job_id UUID PRIMARY KEY,
				url_original TEXT NOT NULL,
				url_canonical TEXT NOT NULL,
				article_id TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'queued',
				attempts INTEGER NOT NULL DEFAULT 0,
				last_error TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_intel_ingest_jobs_status_created_at ON intel_ingest_jobs(status, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_intel_ingest_jobs_article_id ON intel_ingest_jobs(article_id)`,
		},
	})
}
