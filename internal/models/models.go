// Package models defines the domain models for the intel pipeline:
// articles, their sections, and the ingest jobs that drive extraction
// and enrichment.
package models

import (
	"time"
)

// ArticleStatus represents the lifecycle state of an article.
type ArticleStatus string

const (
	ArticleStatusQueued    ArticleStatus = "queued"
	ArticleStatusExtracted ArticleStatus = "extracted"
	ArticleStatusEnriched  ArticleStatus = "enriched"
	ArticleStatusPartial   ArticleStatus = "partial" // extracted but enrichment failed
	ArticleStatusFailed    ArticleStatus = "failed"
)

// JobStatus represents the status of an ingest job.
type JobStatus string

const (
	JobStatusQueued         JobStatus = "queued"
	JobStatusQueuedNoEnrich JobStatus = "queued_no_enrich" // extract only, skip the LLM
	JobStatusRunning        JobStatus = "running"
	JobStatusRetry          JobStatus = "retry"
	JobStatusDone           JobStatus = "done"
	JobStatusFailed         JobStatus = "failed"
)

// Cite points a signal at its supporting evidence.
type Cite struct {
	ArticleID string `json:"article_id"`
	SectionID string `json:"section_id,omitempty"`
}

// Signal is one LLM-produced claim grounded in the article text.
type Signal struct {
	Claim             string `json:"claim"`
	Why               string `json:"why"`
	Tradeoff          string `json:"tradeoff,omitempty"`
	SupportingSnippet string `json:"supporting_snippet,omitempty"` // verbatim excerpt from the cited section
	Cite              Cite   `json:"cite"`
}

// OutlineEntry is one row of an article's section outline.
type OutlineEntry struct {
	SectionID string `json:"section_id"`
	Heading   string `json:"heading"`
	Blurb     string `json:"blurb,omitempty"`
}

// Article is the unit of content. Identity is the canonical URL hash;
// everything else is filled in by the worker as the pipeline progresses.
type Article struct {
	ArticleID      string         `json:"article_id"`
	URL            string         `json:"url"`          // canonical URL
	URLOriginal    string         `json:"url_original"` // last-seen raw URL
	Title          string         `json:"title"`
	Author         string         `json:"author,omitempty"`
	Publisher      string         `json:"publisher,omitempty"`
	PublishedAt    *time.Time     `json:"published_at,omitempty"`
	IngestedAt     time.Time      `json:"ingested_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Status         ArticleStatus  `json:"status"`
	Topics         []string       `json:"topics"`
	Tags           []string       `json:"tags"`
	Summary        string         `json:"summary"`
	Signals        []Signal       `json:"signals"`
	Outline        []OutlineEntry `json:"outline"`
	OutboundLinks  []string       `json:"outbound_links"`
	RawHTML        string         `json:"-"`
	ExtractedText  string         `json:"-"`
	HTTPStatus     int            `json:"http_status,omitempty"`
	ContentType    string         `json:"content_type,omitempty"`
	ETag           string         `json:"etag,omitempty"`
	LastModified   string         `json:"last_modified,omitempty"`
	FetchMeta      map[string]any `json:"fetch_meta,omitempty"`
	ExtractionMeta map[string]any `json:"extraction_meta,omitempty"`
	EnrichmentMeta map[string]any `json:"enrichment_meta,omitempty"`
}

// Section is a ranked slice of an article's extracted text.
// SectionID is "s01", "s02", ... and always matches Rank.
type Section struct {
	ArticleID string `json:"article_id"`
	SectionID string `json:"section_id"`
	Heading   string `json:"heading"`
	Content   string `json:"content"`
	Rank      int    `json:"rank"`
}

// IngestJob is the unit of work picked up by the worker.
type IngestJob struct {
	JobID        string    `json:"job_id"`
	URLOriginal  string    `json:"url_original"`
	URLCanonical string    `json:"url_canonical"`
	ArticleID    string    `json:"article_id"`
	Status       JobStatus `json:"status"`
	Attempts     int       `json:"attempts"`
	LastError    string    `json:"last_error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ClaimedJob is an ingest job freshly moved to running, along with the
// enrichment flag derived from its pre-claim status.
type ClaimedJob struct {
	IngestJob
	Enrich bool
}

// SearchHit is one FTS match over the article document
// (title + summary + signal text).
type SearchHit struct {
	Article Article
	Score   float64
}

// SectionHit is one FTS match over a single article's section contents.
type SectionHit struct {
	SectionID string
	Snippet   string
	Score     float64
	Rank      int
}
