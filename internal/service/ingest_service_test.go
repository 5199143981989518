package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"contextapi/internal/canonical"
	"contextapi/internal/models"
)

// ========================================
// IngestService Tests
// ========================================

func newIngestService(f *fakeRepos, enrichDefault bool) *IngestService {
	return NewIngestService(f.repos, enrichDefault, slog.Default())
}

func TestIngestURLs_QueuesEachURL(t *testing.T) {
	f := newFakeRepos()
	svc := newIngestService(f, true)

	results := svc.IngestURLs(context.Background(), &IngestRequest{
		URLs:   []string{"https://Example.com/a?utm_source=x", "example.com/b"},
		Topics: []string{"postgres"},
		Tags:   []string{"db"},
	})

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for i, result := range results {
		if result.Status != "queued" {
			t.Errorf("result[%d].Status = %q, want queued", i, result.Status)
		}
		if !strings.HasPrefix(result.ArticleID, "url_") {
			t.Errorf("result[%d].ArticleID = %q, want url_ prefix", i, result.ArticleID)
		}
		if result.JobID == "" {
			t.Errorf("result[%d].JobID is empty", i)
		}
	}

	if len(f.articles.seeded) != 2 {
		t.Fatalf("seeded articles = %d, want 2", len(f.articles.seeded))
	}
	seeded := f.articles.seeded[0]
	if seeded.URL != "https://example.com/a" {
		t.Errorf("seeded URL = %q, want canonical form", seeded.URL)
	}
	if seeded.Status != models.ArticleStatusQueued {
		t.Errorf("seeded Status = %s, want queued", seeded.Status)
	}
	if len(seeded.Topics) != 1 || seeded.Topics[0] != "postgres" {
		t.Errorf("seeded Topics = %v", seeded.Topics)
	}

	if len(f.jobs.created) != 2 {
		t.Fatalf("created jobs = %d, want 2", len(f.jobs.created))
	}
	if f.jobs.created[0].Status != models.JobStatusQueued {
		t.Errorf("job Status = %s, want queued", f.jobs.created[0].Status)
	}
}

func TestIngestURLs_EnrichFlag(t *testing.T) {
	enrichOff := false
	enrichOn := true

	tests := []struct {
		name          string
		enrichDefault bool
		enrich        *bool
		wantStatus    models.JobStatus
	}{
		{name: "default on", enrichDefault: true, enrich: nil, wantStatus: models.JobStatusQueued},
		{name: "default off", enrichDefault: false, enrich: nil, wantStatus: models.JobStatusQueuedNoEnrich},
		{name: "explicit off overrides default on", enrichDefault: true, enrich: &enrichOff, wantStatus: models.JobStatusQueuedNoEnrich},
		{name: "explicit on overrides default off", enrichDefault: false, enrich: &enrichOn, wantStatus: models.JobStatusQueued},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeRepos()
			svc := newIngestService(f, tt.enrichDefault)

			svc.IngestURLs(context.Background(), &IngestRequest{
				URLs:   []string{"https://example.com/a"},
				Enrich: tt.enrich,
			})

			if len(f.jobs.created) != 1 {
				t.Fatalf("created jobs = %d, want 1", len(f.jobs.created))
			}
			if got := f.jobs.created[0].Status; got != tt.wantStatus {
				t.Errorf("job Status = %s, want %s", got, tt.wantStatus)
			}
		})
	}
}

func TestIngestURLs_InvalidURLFailsOnlyThatEntry(t *testing.T) {
	f := newFakeRepos()
	svc := newIngestService(f, true)

	results := svc.IngestURLs(context.Background(), &IngestRequest{
		URLs: []string{"", "https://example.com/ok"},
	})

	if results[0].Status != "failed" {
		t.Errorf("result[0].Status = %q, want failed", results[0].Status)
	}
	if results[0].Reason == "" {
		t.Error("result[0].Reason is empty")
	}
	if results[1].Status != "queued" {
		t.Errorf("result[1].Status = %q, want queued", results[1].Status)
	}
	if len(f.jobs.created) != 1 {
		t.Errorf("created jobs = %d, want 1", len(f.jobs.created))
	}
}

func TestIngestURLs_ForceRefetchResetsContent(t *testing.T) {
	f := newFakeRepos()
	svc := newIngestService(f, true)

	svc.IngestURLs(context.Background(), &IngestRequest{
		URLs:         []string{"https://example.com/a"},
		ForceRefetch: true,
	})

	if len(f.articles.resetIDs) != 1 {
		t.Fatalf("resetIDs = %v, want one entry", f.articles.resetIDs)
	}
	wantID, _ := canonical.ArticleID("https://example.com/a")
	if f.articles.resetIDs[0] != wantID {
		t.Errorf("reset article = %q, want %q", f.articles.resetIDs[0], wantID)
	}
}

func TestIngestURLs_ReingestAlwaysEnqueues(t *testing.T) {
	f := newFakeRepos()
	svc := newIngestService(f, true)

	first := svc.IngestURLs(context.Background(), &IngestRequest{URLs: []string{"https://example.com/a"}})
	second := svc.IngestURLs(context.Background(), &IngestRequest{URLs: []string{"https://example.com/a/"}})

	if first[0].ArticleID != second[0].ArticleID {
		t.Errorf("article IDs differ: %q vs %q", first[0].ArticleID, second[0].ArticleID)
	}
	if second[0].Status != "queued" {
		t.Errorf("re-ingest Status = %q, want queued", second[0].Status)
	}
	if first[0].JobID == second[0].JobID {
		t.Error("re-ingest reused the job ID")
	}
	if len(f.jobs.created) != 2 {
		t.Errorf("created jobs = %d, want 2", len(f.jobs.created))
	}
}

func TestIngestURLs_StoreErrorReported(t *testing.T) {
	f := newFakeRepos()
	f.jobs.createErr = errors.New("connection reset")
	svc := newIngestService(f, true)

	results := svc.IngestURLs(context.Background(), &IngestRequest{URLs: []string{"https://example.com/a"}})

	if results[0].Status != "failed" {
		t.Errorf("Status = %q, want failed", results[0].Status)
	}
	if !strings.Contains(results[0].Reason, "connection reset") {
		t.Errorf("Reason = %q", results[0].Reason)
	}
}
