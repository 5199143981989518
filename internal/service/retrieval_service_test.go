package service

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"contextapi/internal/models"
)

// ========================================
// RetrievalService Tests
// ========================================

func newRetrievalService(f *fakeRepos) *RetrievalService {
	return NewRetrievalService(f.repos, slog.Default())
}

func richHit(articleID string, score float64, signalCount int) models.SearchHit {
	signals := make([]models.Signal, 0, signalCount)
	for i := 0; i < signalCount; i++ {
		signals = append(signals, models.Signal{
			Claim: "GIN indexes keep full-text queries fast under load",
			Why:   "Lexemes are indexed directly instead of scanned",
			Cite:  models.Cite{ArticleID: articleID, SectionID: "s01"},
		})
	}
	return models.SearchHit{
		Article: models.Article{
			ArticleID: articleID,
			URL:       "https://example.com/" + articleID,
			Title:     "Postgres FTS",
			Summary:   "Full-text search in Postgres builds on tsvector documents and GIN indexes.",
			Topics:    []string{"postgres"},
			Signals:   signals,
		},
		Score: score,
	}
}

// ----------------------------------------
// Budgeting
// ----------------------------------------

func TestComputeBudget(t *testing.T) {
	tests := []struct {
		name        string
		tokenBudget int
		maxItems    int
		wantChars   int
		wantSummary int
		wantSignal  int
	}{
		{name: "defaults", tokenBudget: 800, maxItems: 3, wantChars: 3200, wantSummary: 400, wantSignal: 240},
		{name: "tiny budget clamps per item", tokenBudget: 50, maxItems: 3, wantChars: 200, wantSummary: 120, wantSignal: 80},
		{name: "zero budget treated as one token", tokenBudget: 0, maxItems: 3, wantChars: 4, wantSummary: 120, wantSignal: 80},
		{name: "single item", tokenBudget: 100, maxItems: 1, wantChars: 400, wantSummary: 240, wantSignal: 160},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := computeBudget(tt.tokenBudget, tt.maxItems)
			if b.charBudget != tt.wantChars {
				t.Errorf("charBudget = %d, want %d", b.charBudget, tt.wantChars)
			}
			if b.maxSummaryChars != tt.wantSummary {
				t.Errorf("maxSummaryChars = %d, want %d", b.maxSummaryChars, tt.wantSummary)
			}
			if b.maxSignalChars != tt.wantSignal {
				t.Errorf("maxSignalChars = %d, want %d", b.maxSignalChars, tt.wantSignal)
			}
		})
	}
}

// ----------------------------------------
// Pack assembly
// ----------------------------------------

func TestContextPack_PacksRankedCandidates(t *testing.T) {
	f := newFakeRepos()
	f.articles.hits = []models.SearchHit{
		richHit("url_a", 0.5, 2),
		richHit("url_b", 0.3, 1),
	}
	svc := newRetrievalService(f)

	resp, err := svc.ContextPack(context.Background(), &PackRequest{Query: "postgres fts"})
	if err != nil {
		t.Fatalf("ContextPack() error = %v", err)
	}

	if len(resp.Pack.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(resp.Pack.Items))
	}
	if resp.Pack.Items[0].ArticleID != "url_a" {
		t.Errorf("first item = %q, want url_a (ranked order)", resp.Pack.Items[0].ArticleID)
	}
	if resp.RetrievalConfidence != "high" {
		t.Errorf("confidence = %q, want high (score 0.5, 2 cited signals)", resp.RetrievalConfidence)
	}
	if resp.NextAction != "proceed" {
		t.Errorf("next_action = %q, want proceed", resp.NextAction)
	}

	if resp.Trace.TraceID == "" {
		t.Error("trace_id is empty")
	}
	if got := resp.Trace.RetrievedArticleIDs; len(got) != 2 || got[0] != "url_a" {
		t.Errorf("retrieved_article_ids = %v", got)
	}
	if _, ok := resp.Trace.TimingMS["total"]; !ok {
		t.Errorf("timing_ms = %v, want a total entry", resp.Trace.TimingMS)
	}
}

func TestContextPack_DropsArticlesWithoutValidSignals(t *testing.T) {
	noSignals := richHit("url_empty", 0.9, 0)
	blankClaims := richHit("url_blank", 0.8, 1)
	blankClaims.Article.Signals[0].Claim = "   "

	f := newFakeRepos()
	f.articles.hits = []models.SearchHit{noSignals, blankClaims, richHit("url_good", 0.4, 1)}
	svc := newRetrievalService(f)

	resp, err := svc.ContextPack(context.Background(), &PackRequest{Query: "postgres"})
	if err != nil {
		t.Fatalf("ContextPack() error = %v", err)
	}

	if len(resp.Pack.Items) != 1 || resp.Pack.Items[0].ArticleID != "url_good" {
		t.Errorf("items = %+v, want only url_good", resp.Pack.Items)
	}
}

func TestContextPack_SignalCapPerItem(t *testing.T) {
	f := newFakeRepos()
	f.articles.hits = []models.SearchHit{richHit("url_a", 0.5, 6)}
	svc := newRetrievalService(f)

	resp, err := svc.ContextPack(context.Background(), &PackRequest{Query: "postgres"})
	if err != nil {
		t.Fatalf("ContextPack() error = %v", err)
	}
	if got := len(resp.Pack.Items[0].Signals); got != 3 {
		t.Errorf("signals = %d, want capped at 3", got)
	}
}

func TestContextPack_BudgetStopsPacking(t *testing.T) {
	// token_budget=50 → char_budget=200. One rich item fits only after the
	// first-item re-trim; the second never fits.
	f := newFakeRepos()
	f.articles.hits = []models.SearchHit{
		richHit("url_a", 0.5, 3),
		richHit("url_b", 0.4, 3),
		richHit("url_c", 0.3, 3),
	}
	svc := newRetrievalService(f)

	resp, err := svc.ContextPack(context.Background(), &PackRequest{Query: "postgres", TokenBudget: 50})
	if err != nil {
		t.Fatalf("ContextPack() error = %v", err)
	}

	if len(resp.Pack.Items) != 1 {
		t.Fatalf("items = %d, want exactly 1 under a tight budget", len(resp.Pack.Items))
	}
	// Re-trimmed summary: max(80, 200/4) = 80 chars.
	if got := len(resp.Pack.Items[0].Summary); got > 80 {
		t.Errorf("summary length = %d, want <= 80 after re-trim", got)
	}
}

func TestContextPack_MaxItemsRespected(t *testing.T) {
	f := newFakeRepos()
	f.articles.hits = []models.SearchHit{
		richHit("url_a", 0.5, 1),
		richHit("url_b", 0.4, 1),
		richHit("url_c", 0.3, 1),
	}
	svc := newRetrievalService(f)

	resp, err := svc.ContextPack(context.Background(), &PackRequest{Query: "postgres", MaxItems: 2})
	if err != nil {
		t.Fatalf("ContextPack() error = %v", err)
	}
	if len(resp.Pack.Items) != 2 {
		t.Errorf("items = %d, want 2", len(resp.Pack.Items))
	}
}

func TestContextPack_TopicFilter(t *testing.T) {
	other := richHit("url_other", 0.9, 1)
	other.Article.Topics = []string{"networking"}

	f := newFakeRepos()
	f.articles.hits = []models.SearchHit{other, richHit("url_pg", 0.4, 1)}
	svc := newRetrievalService(f)

	resp, err := svc.ContextPack(context.Background(), &PackRequest{
		Query:  "postgres",
		Topics: []string{"  Postgres  "},
	})
	if err != nil {
		t.Fatalf("ContextPack() error = %v", err)
	}

	if len(resp.Pack.Items) != 1 || resp.Pack.Items[0].ArticleID != "url_pg" {
		t.Errorf("items = %+v, want only the postgres-topic article", resp.Pack.Items)
	}
}

func TestContextPack_EmptyPackIsLowConfidence(t *testing.T) {
	f := newFakeRepos()
	svc := newRetrievalService(f)

	resp, err := svc.ContextPack(context.Background(), &PackRequest{Query: "asdfqwer"})
	if err != nil {
		t.Fatalf("ContextPack() error = %v", err)
	}

	if len(resp.Pack.Items) != 0 {
		t.Errorf("items = %d, want 0", len(resp.Pack.Items))
	}
	if resp.RetrievalConfidence != "low" {
		t.Errorf("confidence = %q, want low", resp.RetrievalConfidence)
	}
	if resp.NextAction != "refine_query" {
		t.Errorf("next_action = %q, want refine_query", resp.NextAction)
	}
	if resp.Trace.RetrievedArticleIDs == nil {
		t.Error("retrieved_article_ids is nil, want empty slice")
	}
}

// ----------------------------------------
// Citations
// ----------------------------------------

func TestBuildCitations_DedupesInSignalOrder(t *testing.T) {
	signals := []PackSignal{
		{Claim: "a", Cite: models.Cite{ArticleID: "url_a", SectionID: "s01"}},
		{Claim: "b", Cite: models.Cite{ArticleID: "url_a", SectionID: "s02"}},
		{Claim: "c", Cite: models.Cite{ArticleID: "url_a", SectionID: "s01"}},
	}

	citations := buildCitations("https://example.com/a", signals)
	if len(citations) != 2 {
		t.Fatalf("citations = %d, want 2", len(citations))
	}
	if citations[0].SectionID != "s01" || citations[1].SectionID != "s02" {
		t.Errorf("citations = %+v, want signal order preserved", citations)
	}
	if citations[0].URL != "https://example.com/a" {
		t.Errorf("citation URL = %q", citations[0].URL)
	}
}

// ----------------------------------------
// Confidence and next action
// ----------------------------------------

func TestClassifyConfidence(t *testing.T) {
	tests := []struct {
		name     string
		topScore float64
		cited    int
		want     string
	}{
		{name: "very low score", topScore: 0.01, cited: 3, want: "low"},
		{name: "high score well cited", topScore: 0.25, cited: 2, want: "high"},
		{name: "high score weakly cited", topScore: 0.25, cited: 1, want: "med"},
		{name: "mid score", topScore: 0.1, cited: 3, want: "med"},
		{name: "boundary 0.05 is med", topScore: 0.05, cited: 0, want: "med"},
		{name: "boundary 0.2 with cites is high", topScore: 0.2, cited: 2, want: "high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit := richHit("url_a", tt.topScore, 3)
			item, _, ok := buildPackItem(&hit.Article, computeBudget(800, 3))
			if !ok {
				t.Fatal("buildPackItem failed")
			}
			for i := range item.Signals {
				if i >= tt.cited {
					item.Signals[i].Cite.SectionID = ""
				}
			}

			got := classifyConfidence([]models.SearchHit{hit}, []PackItem{item})
			if got != tt.want {
				t.Errorf("classifyConfidence() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChooseNextAction(t *testing.T) {
	tests := []struct {
		name       string
		confidence string
		query      string
		want       string
	}{
		{name: "low always refines", confidence: "low", query: "how to implement", want: "refine_query"},
		{name: "med with keyword expands", confidence: "med", query: "How do I configure pooling?", want: "expand_sections"},
		{name: "med with sql keyword expands", confidence: "med", query: "show me the SQL", want: "expand_sections"},
		{name: "med without keyword proceeds", confidence: "med", query: "postgres performance", want: "proceed"},
		{name: "high proceeds", confidence: "high", query: "implementation details", want: "proceed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chooseNextAction(tt.confidence, tt.query); got != tt.want {
				t.Errorf("chooseNextAction(%q, %q) = %q, want %q", tt.confidence, tt.query, got, tt.want)
			}
		})
	}
}

func TestTrimTo(t *testing.T) {
	if got := trimTo("short", 100); got != "short" {
		t.Errorf("trimTo() = %q", got)
	}
	long := strings.Repeat("word ", 30)
	got := trimTo(long, 42)
	if len(got) > 42 {
		t.Errorf("len = %d, want <= 42", len(got))
	}
	if strings.HasSuffix(got, " ") {
		t.Errorf("trimTo() = %q, want trailing space removed", got)
	}
}

func TestTrimTo_RuneBoundary(t *testing.T) {
	// A cut landing inside the two-byte é must back up instead of emitting a
	// dangling continuation byte.
	s := strings.Repeat("a", 9) + "é tail"
	got := trimTo(s, 10)
	if !utf8.ValidString(got) {
		t.Fatalf("trimTo() = %q, want valid UTF-8", got)
	}
	if got != strings.Repeat("a", 9) {
		t.Errorf("trimTo() = %q, want %q", got, strings.Repeat("a", 9))
	}
}
