package models

import (
	"encoding/json"
	"testing"
	"time"
)

// ========================================
// FlexInt Tests
// ========================================

func TestFlexInt_UnmarshalJSON_Number(t *testing.T) {
	data := []byte(`42`)
	var f FlexInt
	err := json.Unmarshal(data, &f)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != 42 {
		t.Errorf("FlexInt = %d, want 42", f)
	}
}

func TestFlexInt_UnmarshalJSON_String(t *testing.T) {
	data := []byte(`"123"`)
	var f FlexInt
	err := json.Unmarshal(data, &f)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != 123 {
		t.Errorf("FlexInt = %d, want 123", f)
	}
}

func TestFlexInt_UnmarshalJSON_EmptyString(t *testing.T) {
	data := []byte(`""`)
	var f FlexInt
	err := json.Unmarshal(data, &f)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != 0 {
		t.Errorf("FlexInt = %d, want 0 for empty string", f)
	}
}

func TestFlexInt_UnmarshalJSON_InvalidString(t *testing.T) {
	data := []byte(`"not-a-number"`)
	var f FlexInt
	err := json.Unmarshal(data, &f)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != 0 {
		t.Errorf("FlexInt = %d, want 0 for invalid string", f)
	}
}

func TestFlexInt_UnmarshalJSON_Null(t *testing.T) {
	data := []byte(`null`)
	var f FlexInt
	err := json.Unmarshal(data, &f)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != 0 {
		t.Errorf("FlexInt = %d, want 0 for null", f)
	}
}

func TestFlexInt_MarshalJSON(t *testing.T) {
	f := FlexInt(99)
	data, err := json.Marshal(f)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "99" {
		t.Errorf("marshaled = %s, want 99", string(data))
	}
}

func TestFlexInt_InStruct(t *testing.T) {
	type TestStruct struct {
		Count FlexInt `json:"count"`
	}

	tests := []struct {
		name     string
		json     string
		expected int
	}{
		{"number", `{"count": 5}`, 5},
		{"string", `{"count": "10"}`, 10},
		{"empty string", `{"count": ""}`, 0},
		{"missing", `{}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s TestStruct
			err := json.Unmarshal([]byte(tt.json), &s)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Count.Int() != tt.expected {
				t.Errorf("Count = %d, want %d", s.Count.Int(), tt.expected)
			}
		})
	}
}

// ========================================
// Status Constants Tests
// ========================================

func TestArticleStatus_Constants(t *testing.T) {
	tests := []struct {
		status ArticleStatus
		want   string
	}{
		{ArticleStatusQueued, "queued"},
		{ArticleStatusExtracted, "extracted"},
		{ArticleStatusEnriched, "enriched"},
		{ArticleStatusPartial, "partial"},
		{ArticleStatusFailed, "failed"},
	}
	for _, tt := range tests {
		if string(tt.status) != tt.want {
			t.Errorf("status = %q, want %q", tt.status, tt.want)
		}
	}
}

func TestJobStatus_Constants(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   string
	}{
		{JobStatusQueued, "queued"},
		{JobStatusQueuedNoEnrich, "queued_no_enrich"},
		{JobStatusRunning, "running"},
		{JobStatusRetry, "retry"},
		{JobStatusDone, "done"},
		{JobStatusFailed, "failed"},
	}
	for _, tt := range tests {
		if string(tt.status) != tt.want {
			t.Errorf("status = %q, want %q", tt.status, tt.want)
		}
	}
}

// ========================================
// JSON Serialization Tests
// ========================================

func TestArticle_JSONSerialization(t *testing.T) {
	published := time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)
	article := Article{
		ArticleID:   "url_abc",
		URL:         "https://example.com/a",
		URLOriginal: "https://Example.com/a?utm_source=x",
		Title:       "Queue design",
		Status:      ArticleStatusEnriched,
		PublishedAt: &published,
		Topics:      []string{"queues"},
		Tags:        []string{},
		Summary:     "One-table queue.",
		Signals: []Signal{
			{
				Claim:             "SKIP LOCKED avoids contention.",
				Why:               "Each claim locks one row.",
				SupportingSnippet: "locks one row per worker",
				Cite:              Cite{ArticleID: "url_abc", SectionID: "s01"},
			},
		},
		Outline:       []OutlineEntry{{SectionID: "s01", Heading: "Claiming"}},
		RawHTML:       "<html>secret</html>",
		ExtractedText: "should not serialize",
	}

	data, err := json.Marshal(article)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if decoded["article_id"] != "url_abc" {
		t.Errorf("article_id = %v, want url_abc", decoded["article_id"])
	}
	if decoded["status"] != "enriched" {
		t.Errorf("status = %v, want enriched", decoded["status"])
	}
	// Raw content never leaves the process via JSON.
	if _, ok := decoded["RawHTML"]; ok {
		t.Error("RawHTML should not serialize")
	}
	if _, ok := decoded["ExtractedText"]; ok {
		t.Error("ExtractedText should not serialize")
	}

	var roundTrip Article
	if err := json.Unmarshal(data, &roundTrip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roundTrip.Signals) != 1 || roundTrip.Signals[0].Cite.SectionID != "s01" {
		t.Errorf("signals did not round-trip: %+v", roundTrip.Signals)
	}
	if roundTrip.PublishedAt == nil || !roundTrip.PublishedAt.Equal(published) {
		t.Errorf("published_at did not round-trip: %v", roundTrip.PublishedAt)
	}
}

func TestSignal_OmitsEmptyOptionalFields(t *testing.T) {
	signal := Signal{
		Claim: "claim",
		Why:   "why",
		Cite:  Cite{ArticleID: "url_abc"},
	}

	data, err := json.Marshal(signal)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := decoded["tradeoff"]; ok {
		t.Error("empty tradeoff should be omitted")
	}
	if _, ok := decoded["supporting_snippet"]; ok {
		t.Error("empty supporting_snippet should be omitted")
	}
	cite, ok := decoded["cite"].(map[string]any)
	if !ok {
		t.Fatalf("cite missing: %v", decoded)
	}
	if _, ok := cite["section_id"]; ok {
		t.Error("empty cite.section_id should be omitted")
	}
}

func TestIngestJob_JSONSerialization(t *testing.T) {
	job := IngestJob{
		JobID:        "j-1",
		URLOriginal:  "https://Example.com/x",
		URLCanonical: "https://example.com/x",
		ArticleID:    "url_x",
		Status:       JobStatusRetry,
		Attempts:     2,
		LastError:    "http_status_503",
	}

	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded["status"] != "retry" {
		t.Errorf("status = %v, want retry", decoded["status"])
	}
	if decoded["last_error"] != "http_status_503" {
		t.Errorf("last_error = %v, want http_status_503", decoded["last_error"])
	}
	if decoded["attempts"] != float64(2) {
		t.Errorf("attempts = %v, want 2", decoded["attempts"])
	}
}

func TestArticle_ZeroValue(t *testing.T) {
	var article Article

	if article.Status != "" {
		t.Errorf("zero Status = %q, want empty", article.Status)
	}
	if article.PublishedAt != nil {
		t.Error("zero PublishedAt should be nil")
	}
	if article.Topics != nil {
		t.Error("zero Topics should be nil")
	}
}
