package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"contextapi/internal/models"
	"contextapi/internal/repository"
)

// Pack assembly defaults.
const (
	DefaultMaxItems    = 3
	DefaultTokenBudget = 800

	// maxSignalsPerItem caps the signals carried by one pack item regardless
	// of how many the article stores.
	maxSignalsPerItem = 3
)

// expandKeywords mark queries that want implementation detail; a med-confidence
// match on any of them steers the caller toward section expansion.
var expandKeywords = []string{
	"implement", "implementation", "detail", "details", "how", "steps",
	"code", "example", "schema", "query", "sql", "config", "configuration",
}

// RetrievalService assembles budgeted context packs from stored articles.
type RetrievalService struct {
	repos  *repository.Repositories
	logger *slog.Logger
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(repos *repository.Repositories, logger *slog.Logger) *RetrievalService {
	return &RetrievalService{
		repos:  repos,
		logger: logger.With("component", "retrieval_service"),
	}
}

// PackRequest is one context-pack query. Zero values take the defaults.
type PackRequest struct {
	Query       string
	Topics      []string
	TokenBudget int
	RecencyDays int
	MaxItems    int
}

// PackSignal is a stored signal projected into a pack item: the supporting
// snippet stays server-side, the cite pointer travels.
type PackSignal struct {
	Claim    string      `json:"claim"`
	Why      string      `json:"why"`
	Tradeoff string      `json:"tradeoff,omitempty"`
	Cite     models.Cite `json:"cite"`
}

// Citation is one deduplicated evidence pointer for a pack item.
type Citation struct {
	URL       string `json:"url"`
	ArticleID string `json:"article_id"`
	SectionID string `json:"section_id,omitempty"`
}

// PackItem is one article's contribution to a context pack.
type PackItem struct {
	ArticleID string       `json:"article_id"`
	Title     string       `json:"title"`
	URL       string       `json:"url"`
	Summary   string       `json:"summary"`
	Signals   []PackSignal `json:"signals"`
	Citations []Citation   `json:"citations"`
}

// Pack is the assembled item list.
type Pack struct {
	Items []PackItem `json:"items"`
}

// Trace identifies one retrieval for debugging and evaluation.
type Trace struct {
	TraceID             string           `json:"trace_id"`
	RetrievedArticleIDs []string         `json:"retrieved_article_ids"`
	TimingMS            map[string]int64 `json:"timing_ms"`
}

// PackResponse is the full context-pack result.
type PackResponse struct {
	Pack                Pack   `json:"pack"`
	RetrievalConfidence string `json:"retrieval_confidence"` // high, med, low
	NextAction          string `json:"next_action"`          // proceed, refine_query, expand_sections
	Trace               Trace  `json:"trace"`
}

// budget holds the derived character limits for one pack request.
type budget struct {
	charBudget      int
	maxSummaryChars int
	maxSignalChars  int
}

func computeBudget(tokenBudget, maxItems int) budget {
	if tokenBudget < 1 {
		tokenBudget = 1
	}
	charBudget := tokenBudget * 4
	perItem := charBudget / maxItems
	if perItem < 200 {
		perItem = 200
	}
	maxSummary := perItem * 6 / 10
	if maxSummary > 400 {
		maxSummary = 400
	}
	maxSignal := perItem * 4 / 10
	if maxSignal > 240 {
		maxSignal = 240
	}
	return budget{charBudget: charBudget, maxSummaryChars: maxSummary, maxSignalChars: maxSignal}
}

// ContextPack runs FTS over stored articles and packs the ranked results into
// the token budget.
func (s *RetrievalService) ContextPack(ctx context.Context, req *PackRequest) (*PackResponse, error) {
	start := time.Now()

	maxItems := req.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	tokenBudget := req.TokenBudget
	if tokenBudget <= 0 {
		tokenBudget = DefaultTokenBudget
	}
	b := computeBudget(tokenBudget, maxItems)

	hits, err := s.repos.Article.Search(ctx, req.Query, maxItems*5, req.RecencyDays)
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}
	candidates := filterByTopics(hits, req.Topics)

	items := make([]PackItem, 0, maxItems)
	usedChars := 0
	for _, hit := range candidates {
		if len(items) >= maxItems {
			break
		}
		item, size, ok := buildPackItem(&hit.Article, b)
		if !ok {
			continue
		}
		if usedChars+size > b.charBudget {
			if len(items) > 0 {
				break
			}
			// Nothing packed yet: shrink the summary until the item fits
			// rather than returning an empty pack.
			retrim := b.charBudget / 4
			if retrim < 80 {
				retrim = 80
			}
			item.Summary = trimTo(item.Summary, retrim)
			size = itemSize(item)
		}
		items = append(items, item)
		usedChars += size
	}

	confidence := classifyConfidence(candidates, items)
	response := &PackResponse{
		Pack:                Pack{Items: items},
		RetrievalConfidence: confidence,
		NextAction:          chooseNextAction(confidence, req.Query),
		Trace: Trace{
			TraceID:             uuid.NewString(),
			RetrievedArticleIDs: articleIDs(items),
			TimingMS:            map[string]int64{"total": time.Since(start).Milliseconds()},
		},
	}

	s.logger.Info("context pack assembled",
		"trace_id", response.Trace.TraceID,
		"candidates", len(candidates),
		"items", len(items),
		"confidence", confidence,
		"next_action", response.NextAction,
	)
	return response, nil
}

// filterByTopics keeps hits whose topics intersect the filter. Both sides are
// normalized with trim+lowercase. An empty filter keeps everything.
func filterByTopics(hits []models.SearchHit, topics []string) []models.SearchHit {
	wanted := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			wanted[t] = struct{}{}
		}
	}
	if len(wanted) == 0 {
		return hits
	}

	out := make([]models.SearchHit, 0, len(hits))
	for _, hit := range hits {
		for _, t := range hit.Article.Topics {
			if _, ok := wanted[strings.ToLower(strings.TrimSpace(t))]; ok {
				out = append(out, hit)
				break
			}
		}
	}
	return out
}

// buildPackItem projects an article into a pack item. Articles without an ID
// or without at least one valid signal are dropped.
func buildPackItem(article *models.Article, b budget) (PackItem, int, bool) {
	if article.ArticleID == "" {
		return PackItem{}, 0, false
	}

	signals := make([]PackSignal, 0, maxSignalsPerItem)
	for _, sig := range article.Signals {
		if len(signals) >= maxSignalsPerItem {
			break
		}
		claim := trimTo(strings.TrimSpace(sig.Claim), b.maxSignalChars)
		if claim == "" {
			continue
		}
		signals = append(signals, PackSignal{
			Claim:    claim,
			Why:      trimTo(strings.TrimSpace(sig.Why), b.maxSignalChars),
			Tradeoff: trimTo(strings.TrimSpace(sig.Tradeoff), b.maxSignalChars),
			Cite:     sig.Cite,
		})
	}
	if len(signals) == 0 {
		return PackItem{}, 0, false
	}

	item := PackItem{
		ArticleID: article.ArticleID,
		Title:     article.Title,
		URL:       article.URL,
		Summary:   trimTo(article.Summary, b.maxSummaryChars),
		Signals:   signals,
		Citations: buildCitations(article.URL, signals),
	}
	return item, itemSize(item), true
}

func itemSize(item PackItem) int {
	size := len(item.Summary)
	for _, sig := range item.Signals {
		size += len(sig.Claim) + len(sig.Why) + len(sig.Tradeoff)
	}
	return size
}

// buildCitations dedupes (article_id, section_id) pairs in signal order.
func buildCitations(url string, signals []PackSignal) []Citation {
	seen := make(map[string]struct{}, len(signals))
	out := make([]Citation, 0, len(signals))
	for _, sig := range signals {
		key := sig.Cite.ArticleID + "\x00" + sig.Cite.SectionID
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Citation{
			URL:       url,
			ArticleID: sig.Cite.ArticleID,
			SectionID: sig.Cite.SectionID,
		})
	}
	return out
}

// classifyConfidence grades the retrieval from the top candidate's FTS score
// and how well the first packed item is cited.
func classifyConfidence(candidates []models.SearchHit, items []PackItem) string {
	if len(items) == 0 || len(candidates) == 0 {
		return "low"
	}
	topScore := candidates[0].Score
	if topScore < 0.05 {
		return "low"
	}
	cited := 0
	for _, sig := range items[0].Signals {
		if sig.Cite.SectionID != "" {
			cited++
		}
	}
	if topScore >= 0.2 && cited >= 2 {
		return "high"
	}
	return "med"
}

func chooseNextAction(confidence, query string) string {
	switch confidence {
	case "low":
		return "refine_query"
	case "med":
		lower := strings.ToLower(query)
		for _, kw := range expandKeywords {
			if strings.Contains(lower, kw) {
				return "expand_sections"
			}
		}
	}
	return "proceed"
}

func articleIDs(items []PackItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ArticleID)
	}
	return ids
}

// trimTo hard-truncates s to max chars, dropping a trailing partial word's
// whitespace. The cut backs up to a rune boundary so the result stays valid
// UTF-8.
func trimTo(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return strings.TrimSpace(s[:max])
}
