// Package enrich calls a chat-completions endpoint to produce an article
// summary plus grounded signals, and validates the response structurally
// and semantically before it is persisted.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"contextapi/internal/models"
)

// PromptVersion tags enrichment metadata so stored results can be traced
// back to the prompt that produced them.
const PromptVersion = "v1"

const systemPrompt = "Return strict JSON only. No markdown. Follow the provided instructions."

const defaultModel = "gpt-4.1-mini"

const llmTimeout = 30 * time.Second

// Limits bound the enrichment output. Violations fail the enrichment.
type Limits struct {
	SummaryMaxChars    int
	SignalsMax         int
	SignalFieldMax     int
	SnippetMax         int
	SectionPromptChars int // per-section content cap in the prompt
}

// DefaultLimits returns the standard enrichment bounds.
func DefaultLimits() Limits {
	return Limits{
		SummaryMaxChars:    900,
		SignalsMax:         8,
		SignalFieldMax:     280,
		SnippetMax:         200,
		SectionPromptChars: 2000,
	}
}

// Config holds enricher settings.
type Config struct {
	APIBase string // chat-completions base URL override; empty uses the default
	APIKey  string
	Model   string
	Limits  Limits
}

// Result is a validated enrichment. FreshnessHalfLifeDays is a FlexInt
// because models sometimes return it as a quoted number.
type Result struct {
	Summary               string          `json:"summary"`
	Signals               []Signal        `json:"signals"`
	Topics                []string        `json:"topics"`
	FreshnessHalfLifeDays *models.FlexInt `json:"freshness_half_life_days,omitempty"`
}

// Signal is the wire form of one enrichment signal.
type Signal struct {
	Claim             string `json:"claim"`
	Why               string `json:"why"`
	Tradeoff          string `json:"tradeoff,omitempty"`
	SupportingSnippet string `json:"supporting_snippet"`
	Cite              Cite   `json:"cite"`
}

// Cite names the section grounding a signal.
type Cite struct {
	SectionID string `json:"section_id"`
}

// Meta describes how an enrichment was produced.
type Meta struct {
	Model         string         `json:"model"`
	PromptVersion string         `json:"prompt_version"`
	TokenUsage    map[string]int `json:"token_usage"`
}

// ValidationError reports an enrichment response that failed structural or
// grounding checks. Not retryable with the same response.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErr(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// completionFunc issues one chat-completion request. Swapped out in tests.
type completionFunc func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)

// Enricher produces summaries and signals for extracted articles.
type Enricher struct {
	model    string
	limits   Limits
	complete completionFunc
}

// New creates an enricher backed by the configured chat-completions endpoint.
func New(cfg Config) *Enricher {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBase != "" {
		clientCfg.BaseURL = cfg.APIBase
	}
	clientCfg.HTTPClient = &http.Client{Timeout: llmTimeout}
	client := openai.NewClientWithConfig(clientCfg)

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	limits := cfg.Limits
	if limits.SummaryMaxChars <= 0 {
		limits = DefaultLimits()
	}

	return &Enricher{
		model:    model,
		limits:   limits,
		complete: client.CreateChatCompletion,
	}
}

// Enrich asks the model for a summary and grounded signals for the given
// sections, then validates the response. The returned Meta is persisted as
// enrichment_meta regardless of downstream handling.
func (e *Enricher) Enrich(ctx context.Context, title, url string, sections []models.Section) (*Result, *Meta, error) {
	prompt, err := e.buildPrompt(title, url, sections)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	resp, err := e.complete(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to call enrichment model: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil, fmt.Errorf("enrichment response has no choices")
	}

	result, err := e.parseAndValidate(resp.Choices[0].Message.Content, sections)
	if err != nil {
		return nil, nil, err
	}

	meta := &Meta{
		Model:         e.model,
		PromptVersion: PromptVersion,
		TokenUsage: map[string]int{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"total_tokens":      resp.Usage.TotalTokens,
		},
	}
	return result, meta, nil
}

// promptPayload is the JSON document sent as the user message.
type promptPayload struct {
	Title        string            `json:"title"`
	URL          string            `json:"url"`
	Sections     []promptSection   `json:"sections"`
	Instructions promptInstruction `json:"instructions"`
}

type promptSection struct {
	SectionID string `json:"section_id"`
	Content   string `json:"content"`
}

type promptInstruction struct {
	SummaryMaxChars           int `json:"summary_max_chars"`
	SignalsMax                int `json:"signals_max"`
	SignalFieldMaxChars       int `json:"signal_field_max_chars"`
	SupportingSnippetMaxChars int `json:"supporting_snippet_max_chars"`
}

func (e *Enricher) buildPrompt(title, url string, sections []models.Section) (string, error) {
	payload := promptPayload{
		Title:    title,
		URL:      url,
		Sections: make([]promptSection, 0, len(sections)),
		Instructions: promptInstruction{
			SummaryMaxChars:           e.limits.SummaryMaxChars,
			SignalsMax:                e.limits.SignalsMax,
			SignalFieldMaxChars:       e.limits.SignalFieldMax,
			SupportingSnippetMaxChars: e.limits.SnippetMax,
		},
	}
	for _, s := range sections {
		payload.Sections = append(payload.Sections, promptSection{
			SectionID: s.SectionID,
			Content:   trimWithEllipsis(s.Content, e.limits.SectionPromptChars),
		})
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// trimWithEllipsis cuts s to max chars, reserving room for the "..." suffix.
// The cut backs up to a rune boundary so the result stays valid UTF-8.
func trimWithEllipsis(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max - 3
	if cut < 0 {
		cut = 0
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimRight(s[:cut], " \t\n") + "..."
}

// parseAndValidate decodes the model output as strict JSON and enforces the
// size and grounding rules. The first violation fails the whole enrichment.
func (e *Enricher) parseAndValidate(content string, sections []models.Section) (*Result, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(strings.TrimSpace(content))))
	decoder.DisallowUnknownFields()

	var result Result
	if err := decoder.Decode(&result); err != nil {
		return nil, validationErr("response is not valid JSON: %v", err)
	}

	if len(result.Summary) > e.limits.SummaryMaxChars {
		return nil, validationErr("summary too long: %d > %d", len(result.Summary), e.limits.SummaryMaxChars)
	}
	if len(result.Signals) > e.limits.SignalsMax {
		return nil, validationErr("too many signals: %d > %d", len(result.Signals), e.limits.SignalsMax)
	}

	contentByID := make(map[string]string, len(sections))
	for _, s := range sections {
		contentByID[s.SectionID] = s.Content
	}

	for i, sig := range result.Signals {
		if len(sig.Claim) > e.limits.SignalFieldMax || len(sig.Why) > e.limits.SignalFieldMax {
			return nil, validationErr("signal field too long in signal %d", i)
		}
		if len(sig.Tradeoff) > e.limits.SignalFieldMax {
			return nil, validationErr("tradeoff too long in signal %d", i)
		}
		if len(sig.SupportingSnippet) > e.limits.SnippetMax {
			return nil, validationErr("supporting_snippet too long in signal %d", i)
		}
		sectionContent, ok := contentByID[sig.Cite.SectionID]
		if !ok {
			return nil, validationErr("invalid section_id: %s", sig.Cite.SectionID)
		}
		if !strings.Contains(sectionContent, sig.SupportingSnippet) {
			return nil, validationErr("supporting_snippet not found in section content")
		}
	}

	// The configured cap may be raised for prompting experiments; stored
	// summaries always stay within the standard bound.
	result.Summary = trimWithEllipsis(result.Summary, DefaultLimits().SummaryMaxChars)

	return &result, nil
}

// ToModelSignals converts wire signals to stored signals, stamping the
// article ID into each cite.
func ToModelSignals(articleID string, signals []Signal) []models.Signal {
	out := make([]models.Signal, 0, len(signals))
	for _, s := range signals {
		out = append(out, models.Signal{
			Claim:             s.Claim,
			Why:               s.Why,
			Tradeoff:          s.Tradeoff,
			SupportingSnippet: s.SupportingSnippet,
			Cite: models.Cite{
				ArticleID: articleID,
				SectionID: s.Cite.SectionID,
			},
		})
	}
	return out
}
