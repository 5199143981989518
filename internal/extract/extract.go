// Package extract turns fetched HTML into readable article text plus
// title/author/published-at metadata, using a tiered extractor cascade.
package extract

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// DefaultMaxChars caps extracted text length.
const DefaultMaxChars = 120_000

// Extractor methods, in cascade order.
const (
	MethodTrafilatura = "trafilatura"
	MethodReadability = "readability"
	MethodFallback    = "fallback"
)

// Result is the outcome of one extraction.
type Result struct {
	Text        string
	Title       string
	Author      string
	PublishedAt *time.Time
	Method      string
	Confidence  float64
	Warnings    []string
}

// Extractor runs the cascade: trafilatura, then readability, then a bare
// tag-stripping fallback. The first extractor yielding non-empty text wins.
type Extractor struct {
	maxChars int
}

// New creates an extractor. maxChars <= 0 uses DefaultMaxChars.
func New(maxChars int) *Extractor {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Extractor{maxChars: maxChars}
}

// Extract runs the cascade over rawHTML. pageURL helps the extractors resolve
// relative links and date hints; an unparseable pageURL is ignored.
func (e *Extractor) Extract(rawHTML, pageURL string) *Result {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = nil
	}

	result := extractTrafilatura(rawHTML, u)
	if result == nil {
		result = extractReadability(rawHTML, u)
	}
	if result == nil {
		result = extractFallback(rawHTML)
	}

	// Only trafilatura surfaces a date itself; for the other tiers, or when
	// it found none, harvest the document's metadata.
	if result.PublishedAt == nil {
		result.PublishedAt = metaPublishedAt(rawHTML)
	}

	result.Text = strings.TrimSpace(result.Text)
	if len(result.Text) > e.maxChars {
		result.Text = cutAtRuneBoundary(result.Text, e.maxChars)
		result.Warnings = append(result.Warnings, "text_truncated")
	}
	return result
}

// cutAtRuneBoundary truncates s to at most max bytes, backing up so a
// multi-byte rune is never split. Split runes would make the stored text
// invalid UTF-8, which Postgres rejects.
func cutAtRuneBoundary(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func extractTrafilatura(rawHTML string, u *url.URL) *Result {
	opts := trafilatura.Options{
		OriginalURL:     u,
		ExcludeComments: true,
	}
	extracted, err := trafilatura.Extract(strings.NewReader(rawHTML), opts)
	if err != nil || extracted == nil || strings.TrimSpace(extracted.ContentText) == "" {
		return nil
	}

	result := &Result{
		Text:       extracted.ContentText,
		Title:      strings.TrimSpace(extracted.Metadata.Title),
		Author:     strings.TrimSpace(extracted.Metadata.Author),
		Method:     MethodTrafilatura,
		Confidence: 0.7,
	}
	if !extracted.Metadata.Date.IsZero() {
		date := extracted.Metadata.Date.UTC()
		result.PublishedAt = &date
	}
	return result
}

func extractReadability(rawHTML string, u *url.URL) *Result {
	article, err := readability.FromReader(strings.NewReader(rawHTML), u)
	if err != nil || strings.TrimSpace(article.TextContent) == "" {
		return nil
	}
	return &Result{
		Text:       article.TextContent,
		Title:      strings.TrimSpace(article.Title),
		Author:     strings.TrimSpace(article.Byline),
		Method:     MethodReadability,
		Confidence: 0.5,
	}
}

// extractFallback strips script/style/noscript and joins the remaining text
// nodes with newlines. Always returns a result, possibly with empty text.
func extractFallback(rawHTML string) *Result {
	result := &Result{
		Method:     MethodFallback,
		Confidence: 0.4,
		Warnings:   []string{"fallback_extractor"},
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return result
	}

	result.Title = strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, noscript, title").Remove()

	var lines []string
	for _, node := range doc.Nodes {
		collectText(node, &lines)
	}
	result.Text = strings.Join(lines, "\n")
	return result
}

// collectText appends each non-blank text node as one line, depth first.
// Blank lines collapse away because empty nodes are skipped entirely.
func collectText(n *html.Node, lines *[]string) {
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			*lines = append(*lines, text)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, lines)
	}
}

// metaDateSelectors are the published-at hints checked in priority order.
var metaDateSelectors = []string{
	`meta[property="article:published_time"]`,
	`meta[itemprop="datePublished"]`,
	`meta[name="date"]`,
}

// metaPublishedAt pulls a published-at date out of the document's meta tags.
// Unparseable values fall through to the next selector.
func metaPublishedAt(rawHTML string) *time.Time {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}
	for _, sel := range metaDateSelectors {
		if value, ok := doc.Find(sel).First().Attr("content"); ok {
			if t := ParseDate(value); t != nil {
				return t
			}
		}
	}
	return nil
}

// isoLayouts are tried in order before falling back to lenient parsing.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a published-at string from HTML metadata. Returns nil when
// the value cannot be parsed.
func ParseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	if t, err := dateparse.ParseAny(value); err == nil {
		t = t.UTC()
		return &t
	}
	return nil
}
