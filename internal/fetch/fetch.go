// Package fetch retrieves article HTML with a size cap, redirect limit,
// and per-host politeness throttling.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds fetcher settings.
type Config struct {
	MaxBytes     int           // response body cap; bodies past this are truncated
	Timeout      time.Duration // whole-request timeout
	MaxRedirects int
	HostThrottle time.Duration // minimum interval between requests to one host
	UserAgent    string
}

// DefaultConfig returns the standard fetcher settings.
func DefaultConfig() Config {
	return Config{
		MaxBytes:     2_000_000,
		Timeout:      20 * time.Second,
		MaxRedirects: 5,
		HostThrottle: 1200 * time.Millisecond,
		UserAgent:    "context_api/1.0",
	}
}

// Result is the outcome of a successful HTTP fetch. HTTP error statuses are
// reported here, not as Go errors; only transport failures return an error.
type Result struct {
	FinalURL   string
	StatusCode int
	Headers    map[string]string // keys lowercased, first value wins
	HTML       string
	Truncated  bool
}

// Fetcher performs bounded HTTP GETs. Safe for concurrent use; the per-host
// throttle serializes politeness waits across goroutines in this process only.
type Fetcher struct {
	cfg      Config
	client   *http.Client
	throttle *hostThrottle
}

// New creates a fetcher with the given configuration. Zero-valued fields fall
// back to defaults.
func New(cfg Config) *Fetcher {
	def := DefaultConfig()
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = def.MaxRedirects
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}

	return &Fetcher{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= cfg.MaxRedirects {
					return fmt.Errorf("stopped after %d redirects", cfg.MaxRedirects)
				}
				return nil
			},
		},
		throttle: newHostThrottle(cfg.HostThrottle),
	}
}

// Fetch GETs rawURL and returns the decoded body. It blocks until the
// per-host politeness interval has elapsed.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}

	if err := f.throttle.Wait(ctx, u.Hostname()); err != nil {
		return nil, fmt.Errorf("failed to wait for host throttle: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, truncated, err := readCapped(resp.Body, f.cfg.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for name, values := range resp.Header {
		if len(values) > 0 {
			headers[strings.ToLower(name)] = values[0]
		}
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Result{
		FinalURL:   finalURL,
		StatusCode: resp.StatusCode,
		Headers:    headers,
		HTML:       strings.ToValidUTF8(string(body), "�"),
		Truncated:  truncated,
	}, nil
}

// readCapped reads r up to maxBytes. Reading one byte past the cap marks the
// result truncated; the overflow byte is discarded.
func readCapped(r io.Reader, maxBytes int) ([]byte, bool, error) {
	limited := io.LimitReader(r, int64(maxBytes)+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, false, err
	}
	if len(body) > maxBytes {
		return body[:maxBytes], true, nil
	}
	return body, false, nil
}
