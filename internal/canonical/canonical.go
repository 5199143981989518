// Package canonical normalizes URLs into the stable form used for article
// identity and deduplication.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// trackingKeys are query parameters stripped during canonicalization.
// Matching is case-insensitive.
var trackingKeys = map[string]struct{}{
	"utm_source":      {},
	"utm_medium":      {},
	"utm_campaign":    {},
	"utm_term":        {},
	"utm_content":     {},
	"utm_id":          {},
	"utm_name":        {},
	"utm_cid":         {},
	"utm_reader":      {},
	"utm_viz_id":      {},
	"utm_pubreferrer": {},
	"utm_swu":         {},
	"gclid":           {},
	"fbclid":          {},
	"mc_cid":          {},
	"mc_eid":          {},
	"ref":             {},
	"ref_src":         {},
}

type queryPair struct {
	key   string
	value string
}

// URL returns the canonical form of raw. Canonicalization is idempotent:
// URL(URL(s)) == URL(s). Empty or unparseable input returns "".
func URL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	host = strings.TrimSuffix(host, defaultPort(scheme))

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	} else if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	query := canonicalQuery(u.RawQuery)

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(path)
	if query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}
	return b.String()
}

// canonicalQuery drops tracking and empty-value pairs, sorts the remainder
// by key then value, and re-encodes.
func canonicalQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	var pairs []queryPair
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			k = key
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			v = value
		}
		if k == "" || v == "" {
			continue
		}
		if _, tracked := trackingKeys[strings.ToLower(k)]; tracked {
			continue
		}
		pairs = append(pairs, queryPair{key: k, value: v})
	}
	if len(pairs) == 0 {
		return ""
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, url.QueryEscape(p.key)+"="+url.QueryEscape(p.value))
	}
	return strings.Join(parts, "&")
}

func defaultPort(scheme string) string {
	switch scheme {
	case "http":
		return ":80"
	case "https":
		return ":443"
	}
	return ""
}

// ArticleID derives the deterministic article identifier for a canonical URL.
func ArticleID(canonicalURL string) (string, error) {
	if canonicalURL == "" {
		return "", fmt.Errorf("cannot compute article id for empty url")
	}
	sum := sha256.Sum256([]byte(canonicalURL))
	return "url_" + hex.EncodeToString(sum[:]), nil
}
