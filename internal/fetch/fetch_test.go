package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testFetcher(maxBytes int) *Fetcher {
	return New(Config{
		MaxBytes:     maxBytes,
		Timeout:      5 * time.Second,
		MaxRedirects: 5,
		HostThrottle: 0, // disabled for tests unless set explicitly
		UserAgent:    "context_api/1.0",
	})
}

func TestFetch_Basic(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("ETag", `"abc123"`)
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer server.Close()

	f := testFetcher(1000)
	result, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if result.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", result.StatusCode)
	}
	if !strings.Contains(result.HTML, "hello") {
		t.Errorf("HTML = %q, want body content", result.HTML)
	}
	if result.Truncated {
		t.Error("Truncated = true, want false")
	}
	if gotUA != "context_api/1.0" {
		t.Errorf("User-Agent = %q, want context_api/1.0", gotUA)
	}
	if result.Headers["etag"] != `"abc123"` {
		t.Errorf("Headers[etag] = %q, want lowercased header key", result.Headers["etag"])
	}
	if result.Headers["content-type"] != "text/html; charset=utf-8" {
		t.Errorf("Headers[content-type] = %q", result.Headers["content-type"])
	}
}

func TestFetch_TruncatesAtCap(t *testing.T) {
	body := strings.Repeat("a", 500)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	f := testFetcher(100)
	result, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if !result.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(result.HTML) != 100 {
		t.Errorf("len(HTML) = %d, want 100", len(result.HTML))
	}
}

func TestFetch_ExactCapNotTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer server.Close()

	f := testFetcher(100)
	result, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if result.Truncated {
		t.Error("body exactly at cap should not be marked truncated")
	}
}

func TestFetch_HTTPErrorStatusIsNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	f := testFetcher(1000)
	result, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v, want nil for HTTP 404", err)
	}
	if result.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", result.StatusCode)
	}
}

func TestFetch_FollowsRedirects(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/final" {
			_, _ = w.Write([]byte("arrived"))
			return
		}
		http.Redirect(w, r, server.URL+"/final", http.StatusFound)
	}))
	defer server.Close()

	f := testFetcher(1000)
	result, err := f.Fetch(context.Background(), server.URL+"/start")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !strings.HasSuffix(result.FinalURL, "/final") {
		t.Errorf("FinalURL = %q, want redirect target", result.FinalURL)
	}
	if result.HTML != "arrived" {
		t.Errorf("HTML = %q, want arrived", result.HTML)
	}
}

func TestFetch_RedirectLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/again", http.StatusFound)
	}))
	defer server.Close()

	f := testFetcher(1000)
	if _, err := f.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Fetch() error = nil, want redirect loop error")
	}
}

func TestFetch_NetworkError(t *testing.T) {
	f := testFetcher(1000)
	// Closed server: connection refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	if _, err := f.Fetch(context.Background(), url); err == nil {
		t.Fatal("Fetch() error = nil, want network error")
	}
}

func TestFetch_ReplacesInvalidUTF8(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{'o', 'k', 0xff, 0xfe, '!'})
	}))
	defer server.Close()

	f := testFetcher(1000)
	result, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !strings.HasPrefix(result.HTML, "ok") || !strings.HasSuffix(result.HTML, "!") {
		t.Errorf("HTML = %q, want invalid bytes replaced", result.HTML)
	}
	if strings.ContainsRune(result.HTML, 0xff) {
		t.Error("HTML still contains invalid byte")
	}
}

func TestHostThrottle_EnforcesInterval(t *testing.T) {
	throttle := newHostThrottle(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	if err := throttle.Wait(ctx, "example.com"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	first := time.Since(start)
	if first > 20*time.Millisecond {
		t.Errorf("first Wait took %v, want immediate", first)
	}

	start = time.Now()
	if err := throttle.Wait(ctx, "example.com"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	second := time.Since(start)
	if second < 30*time.Millisecond {
		t.Errorf("second Wait took %v, want ~50ms politeness delay", second)
	}
}

func TestHostThrottle_HostsAreIndependent(t *testing.T) {
	throttle := newHostThrottle(200 * time.Millisecond)
	ctx := context.Background()

	_ = throttle.Wait(ctx, "a.example.com")

	start := time.Now()
	if err := throttle.Wait(ctx, "b.example.com"); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("different host waited %v, want immediate", elapsed)
	}
}

func TestHostThrottle_Disabled(t *testing.T) {
	throttle := newHostThrottle(0)
	start := time.Now()
	for i := 0; i < 10; i++ {
		if err := throttle.Wait(context.Background(), "example.com"); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("disabled throttle waited %v", elapsed)
	}
}

func TestHostThrottle_ContextCancellation(t *testing.T) {
	throttle := newHostThrottle(10 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	_ = throttle.Wait(ctx, "example.com")

	done := make(chan error, 1)
	go func() {
		done <- throttle.Wait(ctx, "example.com")
	}()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Wait() error = nil, want context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after cancellation")
	}
}
