package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/orgpulse/newsharvest/app/fetcher"
)

func newTestFetcher() *fetcher.Client {
	return fetcher.New(fetcher.Options{Timeout: 5 * time.Second, MaxConcurrent: 2})
}

func serveHTML(t *testing.T, html string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
	}))
}

func TestDiscoverer_Run_FiltersTagAndSelfLinks(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body>
			<a href="/news/story-one">One</a>
			<a href="/news/story-two">Two</a>
			<a href="https://other.example.org/coverage/article">Three</a>
			<a href="/tag/fundraising">Tag</a>
			<a href="%s/news">Self</a>
		</body></html>`, server.URL)
	}))
	defer server.Close()

	d := NewDiscoverer(newTestFetcher(), 100)

	candidates, err := d.Run(context.Background(), server.URL+"/news", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(candidates) != 3 {
		t.Fatalf("Expected exactly 3 candidates, got %d: %+v", len(candidates), candidates)
	}
	for _, c := range candidates {
		if strings.Contains(c.URL, "/tag/") {
			t.Errorf("Tag link must be excluded: %s", c.URL)
		}
		if strings.TrimSuffix(c.URL, "/") == server.URL+"/news" {
			t.Errorf("Seed self-link must be excluded: %s", c.URL)
		}
	}
}

func TestDiscoverer_Run_ClassifiesByHost(t *testing.T) {
	server := serveHTML(t, `<html><body>
		<a href="/news/own-post">Own</a>
		<a href="https://press.example.org/articles/coverage">External</a>
	</body></html>`)
	defer server.Close()

	d := NewDiscoverer(newTestFetcher(), 100)

	candidates, err := d.Run(context.Background(), server.URL+"/news", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(candidates))
	}

	byURL := make(map[string]Candidate)
	for _, c := range candidates {
		byURL[c.URL] = c
	}

	if c := byURL[server.URL+"/news/own-post"]; c.Classification != "post" {
		t.Errorf("Same-host candidate should be classified post, got %q", c.Classification)
	}
	if c := byURL["https://press.example.org/articles/coverage"]; c.Classification != "news" {
		t.Errorf("Cross-host candidate should be classified news, got %q", c.Classification)
	}
}

func TestDiscoverer_Run_PatternMatchers(t *testing.T) {
	server := serveHTML(t, `<html><body>
		<div data-href="/news/data-href-story">card</div>
		<div onclick="location.href='/news/onclick-story'">clicky</div>
		<script>var items = [{"url":"/news/json-story","id":1}];</script>
	</body></html>`)
	defer server.Close()

	d := NewDiscoverer(newTestFetcher(), 100)

	candidates, err := d.Run(context.Background(), server.URL+"/news", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{
		server.URL + "/news/data-href-story",
		server.URL + "/news/onclick-story",
		server.URL + "/news/json-story",
	}
	found := make(map[string]bool)
	for _, c := range candidates {
		found[c.URL] = true
	}
	for _, url := range want {
		if !found[url] {
			t.Errorf("Expected candidate %s, got %+v", url, candidates)
		}
	}
}

func TestDiscoverer_Run_DedupsAgainstKnownURLs(t *testing.T) {
	server := serveHTML(t, `<html><body>
		<a href="/news/known-story">Known</a>
		<a href="/news/new-story">New</a>
	</body></html>`)
	defer server.Close()

	d := NewDiscoverer(newTestFetcher(), 100)

	known := map[string]bool{server.URL + "/news/known-story": true}
	candidates, err := d.Run(context.Background(), server.URL+"/news", known)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(candidates) != 1 {
		t.Fatalf("Expected 1 candidate after dedup, got %d", len(candidates))
	}
	if candidates[0].URL != server.URL+"/news/new-story" {
		t.Errorf("Unexpected candidate: %s", candidates[0].URL)
	}
}

func TestDiscoverer_Run_CapsResults(t *testing.T) {
	var links strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&links, `<a href="/news/story-%02d">s</a>`, i)
	}
	server := serveHTML(t, "<html><body>"+links.String()+"</body></html>")
	defer server.Close()

	d := NewDiscoverer(newTestFetcher(), 10)

	candidates, err := d.Run(context.Background(), server.URL+"/news", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(candidates) != 10 {
		t.Errorf("Expected results capped at 10, got %d", len(candidates))
	}
}

func TestDiscoverer_Run_SeedFetchFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := NewDiscoverer(newTestFetcher(), 100)

	candidates, err := d.Run(context.Background(), server.URL+"/news", nil)
	if err == nil {
		t.Fatal("Expected error for failing seed fetch")
	}
	if candidates != nil {
		t.Errorf("No partial results allowed on seed failure, got %+v", candidates)
	}
}

func TestDiscoverer_Run_FeedSeed(t *testing.T) {
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>News</title>
<item><title>Story A</title><link>https://example.org/news/story-a</link></item>
<item><title>Story B</title><link>https://example.org/news/story-b</link></item>
</channel></rss>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feed))
	}))
	defer server.Close()

	d := NewDiscoverer(newTestFetcher(), 100)

	candidates, err := d.Run(context.Background(), server.URL+"/rss", nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates from feed, got %d", len(candidates))
	}
	for _, c := range candidates {
		if c.Classification != "news" {
			t.Errorf("Feed entries on another host should be news, got %q for %s", c.Classification, c.URL)
		}
	}
}
