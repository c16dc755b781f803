package discovery

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	nurl "net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/orgpulse/newsharvest/app/fetcher"
)

// Candidate is one discovered article link.
type Candidate struct {
	URL            string
	Classification string // "post" for same-host, "news" for cross-host
	Domain         string
}

type FetchClient interface {
	Get(ctx context.Context, url string) (*fetcher.Result, error)
}

// Discoverer fetches an organization's seed news page and collects candidate
// article URLs from it.
type Discoverer struct {
	fetch FetchClient
	limit int
}

func NewDiscoverer(fetch FetchClient, limit int) *Discoverer {
	if limit <= 0 {
		limit = 100
	}
	return &Discoverer{fetch: fetch, limit: limit}
}

var (
	onclickURLRe  = regexp.MustCompile(`(?:location\.href|window\.open)\s*\(?\s*=?\s*['"]([^'"]+)['"]`)
	jsonURLRe     = regexp.MustCompile(`"url"\s*:\s*"((?:https?:)?/[^"]+)"`)
	excludedPaths = []string{"/category/", "/tag/", "/page/", "/archive/", "/feed/"}
	excludedExts  = []string{".rss", ".atom", ".xml", ".json"}
)

// Run fetches the seed page and returns an ordered, deduplicated, capped
// list of classified candidates. A failed seed fetch is fatal to discovery
// for the session; there are no partial results.
func (d *Discoverer) Run(ctx context.Context, seedURL string, knownURLs map[string]bool) ([]Candidate, error) {
	seed, err := nurl.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed url %q: %w", seedURL, err)
	}

	result, err := d.fetch.Get(ctx, seedURL)
	if err != nil {
		return nil, fmt.Errorf("seed fetch failed: %w", err)
	}

	var raw []string
	if isFeed(result) {
		raw = collectFeedLinks(result.Body)
	} else {
		raw, err = collectPageLinks(result.Body)
		if err != nil {
			return nil, fmt.Errorf("seed parse failed: %w", err)
		}
	}

	seen := make(map[string]bool)
	var candidates []Candidate
	for _, link := range raw {
		resolved, ok := resolve(seed, link)
		if !ok {
			continue
		}
		if seen[resolved.String()] || knownURLs[resolved.String()] {
			continue
		}
		if excluded(seed, resolved) {
			continue
		}

		seen[resolved.String()] = true
		candidates = append(candidates, Candidate{
			URL:            resolved.String(),
			Classification: classify(seed, resolved),
			Domain:         resolved.Hostname(),
		})

		if len(candidates) >= d.limit {
			break
		}
	}

	slog.Debug("Discovery finished", "seed", seedURL,
		"raw_links", len(raw), "candidates", len(candidates))

	return candidates, nil
}

// collectPageLinks applies the fixed pattern matchers to an HTML page: href
// attributes, data-href/onclick attributes, and "url": fragments embedded in
// scripts.
func collectPageLinks(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var links []string

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			links = append(links, href)
		}
	})

	doc.Find("[data-href]").Each(func(i int, s *goquery.Selection) {
		if href, ok := s.Attr("data-href"); ok {
			links = append(links, href)
		}
	})

	doc.Find("[onclick]").Each(func(i int, s *goquery.Selection) {
		onclick, _ := s.Attr("onclick")
		for _, match := range onclickURLRe.FindAllStringSubmatch(onclick, -1) {
			links = append(links, match[1])
		}
	})

	doc.Find("script").Each(func(i int, s *goquery.Selection) {
		for _, match := range jsonURLRe.FindAllStringSubmatch(s.Text(), -1) {
			links = append(links, strings.ReplaceAll(match[1], `\/`, "/"))
		}
	})

	return links, nil
}

// collectFeedLinks handles seeds that serve RSS/Atom instead of HTML.
func collectFeedLinks(body []byte) []string {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		slog.Warn("Seed looked like a feed but failed to parse", "error", err)
		return nil
	}

	var links []string
	for _, item := range feed.Items {
		if item.Link != "" {
			links = append(links, item.Link)
		}
	}
	return links
}

func isFeed(result *fetcher.Result) bool {
	ct := strings.ToLower(result.ContentType)
	if strings.Contains(ct, "rss") || strings.Contains(ct, "atom") || strings.Contains(ct, "xml") {
		return true
	}
	head := strings.TrimSpace(string(result.Body))
	return strings.HasPrefix(head, "<?xml") || strings.HasPrefix(head, "<rss")
}

func resolve(seed *nurl.URL, link string) (*nurl.URL, bool) {
	link = strings.TrimSpace(link)
	if link == "" || strings.HasPrefix(link, "#") {
		return nil, false
	}

	ref, err := nurl.Parse(link)
	if err != nil {
		return nil, false
	}

	resolved := seed.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil, false
	}
	resolved.Fragment = ""

	return resolved, true
}

// excluded drops the seed itself, listing/taxonomy paths, and syndication
// endpoints.
func excluded(seed, u *nurl.URL) bool {
	if sameURL(seed, u) {
		return true
	}

	path := strings.ToLower(u.Path)
	for _, segment := range excludedPaths {
		if strings.Contains(path, segment) {
			return true
		}
	}
	for _, ext := range excludedExts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	// Bare hosts and single slashes are landing pages, not articles.
	return path == "" || path == "/"
}

func sameURL(a, b *nurl.URL) bool {
	return a.Hostname() == b.Hostname() &&
		strings.TrimSuffix(a.Path, "/") == strings.TrimSuffix(b.Path, "/")
}

// classify tags same-host candidates as posts and cross-host candidates as
// external news coverage.
func classify(seed, u *nurl.URL) string {
	if seed.Hostname() == u.Hostname() {
		return "post"
	}
	return "news"
}
