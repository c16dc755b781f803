package extraction

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/orgpulse/newsharvest/app/fetcher"
	"github.com/orgpulse/newsharvest/app/images"
)

// fallbackParagraphLimit caps how many <p> tags the heuristic body uses.
const fallbackParagraphLimit = 10

// FetchClient is the slice of the rate-limited fetcher the fallback needs.
type FetchClient interface {
	Get(ctx context.Context, url string) (*fetcher.Result, error)
}

// Fallback is tier 2: a raw fetch plus heuristic HTML parsing, entered only
// when the structured service fails.
type Fallback struct {
	fetch FetchClient
}

var _ Service = (*Fallback)(nil)

func NewFallback(fetch FetchClient) *Fallback {
	return &Fallback{fetch: fetch}
}

func (f *Fallback) Extract(ctx context.Context, url string) (*Content, error) {
	result, err := f.fetch.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fallback fetch: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(result.Body))
	if err != nil {
		return nil, fmt.Errorf("fallback parse: %w", err)
	}

	content := &Content{
		URL:     url,
		Title:   extractTitle(doc),
		Tier:    2,
		RawBody: string(result.Body),
	}

	content.Content = extractBody(result.Body, url, doc)
	content.MainImage, content.Images = extractImages(doc, result.Body, url)

	if desc, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		content.Summary = desc
	} else if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		content.Summary = desc
	}
	if author, ok := doc.Find(`meta[name="author"]`).Attr("content"); ok {
		content.Author = author
	}

	if content.Title == "" {
		return nil, fmt.Errorf("fallback found no title for %s", url)
	}

	slog.Debug("Fallback extraction succeeded", "url", url,
		"title", content.Title, "content_length", len(content.Content))

	return content, nil
}

// extractTitle prefers <title>, then og:title, then the first <h1>.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if title, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if title = strings.TrimSpace(title); title != "" {
			return title
		}
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// extractBody runs readability over the page and falls back to concatenating
// the first paragraphs when readability yields nothing usable.
func extractBody(raw []byte, url string, doc *goquery.Document) string {
	pageURL, _ := nurl.Parse(url)

	article, err := readability.FromReader(bytes.NewReader(raw), pageURL)
	if err == nil && len(strings.TrimSpace(article.TextContent)) >= minBodyLength {
		return strings.TrimSpace(article.TextContent)
	}

	var paragraphs []string
	doc.Find("p").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if text := strings.TrimSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
		return len(paragraphs) < fallbackParagraphLimit
	})

	return strings.Join(paragraphs, "\n\n")
}

// extractImages harvests candidates from <img> tags, style attributes, and
// <style> blocks, filtered of tracking pixels and icons. og:image becomes the
// main candidate.
func extractImages(doc *goquery.Document, raw []byte, pageURL string) (string, []string) {
	candidates := images.FilterNonContent(images.HarvestHTML(raw, pageURL))

	seen := make(map[string]bool, len(candidates))
	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if !seen[c.URL] {
			seen[c.URL] = true
			urls = append(urls, c.URL)
		}
	}

	mainImage := ""
	if og, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		og = strings.TrimSpace(og)
		if og != "" && !strings.HasPrefix(og, "data:") {
			if base, err := nurl.Parse(pageURL); err == nil {
				if ref, err := nurl.Parse(og); err == nil {
					og = base.ResolveReference(ref).String()
				}
			}
			mainImage = og
			if !seen[og] {
				urls = append([]string{og}, urls...)
			}
		}
	}
	if mainImage == "" && len(urls) > 0 {
		mainImage = urls[0]
	}

	return mainImage, urls
}
