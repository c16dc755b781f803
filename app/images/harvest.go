package images

import (
	"bytes"
	nurl "net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Candidate is one harvested image with whatever size information the page
// offered. EstimatedArea is filled later from dimensions or Content-Length.
type Candidate struct {
	URL           string
	Width         int
	Height        int
	Alt           string
	Source        string // "img", "css", "markdown"
	EstimatedArea int64
}

var (
	cssURLRe      = regexp.MustCompile(`background(?:-image)?\s*:\s*url\(['"]?([^'")]+)['"]?\)`)
	markdownImgRe = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)`)
)

// nonContentPatterns match tracking pixels, ad servers, and similar
// known non-article imagery.
var nonContentPatterns = []string{
	"doubleclick.net",
	"googletagmanager",
	"google-analytics",
	"adsystem",
	"adservice",
	"/pixel",
	"pixel.gif",
	"spacer.gif",
	"1x1",
	"tracking",
	"beacon",
}

// minIconSide drops favicon-sized images (1x1 pixels, 16x16 icons).
const minIconSide = 32

// HarvestHTML collects candidates from <img> tags, inline style attributes,
// and <style> blocks, resolved against the page URL.
func HarvestHTML(body []byte, pageURL string) []Candidate {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	base, _ := nurl.Parse(pageURL)
	seen := make(map[string]bool)
	var candidates []Candidate

	add := func(c Candidate) {
		c.URL = resolveURL(base, c.URL)
		if c.URL == "" || seen[c.URL] {
			return
		}
		seen[c.URL] = true
		candidates = append(candidates, c)
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok {
			return
		}
		c := Candidate{URL: src, Source: "img"}
		c.Alt, _ = s.Attr("alt")
		if w, ok := s.Attr("width"); ok {
			c.Width, _ = strconv.Atoi(w)
		}
		if h, ok := s.Attr("height"); ok {
			c.Height, _ = strconv.Atoi(h)
		}
		add(c)
	})

	doc.Find("[style]").Each(func(i int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		for _, match := range cssURLRe.FindAllStringSubmatch(style, -1) {
			add(Candidate{URL: match[1], Source: "css"})
		}
	})

	doc.Find("style").Each(func(i int, s *goquery.Selection) {
		for _, match := range cssURLRe.FindAllStringSubmatch(s.Text(), -1) {
			add(Candidate{URL: match[1], Source: "css"})
		}
	})

	return candidates
}

// HarvestMarkdown collects ![alt](url) embeds, used when the extracted
// representation is markdown rather than HTML.
func HarvestMarkdown(markdown, pageURL string) []Candidate {
	base, _ := nurl.Parse(pageURL)
	seen := make(map[string]bool)
	var candidates []Candidate

	for _, match := range markdownImgRe.FindAllStringSubmatch(markdown, -1) {
		url := resolveURL(base, match[2])
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		candidates = append(candidates, Candidate{URL: url, Alt: match[1], Source: "markdown"})
	}

	return candidates
}

// FilterNonContent drops tracking pixels, ad-server assets, data URIs, and
// icon-sized images.
func FilterNonContent(candidates []Candidate) []Candidate {
	var kept []Candidate
	for _, c := range candidates {
		if strings.HasPrefix(c.URL, "data:") {
			continue
		}
		if c.Width > 0 && c.Width < minIconSide && c.Height > 0 && c.Height < minIconSide {
			continue
		}
		low := strings.ToLower(c.URL)
		skip := false
		for _, pattern := range nonContentPatterns {
			if strings.Contains(low, pattern) {
				skip = true
				break
			}
		}
		if !skip {
			kept = append(kept, c)
		}
	}
	return kept
}

func resolveURL(base *nurl.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		if strings.HasPrefix(raw, "data:") {
			return raw
		}
		return ""
	}
	if base == nil {
		return raw
	}
	ref, err := nurl.Parse(raw)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
