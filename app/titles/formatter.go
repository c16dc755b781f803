package titles

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
)

// maxTitleLength bounds formatted titles; the fallback truncates at a word
// boundary where possible.
const maxTitleLength = 120

type CompletionClient interface {
	Complete(ctx context.Context, prompt string, out any) error
}

// Formatter normalizes raw extracted titles via the completion service, with
// a deterministic entity-decode + truncate fallback.
type Formatter struct {
	llm CompletionClient
}

func NewFormatter(llm CompletionClient) *Formatter {
	return &Formatter{llm: llm}
}

const formatPrompt = `Clean up this article title: decode any HTML entities, fix capitalization and grammar, and shorten it to at most %d characters while preserving its meaning. Do not invent new information.

Title: %s

Reply with a JSON object: {"title": "<cleaned title>"}`

// Format returns the normalized title. A service failure never blocks the
// item; the deterministic fallback applies instead.
func (f *Formatter) Format(ctx context.Context, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if f.llm != nil {
		var resp struct {
			Title string `json:"title"`
		}
		err := f.llm.Complete(ctx, fmt.Sprintf(formatPrompt, maxTitleLength, raw), &resp)
		if err == nil && strings.TrimSpace(resp.Title) != "" {
			return truncate(strings.TrimSpace(resp.Title))
		}
		if err != nil {
			slog.Warn("Title formatting service failed, using fallback", "title", raw, "error", err)
		}
	}

	return Fallback(raw)
}

// Fallback is the deterministic normalization: HTML-entity decode, whitespace
// collapse, and hard truncation.
func Fallback(raw string) string {
	decoded := html.UnescapeString(raw)
	decoded = strings.Join(strings.Fields(decoded), " ")
	return truncate(decoded)
}

// truncate cuts on rune boundaries; a byte offset could split a multibyte
// character and hand the persistence layer invalid UTF-8.
func truncate(s string) string {
	if len(s) <= maxTitleLength {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxTitleLength {
		return s
	}

	cut := string(runes[:maxTitleLength])
	if idx := strings.LastIndex(cut, " "); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "…"
}
