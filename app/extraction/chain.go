package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Chain runs the extraction tiers for one URL: the structured service first,
// then the raw-fetch fallback, and reports exhaustion when both fail. Either
// tier may be nil (not configured).
type Chain struct {
	service  Service
	fallback Service
}

func NewChain(service, fallback Service) *Chain {
	return &Chain{service: service, fallback: fallback}
}

// Run returns sanitized content from the first tier that produces a valid
// article. An error wrapping ErrExhausted means the caller should mark the
// URL failed and move on; it is never fatal to the batch.
func (c *Chain) Run(ctx context.Context, url string) (*Content, error) {
	if c.service != nil {
		content, err := c.service.Extract(ctx, url)
		if err == nil {
			if reason := validate(content); reason == "" {
				cleanContent(content)
				return content, nil
			} else {
				slog.Warn("Primary extraction rejected, falling back",
					"url", url, "reason", reason)
			}
		} else {
			slog.Warn("Primary extraction failed, falling back", "url", url, "error", err)
		}
	}

	if c.fallback != nil {
		content, err := c.fallback.Extract(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("url %s: fallback failed: %v: %w", url, err, ErrExhausted)
		}
		if reason := validate(content); reason != "" {
			return nil, fmt.Errorf("url %s: fallback rejected (%s): %w", url, reason, ErrExhausted)
		}
		cleanContent(content)
		return content, nil
	}

	return nil, fmt.Errorf("url %s: no extraction tier available: %w", url, ErrExhausted)
}

// validate returns a rejection reason for content that must not be accepted
// as a successful extraction, or "" when the content is usable.
func validate(c *Content) string {
	if strings.TrimSpace(c.Title) == "" {
		return "missing title"
	}
	if IsErrorPage(c.Title, c.Content) {
		return "error page signature"
	}
	return ""
}
