package extraction

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Content is the structured result of extracting one URL, whichever tier
// produced it.
type Content struct {
	URL         string
	Title       string
	Summary     string
	Content     string
	Author      string
	PublishedAt *time.Time
	MainImage   string
	Images      []string
	Keywords    []string
	Markdown    bool // content is markdown rather than plain text
	Tier        int  // 1 = structured service, 2 = raw fetch fallback
	RawBody     string
}

// Service is the structured content-extraction collaborator. The fallback
// extractor satisfies it too, which is what lets the chain treat tiers
// uniformly.
type Service interface {
	Extract(ctx context.Context, url string) (*Content, error)
}

// ErrExhausted marks a URL for which every tier failed. The caller marks the
// URL failed and continues with the rest of the batch.
var ErrExhausted = errors.New("all extraction tiers failed")

// ServiceError is a tier-1 failure: the primary service errored, returned a
// response missing required fields, or matched an error-page signature. It
// always forces the fallback tier.
type ServiceError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction service %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("extraction service %s: %s", e.URL, e.Reason)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
