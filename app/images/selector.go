package images

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/orgpulse/newsharvest/app/fetcher"
)

// maxCandidatesForCompletion caps the list shown to the completion service.
const maxCandidatesForCompletion = 10

// bytesPerPixel approximates compressed image density, turning a
// Content-Length into an area estimate when the page gave no dimensions.
const bytesPerPixel = 4

type CompletionClient interface {
	Complete(ctx context.Context, prompt string, out any) error
}

type HeadClient interface {
	Head(ctx context.Context, url string) (*fetcher.Result, error)
}

// Selector picks the single best representative image for an article.
type Selector struct {
	llm  CompletionClient
	head HeadClient
}

func NewSelector(llm CompletionClient, head HeadClient) *Selector {
	return &Selector{llm: llm, head: head}
}

// Select harvests nothing itself; it ranks the given candidates and asks the
// completion service to choose. On service failure it deterministically picks
// the largest candidate by estimated area; the step never stays unresolved
// while candidates exist.
func (s *Selector) Select(ctx context.Context, title, summary string, candidates []Candidate) string {
	candidates = FilterNonContent(candidates)
	if len(candidates) == 0 {
		return ""
	}

	s.estimateAreas(ctx, candidates)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].EstimatedArea > candidates[j].EstimatedArea
	})

	if len(candidates) > maxCandidatesForCompletion {
		candidates = candidates[:maxCandidatesForCompletion]
	}

	if s.llm != nil {
		if url, err := s.ask(ctx, title, summary, candidates); err == nil {
			return url
		} else {
			slog.Warn("Image selection service failed, using largest candidate",
				"title", title, "error", err)
		}
	}

	return candidates[0].URL
}

func (s *Selector) estimateAreas(ctx context.Context, candidates []Candidate) {
	for i := range candidates {
		c := &candidates[i]
		if c.Width > 0 && c.Height > 0 {
			c.EstimatedArea = int64(c.Width) * int64(c.Height)
			continue
		}
		if s.head == nil {
			continue
		}
		result, err := s.head.Head(ctx, c.URL)
		if err != nil || result.ContentLength <= 0 {
			continue
		}
		c.EstimatedArea = result.ContentLength / bytesPerPixel
	}
}

func (s *Selector) ask(ctx context.Context, title, summary string, candidates []Candidate) (string, error) {
	var list strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&list, "%d: %s (alt=%q, source=%s, est_area=%d)\n",
			i, c.URL, c.Alt, c.Source, c.EstimatedArea)
	}

	prompt := fmt.Sprintf(`Choose the image that best represents this article.

Title: %s
Summary: %s

Candidates:
%s
Reply with a JSON object: {"index": <candidate number>}`, title, summary, list.String())

	var resp struct {
		Index int `json:"index"`
	}
	if err := s.llm.Complete(ctx, prompt, &resp); err != nil {
		return "", err
	}
	if resp.Index < 0 || resp.Index >= len(candidates) {
		return "", fmt.Errorf("selection index %d out of range", resp.Index)
	}

	return candidates[resp.Index].URL, nil
}
