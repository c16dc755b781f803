package images

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/orgpulse/newsharvest/app/fetcher"
)

func TestHarvestHTML_CollectsAllSources(t *testing.T) {
	page := []byte(`<html><head>
		<style>.hero { background-image: url('/css/hero.jpg'); }</style>
	</head><body>
		<img src="/img/photo.jpg" width="800" height="600" alt="photo">
		<div style="background: url('/css/banner.png')"></div>
	</body></html>`)

	candidates := HarvestHTML(page, "https://example.org/news/story")

	want := map[string]string{
		"https://example.org/img/photo.jpg":  "img",
		"https://example.org/css/hero.jpg":   "css",
		"https://example.org/css/banner.png": "css",
	}
	if len(candidates) != len(want) {
		t.Fatalf("Expected %d candidates, got %d: %+v", len(want), len(candidates), candidates)
	}
	for _, c := range candidates {
		if source, ok := want[c.URL]; !ok || c.Source != source {
			t.Errorf("Unexpected candidate %+v", c)
		}
	}
}

func TestHarvestMarkdown(t *testing.T) {
	md := "Intro text\n\n![chart of results](/assets/chart.png)\n\nMore text ![](https://cdn.example.org/full.jpg)"

	candidates := HarvestMarkdown(md, "https://example.org/news/story")

	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].URL != "https://example.org/assets/chart.png" {
		t.Errorf("Unexpected first candidate: %s", candidates[0].URL)
	}
	if candidates[0].Alt != "chart of results" {
		t.Errorf("Alt text not captured: %q", candidates[0].Alt)
	}
}

func TestFilterNonContent(t *testing.T) {
	candidates := []Candidate{
		{URL: "https://example.org/photo.jpg", Width: 800, Height: 600},
		{URL: "https://ads.doubleclick.net/banner.jpg"},
		{URL: "https://example.org/pixel.gif?id=1"},
		{URL: "https://example.org/favicon.png", Width: 16, Height: 16},
		{URL: "data:image/gif;base64,R0lGOD"},
	}

	kept := FilterNonContent(candidates)

	if len(kept) != 1 {
		t.Fatalf("Expected 1 candidate after filtering, got %d: %+v", len(kept), kept)
	}
	if kept[0].URL != "https://example.org/photo.jpg" {
		t.Errorf("Wrong candidate kept: %s", kept[0].URL)
	}
}

type fakeCompletion struct {
	response string
	err      error
}

func (f *fakeCompletion) Complete(ctx context.Context, prompt string, out any) error {
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.response), out)
}

type fakeHead struct {
	lengths map[string]int64
}

func (f *fakeHead) Head(ctx context.Context, url string) (*fetcher.Result, error) {
	length, ok := f.lengths[url]
	if !ok {
		return nil, errors.New("no such image")
	}
	return &fetcher.Result{ContentLength: length, StatusCode: 200}, nil
}

func TestSelector_Select_HonorsCompletionChoice(t *testing.T) {
	candidates := []Candidate{
		{URL: "https://example.org/large.jpg", Width: 1600, Height: 900},
		{URL: "https://example.org/relevant.jpg", Width: 400, Height: 300},
	}

	// The service picks index 1, which is not the largest.
	selector := NewSelector(&fakeCompletion{response: `{"index": 1}`}, nil)

	url := selector.Select(context.Background(), "Title", "Summary", candidates)
	if url != "https://example.org/relevant.jpg" {
		t.Errorf("Completion choice must be honored even if not largest, got %s", url)
	}
}

func TestSelector_Select_FallsBackToLargest(t *testing.T) {
	candidates := []Candidate{
		{URL: "https://example.org/small.jpg", Width: 100, Height: 100},
		{URL: "https://example.org/large.jpg", Width: 1600, Height: 900},
	}

	selector := NewSelector(&fakeCompletion{err: errors.New("service down")}, nil)

	url := selector.Select(context.Background(), "Title", "Summary", candidates)
	if url != "https://example.org/large.jpg" {
		t.Errorf("Fallback must pick the largest candidate, got %s", url)
	}
}

func TestSelector_Select_EstimatesAreaFromContentLength(t *testing.T) {
	candidates := []Candidate{
		{URL: "https://example.org/a.jpg"},
		{URL: "https://example.org/b.jpg"},
	}
	head := &fakeHead{lengths: map[string]int64{
		"https://example.org/a.jpg": 20_000,
		"https://example.org/b.jpg": 900_000,
	}}

	selector := NewSelector(&fakeCompletion{err: errors.New("service down")}, head)

	url := selector.Select(context.Background(), "Title", "Summary", candidates)
	if url != "https://example.org/b.jpg" {
		t.Errorf("Expected largest-by-content-length candidate, got %s", url)
	}
}

func TestSelector_Select_OutOfRangeIndexFallsBack(t *testing.T) {
	candidates := []Candidate{
		{URL: "https://example.org/only.jpg", Width: 10, Height: 10},
	}

	selector := NewSelector(&fakeCompletion{response: `{"index": 5}`}, nil)

	url := selector.Select(context.Background(), "Title", "Summary", candidates)
	if url != "https://example.org/only.jpg" {
		t.Errorf("Out-of-range index must fall back deterministically, got %s", url)
	}
}

func TestSelector_Select_NoCandidates(t *testing.T) {
	selector := NewSelector(nil, nil)
	if url := selector.Select(context.Background(), "Title", "Summary", nil); url != "" {
		t.Errorf("Expected empty selection, got %s", url)
	}
}

func TestSelector_Select_CapsCandidateList(t *testing.T) {
	var candidates []Candidate
	for i := 0; i < 30; i++ {
		candidates = append(candidates, Candidate{
			URL:   "https://example.org/img" + strconv.Itoa(i) + ".jpg",
			Width: 100 + i, Height: 100,
		})
	}

	var prompt string
	llm := &promptCapture{inner: &fakeCompletion{response: `{"index": 0}`}, captured: &prompt}
	selector := NewSelector(llm, nil)
	selector.Select(context.Background(), "Title", "Summary", candidates)

	if count := strings.Count(prompt, "https://example.org/img"); count > maxCandidatesForCompletion {
		t.Errorf("Prompt should list at most %d candidates, got %d", maxCandidatesForCompletion, count)
	}
}

type promptCapture struct {
	inner    CompletionClient
	captured *string
}

func (p *promptCapture) Complete(ctx context.Context, prompt string, out any) error {
	*p.captured = prompt
	return p.inner.Complete(ctx, prompt, out)
}
