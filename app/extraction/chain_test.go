package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeService struct {
	content *Content
	err     error
	calls   int
}

func (f *fakeService) Extract(ctx context.Context, url string) (*Content, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	c := *f.content
	c.URL = url
	return &c, nil
}

func validContent(title string) *Content {
	return &Content{
		Title:   title,
		Summary: "A summary",
		Content: strings.Repeat("Relevant article body text. ", 20),
		Tier:    1,
	}
}

func TestChain_Run_PrimarySucceeds(t *testing.T) {
	primary := &fakeService{content: validContent("Real Article")}
	fallback := &fakeService{content: validContent("Fallback Article")}

	chain := NewChain(primary, fallback)
	content, err := chain.Run(context.Background(), "https://example.com/a")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if content.Title != "Real Article" {
		t.Errorf("Expected primary result, got title %q", content.Title)
	}
	if fallback.calls != 0 {
		t.Errorf("Fallback should not be invoked when primary succeeds, called %d times", fallback.calls)
	}
}

func TestChain_Run_MissingTitleForcesFallback(t *testing.T) {
	primary := &fakeService{content: &Content{Title: "", Content: strings.Repeat("text ", 100)}}
	fallback := &fakeService{content: validContent("Fallback Article")}

	chain := NewChain(primary, fallback)
	content, err := chain.Run(context.Background(), "https://example.com/a")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if fallback.calls != 1 {
		t.Errorf("Expected fallback to be invoked once, got %d", fallback.calls)
	}
	if content.Title != "Fallback Article" {
		t.Errorf("Expected fallback result, got title %q", content.Title)
	}
}

func TestChain_Run_ErrorPageSignatureForcesFallback(t *testing.T) {
	primary := &fakeService{content: &Content{
		Title:   "Page Not Found",
		Summary: "Oops, it looks like...",
		Content: "Oops, it looks like the page you are looking for does not exist.",
	}}
	fallback := &fakeService{content: validContent("Recovered Article")}

	chain := NewChain(primary, fallback)
	content, err := chain.Run(context.Background(), "https://example.com/missing")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if fallback.calls != 1 {
		t.Errorf("Expected fallback to be invoked for error-page signature, got %d calls", fallback.calls)
	}
	if content.Title == "Page Not Found" {
		t.Error("Error-page title must never survive the chain")
	}
}

func TestChain_Run_ServiceErrorForcesFallback(t *testing.T) {
	primary := &fakeService{err: &ServiceError{URL: "u", Reason: "boom"}}
	fallback := &fakeService{content: validContent("Fallback Article")}

	chain := NewChain(primary, fallback)
	content, err := chain.Run(context.Background(), "https://example.com/a")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if content.Title != "Fallback Article" {
		t.Errorf("Expected fallback result, got %q", content.Title)
	}
}

func TestChain_Run_AllTiersFailed(t *testing.T) {
	primary := &fakeService{err: &ServiceError{URL: "u", Reason: "down"}}
	fallback := &fakeService{err: errors.New("connection refused")}

	chain := NewChain(primary, fallback)
	_, err := chain.Run(context.Background(), "https://example.com/a")
	if err == nil {
		t.Fatal("Expected error when all tiers fail")
	}
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("Expected ErrExhausted, got %v", err)
	}
}

func TestChain_Run_FallbackErrorPageIsExhaustion(t *testing.T) {
	primary := &fakeService{err: &ServiceError{URL: "u", Reason: "down"}}
	fallback := &fakeService{content: &Content{Title: "404 Not Found", Content: "nothing here"}}

	chain := NewChain(primary, fallback)
	_, err := chain.Run(context.Background(), "https://example.com/a")
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("Expected ErrExhausted for fallback error page, got %v", err)
	}
}

func TestChain_Run_SanitizesText(t *testing.T) {
	dirty := validContent("Title\x00 With\x01 Control")
	dirty.Content = "Body\x00 text " + strings.Repeat("with more words ", 20)
	primary := &fakeService{content: dirty}

	chain := NewChain(primary, nil)
	content, err := chain.Run(context.Background(), "https://example.com/a")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if strings.ContainsRune(content.Title, 0) || strings.ContainsRune(content.Content, 0) {
		t.Error("Null bytes must be stripped before content is returned")
	}
	if content.Title != "Title With Control" {
		t.Errorf("Unexpected sanitized title: %q", content.Title)
	}
}
