package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/orgpulse/newsharvest/app/database"
	"github.com/orgpulse/newsharvest/app/images"
	"github.com/orgpulse/newsharvest/app/session"
)

type fakeSelector struct {
	choice string
}

func (f *fakeSelector) Select(ctx context.Context, title, summary string, candidates []images.Candidate) string {
	return f.choice
}

type fakeFormatter struct {
	formatted string
}

func (f *fakeFormatter) Format(ctx context.Context, raw string) string {
	if f.formatted != "" {
		return f.formatted
	}
	return raw
}

func validScrapedContent(url string) database.ScrapedContent {
	score := 3
	return database.ScrapedContent{
		ID:                 "content-1",
		URL:                url,
		Title:              "shelter expansion announced",
		Summary:            "The organization expands its shelter.",
		Content:            strings.Repeat("The organization announced a major expansion of its shelter program. ", 5),
		Images:             []string{"https://example.org/hero.jpg", "https://example.org/thumb.jpg"},
		SentimentScore:     &score,
		SentimentReasoning: "main focus, inspiring",
		ExtractionTier:     1,
	}
}

func testOrg() database.Organization {
	return database.Organization{ID: testOrgID, Name: "Helping Hands"}
}

func TestFinalizer_Finalize_CreatesDraft(t *testing.T) {
	repo := newFakeArticleRepo()
	finalizer := NewFinalizer(repo,
		&fakeSelector{choice: "https://example.org/hero.jpg"},
		&fakeFormatter{formatted: "Shelter Expansion Announced"})

	result := finalizer.Finalize(context.Background(), testOrg(),
		validScrapedContent("https://example.org/news/expansion"))

	if result.Action != "created" {
		t.Fatalf("Expected created, got %+v", result)
	}

	article, _ := repo.GetArticleByURL("https://example.org/news/expansion")
	if article == nil {
		t.Fatal("Article was not stored")
	}
	if article.Status != session.ArticleDraft {
		t.Errorf("Expected draft, got %s", article.Status)
	}
	if article.Title != "Shelter Expansion Announced" {
		t.Errorf("Formatted title not applied: %q", article.Title)
	}
	if article.OGImage != "https://example.org/hero.jpg" {
		t.Errorf("Selected image not applied: %q", article.OGImage)
	}
	if article.Sentiment != "positive" || article.Relevance != "high" {
		t.Errorf("Score 3 must project to positive/high, got %s/%s",
			article.Sentiment, article.Relevance)
	}
}

func TestFinalizer_Finalize_StoresFetchedTextAsRawDocument(t *testing.T) {
	repo := newFakeArticleRepo()
	finalizer := NewFinalizer(repo, nil, nil)

	content := validScrapedContent("https://example.org/news/expansion")
	content.RawBody = "<html><body>original page markup</body></html>"

	result := finalizer.Finalize(context.Background(), testOrg(), content)
	if result.Action != "created" {
		t.Fatalf("Expected created, got %+v", result)
	}

	raw, ok := repo.rawDocs[content.URL]
	if !ok {
		t.Fatal("Raw document was not stored")
	}
	if raw.Body != content.RawBody {
		t.Errorf("Raw document must keep the fetched text, got %q", raw.Body)
	}
}

func TestFinalizer_Finalize_DedupByURL(t *testing.T) {
	repo := newFakeArticleRepo()
	finalizer := NewFinalizer(repo, nil, nil)
	content := validScrapedContent("https://example.org/news/expansion")

	first := finalizer.Finalize(context.Background(), testOrg(), content)
	if first.Action != "created" {
		t.Fatalf("Expected created, got %+v", first)
	}

	content.Summary = "Updated summary after a second extraction."
	second := finalizer.Finalize(context.Background(), testOrg(), content)
	if second.Action != "updated" {
		t.Fatalf("Second finalization of the same url must update, got %+v", second)
	}
	if second.ArticleID != first.ArticleID {
		t.Errorf("Expected the same article, got %s and %s", first.ArticleID, second.ArticleID)
	}

	if repo.created != 1 || repo.updated != 1 {
		t.Errorf("Expected one create and one update, got %d/%d", repo.created, repo.updated)
	}
	article, _ := repo.GetArticleByURL(content.URL)
	if article.Summary != "Updated summary after a second extraction." {
		t.Errorf("Enrichable fields were not refreshed: %q", article.Summary)
	}
}

func TestFinalizer_Finalize_RejectsNotMentioned(t *testing.T) {
	repo := newFakeArticleRepo()
	finalizer := NewFinalizer(repo, nil, nil)

	content := validScrapedContent("https://example.org/news/unrelated")
	zero := 0
	content.SentimentScore = &zero

	result := finalizer.Finalize(context.Background(), testOrg(), content)
	if result.Action != "rejected" {
		t.Fatalf("Expected rejected, got %+v", result)
	}

	article, _ := repo.GetArticleByURL(content.URL)
	if article.Status != session.ArticleRejected {
		t.Errorf("Expected rejected status, got %s", article.Status)
	}
	found := false
	for _, reason := range article.ValidationReasons {
		if reason == "organization not mentioned" {
			found = true
		}
	}
	if !found {
		t.Errorf("Rejection reason missing: %v", article.ValidationReasons)
	}
}

func TestFinalizer_Finalize_RejectsShortContent(t *testing.T) {
	repo := newFakeArticleRepo()
	finalizer := NewFinalizer(repo, nil, nil)

	content := validScrapedContent("https://example.org/news/stub")
	content.Content = "Too short."

	result := finalizer.Finalize(context.Background(), testOrg(), content)
	if result.Action != "rejected" {
		t.Fatalf("Expected rejected, got %+v", result)
	}

	article, _ := repo.GetArticleByURL(content.URL)
	if len(article.ValidationReasons) == 0 {
		t.Error("Expected a recorded rejection reason")
	}
}

func TestFinalizer_Finalize_FallbackScoreStaysDraft(t *testing.T) {
	repo := newFakeArticleRepo()
	finalizer := NewFinalizer(repo, nil, nil)

	// A nil score means classification fell back; that is not a judgment
	// that the organization is absent.
	content := validScrapedContent("https://example.org/news/expansion")
	content.SentimentScore = nil

	result := finalizer.Finalize(context.Background(), testOrg(), content)
	if result.Action != "created" {
		t.Fatalf("Expected created, got %+v", result)
	}

	article, _ := repo.GetArticleByURL(content.URL)
	if article.Sentiment != "neutral" || article.Relevance != "low" {
		t.Errorf("Unset score must project to neutral/low, got %s/%s",
			article.Sentiment, article.Relevance)
	}
	if article.SentimentScore != nil {
		t.Errorf("Score must stay unset, got %v", *article.SentimentScore)
	}
}

func TestFinalizer_Finalize_PersistenceFailure(t *testing.T) {
	repo := newFakeArticleRepo()
	repo.createErr = errors.New("disk full")
	finalizer := NewFinalizer(repo, nil, nil)

	result := finalizer.Finalize(context.Background(), testOrg(),
		validScrapedContent("https://example.org/news/expansion"))

	if result.Action != "failed" || result.Error == "" {
		t.Errorf("Persistence errors must surface as failed results, got %+v", result)
	}
}
