package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/orgpulse/newsharvest/app/classify"
	"github.com/orgpulse/newsharvest/app/database"
	"github.com/orgpulse/newsharvest/app/images"
	"github.com/orgpulse/newsharvest/app/session"
)

// ImageSelector picks the representative image for an article.
type ImageSelector interface {
	Select(ctx context.Context, title, summary string, candidates []images.Candidate) string
}

// TitleFormatter normalizes a raw extracted title.
type TitleFormatter interface {
	Format(ctx context.Context, raw string) string
}

// FinalizeResult reports the outcome of finalizing one scraped item.
type FinalizeResult struct {
	ContentID string `json:"contentId"`
	URL       string `json:"url"`
	ArticleID string `json:"articleId,omitempty"`
	Action    string `json:"action"` // "created", "updated", "rejected", "failed"
	Error     string `json:"error,omitempty"`
}

// minArticleLength is the shortest body accepted as a real article.
const minArticleLength = 150

// Finalizer turns scraped content into durable articles: title normalization,
// image selection, validation, and the dedup-by-URL create-or-update write.
type Finalizer struct {
	articles  database.ArticleRepository
	selector  ImageSelector
	formatter TitleFormatter
}

func NewFinalizer(articles database.ArticleRepository, selector ImageSelector, formatter TitleFormatter) *Finalizer {
	return &Finalizer{articles: articles, selector: selector, formatter: formatter}
}

// Finalize processes one scraped item. Enrichment failures (title service,
// image service) degrade to deterministic fallbacks; only persistence errors
// produce a failed result. Validation rejections persist the article with
// status rejected and the reasons recorded.
func (f *Finalizer) Finalize(ctx context.Context, org database.Organization, content database.ScrapedContent) FinalizeResult {
	result := FinalizeResult{ContentID: content.ID, URL: content.URL}

	score := classify.ScoreNotMentioned
	if content.SentimentScore != nil {
		if parsed, err := classify.ParseScore(*content.SentimentScore); err == nil {
			score = parsed
		}
	}

	reasons := validate(content, score)

	title := content.Title
	if f.formatter != nil {
		title = f.formatter.Format(ctx, content.Title)
	}

	ogImage := ""
	if f.selector != nil && len(content.Images) > 0 {
		var candidates []images.Candidate
		for _, url := range content.Images {
			candidates = append(candidates, images.Candidate{URL: url, Source: "img"})
		}
		ogImage = f.selector.Select(ctx, title, content.Summary, candidates)
	}

	status := session.ArticleDraft
	if len(reasons) > 0 {
		status = session.ArticleRejected
	}

	article := database.Article{
		OrganizationID:     org.ID,
		URL:                content.URL,
		Title:              title,
		Summary:            content.Summary,
		Content:            content.Content,
		Images:             content.Images,
		OGImage:            ogImage,
		Keywords:           content.Keywords,
		SentimentScore:     content.SentimentScore,
		Sentiment:          score.Sentiment(),
		Relevance:          score.Relevance(),
		SentimentReasoning: content.SentimentReasoning,
		Status:             status,
		ValidationReasons:  reasons,
	}

	existing, err := f.articles.GetArticleByURL(content.URL)
	if err != nil {
		result.Action = "failed"
		result.Error = err.Error()
		return result
	}

	if existing != nil {
		if err := f.articles.UpdateArticleEnrichment(existing.ID, article); err != nil {
			result.Action = "failed"
			result.Error = err.Error()
			return result
		}
		result.ArticleID = existing.ID
		result.Action = "updated"
		return result
	}

	enrichmentData, _ := json.Marshal(map[string]any{
		"author":          content.Author,
		"publishedAt":     content.PublishedAt,
		"keywords":        content.Keywords,
		"extractionTier":  content.ExtractionTier,
		"scoreReasoning":  content.SentimentReasoning,
		"validationFails": reasons,
	})

	// The audit row keeps the fetched text, not the extracted article body.
	rawBody := content.RawBody
	if rawBody == "" {
		rawBody = content.Content
	}
	raw := database.RawDocument{URL: content.URL, Body: rawBody}
	enrichment := database.Enrichment{Data: enrichmentData}

	id, err := f.articles.CreateArticle(article, raw, enrichment)
	if err != nil {
		slog.Error("Failed to persist article", "url", content.URL,
			"category", database.CategorizeError(err), "error", err)
		result.Action = "failed"
		result.Error = err.Error()
		return result
	}

	result.ArticleID = id
	if status == session.ArticleRejected {
		result.Action = "rejected"
	} else {
		result.Action = "created"
	}
	return result
}

// validate returns the reasons a scraped item does not qualify as a draft
// article. An empty slice means the item passes.
func validate(content database.ScrapedContent, score classify.Score) []string {
	var reasons []string

	if strings.TrimSpace(content.Title) == "" {
		reasons = append(reasons, "missing title")
	}
	if len(strings.TrimSpace(content.Content)) < minArticleLength {
		reasons = append(reasons, "content too short")
	}
	if content.SentimentScore != nil && score == classify.ScoreNotMentioned {
		reasons = append(reasons, "organization not mentioned")
	}

	return reasons
}
