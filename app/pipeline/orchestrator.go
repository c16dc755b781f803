package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/orgpulse/newsharvest/app/classify"
	"github.com/orgpulse/newsharvest/app/database"
	"github.com/orgpulse/newsharvest/app/discovery"
	"github.com/orgpulse/newsharvest/app/extraction"
	"github.com/orgpulse/newsharvest/app/images"
	"github.com/orgpulse/newsharvest/app/session"
)

// Discoverer collects candidate article URLs from an organization's seed page.
type Discoverer interface {
	Run(ctx context.Context, seedURL string, knownURLs map[string]bool) ([]discovery.Candidate, error)
}

// Extractor runs the tiered extraction chain for one URL.
type Extractor interface {
	Run(ctx context.Context, url string) (*extraction.Content, error)
}

// ContentClassifier scores an article against the mention rubric.
type ContentClassifier interface {
	Classify(ctx context.Context, orgName, title, body string) classify.Result
}

// Orchestrator drives discovery sessions through their phases. Each phase is
// an explicit status transition; a phase that dies always leaves the session
// in failed rather than stuck mid-phase.
type Orchestrator struct {
	orgs       database.OrganizationRepository
	sessions   database.SessionRepository
	articles   database.ArticleRepository
	discover   Discoverer
	extract    Extractor
	classifier ContentClassifier
	finalizer  *Finalizer
	scheduler  ChunkScheduler
}

func NewOrchestrator(orgs database.OrganizationRepository, sessions database.SessionRepository,
	articles database.ArticleRepository, discover Discoverer, extract Extractor,
	classifier ContentClassifier, finalizer *Finalizer, scheduler ChunkScheduler) *Orchestrator {

	return &Orchestrator{
		orgs:       orgs,
		sessions:   sessions,
		articles:   articles,
		discover:   discover,
		extract:    extract,
		classifier: classifier,
		finalizer:  finalizer,
		scheduler:  scheduler,
	}
}

// RunDiscovery is phase 1: create a session, fetch the seed page, and store
// the classified candidate URLs. A seed failure marks the session failed with
// no partial results.
func (o *Orchestrator) RunDiscovery(ctx context.Context, organizationID string) (*database.DiscoverySession, []database.DiscoveredURL, error) {
	org, err := o.orgs.GetOrganization(organizationID)
	if err != nil {
		return nil, nil, err
	}
	if org == nil {
		return nil, nil, fmt.Errorf("organization %s: %w", organizationID, database.ErrNotFound)
	}
	if org.NewsURL == "" {
		return nil, nil, fmt.Errorf("organization %s has no news url configured", organizationID)
	}

	sess, err := o.sessions.CreateSession(org.ID, org.NewsURL)
	if err != nil {
		return nil, nil, err
	}

	known, err := o.knownURLs(org.ID)
	if err != nil {
		o.failSession(sess.ID, err)
		return sess, nil, err
	}

	candidates, err := o.discover.Run(ctx, org.NewsURL, known)
	if err != nil {
		o.failSession(sess.ID, err)
		return sess, nil, fmt.Errorf("discovery failed: %w", err)
	}

	urls := make([]database.DiscoveredURL, 0, len(candidates))
	for _, c := range candidates {
		urls = append(urls, database.DiscoveredURL{
			URL:            c.URL,
			Classification: c.Classification,
			Domain:         c.Domain,
		})
	}

	inserted, err := o.sessions.InsertDiscoveredURLs(sess.ID, urls)
	if err != nil {
		o.failSession(sess.ID, err)
		return sess, nil, err
	}

	if err := o.sessions.UpdateSessionCounts(sess.ID, inserted, 0, 0); err != nil {
		o.failSession(sess.ID, err)
		return sess, nil, err
	}
	if err := o.sessions.UpdateSessionStatus(sess.ID, session.StatusReadyForReview, ""); err != nil {
		o.failSession(sess.ID, err)
		return sess, nil, err
	}

	slog.Info("Discovery session ready for review", "session_id", sess.ID,
		"organization", org.Name, "urls", inserted)

	stored, err := o.sessions.GetDiscoveredURLs(sess.ID, false)
	if err != nil {
		return sess, nil, err
	}
	sess, err = o.sessions.GetSession(sess.ID)
	if err != nil {
		return nil, stored, err
	}

	return sess, stored, nil
}

// SelectURLs records the human review step: mark the chosen URLs for
// scraping and move the session to reviewed.
func (o *Orchestrator) SelectURLs(ctx context.Context, sessionID string, urlIDs []string, selectAll bool) (int, error) {
	sess, err := o.sessions.GetSession(sessionID)
	if err != nil {
		return 0, err
	}
	if sess == nil {
		return 0, fmt.Errorf("session %s: %w", sessionID, database.ErrNotFound)
	}

	var selected int
	if selectAll {
		selected, err = o.sessions.MarkAllURLsSelected(sessionID)
	} else {
		selected, err = o.sessions.MarkURLsSelected(sessionID, urlIDs)
	}
	if err != nil {
		return 0, err
	}

	if err := o.sessions.UpdateSessionCounts(sessionID, 0, selected, 0); err != nil {
		return selected, err
	}

	// Re-selection while already reviewed just updates the marks.
	if sess.Status == session.StatusReadyForReview {
		if err := o.sessions.UpdateSessionStatus(sessionID, session.StatusReviewed, ""); err != nil {
			return selected, err
		}
	}

	return selected, nil
}

// RunExtraction is phase 2: scrape and classify the selected URLs in fixed
// chunks, checkpointing progress at every chunk boundary. With selectAll the
// review step is skipped and every discovered URL is processed.
func (o *Orchestrator) RunExtraction(ctx context.Context, sessionID string, selectAll bool) (*database.DiscoverySession, ChunkStats, error) {
	var stats ChunkStats

	sess, err := o.sessions.GetSession(sessionID)
	if err != nil {
		return nil, stats, err
	}
	if sess == nil {
		return nil, stats, fmt.Errorf("session %s: %w", sessionID, database.ErrNotFound)
	}

	org, err := o.orgs.GetOrganization(sess.OrganizationID)
	if err != nil {
		return sess, stats, err
	}
	if org == nil {
		return sess, stats, fmt.Errorf("organization %s: %w", sess.OrganizationID, database.ErrNotFound)
	}

	if selectAll {
		selected, err := o.sessions.MarkAllURLsSelected(sessionID)
		if err != nil {
			return sess, stats, err
		}
		if err := o.sessions.UpdateSessionCounts(sessionID, 0, selected, 0); err != nil {
			return sess, stats, err
		}
	}

	urls, err := o.sessions.GetDiscoveredURLs(sessionID, true)
	if err != nil {
		return sess, stats, err
	}

	if err := o.sessions.UpdateSessionStatus(sessionID, session.StatusScraping, ""); err != nil {
		return sess, stats, err
	}

	stats, err = o.scheduler.Run(ctx, len(urls), func(ctx context.Context, i int) Outcome {
		return o.extractOne(ctx, org, urls[i])
	}, func(stats ChunkStats) error {
		return o.sessions.UpdateSessionCounts(sessionID, 0, 0, stats.Processed)
	})
	if err != nil {
		o.failSession(sessionID, err)
		return sess, stats, err
	}

	if err := o.sessions.UpdateSessionStatus(sessionID, session.StatusAnalyzing, ""); err != nil {
		o.failSession(sessionID, err)
		return sess, stats, err
	}

	slog.Info("Extraction phase finished", "session_id", sessionID,
		"processed", stats.Processed, "succeeded", stats.Succeeded, "failed", stats.Failed)

	sess, err = o.sessions.GetSession(sessionID)
	return sess, stats, err
}

// extractOne runs the chain and the classifier for a single URL. Failures are
// isolated: the URL is marked failed and the chunk continues.
func (o *Orchestrator) extractOne(ctx context.Context, org *database.Organization, url database.DiscoveredURL) Outcome {
	if err := o.sessions.UpdateScrapeStatus(url.ID, session.ScrapeActive); err != nil {
		slog.Warn("Skipping url, scrape status not advanceable", "url", url.URL, "error", err)
		return OutcomeFailed
	}

	content, err := o.extract.Run(ctx, url.URL)
	if err != nil {
		slog.Warn("Extraction failed", "url", url.URL, "error", err)
		o.markScrapeFailed(url.ID)
		return OutcomeFailed
	}

	result := o.classifier.Classify(ctx, org.Name, content.Title, content.Content)

	scraped := database.ScrapedContent{
		URLID:              url.ID,
		SessionID:          url.SessionID,
		Title:              content.Title,
		Summary:            content.Summary,
		Content:            content.Content,
		RawBody:            content.RawBody,
		Keywords:           content.Keywords,
		Author:             content.Author,
		PublishedAt:        content.PublishedAt,
		Images:             contentImages(content),
		SentimentReasoning: result.Reasoning,
		ExtractionTier:     content.Tier,
	}
	// A fallback score is a placeholder, not a judgment; it stays unset.
	if !result.Fallback {
		score := int(result.Score)
		scraped.SentimentScore = &score
	}

	if _, err := o.sessions.UpsertScrapedContent(scraped); err != nil {
		slog.Error("Failed to persist scraped content", "url", url.URL,
			"category", database.CategorizeError(err), "error", err)
		o.markScrapeFailed(url.ID)
		return OutcomeFailed
	}

	if err := o.sessions.UpdateScrapeStatus(url.ID, session.ScrapeScraped); err != nil {
		slog.Warn("Failed to mark url scraped", "url", url.URL, "error", err)
		return OutcomeFailed
	}

	return OutcomeSuccess
}

// RunFinalization is phase 3: turn the scraped content into articles. With
// contentIDs only those items run; otherwise every item in the session does.
func (o *Orchestrator) RunFinalization(ctx context.Context, sessionID string, contentIDs []string) ([]FinalizeResult, error) {
	sess, err := o.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, database.ErrNotFound)
	}

	org, err := o.orgs.GetOrganization(sess.OrganizationID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, fmt.Errorf("organization %s: %w", sess.OrganizationID, database.ErrNotFound)
	}

	selectedOnly := len(contentIDs) > 0
	if selectedOnly {
		if _, err := o.sessions.MarkContentSelected(sessionID, contentIDs); err != nil {
			return nil, err
		}
	}

	contents, err := o.sessions.GetScrapedContent(sessionID, selectedOnly)
	if err != nil {
		return nil, err
	}

	if err := o.sessions.UpdateSessionStatus(sessionID, session.StatusFinalizing, ""); err != nil {
		o.failSession(sessionID, err)
		return nil, err
	}

	results := make([]FinalizeResult, 0, len(contents))
	for _, content := range contents {
		if err := ctx.Err(); err != nil {
			o.failSession(sessionID, err)
			return results, err
		}
		results = append(results, o.finalizer.Finalize(ctx, *org, content))
	}

	if err := o.sessions.UpdateSessionStatus(sessionID, session.StatusCompleted, ""); err != nil {
		o.failSession(sessionID, err)
		return results, err
	}

	slog.Info("Session completed", "session_id", sessionID, "articles", len(results))

	return results, nil
}

func (o *Orchestrator) knownURLs(organizationID string) (map[string]bool, error) {
	urls, err := o.articles.GetArticleURLs(organizationID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(urls))
	for _, u := range urls {
		known[u] = true
	}
	return known, nil
}

func (o *Orchestrator) markScrapeFailed(urlID string) {
	if err := o.sessions.UpdateScrapeStatus(urlID, session.ScrapeFailed); err != nil {
		slog.Warn("Failed to mark url failed", "url_id", urlID, "error", err)
	}
}

// failSession is best effort: the triggering error is what callers see.
func (o *Orchestrator) failSession(sessionID string, cause error) {
	if err := o.sessions.UpdateSessionStatus(sessionID, session.StatusFailed, cause.Error()); err != nil {
		slog.Error("Failed to mark session failed", "session_id", sessionID, "error", err)
	}
}

// contentImages flattens the extraction result's image set. Markdown bodies
// carry their own embedded images, which the service does not list separately.
func contentImages(content *extraction.Content) []string {
	urls := content.Images
	if content.Markdown {
		seen := make(map[string]bool, len(urls))
		for _, u := range urls {
			seen[u] = true
		}
		for _, c := range images.HarvestMarkdown(content.Content, content.URL) {
			if !seen[c.URL] {
				seen[c.URL] = true
				urls = append(urls, c.URL)
			}
		}
	}
	if content.MainImage != "" {
		for _, u := range urls {
			if u == content.MainImage {
				return urls
			}
		}
		urls = append([]string{content.MainImage}, urls...)
	}
	return urls
}
