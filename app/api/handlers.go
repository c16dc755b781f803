package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orgpulse/newsharvest/app/database"
	"github.com/orgpulse/newsharvest/app/pipeline"
	"github.com/orgpulse/newsharvest/app/session"
)

func NewHandler(orgs database.OrganizationRepository, sessions database.SessionRepository,
	articles database.ArticleRepository, batches database.BatchRepository,
	phases PhaseRunnerInterface, bulk BulkRunnerInterface,
	automated AutomatedRunnerInterface) *Handler {

	return &Handler{
		orgs:      orgs,
		sessions:  sessions,
		articles:  articles,
		batches:   batches,
		phases:    phases,
		bulk:      bulk,
		automated: automated,
	}
}

// RunPhase1 starts a discovery session for an organization.
func (h *Handler) RunPhase1(c *gin.Context) {
	var req struct {
		OrganizationID string `json:"organizationId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sess, urls, err := h.phases.RunDiscovery(c.Request.Context(), req.OrganizationID)
	if err != nil {
		slog.Error("Discovery failed", "organization_id", req.OrganizationID, "error", err)
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": sessionJSON(sess),
		"urls":    urlsJSON(urls),
	})
}

// GetPhase1 returns a session and its discovered URLs.
func (h *Handler) GetPhase1(c *gin.Context) {
	sess, err := h.sessions.GetSession(c.Param("sessionId"))
	if err != nil {
		fail(c, err)
		return
	}
	if sess == nil {
		notFound(c, "session not found")
		return
	}

	urls, err := h.sessions.GetDiscoveredURLs(sess.ID, false)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": sessionJSON(sess),
		"urls":    urlsJSON(urls),
	})
}

// SelectPhase2 records the review step: which URLs to scrape.
func (h *Handler) SelectPhase2(c *gin.Context) {
	var req struct {
		SessionID string   `json:"sessionId" binding:"required"`
		URLIDs    []string `json:"urlIds"`
		SelectAll bool     `json:"selectAll"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !req.SelectAll && len(req.URLIDs) == 0 {
		badRequest(c, errors.New("urlIds or selectAll is required"))
		return
	}

	selected, err := h.phases.SelectURLs(c.Request.Context(), req.SessionID, req.URLIDs, req.SelectAll)
	if err != nil {
		slog.Error("URL selection failed", "session_id", req.SessionID, "error", err)
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"selected": selected,
	})
}

// RunPhase2 scrapes and classifies the selected URLs.
func (h *Handler) RunPhase2(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId" binding:"required"`
		SelectAll bool   `json:"selectAll"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sess, stats, err := h.phases.RunExtraction(c.Request.Context(), req.SessionID, req.SelectAll)
	if err != nil {
		slog.Error("Extraction failed", "session_id", req.SessionID, "error", err)
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": sessionJSON(sess),
		"stats": gin.H{
			"processed": stats.Processed,
			"succeeded": stats.Succeeded,
			"failed":    stats.Failed,
		},
	})
}

// GetPhase2 returns the scraped content of a session.
func (h *Handler) GetPhase2(c *gin.Context) {
	sess, err := h.sessions.GetSession(c.Param("sessionId"))
	if err != nil {
		fail(c, err)
		return
	}
	if sess == nil {
		notFound(c, "session not found")
		return
	}

	contents, err := h.sessions.GetScrapedContent(sess.ID, false)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"session": sessionJSON(sess),
		"content": contentsJSON(contents),
	})
}

// RunPhase3 finalizes scraped content into articles.
func (h *Handler) RunPhase3(c *gin.Context) {
	var req struct {
		SessionID  string   `json:"sessionId" binding:"required"`
		ContentIDs []string `json:"contentIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	results, err := h.phases.RunFinalization(c.Request.Context(), req.SessionID, req.ContentIDs)
	if err != nil {
		slog.Error("Finalization failed", "session_id", req.SessionID, "error", err)
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"results": results,
	})
}

// RunBulkScrape processes a curated URL list without discovery or review.
func (h *Handler) RunBulkScrape(c *gin.Context) {
	var req struct {
		OrganizationID string   `json:"organizationId" binding:"required"`
		URLs           []string `json:"urls" binding:"required"`
		Concurrency    int      `json:"concurrency"`
		BatchDelay     int      `json:"batchDelay"` // milliseconds
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	opts := pipeline.BulkOptions{
		Concurrency: req.Concurrency,
		Delay:       time.Duration(req.BatchDelay) * time.Millisecond,
	}
	batch, results, err := h.bulk.Run(c.Request.Context(), req.OrganizationID, req.URLs, opts)
	if err != nil {
		slog.Error("Bulk scrape failed", "organization_id", req.OrganizationID, "error", err)
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"batch":   batchJSON(batch),
		"results": results,
	})
}

// RunAutomatedPipeline sweeps every automatable organization end to end.
func (h *Handler) RunAutomatedPipeline(c *gin.Context) {
	results, err := h.automated.Run(c.Request.Context())
	if err != nil {
		slog.Error("Automated pipeline failed", "error", err)
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"organizations": results,
	})
}

func (h *Handler) ListOrganizations(c *gin.Context) {
	orgs, err := h.orgs.ListOrganizations()
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]gin.H, 0, len(orgs))
	for _, org := range orgs {
		out = append(out, gin.H{
			"id":      org.ID,
			"name":    org.Name,
			"newsUrl": org.NewsURL,
			"website": org.Website,
			"tags":    org.Tags,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"organizations": out,
		"total":         len(out),
	})
}

func (h *Handler) ListSessions(c *gin.Context) {
	organizationID := c.Query("organizationId")
	if organizationID == "" {
		badRequest(c, errors.New("organizationId query parameter is required"))
		return
	}

	sessions, err := h.sessions.ListSessions(organizationID)
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]gin.H, 0, len(sessions))
	for i := range sessions {
		out = append(out, sessionJSON(&sessions[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"sessions": out,
		"total":    len(out),
	})
}

func (h *Handler) ListArticles(c *gin.Context) {
	organizationID := c.Query("organizationId")
	if organizationID == "" {
		badRequest(c, errors.New("organizationId query parameter is required"))
		return
	}

	articles, err := h.articles.ListArticles(organizationID)
	if err != nil {
		fail(c, err)
		return
	}

	out := make([]gin.H, 0, len(articles))
	for i := range articles {
		out = append(out, articleJSON(&articles[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"articles": out,
		"total":    len(out),
	})
}

// UpdateArticleStatus applies a manual lifecycle transition: publish, reject,
// or restore.
func (h *Handler) UpdateArticleStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	err := h.articles.UpdateArticleStatus(c.Param("id"), session.ArticleStatus(req.Status))
	if err != nil {
		slog.Error("Article status update failed", "article_id", c.Param("id"), "error", err)
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := gin.H{}

	if orgs, err := h.orgs.ListOrganizations(); err == nil {
		stats["organizations"] = len(orgs)
	}
	if counts, err := h.articles.CountByStatus(); err == nil {
		stats["articles"] = counts
	}

	c.JSON(http.StatusOK, stats)
}

// ---- response shaping ----

func sessionJSON(s *database.DiscoverySession) gin.H {
	out := gin.H{
		"id":             s.ID,
		"organizationId": s.OrganizationID,
		"status":         string(s.Status),
		"newsUrl":        s.NewsURL,
		"totalUrls":      s.TotalURLs,
		"selectedUrls":   s.SelectedURLs,
		"processedUrls":  s.ProcessedURLs,
		"createdAt":      s.CreatedAt,
	}
	if s.ErrorMessage != "" {
		out["errorMessage"] = s.ErrorMessage
	}
	if s.CompletedAt != nil {
		out["completedAt"] = s.CompletedAt
	}
	return out
}

func urlsJSON(urls []database.DiscoveredURL) []gin.H {
	out := make([]gin.H, 0, len(urls))
	for _, u := range urls {
		out = append(out, gin.H{
			"id":             u.ID,
			"url":            u.URL,
			"classification": u.Classification,
			"domain":         u.Domain,
			"selected":       u.SelectedForScraping,
			"scrapeStatus":   string(u.ScrapeStatus),
		})
	}
	return out
}

func contentsJSON(contents []database.ScrapedContent) []gin.H {
	out := make([]gin.H, 0, len(contents))
	for _, c := range contents {
		entry := gin.H{
			"id":             c.ID,
			"url":            c.URL,
			"title":          c.Title,
			"summary":        c.Summary,
			"keywords":       c.Keywords,
			"author":         c.Author,
			"images":         c.Images,
			"extractionTier": c.ExtractionTier,
			"reasoning":      c.SentimentReasoning,
		}
		if c.SentimentScore != nil {
			entry["score"] = *c.SentimentScore
		}
		if c.PublishedAt != nil {
			entry["publishedAt"] = c.PublishedAt
		}
		out = append(out, entry)
	}
	return out
}

func articleJSON(a *database.Article) gin.H {
	out := gin.H{
		"id":        a.ID,
		"url":       a.URL,
		"title":     a.Title,
		"summary":   a.Summary,
		"ogImage":   a.OGImage,
		"keywords":  a.Keywords,
		"sentiment": a.Sentiment,
		"relevance": a.Relevance,
		"status":    string(a.Status),
		"createdAt": a.CreatedAt,
	}
	if a.SentimentScore != nil {
		out["score"] = *a.SentimentScore
	}
	if len(a.ValidationReasons) > 0 {
		out["validationReasons"] = a.ValidationReasons
	}
	return out
}

func batchJSON(b *database.DiscoveryBatch) gin.H {
	return gin.H{
		"id":             b.ID,
		"organizationId": b.OrganizationID,
		"status":         string(b.Status),
		"totalUrls":      b.TotalURLs,
		"processedUrls":  b.ProcessedURLs,
		"successfulUrls": b.SuccessfulURLs,
		"failedUrls":     b.FailedURLs,
		"duplicateUrls":  b.DuplicateURLs,
	}
}

// ---- error shaping ----

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
}

func notFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "error": message})
}

// fail maps domain errors to status codes: missing records are 404, illegal
// transitions are 409, everything else is 500.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, database.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, database.ErrIllegalTransition):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
