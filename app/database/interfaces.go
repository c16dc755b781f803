package database

import (
	"github.com/orgpulse/newsharvest/app/session"
)

type OrganizationRepository interface {
	UpsertOrganization(name, newsURL, website string, tags []string) (string, error)
	GetOrganization(id string) (*Organization, error)
	ListOrganizations() ([]Organization, error)

	// ListAutomatable returns organizations with a configured seed URL and
	// zero published articles, the input set of the automated pipeline.
	ListAutomatable() ([]Organization, error)
}

type SessionRepository interface {
	CreateSession(organizationID, newsURL string) (*DiscoverySession, error)
	GetSession(id string) (*DiscoverySession, error)
	ListSessions(organizationID string) ([]DiscoverySession, error)

	UpdateSessionStatus(id string, status session.Status, errorMessage string) error
	UpdateSessionCounts(id string, total, selected, processed int) error

	InsertDiscoveredURLs(sessionID string, urls []DiscoveredURL) (int, error)
	GetDiscoveredURLs(sessionID string, selectedOnly bool) ([]DiscoveredURL, error)
	MarkURLsSelected(sessionID string, urlIDs []string) (int, error)
	MarkAllURLsSelected(sessionID string) (int, error)
	UpdateScrapeStatus(urlID string, status session.ScrapeStatus) error

	UpsertScrapedContent(content ScrapedContent) (string, error)
	GetScrapedContent(sessionID string, selectedOnly bool) ([]ScrapedContent, error)
	MarkContentSelected(sessionID string, contentIDs []string) (int, error)
}

type ArticleRepository interface {
	GetArticleByURL(url string) (*Article, error)
	GetArticleURLs(organizationID string) ([]string, error)
	CreateArticle(article Article, raw RawDocument, enrichment Enrichment) (string, error)
	UpdateArticleEnrichment(id string, article Article) error
	UpdateArticleStatus(id string, status session.ArticleStatus) error
	ListArticles(organizationID string) ([]Article, error)
	CountPublished(organizationID string) (int, error)
	CountByStatus() (map[string]int, error)
}

type BatchRepository interface {
	CreateBatch(organizationID string, urls []string) (*DiscoveryBatch, error)
	GetBatch(id string) (*DiscoveryBatch, error)
	UpdateBatchProgress(id string, processed, successful, failed, duplicates int) error
	CompleteBatch(id string, status session.Status, results []byte) error

	CreatePipelineRun(organizationID, url string) (string, error)
	CompletePipelineRun(id string, steps []byte, success bool, errorMessage string) error
}
