package database

import (
	"time"

	"github.com/orgpulse/newsharvest/app/session"
)

type Organization struct {
	ID        string
	Name      string
	NewsURL   string
	Website   string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DiscoverySession is one discover->extract->finalize run for an
// organization. Sessions are never deleted; they are the audit trail.
type DiscoverySession struct {
	ID             string
	OrganizationID string
	Status         session.Status
	NewsURL        string
	TotalURLs      int
	SelectedURLs   int
	ProcessedURLs  int
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

type DiscoveredURL struct {
	ID                  string
	SessionID           string
	URL                 string
	Classification      string // "news" or "post"
	Domain              string
	SelectedForScraping bool
	ScrapeStatus        session.ScrapeStatus
	CreatedAt           time.Time
}

type ScrapedContent struct {
	ID                      string
	URLID                   string
	SessionID               string
	URL                     string
	Title                   string
	Summary                 string
	Content                 string
	RawBody                 string // original fetched text, carried to the article's audit row
	Keywords                []string
	Author                  string
	PublishedAt             *time.Time
	Images                  []string
	SentimentScore          *int
	SentimentReasoning      string
	ExtractionTier          int
	SelectedForFinalization bool
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// DiscoveryBatch is the ad hoc bulk variant of a session: a curated URL list
// processed without human review. Counters are updated only at chunk
// boundaries.
type DiscoveryBatch struct {
	ID                string
	OrganizationID    string
	Status            session.Status
	TotalURLs         int
	ProcessedURLs     int
	SuccessfulURLs    int
	FailedURLs        int
	DuplicateURLs     int
	DiscoveredURLs    []string
	ProcessingResults []byte // JSON audit blob
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Article struct {
	ID                 string
	OrganizationID     string
	URL                string
	Title              string
	Summary            string
	Content            string
	Images             []string
	OGImage            string
	Keywords           []string
	SentimentScore     *int
	Sentiment          string
	Relevance          string
	SentimentReasoning string
	Status             session.ArticleStatus
	ValidationReasons  []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// RawDocument preserves the original fetched text for an article. Write-once.
type RawDocument struct {
	ID        string
	ArticleID string
	URL       string
	Body      string
	FetchedAt time.Time
}

// Enrichment holds derived metadata for an article. Write-once.
type Enrichment struct {
	ID        string
	ArticleID string
	Data      []byte // JSON
	CreatedAt time.Time
}

// PipelineRun is one attempt of the end-to-end single-URL pipeline, with a
// snapshot of intermediate state per step.
type PipelineRun struct {
	ID             string
	OrganizationID string
	URL            string
	Steps          []byte // JSON
	Status         string
	Success        bool
	ErrorMessage   string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}
