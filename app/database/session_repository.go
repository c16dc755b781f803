package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/orgpulse/newsharvest/app/session"
)

// SessionRepo handles database operations for discovery sessions, their
// discovered URLs, and scraped content.
type SessionRepo struct {
	db *DB
}

var _ SessionRepository = (*SessionRepo)(nil)

func NewSessionRepository(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) CreateSession(organizationID, newsURL string) (*DiscoverySession, error) {
	id := uuid.NewString()

	var s DiscoverySession
	err := r.db.QueryRow(`
		INSERT INTO discovery_sessions (id, organization_id, status, news_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id, organization_id, status, news_url, total_urls, selected_urls,
		          processed_urls, error_message, created_at, updated_at, completed_at
	`, id, organizationID, string(session.StatusDiscovering), newsURL).Scan(
		&s.ID, &s.OrganizationID, &s.Status, &s.NewsURL, &s.TotalURLs, &s.SelectedURLs,
		&s.ProcessedURLs, &s.ErrorMessage, &s.CreatedAt, &s.UpdatedAt, &s.CompletedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &s, nil
}

func (r *SessionRepo) GetSession(id string) (*DiscoverySession, error) {
	var s DiscoverySession
	err := r.db.QueryRow(`
		SELECT id, organization_id, status, news_url, total_urls, selected_urls,
		       processed_urls, error_message, created_at, updated_at, completed_at
		FROM discovery_sessions
		WHERE id = $1
	`, id).Scan(&s.ID, &s.OrganizationID, &s.Status, &s.NewsURL, &s.TotalURLs,
		&s.SelectedURLs, &s.ProcessedURLs, &s.ErrorMessage, &s.CreatedAt,
		&s.UpdatedAt, &s.CompletedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &s, nil
}

func (r *SessionRepo) ListSessions(organizationID string) ([]DiscoverySession, error) {
	rows, err := r.db.Query(`
		SELECT id, organization_id, status, news_url, total_urls, selected_urls,
		       processed_urls, error_message, created_at, updated_at, completed_at
		FROM discovery_sessions
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []DiscoverySession
	for rows.Next() {
		var s DiscoverySession
		err := rows.Scan(&s.ID, &s.OrganizationID, &s.Status, &s.NewsURL, &s.TotalURLs,
			&s.SelectedURLs, &s.ProcessedURLs, &s.ErrorMessage, &s.CreatedAt,
			&s.UpdatedAt, &s.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// UpdateSessionStatus moves a session to a new status, enforcing transition
// legality. Terminal statuses set completed_at.
func (r *SessionRepo) UpdateSessionStatus(id string, status session.Status, errorMessage string) error {
	current, err := r.GetSession(id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	if !current.Status.CanTransitionTo(status) {
		return fmt.Errorf("session %s: %s -> %s: %w", id, current.Status, status, ErrIllegalTransition)
	}

	query := `
		UPDATE discovery_sessions
		SET status = $2, error_message = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`
	if status.IsTerminal() {
		query = `
		UPDATE discovery_sessions
		SET status = $2, error_message = $3, updated_at = NOW(), completed_at = NOW()
		WHERE id = $1 AND status = $4
	`
	}

	res, err := r.db.Exec(query, id, string(status), errorMessage, string(current.Status))
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}

	// The optimistic status guard lost a race with another writer.
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: concurrent status change: %w", id, ErrIllegalTransition)
	}

	return nil
}

// UpdateSessionCounts persists running totals. GREATEST keeps the counters
// monotonically non-decreasing regardless of caller ordering.
func (r *SessionRepo) UpdateSessionCounts(id string, total, selected, processed int) error {
	_, err := r.db.Exec(`
		UPDATE discovery_sessions
		SET total_urls = GREATEST(total_urls, $2),
		    selected_urls = GREATEST(selected_urls, $3),
		    processed_urls = GREATEST(processed_urls, $4),
		    updated_at = NOW()
		WHERE id = $1
	`, id, total, selected, processed)

	if err != nil {
		return fmt.Errorf("failed to update session counts: %w", err)
	}

	return nil
}

func (r *SessionRepo) InsertDiscoveredURLs(sessionID string, urls []DiscoveredURL) (int, error) {
	inserted := 0
	for _, u := range urls {
		res, err := r.db.Exec(`
			INSERT INTO discovered_urls (id, session_id, url, classification, domain)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (session_id, url) DO NOTHING
		`, uuid.NewString(), sessionID, u.URL, u.Classification, u.Domain)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert discovered url: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	return inserted, nil
}

func (r *SessionRepo) GetDiscoveredURLs(sessionID string, selectedOnly bool) ([]DiscoveredURL, error) {
	query := `
		SELECT id, session_id, url, classification, domain, selected_for_scraping,
		       scrape_status, created_at
		FROM discovered_urls
		WHERE session_id = $1
		ORDER BY created_at, url
	`
	if selectedOnly {
		query = `
		SELECT id, session_id, url, classification, domain, selected_for_scraping,
		       scrape_status, created_at
		FROM discovered_urls
		WHERE session_id = $1 AND selected_for_scraping = TRUE
		ORDER BY created_at, url
	`
	}

	rows, err := r.db.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get discovered urls: %w", err)
	}
	defer rows.Close()

	var urls []DiscoveredURL
	for rows.Next() {
		var u DiscoveredURL
		err := rows.Scan(&u.ID, &u.SessionID, &u.URL, &u.Classification, &u.Domain,
			&u.SelectedForScraping, &u.ScrapeStatus, &u.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan discovered url: %w", err)
		}
		urls = append(urls, u)
	}

	return urls, rows.Err()
}

func (r *SessionRepo) MarkURLsSelected(sessionID string, urlIDs []string) (int, error) {
	res, err := r.db.Exec(`
		UPDATE discovered_urls
		SET selected_for_scraping = TRUE
		WHERE session_id = $1 AND id = ANY($2)
	`, sessionID, pq.Array(urlIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to mark urls selected: %w", err)
	}

	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *SessionRepo) MarkAllURLsSelected(sessionID string) (int, error) {
	res, err := r.db.Exec(`
		UPDATE discovered_urls
		SET selected_for_scraping = TRUE
		WHERE session_id = $1
	`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all urls selected: %w", err)
	}

	n, _ := res.RowsAffected()
	return int(n), nil
}

// UpdateScrapeStatus advances a URL's scrape status. Regressions are rejected
// with ErrIllegalTransition; the WHERE clause guards against racing writers.
func (r *SessionRepo) UpdateScrapeStatus(urlID string, status session.ScrapeStatus) error {
	var current session.ScrapeStatus
	err := r.db.QueryRow(`
		SELECT scrape_status FROM discovered_urls WHERE id = $1
	`, urlID).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("discovered url %s: %w", urlID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get scrape status: %w", err)
	}

	if !current.CanTransitionTo(status) {
		return fmt.Errorf("url %s: %s -> %s: %w", urlID, current, status, ErrIllegalTransition)
	}

	res, err := r.db.Exec(`
		UPDATE discovered_urls
		SET scrape_status = $2
		WHERE id = $1 AND scrape_status = $3
	`, urlID, string(status), string(current))
	if err != nil {
		return fmt.Errorf("failed to update scrape status: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("url %s: concurrent status change: %w", urlID, ErrIllegalTransition)
	}

	return nil
}

// UpsertScrapedContent stores extraction output for a URL. A second
// extraction of the same URL overwrites the previous row (1:1 with the URL).
func (r *SessionRepo) UpsertScrapedContent(content ScrapedContent) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO scraped_contents (id, url_id, session_id, title, summary, content,
		    raw_body, keywords, author, published_at, images, sentiment_score,
		    sentiment_reasoning, extraction_tier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (url_id) DO UPDATE
		SET title = EXCLUDED.title, summary = EXCLUDED.summary,
		    content = EXCLUDED.content, raw_body = EXCLUDED.raw_body,
		    keywords = EXCLUDED.keywords,
		    author = EXCLUDED.author, published_at = EXCLUDED.published_at,
		    images = EXCLUDED.images, sentiment_score = EXCLUDED.sentiment_score,
		    sentiment_reasoning = EXCLUDED.sentiment_reasoning,
		    extraction_tier = EXCLUDED.extraction_tier, updated_at = NOW()
		RETURNING id
	`, uuid.NewString(), content.URLID, content.SessionID, content.Title, content.Summary,
		content.Content, content.RawBody, pq.Array(content.Keywords), content.Author,
		content.PublishedAt, pq.Array(content.Images), content.SentimentScore,
		content.SentimentReasoning, content.ExtractionTier).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to upsert scraped content: %w", err)
	}

	return id, nil
}

func (r *SessionRepo) GetScrapedContent(sessionID string, selectedOnly bool) ([]ScrapedContent, error) {
	query := `
		SELECT c.id, c.url_id, c.session_id, u.url, c.title, c.summary, c.content,
		       c.raw_body, c.keywords, c.author, c.published_at, c.images,
		       c.sentiment_score, c.sentiment_reasoning, c.extraction_tier,
		       c.selected_for_finalization, c.created_at, c.updated_at
		FROM scraped_contents c
		JOIN discovered_urls u ON u.id = c.url_id
		WHERE c.session_id = $1
	`
	if selectedOnly {
		query += ` AND c.selected_for_finalization = TRUE`
	}
	query += ` ORDER BY c.created_at`

	rows, err := r.db.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scraped content: %w", err)
	}
	defer rows.Close()

	var contents []ScrapedContent
	for rows.Next() {
		var c ScrapedContent
		err := rows.Scan(&c.ID, &c.URLID, &c.SessionID, &c.URL, &c.Title, &c.Summary,
			&c.Content, &c.RawBody, pq.Array(&c.Keywords), &c.Author, &c.PublishedAt,
			pq.Array(&c.Images), &c.SentimentScore, &c.SentimentReasoning,
			&c.ExtractionTier, &c.SelectedForFinalization, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scraped content: %w", err)
		}
		contents = append(contents, c)
	}

	return contents, rows.Err()
}

func (r *SessionRepo) MarkContentSelected(sessionID string, contentIDs []string) (int, error) {
	res, err := r.db.Exec(`
		UPDATE scraped_contents
		SET selected_for_finalization = TRUE, updated_at = NOW()
		WHERE session_id = $1 AND id = ANY($2)
	`, sessionID, pq.Array(contentIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to mark content selected: %w", err)
	}

	n, _ := res.RowsAffected()
	return int(n), nil
}
