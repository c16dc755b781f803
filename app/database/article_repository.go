package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/orgpulse/newsharvest/app/session"
)

// ArticleRepo handles database operations for articles and their write-once
// audit companions (raw documents, enrichments).
type ArticleRepo struct {
	db *DB
}

var _ ArticleRepository = (*ArticleRepo)(nil)

func NewArticleRepository(db *DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

func (r *ArticleRepo) GetArticleByURL(url string) (*Article, error) {
	var a Article
	err := r.db.QueryRow(`
		SELECT id, organization_id, url, title, summary, content, images, og_image,
		       keywords, sentiment_score, sentiment, relevance, sentiment_reasoning,
		       status, validation_reasons, created_at, updated_at
		FROM articles
		WHERE url = $1
	`, url).Scan(&a.ID, &a.OrganizationID, &a.URL, &a.Title, &a.Summary, &a.Content,
		pq.Array(&a.Images), &a.OGImage, pq.Array(&a.Keywords), &a.SentimentScore,
		&a.Sentiment, &a.Relevance, &a.SentimentReasoning, &a.Status,
		pq.Array(&a.ValidationReasons), &a.CreatedAt, &a.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article by url: %w", err)
	}

	return &a, nil
}

// GetArticleURLs returns every stored article URL for an organization, used
// by discovery to drop already-known candidates.
func (r *ArticleRepo) GetArticleURLs(organizationID string) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT url FROM articles WHERE organization_id = $1
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get article urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan article url: %w", err)
		}
		urls = append(urls, url)
	}

	return urls, rows.Err()
}

// CreateArticle inserts an article with its raw document and enrichment in
// one transaction. The audit rows are written once and never mutated.
func (r *ArticleRepo) CreateArticle(article Article, raw RawDocument, enrichment Enrichment) (string, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	_, err = tx.Exec(`
		INSERT INTO articles (id, organization_id, url, title, summary, content,
		    images, og_image, keywords, sentiment_score, sentiment, relevance,
		    sentiment_reasoning, status, validation_reasons)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, id, article.OrganizationID, article.URL, article.Title, article.Summary,
		article.Content, pq.Array(article.Images), article.OGImage,
		pq.Array(article.Keywords), article.SentimentScore, article.Sentiment,
		article.Relevance, article.SentimentReasoning, string(article.Status),
		pq.Array(article.ValidationReasons))
	if err != nil {
		return "", fmt.Errorf("failed to insert article: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO raw_documents (id, article_id, url, body)
		VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), id, raw.URL, raw.Body)
	if err != nil {
		return "", fmt.Errorf("failed to insert raw document: %w", err)
	}

	data := enrichment.Data
	if len(data) == 0 {
		data = []byte("{}")
	}
	_, err = tx.Exec(`
		INSERT INTO enrichments (id, article_id, data)
		VALUES ($1, $2, $3)
	`, uuid.NewString(), id, data)
	if err != nil {
		return "", fmt.Errorf("failed to insert enrichment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit article: %w", err)
	}

	return id, nil
}

// UpdateArticleEnrichment updates the enrichable fields of an existing
// article in place. This is the dedup path: a second finalization of the same
// URL lands here instead of creating a duplicate row.
func (r *ArticleRepo) UpdateArticleEnrichment(id string, article Article) error {
	_, err := r.db.Exec(`
		UPDATE articles
		SET title = $2, summary = $3, images = $4, og_image = $5, keywords = $6,
		    sentiment_score = $7, sentiment = $8, relevance = $9,
		    sentiment_reasoning = $10, updated_at = NOW()
		WHERE id = $1
	`, id, article.Title, article.Summary, pq.Array(article.Images), article.OGImage,
		pq.Array(article.Keywords), article.SentimentScore, article.Sentiment,
		article.Relevance, article.SentimentReasoning)

	if err != nil {
		return fmt.Errorf("failed to update article enrichment: %w", err)
	}

	return nil
}

// UpdateArticleStatus applies a status transition, enforcing legality
// (draft->published, draft->rejected, rejected->draft only).
func (r *ArticleRepo) UpdateArticleStatus(id string, status session.ArticleStatus) error {
	var current session.ArticleStatus
	err := r.db.QueryRow(`SELECT status FROM articles WHERE id = $1`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("article %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get article status: %w", err)
	}

	if !current.CanTransitionTo(status) {
		return fmt.Errorf("article %s: %s -> %s: %w", id, current, status, ErrIllegalTransition)
	}

	res, err := r.db.Exec(`
		UPDATE articles
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, id, string(status), string(current))
	if err != nil {
		return fmt.Errorf("failed to update article status: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("article %s: concurrent status change: %w", id, ErrIllegalTransition)
	}

	return nil
}

func (r *ArticleRepo) ListArticles(organizationID string) ([]Article, error) {
	rows, err := r.db.Query(`
		SELECT id, organization_id, url, title, summary, content, images, og_image,
		       keywords, sentiment_score, sentiment, relevance, sentiment_reasoning,
		       status, validation_reasons, created_at, updated_at
		FROM articles
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		err := rows.Scan(&a.ID, &a.OrganizationID, &a.URL, &a.Title, &a.Summary,
			&a.Content, pq.Array(&a.Images), &a.OGImage, pq.Array(&a.Keywords),
			&a.SentimentScore, &a.Sentiment, &a.Relevance, &a.SentimentReasoning,
			&a.Status, pq.Array(&a.ValidationReasons), &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}

	return articles, rows.Err()
}

func (r *ArticleRepo) CountPublished(organizationID string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM articles
		WHERE organization_id = $1 AND status = 'published'
	`, organizationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count published articles: %w", err)
	}

	return count, nil
}

func (r *ArticleRepo) CountByStatus() (map[string]int, error) {
	rows, err := r.db.Query(`
		SELECT status, COUNT(*) FROM articles GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count articles by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}
