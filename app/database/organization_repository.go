package database

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// OrganizationRepo handles database operations for organizations
type OrganizationRepo struct {
	db *DB
}

var _ OrganizationRepository = (*OrganizationRepo)(nil)

func NewOrganizationRepository(db *DB) *OrganizationRepo {
	return &OrganizationRepo{db: db}
}

// UpsertOrganization inserts an organization by name or updates its seed
// fields, returning the row id.
func (r *OrganizationRepo) UpsertOrganization(name, newsURL, website string, tags []string) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO organizations (name, news_url, website, tags)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET news_url = EXCLUDED.news_url, website = EXCLUDED.website,
		    tags = EXCLUDED.tags, updated_at = NOW()
		RETURNING id
	`, name, newsURL, website, pq.Array(tags)).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to upsert organization: %w", err)
	}

	return id, nil
}

func (r *OrganizationRepo) GetOrganization(id string) (*Organization, error) {
	var org Organization
	err := r.db.QueryRow(`
		SELECT id, name, news_url, website, tags, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`, id).Scan(&org.ID, &org.Name, &org.NewsURL, &org.Website,
		pq.Array(&org.Tags), &org.CreatedAt, &org.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return &org, nil
}

func (r *OrganizationRepo) ListOrganizations() ([]Organization, error) {
	rows, err := r.db.Query(`
		SELECT id, name, news_url, website, tags, created_at, updated_at
		FROM organizations
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	return scanOrganizations(rows)
}

// ListAutomatable returns organizations with a configured seed URL and no
// published articles yet.
func (r *OrganizationRepo) ListAutomatable() ([]Organization, error) {
	rows, err := r.db.Query(`
		SELECT o.id, o.name, o.news_url, o.website, o.tags, o.created_at, o.updated_at
		FROM organizations o
		WHERE o.news_url <> ''
		  AND NOT EXISTS (
		    SELECT 1 FROM articles a
		    WHERE a.organization_id = o.id AND a.status = 'published'
		  )
		ORDER BY o.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list automatable organizations: %w", err)
	}
	defer rows.Close()

	return scanOrganizations(rows)
}

func scanOrganizations(rows *sql.Rows) ([]Organization, error) {
	var orgs []Organization
	for rows.Next() {
		var org Organization
		err := rows.Scan(&org.ID, &org.Name, &org.NewsURL, &org.Website,
			pq.Array(&org.Tags), &org.CreatedAt, &org.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}
