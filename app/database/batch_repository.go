package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/orgpulse/newsharvest/app/session"
)

// BatchRepo handles database operations for discovery batches and pipeline
// run audit records.
type BatchRepo struct {
	db *DB
}

var _ BatchRepository = (*BatchRepo)(nil)

func NewBatchRepository(db *DB) *BatchRepo {
	return &BatchRepo{db: db}
}

func (r *BatchRepo) CreateBatch(organizationID string, urls []string) (*DiscoveryBatch, error) {
	id := uuid.NewString()

	var b DiscoveryBatch
	err := r.db.QueryRow(`
		INSERT INTO discovery_batches (id, organization_id, status, total_urls, discovered_urls)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, organization_id, status, total_urls, processed_urls, successful_urls,
		          failed_urls, duplicate_urls, discovered_urls, processing_results,
		          created_at, updated_at
	`, id, organizationID, string(session.StatusScraping), len(urls), pq.Array(urls)).Scan(
		&b.ID, &b.OrganizationID, &b.Status, &b.TotalURLs, &b.ProcessedURLs,
		&b.SuccessfulURLs, &b.FailedURLs, &b.DuplicateURLs, pq.Array(&b.DiscoveredURLs),
		&b.ProcessingResults, &b.CreatedAt, &b.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	return &b, nil
}

func (r *BatchRepo) GetBatch(id string) (*DiscoveryBatch, error) {
	var b DiscoveryBatch
	err := r.db.QueryRow(`
		SELECT id, organization_id, status, total_urls, processed_urls, successful_urls,
		       failed_urls, duplicate_urls, discovered_urls, processing_results,
		       created_at, updated_at
		FROM discovery_batches
		WHERE id = $1
	`, id).Scan(&b.ID, &b.OrganizationID, &b.Status, &b.TotalURLs, &b.ProcessedURLs,
		&b.SuccessfulURLs, &b.FailedURLs, &b.DuplicateURLs, pq.Array(&b.DiscoveredURLs),
		&b.ProcessingResults, &b.CreatedAt, &b.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return &b, nil
}

// UpdateBatchProgress persists running totals at a chunk boundary. Counters
// never decrease; this row is the resumability checkpoint.
func (r *BatchRepo) UpdateBatchProgress(id string, processed, successful, failed, duplicates int) error {
	_, err := r.db.Exec(`
		UPDATE discovery_batches
		SET processed_urls = GREATEST(processed_urls, $2),
		    successful_urls = GREATEST(successful_urls, $3),
		    failed_urls = GREATEST(failed_urls, $4),
		    duplicate_urls = GREATEST(duplicate_urls, $5),
		    updated_at = NOW()
		WHERE id = $1
	`, id, processed, successful, failed, duplicates)

	if err != nil {
		return fmt.Errorf("failed to update batch progress: %w", err)
	}

	return nil
}

func (r *BatchRepo) CompleteBatch(id string, status session.Status, results []byte) error {
	if len(results) == 0 {
		results = []byte("[]")
	}

	_, err := r.db.Exec(`
		UPDATE discovery_batches
		SET status = $2, processing_results = $3, updated_at = NOW()
		WHERE id = $1
	`, id, string(status), results)

	if err != nil {
		return fmt.Errorf("failed to complete batch: %w", err)
	}

	return nil
}

func (r *BatchRepo) CreatePipelineRun(organizationID, url string) (string, error) {
	id := uuid.NewString()
	_, err := r.db.Exec(`
		INSERT INTO pipeline_runs (id, organization_id, url)
		VALUES ($1, $2, $3)
	`, id, organizationID, url)

	if err != nil {
		return "", fmt.Errorf("failed to create pipeline run: %w", err)
	}

	return id, nil
}

func (r *BatchRepo) CompletePipelineRun(id string, steps []byte, success bool, errorMessage string) error {
	if len(steps) == 0 {
		steps = []byte("[]")
	}

	status := "failed"
	if success {
		status = "completed"
	}

	_, err := r.db.Exec(`
		UPDATE pipeline_runs
		SET steps = $2, status = $3, success = $4, error_message = $5, completed_at = NOW()
		WHERE id = $1
	`, id, steps, status, success, errorMessage)

	if err != nil {
		return fmt.Errorf("failed to complete pipeline run: %w", err)
	}

	return nil
}
