package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/orgpulse/newsharvest/app/database"
	"github.com/orgpulse/newsharvest/app/session"
)

// BulkOptions tune one bulk run; zero values fall back to the runner's
// configured scheduler.
type BulkOptions struct {
	Concurrency int
	Delay       time.Duration
}

// stepRecord is one entry in a pipeline run's audit trail.
type stepRecord struct {
	Step   string `json:"step"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// BulkRunner processes a curated URL list for an organization without the
// discovery or review phases. Each URL gets its own pipeline run record;
// batch counters only move at chunk boundaries.
type BulkRunner struct {
	orgs       database.OrganizationRepository
	batches    database.BatchRepository
	articles   database.ArticleRepository
	extract    Extractor
	classifier ContentClassifier
	finalizer  *Finalizer
	scheduler  ChunkScheduler
}

func NewBulkRunner(orgs database.OrganizationRepository, batches database.BatchRepository,
	articles database.ArticleRepository, extract Extractor, classifier ContentClassifier,
	finalizer *Finalizer, scheduler ChunkScheduler) *BulkRunner {

	return &BulkRunner{
		orgs:       orgs,
		batches:    batches,
		articles:   articles,
		extract:    extract,
		classifier: classifier,
		finalizer:  finalizer,
		scheduler:  scheduler,
	}
}

// Run executes the batch. URLs that already have an article count as
// duplicates and are skipped. The batch ends failed only when every processed
// URL failed; any success (or duplicate) completes it.
func (b *BulkRunner) Run(ctx context.Context, organizationID string, urls []string, opts BulkOptions) (*database.DiscoveryBatch, []FinalizeResult, error) {
	org, err := b.orgs.GetOrganization(organizationID)
	if err != nil {
		return nil, nil, err
	}
	if org == nil {
		return nil, nil, fmt.Errorf("organization %s: %w", organizationID, database.ErrNotFound)
	}

	urls = dedupe(urls)
	if len(urls) == 0 {
		return nil, nil, fmt.Errorf("no urls to process")
	}

	batch, err := b.batches.CreateBatch(org.ID, urls)
	if err != nil {
		return nil, nil, err
	}

	scheduler := b.scheduler
	if opts.Concurrency > 0 {
		scheduler.Concurrency = opts.Concurrency
	}
	if opts.Delay > 0 {
		scheduler.Delay = opts.Delay
	}

	var mu sync.Mutex
	results := make([]FinalizeResult, 0, len(urls))

	stats, err := scheduler.Run(ctx, len(urls), func(ctx context.Context, i int) Outcome {
		outcome, result := b.runOne(ctx, org, urls[i])
		mu.Lock()
		results = append(results, result)
		mu.Unlock()
		return outcome
	}, func(stats ChunkStats) error {
		return b.batches.UpdateBatchProgress(batch.ID,
			stats.Processed, stats.Succeeded, stats.Failed, stats.Duplicates)
	})
	if err != nil {
		b.completeBatch(batch.ID, session.StatusFailed, results)
		return batch, results, err
	}

	status := session.StatusCompleted
	if stats.Processed > 0 && stats.Failed == stats.Processed {
		status = session.StatusFailed
	}
	b.completeBatch(batch.ID, status, results)

	slog.Info("Bulk batch finished", "batch_id", batch.ID, "status", status,
		"processed", stats.Processed, "succeeded", stats.Succeeded,
		"failed", stats.Failed, "duplicates", stats.Duplicates)

	batch, err = b.batches.GetBatch(batch.ID)
	return batch, results, err
}

// runOne is the full single-URL pipeline: extract, classify, finalize, with
// every step recorded on the run's audit trail.
func (b *BulkRunner) runOne(ctx context.Context, org *database.Organization, url string) (Outcome, FinalizeResult) {
	existing, err := b.articles.GetArticleByURL(url)
	if err == nil && existing != nil {
		return OutcomeDuplicate, FinalizeResult{
			URL: url, ArticleID: existing.ID, Action: "duplicate",
		}
	}

	runID, err := b.batches.CreatePipelineRun(org.ID, url)
	if err != nil {
		slog.Error("Failed to create pipeline run", "url", url, "error", err)
		return OutcomeFailed, FinalizeResult{URL: url, Action: "failed", Error: err.Error()}
	}

	var steps []stepRecord
	fail := func(step string, cause error) (Outcome, FinalizeResult) {
		steps = append(steps, stepRecord{Step: step, Status: "failed", Detail: cause.Error()})
		b.completeRun(runID, steps, false, cause.Error())
		return OutcomeFailed, FinalizeResult{URL: url, Action: "failed", Error: cause.Error()}
	}

	content, err := b.extract.Run(ctx, url)
	if err != nil {
		return fail("extract", err)
	}
	steps = append(steps, stepRecord{Step: "extract", Status: "ok",
		Detail: fmt.Sprintf("tier %d", content.Tier)})

	classification := b.classifier.Classify(ctx, org.Name, content.Title, content.Content)
	steps = append(steps, stepRecord{Step: "classify", Status: "ok",
		Detail: fmt.Sprintf("score %d", classification.Score)})

	scraped := database.ScrapedContent{
		URL:                url,
		Title:              content.Title,
		Summary:            content.Summary,
		Content:            content.Content,
		RawBody:            content.RawBody,
		Keywords:           content.Keywords,
		Author:             content.Author,
		PublishedAt:        content.PublishedAt,
		Images:             contentImages(content),
		SentimentReasoning: classification.Reasoning,
		ExtractionTier:     content.Tier,
	}
	if !classification.Fallback {
		score := int(classification.Score)
		scraped.SentimentScore = &score
	}

	result := b.finalizer.Finalize(ctx, *org, scraped)
	if result.Action == "failed" {
		return fail("finalize", fmt.Errorf("%s", result.Error))
	}
	steps = append(steps, stepRecord{Step: "finalize", Status: "ok", Detail: result.Action})

	b.completeRun(runID, steps, true, "")
	return OutcomeSuccess, result
}

func (b *BulkRunner) completeRun(runID string, steps []stepRecord, success bool, errorMessage string) {
	data, _ := json.Marshal(steps)
	if err := b.batches.CompletePipelineRun(runID, data, success, errorMessage); err != nil {
		slog.Error("Failed to complete pipeline run", "run_id", runID, "error", err)
	}
}

func (b *BulkRunner) completeBatch(batchID string, status session.Status, results []FinalizeResult) {
	data, _ := json.Marshal(results)
	if err := b.batches.CompleteBatch(batchID, status, data); err != nil {
		slog.Error("Failed to complete batch", "batch_id", batchID, "error", err)
	}
}

func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var out []string
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
