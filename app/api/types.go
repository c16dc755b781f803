package api

import (
	"context"

	"github.com/orgpulse/newsharvest/app/database"
	"github.com/orgpulse/newsharvest/app/pipeline"
)

type PhaseRunnerInterface interface {
	RunDiscovery(ctx context.Context, organizationID string) (*database.DiscoverySession, []database.DiscoveredURL, error)
	SelectURLs(ctx context.Context, sessionID string, urlIDs []string, selectAll bool) (int, error)
	RunExtraction(ctx context.Context, sessionID string, selectAll bool) (*database.DiscoverySession, pipeline.ChunkStats, error)
	RunFinalization(ctx context.Context, sessionID string, contentIDs []string) ([]pipeline.FinalizeResult, error)
}

var _ PhaseRunnerInterface = (*pipeline.Orchestrator)(nil)

type BulkRunnerInterface interface {
	Run(ctx context.Context, organizationID string, urls []string, opts pipeline.BulkOptions) (*database.DiscoveryBatch, []pipeline.FinalizeResult, error)
}

var _ BulkRunnerInterface = (*pipeline.BulkRunner)(nil)

type AutomatedRunnerInterface interface {
	Run(ctx context.Context) ([]pipeline.OrgRunResult, error)
}

var _ AutomatedRunnerInterface = (*pipeline.AutomatedRunner)(nil)

type Handler struct {
	orgs      database.OrganizationRepository
	sessions  database.SessionRepository
	articles  database.ArticleRepository
	batches   database.BatchRepository
	phases    PhaseRunnerInterface
	bulk      BulkRunnerInterface
	automated AutomatedRunnerInterface
}
