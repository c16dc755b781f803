package pipeline

import (
	"context"
	"log/slog"

	"github.com/orgpulse/newsharvest/app/database"
)

// OrgRunResult summarizes one organization's pass through the automated
// pipeline.
type OrgRunResult struct {
	OrganizationID   string `json:"organizationId"`
	OrganizationName string `json:"organizationName"`
	SessionID        string `json:"sessionId,omitempty"`
	DiscoveredURLs   int    `json:"discoveredUrls"`
	Articles         int    `json:"articles"`
	Error            string `json:"error,omitempty"`
}

// AutomatedRunner sweeps organizations that have a seed URL but no published
// articles yet, running all three phases with select-all semantics and no
// human review.
type AutomatedRunner struct {
	orgs         database.OrganizationRepository
	orchestrator *Orchestrator
}

func NewAutomatedRunner(orgs database.OrganizationRepository, orchestrator *Orchestrator) *AutomatedRunner {
	return &AutomatedRunner{orgs: orgs, orchestrator: orchestrator}
}

// Run processes eligible organizations sequentially. One organization's
// failure never stops the sweep; it is recorded and the next one runs.
func (a *AutomatedRunner) Run(ctx context.Context) ([]OrgRunResult, error) {
	orgs, err := a.orgs.ListAutomatable()
	if err != nil {
		return nil, err
	}

	results := make([]OrgRunResult, 0, len(orgs))
	for _, org := range orgs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, a.runOrg(ctx, org))
	}

	slog.Info("Automated pipeline sweep finished", "organizations", len(results))

	return results, nil
}

func (a *AutomatedRunner) runOrg(ctx context.Context, org database.Organization) OrgRunResult {
	result := OrgRunResult{OrganizationID: org.ID, OrganizationName: org.Name}

	sess, urls, err := a.orchestrator.RunDiscovery(ctx, org.ID)
	if sess != nil {
		result.SessionID = sess.ID
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.DiscoveredURLs = len(urls)

	// Zero urls still runs the remaining phases so the session lands in a
	// terminal status instead of waiting for a review that never comes.
	if _, _, err := a.orchestrator.RunExtraction(ctx, sess.ID, true); err != nil {
		result.Error = err.Error()
		return result
	}

	finalized, err := a.orchestrator.RunFinalization(ctx, sess.ID, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Articles = len(finalized)

	return result
}
