package config

import (
	"fmt"
	"log/slog"

	"github.com/orgpulse/newsharvest/app/database"
)

// Sync upserts the loaded seeds into the organizations table so discovery
// always works against the current seed set. Returns the number synced.
func Sync(seeds []OrganizationSeed, orgs database.OrganizationRepository) (int, error) {
	for _, seed := range seeds {
		id, err := orgs.UpsertOrganization(seed.Name, seed.NewsURL, seed.Website, seed.Tags)
		if err != nil {
			return 0, fmt.Errorf("failed to sync organization %q: %w", seed.Name, err)
		}
		slog.Debug("Organization synced", "name", seed.Name, "id", id)
	}

	return len(seeds), nil
}
