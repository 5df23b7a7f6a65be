package driving

import (
	"context"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

// EntitySyncService reconciles local entities with external structured stores.
type EntitySyncService interface {
	// Sync upserts every entity into every configured target. It never
	// aborts on one entity's failure and returns exactly one result per
	// entity per target, in input order grouped by target.
	Sync(ctx context.Context, entities []domain.Entity) []domain.SyncResult

	// Targets returns the configured target names.
	Targets() []string
}
