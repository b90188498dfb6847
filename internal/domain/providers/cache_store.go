package providers

import (
	"context"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
)

// CacheStore is the durable backend for the query cache. The whole map
// is loaded once at startup and written back after each update. A
// missing or corrupt store must not crash the system; loaders return an
// error and callers continue with an empty cache.
type CacheStore interface {
	// Load reads all persisted entries keyed by normalized query.
	Load(ctx context.Context) (map[string]entities.CacheEntry, error)

	// Save writes the full entry map, replacing prior contents.
	Save(ctx context.Context, entries map[string]entities.CacheEntry) error
}
