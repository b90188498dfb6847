package repositories

import (
	"context"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
)

// CatalogRepository loads priced service records from the durable
// store. The engine treats the catalog as read-only; population and
// migration happen elsewhere.
type CatalogRepository interface {
	// ListServices returns every service record in the catalog.
	ListServices(ctx context.Context) ([]*entities.ServiceRecord, error)
}
