package database

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
	"github.com/pharmiliar/cost-engine/internal/domain/repositories"
	"github.com/pharmiliar/cost-engine/internal/infrastructure/clients/postgres"
	apperrors "github.com/pharmiliar/cost-engine/pkg/errors"
	"github.com/pharmiliar/cost-engine/pkg/utils"
)

// CatalogAdapter implements CatalogRepository over the services table
type CatalogAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewCatalogAdapter creates a new catalog adapter
func NewCatalogAdapter(client *postgres.Client) repositories.CatalogRepository {
	return &CatalogAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ListServices returns every service record in the catalog. Tier and
// base description are derived from the stored description on read;
// the table itself stays tier-agnostic.
func (a *CatalogAdapter) ListServices(ctx context.Context) ([]*entities.ServiceRecord, error) {
	query, args, err := a.db.Select(
		"code", "description", "category", "base_price", "max_price",
	).From("services").
		Where(goqu.C("description").IsNotNull()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build catalog query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("failed to load catalog", err)
	}
	defer rows.Close()

	var records []*entities.ServiceRecord
	for rows.Next() {
		record, err := scanServiceRecord(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan service record", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUnavailableError("failed to read catalog rows", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanServiceRecord maps one services row to a record. Charge sheets
// carry NULL prices on some rows; those scan to zero and the record
// simply never matches, instead of aborting the whole load.
func scanServiceRecord(row rowScanner) (*entities.ServiceRecord, error) {
	record := &entities.ServiceRecord{}
	var basePrice, maxPrice sql.NullFloat64

	if err := row.Scan(
		&record.Code,
		&record.Description,
		&record.Category,
		&basePrice,
		&maxPrice,
	); err != nil {
		return nil, err
	}

	if basePrice.Valid {
		record.BasePrice = basePrice.Float64
	}
	if maxPrice.Valid {
		record.MaxPrice = maxPrice.Float64
	}
	record.Tier = entities.TierFromDescription(record.Description)
	record.BaseDescription = utils.StripTierSuffix(record.Description)

	return record, nil
}
