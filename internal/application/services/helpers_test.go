package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
	"github.com/pharmiliar/cost-engine/pkg/utils"
)

// fakeCatalogRepo serves a fixed record set.
type fakeCatalogRepo struct {
	records []*entities.ServiceRecord
	err     error
}

func (f *fakeCatalogRepo) ListServices(_ context.Context) ([]*entities.ServiceRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func record(code, description, category string, basePrice, maxPrice float64) *entities.ServiceRecord {
	return &entities.ServiceRecord{
		Code:            code,
		Description:     description,
		Category:        category,
		BasePrice:       basePrice,
		MaxPrice:        maxPrice,
		Tier:            entities.TierFromDescription(description),
		BaseDescription: utils.StripTierSuffix(description),
	}
}

func newTestCatalog(t *testing.T, records ...*entities.ServiceRecord) *CatalogService {
	t.Helper()
	catalog := NewCatalogService(&fakeCatalogRepo{records: records})
	require.NoError(t, catalog.Load(context.Background()))
	return catalog
}

func testRecords() []*entities.ServiceRecord {
	return []*entities.ServiceRecord{
		record("XR1020", "Chest X-ray", "RADIOLOGY", 500, 0),
		record("XR1021", "Abdomen X-ray", "RADIOLOGY", 650, 0),
		record("CT2000", "CT Scan Chest", "RADIOLOGY", 8000, 12000),
		record("US3000", "Ultrasound Abdomen", "RADIOLOGY", 2500, 0),
		record("AC001", "Consultation Adult", "GENERAL", 150, 0),
		record("AC002", "Consultation Specialist", "GENERAL", 400, 0),
		record("BT-K", "Blood Test-K", "GENERAL", 200, 0),
		record("BT-NK", "Blood Test-Nk", "GENERAL", 350, 0),
	}
}
