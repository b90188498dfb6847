package database

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
)

// fakeRow plays one services row into Scan destinations. nil prices
// stand in for NULL columns.
type fakeRow struct {
	code        string
	description string
	category    string
	basePrice   *float64
	maxPrice    *float64
	err         error
}

func (r *fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.code
	*dest[1].(*string) = r.description
	*dest[2].(*string) = r.category
	if r.basePrice != nil {
		*dest[3].(*sql.NullFloat64) = sql.NullFloat64{Float64: *r.basePrice, Valid: true}
	}
	if r.maxPrice != nil {
		*dest[4].(*sql.NullFloat64) = sql.NullFloat64{Float64: *r.maxPrice, Valid: true}
	}
	return nil
}

func price(v float64) *float64 { return &v }

func TestScanServiceRecord_DerivesTierAndBaseDescription(t *testing.T) {
	record, err := scanServiceRecord(&fakeRow{
		code:        "BT-NK",
		description: "Blood Test-Nk",
		category:    "GENERAL",
		basePrice:   price(350),
		maxPrice:    price(400),
	})
	require.NoError(t, err)

	assert.Equal(t, entities.TierNk, record.Tier)
	assert.Equal(t, "Blood Test", record.BaseDescription)
	assert.Equal(t, 350.0, record.BasePrice)
	assert.Equal(t, 400.0, record.MaxPrice)
	assert.True(t, record.Searchable())
}

func TestScanServiceRecord_NullBasePriceBecomesUnsearchable(t *testing.T) {
	record, err := scanServiceRecord(&fakeRow{
		code:        "FREE1",
		description: "Waived Screening",
		category:    "GENERAL",
	})
	require.NoError(t, err)

	assert.Zero(t, record.BasePrice)
	assert.Zero(t, record.MaxPrice)
	assert.False(t, record.Searchable())
}

func TestScanServiceRecord_NullMaxPriceFallsBackToBase(t *testing.T) {
	record, err := scanServiceRecord(&fakeRow{
		code:        "XR1020",
		description: "Chest X-ray",
		category:    "RADIOLOGY",
		basePrice:   price(500),
	})
	require.NoError(t, err)

	assert.Zero(t, record.MaxPrice)
	assert.Equal(t, 500.0, record.EffectiveMaxPrice())
}

func TestScanServiceRecord_PropagatesScanError(t *testing.T) {
	_, err := scanServiceRecord(&fakeRow{err: errors.New("driver failure")})
	assert.Error(t, err)
}
