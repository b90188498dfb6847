package services

import (
	"fmt"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
	apperrors "github.com/pharmiliar/cost-engine/pkg/errors"
)

// TierService resolves the pricing-tier variants of one underlying
// service.
type TierService struct {
	catalog *CatalogService
}

// NewTierService creates a tier resolver over the given catalog
func NewTierService(catalog *CatalogService) *TierService {
	return &TierService{catalog: catalog}
}

// PriceRange returns the min and max price across whichever tier
// variants exist for the base description. Absent tiers are skipped,
// never treated as zero.
func (s *TierService) PriceRange(baseDescription, category string) (float64, float64, error) {
	base, ok := s.catalog.BaseService(baseDescription, category)
	if !ok {
		return 0, 0, apperrors.NewNotFoundError(
			fmt.Sprintf("no service %q in category %q", baseDescription, category))
	}
	min, max := base.PriceRange()
	return min, max, nil
}

// ByTier returns the record of a specific pricing tier for the base
// description. The returned record's tier always equals the requested
// tier.
func (s *TierService) ByTier(baseDescription, category string, tier entities.Tier) (*entities.ServiceRecord, error) {
	base, ok := s.catalog.BaseService(baseDescription, category)
	if !ok {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("no service %q in category %q", baseDescription, category))
	}
	rec, ok := base.Tiers[tier]
	if !ok {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("no tier %q for service %q", tier, baseDescription))
	}
	return rec, nil
}
