package services

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
	"github.com/pharmiliar/cost-engine/internal/domain/repositories"
	apperrors "github.com/pharmiliar/cost-engine/pkg/errors"
)

type baseKey struct {
	base     string
	category string
}

// catalogSnapshot is an immutable view of the loaded catalog. Readers
// hold a snapshot pointer and never see partial state; a reload swaps
// the whole snapshot atomically.
type catalogSnapshot struct {
	records    []*entities.ServiceRecord
	byCategory map[string][]*entities.ServiceRecord
	byCode     map[string]*entities.ServiceRecord
	byBase     map[baseKey]*entities.BaseService
	categories []string
}

// CatalogService holds the read-only in-memory view of the priced
// service catalog.
type CatalogService struct {
	repo     repositories.CatalogRepository
	snapshot atomic.Pointer[catalogSnapshot]
}

// NewCatalogService creates a catalog service. Load must succeed before
// the service can answer queries.
func NewCatalogService(repo repositories.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// Load builds a fresh snapshot from the repository and swaps it in.
// Safe to call while readers are active.
func (s *CatalogService) Load(ctx context.Context) error {
	records, err := s.repo.ListServices(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return apperrors.NewUnavailableError("catalog is empty", nil)
	}

	snap := &catalogSnapshot{
		records:    records,
		byCategory: make(map[string][]*entities.ServiceRecord),
		byCode:     make(map[string]*entities.ServiceRecord, len(records)),
		byBase:     make(map[baseKey]*entities.BaseService),
	}

	for _, rec := range records {
		snap.byCode[rec.Code] = rec

		if !rec.Searchable() {
			continue
		}

		cat := CanonicalCategory(rec.Category)
		snap.byCategory[cat] = append(snap.byCategory[cat], rec)

		key := baseKey{
			base:     strings.ToLower(rec.BaseDescription),
			category: cat,
		}
		base, ok := snap.byBase[key]
		if !ok {
			base = &entities.BaseService{
				BaseDescription: rec.BaseDescription,
				Category:        cat,
				Tiers:           make(map[entities.Tier]*entities.ServiceRecord),
			}
			snap.byBase[key] = base
		}
		base.Tiers[rec.Tier] = rec
	}

	// Category lists stay price-sorted so the empty-term path can take
	// the cheapest records without rescanning.
	for cat, recs := range snap.byCategory {
		sort.Slice(recs, func(i, j int) bool {
			return recs[i].BasePrice < recs[j].BasePrice
		})
		snap.categories = append(snap.categories, cat)
	}
	sort.Strings(snap.categories)

	s.snapshot.Store(snap)
	return nil
}

// Reload rebuilds the snapshot from the repository
func (s *CatalogService) Reload(ctx context.Context) error {
	return s.Load(ctx)
}

func (s *CatalogService) current() *catalogSnapshot {
	return s.snapshot.Load()
}

// ByCategory returns the searchable records of a category, cheapest
// first. The returned slice must not be mutated.
func (s *CatalogService) ByCategory(category string) []*entities.ServiceRecord {
	snap := s.current()
	if snap == nil {
		return nil
	}
	return snap.byCategory[CanonicalCategory(category)]
}

// ByCode looks up a single record by its code
func (s *CatalogService) ByCode(code string) (*entities.ServiceRecord, bool) {
	snap := s.current()
	if snap == nil {
		return nil, false
	}
	rec, ok := snap.byCode[code]
	return rec, ok
}

// BaseService returns the derived tier view for one base description
// within a category.
func (s *CatalogService) BaseService(baseDescription, category string) (*entities.BaseService, bool) {
	snap := s.current()
	if snap == nil {
		return nil, false
	}
	base, ok := snap.byBase[baseKey{
		base:     strings.ToLower(strings.TrimSpace(baseDescription)),
		category: CanonicalCategory(category),
	}]
	return base, ok
}

// Categories returns the catalog's categories in sorted order
func (s *CatalogService) Categories() []string {
	snap := s.current()
	if snap == nil {
		return nil
	}
	return snap.categories
}

// Cheapest returns up to n of the cheapest searchable records in a
// category.
func (s *CatalogService) Cheapest(category string, n int) []*entities.ServiceRecord {
	recs := s.ByCategory(category)
	if n >= len(recs) {
		return recs
	}
	return recs[:n]
}

// Size returns the number of loaded records
func (s *CatalogService) Size() int {
	snap := s.current()
	if snap == nil {
		return 0
	}
	return len(snap.records)
}

// CanonicalCategory upper-cases and trims a category name so that
// "Radiology" and "RADIOLOGY" address the same records.
func CanonicalCategory(category string) string {
	return strings.ToUpper(strings.TrimSpace(category))
}
