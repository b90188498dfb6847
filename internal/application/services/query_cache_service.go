package services

import (
	"context"
	"sync"
	"time"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
	"github.com/pharmiliar/cost-engine/internal/domain/providers"
	"github.com/pharmiliar/cost-engine/internal/infrastructure/observability"
	"github.com/pharmiliar/cost-engine/pkg/utils"
)

// QueryCacheService reuses prior query results, by exact normalized key
// or by nearest token-set similarity. Entries survive restarts through
// the configured store; persistence failures degrade to in-memory
// operation and are never fatal.
type QueryCacheService struct {
	normalizer *utils.TextNormalizer
	store      providers.CacheStore
	threshold  float64
	metrics    *observability.Metrics

	mu      sync.RWMutex
	entries map[string]entities.CacheEntry
}

// NewQueryCacheService creates a query cache. store may be nil for
// purely in-memory operation; threshold <= 0 disables approximate
// matching.
func NewQueryCacheService(normalizer *utils.TextNormalizer, store providers.CacheStore, threshold float64, metrics *observability.Metrics) *QueryCacheService {
	return &QueryCacheService{
		normalizer: normalizer,
		store:      store,
		threshold:  threshold,
		metrics:    metrics,
		entries:    make(map[string]entities.CacheEntry),
	}
}

// Restore loads persisted entries from the store. A missing or corrupt
// store leaves the cache empty; the warning is the caller's to log.
func (s *QueryCacheService) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	loaded, err := s.store.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries = loaded
	s.mu.Unlock()
	return nil
}

// Get looks up a query, first by exact normalized key, then by the
// cached key with the highest Jaccard token similarity above the
// threshold. The second return value is the matched key.
func (s *QueryCacheService) Get(ctx context.Context, query string) (*entities.CacheEntry, string, bool) {
	key := s.normalizer.Normalize(query)
	if key == "" {
		s.recordMiss(ctx)
		return nil, "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.entries[key]; ok {
		s.recordHit(ctx)
		return &entry, key, true
	}

	if s.threshold > 0 {
		querySet := s.normalizer.TokenSet(query)
		bestScore := s.threshold
		bestKey := ""
		for cachedKey := range s.entries {
			similarity := utils.Jaccard(querySet, s.normalizer.TokenSet(cachedKey))
			if similarity > bestScore {
				bestScore = similarity
				bestKey = cachedKey
			}
		}
		if bestKey != "" {
			entry := s.entries[bestKey]
			s.recordHit(ctx)
			return &entry, bestKey, true
		}
	}

	s.recordMiss(ctx)
	return nil, "", false
}

// Put stores the analysis and results under the exact normalized key,
// overwriting any prior entry for that key. The persistence error, if
// any, is returned so the caller can log it; the in-memory write always
// succeeds.
func (s *QueryCacheService) Put(ctx context.Context, query string, analysis *entities.QueryAnalysis, results []entities.ResultItem) error {
	key := s.normalizer.Normalize(query)
	if key == "" {
		return nil
	}

	entry := entities.CacheEntry{
		Analysis:  analysis,
		Results:   results,
		Timestamp: time.Now().UTC(),
	}

	s.mu.Lock()
	s.entries[key] = entry
	snapshot := make(map[string]entities.CacheEntry, len(s.entries))
	for k, v := range s.entries {
		snapshot[k] = v
	}
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	return s.store.Save(ctx, snapshot)
}

// Entries returns a copy of all cached entries, used to replay the
// relationship graph at startup.
func (s *QueryCacheService) Entries() map[string]entities.CacheEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make(map[string]entities.CacheEntry, len(s.entries))
	for k, v := range s.entries {
		copied[k] = v
	}
	return copied
}

// Len returns the number of cached entries
func (s *QueryCacheService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *QueryCacheService) recordHit(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.CacheHitCount.Add(ctx, 1)
	}
}

func (s *QueryCacheService) recordMiss(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.CacheMissCount.Add(ctx, 1)
	}
}
