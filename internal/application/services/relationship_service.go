package services

import (
	"sort"
	"sync"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
)

// EdgeType classifies a directed edge between two service codes.
type EdgeType string

const (
	EdgeRelated      EdgeType = "related"
	EdgePrerequisite EdgeType = "prerequisite"
	EdgeFollowUp     EdgeType = "follow_up"
)

// RelationshipService maintains a code-to-code adjacency graph built
// incrementally from resolved queries. Edges live in sets, so replaying
// the same observation any number of times leaves the graph unchanged.
type RelationshipService struct {
	mu    sync.RWMutex
	edges map[string]map[EdgeType]map[string]struct{}
}

// NewRelationshipService creates an empty relationship graph
func NewRelationshipService() *RelationshipService {
	return &RelationshipService{
		edges: make(map[string]map[EdgeType]map[string]struct{}),
	}
}

// AddObservation inserts typed directed edges from code to each listed
// counterpart. Idempotent; self-edges and empty codes are dropped.
func (s *RelationshipService) AddObservation(code string, related, prerequisites, followUps []string) {
	if code == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.addEdges(code, EdgeRelated, related)
	s.addEdges(code, EdgePrerequisite, prerequisites)
	s.addEdges(code, EdgeFollowUp, followUps)
}

func (s *RelationshipService) addEdges(code string, kind EdgeType, targets []string) {
	for _, target := range targets {
		if target == "" || target == code {
			continue
		}
		byType, ok := s.edges[code]
		if !ok {
			byType = make(map[EdgeType]map[string]struct{})
			s.edges[code] = byType
		}
		set, ok := byType[kind]
		if !ok {
			set = make(map[string]struct{})
			byType[kind] = set
		}
		set[target] = struct{}{}
	}
}

// RelatedTo returns up to limit distinct codes reachable via a depth-1
// traversal of related edges, in deterministic order.
func (s *RelationshipService) RelatedTo(code string, limit int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.edges[code][EdgeRelated]
	if !ok || len(set) == 0 {
		return nil
	}

	codes := make([]string, 0, len(set))
	for c := range set {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	if limit > 0 && len(codes) > limit {
		codes = codes[:limit]
	}
	return codes
}

// Observe feeds one cache entry into the graph: all primary codes of
// one analysis become mutually related, and every tagged related
// suggestion links back to each primary.
func (s *RelationshipService) Observe(entry entities.CacheEntry) {
	var primaries, suggestions []string
	for _, item := range entry.Results {
		if item.Related {
			suggestions = append(suggestions, item.Code)
		} else {
			primaries = append(primaries, item.Code)
		}
	}

	for _, code := range primaries {
		others := make([]string, 0, len(primaries)+len(suggestions))
		for _, other := range primaries {
			if other != code {
				others = append(others, other)
			}
		}
		others = append(others, suggestions...)
		s.AddObservation(code, others, nil, nil)
	}
	for _, code := range suggestions {
		s.AddObservation(code, primaries, nil, nil)
	}
}

// RebuildFrom replays all cache entries through Observe. Idempotent:
// rebuilding twice from the same entries yields the same edge set.
func (s *RelationshipService) RebuildFrom(entries map[string]entities.CacheEntry) {
	for _, entry := range entries {
		s.Observe(entry)
	}
}

// EdgeCount returns the total number of directed edges in the graph
func (s *RelationshipService) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, byType := range s.edges {
		for _, set := range byType {
			count += len(set)
		}
	}
	return count
}
