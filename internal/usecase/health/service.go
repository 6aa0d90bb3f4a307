// Package health aggregates component health checks and engine statistics.
package health

import (
	"context"
	"fmt"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Stats is a point-in-time snapshot of the engine's indexes and storage.
type Stats struct {
	StoredCases   int `json:"stored_cases"`
	TotalVectors  int `json:"total_vectors"`
	Dimension     int `json:"dimension"`
	TrieNodes     int `json:"trie_nodes"`
	CachedQueries int `json:"cached_queries"`
}

// Service coordinates health checks and stats collection.
type Service struct {
	storage   StoragePinger
	embedding EmbeddingChecker
	cases     CaseCounter
	vec       VectorStats
	lex       LexicalStats
	cache     CacheStats
}

// New creates a Service. embedding and cache can be nil.
func New(
	storage StoragePinger,
	embedding EmbeddingChecker,
	cases CaseCounter,
	vec VectorStats,
	lex LexicalStats,
	cache CacheStats,
) *Service {
	return &Service{
		storage:   storage,
		embedding: embedding,
		cases:     cases,
		vec:       vec,
		lex:       lex,
		cache:     cache,
	}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.storage.Ping(ctx); err != nil {
		checks["storage"] = CheckError
	} else {
		checks["storage"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

// Stats collects engine counters. Storage errors abort the snapshot.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	count, err := s.cases.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count cases: %w", err)
	}

	stats := Stats{
		StoredCases:  count,
		TotalVectors: s.vec.Len(),
		Dimension:    s.vec.Dimension(),
		TrieNodes:    s.lex.NodeCount(),
	}
	if s.cache != nil {
		stats.CachedQueries = s.cache.Len()
	}
	return stats, nil
}
