// Package search implements the hybrid search coordinator: lexical trie
// matches and semantic ANN matches fused into one ranked, deduplicated,
// filtered result list.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/lexhaven/lexsearch/internal/domain"
	"github.com/lexhaven/lexsearch/internal/metrics"
)

// semanticOverFetch is the fixed ANN over-fetch width. The vector index
// returns up to this many candidates before similarity filtering and fusion.
const semanticOverFetch = 50

// Config holds the coordinator's tuning parameters.
type Config struct {
	MinQueryLength   int
	MaxQueryLength   int
	MaxResults       int
	MinSimilarity    float64
	ExactMatchWeight float64
	EnableSemantic   bool
	EnablePrefix     bool
	EnableQueryCache bool
	CacheTTL         time.Duration
	Timeout          time.Duration
}

// Service coordinates the lexical and semantic stages of a query.
type Service struct {
	cfg    Config
	lex    LexicalIndex
	vec    VectorIndex
	cases  CaseReader
	cache  ResultCache
	embed  Embedder
	logger *zap.Logger
}

// New creates a search coordinator.
func New(
	cfg Config,
	lex LexicalIndex,
	vec VectorIndex,
	cases CaseReader,
	cache ResultCache,
	embed Embedder,
	logger *zap.Logger,
) *Service {
	return &Service{
		cfg:    cfg,
		lex:    lex,
		vec:    vec,
		cases:  cases,
		cache:  cache,
		embed:  embed,
		logger: logger,
	}
}

// Search runs the full pipeline: validation, cache lookup, lexical stage,
// semantic stage, fusion, filtering, truncation and cache write-back.
func (s *Service) Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	start := time.Now()

	results, err := s.search(ctx, q)

	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.SearchRequestsTotal.WithLabelValues(statusLabel(err)).Inc()

	return results, err
}

func (s *Service) search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	if err := s.validate(q); err != nil {
		return nil, err
	}

	opts := s.effectiveOptions(q.Options)

	// The raw query text is the cache key; filters and limits are not part
	// of it, so queries differing only in those share an entry. Known
	// limitation, kept to preserve cache behavior across repeat queries.
	if s.cfg.EnableQueryCache {
		if cached, ok := s.cache.Get(q.Query); ok {
			metrics.QueryCacheTotal.WithLabelValues("hit").Inc()
			s.logger.Debug("Query cache hit", zap.String("query", q.Query))
			return cached, nil
		}
		metrics.QueryCacheTotal.WithLabelValues("miss").Inc()
	}

	var results []domain.SearchResult
	seen := make(map[domain.CaseID]struct{})

	if opts.EnablePrefix {
		results = s.lexicalStage(ctx, q.Query, opts, seen, results)
	}

	if opts.EnableSemantic && len(results) < opts.MaxResults {
		var err error
		results, err = s.semanticStage(ctx, q.Query, opts, seen, results)
		if err != nil {
			return nil, err
		}
	}

	stableSortByScoreDesc(results)
	results = applyFilters(results, q)
	results = truncate(results, q.MaxResults, opts.MaxResults)

	if err := timeoutErr(ctx); err != nil {
		return nil, err
	}

	if s.cfg.EnableQueryCache {
		s.cache.Insert(q.Query, results, s.cfg.CacheTTL)
	}

	return results, nil
}

// lexicalStage emits one exact-match result per distinct case found in the
// trie. A metadata miss skips the ref; it never fails the query.
func (s *Service) lexicalStage(
	ctx context.Context,
	query string,
	opts domain.SearchOptions,
	seen map[domain.CaseID]struct{},
	results []domain.SearchResult,
) []domain.SearchResult {
	lexRes := s.lex.Search(query)

	for _, ref := range lexRes.ExactMatches {
		if _, dup := seen[ref.CaseID]; dup {
			continue
		}

		meta, err := s.cases.GetMetadata(ctx, ref.CaseID)
		if err != nil {
			if !errors.Is(err, domain.ErrCaseNotFound) {
				s.logger.Warn("Failed to resolve case metadata",
					zap.String("case_id", ref.CaseID.String()), zap.Error(err))
			}
			continue
		}
		seen[ref.CaseID] = struct{}{}

		snippet, highlights := s.buildSnippet(ctx, ref, query, domain.HighlightExact)
		results = append(results, domain.SearchResult{
			Case:       meta,
			Score:      opts.ExactMatchWeight,
			MatchType:  domain.MatchExact,
			Snippet:    snippet,
			Highlights: highlights,
		})
	}

	return results
}

// semanticStage embeds the query and merges ANN hits above the similarity
// floor, skipping cases the lexical stage already emitted. Provider or
// index failures fail the whole query.
func (s *Service) semanticStage(
	ctx context.Context,
	query string,
	opts domain.SearchOptions,
	seen map[domain.CaseID]struct{},
	results []domain.SearchResult,
) ([]domain.SearchResult, error) {
	embRes, err := s.embed.Embed(ctx, query)
	if err != nil {
		if terr := timeoutErr(ctx); terr != nil {
			return nil, terr
		}
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	matches, err := s.vec.Search(embRes.Embedding, semanticOverFetch)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	for _, m := range matches {
		similarity := 1 - m.Distance
		if similarity < opts.MinSimilarity {
			continue
		}
		if _, dup := seen[m.Ref.CaseID]; dup {
			continue
		}

		meta, err := s.cases.GetMetadata(ctx, m.Ref.CaseID)
		if err != nil {
			if !errors.Is(err, domain.ErrCaseNotFound) {
				s.logger.Warn("Failed to resolve case metadata",
					zap.String("case_id", m.Ref.CaseID.String()), zap.Error(err))
			}
			continue
		}
		seen[m.Ref.CaseID] = struct{}{}

		snippet, highlights := s.buildSnippet(ctx, m.Ref, query, domain.HighlightSemantic)
		results = append(results, domain.SearchResult{
			Case:       meta,
			Score:      similarity,
			MatchType:  domain.MatchSemantic,
			Snippet:    snippet,
			Highlights: highlights,
		})
	}

	return results, nil
}

func (s *Service) validate(q domain.SearchQuery) error {
	length := utf8.RuneCountInString(q.Query)
	if length < s.cfg.MinQueryLength {
		return domain.NewValidationError("query",
			fmt.Sprintf("too short: minimum %d characters", s.cfg.MinQueryLength))
	}
	if length > s.cfg.MaxQueryLength {
		return domain.NewValidationError("query",
			fmt.Sprintf("too long: maximum %d characters", s.cfg.MaxQueryLength))
	}
	return nil
}

// effectiveOptions fills a zero-value options struct from the service
// configuration, and clamps individual zero numeric fields to defaults.
func (s *Service) effectiveOptions(opts domain.SearchOptions) domain.SearchOptions {
	if opts == (domain.SearchOptions{}) {
		return domain.SearchOptions{
			MaxResults:       s.cfg.MaxResults,
			MinSimilarity:    s.cfg.MinSimilarity,
			ExactMatchWeight: s.cfg.ExactMatchWeight,
			EnableSemantic:   s.cfg.EnableSemantic,
			EnablePrefix:     s.cfg.EnablePrefix,
		}
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = s.cfg.MaxResults
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = s.cfg.MinSimilarity
	}
	if opts.ExactMatchWeight <= 0 {
		opts.ExactMatchWeight = s.cfg.ExactMatchWeight
	}
	return opts
}

// stableSortByScoreDesc orders results by descending score. Stability keeps
// equal-score results in emission order (lexical before semantic).
func stableSortByScoreDesc(results []domain.SearchResult) {
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score > results[b].Score
	})
}

func applyFilters(results []domain.SearchResult, q domain.SearchQuery) []domain.SearchResult {
	if len(q.CourtFilter) > 0 {
		courts := make(map[string]struct{}, len(q.CourtFilter))
		for _, c := range q.CourtFilter {
			courts[c] = struct{}{}
		}
		filtered := results[:0]
		for _, r := range results {
			if _, ok := courts[r.Case.Court]; ok {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	if q.DateRange != nil {
		filtered := results[:0]
		for _, r := range results {
			d := r.Case.DecisionDate
			if !d.Before(q.DateRange.Start) && !d.After(q.DateRange.End) {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	return results
}

func truncate(results []domain.SearchResult, queryMax, configMax int) []domain.SearchResult {
	limit := configMax
	if queryMax > 0 && queryMax < limit {
		limit = queryMax
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func timeoutErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ErrSearchTimeout
	}
	return nil
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidQuery):
		return "invalid"
	case errors.Is(err, domain.ErrSearchTimeout):
		return "timeout"
	default:
		return "error"
	}
}
