// Package lexsearch embeds the hybrid legal-case search engine: a prefix
// trie and an HNSW vector index over a persistent case store, fused by a
// ranking coordinator. The lexsearch binary wraps this same wiring in an
// HTTP server.
package lexsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lexhaven/lexsearch/internal/cache"
	"github.com/lexhaven/lexsearch/internal/db"
	dbmemory "github.com/lexhaven/lexsearch/internal/db/memory"
	dbredis "github.com/lexhaven/lexsearch/internal/db/redis"
	"github.com/lexhaven/lexsearch/internal/domain"
	"github.com/lexhaven/lexsearch/internal/index/hnsw"
	"github.com/lexhaven/lexsearch/internal/index/trie"
	"github.com/lexhaven/lexsearch/internal/repository/casestore"
	"github.com/lexhaven/lexsearch/internal/repository/embcache"
	openaiemb "github.com/lexhaven/lexsearch/internal/transport/openai"
	healthuc "github.com/lexhaven/lexsearch/internal/usecase/health"
	ingestuc "github.com/lexhaven/lexsearch/internal/usecase/ingest"
	searchuc "github.com/lexhaven/lexsearch/internal/usecase/search"
)

// Engine is the embedded entry point.
type Engine struct {
	cases     *casestore.Store
	kv        db.Store
	lex       *trie.Index
	vec       *hnsw.Index
	qcache    *cache.QueryCache
	searchSvc *searchuc.Service
	ingestSvc *ingestuc.Service
	healthSvc *healthuc.Service
	logger    *zap.Logger
	semantic  bool
}

// New creates an engine. Without WithEmbedder or WithOpenAI the semantic
// stage is disabled and ingestion rejects documents, since paragraphs cannot
// be vectorized; lexical search still works over previously loaded tries.
func New(opts ...Option) (*Engine, error) {
	cfg := &engineConfig{
		dimensions:         768,
		metric:             "cosine",
		hnswM:              16,
		hnswEFConstruction: 200,
		hnswEFSearch:       50,
		maxResults:         10,
		minSimilarity:      0.5,
		timeout:            5 * time.Second,
		cacheSize:          10000,
		cacheTTL:           time.Hour,
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	cases, err := casestore.Open(casestore.Options{
		Path:         cfg.storagePath,
		InMemory:     cfg.storagePath == "",
		CompressText: cfg.compressText,
	}, cfg.logger)
	if err != nil {
		return nil, fmt.Errorf("lexsearch: open case store: %w", err)
	}

	vecIdx, err := hnsw.New(hnsw.Config{
		M:              cfg.hnswM,
		EFConstruction: cfg.hnswEFConstruction,
		EFSearch:       cfg.hnswEFSearch,
		Dimension:      cfg.dimensions,
		Metric:         hnsw.Metric(cfg.metric),
	})
	if err != nil {
		cases.Close()
		return nil, fmt.Errorf("lexsearch: %w", err)
	}

	e := &Engine{
		cases:  cases,
		lex:    trie.NewIndex(),
		vec:    vecIdx,
		qcache: cache.NewQueryCache(cfg.cacheSize),
		logger: cfg.logger,
	}

	provider, checker, err := e.buildEmbedder(cfg)
	if err != nil {
		cases.Close()
		return nil, err
	}
	e.semantic = provider != nil

	var queryEmb searchuc.Embedder = unconfiguredEmbedder{}
	var batchEmb ingestuc.Embedder = unconfiguredEmbedder{}
	if provider != nil {
		queryEmb = provider
		batchEmb = provider
	}

	e.searchSvc = searchuc.New(searchuc.Config{
		MinQueryLength:   2,
		MaxQueryLength:   1000,
		MaxResults:       cfg.maxResults,
		MinSimilarity:    cfg.minSimilarity,
		ExactMatchWeight: 2.0,
		EnableSemantic:   e.semantic,
		EnablePrefix:     true,
		EnableQueryCache: !cfg.disableCache,
		CacheTTL:         cfg.cacheTTL,
		Timeout:          cfg.timeout,
	}, e.lex, e.vec, cases, e.qcache, queryEmb, cfg.logger)

	e.ingestSvc, err = ingestuc.New(ingestuc.Config{
		Workers:      cfg.workers,
		MaxRetries:   3,
		RetryBackoff: time.Second,
	}, cases, e.lex, e.vec, batchEmb, cfg.logger)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("lexsearch: %w", err)
	}

	e.healthSvc = healthuc.New(cases, checker, cases, e.vec, e.lex, e.qcache)
	return e, nil
}

// buildEmbedder assembles the provider and its cache decorator. Returns a
// nil provider when no embedder is configured.
func (e *Engine) buildEmbedder(cfg *engineConfig) (*embcache.CachedEmbedder, healthuc.EmbeddingChecker, error) {
	var inner interface {
		domain.Embedder
		domain.BatchEmbedder
	}
	var checker healthuc.EmbeddingChecker

	switch {
	case cfg.embedder != nil:
		inner = &embedderAdapter{inner: cfg.embedder}
	case cfg.openAIKey != "":
		base := openaiemb.NewEmbedder(&openaiemb.Config{
			APIKey:     cfg.openAIKey,
			BaseURL:    cfg.openAIBase,
			Model:      cfg.model,
			Dimensions: cfg.dimensions,
			Provider:   "openai",
			Logger:     cfg.logger,
		})
		inner = base
		checker = base
	default:
		return nil, nil, nil
	}

	var kv db.Store
	if len(cfg.redisAddrs) > 0 {
		store, err := dbredis.NewStore(dbredis.Config{
			Addrs:    cfg.redisAddrs,
			Password: cfg.redisPassword,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("lexsearch: create redis store: %w", err)
		}
		kv = store
	} else {
		kv = dbmemory.NewStore()
	}
	e.kv = kv

	return embcache.New(inner, kv, cfg.model, nil, cfg.logger), checker, nil
}

// Close releases the worker pool and all stores.
func (e *Engine) Close() error {
	if e.ingestSvc != nil {
		e.ingestSvc.Release()
	}
	if e.kv != nil {
		e.kv.Close()
	}
	if e.cases != nil {
		if err := e.cases.Close(); err != nil {
			return fmt.Errorf("lexsearch: %w", err)
		}
	}
	return nil
}

// Search runs a hybrid query.
func (e *Engine) Search(ctx context.Context, q Query) ([]Result, error) {
	dq := domain.SearchQuery{
		Query:       q.Text,
		MaxResults:  q.MaxResults,
		CourtFilter: q.Courts,
	}
	if !q.DateFrom.IsZero() || !q.DateTo.IsZero() {
		end := q.DateTo
		if end.IsZero() {
			end = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
		}
		dq.DateRange = &domain.DateRange{Start: q.DateFrom, End: end}
	}
	if q.DisableSemantic || q.DisablePrefix {
		dq.Options = domain.DefaultSearchOptions()
		dq.Options.EnableSemantic = !q.DisableSemantic && e.semantic
		dq.Options.EnablePrefix = !q.DisablePrefix
	}

	results, err := e.searchSvc.Search(ctx, dq)
	if err != nil {
		return nil, err
	}

	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = toResult(r)
	}
	return out, nil
}

// Ingest indexes and stores a batch of documents.
func (e *Engine) Ingest(ctx context.Context, docs []Document) (IngestResult, error) {
	in := make([]ingestuc.Document, len(docs))
	for i, d := range docs {
		in[i] = ingestuc.Document{
			Name:         d.Name,
			Citation:     d.Citation,
			Court:        d.Court,
			DecisionDate: d.DecisionDate,
			Judges:       d.Judges,
			Topics:       d.Topics,
			Jurisdiction: domain.Jurisdiction(d.Jurisdiction),
			DocketNumber: d.DocketNumber,
			SourceURL:    d.SourceURL,
			Text:         d.Text,
		}
	}

	res, err := e.ingestSvc.IngestBatch(ctx, in)
	if err != nil {
		return IngestResult{}, err
	}
	return IngestResult{Ingested: res.Ingested, Failed: res.Failed}, nil
}

// Stats reports index and storage counters.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	s, err := e.healthSvc.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		StoredCases:   s.StoredCases,
		TotalVectors:  s.TotalVectors,
		Dimension:     s.Dimension,
		TrieNodes:     s.TrieNodes,
		CachedQueries: s.CachedQueries,
	}, nil
}

// Health checks component availability.
func (e *Engine) Health(ctx context.Context) Health {
	report := e.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return Health{OK: report.Status == healthuc.Healthy, Checks: checks}
}

func toResult(r domain.SearchResult) Result {
	out := Result{
		CaseID:       r.Case.ID.String(),
		Name:         r.Case.Name,
		Citation:     r.Case.Citation,
		Court:        r.Case.Court,
		DecisionDate: r.Case.DecisionDate,
		Jurisdiction: string(r.Case.Jurisdiction),
		Score:        r.Score,
		MatchType:    string(r.MatchType),
		Snippet:      r.Snippet,
	}
	for _, h := range r.Highlights {
		out.Highlights = append(out.Highlights, Highlight{Start: h.Start, End: h.End, Kind: string(h.Kind)})
	}
	return out
}

// embedderAdapter wraps the public Embedder to satisfy the internal
// contracts.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	vec, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	vecs, err := a.inner.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	return domain.BatchEmbeddingResult{Embeddings: vecs}, nil
}

// unconfiguredEmbedder fails every call with a configuration hint.
type unconfiguredEmbedder struct{}

var errNoEmbedder = errors.New(
	"lexsearch: embedder not configured (use WithEmbedder or WithOpenAI)")

func (unconfiguredEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errNoEmbedder
}

func (unconfiguredEmbedder) BatchEmbed(context.Context, []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchEmbeddingResult{}, errNoEmbedder
}
