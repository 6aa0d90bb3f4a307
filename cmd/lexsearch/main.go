// Command lexsearch runs the hybrid legal-case search engine: an HTTP
// server, a bulk ingestion tool, and a one-shot query command.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/lexhaven/lexsearch/internal/cache"
	"github.com/lexhaven/lexsearch/internal/config"
	"github.com/lexhaven/lexsearch/internal/db"
	dbmemory "github.com/lexhaven/lexsearch/internal/db/memory"
	dbredis "github.com/lexhaven/lexsearch/internal/db/redis"
	"github.com/lexhaven/lexsearch/internal/index/hnsw"
	"github.com/lexhaven/lexsearch/internal/index/trie"
	logpkg "github.com/lexhaven/lexsearch/internal/logger"
	"github.com/lexhaven/lexsearch/internal/metrics"
	"github.com/lexhaven/lexsearch/internal/repository/casestore"
	"github.com/lexhaven/lexsearch/internal/repository/embcache"
	openaiemb "github.com/lexhaven/lexsearch/internal/transport/openai"
	healthuc "github.com/lexhaven/lexsearch/internal/usecase/health"
	ingestuc "github.com/lexhaven/lexsearch/internal/usecase/ingest"
	searchuc "github.com/lexhaven/lexsearch/internal/usecase/search"
	"github.com/lexhaven/lexsearch/internal/version"
)

func main() {
	app := &cli.App{
		Name:    "lexsearch",
		Usage:   "hybrid lexical + semantic search over legal case documents",
		Version: version.Version,
		Commands: []*cli.Command{
			serveCommand(),
			ingestCommand(),
			searchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "lexsearch:", err)
		os.Exit(1)
	}
}

// components is the composition root shared by all commands.
type components struct {
	cfg       config.Config
	logger    *zap.Logger
	kv        db.Store
	cases     *casestore.Store
	lex       *trie.Index
	vec       *hnsw.Index
	qcache    *cache.QueryCache
	embedder  *embcache.CachedEmbedder
	checker   healthuc.EmbeddingChecker
	searchSvc *searchuc.Service
	ingestSvc *ingestuc.Service
	healthSvc *healthuc.Service
}

func loadConfig() (config.Config, *zap.Logger, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

// buildComponents wires stores, indexes and usecases from the configuration.
func buildComponents(ctx context.Context, cfg config.Config, logger *zap.Logger) (*components, error) {
	c := &components{cfg: cfg, logger: logger}

	kv, err := buildKV(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.kv = kv

	cases, err := casestore.Open(casestore.Options{
		Path:         cfg.Storage.Path,
		InMemory:     cfg.Storage.InMemory,
		CompressText: cfg.Storage.CompressText,
	}, logger)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("open case store: %w", err)
	}
	c.cases = cases

	c.lex = trie.NewIndexWithLimit(cfg.Trie.MaxCompletions)
	c.vec, err = hnsw.New(hnsw.Config{
		M:              cfg.HNSW.M,
		EFConstruction: cfg.HNSW.EFConstruction,
		EFSearch:       cfg.HNSW.EFSearch,
		MaxElements:    cfg.HNSW.MaxElements,
		Dimension:      cfg.Embedding.Dimensions,
		Metric:         hnsw.Metric(cfg.HNSW.Metric),
	})
	if err != nil {
		c.close()
		return nil, err
	}
	c.qcache = cache.NewQueryCache(cfg.Search.QueryCacheSize)

	base := openaiemb.NewEmbedder(&openaiemb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	c.checker = base
	c.embedder = embcache.New(base, kv, cfg.Embedding.Model, metrics.EmbeddingCacheTotal, logger)

	c.searchSvc = searchuc.New(searchuc.Config{
		MinQueryLength:   cfg.Search.MinQueryLength,
		MaxQueryLength:   cfg.Search.MaxQueryLength,
		MaxResults:       cfg.Search.DefaultMaxResults,
		MinSimilarity:    cfg.Search.MinSimilarity,
		ExactMatchWeight: cfg.Search.ExactMatchWeight,
		EnableSemantic:   *cfg.Search.EnableSemantic,
		EnablePrefix:     *cfg.Search.EnablePrefix,
		EnableQueryCache: *cfg.Search.EnableQueryCache,
		CacheTTL:         time.Duration(cfg.Search.QueryCacheTTLSec) * time.Second,
		Timeout:          time.Duration(cfg.Search.TimeoutMS) * time.Millisecond,
	}, c.lex, c.vec, cases, c.qcache, c.embedder, logger)

	c.ingestSvc, err = ingestuc.New(ingestuc.Config{
		Workers:       cfg.Ingestion.Workers,
		MaxRetries:    cfg.Ingestion.RetryAttempts,
		RetryBackoff:  time.Duration(cfg.Ingestion.RetryDelaySec) * time.Second,
		MinTextLength: cfg.Ingestion.MinTextLength,
		MaxTextLength: cfg.Ingestion.MaxTextLength,
	}, cases, c.lex, c.vec, c.embedder, logger)
	if err != nil {
		c.close()
		return nil, err
	}

	c.healthSvc = healthuc.New(cases, c.checker, cases, c.vec, c.lex, c.qcache)
	return c, nil
}

func buildKV(ctx context.Context, cfg config.Config, logger *zap.Logger) (db.Store, error) {
	switch cfg.Cache.Driver {
	case "redis":
		store, err := dbredis.NewStore(dbredis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		timeout := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis not ready: %w", err)
		}
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Cache.Addrs))
		return store, nil
	default:
		return dbmemory.NewStore(), nil
	}
}

func (c *components) close() {
	if c.ingestSvc != nil {
		c.ingestSvc.Release()
	}
	if c.cases != nil {
		if err := c.cases.Close(); err != nil {
			c.logger.Error("Failed to close case store", zap.Error(err))
		}
	}
	if c.kv != nil {
		c.kv.Close()
	}
}
