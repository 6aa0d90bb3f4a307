package lexsearch

import (
	"time"

	"go.uber.org/zap"
)

type engineConfig struct {
	storagePath  string
	compressText bool

	embedder   Embedder
	openAIKey  string
	openAIBase string
	model      string
	dimensions int

	hnswM              int
	hnswEFConstruction int
	hnswEFSearch       int
	metric             string

	maxResults    int
	minSimilarity float64
	timeout       time.Duration

	cacheSize    int
	cacheTTL     time.Duration
	disableCache bool

	redisAddrs    []string
	redisPassword string

	workers int
	logger  *zap.Logger
}

// Option configures the engine.
type Option func(*engineConfig)

// WithStoragePath persists cases on disk at the given directory. Without it
// the engine keeps everything in memory.
func WithStoragePath(path string) Option {
	return func(c *engineConfig) { c.storagePath = path }
}

// WithTextCompression gzips stored case text.
func WithTextCompression() Option {
	return func(c *engineConfig) { c.compressText = true }
}

// WithEmbedder supplies a custom embedding provider. dimensions must match
// the vectors the provider returns.
func WithEmbedder(e Embedder, dimensions int) Option {
	return func(c *engineConfig) {
		c.embedder = e
		c.dimensions = dimensions
	}
}

// WithOpenAI wires an OpenAI-compatible embedding provider.
func WithOpenAI(apiKey, model string, dimensions int) Option {
	return func(c *engineConfig) {
		c.openAIKey = apiKey
		c.model = model
		c.dimensions = dimensions
	}
}

// WithOpenAIBaseURL points the OpenAI client at a compatible endpoint.
func WithOpenAIBaseURL(baseURL string) Option {
	return func(c *engineConfig) { c.openAIBase = baseURL }
}

// WithHNSW tunes the vector index graph parameters.
func WithHNSW(m, efConstruction, efSearch int) Option {
	return func(c *engineConfig) {
		c.hnswM = m
		c.hnswEFConstruction = efConstruction
		c.hnswEFSearch = efSearch
	}
}

// WithMetric selects the vector distance metric ("cosine" or "l2").
func WithMetric(metric string) Option {
	return func(c *engineConfig) { c.metric = metric }
}

// WithMaxResults sets the default result list bound.
func WithMaxResults(n int) Option {
	return func(c *engineConfig) { c.maxResults = n }
}

// WithMinSimilarity sets the semantic similarity floor.
func WithMinSimilarity(f float64) Option {
	return func(c *engineConfig) { c.minSimilarity = f }
}

// WithQueryTimeout bounds each query's total execution time.
func WithQueryTimeout(d time.Duration) Option {
	return func(c *engineConfig) { c.timeout = d }
}

// WithQueryCache sizes the result cache.
func WithQueryCache(size int, ttl time.Duration) Option {
	return func(c *engineConfig) {
		c.cacheSize = size
		c.cacheTTL = ttl
	}
}

// WithoutQueryCache disables result caching.
func WithoutQueryCache() Option {
	return func(c *engineConfig) { c.disableCache = true }
}

// WithRedisEmbeddingCache backs the embedding cache with Redis instead of
// the in-process store.
func WithRedisEmbeddingCache(addrs []string, password string) Option {
	return func(c *engineConfig) {
		c.redisAddrs = addrs
		c.redisPassword = password
	}
}

// WithWorkers sets the ingestion worker pool size.
func WithWorkers(n int) Option {
	return func(c *engineConfig) { c.workers = n }
}

// WithLogger replaces the default no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) { c.logger = logger }
}
