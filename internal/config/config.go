package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the lexsearch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Storage   StorageConfig   `yaml:"storage"`
	Cache     CacheConfig     `yaml:"cache"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Trie      TrieConfig      `yaml:"trie"`
	HNSW      HNSWConfig      `yaml:"hnsw"`
	Search    SearchConfig    `yaml:"search"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StorageConfig holds case store settings.
type StorageConfig struct {
	Path           string  `yaml:"path"` // badger directory; empty + in_memory=false is invalid
	InMemory       bool    `yaml:"in_memory"`
	CompressText   bool    `yaml:"compress_text"`
	GCIntervalSec  int     `yaml:"gc_interval_sec"`
	GCDiscardRatio float64 `yaml:"gc_discard_ratio"`
}

// CacheConfig holds the embedding-cache KV backend settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// TrieConfig holds lexical index settings.
type TrieConfig struct {
	MaxCompletions int `yaml:"max_completions"`
}

// HNSWConfig holds vector index settings.
type HNSWConfig struct {
	M              int    `yaml:"m"`
	EFConstruction int    `yaml:"ef_construction"`
	EFSearch       int    `yaml:"ef_search"`
	MaxElements    int    `yaml:"max_elements"`
	Metric         string `yaml:"metric"` // cosine, l2 (default: cosine)
}

// SearchConfig holds query-side behavior.
type SearchConfig struct {
	DefaultMaxResults int     `yaml:"default_max_results"`
	TimeoutMS         int     `yaml:"timeout_ms"`
	MinQueryLength    int     `yaml:"min_query_length"`
	MaxQueryLength    int     `yaml:"max_query_length"`
	MinSimilarity     float64 `yaml:"min_similarity"`
	ExactMatchWeight  float64 `yaml:"exact_match_weight"`
	EnableSemantic    *bool   `yaml:"enable_semantic"`
	EnablePrefix      *bool   `yaml:"enable_prefix"`
	EnableQueryCache  *bool   `yaml:"enable_query_cache"`
	QueryCacheSize    int     `yaml:"query_cache_size"`
	QueryCacheTTLSec  int     `yaml:"query_cache_ttl_sec"`
}

// IngestionConfig holds ingestion pipeline settings.
type IngestionConfig struct {
	BatchSize     int `yaml:"batch_size"`
	Workers       int `yaml:"workers"`
	RetryAttempts int `yaml:"retry_attempts"`
	RetryDelaySec int `yaml:"retry_delay_sec"`
	MinTextLength int `yaml:"min_text_length"`
	MaxTextLength int `yaml:"max_text_length"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Storage.GCIntervalSec <= 0 {
		c.Storage.GCIntervalSec = 300
	}
	if c.Storage.GCDiscardRatio <= 0 {
		c.Storage.GCDiscardRatio = 0.5
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 768
	}
	if c.Trie.MaxCompletions <= 0 {
		c.Trie.MaxCompletions = 10
	}
	if c.HNSW.M <= 0 {
		c.HNSW.M = 16
	}
	if c.HNSW.EFConstruction <= 0 {
		c.HNSW.EFConstruction = 200
	}
	if c.HNSW.EFSearch <= 0 {
		c.HNSW.EFSearch = 50
	}
	if c.HNSW.MaxElements <= 0 {
		c.HNSW.MaxElements = 10_000_000
	}
	if c.HNSW.Metric == "" {
		c.HNSW.Metric = "cosine"
	}
	if c.Search.DefaultMaxResults <= 0 {
		c.Search.DefaultMaxResults = 10
	}
	if c.Search.TimeoutMS <= 0 {
		c.Search.TimeoutMS = 5000
	}
	if c.Search.MinQueryLength <= 0 {
		c.Search.MinQueryLength = 2
	}
	if c.Search.MaxQueryLength <= 0 {
		c.Search.MaxQueryLength = 1000
	}
	if c.Search.MinSimilarity <= 0 {
		c.Search.MinSimilarity = 0.5
	}
	if c.Search.ExactMatchWeight <= 0 {
		c.Search.ExactMatchWeight = 2.0
	}
	if c.Search.EnableSemantic == nil {
		c.Search.EnableSemantic = boolPtr(true)
	}
	if c.Search.EnablePrefix == nil {
		c.Search.EnablePrefix = boolPtr(true)
	}
	if c.Search.EnableQueryCache == nil {
		c.Search.EnableQueryCache = boolPtr(true)
	}
	if c.Search.QueryCacheSize <= 0 {
		c.Search.QueryCacheSize = 10000
	}
	if c.Search.QueryCacheTTLSec <= 0 {
		c.Search.QueryCacheTTLSec = 3600
	}
	if c.Ingestion.BatchSize <= 0 {
		c.Ingestion.BatchSize = 100
	}
	if c.Ingestion.Workers <= 0 {
		c.Ingestion.Workers = runtime.NumCPU()
	}
	if c.Ingestion.RetryAttempts <= 0 {
		c.Ingestion.RetryAttempts = 3
	}
	if c.Ingestion.RetryDelaySec <= 0 {
		c.Ingestion.RetryDelaySec = 5
	}
	if c.Ingestion.MinTextLength <= 0 {
		c.Ingestion.MinTextLength = 100
	}
	if c.Ingestion.MaxTextLength <= 0 {
		c.Ingestion.MaxTextLength = 1_000_000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required unless storage.in_memory is set")
	}
	switch c.Cache.Driver {
	case "memory":
	case "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("cache.driver must be \"memory\" or \"redis\", got %q", c.Cache.Driver)
	}
	switch c.HNSW.Metric {
	case "cosine", "l2":
	default:
		return fmt.Errorf("hnsw.metric must be \"cosine\" or \"l2\", got %q", c.HNSW.Metric)
	}
	if c.Search.MinQueryLength > c.Search.MaxQueryLength {
		return fmt.Errorf("search.min_query_length (%d) exceeds search.max_query_length (%d)",
			c.Search.MinQueryLength, c.Search.MaxQueryLength)
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
