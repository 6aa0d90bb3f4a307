package search

import (
	"context"
	"time"

	"github.com/lexhaven/lexsearch/internal/domain"
	"github.com/lexhaven/lexsearch/internal/index/hnsw"
	"github.com/lexhaven/lexsearch/internal/index/trie"
)

// LexicalIndex is the prefix-trie side of the engine.
type LexicalIndex interface {
	Search(query string) trie.Result
}

// VectorIndex is the ANN side of the engine.
type VectorIndex interface {
	Search(query []float32, topK int) ([]hnsw.Match, error)
}

// CaseReader resolves case ids to stored metadata and full text.
type CaseReader interface {
	GetMetadata(ctx context.Context, id domain.CaseID) (domain.CaseMetadata, error)
	GetText(ctx context.Context, id domain.CaseID) (string, error)
}

// ResultCache stores final result lists keyed by raw query text.
type ResultCache interface {
	Get(key string) ([]domain.SearchResult, bool)
	Insert(key string, results []domain.SearchResult, ttl time.Duration)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
