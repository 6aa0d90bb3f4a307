package health

import "context"

// StoragePinger checks case storage availability.
type StoragePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CaseCounter reports the number of stored cases.
type CaseCounter interface {
	Count(ctx context.Context) (int, error)
}

// VectorStats exposes ANN index counters.
type VectorStats interface {
	Len() int
	Dimension() int
}

// LexicalStats exposes trie index counters.
type LexicalStats interface {
	NodeCount() int
}

// CacheStats exposes query cache counters.
type CacheStats interface {
	Len() int
}
