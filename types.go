package lexsearch

import (
	"context"
	"time"
)

// Embedder vectorizes text. Implementations must return vectors of the
// dimension the engine was configured with.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}

// Document is a legal case submitted for ingestion.
type Document struct {
	Name         string
	Citation     string
	Court        string
	DecisionDate time.Time
	Jurisdiction string
	Judges       []string
	Topics       []string
	DocketNumber string
	SourceURL    string
	Text         string
}

// Query describes one search. Zero-value date fields disable the date
// filter; a zero DateTo with a set DateFrom means "from DateFrom onward".
type Query struct {
	Text            string
	MaxResults      int
	Courts          []string
	DateFrom        time.Time
	DateTo          time.Time
	DisableSemantic bool
	DisablePrefix   bool
}

// Highlight marks a byte range [Start, End) inside a snippet.
type Highlight struct {
	Start int
	End   int
	Kind  string
}

// Result is a single ranked hit.
type Result struct {
	CaseID       string
	Name         string
	Citation     string
	Court        string
	DecisionDate time.Time
	Jurisdiction string
	Score        float64
	MatchType    string
	Snippet      string
	Highlights   []Highlight
}

// IngestResult summarizes one ingestion batch.
type IngestResult struct {
	Ingested int
	Failed   int
}

// Stats is a snapshot of the engine's indexes and storage.
type Stats struct {
	StoredCases   int
	TotalVectors  int
	Dimension     int
	TrieNodes     int
	CachedQueries int
}

// Health reports per-component availability.
type Health struct {
	OK     bool
	Checks map[string]string
}
