package domain

import "time"

// MatchType tags how a search result was found.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchPrefix   MatchType = "prefix"
	MatchSemantic MatchType = "semantic"
	MatchCaseName MatchType = "case_name"
	MatchCitation MatchType = "citation"
)

// HighlightKind classifies a highlighted span inside a snippet.
type HighlightKind string

const (
	HighlightExact    HighlightKind = "exact"
	HighlightSemantic HighlightKind = "semantic"
	HighlightCaseName HighlightKind = "case_name"
	HighlightCitation HighlightKind = "citation"
)

// Highlight marks a byte range [Start, End) inside a snippet.
type Highlight struct {
	Start int
	End   int
	Kind  HighlightKind
}

// SearchResult is a single ranked hit. Constructed per query, never persisted.
type SearchResult struct {
	Case       CaseMetadata
	Score      float64
	MatchType  MatchType
	Snippet    string
	Highlights []Highlight
}

// SearchOptions tunes a single query's fusion behavior.
type SearchOptions struct {
	MaxResults       int
	MinSimilarity    float64
	ExactMatchWeight float64
	EnableSemantic   bool
	EnablePrefix     bool
}

// DefaultSearchOptions mirrors the engine's configured defaults.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		MaxResults:       10,
		MinSimilarity:    0.5,
		ExactMatchWeight: 2.0,
		EnableSemantic:   true,
		EnablePrefix:     true,
	}
}

// DateRange is an inclusive [Start, End] decision-date filter.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// SearchQuery carries the query text and optional filters.
// MaxResults <= 0 means "use the configured default".
type SearchQuery struct {
	Query       string
	MaxResults  int
	CourtFilter []string
	DateRange   *DateRange
	Options     SearchOptions
}
