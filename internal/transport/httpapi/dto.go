package httpapi

import (
	"fmt"
	"time"

	"github.com/lexhaven/lexsearch/internal/domain"
	"github.com/lexhaven/lexsearch/internal/usecase/ingest"
)

// dateLayout is the wire format for filter and decision dates.
const dateLayout = "2006-01-02"

type searchRequest struct {
	Query      string         `json:"query"`
	MaxResults int            `json:"max_results,omitempty"`
	Courts     []string       `json:"courts,omitempty"`
	DateFrom   string         `json:"date_from,omitempty"`
	DateTo     string         `json:"date_to,omitempty"`
	Options    *searchOptions `json:"options,omitempty"`
}

// searchOptions overrides per-query fusion behavior. Omitted enable flags
// default to true; omitted numerics fall back to the engine configuration.
type searchOptions struct {
	MaxResults       int     `json:"max_results,omitempty"`
	MinSimilarity    float64 `json:"min_similarity,omitempty"`
	ExactMatchWeight float64 `json:"exact_match_weight,omitempty"`
	EnableSemantic   *bool   `json:"enable_semantic,omitempty"`
	EnablePrefix     *bool   `json:"enable_prefix,omitempty"`
}

func (r searchRequest) toDomain() (domain.SearchQuery, error) {
	q := domain.SearchQuery{
		Query:       r.Query,
		MaxResults:  r.MaxResults,
		CourtFilter: r.Courts,
	}

	if r.DateFrom != "" || r.DateTo != "" {
		dr, err := parseDateRange(r.DateFrom, r.DateTo)
		if err != nil {
			return domain.SearchQuery{}, err
		}
		q.DateRange = &dr
	}

	if r.Options != nil {
		opts := domain.SearchOptions{
			MaxResults:       r.Options.MaxResults,
			MinSimilarity:    r.Options.MinSimilarity,
			ExactMatchWeight: r.Options.ExactMatchWeight,
			EnableSemantic:   true,
			EnablePrefix:     true,
		}
		if r.Options.EnableSemantic != nil {
			opts.EnableSemantic = *r.Options.EnableSemantic
		}
		if r.Options.EnablePrefix != nil {
			opts.EnablePrefix = *r.Options.EnablePrefix
		}
		q.Options = opts
	}

	return q, nil
}

func parseDateRange(from, to string) (domain.DateRange, error) {
	var dr domain.DateRange
	var err error

	if from != "" {
		dr.Start, err = time.Parse(dateLayout, from)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("invalid date_from %q: expected YYYY-MM-DD", from)
		}
	}
	if to != "" {
		dr.End, err = time.Parse(dateLayout, to)
		if err != nil {
			return domain.DateRange{}, fmt.Errorf("invalid date_to %q: expected YYYY-MM-DD", to)
		}
	} else {
		dr.End = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}

	return dr, nil
}

type searchResponse struct {
	Results []searchResultItem `json:"results"`
	Total   int                `json:"total"`
	TookMS  int64              `json:"took_ms"`
}

type searchResultItem struct {
	Case       caseItem        `json:"case"`
	Score      float64         `json:"score"`
	MatchType  string          `json:"match_type"`
	Snippet    string          `json:"snippet,omitempty"`
	Highlights []highlightItem `json:"highlights,omitempty"`
}

type caseItem struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Citation     string   `json:"citation,omitempty"`
	Court        string   `json:"court,omitempty"`
	DecisionDate string   `json:"decision_date,omitempty"`
	Jurisdiction string   `json:"jurisdiction,omitempty"`
	Judges       []string `json:"judges,omitempty"`
	Topics       []string `json:"topics,omitempty"`
	DocketNumber string   `json:"docket_number,omitempty"`
	SourceURL    string   `json:"source_url,omitempty"`
	WordCount    int      `json:"word_count,omitempty"`
}

type highlightItem struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Kind  string `json:"kind"`
}

func resultToItem(r domain.SearchResult) searchResultItem {
	item := searchResultItem{
		Case:      caseToItem(r.Case),
		Score:     r.Score,
		MatchType: string(r.MatchType),
		Snippet:   r.Snippet,
	}
	for _, h := range r.Highlights {
		item.Highlights = append(item.Highlights, highlightItem{
			Start: h.Start,
			End:   h.End,
			Kind:  string(h.Kind),
		})
	}
	return item
}

func caseToItem(m domain.CaseMetadata) caseItem {
	item := caseItem{
		ID:           m.ID.String(),
		Name:         m.Name,
		Citation:     m.Citation,
		Court:        m.Court,
		Jurisdiction: string(m.Jurisdiction),
		Judges:       m.Judges,
		Topics:       m.Topics,
		DocketNumber: m.DocketNumber,
		SourceURL:    m.SourceURL,
		WordCount:    m.WordCount,
	}
	if !m.DecisionDate.IsZero() {
		item.DecisionDate = m.DecisionDate.Format(dateLayout)
	}
	return item
}

type ingestRequest struct {
	Cases []ingestCaseItem `json:"cases"`
}

type ingestCaseItem struct {
	Name         string   `json:"name"`
	Citation     string   `json:"citation,omitempty"`
	Court        string   `json:"court,omitempty"`
	DecisionDate string   `json:"decision_date,omitempty"`
	Jurisdiction string   `json:"jurisdiction,omitempty"`
	Judges       []string `json:"judges,omitempty"`
	Topics       []string `json:"topics,omitempty"`
	DocketNumber string   `json:"docket_number,omitempty"`
	SourceURL    string   `json:"source_url,omitempty"`
	Text         string   `json:"text"`
}

func (c ingestCaseItem) toDocument() (ingest.Document, error) {
	doc := ingest.Document{
		Name:         c.Name,
		Citation:     c.Citation,
		Court:        c.Court,
		Judges:       c.Judges,
		Topics:       c.Topics,
		Jurisdiction: domain.Jurisdiction(c.Jurisdiction),
		DocketNumber: c.DocketNumber,
		SourceURL:    c.SourceURL,
		Text:         c.Text,
	}
	if c.DecisionDate != "" {
		d, err := time.Parse(dateLayout, c.DecisionDate)
		if err != nil {
			return ingest.Document{}, fmt.Errorf("invalid decision_date %q: expected YYYY-MM-DD", c.DecisionDate)
		}
		doc.DecisionDate = d
	}
	return doc, nil
}

type ingestResponse struct {
	Ingested int `json:"ingested"`
	Failed   int `json:"failed"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
