package lexsearch

import (
	"context"
	"strings"
	"testing"
	"time"
)

// keywordEmbedder maps texts onto fixed axes by keyword, so semantic
// similarity in tests is fully deterministic.
type keywordEmbedder struct{}

func (keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "contract"):
		return []float32{1, 0, 0, 0}, nil
	case strings.Contains(lower, "privacy"):
		return []float32{0, 1, 0, 0}, nil
	default:
		return []float32{0, 0, 1, 0}, nil
	}
}

func (e keywordEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	e, err := New(
		WithEmbedder(keywordEmbedder{}, 4),
		WithWorkers(2),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		if err := e.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return e
}

func seedCases(t *testing.T, e *Engine) {
	t.Helper()

	res, err := e.Ingest(context.Background(), []Document{
		{
			Name:         "Hadley v. Baxendale",
			Citation:     "9 Ex. 341",
			Court:        "Court of Exchequer",
			DecisionDate: time.Date(1854, 2, 23, 0, 0, 0, 0, time.UTC),
			Text:         "Damages for breach of contract are limited to losses within the contemplation of the parties.",
		},
		{
			Name:         "Katz v. United States",
			Citation:     "389 U.S. 347",
			Court:        "Supreme Court of the United States",
			DecisionDate: time.Date(1967, 12, 18, 0, 0, 0, 0, time.UTC),
			Text:         "The Fourth Amendment protects people, not places, and a reasonable expectation of privacy.",
		},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Ingested != 2 || res.Failed != 0 {
		t.Fatalf("unexpected ingest result: %+v", res)
	}
}

func TestEngine_CaseNameSearch(t *testing.T) {
	e := newTestEngine(t)
	seedCases(t, e)

	results, err := e.Search(context.Background(), Query{Text: "Hadley v. Baxendale"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	top := results[0]
	if top.Name != "Hadley v. Baxendale" {
		t.Errorf("unexpected top result: %+v", top)
	}
	if top.MatchType != "exact" || top.Score != 2.0 {
		t.Errorf("expected exact match with weight 2.0, got %+v", top)
	}
	if top.Snippet == "" {
		t.Error("expected a snippet")
	}
}

func TestEngine_SemanticSearch(t *testing.T) {
	e := newTestEngine(t)
	seedCases(t, e)

	results, err := e.Search(context.Background(), Query{
		Text:          "warrantless surveillance and privacy",
		DisablePrefix: true,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly the privacy case, got %d results", len(results))
	}
	if results[0].Name != "Katz v. United States" {
		t.Errorf("unexpected result: %+v", results[0])
	}
	if results[0].MatchType != "semantic" {
		t.Errorf("expected semantic match, got %s", results[0].MatchType)
	}
}

func TestEngine_CourtFilter(t *testing.T) {
	e := newTestEngine(t)
	seedCases(t, e)

	results, err := e.Search(context.Background(), Query{
		Text:   "contract law principles",
		Courts: []string{"Supreme Court of the United States"},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Court != "Supreme Court of the United States" {
			t.Errorf("court filter leaked: %+v", r)
		}
	}
}

func TestEngine_DateFilter(t *testing.T) {
	e := newTestEngine(t)
	seedCases(t, e)

	results, err := e.Search(context.Background(), Query{
		Text:     "Katz v. United States",
		DateFrom: time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected the 1967 case to pass the date filter")
	}

	none, err := e.Search(context.Background(), Query{
		Text:   "Katz v. United States 1800s",
		DateTo: time.Date(1850, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no results before 1850, got %d", len(none))
	}
}

func TestEngine_StatsAndHealth(t *testing.T) {
	e := newTestEngine(t)
	seedCases(t, e)

	stats, err := e.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.StoredCases != 2 {
		t.Errorf("expected 2 stored cases, got %d", stats.StoredCases)
	}
	if stats.TotalVectors != 2 {
		t.Errorf("expected 2 vectors, got %d", stats.TotalVectors)
	}
	if stats.Dimension != 4 {
		t.Errorf("expected dimension 4, got %d", stats.Dimension)
	}
	if stats.TrieNodes == 0 {
		t.Error("expected populated tries")
	}

	h := e.Health(context.Background())
	if !h.OK {
		t.Errorf("expected healthy engine: %+v", h)
	}
	if h.Checks["storage"] != "ok" {
		t.Errorf("unexpected storage check: %+v", h.Checks)
	}
}

func TestEngine_NoEmbedderConfigured(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	// Ingestion cannot vectorize paragraphs, so the document fails.
	res, err := e.Ingest(context.Background(), []Document{
		{Name: "A v. B", Text: "Some text."},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Failed != 1 {
		t.Errorf("expected document to fail without an embedder: %+v", res)
	}

	// Lexical-only search still answers.
	results, err := e.Search(context.Background(), Query{Text: "anything at all"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results from an empty engine, got %d", len(results))
	}
}

func TestEngine_InvalidQuery(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.Search(context.Background(), Query{Text: "x"}); err == nil {
		t.Fatal("expected validation error for a one-character query")
	}
}
