package search

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lexhaven/lexsearch/internal/domain"
	"github.com/lexhaven/lexsearch/internal/index/hnsw"
	"github.com/lexhaven/lexsearch/internal/index/trie"
)

type mockLexical struct {
	res   trie.Result
	calls int
}

func (m *mockLexical) Search(_ string) trie.Result {
	m.calls++
	return m.res
}

type mockVector struct {
	matches []hnsw.Match
	err     error
	calls   int
}

func (m *mockVector) Search(_ []float32, _ int) ([]hnsw.Match, error) {
	m.calls++
	return m.matches, m.err
}

type mockCases struct {
	metas map[domain.CaseID]domain.CaseMetadata
	texts map[domain.CaseID]string
}

func (m *mockCases) GetMetadata(_ context.Context, id domain.CaseID) (domain.CaseMetadata, error) {
	meta, ok := m.metas[id]
	if !ok {
		return domain.CaseMetadata{}, domain.ErrCaseNotFound
	}
	return meta, nil
}

func (m *mockCases) GetText(_ context.Context, id domain.CaseID) (string, error) {
	text, ok := m.texts[id]
	if !ok {
		return "", domain.ErrCaseNotFound
	}
	return text, nil
}

type mockCache struct {
	entries map[string][]domain.SearchResult
	inserts int
}

func (m *mockCache) Get(key string) ([]domain.SearchResult, bool) {
	res, ok := m.entries[key]
	return res, ok
}

func (m *mockCache) Insert(key string, results []domain.SearchResult, _ time.Duration) {
	m.inserts++
	m.entries[key] = results
}

type mockQueryEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (m *mockQueryEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type fixture struct {
	svc   *Service
	lex   *mockLexical
	vec   *mockVector
	cases *mockCases
	cache *mockCache
	embed *mockQueryEmbedder
}

func testServiceConfig() Config {
	return Config{
		MinQueryLength:   2,
		MaxQueryLength:   1000,
		MaxResults:       10,
		MinSimilarity:    0.5,
		ExactMatchWeight: 2.0,
		EnableSemantic:   true,
		EnablePrefix:     true,
		EnableQueryCache: true,
		CacheTTL:         time.Hour,
		Timeout:          5 * time.Second,
	}
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	f := &fixture{
		lex:   &mockLexical{},
		vec:   &mockVector{},
		cases: &mockCases{metas: map[domain.CaseID]domain.CaseMetadata{}, texts: map[domain.CaseID]string{}},
		cache: &mockCache{entries: map[string][]domain.SearchResult{}},
		embed: &mockQueryEmbedder{vec: []float32{0.1, 0.2}},
	}
	f.svc = New(cfg, f.lex, f.vec, f.cases, f.cache, f.embed, zap.NewNop())
	return f
}

func (f *fixture) addCase(t *testing.T, name, court string, year int) domain.CaseID {
	t.Helper()

	id := domain.NewCaseID()
	f.cases.metas[id] = domain.CaseMetadata{
		ID:           id,
		Name:         name,
		Court:        court,
		DecisionDate: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.cases.texts[id] = "The court held that " + name + " controls this question."
	return id
}
