package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lexhaven/lexsearch/internal/domain"
)

type mockCaseWriter struct {
	mu    sync.Mutex
	metas []domain.CaseMetadata
	texts []string
	err   error
}

func (m *mockCaseWriter) Put(_ context.Context, meta domain.CaseMetadata, fullText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.metas = append(m.metas, meta)
	m.texts = append(m.texts, fullText)
	return nil
}

type mockLexicalWriter struct {
	mu        sync.Mutex
	names     []string
	citations []string
	content   [][]string
}

func (m *mockLexicalWriter) InsertCaseName(caseName string, _ domain.CaseID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, caseName)
}

func (m *mockLexicalWriter) InsertCitation(citation string, _ domain.DocRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.citations = append(m.citations, citation)
}

func (m *mockLexicalWriter) InsertContent(tokens []string, _ domain.DocRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = append(m.content, tokens)
}

type mockVectorWriter struct {
	mu   sync.Mutex
	refs []domain.DocRef
	err  error
}

func (m *mockVectorWriter) Insert(ref domain.DocRef, _ []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.refs = append(m.refs, ref)
	return nil
}

type mockBatchEmbedder struct {
	mu       sync.Mutex
	calls    int
	failures int // fail the first N calls
	err      error
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		if m.err != nil {
			return domain.BatchEmbeddingResult{}, m.err
		}
		return domain.BatchEmbeddingResult{}, errors.New("provider unavailable")
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{0.1, 0.2, 0.3}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings, TotalTokens: 7 * len(texts)}, nil
}

type ingestFixture struct {
	svc   *Service
	store *mockCaseWriter
	lex   *mockLexicalWriter
	vec   *mockVectorWriter
	embed *mockBatchEmbedder
}

func newIngestFixture(t *testing.T, cfg Config) *ingestFixture {
	t.Helper()

	f := &ingestFixture{
		store: &mockCaseWriter{},
		lex:   &mockLexicalWriter{},
		vec:   &mockVectorWriter{},
		embed: &mockBatchEmbedder{},
	}

	svc, err := New(cfg, f.store, f.lex, f.vec, f.embed, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(svc.Release)

	f.svc = svc
	return f
}

func sampleDoc() Document {
	return Document{
		Name:         "Marbury v. Madison",
		Citation:     "5 U.S. 137",
		Court:        "Supreme Court of the United States",
		DecisionDate: time.Date(1803, 2, 24, 0, 0, 0, 0, time.UTC),
		Jurisdiction: domain.JurisdictionFederal,
		Text: "It is emphatically the province and duty of the Judicial Department to say what the law is.\n\n" +
			"The Constitution is either a superior, paramount law, or it is on a level with ordinary legislative acts.",
	}
}

func TestIngestBatch_SingleDocument(t *testing.T) {
	f := newIngestFixture(t, Config{Workers: 2})

	res, err := f.svc.IngestBatch(context.Background(), []Document{sampleDoc()})
	if err != nil {
		t.Fatalf("IngestBatch: %v", err)
	}
	if res.Ingested != 1 || res.Failed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	if len(f.store.metas) != 1 {
		t.Fatalf("expected 1 stored case, got %d", len(f.store.metas))
	}
	meta := f.store.metas[0]
	if meta.Name != "Marbury v. Madison" {
		t.Errorf("unexpected stored name: %q", meta.Name)
	}
	if meta.WordCount == 0 {
		t.Error("expected nonzero word count")
	}
	if meta.IngestedAt.IsZero() {
		t.Error("expected IngestedAt to be set")
	}

	if len(f.lex.names) != 1 || f.lex.names[0] != "Marbury v. Madison" {
		t.Errorf("unexpected case-name inserts: %v", f.lex.names)
	}
	// Two paragraphs: one content insert and one vector per paragraph.
	if len(f.lex.content) != 2 {
		t.Errorf("expected 2 content inserts, got %d", len(f.lex.content))
	}
	if len(f.vec.refs) != 2 {
		t.Errorf("expected 2 vectors, got %d", len(f.vec.refs))
	}
	if f.vec.refs[0].ParagraphIndex == f.vec.refs[1].ParagraphIndex {
		t.Error("expected distinct paragraph indices")
	}
}

func TestIngestBatch_IndexesProvidedAndDetectedCitations(t *testing.T) {
	f := newIngestFixture(t, Config{Workers: 1})

	doc := sampleDoc()
	doc.Text = "See Roe v. Wade, 410 U.S. 113, for the controlling standard."

	if _, err := f.svc.IngestBatch(context.Background(), []Document{doc}); err != nil {
		t.Fatalf("IngestBatch: %v", err)
	}

	var hasProvided, hasDetected bool
	for _, c := range f.lex.citations {
		if c == "5 U.S. 137" {
			hasProvided = true
		}
		if c == "410 U.S. 113" {
			hasDetected = true
		}
	}
	if !hasProvided {
		t.Errorf("provided citation not indexed: %v", f.lex.citations)
	}
	if !hasDetected {
		t.Errorf("detected citation not indexed: %v", f.lex.citations)
	}
	if len(f.store.metas) != 1 || len(f.store.metas[0].Citations) == 0 {
		t.Error("expected detected citations in stored metadata")
	}
}

func TestIngestBatch_FailedDocumentDoesNotAbortBatch(t *testing.T) {
	f := newIngestFixture(t, Config{Workers: 2})

	bad := sampleDoc()
	bad.Text = "   "

	res, err := f.svc.IngestBatch(context.Background(), []Document{sampleDoc(), bad})
	if err != nil {
		t.Fatalf("IngestBatch: %v", err)
	}
	if res.Ingested != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestIngestBatch_TextLengthBounds(t *testing.T) {
	f := newIngestFixture(t, Config{Workers: 1, MinTextLength: 20, MaxTextLength: 100})

	short := sampleDoc()
	short.Text = "too short"
	long := sampleDoc()
	long.Text = strings.Repeat("x", 200)

	res, err := f.svc.IngestBatch(context.Background(), []Document{short, long})
	if err != nil {
		t.Fatalf("IngestBatch: %v", err)
	}
	if res.Failed != 2 || res.Ingested != 0 {
		t.Fatalf("expected both documents rejected: %+v", res)
	}
	if f.embed.calls != 0 {
		t.Errorf("rejected documents must not reach the embedder, got %d calls", f.embed.calls)
	}
}

func TestIngestBatch_EmbedderRetriesThenSucceeds(t *testing.T) {
	f := newIngestFixture(t, Config{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	f.embed.failures = 2

	res, err := f.svc.IngestBatch(context.Background(), []Document{sampleDoc()})
	if err != nil {
		t.Fatalf("IngestBatch: %v", err)
	}
	if res.Ingested != 1 {
		t.Fatalf("expected success after retries: %+v", res)
	}
	if f.embed.calls != 3 {
		t.Errorf("expected 3 embed attempts, got %d", f.embed.calls)
	}
}

func TestIngestBatch_EmbedderExhaustsRetries(t *testing.T) {
	f := newIngestFixture(t, Config{Workers: 1, MaxRetries: 1, RetryBackoff: time.Millisecond})
	f.embed.failures = 10

	res, err := f.svc.IngestBatch(context.Background(), []Document{sampleDoc()})
	if err != nil {
		t.Fatalf("IngestBatch: %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("expected failed document: %+v", res)
	}
	if len(f.store.metas) != 0 {
		t.Error("failed document must not be stored")
	}
	if len(f.vec.refs) != 0 {
		t.Error("failed document must not be vector-indexed")
	}
}

func TestIngestBatch_ContextCancellation(t *testing.T) {
	f := newIngestFixture(t, Config{Workers: 1, MaxRetries: 5, RetryBackoff: time.Hour})
	f.embed.failures = 10

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := f.svc.IngestBatch(ctx, []Document{sampleDoc()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestIngestBatch_StoreFailure(t *testing.T) {
	f := newIngestFixture(t, Config{Workers: 1})
	f.store.err = errors.New("disk full")

	res, err := f.svc.IngestBatch(context.Background(), []Document{sampleDoc()})
	if err != nil {
		t.Fatalf("IngestBatch: %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("expected store failure to fail the document: %+v", res)
	}
	if len(f.vec.refs) != 0 {
		t.Error("document must not be indexed when storage fails")
	}
}

func TestIngestBatch_StatsAccumulate(t *testing.T) {
	f := newIngestFixture(t, Config{Workers: 2})

	docs := []Document{sampleDoc(), sampleDoc(), sampleDoc()}
	if _, err := f.svc.IngestBatch(context.Background(), docs); err != nil {
		t.Fatalf("IngestBatch: %v", err)
	}

	stats := f.svc.Stats()
	if stats.CasesIngested != 3 {
		t.Errorf("expected 3 cases, got %d", stats.CasesIngested)
	}
	if stats.ParagraphCount != 6 {
		t.Errorf("expected 6 paragraphs, got %d", stats.ParagraphCount)
	}
	if stats.VectorCount != 6 {
		t.Errorf("expected 6 vectors, got %d", stats.VectorCount)
	}
	if stats.TokensUsed == 0 {
		t.Error("expected nonzero token usage")
	}
}

func TestSplitParagraphs(t *testing.T) {
	text := "First paragraph.\n\n  \n\nSecond paragraph.\n\nThird."
	got := splitParagraphs(text)
	want := []string{"First paragraph.", "Second paragraph.", "Third."}
	if len(got) != len(want) {
		t.Fatalf("expected %d paragraphs, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paragraph %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitParagraphs_NoBlankLines(t *testing.T) {
	got := splitParagraphs("One continuous block of text.")
	if len(got) != 1 || !strings.HasPrefix(got[0], "One") {
		t.Fatalf("unexpected split: %v", got)
	}
}
