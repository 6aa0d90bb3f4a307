// Package ingest turns raw case documents into indexed, stored cases:
// text processing, paragraph embedding, trie and ANN population, and
// durable storage, executed over a bounded worker pool.
package ingest

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lexhaven/lexsearch/internal/domain"
	"github.com/lexhaven/lexsearch/internal/textproc"
)

// Document is one raw case submitted for ingestion.
type Document struct {
	Name         string
	Citation     string
	Court        string
	DecisionDate time.Time
	Judges       []string
	Topics       []string
	Jurisdiction domain.Jurisdiction
	DocketNumber string
	SourceURL    string
	Text         string
}

// Config tunes the pipeline. MinTextLength/MaxTextLength bound the accepted
// document size in bytes; zero disables the corresponding bound.
type Config struct {
	Workers       int
	MaxRetries    int
	RetryBackoff  time.Duration
	MinTextLength int
	MaxTextLength int
}

// Result summarizes one batch.
type Result struct {
	Ingested int
	Failed   int
}

// Stats are cumulative pipeline totals since startup.
type Stats struct {
	CasesIngested  uint64
	CasesFailed    uint64
	ParagraphCount uint64
	VectorCount    uint64
	TokensUsed     uint64
}

// Service is the ingestion pipeline. Per-document failures are counted and
// logged; they do not abort the rest of the batch.
type Service struct {
	cfg    Config
	store  CaseWriter
	lex    LexicalWriter
	vec    VectorWriter
	embed  Embedder
	proc   *textproc.Processor
	pool   *ants.Pool
	logger *zap.Logger

	ingested   atomic.Uint64
	failed     atomic.Uint64
	paragraphs atomic.Uint64
	vectors    atomic.Uint64
	tokens     atomic.Uint64
}

// New creates an ingestion service with a worker pool of cfg.Workers
// (default: number of CPUs).
func New(
	cfg Config,
	store CaseWriter,
	lex LexicalWriter,
	vec VectorWriter,
	embed Embedder,
	logger *zap.Logger,
) (*Service, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Service{
		cfg:    cfg,
		store:  store,
		lex:    lex,
		vec:    vec,
		embed:  embed,
		proc:   textproc.NewProcessor(),
		pool:   pool,
		logger: logger,
	}, nil
}

// Release shuts down the worker pool. The service must not be used after.
func (s *Service) Release() {
	s.pool.Release()
}

// Stats returns cumulative totals.
func (s *Service) Stats() Stats {
	return Stats{
		CasesIngested:  s.ingested.Load(),
		CasesFailed:    s.failed.Load(),
		ParagraphCount: s.paragraphs.Load(),
		VectorCount:    s.vectors.Load(),
		TokensUsed:     s.tokens.Load(),
	}
}

// IngestBatch processes documents concurrently and waits for the batch to
// finish. It returns an error only when the context is canceled; individual
// document failures are reflected in the Result.
func (s *Service) IngestBatch(ctx context.Context, docs []Document) (Result, error) {
	var res Result
	var ingested, failed atomic.Uint64

	g, gctx := errgroup.WithContext(ctx)
	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			done := make(chan error, 1)
			if err := s.pool.Submit(func() { done <- s.ingestOne(gctx, doc) }); err != nil {
				return fmt.Errorf("submit to pool: %w", err)
			}

			select {
			case err := <-done:
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					failed.Add(1)
					s.failed.Add(1)
					s.logger.Error("Failed to ingest case",
						zap.String("case_name", doc.Name), zap.Error(err))
					return nil
				}
				ingested.Add(1)
				s.ingested.Add(1)
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	if err := g.Wait(); err != nil {
		return Result{
			Ingested: int(ingested.Load()),
			Failed:   int(failed.Load()),
		}, fmt.Errorf("ingest batch: %w", err)
	}

	res.Ingested = int(ingested.Load())
	res.Failed = int(failed.Load())
	return res, nil
}

// ingestOne indexes and stores a single document.
func (s *Service) ingestOne(ctx context.Context, doc Document) error {
	if strings.TrimSpace(doc.Name) == "" {
		return domain.NewValidationError("name", "must not be empty")
	}
	if strings.TrimSpace(doc.Text) == "" {
		return domain.NewValidationError("text", "must not be empty")
	}
	if s.cfg.MinTextLength > 0 && len(doc.Text) < s.cfg.MinTextLength {
		return domain.NewValidationError("text",
			fmt.Sprintf("too short: minimum %d bytes", s.cfg.MinTextLength))
	}
	if s.cfg.MaxTextLength > 0 && len(doc.Text) > s.cfg.MaxTextLength {
		return domain.NewValidationError("text",
			fmt.Sprintf("too long: maximum %d bytes", s.cfg.MaxTextLength))
	}

	id := domain.NewCaseID()
	paragraphs := splitParagraphs(doc.Text)
	processed := s.proc.Process(doc.Text)

	meta := domain.CaseMetadata{
		ID:           id,
		Name:         doc.Name,
		Citation:     doc.Citation,
		Court:        doc.Court,
		DecisionDate: doc.DecisionDate,
		Judges:       doc.Judges,
		Topics:       doc.Topics,
		Jurisdiction: doc.Jurisdiction,
		DocketNumber: doc.DocketNumber,
		SourceURL:    doc.SourceURL,
		WordCount:    len(processed.Tokens),
		IngestedAt:   time.Now().UTC(),
	}
	for _, c := range processed.Citations {
		meta.Citations = append(meta.Citations, c.Normalized)
	}

	embeddings, tokensUsed, err := s.embedParagraphs(ctx, paragraphs)
	if err != nil {
		return fmt.Errorf("embed paragraphs: %w", err)
	}

	// Storage first: an indexed ref must always resolve.
	if err := s.store.Put(ctx, meta, doc.Text); err != nil {
		return fmt.Errorf("store case: %w", err)
	}

	s.lex.InsertCaseName(doc.Name, id)
	if doc.Citation != "" {
		s.lex.InsertCitation(doc.Citation, domain.NewDocRef(id, 0))
	}
	for _, c := range processed.Citations {
		s.lex.InsertCitation(c.Normalized, domain.NewDocRef(id, 0))
	}

	for i, para := range paragraphs {
		ref := domain.NewDocRef(id, i)
		tokens := textproc.TokenTexts(s.proc.Tokenize(para))
		if len(tokens) > 0 {
			s.lex.InsertContent(tokens, ref)
		}

		if err := s.vec.Insert(ref, embeddings[i]); err != nil {
			return fmt.Errorf("index vector for paragraph %d: %w", i, err)
		}
		s.vectors.Add(1)
	}

	s.paragraphs.Add(uint64(len(paragraphs)))
	s.tokens.Add(uint64(tokensUsed))
	return nil
}

// embedParagraphs calls the provider with retries and exponential backoff.
func (s *Service) embedParagraphs(ctx context.Context, paragraphs []string) ([][]float32, int, error) {
	var lastErr error
	backoff := s.cfg.RetryBackoff

	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		res, err := s.embed.BatchEmbed(ctx, paragraphs)
		if err == nil {
			if len(res.Embeddings) != len(paragraphs) {
				return nil, 0, fmt.Errorf("provider returned %d embeddings for %d paragraphs",
					len(res.Embeddings), len(paragraphs))
			}
			return res.Embeddings, res.TotalTokens, nil
		}
		lastErr = err
		s.logger.Warn("Embedding attempt failed",
			zap.Int("attempt", attempt+1), zap.Error(err))
	}

	return nil, 0, lastErr
}

func splitParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if len(paragraphs) == 0 {
		paragraphs = append(paragraphs, strings.TrimSpace(text))
	}
	return paragraphs
}
