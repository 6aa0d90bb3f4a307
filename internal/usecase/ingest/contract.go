package ingest

import (
	"context"

	"github.com/lexhaven/lexsearch/internal/domain"
)

// CaseWriter persists case metadata and full text.
type CaseWriter interface {
	Put(ctx context.Context, meta domain.CaseMetadata, fullText string) error
}

// LexicalWriter populates the prefix tries.
type LexicalWriter interface {
	InsertCaseName(caseName string, caseID domain.CaseID)
	InsertCitation(citation string, ref domain.DocRef)
	InsertContent(tokens []string, ref domain.DocRef)
}

// VectorWriter populates the ANN index.
type VectorWriter interface {
	Insert(ref domain.DocRef, vector []float32) error
}

// Embedder vectorizes paragraph batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
