package hnsw

import (
	"errors"
	"io"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/lexhaven/lexsearch/internal/domain"
)

func testConfig(dim int) Config {
	return Config{
		M:              16,
		EFConstruction: 200,
		EFSearch:       50,
		MaxElements:    1000,
		Dimension:      dim,
		Metric:         MetricCosine,
	}
}

func newRef(t *testing.T) domain.DocRef {
	t.Helper()
	return domain.NewDocRef(domain.CaseID(uuid.New()), 0)
}

func TestNew_UnknownMetric(t *testing.T) {
	cfg := testConfig(4)
	cfg.Metric = "hamming"

	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown metric")
	}
}

func TestIndex_EmptySearch(t *testing.T) {
	idx, err := New(testConfig(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	matches, err := idx.Search([]float32{1, 0, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected empty result from empty index, got %d", len(matches))
	}
}

func TestIndex_DimensionMismatch(t *testing.T) {
	idx, err := New(testConfig(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := idx.Insert(newRef(t), []float32{1, 2}); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("Insert: expected ErrVectorDimMismatch, got %v", err)
	}
	if _, err := idx.Search([]float32{1, 2}, 5); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("Search: expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestIndex_PersistenceNotSupported(t *testing.T) {
	idx, err := New(testConfig(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := idx.Save(io.Discard); !errors.Is(err, domain.ErrNotSupported) {
		t.Errorf("Save: expected ErrNotSupported, got %v", err)
	}
	if err := idx.Load(strings.NewReader("")); !errors.Is(err, domain.ErrNotSupported) {
		t.Errorf("Load: expected ErrNotSupported, got %v", err)
	}
}

func TestIndex_SingleVector(t *testing.T) {
	idx, err := New(testConfig(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ref := newRef(t)
	if err := idx.Insert(ref, []float32{1, 0, 0, 0}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	matches, err := idx.Search([]float32{1, 0, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Ref != ref {
		t.Errorf("expected ref %+v, got %+v", ref, matches[0].Ref)
	}
	if matches[0].Distance > 1e-6 {
		t.Errorf("expected near-zero distance to identical vector, got %f", matches[0].Distance)
	}
}

func TestIndex_ExactNeighborRecall(t *testing.T) {
	const (
		n   = 200
		dim = 16
	)
	idx, err := New(testConfig(dim))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	vectors := make([][]float32, n)
	refs := make([]domain.DocRef, n)
	for v := 0; v < n; v++ {
		vec := make([]float32, dim)
		for d := range vec {
			vec[d] = rng.Float32()
		}
		vectors[v] = vec
		refs[v] = domain.NewDocRef(domain.CaseID(uuid.New()), v)
		if err := idx.Insert(refs[v], vec); err != nil {
			t.Fatalf("Insert %d: %v", v, err)
		}
	}

	// Every indexed vector must find itself as the nearest neighbor.
	hits := 0
	for v := 0; v < n; v++ {
		matches, err := idx.Search(vectors[v], 1)
		if err != nil {
			t.Fatalf("Search %d: %v", v, err)
		}
		if len(matches) == 1 && matches[0].Ref == refs[v] {
			hits++
		}
	}
	if hits < n*95/100 {
		t.Errorf("self-recall too low: %d/%d", hits, n)
	}
}

func TestIndex_ResultsOrderedByDistance(t *testing.T) {
	const (
		n   = 150
		dim = 8
	)
	idx, err := New(testConfig(dim))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rng := rand.New(rand.NewSource(7))
	for v := 0; v < n; v++ {
		vec := make([]float32, dim)
		for d := range vec {
			vec[d] = rng.Float32()*2 - 1
		}
		if err := idx.Insert(domain.NewDocRef(domain.CaseID(uuid.New()), v), vec); err != nil {
			t.Fatalf("Insert %d: %v", v, err)
		}
	}

	query := make([]float32, dim)
	for d := range query {
		query[d] = rng.Float32()*2 - 1
	}

	matches, err := idx.Search(query, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 10 {
		t.Fatalf("expected 10 matches, got %d", len(matches))
	}
	for m := 1; m < len(matches); m++ {
		if matches[m].Distance < matches[m-1].Distance {
			t.Errorf("distances not ascending at %d: %f < %f", m, matches[m].Distance, matches[m-1].Distance)
		}
	}
}

func TestIndex_TopKTruncation(t *testing.T) {
	idx, err := New(testConfig(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for v := 0; v < 20; v++ {
		vec := []float32{float32(v), 1, 0, 0}
		if err := idx.Insert(domain.NewDocRef(domain.CaseID(uuid.New()), v), vec); err != nil {
			t.Fatalf("Insert %d: %v", v, err)
		}
	}

	matches, err := idx.Search([]float32{1, 1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 5 {
		t.Errorf("expected exactly 5 matches, got %d", len(matches))
	}
}

func TestIndex_L2Metric(t *testing.T) {
	cfg := testConfig(2)
	cfg.Metric = MetricL2
	idx, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	near := newRef(t)
	far := newRef(t)
	if err := idx.Insert(near, []float32{1, 1}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := idx.Insert(far, []float32{10, 10}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	matches, err := idx.Search([]float32{0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 || matches[0].Ref != near {
		t.Fatalf("expected nearest vector first, got %+v", matches)
	}
	want := math.Sqrt(2)
	if math.Abs(matches[0].Distance-want) > 1e-6 {
		t.Errorf("expected euclidean distance %f, got %f", want, matches[0].Distance)
	}
}

func TestIndex_NeighborBound(t *testing.T) {
	cfg := testConfig(4)
	cfg.M = 4
	cfg.EFConstruction = 32
	idx, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	for v := 0; v < 100; v++ {
		vec := make([]float32, 4)
		for d := range vec {
			vec[d] = rng.Float32()
		}
		if err := idx.Insert(domain.NewDocRef(domain.CaseID(uuid.New()), v), vec); err != nil {
			t.Fatalf("Insert %d: %v", v, err)
		}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for id, node := range idx.nodes {
		for layer, nbrs := range node.neighbors {
			if len(nbrs) > cfg.M {
				t.Errorf("node %d exceeds M at layer %d: %d neighbors", id, layer, len(nbrs))
			}
		}
	}
}

func TestCosineDistance(t *testing.T) {
	if d := cosineDistance([]float32{1, 0}, []float32{1, 0}); math.Abs(d) > 1e-9 {
		t.Errorf("identical vectors: expected 0, got %f", d)
	}
	if d := cosineDistance([]float32{1, 0}, []float32{0, 1}); math.Abs(d-1) > 1e-9 {
		t.Errorf("orthogonal vectors: expected 1, got %f", d)
	}
	if d := cosineDistance([]float32{0, 0}, []float32{1, 0}); d != 1 {
		t.Errorf("zero vector: expected distance 1, got %f", d)
	}
}
