package casestore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lexhaven/lexsearch/internal/domain"
)

func newTestStore(t *testing.T, compress bool) *Store {
	t.Helper()

	s, err := Open(Options{InMemory: true, CompressText: compress}, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func sampleCase() (domain.CaseMetadata, string) {
	meta := domain.CaseMetadata{
		ID:           domain.NewCaseID(),
		Name:         "Brown v. Board of Education",
		Citation:     "347 U.S. 483",
		Court:        "Supreme Court of the United States",
		DecisionDate: time.Date(1954, 5, 17, 0, 0, 0, 0, time.UTC),
		Judges:       []string{"Warren"},
		Jurisdiction: domain.JurisdictionFederal,
		WordCount:    4,
		IngestedAt:   time.Now().UTC().Truncate(time.Second),
	}
	return meta, "Separate educational facilities are inherently unequal."
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()
	meta, text := sampleCase()

	if err := s.Put(ctx, meta, text); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.GetMetadata(ctx, meta.ID)
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if got.Name != meta.Name || got.Citation != meta.Citation || got.ID != meta.ID {
		t.Errorf("metadata mismatch:\ngot:  %+v\nwant: %+v", got, meta)
	}
	if !got.DecisionDate.Equal(meta.DecisionDate) {
		t.Errorf("decision date mismatch: %v vs %v", got.DecisionDate, meta.DecisionDate)
	}

	gotText, err := s.GetText(ctx, meta.ID)
	if err != nil {
		t.Fatalf("GetText: %v", err)
	}
	if gotText != text {
		t.Errorf("text mismatch: %q vs %q", gotText, text)
	}
}

func TestStore_CompressedText(t *testing.T) {
	s := newTestStore(t, true)
	ctx := context.Background()
	meta, _ := sampleCase()
	text := strings.Repeat("The court held that the statute was unconstitutional. ", 200)

	if err := s.Put(ctx, meta, text); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.GetText(ctx, meta.ID)
	if err != nil {
		t.Fatalf("GetText: %v", err)
	}
	if got != text {
		t.Error("compressed round trip mismatch")
	}
}

func TestStore_MissingCase(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()

	if _, err := s.GetMetadata(ctx, domain.NewCaseID()); !errors.Is(err, domain.ErrCaseNotFound) {
		t.Errorf("GetMetadata: expected ErrCaseNotFound, got %v", err)
	}
	if _, err := s.GetText(ctx, domain.NewCaseID()); !errors.Is(err, domain.ErrCaseNotFound) {
		t.Errorf("GetText: expected ErrCaseNotFound, got %v", err)
	}
}

func TestStore_Exists(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()
	meta, text := sampleCase()

	ok, err := s.Exists(ctx, meta.ID)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("expected missing case to not exist")
	}

	if err := s.Put(ctx, meta, text); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, err = s.Exists(ctx, meta.ID)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("expected stored case to exist")
	}
}

func TestStore_Count(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		meta, text := sampleCase()
		if err := s.Put(ctx, meta, text); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 cases, got %d", n)
	}
}

func TestStore_DeleteAndList(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()

	var ids []domain.CaseID
	for i := 0; i < 3; i++ {
		meta, text := sampleCase()
		if err := s.Put(ctx, meta, text); err != nil {
			t.Fatalf("Put: %v", err)
		}
		ids = append(ids, meta.ID)
	}

	listed, err := s.ListIDs(ctx)
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(listed))
	}

	if err := s.Delete(ctx, ids[0]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.GetMetadata(ctx, ids[0]); !errors.Is(err, domain.ErrCaseNotFound) {
		t.Errorf("expected ErrCaseNotFound after delete, got %v", err)
	}
	if _, err := s.GetText(ctx, ids[0]); !errors.Is(err, domain.ErrCaseNotFound) {
		t.Errorf("expected text gone after delete, got %v", err)
	}

	// Deleting a missing case is a no-op.
	if err := s.Delete(ctx, domain.NewCaseID()); err != nil {
		t.Errorf("Delete missing: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 cases after delete, got %d", n)
	}
}

func TestStore_Ping(t *testing.T) {
	s := newTestStore(t, false)

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestStore_Overwrite(t *testing.T) {
	s := newTestStore(t, false)
	ctx := context.Background()
	meta, text := sampleCase()

	if err := s.Put(ctx, meta, text); err != nil {
		t.Fatalf("Put: %v", err)
	}
	meta.Name = "Brown v. Board of Education II"
	if err := s.Put(ctx, meta, text); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.GetMetadata(ctx, meta.ID)
	if err != nil {
		t.Fatalf("GetMetadata: %v", err)
	}
	if got.Name != meta.Name {
		t.Errorf("expected overwritten name, got %q", got.Name)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 case after overwrite, got %d", n)
	}
}
