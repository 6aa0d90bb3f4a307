// Package casestore persists case metadata and full text in BadgerDB.
// Metadata is stored as JSON; full text is optionally gzip-compressed.
package casestore

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	badgeroptions "github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/lexhaven/lexsearch/internal/domain"
)

const (
	metaKeyPrefix = "case:"
	textKeyPrefix = "text:"
)

// Options configures the store.
type Options struct {
	Path         string
	InMemory     bool
	CompressText bool
}

// Store is a BadgerDB-backed case repository.
type Store struct {
	db       *badger.DB
	compress bool
	logger   *zap.Logger
}

// Open opens (or creates) the store at opts.Path, or an in-memory instance
// when opts.InMemory is set.
func Open(opts Options, logger *zap.Logger) (*Store, error) {
	var badgerOpts badger.Options
	if opts.InMemory {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
		badgerOpts = badger.DefaultOptions(opts.Path)
	}
	badgerOpts.Logger = &badgerLogger{logger: logger}
	badgerOpts.Compression = badgeroptions.None

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	return &Store{db: db, compress: opts.CompressText, logger: logger}, nil
}

// Close shuts down the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}
	return nil
}

// Put stores case metadata and full text in one transaction. An existing
// case with the same id is overwritten.
func (s *Store) Put(ctx context.Context, meta domain.CaseMetadata, fullText string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("put case: %w", err)
	}

	data, err := json.Marshal(toDTO(meta))
	if err != nil {
		return fmt.Errorf("marshal case %s: %w", meta.ID, err)
	}

	text := []byte(fullText)
	if s.compress {
		text, err = compressText(fullText)
		if err != nil {
			return fmt.Errorf("compress case %s: %w", meta.ID, err)
		}
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(metaKey(meta.ID), data); err != nil {
			return err
		}
		return txn.Set(textKey(meta.ID), text)
	})
	if err != nil {
		return fmt.Errorf("put case %s: %w", meta.ID, err)
	}
	return nil
}

// GetMetadata loads case metadata by id.
func (s *Store) GetMetadata(ctx context.Context, id domain.CaseID) (domain.CaseMetadata, error) {
	if err := ctx.Err(); err != nil {
		return domain.CaseMetadata{}, fmt.Errorf("get case: %w", err)
	}

	var dto caseDTO
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &dto)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return domain.CaseMetadata{}, domain.ErrCaseNotFound
		}
		return domain.CaseMetadata{}, fmt.Errorf("get case %s: %w", id, err)
	}

	meta, err := fromDTO(dto)
	if err != nil {
		return domain.CaseMetadata{}, fmt.Errorf("decode case %s: %w", id, err)
	}
	return meta, nil
}

// GetText loads the full text of a case by id.
func (s *Store) GetText(ctx context.Context, id domain.CaseID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("get text: %w", err)
	}

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(textKey(id))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", domain.ErrCaseNotFound
		}
		return "", fmt.Errorf("get text %s: %w", id, err)
	}

	if s.compress {
		text, err := decompressText(raw)
		if err != nil {
			return "", fmt.Errorf("decompress text %s: %w", id, err)
		}
		return text, nil
	}
	return string(raw), nil
}

// Exists reports whether a case with the given id is stored.
func (s *Store) Exists(ctx context.Context, id domain.CaseID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(metaKey(id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", id, err)
	}
	return true, nil
}

// Delete removes a case's metadata and full text. Deleting a missing case
// is not an error.
func (s *Store) Delete(ctx context.Context, id domain.CaseID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(metaKey(id)); err != nil {
			return err
		}
		return txn.Delete(textKey(id))
	})
	if err != nil {
		return fmt.Errorf("delete case %s: %w", id, err)
	}
	return nil
}

// ListIDs returns the ids of all stored cases, in key order.
func (s *Store) ListIDs(ctx context.Context) ([]domain.CaseID, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	var ids []domain.CaseID
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(metaKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			id, err := domain.ParseCaseID(key[len(metaKeyPrefix):])
			if err != nil {
				return fmt.Errorf("malformed key %q: %w", key, err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return ids, nil
}

// Ping verifies the database is open and readable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if s.db.IsClosed() {
		return errors.New("storage closed")
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

// Count returns the number of stored cases.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(metaKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count cases: %w", err)
	}
	return count, nil
}

// RunGC runs value-log garbage collection on a ticker until ctx is
// canceled. No-op for in-memory databases.
func (s *Store) RunGC(ctx context.Context, interval time.Duration, discardRatio float64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// RunValueLogGC reclaims at most one log file per call.
			for s.db.RunValueLogGC(discardRatio) == nil {
			}
		}
	}
}

func metaKey(id domain.CaseID) []byte { return []byte(metaKeyPrefix + id.String()) }
func textKey(id domain.CaseID) []byte { return []byte(textKeyPrefix + id.String()) }

func compressText(text string) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(text)); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressText(data []byte) (string, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// badgerLogger adapts zap to badger's logger interface.
type badgerLogger struct {
	logger *zap.Logger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, args ...any) {
	l.logger.Error(fmt.Sprintf(msg, args...))
}

func (l *badgerLogger) Warningf(msg string, args ...any) {
	l.logger.Warn(fmt.Sprintf(msg, args...))
}

func (l *badgerLogger) Infof(msg string, args ...any) {
	l.logger.Debug(fmt.Sprintf(msg, args...))
}

func (l *badgerLogger) Debugf(msg string, args ...any) {
	l.logger.Debug(fmt.Sprintf(msg, args...))
}
