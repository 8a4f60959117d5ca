package badger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/pdfingest/core"
	"github.com/poiesic/pdfingest/storage"
)

// Index implements storage.VectorIndex on top of BadgerDB. Queries are
// brute-force cosine similarity over every stored record, which is fine for
// local runs and tests but not for large corpora.
type Index struct {
	backend   *Backend
	ownsDB    bool
	dimension int
	logger    *slog.Logger
}

var _ storage.VectorIndex = (*Index)(nil)

// NewIndex opens (or creates) a vector index at path. dimension may be 0 to
// accept vectors of any length.
func NewIndex(path string, dimension int) (storage.VectorIndex, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newIndex(backend, true, dimension), nil
}

// NewMemoryIndex creates an in-memory vector index for testing.
func NewMemoryIndex(dimension int) (storage.VectorIndex, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return newIndex(backend, true, dimension), nil
}

// NewIndexWithBackend creates an index on an already open backend. The
// caller keeps ownership of the backend.
func NewIndexWithBackend(backend *Backend, dimension int) *Index {
	return newIndex(backend, false, dimension)
}

func newIndex(backend *Backend, ownsDB bool, dimension int) *Index {
	return &Index{
		backend:   backend,
		ownsDB:    ownsDB,
		dimension: dimension,
		logger:    slog.Default().With("component", "badger-index"),
	}
}

// Close closes the underlying database if the index opened it.
func (x *Index) Close() error {
	if x.ownsDB {
		return x.backend.Close()
	}
	return nil
}

// Write stores all records in a single transaction, so either every record
// becomes visible or none does.
func (x *Index) Write(ctx context.Context, records []*core.Record) error {
	if len(records) == 0 {
		return nil
	}
	if x.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	for _, record := range records {
		if err := core.ValidateRecord(record); err != nil {
			return err
		}
		if x.dimension > 0 && len(record.Vector) != x.dimension {
			return fmt.Errorf("%w: record %s has %d, index expects %d",
				storage.ErrDimensionMismatch, record.ID, len(record.Vector), x.dimension)
		}
	}

	now := time.Now().UTC()
	counts := make(map[string]int)
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if record.IndexedAt.IsZero() {
				record.IndexedAt = now
			}
			if err := tx.Set(makeRecordKey(record.ID), storage.MarshalRecord(record)); err != nil {
				return err
			}
			counts[record.Bucket+"/"+record.Name]++
		}
		for _, record := range records {
			doc := record.Bucket + "/" + record.Name
			n, ok := counts[doc]
			if !ok {
				continue
			}
			delete(counts, doc)
			if err := tx.Set(makeDocumentKey(record.Bucket, record.Name), []byte(strconv.Itoa(n))); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		x.logger.Error("failed to write records", "count", len(records), "err", err)
		return err
	}

	x.logger.Debug("wrote records", "count", len(records))
	return nil
}

// Query returns the records most similar to vector by cosine similarity.
func (x *Index) Query(ctx context.Context, vector []float32, limit int) ([]*core.Match, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}
	if x.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var results []*core.Match
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var record *core.Record
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(record.Vector) != len(vector) {
				continue
			}

			results = append(results, &core.Match{
				ID:         record.ID,
				Score:      cosineSimilarity(vector, record.Vector),
				Bucket:     record.Bucket,
				Name:       record.Name,
				ChunkIndex: record.ChunkIndex,
				Page:       record.Page,
				Text:       record.Text,
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(results, func(a, b *core.Match) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Get retrieves a single record by ID.
// Returns storage.ErrNotFound if the record doesn't exist.
func (x *Index) Get(ctx context.Context, id string) (*core.Record, error) {
	var record *core.Record
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRecordKey(id))
		if err == badger.ErrKeyNotFound {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			record, err = storage.UnmarshalRecord(val)
			return err
		})
	}, false)
	return record, err
}

// ChunkCount reports how many chunks the last write stored for bucket/name.
// Returns 0 if the document has never been indexed.
func (x *Index) ChunkCount(ctx context.Context, bucket, name string) (int, error) {
	count := 0
	err := x.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocumentKey(bucket, name))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			count, err = strconv.Atoi(string(val))
			return err
		})
	}, false)
	return count, err
}

// cosineSimilarity calculates the cosine of the angle between two vectors
// of equal length. Zero vectors score 0.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
