package storage

import (
	"context"

	"github.com/poiesic/pdfingest/core"
)

// ObjectInfo describes a stored object returned by a listing.
type ObjectInfo struct {
	Bucket string
	Name   string
	Size   int64
}

// ObjectReader fetches object contents.
type ObjectReader interface {
	// Read returns the full contents of bucket/name.
	// Returns ErrNotFound if the object doesn't exist.
	Read(ctx context.Context, bucket, name string) ([]byte, error)
}

// ObjectMover relocates objects within a bucket.
type ObjectMover interface {
	// Move renames bucket/from to bucket/to. After a successful return the
	// object is no longer readable under its old name.
	// Returns ErrNotFound if the source doesn't exist.
	Move(ctx context.Context, bucket, from, to string) error
}

// ObjectLister enumerates objects under a prefix.
type ObjectLister interface {
	// List returns every object in bucket whose name starts with prefix,
	// ordered by name.
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
}

// ObjectStore combines the object operations used by ingestion and backfill.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	ObjectReader
	ObjectMover
	ObjectLister
	Close() error
}

// IndexWriter persists embedded chunks.
type IndexWriter interface {
	// Write stores all records as one logical batch. Records whose ID
	// already exists are replaced.
	Write(ctx context.Context, records []*core.Record) error
}

// IndexSearcher runs similarity queries.
type IndexSearcher interface {
	// Query returns up to limit records most similar to vector, ordered by
	// score (highest first).
	Query(ctx context.Context, vector []float32, limit int) ([]*core.Match, error)
}

// VectorIndex is a writable, searchable vector index.
// Implementations must be safe for concurrent use.
type VectorIndex interface {
	IndexWriter
	IndexSearcher
	Close() error
}
