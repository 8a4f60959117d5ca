// Package pinecone implements storage.VectorIndex on a hosted Pinecone index.
//
// Each record becomes one Pinecone vector whose id is the record id and whose
// metadata carries the chunk text and its source location, so query results
// can be rendered without a second lookup.
package pinecone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/poiesic/pdfingest/core"
	"github.com/poiesic/pdfingest/storage"
)

// DefaultIndexName is the index used when neither a host nor a name is configured.
const DefaultIndexName = "stratheum-hoi-poi-index"

// defaultBatchSize keeps upsert requests well under Pinecone's 2MB limit.
const defaultBatchSize = 100

// Metadata keys stored on each vector.
const (
	metaText      = "text"
	metaBucket    = "bucket"
	metaName      = "name"
	metaChunk     = "chunk"
	metaPage      = "page"
	metaIndexedAt = "indexed_at"
)

// Config holds Pinecone connection settings.
type Config struct {
	APIKey string
	// Host is the index data-plane host. When empty it is resolved from IndexName.
	Host      string
	IndexName string
	Namespace string
	BatchSize int
}

// Validate checks that the configuration is complete.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("pinecone config: APIKey is required")
	}
	if c.Host == "" && c.IndexName == "" {
		return errors.New("pinecone config: Host or IndexName is required")
	}
	return nil
}

// conn is the subset of *pinecone.IndexConnection used here.
type conn interface {
	UpsertVectors(ctx *context.Context, in []*pinecone.Vector) (uint32, error)
	QueryByVectorValues(ctx *context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	Close() error
}

// Index implements storage.VectorIndex.
type Index struct {
	conn      conn
	batchSize int
	logger    *slog.Logger
}

var _ storage.VectorIndex = (*Index)(nil)

// NewIndex connects to the configured index, resolving its host from the
// index name when no host is given.
func NewIndex(ctx context.Context, cfg *Config) (storage.VectorIndex, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}

	host := cfg.Host
	if host == "" {
		desc, err := client.DescribeIndex(ctx, cfg.IndexName)
		if err != nil {
			return nil, fmt.Errorf("describe index %s: %w", cfg.IndexName, err)
		}
		host = desc.Host
	}

	indexConn, err := client.IndexWithNamespace(host, cfg.Namespace)
	if err != nil {
		return nil, fmt.Errorf("connect to index %s: %w", host, err)
	}

	return newIndex(indexConn, cfg.BatchSize), nil
}

func newIndex(c conn, batchSize int) *Index {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Index{
		conn:      c,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "pinecone-index"),
	}
}

// Write upserts all records. Large sets are sent in several requests; ids
// are deterministic so a retried write overwrites whatever a failed attempt
// left behind.
func (x *Index) Write(ctx context.Context, records []*core.Record) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	vectors := make([]*pinecone.Vector, 0, len(records))
	for _, record := range records {
		if err := core.ValidateRecord(record); err != nil {
			return err
		}
		if record.IndexedAt.IsZero() {
			record.IndexedAt = now
		}
		metadata, err := structpb.NewStruct(map[string]any{
			metaText:      record.Text,
			metaBucket:    record.Bucket,
			metaName:      record.Name,
			metaChunk:     record.ChunkIndex,
			metaPage:      record.Page,
			metaIndexedAt: record.IndexedAt.Format(time.RFC3339),
		})
		if err != nil {
			return fmt.Errorf("%w: metadata for %s: %w", storage.ErrSerializationFailed, record.ID, err)
		}
		vectors = append(vectors, &pinecone.Vector{
			Id:       record.ID,
			Values:   record.Vector,
			Metadata: metadata,
		})
	}

	for start := 0; start < len(vectors); start += x.batchSize {
		end := min(start+x.batchSize, len(vectors))
		if _, err := x.conn.UpsertVectors(&ctx, vectors[start:end]); err != nil {
			x.logger.Error("upsert failed", "offset", start, "count", end-start, "err", err)
			return fmt.Errorf("upsert vectors %d-%d: %w", start, end, err)
		}
	}

	x.logger.Debug("upserted vectors", "count", len(vectors))
	return nil
}

// Query returns the closest vectors by the index's configured metric.
func (x *Index) Query(ctx context.Context, vector []float32, limit int) ([]*core.Match, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	resp, err := x.conn.QueryByVectorValues(&ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(limit),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}

	matches := make([]*core.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		match := &core.Match{ID: m.Vector.Id, Score: m.Score}
		if m.Vector.Metadata != nil {
			applyMetadata(match, m.Vector.Metadata.AsMap())
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func applyMetadata(match *core.Match, meta map[string]any) {
	match.Text, _ = meta[metaText].(string)
	match.Bucket, _ = meta[metaBucket].(string)
	match.Name, _ = meta[metaName].(string)
	// structpb numbers come back as float64
	if v, ok := meta[metaChunk].(float64); ok {
		match.ChunkIndex = int(v)
	}
	if v, ok := meta[metaPage].(float64); ok {
		match.Page = int(v)
	}
}

// Close releases the index connection.
func (x *Index) Close() error {
	return x.conn.Close()
}
