package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/pdfingest/ai"
	"github.com/poiesic/pdfingest/core"
)

// embedChunks computes one vector per chunk and pairs them into records.
func embedChunks(ctx context.Context, embedder ai.Embedder, req core.Request, chunks []core.Chunk, now time.Time) ([]*core.Record, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: expected %d, received %d", ai.ErrEmbeddingCountMismatch, len(chunks), len(vectors))
	}

	records := make([]*core.Record, len(chunks))
	for i, chunk := range chunks {
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("%w: chunk %d", core.ErrEmptyVector, chunk.Index)
		}
		records[i] = &core.Record{
			ID:         core.RecordID(req.Bucket, req.Name, chunk.Index),
			Bucket:     req.Bucket,
			Name:       req.Name,
			ChunkIndex: chunk.Index,
			Page:       chunk.Page,
			Text:       chunk.Text,
			Vector:     vectors[i],
			IndexedAt:  now,
		}
	}
	return records, nil
}
