package badger

import (
	"context"
	"testing"

	"github.com/poiesic/pdfingest/core"
	"github.com/poiesic/pdfingest/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T, dimension int) *Index {
	t.Helper()
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return NewIndexWithBackend(backend, dimension)
}

func record(name string, index int, text string, vector ...float32) *core.Record {
	return &core.Record{
		ID:         core.RecordID("docs", name, index),
		Bucket:     "docs",
		Name:       name,
		ChunkIndex: index,
		Page:       1,
		Text:       text,
		Vector:     vector,
	}
}

func TestIndexWrite(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, 3)

	records := []*core.Record{
		record("raw/a.pdf", 0, "first", 1, 0, 0),
		record("raw/a.pdf", 1, "second", 0, 1, 0),
	}
	require.NoError(t, idx.Write(ctx, records))

	got, err := idx.Get(ctx, records[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Text)
	assert.False(t, got.IndexedAt.IsZero())

	count, err := idx.ChunkCount(ctx, "docs", "raw/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIndexWrite_ReplacesSameID(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, 2)

	require.NoError(t, idx.Write(ctx, []*core.Record{record("raw/a.pdf", 0, "old", 1, 0)}))
	require.NoError(t, idx.Write(ctx, []*core.Record{record("raw/a.pdf", 0, "new", 0, 1)}))

	matches, err := idx.Query(ctx, []float32{0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "new", matches[0].Text)
}

func TestIndexWrite_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, 2)

	records := []*core.Record{
		record("raw/a.pdf", 0, "ok", 1, 0),
		record("raw/a.pdf", 1, "wrong size", 1, 0, 0),
	}
	err := idx.Write(ctx, records)
	require.ErrorIs(t, err, storage.ErrDimensionMismatch)

	_, err = idx.Get(ctx, records[0].ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIndexWrite_InvalidRecord(t *testing.T) {
	idx := newTestIndex(t, 0)

	err := idx.Write(context.Background(), []*core.Record{{ID: "no-vector"}})
	assert.ErrorIs(t, err, core.ErrInvalidRecord)
}

func TestIndexWrite_Empty(t *testing.T) {
	idx := newTestIndex(t, 0)
	assert.NoError(t, idx.Write(context.Background(), nil))
}

func TestIndexQuery(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, 2)

	require.NoError(t, idx.Write(ctx, []*core.Record{
		record("raw/a.pdf", 0, "east", 1, 0),
		record("raw/a.pdf", 1, "north", 0, 1),
		record("raw/b.pdf", 0, "northeast", 1, 1),
	}))

	matches, err := idx.Query(ctx, []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "east", matches[0].Text)
	assert.Equal(t, "northeast", matches[1].Text)
	assert.Greater(t, matches[0].Score, matches[1].Score)
	assert.Equal(t, "docs", matches[0].Bucket)
}

func TestIndexQuery_Invalid(t *testing.T) {
	idx := newTestIndex(t, 0)

	_, err := idx.Query(context.Background(), nil, 5)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	_, err = idx.Query(context.Background(), []float32{1}, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestIndexClosed(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	idx := NewIndexWithBackend(backend, 0)
	require.NoError(t, backend.Close())

	err = idx.Write(context.Background(), []*core.Record{record("raw/a.pdf", 0, "x", 1)})
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{2, 0}, []float32{5, 0}), 1e-6)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Equal(t, float32(0), cosineSimilarity([]float32{0, 0}, []float32{1, 0}))
}
