package search

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/poiesic/pdfingest/ai/mock"
	"github.com/poiesic/pdfingest/core"
	"github.com/poiesic/pdfingest/storage"
	"github.com/poiesic/pdfingest/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T, records ...*core.Record) storage.VectorIndex {
	t.Helper()
	index, err := badger.NewMemoryIndex(3)
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })
	if len(records) > 0 {
		require.NoError(t, index.Write(context.Background(), records))
	}
	return index
}

func record(name string, chunk int, text string, vector []float32) *core.Record {
	return &core.Record{
		ID:         core.RecordID("docs", name, chunk),
		Bucket:     "docs",
		Name:       name,
		ChunkIndex: chunk,
		Page:       1,
		Text:       text,
		Vector:     vector,
	}
}

// fixedEmbedder returns the same query vector for every input.
func fixedEmbedder(vector []float32) *mock.MockEmbedder {
	m := mock.NewMockEmbedder()
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return vector, nil
	}
	return m
}

type recordingMonitor struct {
	query    string
	semantic int
	verbatim []string
	finished []*core.Match
}

func (m *recordingMonitor) Start(query string)                        { m.query = query }
func (m *recordingMonitor) AfterSemanticSearch(matches []*core.Match) { m.semantic = len(matches) }
func (m *recordingMonitor) VerbatimHit(match *core.Match)             { m.verbatim = append(m.verbatim, match.ID) }
func (m *recordingMonitor) Finish(results []*core.Match)              { m.finished = results }

func TestNewSearcher(t *testing.T) {
	index := newTestIndex(t)
	embedder := mock.NewMockEmbedder()

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(embedder, index)
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with custom logger", func(t *testing.T) {
		searcher, err := NewSearcher(embedder, index, WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(embedder, index, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
	})

	t.Run("invalid min score", func(t *testing.T) {
		_, err := NewSearcher(embedder, index, WithMinScore(1.5))
		assert.Error(t, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewSearcher(nil, index)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("nil index", func(t *testing.T) {
		_, err := NewSearcher(embedder, nil)
		assert.Equal(t, ErrIndexRequired, err)
	})
}

func TestSearch_EmptyQuery(t *testing.T) {
	searcher, err := NewSearcher(mock.NewMockEmbedder(), newTestIndex(t))
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearch_EmptyIndex(t *testing.T) {
	searcher, err := NewSearcher(fixedEmbedder([]float32{1, 0, 0}), newTestIndex(t))
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_RanksBySimilarity(t *testing.T) {
	index := newTestIndex(t,
		record("raw/ai.pdf", 0, "neural networks overview", []float32{0.9, 0.1, 0}),
		record("raw/ai.pdf", 1, "gradient descent basics", []float32{0.8, 0.2, 0}),
		record("raw/food.pdf", 0, "sourdough starter care", []float32{0.1, 0.1, 0.9}),
	)
	searcher, err := NewSearcher(fixedEmbedder([]float32{1, 0, 0}), index)
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "deep learning", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "neural networks overview", results[0].Text)
	assert.Equal(t, "gradient descent basics", results[1].Text)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestSearch_VerbatimBoost(t *testing.T) {
	index := newTestIndex(t,
		record("raw/a.pdf", 0, "general overview of the quarter", []float32{0.95, 0.05, 0}),
		record("raw/a.pdf", 1, "Revenue grew in the third quarter.", []float32{0.7, 0.3, 0}),
	)
	searcher, err := NewSearcher(fixedEmbedder([]float32{1, 0, 0}), index)
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	results, err := searcher.SearchWithMonitor(context.Background(), "the revenue, quarter", 2, monitor)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "Revenue grew in the third quarter.", results[0].Text)
	assert.Equal(t, "the revenue, quarter", monitor.query)
	assert.Equal(t, 2, monitor.semantic)
	assert.Equal(t, []string{core.RecordID("docs", "raw/a.pdf", 1)}, monitor.verbatim)
	assert.Equal(t, results, monitor.finished)
}

func TestSearch_MinScore(t *testing.T) {
	index := newTestIndex(t,
		record("raw/a.pdf", 0, "close", []float32{1, 0, 0}),
		record("raw/a.pdf", 1, "far", []float32{0, 0, 1}),
	)
	searcher, err := NewSearcher(fixedEmbedder([]float32{1, 0, 0}), index, WithMinScore(0.5))
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "query", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "close", results[0].Text)
}

func TestSearch_DefaultMaxHits(t *testing.T) {
	var records []*core.Record
	for i := 0; i < DefaultMaxHits+3; i++ {
		records = append(records, record("raw/many.pdf", i, "chunk", []float32{1, float32(i) * 0.01, 0}))
	}
	searcher, err := NewSearcher(fixedEmbedder([]float32{1, 0, 0}), newTestIndex(t, records...))
	require.NoError(t, err)

	results, err := searcher.Search(context.Background(), "query", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultMaxHits)
}

func TestSearch_EmbedderError(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("unavailable")
	}
	searcher, err := NewSearcher(embedder, newTestIndex(t))
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), "query", 5)
	assert.Error(t, err)
}

func TestSignificantWords(t *testing.T) {
	assert.Equal(t, []string{"revenue", "q3", "2024"}, significantWords("The revenue (Q3-2024)!"))
	assert.Empty(t, significantWords("the of and"))
}

func TestContainsAll(t *testing.T) {
	assert.True(t, containsAll("Net revenue rose.", []string{"revenue", "net"}))
	assert.False(t, containsAll("Net revenue rose.", []string{"revenue", "fell"}))
	assert.False(t, containsAll("anything", nil))
}
