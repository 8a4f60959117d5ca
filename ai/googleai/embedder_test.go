package googleai

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/pdfingest/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder stands in for the langchaingo embedder so tests run offline.
type stubEmbedder struct {
	vectors [][]float32
	err     error
}

func (s *stubEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return s.vectors, s.err
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors[0], nil
}

func newTestEmbedder(stub *stubEmbedder, normalize bool) *Embedder {
	return &Embedder{embedder: stub, normalize: normalize, logger: discardLogger()}
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	e := newTestEmbedder(&stubEmbedder{vectors: [][]float32{{3, 4}, {1, 0}}}, false)

	vectors, err := e.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{3, 4}, {1, 0}}, vectors)
}

func TestEmbedder_Normalize(t *testing.T) {
	e := newTestEmbedder(&stubEmbedder{vectors: [][]float32{{3, 4}}}, true)

	vector, err := e.EmbedText(context.Background(), "a")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, vector, 1e-6)
}

func TestEmbedder_CountMismatch(t *testing.T) {
	e := newTestEmbedder(&stubEmbedder{vectors: [][]float32{{1}}}, false)

	_, err := e.EmbedTexts(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ai.ErrEmbeddingCountMismatch)
}

func TestEmbedder_Error(t *testing.T) {
	e := newTestEmbedder(&stubEmbedder{err: errors.New("quota")}, false)

	_, err := e.EmbedTexts(context.Background(), []string{"a"})
	assert.EqualError(t, err, "quota")
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(context.Background(), ai.NewConfig(ai.WithModel("")))
	assert.Error(t, err)
}
