// Package googleai provides an ai.Provider backed by Gemini embedding models
// through the Google AI API.
package googleai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/pdfingest/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
)

// Embedder implements ai.Embedder with Gemini embeddings.
type Embedder struct {
	embedder  embeddings.Embedder
	normalize bool
	logger    *slog.Logger
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}
	if e.normalize {
		vector = ai.NormalizeVector(vector)
	}
	return vector, nil
}

// EmbedTexts generates vector embeddings for multiple text strings. The
// client splits requests at the API's limit of 100 texts.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d for %d texts", ai.ErrEmbeddingCountMismatch, len(vectors), len(texts))
	}
	if e.normalize {
		ai.NormalizeVectors(vectors)
	}
	return vectors, nil
}

// Provider implements ai.Provider and owns the underlying gRPC client.
type Provider struct {
	client   *googleai.GoogleAI
	embedder *Embedder
	logger   *slog.Logger
}

// NewProvider creates a Gemini embedding provider. An empty APIKey falls
// back to the GOOGLE_API_KEY environment variable.
//
// Returns ai.Provider interface to enforce abstraction.
func NewProvider(ctx context.Context, config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := []googleai.Option{googleai.WithDefaultEmbeddingModel(config.Model)}
	if config.APIKey != "" {
		opts = append(opts, googleai.WithAPIKey(config.APIKey))
	}
	client, err := googleai.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create googleai client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(config.BatchSize),
	)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &Provider{
		client: client,
		embedder: &Embedder{
			embedder:  embedder,
			normalize: config.NormalizeVectors,
			logger:    slog.Default().With("component", "googleai-embedder"),
		},
		logger: slog.Default().With("component", "googleai-provider"),
	}, nil
}

// Embedder returns the embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Close closes the underlying client connection.
func (p *Provider) Close() error {
	p.logger.Debug("closing googleai provider")
	return p.client.Close()
}
