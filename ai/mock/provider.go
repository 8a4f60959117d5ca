package mock

import (
	"sync/atomic"

	"github.com/poiesic/pdfingest/ai"
)

// MockProvider is a test double for ai.Provider.
type MockProvider struct {
	embedder *MockEmbedder
	closed   atomic.Bool
}

var _ ai.Provider = (*MockProvider)(nil)

// NewMockProvider creates a provider backed by a default MockEmbedder.
func NewMockProvider() *MockProvider {
	return NewMockProviderWithEmbedder(NewMockEmbedder())
}

// NewMockProviderWithEmbedder creates a provider around embedder.
func NewMockProviderWithEmbedder(embedder *MockEmbedder) *MockProvider {
	return &MockProvider{embedder: embedder}
}

func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

func (p *MockProvider) Close() error {
	p.closed.Store(true)
	return nil
}

// Closed reports whether Close has been called.
func (p *MockProvider) Closed() bool {
	return p.closed.Load()
}

// GetMockEmbedder returns the concrete embedder for assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}
