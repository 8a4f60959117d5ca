// Package mock provides test doubles for the ai package interfaces.
//
// # Usage
//
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("quota exceeded")
//	}
//
//	// Check call counts
//	count := embedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on a text hash
//   - MockProvider: Wraps a MockEmbedder and records Close calls
package mock
