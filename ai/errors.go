package ai

import "errors"

var (
	// ErrUnknownProvider indicates a provider name with no implementation.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrEmbeddingCountMismatch indicates a provider returned a different
	// number of vectors than texts it was given.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")
)
