// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"errors"

	"github.com/poiesic/pdfingest/core"
	"github.com/poiesic/pdfingest/storage"
)

var (
	// ErrObjectStoreRequired is returned when an object store is not provided.
	ErrObjectStoreRequired = errors.New("object store required")

	// ErrExtractorRequired is returned when a text extractor is not provided.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrIndexRequired is returned when an index writer is not provided.
	ErrIndexRequired = errors.New("index writer required")
)

// Step failures. Each wraps the underlying cause.
var (
	// ErrFetch indicates the object could not be read.
	ErrFetch = errors.New("fetch failed")

	// ErrExtraction indicates the object is not a readable document or has no text.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbedding indicates the embedding service failed.
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndexWrite indicates the vector index rejected the batch.
	ErrIndexWrite = errors.New("index write failed")

	// ErrArchive indicates the object was indexed but could not be moved.
	ErrArchive = errors.New("archive move failed")
)

// Retryable reports whether running the same request again could succeed.
// Malformed triggers, extraction failures and objects that no longer exist
// are permanent. Everything else, including the archive move, is transient.
// Cancellation is always transient regardless of the step it interrupted.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, core.ErrMalformedTrigger):
		return false
	case errors.Is(err, ErrExtraction):
		return false
	case errors.Is(err, storage.ErrNotFound):
		return false
	default:
		return true
	}
}
