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

package pdfingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/pdfingest/ai"
	"github.com/poiesic/pdfingest/ai/googleai"
	"github.com/poiesic/pdfingest/ai/openai"
	"github.com/poiesic/pdfingest/backfill"
	"github.com/poiesic/pdfingest/extract"
	"github.com/poiesic/pdfingest/ingestion"
	"github.com/poiesic/pdfingest/search"
	"github.com/poiesic/pdfingest/server"
	"github.com/poiesic/pdfingest/storage"
	"github.com/poiesic/pdfingest/storage/badger"
	"github.com/poiesic/pdfingest/storage/gcs"
	"github.com/poiesic/pdfingest/storage/localfs"
	"github.com/poiesic/pdfingest/storage/pgvector"
	"github.com/poiesic/pdfingest/storage/pinecone"
	"github.com/poiesic/pdfingest/storage/s3"
)

// Service owns the clients shared by the pipeline, the searcher and the
// HTTP server.
type Service struct {
	config    *Config
	objects   storage.ObjectStore
	index     storage.VectorIndex
	provider  ai.Provider
	extractor extract.Extractor
	pipeline  *ingestion.Pipeline
	base      *slog.Logger
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	provider ai.Provider
	objects  storage.ObjectStore
	index    storage.VectorIndex
	logger   *slog.Logger
}

// WithProvider uses provider instead of the one named by the AI config.
// The service takes ownership and closes it.
func WithProvider(provider ai.Provider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithObjectStore uses objects instead of the configured storage backend.
// The service takes ownership and closes it.
func WithObjectStore(objects storage.ObjectStore) ServiceOption {
	return func(o *serviceOptions) {
		o.objects = objects
	}
}

// WithIndex uses index instead of the configured index backend.
// The service takes ownership and closes it.
func WithIndex(index storage.VectorIndex) ServiceOption {
	return func(o *serviceOptions) {
		o.index = index
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// NewService validates cfg and opens every backend it names.
func NewService(ctx context.Context, cfg *Config, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	options := &serviceOptions{}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{config: cfg, base: logger, logger: logger.With("component", "service")}

	objects := options.objects
	if objects == nil {
		var err error
		if objects, err = openObjectStore(ctx, &cfg.Storage); err != nil {
			return nil, fmt.Errorf("failed to open object store: %w", err)
		}
	}
	s.objects = objects

	provider := options.provider
	if provider == nil {
		var err error
		if provider, err = openProvider(ctx, cfg.AI); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create embedding provider: %w", err)
		}
	}
	s.provider = provider

	index := options.index
	if index == nil {
		var err error
		if index, err = openIndex(ctx, &cfg.Index); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open vector index: %w", err)
		}
	}
	s.index = index

	extractor, err := extract.NewPDFExtractor(
		extract.WithChunkSize(cfg.Chunking.Size),
		extract.WithChunkOverlap(cfg.Chunking.Overlap),
		extract.WithPassword(cfg.Chunking.Password),
		extract.WithLogger(logger),
	)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.extractor = extractor

	pipeline, err := ingestion.NewPipeline(s.objects, s.extractor, s.provider.Embedder(), s.index,
		ingestion.WithLogger(logger))
	if err != nil {
		s.Close()
		return nil, err
	}
	s.pipeline = pipeline

	s.logger.Debug("service ready",
		"storage", cfg.Storage.Backend,
		"index", cfg.Index.Backend,
		"provider", cfg.AI.Provider,
		"model", cfg.AI.Model)
	return s, nil
}

func openObjectStore(ctx context.Context, cfg *StorageConfig) (storage.ObjectStore, error) {
	switch cfg.Backend {
	case StorageGCS:
		var opts []gcs.Option
		if cfg.CredentialsFile != "" {
			opts = append(opts, gcs.WithCredentialsFile(cfg.CredentialsFile))
		}
		if cfg.Endpoint != "" {
			opts = append(opts, gcs.WithEndpoint(cfg.Endpoint))
		}
		return gcs.NewStore(ctx, opts...)
	case StorageS3:
		return s3.NewStore(&cfg.S3)
	case StorageLocal:
		return localfs.NewStore(cfg.Root)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

func openProvider(ctx context.Context, cfg *ai.Config) (ai.Provider, error) {
	switch cfg.Provider {
	case ai.ProviderGoogleAI:
		return googleai.NewProvider(ctx, cfg)
	case ai.ProviderOpenAI:
		return openai.NewProvider(cfg)
	}
	return nil, fmt.Errorf("%w: %q", ai.ErrUnknownProvider, cfg.Provider)
}

func openIndex(ctx context.Context, cfg *IndexConfig) (storage.VectorIndex, error) {
	switch cfg.Backend {
	case IndexPinecone:
		return pinecone.NewIndex(ctx, &cfg.Pinecone)
	case IndexPGVector:
		return pgvector.NewIndex(ctx, &cfg.PGVector)
	case IndexBadger:
		if cfg.BadgerPath == "" {
			return badger.NewMemoryIndex(cfg.Dimension)
		}
		return badger.NewIndex(cfg.BadgerPath, cfg.Dimension)
	}
	return nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
}

// Close releases the provider, the index and the object store, in that
// order. Every component is closed even if an earlier one fails.
func (s *Service) Close() error {
	var errs []error
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing embedding provider", "err", err)
			errs = append(errs, err)
		}
	}
	if s.index != nil {
		if err := s.index.Close(); err != nil {
			s.logger.Error("error closing vector index", "err", err)
			errs = append(errs, err)
		}
	}
	if s.objects != nil {
		if err := s.objects.Close(); err != nil {
			s.logger.Error("error closing object store", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) Config() *Config {
	return s.config
}

func (s *Service) ObjectStore() storage.ObjectStore {
	return s.objects
}

func (s *Service) Index() storage.VectorIndex {
	return s.index
}

func (s *Service) Pipeline() *ingestion.Pipeline {
	return s.pipeline
}

func (s *Service) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	opts = append([]search.Option{search.WithLogger(s.base), search.WithMinScore(s.config.MinScore)}, opts...)
	return search.NewSearcher(s.provider.Embedder(), s.index, opts...)
}

// NewBackfiller drains raw/ through the service pipeline.
func (s *Service) NewBackfiller(cfg *backfill.Config, progress io.Writer) (*backfill.Backfiller, error) {
	return backfill.NewBackfiller(s.objects, s.pipeline, cfg, progress, s.base)
}

// NewServer builds the HTTP server with search enabled.
func (s *Service) NewServer(opts ...server.Option) (*server.Server, error) {
	searcher, err := s.NewSearcher()
	if err != nil {
		return nil, err
	}
	policy, err := server.ParseFailurePolicy(s.config.FailurePolicy)
	if err != nil {
		return nil, err
	}
	opts = append([]server.Option{
		server.WithSearcher(searcher),
		server.WithFailurePolicy(policy),
		server.WithLogger(s.base),
	}, opts...)
	return server.New(s.pipeline, opts...)
}
