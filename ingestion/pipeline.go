package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/pdfingest/ai"
	"github.com/poiesic/pdfingest/core"
	"github.com/poiesic/pdfingest/extract"
	"github.com/poiesic/pdfingest/storage"
)

const (
	// RawPrefix marks objects waiting to be ingested.
	RawPrefix = "raw/"
	// ProcessedPrefix replaces RawPrefix once an object has been indexed.
	ProcessedPrefix = "processed/"
	// PDFSuffix is the only extension the pipeline accepts.
	PDFSuffix = ".pdf"
)

// IsEligible reports whether name refers to a document awaiting ingestion.
// Matching is case-sensitive.
func IsEligible(name string) bool {
	return strings.HasPrefix(name, RawPrefix) && strings.HasSuffix(name, PDFSuffix)
}

// ArchiveName returns the name an ingested object is moved to. Only the
// first occurrence of RawPrefix is replaced, so nested raw/ segments survive.
func ArchiveName(name string) string {
	return strings.Replace(name, RawPrefix, ProcessedPrefix, 1)
}

// ObjectSource reads objects and moves them once they have been indexed.
type ObjectSource interface {
	storage.ObjectReader
	storage.ObjectMover
}

// Pipeline indexes documents named by storage events.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	objects   ObjectSource
	extractor extract.Extractor
	embedder  ai.Embedder
	index     storage.IndexWriter
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithClock sets the time source used to stamp indexed records.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		p.now = now
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	objects ObjectSource,
	extractor extract.Extractor,
	embedder ai.Embedder,
	index storage.IndexWriter,
	opts ...Option,
) (*Pipeline, error) {
	if objects == nil {
		return nil, ErrObjectStoreRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}

	p := &Pipeline{
		objects:   objects,
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// Ingest handles one storage event.
//
// Malformed requests, names that are not eligible and objects that are no
// longer present return a result with StatusIgnored and a nil error. Otherwise the object is fetched, extracted,
// embedded and written to the index, and only then moved from raw/ to
// processed/. A failure at any step stops the run and is returned wrapped
// in the matching step error; steps after it are not attempted.
func (p *Pipeline) Ingest(ctx context.Context, req core.Request) (*core.Result, error) {
	if err := core.ValidateRequest(req); err != nil {
		p.logger.Warn("ignoring malformed request", "request", req.String(), "err", err)
		return &core.Result{Status: core.StatusIgnored, Request: req, Reason: err.Error()}, nil
	}
	if !IsEligible(req.Name) {
		p.logger.Debug("ignoring ineligible object", "request", req.String())
		return &core.Result{Status: core.StatusIgnored, Request: req, Reason: "not a raw/ PDF"}, nil
	}

	logger := p.logger.With("bucket", req.Bucket, "name", req.Name)
	start := time.Now()

	data, err := p.objects.Read(ctx, req.Bucket, req.Name)
	if errors.Is(err, storage.ErrNotFound) {
		// Redelivered event for an object that has already been archived.
		logger.Info("object no longer under raw/, ignoring", "err", err)
		return &core.Result{Status: core.StatusIgnored, Request: req, Reason: "object no longer under raw/ (already archived)"}, nil
	}
	if err != nil {
		logger.Error("error reading object", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	logger.Debug("fetched object", "bytes", len(data))

	chunks, err := p.extractor.Extract(ctx, data)
	if err != nil {
		logger.Error("error extracting text", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if len(chunks) == 0 {
		logger.Error("document has no text")
		return nil, fmt.Errorf("%w: %w", ErrExtraction, extract.ErrNoText)
	}
	logger.Debug("extracted chunks", "chunks", len(chunks))

	records, err := embedChunks(ctx, p.embedder, req, chunks, p.now())
	if err != nil {
		logger.Error("error generating embeddings", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	if err := p.index.Write(ctx, records); err != nil {
		logger.Error("error writing to index", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrIndexWrite, err)
	}

	archived := ArchiveName(req.Name)
	if err := p.objects.Move(ctx, req.Bucket, req.Name, archived); err != nil {
		logger.Error("indexed object could not be archived", "to", archived, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrArchive, err)
	}

	logger.Info("ingested document",
		"chunks", len(records),
		"archived_as", archived,
		"duration", time.Since(start))

	return &core.Result{
		Status:     core.StatusIngested,
		Request:    req,
		Chunks:     len(records),
		ArchivedAs: archived,
	}, nil
}
