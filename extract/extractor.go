package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/pdfingest/core"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of characters shared by adjacent chunks.
	DefaultChunkOverlap = 200
)

var pdfMagic = []byte("%PDF-")

// Extractor converts document bytes into ordered text chunks.
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]core.Chunk, error)
}

// Page is the plain text of a single page. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// PDFExtractor extracts and chunks text from PDF documents.
type PDFExtractor struct {
	chunkSize    int
	chunkOverlap int
	password     string
	splitter     textsplitter.RecursiveCharacter
	logger       *slog.Logger
}

var _ Extractor = (*PDFExtractor)(nil)

// Option configures a PDFExtractor.
type Option func(*PDFExtractor) error

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(e *PDFExtractor) error {
		if size < 1 {
			return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunking, size)
		}
		e.chunkSize = size
		return nil
	}
}

// WithChunkOverlap sets the overlap between adjacent chunks.
func WithChunkOverlap(overlap int) Option {
	return func(e *PDFExtractor) error {
		if overlap < 0 {
			return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidChunking, overlap)
		}
		e.chunkOverlap = overlap
		return nil
	}
}

// WithPassword sets the password used to open encrypted documents.
func WithPassword(password string) Option {
	return func(e *PDFExtractor) error {
		e.password = password
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *PDFExtractor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor(opts ...Option) (*PDFExtractor, error) {
	e := &PDFExtractor{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.chunkOverlap >= e.chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d",
			ErrInvalidChunking, e.chunkOverlap, e.chunkSize)
	}

	e.splitter = textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(e.chunkSize),
		textsplitter.WithChunkOverlap(e.chunkOverlap),
	)
	e.logger = e.logger.With("component", "pdf-extractor")
	return e, nil
}

// Extract reads every page of the document and splits the text into chunks.
// Pages without text are skipped. ErrNoText is returned when nothing remains.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) ([]core.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic) {
		return nil, ErrNotPDF
	}

	pages, err := e.loadPages(ctx, data)
	if err != nil {
		return nil, err
	}

	chunks, err := e.split(pages)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("extracted document", "pages", len(pages), "chunks", len(chunks), "bytes", len(data))
	return chunks, nil
}

// loadPages parses the document. The underlying parser panics on some
// corrupt inputs, so panics are converted to ErrMalformedPDF.
func (e *PDFExtractor) loadPages(ctx context.Context, data []byte) (pages []Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", ErrMalformedPDF, r)
		}
	}()

	var loaderOpts []documentloaders.PDFOptions
	if e.password != "" {
		loaderOpts = append(loaderOpts, documentloaders.WithPassword(e.password))
	}
	loader := documentloaders.NewPDF(bytes.NewReader(data), int64(len(data)), loaderOpts...)

	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPDF, err)
	}

	pages = make([]Page, 0, len(docs))
	for i, doc := range docs {
		number := i + 1
		if n, ok := doc.Metadata["page"].(int); ok {
			number = n
		}
		pages = append(pages, Page{Number: number, Text: doc.PageContent})
	}
	return pages, nil
}

// split chunks each page in order and assigns document-wide indices.
func (e *PDFExtractor) split(pages []Page) ([]core.Chunk, error) {
	var chunks []core.Chunk
	for _, page := range pages {
		text := strings.TrimSpace(page.Text)
		if text == "" {
			continue
		}
		parts, err := e.splitter.SplitText(text)
		if err != nil {
			return nil, fmt.Errorf("split page %d: %w", page.Number, err)
		}
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			chunks = append(chunks, core.Chunk{
				Index: len(chunks),
				Page:  page.Number,
				Text:  part,
			})
		}
	}
	if len(chunks) == 0 {
		return nil, ErrNoText
	}
	return chunks, nil
}
