package backfill

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/pdfingest/core"
	"github.com/poiesic/pdfingest/ingestion"
	"github.com/poiesic/pdfingest/storage"
)

// Ingester runs a single request through the pipeline.
// *ingestion.Pipeline satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, req core.Request) (*core.Result, error)
}

// Config holds configuration for a backfill run.
type Config struct {
	// Concurrency is the number of documents processed at once
	Concurrency int

	// ReportInterval is how often to report progress (number of documents)
	ReportInterval int

	// MaxAttempts is the maximum number of attempts per document
	MaxAttempts int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// DryRun lists eligible documents without ingesting them
	DryRun bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	concurrency := runtime.NumCPU() / 2
	if concurrency < 1 {
		concurrency = 1
	}
	return &Config{
		Concurrency:    concurrency,
		ReportInterval: 10,
		MaxAttempts:    3,
		RetryDelay:     1 * time.Second,
	}
}

// Failure is a document that could not be ingested.
type Failure struct {
	Name string
	Err  error
}

// Summary describes the outcome of a backfill run.
type Summary struct {
	Bucket   string
	Listed   int
	Eligible []string
	Ingested int
	Ignored  int
	Chunks   int
	Failures []Failure
	Elapsed  time.Duration
}

// Backfiller drains eligible documents left under raw/.
type Backfiller struct {
	lister   storage.ObjectLister
	ingester Ingester
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// NewBackfiller creates a new backfiller.
// progress: where to write progress output (typically os.Stderr)
func NewBackfiller(lister storage.ObjectLister, ingester Ingester, config *Config, progress io.Writer, logger *slog.Logger) (*Backfiller, error) {
	if lister == nil {
		return nil, ErrListerRequired
	}
	if ingester == nil {
		return nil, ErrIngesterRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.MaxAttempts < 1 {
		return nil, ErrInvalidMaxAttempts
	}
	if progress == nil {
		progress = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Backfiller{
		lister:   lister,
		ingester: ingester,
		config:   config,
		progress: progress,
		logger:   logger.With("component", "backfill"),
	}, nil
}

// Run ingests every eligible document in bucket. Individual document
// failures are collected in the Summary. Listing failures and context
// cancellation are returned as errors.
func (b *Backfiller) Run(ctx context.Context, bucket string) (*Summary, error) {
	if bucket == "" {
		return nil, ErrEmptyBucket
	}

	objects, err := b.lister.List(ctx, bucket, ingestion.RawPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", bucket, err)
	}

	summary := &Summary{Bucket: bucket, Listed: len(objects)}
	for _, obj := range objects {
		if ingestion.IsEligible(obj.Name) {
			summary.Eligible = append(summary.Eligible, obj.Name)
		}
	}

	if len(summary.Eligible) == 0 {
		fmt.Fprintf(b.progress, "No eligible documents under %s in %s (%d objects listed)\n",
			ingestion.RawPrefix, bucket, len(objects))
		return summary, nil
	}
	if b.config.DryRun {
		return summary, nil
	}

	fmt.Fprintf(b.progress, "Starting backfill of %d documents (concurrency: %d)\n",
		len(summary.Eligible), b.config.Concurrency)

	pool, err := ants.NewPool(b.config.Concurrency)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	tracker := NewProgressTracker(b.progress, len(summary.Eligible), b.config.ReportInterval)
	tracker.Start()

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, name := range summary.Eligible {
		if ctx.Err() != nil {
			break
		}
		req := core.Request{Bucket: bucket, Name: name}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			result, err := b.ingestOne(ctx, req)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Failures = append(summary.Failures, Failure{Name: req.Name, Err: err})
				tracker.Failed()
			case result.Status == core.StatusIgnored:
				summary.Ignored++
				tracker.Succeeded(0)
			default:
				summary.Ingested++
				summary.Chunks += result.Chunks
				tracker.Succeeded(result.Chunks)
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			summary.Failures = append(summary.Failures, Failure{Name: req.Name, Err: submitErr})
			tracker.Failed()
			mu.Unlock()
		}
	}
	wg.Wait()

	tracker.Finish()
	summary.Elapsed = tracker.Elapsed()
	sort.Slice(summary.Failures, func(i, j int) bool {
		return summary.Failures[i].Name < summary.Failures[j].Name
	})

	fmt.Fprintf(b.progress, "Backfill complete. Ingested %d documents (%d chunks), %d failed, in %v\n",
		summary.Ingested, summary.Chunks, len(summary.Failures), summary.Elapsed.Round(time.Millisecond))

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// ingestOne runs req with retries. Failures the pipeline classifies as
// permanent are returned after the first attempt.
func (b *Backfiller) ingestOne(ctx context.Context, req core.Request) (*core.Result, error) {
	var result *core.Result
	err := RetryWithBackoff(ctx, func() error {
		var err error
		result, err = b.ingester.Ingest(ctx, req)
		if err != nil && !ingestion.Retryable(err) {
			return Permanent(err)
		}
		return err
	}, b.config.MaxAttempts, b.config.RetryDelay)
	if err != nil {
		b.logger.Warn("document not ingested", "name", req.Name, "err", err)
		return nil, err
	}
	return result, nil
}
