package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/pdfingest/ai"
	"github.com/poiesic/pdfingest/core"
	"github.com/poiesic/pdfingest/storage"
)

const (
	// DefaultMaxHits is used when a caller asks for zero or fewer results.
	DefaultMaxHits = 5

	// verbatimBoost is added to chunks containing every significant query word.
	verbatimBoost = 0.3

	// candidateFactor widens the index query so the verbatim boost can
	// promote chunks that sit just below the cut.
	candidateFactor = 3
)

// Searcher runs semantic queries over indexed document chunks.
type Searcher struct {
	embedder ai.Embedder
	index    storage.IndexSearcher
	minScore float32
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinScore drops index matches whose similarity is below score.
// Default is 0, which keeps everything the index returns.
func WithMinScore(score float32) Option {
	return func(s *Searcher) error {
		if score < -1 || score > 1 {
			return fmt.Errorf("min score must be in [-1, 1], got %v", score)
		}
		s.minScore = score
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(embedder ai.Embedder, index storage.IndexSearcher, opts ...Option) (*Searcher, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}

	s := &Searcher{
		embedder: embedder,
		index:    index,
		logger:   slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "search")

	return s, nil
}

// Search returns up to maxHits chunks relevant to query, best first.
func (s *Searcher) Search(ctx context.Context, query string, maxHits int) ([]*core.Match, error) {
	return s.SearchWithMonitor(ctx, query, maxHits, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, maxHits int, monitor SearchMonitor) ([]*core.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits <= 0 {
		maxHits = DefaultMaxHits
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}

	matches, err := s.index.Query(ctx, embedding, maxHits*candidateFactor)
	if err != nil {
		s.logger.Error("error querying index", "err", err)
		return nil, err
	}
	monitor.AfterSemanticSearch(matches)

	words := significantWords(query)
	results := make([]*core.Match, 0, len(matches))
	for _, match := range matches {
		if match == nil || match.Score < s.minScore {
			continue
		}
		if containsAll(match.Text, words) {
			match.Score += verbatimBoost
			monitor.VerbatimHit(match)
		}
		results = append(results, match)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}
	monitor.Finish(results)

	s.logger.Debug("search complete", "query", query, "candidates", len(matches), "results", len(results))
	return results, nil
}
