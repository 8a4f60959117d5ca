package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/poiesic/pdfingest/core"
	"github.com/poiesic/pdfingest/ingestion"
	"github.com/poiesic/pdfingest/trigger"
)

const (
	requestIDHeader = "X-Request-Id"
	shutdownTimeout = 10 * time.Second
	maxSearchHits   = 50
)

// Ingester handles a single ingestion request.
type Ingester interface {
	Ingest(ctx context.Context, req core.Request) (*core.Result, error)
}

// Searcher runs semantic queries.
type Searcher interface {
	Search(ctx context.Context, query string, maxHits int) ([]*core.Match, error)
}

// Server routes HTTP requests to the pipeline and the searcher.
type Server struct {
	ingester Ingester
	searcher Searcher
	policy   FailurePolicy
	logger   *slog.Logger
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server) error

// WithSearcher enables GET /search.
func WithSearcher(searcher Searcher) Option {
	return func(s *Server) error {
		s.searcher = searcher
		return nil
	}
}

// WithFailurePolicy sets how failures map to status codes.
// Default is PolicyRedeliver.
func WithFailurePolicy(policy FailurePolicy) Option {
	return func(s *Server) error {
		parsed, err := ParseFailurePolicy(string(policy))
		if err != nil {
			return err
		}
		s.policy = parsed
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a server around ingester.
func New(ingester Ingester, opts ...Option) (*Server, error) {
	if ingester == nil {
		return nil, ErrIngesterRequired
	}

	s := &Server{
		ingester: ingester,
		policy:   PolicyRedeliver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "server")

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(middleware.Recoverer)

	r.Post("/", s.handleIngest)
	r.Get("/healthz", s.handleHealth)
	if s.searcher != nil {
		r.Get("/search", s.handleSearch)
	}
	s.router = r

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr, "failure_policy", s.policy)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type ctxKey struct{}

// requestID tags each request with a uuid, reusing an inbound X-Request-Id.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func (s *Server) requestLogger(r *http.Request) *slog.Logger {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return s.logger.With("request_id", id)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)

	req, err := trigger.FromHTTPRequest(r)
	if err != nil {
		logger.Warn("ignoring notification", "err", err)
		writeText(w, http.StatusOK, "Ignored")
		return
	}

	result, err := s.ingester.Ingest(r.Context(), req)
	if err != nil {
		status := s.failureStatus(err)
		logger.Error("ingestion failed",
			"request", req.String(),
			"retryable", ingestion.Retryable(err),
			"status", status,
			"err", err)
		writeText(w, status, "Failed: "+failureReason(err))
		return
	}

	if result.Status == core.StatusIgnored {
		logger.Debug("ignored", "request", req.String(), "reason", result.Reason)
		writeText(w, http.StatusOK, "Ignored")
		return
	}

	logger.Info("ingested", "request", req.String(), "chunks", result.Chunks)
	writeText(w, http.StatusOK, fmt.Sprintf("Success: %d chunks", result.Chunks))
}

func (s *Server) failureStatus(err error) int {
	if s.policy == PolicyAcknowledge || !ingestion.Retryable(err) {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

// failureReason names the failed step without exposing the underlying cause.
func failureReason(err error) string {
	for _, step := range []error{
		ingestion.ErrFetch,
		ingestion.ErrExtraction,
		ingestion.ErrEmbedding,
		ingestion.ErrIndexWrite,
		ingestion.ErrArchive,
	} {
		if errors.Is(err, step) {
			return step.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

type searchHit struct {
	ID     string  `json:"id"`
	Score  float32 `json:"score"`
	Bucket string  `json:"bucket"`
	Name   string  `json:"name"`
	Chunk  int     `json:"chunk"`
	Page   int     `json:"page"`
	Text   string  `json:"text"`
}

type searchResponse struct {
	Query   string      `json:"query"`
	Results []searchHit `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	logger := s.requestLogger(r)

	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "missing q parameter", http.StatusBadRequest)
		return
	}
	k := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSearchHits {
			http.Error(w, fmt.Sprintf("k must be between 1 and %d", maxSearchHits), http.StatusBadRequest)
			return
		}
		k = n
	}

	matches, err := s.searcher.Search(r.Context(), query, k)
	if err != nil {
		logger.Error("search failed", "query", query, "err", err)
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}

	resp := searchResponse{Query: query, Results: make([]searchHit, 0, len(matches))}
	for _, m := range matches {
		resp.Results = append(resp.Results, searchHit{
			ID:     m.ID,
			Score:  m.Score,
			Bucket: m.Bucket,
			Name:   m.Name,
			Chunk:  m.ChunkIndex,
			Page:   m.Page,
			Text:   m.Text,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Warn("error writing search response", "err", err)
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
