// Package httpapi exposes the search engine over HTTP: search, ingestion,
// health, stats and Prometheus metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lexhaven/lexsearch/internal/domain"
	healthuc "github.com/lexhaven/lexsearch/internal/usecase/health"
	"github.com/lexhaven/lexsearch/internal/usecase/ingest"
)

const maxIngestBatch = 100

// Error codes returned in the JSON error envelope.
const (
	codeBadRequest        = "bad_request"
	codeInvalidQuery      = "invalid_query"
	codeSearchTimeout     = "search_timeout"
	codeEmbeddingProvider = "embedding_provider_error"
	codeCaseNotFound      = "case_not_found"
	codeIndexCorrupted    = "index_corrupted"
	codeNotSupported      = "not_supported"
	codeInternal          = "internal_error"
)

// Searcher runs hybrid queries.
type Searcher interface {
	Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResult, error)
}

// Ingestor accepts case document batches.
type Ingestor interface {
	IngestBatch(ctx context.Context, docs []ingest.Document) (ingest.Result, error)
}

// HealthService reports component health and engine stats.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
	Stats(ctx context.Context) (healthuc.Stats, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the usecases into HTTP handlers.
type Server struct {
	search        Searcher
	ingest        Ingestor
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. ingest can be nil for read-only
// deployments; POST /cases then returns not_supported.
func NewServer(search Searcher, ing Ingestor, health HealthService, logger *zap.Logger) *Server {
	s := &Server{
		search: search,
		ingest: ing,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeInvalidQuery),
		sentinelHandler(domain.ErrSearchTimeout, http.StatusGatewayTimeout, codeSearchTimeout),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider),
		sentinelHandler(domain.ErrCaseNotFound, http.StatusNotFound, codeCaseNotFound),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrIndexCorrupted, http.StatusInternalServerError, codeIndexCorrupted),
		sentinelHandler(domain.ErrNotSupported, http.StatusNotImplemented, codeNotSupported),
	}
	return s
}

// Routes mounts all handlers on a fresh chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/search", s.SearchCases)
	r.Post("/cases", s.IngestCases)
	r.Get("/healthz", s.Healthz)
	r.Get("/stats", s.Stats)
	r.Get("/metrics", s.Metrics)
	return r
}

// SearchCases handles POST /search.
func (s *Server) SearchCases(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}

	query, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	start := time.Now()
	results, err := s.search.Search(r.Context(), query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(results))
	for i, res := range results {
		items[i] = resultToItem(res)
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Results: items,
		Total:   len(items),
		TookMS:  time.Since(start).Milliseconds(),
	})
}

// IngestCases handles POST /cases.
func (s *Server) IngestCases(w http.ResponseWriter, r *http.Request) {
	if s.ingest == nil {
		writeError(w, http.StatusNotImplemented, codeNotSupported, "ingestion is disabled")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Cases) == 0 || len(req.Cases) > maxIngestBatch {
		writeError(w, http.StatusBadRequest, codeBadRequest,
			"cases count must be between 1 and 100")
		return
	}

	docs := make([]ingest.Document, 0, len(req.Cases))
	for _, c := range req.Cases {
		doc, err := c.toDocument()
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
			return
		}
		docs = append(docs, doc)
	}

	res, err := s.ingest.IngestBatch(r.Context(), docs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{
		Ingested: res.Ingested,
		Failed:   res.Failed,
	})
}

// Healthz handles GET /healthz.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Stats handles GET /stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.health.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrSearchTimeout,
		domain.ErrEmbeddingProviderError,
		domain.ErrCaseNotFound,
		domain.ErrVectorDimMismatch,
		domain.ErrIndexCorrupted,
		domain.ErrNotSupported,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler surfaces the offending field for ValidationError.
func validationHandler(w http.ResponseWriter, err error, _ string) bool {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	writeError(w, http.StatusBadRequest, codeInvalidQuery, verr.Error())
	return true
}
