// Package chi exposes the snippet and search use cases over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/snipdex/internal/db"
	"github.com/kailas-cloud/snipdex/internal/domain"
	"github.com/kailas-cloud/snipdex/internal/domain/item"
	"github.com/kailas-cloud/snipdex/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/snipdex/internal/logger"
	healthuc "github.com/kailas-cloud/snipdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/snipdex/internal/usecase/search"
	snippetuc "github.com/kailas-cloud/snipdex/internal/usecase/snippet"
)

// maxBodyBytes bounds request bodies; snippet text itself is capped lower.
const maxBodyBytes = 64 << 10

// Snippets is the snippet lifecycle contract.
type Snippets interface {
	Create(ctx context.Context, in snippetuc.CreateInput) (item.Item, error)
	List(ctx context.Context, d item.Domain) ([]item.Item, error)
	Move(ctx context.Context, id string, from, to item.Domain) (item.Item, error)
	Delete(ctx context.Context, d item.Domain, id string) error
	Clear(ctx context.Context, d item.Domain) (int, error)
}

// Searcher runs ranked queries and exposes the visible view.
type Searcher interface {
	Search(ctx context.Context, req request.Request) (searchuc.Response, error)
	Snapshot() searchuc.Snapshot
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// SearchDefaults are applied when a query omits limit or min_score.
type SearchDefaults struct {
	Limit    int
	MinScore float64
}

// Server holds the HTTP handlers.
type Server struct {
	snippets      Snippets
	search        Searcher
	health        HealthChecker
	defaults      SearchDefaults
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	snippets Snippets,
	search Searcher,
	health HealthChecker,
	defaults SearchDefaults,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		snippets: snippets,
		search:   search,
		health:   health,
		defaults: defaults,
		logger:   logger,
	}
	// Order matters: quota rejections also wrap ErrStorageFailure.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrDuplicateInTarget, http.StatusConflict, CodeDuplicateInTarget),
		sentinelHandler(domain.ErrInvalidVector, http.StatusUnprocessableEntity, CodeInvalidVector),
		sentinelHandler(domain.ErrMissingEmbedding, http.StatusInternalServerError, CodeMissingEmbedding),
		sentinelHandler(domain.ErrEmbedderUnavailable, http.StatusServiceUnavailable, CodeEmbedderUnavailable),
		sentinelHandler(domain.ErrEmbeddingFailed, http.StatusBadGateway, CodeEmbeddingFailed),
		sentinelHandler(db.ErrQuotaExceeded, http.StatusInsufficientStorage, CodeQuotaExceeded),
		sentinelHandler(domain.ErrStorageFailure, http.StatusInternalServerError, CodeStorageFailure),
	}
	return s
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/snippets", func(r chi.Router) {
		r.Post("/", s.CreateSnippet)
		r.Get("/", s.ListSnippets)
		r.Delete("/{domain}", s.ClearDomain)
		r.Delete("/{domain}/{id}", s.DeleteSnippet)
		r.Post("/{id}/move", s.MoveSnippet)
	})

	r.Get("/search", s.Search)
	r.Get("/search/state", s.SearchState)
}

// CreateSnippet handles POST /snippets.
func (s *Server) CreateSnippet(w http.ResponseWriter, r *http.Request) {
	var req CreateSnippetRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	d, err := item.ParseDomain(req.Domain)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	in := snippetuc.CreateInput{Text: req.Text, Domain: d}
	if req.SourceURL != nil {
		in.SourceURL = *req.SourceURL
	}
	if req.Title != nil {
		in.Title = *req.Title
	}

	it, err := s.snippets.Create(r.Context(), in)
	if err != nil && it.ID() == "" {
		s.handleDomainError(w, r, err)
		return
	}
	if err != nil {
		// Stored, embedding deferred to the next search.
		logpkg.FromContext(r.Context(), s.logger).Warn("snippet stored without embedding",
			zap.String("id", it.ID()),
			zap.Error(err),
		)
	}

	w.Header().Set("Location", "/snippets/"+string(it.Domain())+"/"+it.ID())
	writeJSON(w, http.StatusCreated, CreateSnippetResponse{Snippet: snippetToDTO(&it), Embedded: err == nil})
}

// ListSnippets handles GET /snippets?domain=.
func (s *Server) ListSnippets(w http.ResponseWriter, r *http.Request) {
	var d item.Domain
	if raw := r.URL.Query().Get("domain"); raw != "" {
		parsed, err := item.ParseDomain(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
			return
		}
		d = parsed
	}

	items, err := s.snippets.List(r.Context(), d)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SnippetListResponse{Items: snippetsToDTO(items), Total: len(items)})
}

// DeleteSnippet handles DELETE /snippets/{domain}/{id}.
func (s *Server) DeleteSnippet(w http.ResponseWriter, r *http.Request) {
	d, err := item.ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	if err := s.snippets.Delete(r.Context(), d, chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearDomain handles DELETE /snippets/{domain}.
func (s *Server) ClearDomain(w http.ResponseWriter, r *http.Request) {
	d, err := item.ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	n, err := s.snippets.Clear(r.Context(), d)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ClearResponse{Domain: string(d), Removed: n})
}

// MoveSnippet handles POST /snippets/{id}/move.
func (s *Server) MoveSnippet(w http.ResponseWriter, r *http.Request) {
	var req MoveSnippetRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	from, err := item.ParseDomain(req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "from: "+err.Error())
		return
	}
	to, err := item.ParseDomain(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "to: "+err.Error())
		return
	}

	moved, err := s.snippets.Move(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, snippetToDTO(&moved))
}

// Search handles GET /search?q=&limit=&min_score=.
// A superseded query answers 200 with superseded=true and no results.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := s.defaults.Limit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "limit must be an integer")
			return
		}
		limit = n
	}
	minScore := s.defaults.MinScore
	if raw := q.Get("min_score"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, "min_score must be a number")
			return
		}
		minScore = f
	}

	req, err := request.New(q.Get("q"), limit, minScore)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	resp, err := s.search.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponseToDTO(&resp))
}

// SearchState handles GET /search/state.
func (s *Server) SearchState(w http.ResponseWriter, _ *http.Request) {
	snap := s.search.Snapshot()
	writeJSON(w, http.StatusOK, snapshotToDTO(&snap))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidInput,
		domain.ErrNotFound,
		domain.ErrDuplicateInTarget,
		domain.ErrInvalidVector,
		domain.ErrMissingEmbedding,
		domain.ErrEmbedderUnavailable,
		domain.ErrEmbeddingFailed,
		db.ErrQuotaExceeded,
		domain.ErrStorageFailure,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context(), s.logger)
	logger.Warn("domain error", zap.Error(err))
	if domain.IsRetryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
