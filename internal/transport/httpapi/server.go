package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	logdex "github.com/kailas-cloud/logdex"
	"github.com/kailas-cloud/logdex/internal/domain"
)

// Retriever is the slice of the SDK client the HTTP surface needs.
type Retriever interface {
	Execute(ctx context.Context, s logdex.Search) (*logdex.Result, error)
	PreviewPaths(ctx context.Context, query, timeRange string, repos []string) ([]string, error)
	PreviewRepositories(ctx context.Context) ([]string, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes log retrieval over HTTP.
type Server struct {
	client        Retriever
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(client Retriever, logger *zap.Logger) *Server {
	s := &Server{
		client: client,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidLimit, http.StatusBadRequest, "invalid_limit"),
		sentinelHandler(domain.ErrSearchRejected, http.StatusUnprocessableEntity, "search_rejected"),
		sentinelHandler(domain.ErrPollTimeout, http.StatusGatewayTimeout, "poll_timeout"),
		sentinelHandler(domain.ErrUnavailable, http.StatusBadGateway, "upstream_unavailable"),
		sentinelHandler(domain.ErrTransport, http.StatusBadGateway, "upstream_error"),
	}
	return s
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/v1/search", s.SearchLogs)
	r.Get("/v1/repositories", s.ListRepositories)
	r.Post("/v1/preview/paths", s.PreviewPaths)
	r.Get("/healthz", s.Health)
}

type searchRequest struct {
	Query     string   `json:"query"`
	TimeRange string   `json:"time_range"`
	Limit     int      `json:"limit"`
	Repos     []string `json:"repos,omitempty"`
	Paths     []string `json:"paths,omitempty"`
}

type recordItem struct {
	ID     string     `json:"id"`
	Values [][]string `json:"values"`
}

type searchResponse struct {
	Records []recordItem `json:"records"`
	Fields  []string     `json:"fields"`
	Warning bool         `json:"warning"`
}

// SearchLogs handles POST /v1/search.
func (s *Server) SearchLogs(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	res, err := s.client.Execute(r.Context(), logdex.Search{
		Query:     req.Query,
		TimeRange: req.TimeRange,
		Limit:     req.Limit,
		Repos:     req.Repos,
		Paths:     req.Paths,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	records := make([]recordItem, len(res.Records))
	for i, rec := range res.Records {
		records[i] = recordItem{ID: rec.ID, Values: rec.Values}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Records: records,
		Fields:  res.Fields,
		Warning: res.Warning,
	})
}

// ListRepositories handles GET /v1/repositories.
func (s *Server) ListRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := s.client.PreviewRepositories(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"repositories": repos})
}

type previewPathsRequest struct {
	Query     string   `json:"query"`
	TimeRange string   `json:"time_range"`
	Repos     []string `json:"repos,omitempty"`
}

// PreviewPaths handles POST /v1/preview/paths.
func (s *Server) PreviewPaths(w http.ResponseWriter, r *http.Request) {
	var req previewPathsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	paths, err := s.client.PreviewPaths(r.Context(), req.Query, req.TimeRange, req.Repos)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"paths": paths})
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeMessage returns a sentinel error message without exposing internals.
func safeMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidLimit,
		domain.ErrSearchRejected,
		domain.ErrPollTimeout,
		domain.ErrUnavailable,
		domain.ErrTransport,
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

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
