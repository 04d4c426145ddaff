// Package chi exposes prompt selection, essay grading, and corpus
// management over HTTP.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fluentedge/essaylab/internal/corpus"
	"github.com/fluentedge/essaylab/internal/domain"
	"github.com/fluentedge/essaylab/internal/logger"
	"github.com/fluentedge/essaylab/internal/workflow"
)

// maxImportBytes bounds corpus import payloads.
const maxImportBytes = 32 << 20

// Server wires the workflow coordinator and the corpus to HTTP routes.
type Server struct {
	coordinator *workflow.Coordinator
	corpus      *corpus.Corpus
	weights     domain.RubricWeights
	logger      *zap.Logger
}

// NewServer creates the HTTP API server. weights is the default rubric;
// grading requests may override it per call.
func NewServer(coordinator *workflow.Coordinator, promptCorpus *corpus.Corpus, weights domain.RubricWeights, log *zap.Logger) *Server {
	return &Server{
		coordinator: coordinator,
		corpus:      promptCorpus,
		weights:     weights,
		logger:      log,
	}
}

// Router builds the chi router with middleware and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/prompts/select", s.handleSelectPrompt)
		r.Post("/gradings", s.handleGradeEssay)
		r.Get("/prompts", s.handleListPrompts)
		r.Post("/prompts", s.handleInsertPrompt)
		r.Get("/prompts/export", s.handleExport)
		r.Post("/prompts/import", s.handleImport)
	})
	return r
}

// requestLogger attaches a request-scoped logger and records timing.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := s.logger.With(
			zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		ctx := logger.ContextWithLogger(r.Context(), reqLog)
		next.ServeHTTP(w, r.WithContext(ctx))
		reqLog.Debug("request handled", zap.Duration("duration", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"prompts": s.corpus.Count(),
	})
}

func (s *Server) handleSelectPrompt(w http.ResponseWriter, r *http.Request) {
	var req selectPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	criteria, err := req.criteria()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	rec, err := s.coordinator.SelectPrompt(r.Context(), criteria, req.Query)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promptToDTO(&rec))
}

func (s *Server) handleGradeEssay(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	prompt, err := s.resolvePrompt(&req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	weights := s.weights
	if req.Weights != nil {
		weights, err = req.Weights.rubric()
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
	}

	result, err := s.coordinator.GradeEssay(r.Context(), req.Essay, prompt, weights)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gradingToDTO(&result))
}

// resolvePrompt takes either a stored prompt id or an inline prompt record.
func (s *Server) resolvePrompt(req *gradeRequest) (domain.PromptRecord, error) {
	if req.PromptID != "" {
		rec, ok := s.corpus.Get(req.PromptID)
		if !ok {
			return domain.PromptRecord{}, domain.ErrMissingPrompt
		}
		return rec, nil
	}
	if req.Prompt != nil {
		return req.Prompt.record()
	}
	return domain.PromptRecord{}, domain.ErrMissingPrompt
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	records := s.corpus.All()
	items := make([]promptDTO, len(records))
	for i := range records {
		items[i] = promptToDTO(&records[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

func (s *Server) handleInsertPrompt(w http.ResponseWriter, r *http.Request) {
	var req promptDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}
	rec, err := req.record()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if err := s.corpus.Insert(r.Context(), rec); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": rec.ID})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.corpus.ExportJSON()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "read body: "+err.Error())
		return
	}
	if err := s.corpus.ImportJSON(data); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": s.corpus.Count()})
}

// statusMapping maps domain sentinels to HTTP responses.
var statusMapping = []struct {
	sentinel error
	status   int
	code     string
}{
	{domain.ErrNoMatch, http.StatusNotFound, "no_match"},
	{domain.ErrDuplicateID, http.StatusConflict, "duplicate_id"},
	{domain.ErrInvalidCriteria, http.StatusBadRequest, "validation_failed"},
	{domain.ErrInvalidRecord, http.StatusBadRequest, "validation_failed"},
	{domain.ErrMalformedImport, http.StatusBadRequest, "malformed_import"},
	{domain.ErrEmptyEssay, http.StatusBadRequest, "empty_essay"},
	{domain.ErrMissingPrompt, http.StatusBadRequest, "missing_prompt"},
	{domain.ErrInvalidRubric, http.StatusBadRequest, "invalid_rubric"},
	{domain.ErrVectorDimMismatch, http.StatusBadRequest, "vector_dim_mismatch"},
	{domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"},
	{domain.ErrJudgmentUnavailable, http.StatusBadGateway, "judgment_unavailable"},
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range statusMapping {
		if errors.Is(err, m.sentinel) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	logger.FromContext(r.Context()).Error("unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal", "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}
