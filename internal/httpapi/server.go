// Package httpapi exposes the migration pipeline over HTTP. Requests carry
// raw BPMN XML; responses are JSON documents and reports. When a store is
// configured, successful migrations are archived as runs.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/flowport/flowport/internal/engine"
	"github.com/flowport/flowport/internal/store"
	"github.com/flowport/flowport/pkg/schema"
)

// maxBodyBytes caps uploaded BPMN documents at 10 MiB.
const maxBodyBytes = 10 << 20

// Server wires the pipeline and an optional run archive into an HTTP handler.
type Server struct {
	pipeline *engine.Pipeline
	store    store.Store
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithStore enables run archiving on successful migrations.
func WithStore(s store.Store) Option {
	return func(srv *Server) { srv.store = s }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(srv *Server) { srv.logger = l }
}

// NewServer builds the HTTP API around a pipeline.
func NewServer(p *engine.Pipeline, opts ...Option) *Server {
	srv := &Server{pipeline: p, logger: slog.Default()}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Router returns the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/migrate", s.handleMigrate)
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Delete("/runs/{id}", s.handleDeleteRun)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// migrateResponse is the envelope returned by POST /v1/migrate.
type migrateResponse struct {
	RunID    string                         `json:"run_id,omitempty"`
	Document *schema.TargetWorkflowDocument `json:"document"`
	Report   *schema.MigrationReport        `json:"report"`
}

func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readBody(w, r)
	if !ok {
		return
	}

	res, err := s.pipeline.Migrate(r.Context(), raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := migrateResponse{Document: res.Document, Report: res.Report}
	if s.store != nil {
		run := &store.Run{
			ID:               uuid.NewString(),
			ProcessID:        res.Report.ProcessID,
			SourceName:       r.Header.Get("X-Source-Name"),
			FeasibilityScore: res.Report.FeasibilityScore,
			Complexity:       res.Report.ComplexityLevel,
			Document:         res.Document,
			Report:           res.Report,
		}
		if err := s.store.SaveRun(r.Context(), run); err != nil {
			s.logger.ErrorContext(r.Context(), "archive run failed", "error", err)
		} else {
			resp.RunID = run.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readBody(w, r)
	if !ok {
		return
	}

	report, err := s.pipeline.Analyze(r.Context(), raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, schema.NewError(schema.ErrCodeStore, "run archive is not configured"))
		return
	}
	filter := store.RunFilter{
		ProcessID:  r.URL.Query().Get("process_id"),
		Complexity: schema.ComplexityLevel(r.URL.Query().Get("complexity")),
	}
	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, schema.NewError(schema.ErrCodeStore, "run archive is not configured"))
		return
	}
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, schema.NewError(schema.ErrCodeStore, "run archive is not configured"))
		return
	}
	if err := s.store.DeleteRun(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, schema.NewErrorf(schema.ErrCodeMalformedInput, "read request body: %v", err))
		return nil, false
	}
	if len(raw) == 0 {
		s.writeError(w, r, schema.NewError(schema.ErrCodeMalformedInput, "request body is empty"))
		return nil, false
	}
	return raw, true
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Code: "INTERNAL_ERROR", Message: "internal error"}
	status := http.StatusInternalServerError

	var ferr *schema.FlowportError
	if errors.As(err, &ferr) {
		body.Code = ferr.Code
		body.Message = ferr.Message
		body.Details = ferr.Details
		status = statusForCode(ferr.Code)
	} else {
		s.logger.ErrorContext(r.Context(), "unhandled error", "error", err)
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}

func statusForCode(code string) int {
	switch code {
	case schema.ErrCodeMalformedInput, schema.ErrCodeDanglingReference, schema.ErrCodeStructuralViolation, schema.ErrCodeValidation:
		return http.StatusBadRequest
	case schema.ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
