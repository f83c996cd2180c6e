// Package server exposes the application over an HTTP JSON API.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/compare"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/notes"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/scrape"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/session"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/storage"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/summarizer"
)

const maxRequestBody = 1 << 20

// Server wires the orchestrator, session store, material repository and
// comparison engine into HTTP handlers.
type Server struct {
	sessions     *session.Store
	repo         storage.Repository
	scraper      *scrape.Orchestrator
	comparer     *compare.Engine
	models       []string
	defaultModel string
	logger       *slog.Logger
}

// New creates a server. models lists the language models usable with the
// configured backend keys.
func New(sessions *session.Store, repo storage.Repository, scraper *scrape.Orchestrator, comparer *compare.Engine, models []string, defaultModel string, logger *slog.Logger) *Server {
	return &Server{
		sessions:     sessions,
		repo:         repo,
		scraper:      scraper,
		comparer:     comparer,
		models:       models,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/scrape", s.handleScrape)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleSessionGet)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleSessionClear)
	mux.HandleFunc("PUT /api/sessions/{id}/notes", s.handleNotesUpdate)
	mux.HandleFunc("GET /api/sessions/{id}/notes/export", s.handleNotesExport)

	mux.HandleFunc("POST /api/materials", s.handleMaterialSave)
	mux.HandleFunc("GET /api/materials", s.handleMaterialList)
	mux.HandleFunc("GET /api/materials/{id}", s.handleMaterialGet)
	mux.HandleFunc("DELETE /api/materials/{id}", s.handleMaterialDelete)

	mux.HandleFunc("POST /api/compare", s.handleCompare)
	mux.HandleFunc("POST /api/reports", s.handleReportSave)

	mux.HandleFunc("GET /api/models", s.handleModels)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start))
	})
}

type scrapeRequest struct {
	SessionID string           `json:"session_id"`
	Filter    model.FilterSpec `json:"filter"`
	Summarize bool             `json:"summarize"`
	Model     string           `json:"model,omitempty"`
	Vision    bool             `json:"vision,omitempty"`
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	state, err := s.scraper.Run(r.Context(), req.SessionID, req.Filter, scrape.Options{
		Summarize: req.Summarize,
		AI:        summarizer.Options{Model: req.Model, VisionEnabled: req.Vision},
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	state, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		s.writeErrorMessage(w, http.StatusNotFound, "session expired or not found")
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

type notesUpdateRequest struct {
	Notes     *string  `json:"notes,omitempty"`
	Selection []string `json:"selection,omitempty"`
}

func (s *Server) handleNotesUpdate(w http.ResponseWriter, r *http.Request) {
	var req notesUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}

	id := r.PathValue("id")
	state, ok := s.sessions.Get(id)
	if !ok {
		s.writeErrorMessage(w, http.StatusNotFound, "session expired or not found")
		return
	}
	if req.Notes != nil {
		state.Notes = *req.Notes
	}
	if req.Selection != nil {
		// Selection may only reference items scraped into this session.
		if unknown := unknownSelection(req.Selection, state.RawItems); len(unknown) > 0 {
			s.writeErrorMessage(w, http.StatusBadRequest,
				"selection references unknown items: "+strings.Join(unknown, ", "))
			return
		}
		state.Selection = req.Selection
	}
	state.UpdatedAt = time.Now().UTC()
	s.sessions.Put(id, state)
	s.writeJSON(w, http.StatusOK, state)
}

func unknownSelection(selection []string, items []model.RawItem) []string {
	known := make(map[string]bool, len(items))
	for _, item := range items {
		known[item.PlatformID] = true
	}
	var unknown []string
	for _, id := range selection {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	return unknown
}

func (s *Server) handleNotesExport(w http.ResponseWriter, r *http.Request) {
	state, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		s.writeErrorMessage(w, http.StatusNotFound, "session expired or not found")
		return
	}

	filename := notes.Filename(state, time.Now())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write([]byte(notes.Export(state)))
}

type materialSaveRequest struct {
	SessionID   string   `json:"session_id"`
	ProjectName string   `json:"project_name"`
	Tags        []string `json:"tags,omitempty"`
}

func (s *Server) handleMaterialSave(w http.ResponseWriter, r *http.Request) {
	var req materialSaveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ProjectName == "" {
		s.writeErrorMessage(w, http.StatusBadRequest, "project_name is required")
		return
	}

	state, ok := s.sessions.Get(req.SessionID)
	if !ok {
		s.writeErrorMessage(w, http.StatusNotFound, "session expired or not found")
		return
	}

	material := model.NewMaterialFromSession(state, req.ProjectName, req.Tags)
	if err := s.repo.Save(r.Context(), &material); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, material)
}

func (s *Server) handleMaterialList(w http.ResponseWriter, r *http.Request) {
	list, err := s.repo.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []model.MaterialSummary{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleMaterialGet(w http.ResponseWriter, r *http.Request) {
	material, err := s.repo.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, material)
}

func (s *Server) handleMaterialDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type compareRequest struct {
	MaterialIDs []string `json:"material_ids"`
	Model       string   `json:"model,omitempty"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !s.decode(w, r, &req) {
		return
	}

	report, err := s.comparer.Compare(r.Context(), req.MaterialIDs, summarizer.Options{Model: req.Model})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

type reportSaveRequest struct {
	ProjectName string   `json:"project_name"`
	Tags        []string `json:"tags,omitempty"`
	ReportText  string   `json:"report_text"`
	MaterialIDs []string `json:"material_ids,omitempty"`
	ModelUsed   string   `json:"model_used,omitempty"`
}

func (s *Server) handleReportSave(w http.ResponseWriter, r *http.Request) {
	var req reportSaveRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ProjectName == "" {
		s.writeErrorMessage(w, http.StatusBadRequest, "project_name is required")
		return
	}
	if req.ReportText == "" {
		s.writeErrorMessage(w, http.StatusBadRequest, "report_text is required")
		return
	}

	report := &model.ComparisonReport{
		MaterialIDs: req.MaterialIDs,
		ReportText:  req.ReportText,
		ModelUsed:   req.ModelUsed,
	}
	material, err := s.comparer.SaveReport(r.Context(), report, req.ProjectName, req.Tags)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, material)
}

type modelsResponse struct {
	Models       []string `json:"models"`
	DefaultModel string   `json:"default_model"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models := s.models
	if models == nil {
		models = []string{}
	}
	s.writeJSON(w, http.StatusOK, modelsResponse{Models: models, DefaultModel: s.defaultModel})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil {
		s.writeErrorMessage(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the domain error taxonomy to HTTP statuses. Caller
// mistakes are 4xx, upstream failures 502, our own storage 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, model.ErrInvalidFilter), errors.Is(err, model.ErrInsufficientMaterials):
		status = http.StatusBadRequest
	case model.IsNotFound(err):
		status = http.StatusNotFound
	case isFetchError(err), isSummarizerError(err):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeErrorMessage(w, status, err.Error())
}

func isFetchError(err error) bool {
	var fe *model.FetchError
	return errors.As(err, &fe)
}

func isSummarizerError(err error) bool {
	var se *model.SummarizerError
	return errors.As(err, &se)
}

func (s *Server) writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}
