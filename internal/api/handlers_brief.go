package api

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/portfolio-dashboard/internal/service"
	"github.com/portfolio-dashboard/internal/types"
)

// handleListBriefs handles GET /api/briefs
func (s *Server) handleListBriefs(w http.ResponseWriter, r *http.Request) {
	briefs, err := s.services.Briefs.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, briefs)
}

// handleGenerateBrief handles POST /api/briefs - an empty body produces a weekly brief
func (s *Server) handleGenerateBrief(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReportType types.ReportType `json:"reportType"`
	}
	if err := parseOptionalJSONBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	brief, err := s.services.Briefs.Generate(r.Context(), req.ReportType)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, brief)
}

// handleGetBrief handles GET /api/briefs/{id}
func (s *Server) handleGetBrief(w http.ResponseWriter, r *http.Request) {
	brief, err := s.services.Briefs.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, brief)
}

// handleDeleteBrief handles DELETE /api/briefs/{id}
func (s *Server) handleDeleteBrief(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Briefs.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleBriefMarkdown handles GET /api/briefs/markdown?format=md|html
func (s *Server) handleBriefMarkdown(w http.ResponseWriter, r *http.Request) {
	format := service.MarkdownFormat(r.URL.Query().Get("format"))

	body, err := s.services.Briefs.Markdown(r.Context(), format)
	if err != nil {
		respondError(w, r, err)
		return
	}

	contentType := "text/markdown; charset=utf-8"
	if format == service.FormatHTML {
		contentType = "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body) // nolint:errcheck // headers already sent
}
