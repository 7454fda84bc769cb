package api

import (
	"net/http"

	"github.com/gorilla/mux"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/service"
	"github.com/portfolio-dashboard/internal/types"
)

// handleCalculate handles GET /api/calculate - value the portfolio without storing it
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	result, err := s.services.Portfolio.Calculate(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleRefresh handles POST /api/refresh - value the portfolio and store a snapshot
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	result, err := s.services.Portfolio.Refresh(r.Context())
	if err != nil {
		if apperrors.Categorize(err).Code == types.CodeSnapshotTooRecent {
			s.metrics.RecordRefresh(RefreshTooRecent)
		} else {
			s.metrics.RecordRefresh(RefreshError)
		}
		respondError(w, r, err)
		return
	}

	s.metrics.RecordRefresh(RefreshCreated)
	if result.Snapshot != nil {
		logging.FromContext(r.Context()).
			WithField("snapshot_id", result.Snapshot.ID).
			WithField("total_aud", result.Snapshot.TotalAud).
			Info("Snapshot stored")
	}

	respondJSON(w, http.StatusCreated, result)
}

// handleListSnapshots handles GET /api/snapshots?range=&limit=&offset=
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		respondError(w, r, err)
		return
	}

	page, err := s.services.Snapshots.List(r.Context(), service.ListSnapshotsInput{
		Range:  types.TimeRange(r.URL.Query().Get("range")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

// handleGetSnapshot handles GET /api/snapshots/{id}
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.services.Snapshots.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// handleDeleteSnapshot handles DELETE /api/snapshots/{id}
func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Snapshots.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleImportSnapshots handles POST /api/snapshots/import - load historical totals
func (s *Server) handleImportSnapshots(w http.ResponseWriter, r *http.Request) {
	var req service.ImportSnapshotsInput
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.services.Snapshots.Import(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}
