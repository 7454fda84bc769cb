package api

import (
	"net/http"

	"github.com/portfolio-dashboard/internal/types"
)

// handleLiquidity handles GET /api/liquidity?monthlyIncome=
func (s *Server) handleLiquidity(w http.ResponseWriter, r *http.Request) {
	s.metrics.AnalyticsRequests.WithLabelValues("liquidity").Inc()

	income, err := queryFloat(r, "monthlyIncome")
	if err != nil {
		respondError(w, r, err)
		return
	}

	view, err := s.services.Analytics.Liquidity(r.Context(), income)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// handleExposures handles GET /api/exposures
func (s *Server) handleExposures(w http.ResponseWriter, r *http.Request) {
	s.metrics.AnalyticsRequests.WithLabelValues("exposures").Inc()

	view, err := s.services.Analytics.Exposures(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// handleAnalytics handles GET /api/analytics?range=
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	s.metrics.AnalyticsRequests.WithLabelValues("analytics").Inc()

	report, err := s.services.Analytics.Analytics(r.Context(), types.TimeRange(r.URL.Query().Get("range")))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// handleHealthScores handles GET /api/health-scores
func (s *Server) handleHealthScores(w http.ResponseWriter, r *http.Request) {
	s.metrics.AnalyticsRequests.WithLabelValues("health_scores").Inc()

	view, err := s.services.Analytics.HealthScores(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}
