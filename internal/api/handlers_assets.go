package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/service"
	"github.com/portfolio-dashboard/internal/settings"
	"github.com/portfolio-dashboard/internal/types"
)

// handleListManualAssets handles GET /api/manual-assets
func (s *Server) handleListManualAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.services.ManualAssets.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, assets)
}

// handleCreateManualAsset handles POST /api/manual-assets
func (s *Server) handleCreateManualAsset(w http.ResponseWriter, r *http.Request) {
	var req service.ManualAssetInput
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	asset, err := s.services.ManualAssets.Create(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, asset)
}

// handleUpdateManualAsset handles PUT /api/manual-assets/{id}
func (s *Server) handleUpdateManualAsset(w http.ResponseWriter, r *http.Request) {
	var req service.ManualAssetInput
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	asset, err := s.services.ManualAssets.Update(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, asset)
}

// handleDeleteManualAsset handles DELETE /api/manual-assets/{id}
func (s *Server) handleDeleteManualAsset(w http.ResponseWriter, r *http.Request) {
	if err := s.services.ManualAssets.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListWallets handles GET /api/wallets
func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.services.Wallets.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, wallets)
}

// handleCreateWallet handles POST /api/wallets
func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req service.CreateWalletInput
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	wallet, err := s.services.Wallets.Create(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, wallet)
}

// handleDeleteWallet handles DELETE /api/wallets/{id}
func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Wallets.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleAddToken handles POST /api/wallets/{id}/allowlist
func (s *Server) handleAddToken(w http.ResponseWriter, r *http.Request) {
	var req service.AddTokenInput
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	wallet, err := s.services.Wallets.AddToken(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, wallet)
}

// handleRemoveToken handles DELETE /api/wallets/{id}/allowlist?tokenId=&type=EVM|SOL
func (s *Server) handleRemoveToken(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	tokenID := query.Get("tokenId")
	if tokenID == "" {
		respondError(w, r, apperrors.NewInvalidParameterError("tokenId", "is required"))
		return
	}
	chainType := types.ChainType(strings.ToUpper(query.Get("type")))

	if err := s.services.Wallets.RemoveToken(r.Context(), mux.Vars(r)["id"], tokenID, chainType); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetSettings handles GET /api/settings - defaults merged with stored overrides
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	resolved, err := s.services.Settings.Resolve(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, resolved)
}

// handleUpdateSettings handles PUT /api/settings
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settings.Overrides
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	resolved, err := s.services.Settings.Update(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, resolved)
}

// handleListJournal handles GET /api/journal-entries
func (s *Server) handleListJournal(w http.ResponseWriter, r *http.Request) {
	entries, err := s.services.Journal.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, entries)
}

// handleCreateJournal handles POST /api/journal-entries
func (s *Server) handleCreateJournal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssetName string `json:"assetName"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	entry, err := s.services.Journal.Create(r.Context(), req.AssetName)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}

// handleDeleteJournal handles DELETE /api/journal-entries/{id}
func (s *Server) handleDeleteJournal(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Journal.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
