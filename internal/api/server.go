// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/portfolio-dashboard/internal/analytics"
	"github.com/portfolio-dashboard/internal/config"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/service"
	"github.com/portfolio-dashboard/internal/settings"
	"github.com/portfolio-dashboard/internal/types"
)

// Service interfaces for dependency injection and testing

// PortfolioServiceInterface defines the valuation operations
type PortfolioServiceInterface interface {
	Calculate(ctx context.Context) (*models.ValuationResult, error)
	Refresh(ctx context.Context) (*models.ValuationResult, error)
}

// SnapshotServiceInterface defines the snapshot history operations
type SnapshotServiceInterface interface {
	List(ctx context.Context, input service.ListSnapshotsInput) (*service.SnapshotPage, error)
	Get(ctx context.Context, id string) (*models.Snapshot, error)
	Delete(ctx context.Context, id string) error
	Import(ctx context.Context, input service.ImportSnapshotsInput) (*service.ImportResult, error)
}

// AnalyticsServiceInterface defines the derived views over the latest snapshot
type AnalyticsServiceInterface interface {
	Liquidity(ctx context.Context, monthlyIncome float64) (*service.LiquidityView, error)
	Exposures(ctx context.Context) (*service.ExposureView, error)
	Analytics(ctx context.Context, r types.TimeRange) (*analytics.Report, error)
	HealthScores(ctx context.Context) (*service.HealthView, error)
}

// BriefServiceInterface defines the brief operations
type BriefServiceInterface interface {
	Generate(ctx context.Context, reportType types.ReportType) (*models.Brief, error)
	List(ctx context.Context) ([]models.Brief, error)
	Get(ctx context.Context, id string) (*models.Brief, error)
	Delete(ctx context.Context, id string) error
	Markdown(ctx context.Context, format service.MarkdownFormat) (string, error)
}

// ManualAssetServiceInterface defines the manual asset operations
type ManualAssetServiceInterface interface {
	List(ctx context.Context) ([]models.ManualAsset, error)
	Create(ctx context.Context, input service.ManualAssetInput) (*models.ManualAsset, error)
	Update(ctx context.Context, id string, input service.ManualAssetInput) (*models.ManualAsset, error)
	Delete(ctx context.Context, id string) error
}

// WalletServiceInterface defines the wallet and allowlist operations
type WalletServiceInterface interface {
	List(ctx context.Context) ([]models.Wallet, error)
	Create(ctx context.Context, input service.CreateWalletInput) (*models.Wallet, error)
	Delete(ctx context.Context, id string) error
	AddToken(ctx context.Context, walletID string, input service.AddTokenInput) (*models.Wallet, error)
	RemoveToken(ctx context.Context, walletID, tokenID string, chainType types.ChainType) error
}

// SettingsServiceInterface defines the settings operations
type SettingsServiceInterface interface {
	Resolve(ctx context.Context) (settings.AppSettings, error)
	Update(ctx context.Context, overrides settings.Overrides) (settings.AppSettings, error)
}

// JournalServiceInterface defines the journal operations
type JournalServiceInterface interface {
	List(ctx context.Context) ([]models.JournalEntry, error)
	Create(ctx context.Context, assetName string) (*models.JournalEntry, error)
	Delete(ctx context.Context, id string) error
}

// HealthCheck probes one dependency for the health endpoint
type HealthCheck func(ctx context.Context) error

// Services bundles the services the API dispatches to
type Services struct {
	Portfolio    PortfolioServiceInterface
	Snapshots    SnapshotServiceInterface
	Analytics    AnalyticsServiceInterface
	Briefs       BriefServiceInterface
	ManualAssets ManualAssetServiceInterface
	Wallets      WalletServiceInterface
	Settings     SettingsServiceInterface
	Journal      JournalServiceInterface
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	handler    http.Handler
	httpServer *http.Server
	services   Services
	metrics    *Metrics
	checks     map[string]HealthCheck
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
}

// NewServerConfig copies the server section of the application config
func NewServerConfig(cfg config.ServerConfig) *ServerConfig {
	return &ServerConfig{
		Host:            cfg.Host,
		Port:            cfg.Port,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
	}
}

// NewServer creates a new API server instance. checks may be nil.
func NewServer(cfg *ServerConfig, services Services, metrics *Metrics, checks map[string]HealthCheck) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	s := &Server{
		router:   mux.NewRouter(),
		services: services,
		metrics:  metrics,
		checks:   checks,
		config:   cfg,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RateLimitRPS, s.config.RateLimitBurst)

	// order matters: the logger must be in the context before anything can fail
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(s.metrics.Middleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	// CORS wraps the router so preflight requests never reach method matching
	s.handler = CORSMiddleware(s.router)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Valuation
	api.HandleFunc("/calculate", s.handleCalculate).Methods("GET")
	api.HandleFunc("/refresh", s.handleRefresh).Methods("POST")

	// Snapshot history
	api.HandleFunc("/snapshots", s.handleListSnapshots).Methods("GET")
	api.HandleFunc("/snapshots/import", s.handleImportSnapshots).Methods("POST")
	api.HandleFunc("/snapshots/{id}", s.handleGetSnapshot).Methods("GET")
	api.HandleFunc("/snapshots/{id}", s.handleDeleteSnapshot).Methods("DELETE")

	// Derived views
	api.HandleFunc("/liquidity", s.handleLiquidity).Methods("GET")
	api.HandleFunc("/exposures", s.handleExposures).Methods("GET")
	api.HandleFunc("/analytics", s.handleAnalytics).Methods("GET")
	api.HandleFunc("/health-scores", s.handleHealthScores).Methods("GET")

	// Briefs
	api.HandleFunc("/briefs", s.handleListBriefs).Methods("GET")
	api.HandleFunc("/briefs", s.handleGenerateBrief).Methods("POST")
	api.HandleFunc("/briefs/markdown", s.handleBriefMarkdown).Methods("GET")
	api.HandleFunc("/briefs/{id}", s.handleGetBrief).Methods("GET")
	api.HandleFunc("/briefs/{id}", s.handleDeleteBrief).Methods("DELETE")

	// Manual assets
	api.HandleFunc("/manual-assets", s.handleListManualAssets).Methods("GET")
	api.HandleFunc("/manual-assets", s.handleCreateManualAsset).Methods("POST")
	api.HandleFunc("/manual-assets/{id}", s.handleUpdateManualAsset).Methods("PUT")
	api.HandleFunc("/manual-assets/{id}", s.handleDeleteManualAsset).Methods("DELETE")

	// Wallets and token allowlists
	api.HandleFunc("/wallets", s.handleListWallets).Methods("GET")
	api.HandleFunc("/wallets", s.handleCreateWallet).Methods("POST")
	api.HandleFunc("/wallets/{id}", s.handleDeleteWallet).Methods("DELETE")
	api.HandleFunc("/wallets/{id}/allowlist", s.handleAddToken).Methods("POST")
	api.HandleFunc("/wallets/{id}/allowlist", s.handleRemoveToken).Methods("DELETE")

	// Settings
	api.HandleFunc("/settings", s.handleGetSettings).Methods("GET")
	api.HandleFunc("/settings", s.handleUpdateSettings).Methods("PUT")

	// Journal
	api.HandleFunc("/journal-entries", s.handleListJournal).Methods("GET")
	api.HandleFunc("/journal-entries", s.handleCreateJournal).Methods("POST")
	api.HandleFunc("/journal-entries/{id}", s.handleDeleteJournal).Methods("DELETE")
}

// Handler exposes the full middleware chain for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.handler
}

// handleHealth reports liveness and the state of each registered dependency
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	deps := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			logging.FromContext(r.Context()).WithError(err).WithField("dependency", name).Warn("Health check failed")
			deps[name] = "unhealthy"
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "healthy"
	}

	respondJSON(w, code, map[string]interface{}{
		"status":       status,
		"service":      "portfolio-dashboard",
		"dependencies": deps,
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
