// Package main provides the API server entry point for the portfolio dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/portfolio-dashboard/internal/api"
	"github.com/portfolio-dashboard/internal/app"
	"github.com/portfolio-dashboard/internal/config"
	"github.com/portfolio-dashboard/internal/logging"
)

func main() {
	migrate := flag.Bool("migrate", false, "Apply pending migrations before starting")
	schedule := flag.Bool("schedule", true, "Run the snapshot scheduler in this process")
	flag.Parse()

	fmt.Println("Portfolio Dashboard API Server")
	log.Println("Server starting...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Logging initialized")

	ctx, cancel := context.WithCancel(logging.WithLogger(context.Background(), logger))
	defer cancel()

	application, err := app.New(ctx, cfg, app.Options{Migrate: *migrate})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}
	defer application.Close()

	logger.Info("Services initialized")

	if *schedule && cfg.Snapshot.ScheduleInterval > 0 {
		scheduler := application.Scheduler()
		if err := scheduler.Start(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to start snapshot scheduler")
		}
		defer scheduler.Stop()
	}

	server := api.NewServer(
		api.NewServerConfig(cfg.Server),
		application.APIServices(),
		api.NewMetrics(),
		application.HealthChecks(),
	)

	serverErrors := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.WithError(err).Error("Server failed")
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}
