// Package main provides the snapshot worker entry point. With the "run" argument it takes
// one snapshot and exits; otherwise it keeps taking snapshots on the configured interval.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/portfolio-dashboard/internal/app"
	"github.com/portfolio-dashboard/internal/config"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/ratelimit"
)

func main() {
	fmt.Println("Portfolio Snapshot Worker")
	log.Println("Worker starting...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)
	logger := logging.GetGlobalLogger().Component("snapshot")

	ctx, cancel := context.WithCancel(logging.WithLogger(context.Background(), logger))
	defer cancel()

	application, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize application")
	}
	defer application.Close()

	// Check for one-time run mode
	if len(os.Args) > 1 && os.Args[1] == "run" {
		logger.Info("Running snapshot immediately...")
		result, err := application.Portfolio.Refresh(ratelimit.WithPriority(ctx, ratelimit.PriorityLow))
		if err != nil {
			logger.WithError(err).Error("Failed to create snapshot")
			application.Close()
			os.Exit(1)
		}
		logger.WithFields(map[string]interface{}{
			"snapshot_id": result.Snapshot.ID,
			"total_aud":   result.Snapshot.TotalAud,
		}).Info("Snapshot complete")
		return
	}

	logger.WithField("interval", cfg.Snapshot.ScheduleInterval.String()).Info("Starting snapshot scheduler...")
	scheduler := application.Scheduler()
	if err := scheduler.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to start snapshot scheduler")
	}

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down snapshot worker...")
	cancel()
	scheduler.Stop()
	logger.Info("Worker stopped")
}
