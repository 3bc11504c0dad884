package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikey/phishshield/internal/adapters/smtpfilter"
	"github.com/mikey/phishshield/internal/config"
	"github.com/mikey/phishshield/internal/core"
	"github.com/mikey/phishshield/internal/di"
	"github.com/mikey/phishshield/internal/reputation"
	"github.com/mikey/phishshield/internal/server"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	cfg *config.Config,
	httpServer *server.Server,
	smtpFilter *smtpfilter.Filter,
	history core.ScanHistoryRepository,
	feedbackRepo core.FeedbackRepository,
	cache reputation.Cache,
) error {
	defer logger.Sync()

	httpServer.Start()

	smtpEnabled := cfg.GetBool("smtp.enabled")
	if smtpEnabled {
		if err := smtpFilter.Start(); err != nil {
			logger.Fatal("Failed to start SMTP filter", zap.Error(err))
			return err
		}
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to stop HTTP server", zap.Error(err))
	}

	if smtpEnabled {
		if err := smtpFilter.Stop(); err != nil {
			logger.Error("Failed to stop SMTP filter", zap.Error(err))
		}
	}

	// Close any resources that need closing
	if closer, ok := history.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close scan history store", zap.Error(err))
		}
	}
	if closer, ok := feedbackRepo.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close feedback log", zap.Error(err))
		}
	}
	if closer, ok := cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close reputation cache", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}
