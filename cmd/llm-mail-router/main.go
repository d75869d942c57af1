package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mikey/llm-mail-router/internal/adapters/ingress"
	"github.com/mikey/llm-mail-router/internal/core"
	"github.com/mikey/llm-mail-router/internal/di"
	"github.com/mikey/llm-mail-router/internal/sla"
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
	smtpIngress *ingress.SMTPIngress,
	scheduler *sla.Scheduler,
	oracle core.ClassificationOracle,
	decisions core.DecisionLog,
) error {
	defer logger.Sync()

	// Start the ingress
	if err := smtpIngress.Start(); err != nil {
		logger.Fatal("Failed to start SMTP ingress", zap.Error(err))
		return err
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	// Stop the ingress first so no new messages arrive
	if err := smtpIngress.Stop(); err != nil {
		logger.Error("Failed to stop SMTP ingress", zap.Error(err))
	}

	// Disarm all pending escalation timers
	scheduler.Stop()

	// Close any resources that need closing
	if closer, ok := oracle.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close oracle client", zap.Error(err))
		}
	}

	// Stop the decision log if needed
	if stopper, ok := decisions.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}
