package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/llm-mail-agent/internal/config"
	"github.com/mikey/llm-mail-agent/internal/core"
	"github.com/mikey/llm-mail-agent/internal/di"
	"github.com/mikey/llm-mail-agent/internal/ports"
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
	agentRunner ports.AgentRunner,
	textgen core.TextGenerator,
	ctxStore core.ContextStore,
) error {
	defer logger.Sync()

	// Start the runner
	if err := agentRunner.Start(); err != nil {
		logger.Fatal("Failed to start runner", zap.Error(err))
		return err
	}

	// A single sweep finishes on its own
	if cfg.GetString("server.mode") == "once" {
		teardown(logger, textgen, ctxStore)
		logger.Info("Shutdown complete")
		return nil
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	// Stop the runner
	if err := agentRunner.Stop(); err != nil {
		logger.Error("Failed to stop runner", zap.Error(err))
	}

	teardown(logger, textgen, ctxStore)

	logger.Info("Shutdown complete")
	return nil
}

// teardown releases resources held by the injected dependencies
func teardown(logger *zap.Logger, textgen core.TextGenerator, ctxStore core.ContextStore) {
	// Close any resources that need closing
	if closer, ok := textgen.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}

	// Stop the store cleanup task if needed
	if stopper, ok := ctxStore.(interface{ Stop() }); ok {
		stopper.Stop()
	}
}
