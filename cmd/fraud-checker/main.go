package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikey/llm-fraud-checker/internal/adapters/tesseract"
	"github.com/mikey/llm-fraud-checker/internal/config"
	"github.com/mikey/llm-fraud-checker/internal/core"
	"github.com/mikey/llm-fraud-checker/internal/di"
	"github.com/mikey/llm-fraud-checker/internal/ports"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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
	cfg *config.Config,
	logger *zap.Logger,
	frontends []ports.Frontend,
	backend *tesseract.Backend,
	cacheRepo core.CacheRepository,
) error {
	defer logger.Sync()

	// Start the front-ends
	for _, f := range frontends {
		if err := f.Start(); err != nil {
			logger.Error("Failed to start front-end", zap.Error(err))
			return err
		}
	}

	metricsServer := startMetricsServer(cfg.GetAPI().MetricsAddress, logger)

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	for _, f := range frontends {
		if err := f.Stop(); err != nil {
			logger.Error("Failed to stop front-end", zap.Error(err))
		}
	}

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Error("Failed to stop metrics server", zap.Error(err))
		}
		cancel()
	}

	// Close any resources that need closing
	if err := backend.Close(); err != nil {
		logger.Error("Failed to close OCR backend", zap.Error(err))
	}
	if closer, ok := cacheRepo.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close cache", zap.Error(err))
		}
	}

	logger.Info("Shutdown complete")
	return nil
}

// startMetricsServer exposes /metrics on a dedicated listener. An empty
// address disables it.
func startMetricsServer(addr string, logger *zap.Logger) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Info("Starting metrics server", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	return server
}
