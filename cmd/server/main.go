package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"readinglist/internal/app"
	"readinglist/internal/config"
	"readinglist/internal/handlers"
	"readinglist/internal/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Logging)
	appLogger := logger.Default()

	appLogger.Info("Starting reading list server on port %d (env: %s)", cfg.Port, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize application: %v", err)
		log.Fatalf("Failed to initialize application: %v", err)
	}
	a.Start(ctx)

	appLogger.Info("Initializing handlers")
	handler := handlers.NewHandler(a, appLogger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting HTTP server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start: %v", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Received shutdown signal, initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// End event streams first; Shutdown waits for active connections
	handler.Close()

	appLogger.Info("Shutting down HTTP server (timeout: 30s)")
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown: %v", err)
	}

	if err := a.Close(); err != nil {
		appLogger.Error("Failed to close application: %v", err)
		os.Exit(1)
	}
	appLogger.Info("Server shutdown completed successfully")
}
