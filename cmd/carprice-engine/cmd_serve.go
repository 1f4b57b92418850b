package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/carprice-engine/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the artifacts and serve the form and JSON API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := setup(os.Stdout)
	if err != nil {
		return err
	}

	slog.Info("starting carprice-engine",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"artifact_source", cfg.Artifacts.Source,
	)

	// Artifacts must load before anything listens
	svc, err := loadService(cfg)
	if err != nil {
		slog.Error("failed to load artifacts", "error", err)
		return err
	}

	server := api.NewServer(cfg.Server, svc)
	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil {
			slog.Error("HTTP server error", "error", err)
			return err
		}
	case <-quit:
	}

	slog.Info("shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return err
	}

	slog.Info("carprice-engine stopped")
	return nil
}
