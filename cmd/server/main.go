package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/plutusedu/webisync/internal/clean"
	"github.com/plutusedu/webisync/internal/config"
	"github.com/plutusedu/webisync/internal/engage"
	"github.com/plutusedu/webisync/internal/logging"
	"github.com/plutusedu/webisync/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"datetime_threshold", cfg.Pipeline.DatetimeThreshold,
		"dispatch_mode", cfg.Dispatch.Mode,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Load business mappings (category rules, conductor roster)
	enrichment, err := config.LoadEnrichment(cfg.Pipeline.WorkflowFile)
	if err != nil {
		slog.Error("failed to load workflow mappings", "error", err)
		os.Exit(1)
	}
	slog.Info("workflow mappings loaded",
		"category_rules", len(enrichment.Categories),
		"conductor_overrides", len(enrichment.Conductors),
		"approved_conductors", len(enrichment.ApprovedConductors),
	)

	pipeline := &web.Pipeline{Options: clean.Options{
		Enrichment:        enrichment,
		DatetimeThreshold: cfg.Pipeline.DatetimeThreshold,
	}}

	// WebEngage delivery is optional; without credentials the dispatch
	// endpoints answer 503 and everything else works.
	var dispatcher *engage.Dispatcher
	if cfg.DispatchConfigured() {
		client, err := engage.NewClient(engage.ClientConfig{
			BaseURL:     cfg.Engage.BaseURL,
			LicenseCode: cfg.Engage.LicenseCode,
			APIKey:      cfg.Engage.APIKey,
			Timeout:     cfg.Engage.Timeout,
		})
		if err != nil {
			slog.Error("failed to create WebEngage client", "error", err)
			os.Exit(1)
		}
		dispatcher = engage.NewDispatcher(client, engage.DispatcherConfig{
			Mode:              engage.Mode(cfg.Dispatch.Mode),
			RequestsPerSecond: cfg.Dispatch.RequestsPerSecond,
			MaxAttempts:       cfg.Dispatch.MaxAttempts,
			BackoffBase:       cfg.Dispatch.BackoffBase,
			BatchSize:         cfg.Dispatch.BatchSize,
			MinBatchSize:      cfg.Dispatch.MinBatchSize,
			Cooldown:          cfg.Dispatch.Cooldown,
		})
		slog.Info("dispatch configured", "license", cfg.Engage.LicenseCode, "mode", cfg.Dispatch.Mode)
	} else {
		slog.Info("dispatch not configured, endpoints disabled")
	}

	server := web.NewServer(cfg, pipeline, dispatcher)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
