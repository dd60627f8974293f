package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/triage-risk-service/internal/api"
	"github.com/triage-risk-service/internal/config"
	"github.com/triage-risk-service/internal/logging"
	"github.com/triage-risk-service/internal/setup"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := setup.NewRuntime(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialise runtime")
	}
	defer rt.Close()

	server := api.NewServer(api.Config{
		Server:   cfg.Server,
		Security: cfg.Security,
		Debug:    configManager.IsDevelopment() && cfg.Logging.Level == "debug",
	}, rt.Dependencies(), logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.WithField("signal", sig.String()).Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
	}).Info("Starting triage risk service")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		rt.Close()
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
