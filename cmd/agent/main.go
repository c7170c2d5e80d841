// Package main provides the entry point for the deskpilot agent
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deskpilot/deskpilot/internal/client"
	"github.com/deskpilot/deskpilot/internal/config"
	"github.com/deskpilot/deskpilot/internal/gateway"
	"github.com/deskpilot/deskpilot/internal/health"
	"github.com/deskpilot/deskpilot/internal/providers"
	"github.com/deskpilot/deskpilot/internal/router"
	"github.com/deskpilot/deskpilot/internal/storage"
	"github.com/deskpilot/deskpilot/pkg/types"
	"github.com/deskpilot/deskpilot/pkg/utils"

	"github.com/sirupsen/logrus"
)

func main() {
	manager := config.NewManager()
	if err := manager.Load(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := manager.Get()
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	logger := utils.NewLogger(&cfg.Logging)

	// All components are wired explicitly here; health state lives in one
	// long-lived tracker so failure memory persists across requests.
	tracker := health.NewTracker(health.TrackerConfig{
		ErrorCeiling: cfg.Health.ErrorCeiling,
		Staleness:    cfg.Health.Staleness,
	})

	registry, err := providers.NewRegistry(cfg, tracker, logger)
	if err != nil {
		log.Fatalf("Failed to build provider registry: %v", err)
	}

	orchestrator := router.NewOrchestrator(
		router.Config{Budget: cfg.Routing.Budget},
		registry, tracker, logger,
	)

	var store *storage.Store
	if cfg.Storage.Enabled {
		store, err = storage.Open(cfg.Storage.Path, logger)
		if err != nil {
			logger.WithError(err).Warn("Call history disabled: database unavailable")
			store = nil
		}
	}

	facadeConfig := client.Config{}
	if cfg.Cache.Enabled {
		facadeConfig.CacheTTL = cfg.Cache.TTL
	}
	facade := client.New(facadeConfig, orchestrator, tracker, registry, store, logger)

	prober := health.NewProber(health.ProberConfig{
		Interval: cfg.Health.ProbeInterval,
		Timeout:  cfg.Health.ProbeTimeout,
	}, tracker, registry.Providers(), logger)
	prober.Start()

	// Only the log level is applied live. The provider set is fixed for the
	// process lifetime so health state stays meaningful.
	manager.Watch(func(updated *types.Config) {
		if level, err := logrus.ParseLevel(updated.Logging.Level); err == nil {
			logger.SetLevel(level)
		}
		logger.WithField("level", updated.Logging.Level).Info("Configuration reloaded")
	})

	gw := gateway.New(&cfg.Server, facade, store, logger)
	go func() {
		if err := gw.Start(); err != nil {
			log.Fatalf("Failed to start API server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	prober.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gw.Stop(ctx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}

	if store != nil {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close call history database")
		}
	}
}
