package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OldStager01/network-forecaster/api"
	"github.com/OldStager01/network-forecaster/internal/cache"
	"github.com/OldStager01/network-forecaster/internal/collector"
	"github.com/OldStager01/network-forecaster/internal/events"
	"github.com/OldStager01/network-forecaster/internal/forecast"
	"github.com/OldStager01/network-forecaster/internal/ingest"
	"github.com/OldStager01/network-forecaster/internal/logger"
	"github.com/OldStager01/network-forecaster/internal/metrics"
	"github.com/OldStager01/network-forecaster/internal/retention"
	"github.com/OldStager01/network-forecaster/pkg/config"
	"github.com/OldStager01/network-forecaster/pkg/database"
	"github.com/OldStager01/network-forecaster/pkg/database/queries"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	db, err := database.New(cfg.Database.ToDBConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	logger.Info("Database connection established")

	if *migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		logger.Info("Running database migrations")
		migrator := database.NewMigrator(db)
		if err := migrator.Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations completed successfully")
		return nil
	}

	// Repositories
	sampleRepo := queries.NewSampleRepository(db.DB)
	deviceRepo := queries.NewDeviceRepository(db.DB)
	predictionRepo := queries.NewPredictionRepository(db.DB)

	// Event bus
	eventBus := events.NewEventBus(cfg.Events.BufferSize)
	defer eventBus.Close()
	publisher := events.NewPublisher(eventBus)

	// Redis cache (optional)
	readCache, err := cache.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to set up cache: %w", err)
	}
	defer readCache.Close()

	// Ingest path
	ingestSvc := ingest.NewService(sampleRepo, deviceRepo, publisher, readCache)

	// Forecasting
	forecastClient := forecast.NewClient(cfg.Forecast)
	forecastSvc := forecast.NewService(forecast.ServiceConfig{
		DefaultHorizon: cfg.Forecast.DefaultHorizon,
	}, forecastClient, sampleRepo, predictionRepo, publisher)

	// Local collectors
	var manager *collector.Manager
	if cfg.Collector.Enabled {
		manager = collector.NewManager(collector.ManagerConfig{
			Interval:     cfg.Collector.Interval,
			ErrorBackoff: cfg.Collector.ErrorBackoff,
		}, ingestSvc)

		if cfg.Collector.Simulated.Enabled {
			manager.Register(collector.NewSimulatedCollector(collector.SimulatedConfig{
				Devices:  cfg.Collector.Simulated.Devices,
				Variance: cfg.Collector.Simulated.Variance,
			}))
		}
		if cfg.Collector.Ping.Enabled {
			manager.Register(collector.NewPingCollector(collector.PingConfig{
				Targets: cfg.Collector.Ping.Targets,
				Timeout: cfg.Collector.Ping.Timeout,
			}))
		}

		if err := manager.Start(); err != nil {
			return fmt.Errorf("failed to start collectors: %w", err)
		}
		defer manager.Stop()
	}

	// MQTT ingest (optional)
	if cfg.MQTT.Enabled {
		bridge, err := ingest.NewMQTTBridge(cfg.MQTT, ingestSvc)
		if err != nil {
			return fmt.Errorf("failed to start MQTT bridge: %w", err)
		}
		defer bridge.Close()
	}

	// Retention
	if cfg.Retention.Enabled {
		retentionSvc := retention.NewService(cfg.Retention, sampleRepo, predictionRepo)
		retentionSvc.Start()
		defer retentionSvc.Stop()
	}

	// Ops metrics endpoint
	if cfg.Metrics.Enabled {
		metrics.StartServer(cfg.Metrics.Port)
	}

	server := api.NewServer(*cfg, db, api.Deps{
		IngestService:   ingestSvc,
		ForecastService: forecastSvc,
		EventBus:        eventBus,
		Cache:           readCache,
	})

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Infof("API server listening on port %d", cfg.API.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	shutdownTimeout := cfg.App.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}
