package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/OldStager01/network-forecaster/internal/collector"
	"github.com/OldStager01/network-forecaster/internal/logger"
	"github.com/OldStager01/network-forecaster/pkg/client"
	"github.com/OldStager01/network-forecaster/pkg/models"
)

// remoteSink pushes collected samples to the forecaster API. Conflicts
// mean the sample was already delivered, so replays are harmless.
type remoteSink struct {
	api *client.Client
}

func (s *remoteSink) IngestBatch(ctx context.Context, samples []models.MetricSample) (int, error) {
	stored := 0
	for i := range samples {
		err := s.api.PushSample(ctx, &samples[i])
		if err == nil {
			stored++
			continue
		}
		if errors.Is(err, client.ErrConflict) {
			continue
		}
		return stored, err
	}
	return stored, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	serverURL := flag.String("server", "http://localhost:8080", "forecaster API base URL")
	username := flag.String("username", "", "API username")
	password := flag.String("password", "", "API password")
	interval := flag.Duration("interval", 30*time.Second, "collection interval")
	pingTargets := flag.String("ping-targets", "8.8.8.8,1.1.1.1", "comma-separated ping targets")
	simulate := flag.Bool("simulate", false, "emit simulated readings instead of ping")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "production")
	logger.Infof("Agent starting, reporting to %s every %s", *serverURL, *interval)

	api := client.New(client.Config{
		BaseURL: *serverURL,
		Retries: 2,
	})

	if *username != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := api.Login(ctx, *username, *password)
		cancel()
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		logger.Infof("Authenticated as %s", *username)
	}

	manager := collector.NewManager(collector.ManagerConfig{
		Interval: *interval,
	}, &remoteSink{api: api})

	if *simulate {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "agent"
		}
		manager.Register(collector.NewSimulatedCollector(collector.SimulatedConfig{
			Devices: []string{hostname},
		}))
	} else {
		manager.Register(collector.NewPingCollector(collector.PingConfig{
			Targets: strings.Split(*pingTargets, ","),
		}))
	}

	if err := manager.Start(); err != nil {
		return fmt.Errorf("failed to start collectors: %w", err)
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdownChan
	logger.Infof("Received signal %v, shutting down", sig)

	manager.Stop()
	logger.Info("Agent stopped")
	return nil
}
