package retention

import (
	"context"
	"sync"
	"time"

	"github.com/OldStager01/network-forecaster/internal/logger"
	"github.com/OldStager01/network-forecaster/internal/metrics"
	"github.com/OldStager01/network-forecaster/pkg/config"
	"github.com/OldStager01/network-forecaster/pkg/database/queries"
)

// Service purges samples and predictions past their retention windows
// on a fixed schedule.
type Service struct {
	config      config.RetentionConfig
	samples     *queries.SampleRepository
	predictions *queries.PredictionRepository
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func NewService(cfg config.RetentionConfig, samples *queries.SampleRepository, predictions *queries.PredictionRepository) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.SampleDays <= 0 {
		cfg.SampleDays = 30
	}
	if cfg.PredictionDays <= 0 {
		cfg.PredictionDays = 7
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		config:      cfg,
		samples:     samples,
		predictions: predictions,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *Service) Start() {
	s.wg.Add(1)
	go s.run()
	logger.Infof("Retention service started (samples %dd, predictions %dd, every %s)",
		s.config.SampleDays, s.config.PredictionDays, s.config.Interval)
}

func (s *Service) Stop() {
	s.cancel()
	s.wg.Wait()
	logger.Info("Retention service stopped")
}

func (s *Service) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.purge()
		}
	}
}

func (s *Service) purge() {
	ctx, cancel := context.WithTimeout(s.ctx, time.Minute)
	defer cancel()

	now := time.Now().UTC()

	sampleCutoff := now.AddDate(0, 0, -s.config.SampleDays)
	removed, err := s.samples.DeleteOlderThan(ctx, sampleCutoff)
	if err != nil {
		logger.Errorf("Sample retention purge failed: %v", err)
	} else if removed > 0 {
		metrics.Get().AddRetentionPurged("network_metrics", removed)
		logger.Infof("Purged %d samples older than %s", removed, sampleCutoff.Format(time.RFC3339))
	}

	predictionCutoff := now.AddDate(0, 0, -s.config.PredictionDays)
	removed, err = s.predictions.DeleteOlderThan(ctx, predictionCutoff)
	if err != nil {
		logger.Errorf("Prediction retention purge failed: %v", err)
	} else if removed > 0 {
		metrics.Get().AddRetentionPurged("predictions", removed)
		logger.Infof("Purged %d predictions older than %s", removed, predictionCutoff.Format(time.RFC3339))
	}
}
